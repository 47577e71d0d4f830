// internal/status/tracker.go
package status

import (
	"sync"
	"time"
)

// Tracker owns the link state. Each method reports whether the
// externally visible state changed, so callers emit transitions only once.
type Tracker struct {
	mu   sync.Mutex
	link Link
	now  func() time.Time
}

func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.link.Since = t.now()
	return t
}

// Link returns a copy of the current link state.
func (t *Tracker) Link() Link {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link
}

// Connecting marks the start of a (re)connection attempt.
func (t *Tracker) Connecting() (Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.set(Connecting, t.link.Connected, t.link.LastErrorCode, t.link.LastError)
}

// Success records a fully successful cycle.
func (t *Tracker) Success() (Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.link.ConsecutiveFailures = 0
	return t.set(Polling, true, CodeNone, "")
}

// Failure records a failed cycle or connection attempt.
func (t *Tracker) Failure(err error) (Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.link.ConsecutiveFailures < ^uint32(0) {
		t.link.ConsecutiveFailures++
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return t.set(Disconnected, false, Code(err), msg)
}

func (t *Tracker) set(s State, connected bool, code uint16, msg string) (Link, bool) {
	changed := false

	if t.link.State != s {
		t.link.State = s
		t.link.Since = t.now()
		changed = true
	}
	if t.link.Connected != connected {
		t.link.Connected = connected
		changed = true
	}
	if t.link.LastErrorCode != code {
		t.link.LastErrorCode = code
		changed = true
	}
	t.link.LastError = msg

	return t.link, changed
}
