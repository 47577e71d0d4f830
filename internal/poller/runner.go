// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("poller: already running")
	ErrClosed         = errors.New("poller: closed")
)

// Run polls immediately and then on every tick until ctx is cancelled
// or Close is called. No overlap: a slow cycle delays the next tick.
// A failed cycle is not retried; the next tick reconnects.
// Run returns ErrClosed once Close has been called.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.runMu.Lock()
	if s.stopped {
		s.runMu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.runMu.Unlock()

	defer func() {
		s.runMu.Lock()
		s.cancel, s.done = nil, nil
		s.runMu.Unlock()
		close(done)
	}()

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("poller started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("poller stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Failures are logged and recorded by PollOnce.
	_, _ = s.PollOnce(ctx)
}

// Close stops Run (aborting any in-flight request), waits for it to
// return, closes subscriber channels and the device connection.
func (s *Service) Close() error {
	s.runMu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.closeSubscribers()

	s.link.Lock()
	defer s.link.Unlock()
	return s.client.Close()
}
