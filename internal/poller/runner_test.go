// internal/poller/runner_test.go
package poller

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/erv-bridge/internal/registers"
)

func TestRun_PollsUntilClosed(t *testing.T) {
	c := newFakeClient()
	s, err := New(Config{Interval: 10 * time.Millisecond, Derive: testDerive}, c, registers.ERV(), zerolog.Nop())
	require.NoError(t, err)

	events, _ := s.Subscribe(64)

	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background()) }()

	require.Eventually(t, func() bool { return s.Snapshot().Seq >= 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	c.mu.Lock()
	assert.True(t, c.closed)
	c.mu.Unlock()

	// Subscriber channel is drained then closed.
	for range events {
	}

	seq := s.Snapshot().Seq
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seq, s.Snapshot().Seq)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s, err := New(Config{Interval: 10 * time.Millisecond}, newFakeClient(), registers.ERV(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	require.Eventually(t, s.Connected, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRun_AlreadyRunning(t *testing.T) {
	s, err := New(Config{Interval: 10 * time.Millisecond}, newFakeClient(), registers.ERV(), zerolog.Nop())
	require.NoError(t, err)

	go func() { _ = s.Run(context.Background()) }()
	require.Eventually(t, s.Connected, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Run(context.Background()), ErrAlreadyRunning)
	require.NoError(t, s.Close())
}

func TestRun_AfterCloseReturnsErrClosed(t *testing.T) {
	c := newFakeClient()
	s, err := New(Config{Interval: 10 * time.Millisecond}, c, registers.ERV(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Run(context.Background()), ErrClosed)

	c.mu.Lock()
	assert.Zero(t, c.connects)
	c.mu.Unlock()
	assert.Zero(t, s.Snapshot().Seq)
}

func TestRun_CloseRacingStart(t *testing.T) {
	for i := 0; i < 20; i++ {
		s, err := New(Config{Interval: time.Millisecond}, newFakeClient(), registers.ERV(), zerolog.Nop())
		require.NoError(t, err)

		errc := make(chan error, 1)
		go func() { errc <- s.Run(context.Background()) }()
		require.NoError(t, s.Close())

		select {
		case err := <-errc:
			if err != nil {
				assert.ErrorIs(t, err, ErrClosed)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run kept going after Close")
		}

		seq := s.Snapshot().Seq
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, seq, s.Snapshot().Seq)
	}
}
