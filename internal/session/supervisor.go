package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pulsebridge/pulsebridge/internal/infrastructure/logging"
)

// Backoff defaults when the config leaves them zero.
const (
	defaultInitialDelay     = time.Second
	defaultMaxDelay         = 60 * time.Second
	defaultEstablishedAfter = 30 * time.Second
)

// Backoff configures the supervisor's reconnect pacing.
type Backoff struct {
	// InitialDelay is the wait after the first failure. Default: 1s.
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth. Default: 60s.
	MaxDelay time.Duration

	// EstablishedAfter is how long a session must stay up for the next
	// failure to start again from InitialDelay. Default: 30s.
	EstablishedAfter time.Duration
}

func (b Backoff) withDefaults() Backoff {
	if b.InitialDelay <= 0 {
		b.InitialDelay = defaultInitialDelay
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = defaultMaxDelay
	}
	if b.EstablishedAfter <= 0 {
		b.EstablishedAfter = defaultEstablishedAfter
	}
	return b
}

// Supervisor keeps a device session alive for the life of the process.
// Every attempt gets a fresh manager from the factory; failures back
// off exponentially, and a session that stayed up long enough resets
// the backoff.
type Supervisor struct {
	newManager func() *Manager
	backoff    Backoff
	logger     *logging.Logger

	connected atomic.Bool
}

// NewSupervisor creates a supervisor. The factory must return a manager
// wrapping a fresh, unconnected client on every call.
func NewSupervisor(newManager func() *Manager, backoff Backoff, logger *logging.Logger) *Supervisor {
	return &Supervisor{
		newManager: newManager,
		backoff:    backoff.withDefaults(),
		logger:     logger,
	}
}

// Connected reports whether a session is currently up. Used by health
// reporting.
func (s *Supervisor) Connected() bool {
	return s.connected.Load()
}

// Run reconnects forever until ctx is cancelled. It always returns
// ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	delay := s.backoff.InitialDelay

	for {
		var upAt time.Time

		mgr := s.newManager()
		inner := mgr.OnSessionUp
		mgr.OnSessionUp = func() {
			upAt = time.Now()
			s.connected.Store(true)
			if inner != nil {
				inner()
			}
		}

		err := mgr.Run(ctx)
		s.connected.Store(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !upAt.IsZero() && time.Since(upAt) >= s.backoff.EstablishedAfter {
			delay = s.backoff.InitialDelay
		}

		s.logger.Warn("session ended, reconnecting",
			"error", err,
			"retry_in", delay,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.backoff.MaxDelay {
			delay = s.backoff.MaxDelay
		}
	}
}
