// Package scheduler runs a callback on a fixed period with cooperative
// cancellation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"cmkagent/internal/logger"
)

// ErrInvalidInterval is returned by Start for a non-positive interval.
var ErrInvalidInterval = errors.New("scheduler interval must be positive")

// ErrPanic marks a run whose callback panicked.
var ErrPanic = errors.New("scheduled run panicked")

// Func is the periodic callback. Returning false ends scheduling; an error
// is logged and scheduling continues.
type Func func(ctx context.Context) (bool, error)

// Stats counts scheduler activity since Start.
type Stats struct {
	Ticks    uint64
	Runs     uint64
	Skipped  uint64
	Failures uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithName sets the name used in log lines.
func WithName(name string) Option {
	return func(s *Scheduler) { s.name = name }
}

// Scheduler invokes a Func every interval. At most one invocation is in
// flight; a tick that arrives while the previous call is still running is
// skipped, not queued.
type Scheduler struct {
	interval time.Duration
	fn       Func
	clock    clock.Clock
	name     string

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}

	inFlight atomic.Bool
	ticks    atomic.Uint64
	runs     atomic.Uint64
	skipped  atomic.Uint64
	failures atomic.Uint64
}

// New creates a scheduler. It does nothing until Start.
func New(interval time.Duration, fn Func, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		fn:       fn,
		clock:    clock.New(),
		name:     "periodic",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins ticking. The first invocation happens one interval after
// Start. Calling Start again is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	logger.WithComponent("scheduler").Info().
		Str("task", s.name).
		Dur("interval", s.interval).
		Msg("Scheduler started")

	// The ticker is armed before Start returns so the first tick is
	// exactly one interval away.
	ticker := s.clock.Ticker(s.interval)
	s.wg.Add(1)
	go s.loop(ctx, ticker)
	go func() {
		s.wg.Wait()
		close(s.done)
	}()
	return nil
}

// Stop halts ticking and waits for an in-flight invocation to return.
// The invocation itself is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()

	<-s.done
}

// Done is closed once the scheduler has stopped ticking and no
// invocation is in flight.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:    s.ticks.Load(),
		Runs:     s.runs.Load(),
		Skipped:  s.skipped.Load(),
		Failures: s.failures.Load(),
	}
}

func (s *Scheduler) loop(ctx context.Context, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()
	log := logger.WithComponent("scheduler")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("task", s.name).Msg("Scheduler stopped")
			return
		case <-ticker.C:
			// a stop that raced with this tick wins
			if ctx.Err() != nil {
				continue
			}
			s.ticks.Add(1)
			if !s.inFlight.CompareAndSwap(false, true) {
				s.skipped.Add(1)
				log.Debug().Str("task", s.name).Msg("Previous run still in progress, skipping tick")
				continue
			}
			s.wg.Add(1)
			go s.invoke(ctx)
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context) {
	defer s.wg.Done()
	defer s.inFlight.Store(false)
	log := logger.WithComponent("scheduler")

	s.runs.Add(1)
	start := s.clock.Now()
	more, err := s.call(context.WithoutCancel(ctx))
	elapsed := s.clock.Since(start)

	if err != nil {
		s.failures.Add(1)
		log.Warn().Err(err).Str("task", s.name).Dur("duration", elapsed).Msg("Scheduled run failed")
	}
	if elapsed > s.interval {
		log.Debug().Str("task", s.name).Dur("duration", elapsed).Msg("Run exceeded interval")
	}
	if !more {
		log.Info().Str("task", s.name).Msg("Callback requested stop")
		s.mu.Lock()
		s.cancel()
		s.mu.Unlock()
	}
}

// call runs the callback, turning a panic into a failed run so the loop
// keeps ticking.
func (s *Scheduler) call(ctx context.Context) (more bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithComponent("scheduler").Error().
				Str("task", s.name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered in scheduled run")
			more, err = true, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return s.fn(ctx)
}
