package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"cmkagent/internal/logger"
	"cmkagent/internal/scheduler"
)

// ErrStartup wraps failures of the process-wide start hook.
var ErrStartup = errors.New("startup failed")

// DefaultInterval is the period of the service-mode check.
const DefaultInterval = time.Second

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// Interval between periodic checks. Zero means DefaultInterval.
	Interval time.Duration
	// Check is invoked every Interval while Running.
	Check scheduler.Func
	// OnStartApp runs once before scheduling begins. An error aborts Run.
	OnStartApp func(ctx context.Context) error
	// OnExit runs exactly once on every path out of Run.
	OnExit func()
	// Lifecycle to drive. Nil starts a fresh one at Installed.
	Lifecycle *Lifecycle
	// Clock for the scheduler. Nil uses the wall clock.
	Clock clock.Clock
}

// Runtime is the service-mode body: start hook, periodic check, ordered
// shutdown and a teardown that always runs.
type Runtime struct {
	opts      RuntimeOptions
	lifecycle *Lifecycle
	exitOnce  sync.Once

	mu    sync.Mutex
	sched *scheduler.Scheduler
}

// NewRuntime creates a Runtime.
func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	lc := opts.Lifecycle
	if lc == nil {
		lc = NewLifecycle(Installed)
	}
	return &Runtime{opts: opts, lifecycle: lc}
}

// Lifecycle returns the state machine the runtime drives.
func (r *Runtime) Lifecycle() *Lifecycle {
	return r.lifecycle
}

// Stats returns the scheduler counters, zero before the service is running.
func (r *Runtime) Stats() scheduler.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched == nil {
		return scheduler.Stats{}
	}
	return r.sched.Stats()
}

// Run performs startup, then hands the service body to host and blocks
// until the host returns.
func (r *Runtime) Run(ctx context.Context, host Host) error {
	defer r.teardown()

	if r.opts.OnStartApp != nil {
		if err := r.opts.OnStartApp(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrStartup, err)
		}
	}
	return host.Run(ctx, r.serve)
}

func (r *Runtime) teardown() {
	r.exitOnce.Do(func() {
		if r.opts.OnExit != nil {
			r.opts.OnExit()
		}
	})
}

// serve runs while the service manager considers the service started.
func (r *Runtime) serve(ctx context.Context) error {
	log := logger.WithComponent("runtime")

	opts := []scheduler.Option{scheduler.WithName("update-check")}
	if r.opts.Clock != nil {
		opts = append(opts, scheduler.WithClock(r.opts.Clock))
	}
	check := r.opts.Check
	if check == nil {
		check = func(context.Context) (bool, error) { return true, nil }
	}
	sched := scheduler.New(r.opts.Interval, check, opts...)

	r.mu.Lock()
	r.sched = sched
	r.mu.Unlock()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	// Running is entered with the first tick already armed.
	if err := r.lifecycle.Transition(Running); err != nil {
		sched.Stop()
		return err
	}
	log.Info().Dur("interval", r.opts.Interval).Msg("Service running")

	// A callback that ends scheduling does not end the service.
	<-ctx.Done()

	if err := r.lifecycle.Transition(Stopping); err != nil {
		return err
	}
	log.Info().Msg("Stop requested, waiting for in-flight check")
	sched.Stop()
	// teardown closes the log, so this is the last line written
	log.Info().Interface("stats", sched.Stats()).Msg("Service stopped")
	r.teardown()
	return r.lifecycle.Transition(Stopped)
}
