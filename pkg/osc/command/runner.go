// Package command runs OSC commands: one execute request followed by status
// polls until the camera reports a state other than inProgress.
package command

import (
	"context"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/transport"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// DefaultInterval is the delay between status polls.
const DefaultInterval = time.Second

// Runner starts command chains. It holds no per-command state; every chain
// carries its own handle and callback, so one Runner serves any number of
// concurrent chains.
type Runner struct {
	transport transport.Transport
	sched     loop.Scheduler
	interval  time.Duration
	clock     clock.PassiveClock
	observer  Observer
	logger    log.Logger

	seq atomic.Uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithInterval sets the delay between status polls.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithObserver registers an Observer for chain milestones.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithClock sets the clock used to measure command duration.
func WithClock(c clock.PassiveClock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner returns a Runner issuing requests through t. Timers and the
// entry points of Submit and Await run on sched, which must be the
// scheduler t delivers completions to.
func NewRunner(t transport.Transport, sched loop.Scheduler, opts ...Option) *Runner {
	r := &Runner{
		transport: t,
		sched:     sched,
		interval:  DefaultInterval,
		clock:     clock.RealClock{},
		observer:  nopObserver{},
		logger:    log.WithName("command"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Interval returns the delay between status polls.
func (r *Runner) Interval() time.Duration {
	return r.interval
}

// Execute starts a command chain. It must be called on the scheduler.
//
// cb is invoked synchronously with a Pending reply before the execute
// request is issued, and later exactly once with the final reply. There is
// no way to stop a chain; a camera that never leaves inProgress is polled
// forever.
func (r *Runner) Execute(ctx context.Context, name string, params map[string]any, cb Callback) {
	c := r.newChain(ctx, Request{Name: name, Parameters: params}, cb)
	c.start()
}

// Submit posts Execute onto the scheduler. It is safe to call from any goroutine.
func (r *Runner) Submit(ctx context.Context, name string, params map[string]any, cb Callback) {
	r.sched.Post(func() {
		r.Execute(ctx, name, params, cb)
	})
}

// Fetch issues a single GET to path, for the info, state and update-check
// endpoints. cb sees a Pending reply first, then the response. It must be
// called on the scheduler.
func (r *Runner) Fetch(ctx context.Context, path string, cb Callback) {
	cb(Reply{Pending: true})
	r.logger.Debug("Fetching camera endpoint", "path", path)
	transport.Get(ctx, r.transport, path, func(status int, body value.Value) {
		cb(Reply{StatusCode: status, Body: body})
	})
}

// Info fetches the camera description.
func (r *Runner) Info(ctx context.Context, cb Callback) { r.Fetch(ctx, osc.InfoPath, cb) }

// State fetches the camera state.
func (r *Runner) State(ctx context.Context, cb Callback) { r.Fetch(ctx, osc.StatePath, cb) }

// CheckForUpdates fetches the update-check document.
func (r *Runner) CheckForUpdates(ctx context.Context, cb Callback) {
	r.Fetch(ctx, osc.CheckForUpdatesPath, cb)
}

// Await runs a command chain from any goroutine and blocks until its final
// reply. An error is returned only when ctx ends first; the chain itself is
// detached from ctx and keeps running until the camera answers.
func (r *Runner) Await(ctx context.Context, name string, params map[string]any) (Reply, error) {
	chainCtx := context.WithoutCancel(ctx)
	return r.await(ctx, func(cb Callback) {
		r.Execute(chainCtx, name, params, cb)
	})
}

// AwaitFetch is Fetch for callers outside the scheduler.
func (r *Runner) AwaitFetch(ctx context.Context, path string) (Reply, error) {
	fetchCtx := context.WithoutCancel(ctx)
	return r.await(ctx, func(cb Callback) {
		r.Fetch(fetchCtx, path, cb)
	})
}

func (r *Runner) await(ctx context.Context, start func(Callback)) (Reply, error) {
	ch := make(chan Reply, 1)
	r.sched.Post(func() {
		start(func(rep Reply) {
			if !rep.Pending {
				ch <- rep
			}
		})
	})

	select {
	case rep := <-ch:
		return rep, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}
