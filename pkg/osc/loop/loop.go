// Package loop provides the single logical thread on which every callback
// of a command chain runs.
//
// Network completions and timer firings are the only ways work enters a
// loop; both arrive as posted tasks and run one at a time in FIFO order.
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/oscpeer/pkg/log"
)

// Scheduler runs tasks one at a time on a single logical thread.
type Scheduler interface {
	// Post queues fn behind every task already queued. It never blocks.
	Post(fn func())

	// AfterFunc queues fn once d has elapsed. Nothing waits meanwhile.
	AfterFunc(d time.Duration, fn func())
}

var _ Scheduler = (*Loop)(nil)

// Loop is a Scheduler backed by a goroutine started with Run.
type Loop struct {
	clock clock.WithDelayedExecution

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock used for delayed tasks.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// New returns a Loop. Tasks are queued until Run is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock: clock.RealClock{},
		wake:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) {
	l.clock.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Run executes queued tasks until ctx is done. Tasks still queued when ctx
// ends are dropped.
func (l *Loop) Run(ctx context.Context) error {
	log.Debug("Event loop started")
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.run(fn)
			if ctx.Err() != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			log.Debug("Event loop stopped")
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(fmt.Errorf("panic: %v", r), "Event loop task panicked")
		}
	}()
	fn()
}
