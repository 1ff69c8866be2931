package loop

import (
	"slices"
	"sort"
	"sync"
	"time"

	"k8s.io/utils/clock"
	testingclock "k8s.io/utils/clock/testing"
)

var (
	_ Scheduler          = (*Manual)(nil)
	_ clock.PassiveClock = (*Manual)(nil)
)

// Manual is a deterministic Scheduler for tests. Nothing runs until the
// test calls Drain, Step or Next; time only moves when the test moves it.
// Timers live on a fake clock, and a timer firing posts its task.
type Manual struct {
	clock *testingclock.FakeClock

	mu    sync.Mutex
	queue []func()
	// dues holds the due time of every unfired timer, earliest first.
	dues []time.Time
}

// NewManual returns a Manual scheduler whose clock starts at the Unix epoch.
func NewManual() *Manual {
	return &Manual{clock: testingclock.NewFakeClock(time.Unix(0, 0))}
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) {
	due := m.clock.Now().Add(d)

	m.mu.Lock()
	i := sort.Search(len(m.dues), func(i int) bool { return m.dues[i].After(due) })
	m.dues = slices.Insert(m.dues, i, due)
	m.mu.Unlock()

	// The fake clock runs fn under its own lock; m.mu is never held while
	// calling into the clock.
	m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if i := slices.IndexFunc(m.dues, due.Equal); i >= 0 {
			m.dues = slices.Delete(m.dues, i, i+1)
		}
		m.queue = append(m.queue, fn)
	})
}

// Now returns the scheduler's current time.
func (m *Manual) Now() time.Time {
	return m.clock.Now()
}

// Since returns the time elapsed on the scheduler's clock since t.
func (m *Manual) Since(t time.Time) time.Duration {
	return m.clock.Since(t)
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Timers returns the number of timers that have not fired yet.
func (m *Manual) Timers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dues)
}

// Drain runs queued tasks, including tasks they post, until the queue is
// empty. It returns the number of tasks run.
func (m *Manual) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
		n++
	}
}

// Step advances the clock by d, firing due timers in order and draining the
// queue after each due time. Timers due at the same instant fire in the
// order they were set.
func (m *Manual) Step(d time.Duration) {
	if d < 0 {
		d = 0
	}
	target := m.clock.Now().Add(d)

	m.Drain()
	for {
		m.mu.Lock()
		if len(m.dues) == 0 || m.dues[0].After(target) {
			m.mu.Unlock()
			m.clock.SetTime(target)
			return
		}
		due := m.dues[0]
		m.mu.Unlock()

		if now := m.clock.Now(); due.Before(now) {
			due = now
		}
		m.clock.SetTime(due)
		m.Drain()
	}
}

// Next advances the clock to the earliest timer and fires it. It reports
// false when no timer is pending.
func (m *Manual) Next() bool {
	m.Drain()

	m.mu.Lock()
	if len(m.dues) == 0 {
		m.mu.Unlock()
		return false
	}
	d := m.dues[0].Sub(m.clock.Now())
	m.mu.Unlock()

	m.Step(d)
	return true
}
