package loop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()

	var (
		mu  sync.Mutex
		got []int
	)
	finished := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 4 {
				// posting from inside a task must not block the loop
				l.Post(func() { close(finished) })
			}
		})
	}

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}

	cancel()
	<-done
}

func TestLoopAfterFuncPostsToLoop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	fired := make(chan time.Duration, 1)
	start := time.Now()
	l.AfterFunc(20*time.Millisecond, func() { fired <- time.Since(start) })

	select {
	case d := <-fired:
		if d < 20*time.Millisecond {
			t.Fatalf("timer fired early after %v", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestLoopSurvivesPanickingTask(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	ok := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(ok) })

	select {
	case <-ok:
	case <-time.After(5 * time.Second):
		t.Fatal("loop stopped after a panicking task")
	}
}

func TestManualStep(t *testing.T) {
	m := NewManual()
	var got []string

	m.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	m.AfterFunc(time.Second, func() {
		got = append(got, "a")
		m.AfterFunc(time.Second, func() { got = append(got, "a2") })
	})
	m.Post(func() { got = append(got, "posted") })

	m.Step(500 * time.Millisecond)
	if len(got) != 1 || got[0] != "posted" {
		t.Fatalf("after first step got %v", got)
	}

	m.Step(1500 * time.Millisecond)
	want := []string{"posted", "a", "b", "a2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if m.Timers() != 0 {
		t.Fatalf("%d timers left", m.Timers())
	}
	if !m.Now().Equal(time.Unix(2, 0)) {
		t.Fatalf("now = %v", m.Now())
	}
}

func TestManualNext(t *testing.T) {
	m := NewManual()
	if m.Next() {
		t.Fatal("Next with no timers must report false")
	}

	fired := 0
	m.AfterFunc(time.Minute, func() { fired++ })
	if !m.Next() || fired != 1 {
		t.Fatalf("fired = %d", fired)
	}
	if !m.Now().Equal(time.Unix(60, 0)) {
		t.Fatalf("now = %v", m.Now())
	}
}

func TestManualTimersAtTheSameInstant(t *testing.T) {
	m := NewManual()

	var got []int
	for i := range 3 {
		m.AfterFunc(time.Second, func() { got = append(got, i) })
	}
	m.AfterFunc(-time.Second, func() { got = append(got, -1) })
	start := m.Now()

	for m.Next() {
	}
	if len(got) != 4 || got[0] != -1 || got[1] != 0 || got[2] != 1 || got[3] != 2 {
		t.Errorf("fired in order %v", got)
	}
	if m.Since(start) != time.Second {
		t.Errorf("Since = %v", m.Since(start))
	}
	if m.Timers() != 0 || m.Pending() != 0 {
		t.Errorf("timers=%d pending=%d", m.Timers(), m.Pending())
	}
}
