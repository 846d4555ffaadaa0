// Package schedule runs cancellable delayed callbacks.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the callback. It reports false if it already ran or was
	// stopped.
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real schedules on the runtime timer heap.
type Real struct{}

// NewReal returns the wall clock scheduler.
func NewReal() Real { return Real{} }

func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Manual is a scheduler driven explicitly by Advance. Callbacks run on the
// goroutine calling Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	m    *Manual
	at   time.Duration
	seq  int
	fn   func()
	done bool
}

// NewManual returns a manual scheduler at time zero.
func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward by d and runs every callback that became due,
// in deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.now = next.at
		m.mu.Unlock()
		next.fn()
	}
}

// nextDue pops the earliest live timer due by target. m.mu must be held.
func (m *Manual) nextDue(target time.Duration) *manualTimer {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	m.pending = live
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at == live[j].at {
			return live[i].seq < live[j].seq
		}
		return live[i].at < live[j].at
	})
	if live[0].at > target {
		return nil
	}
	return live[0]
}

// Pending returns the number of callbacks not yet run or stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.done {
			n++
		}
	}
	return n
}
