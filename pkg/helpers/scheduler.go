package helpers

import (
	"sort"
	"sync"
	"time"
)

// Scheduler schedules a single callback after a delay and hands back a handle
// to cancel it. The reveal animator and the error reporter both build their
// timer chains on top of this so that tests can drive them with virtual time.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) CancelFunc
}

// CancelFunc cancels a scheduled callback. Cancelling after the callback has
// fired is a no-op.
type CancelFunc func()

// TimerScheduler runs callbacks on real timers.
type TimerScheduler struct{}

var _ Scheduler = (*TimerScheduler)(nil)

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(delay, fn)
	return func() {
		t.Stop()
	}
}

// ManualScheduler is a Scheduler driven by an explicit virtual clock. Tests
// call Advance to move time forward; due callbacks run synchronously on the
// advancing goroutine, in due order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	tasks  map[int]*manualTask
}

type manualTask struct {
	id  int
	due time.Duration
	fn  func()
}

var _ Scheduler = (*ManualScheduler)(nil)

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		tasks: make(map[int]*manualTask),
	}
}

func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.tasks[id] = &manualTask{id: id, due: s.now + delay, fn: fn}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.tasks, id)
	}
}

// Advance moves the virtual clock forward by d and runs every callback that
// comes due, in due order. Callbacks may schedule further tasks; those run
// too if they fall within the advanced window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		task := s.popNextDue(target)
		if task == nil {
			break
		}
		task.fn()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// Pending returns the number of tasks still waiting to fire.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *ManualScheduler) popNextDue(target time.Duration) *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.due <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})

	next := due[0]
	// advance the clock task by task so callbacks scheduling relative delays
	// see a consistent now
	s.now = next.due
	delete(s.tasks, next.id)
	return next
}
