package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Tasks fire synchronously inside
// Advance, in deadline order, on the caller's goroutine.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	tasks  map[int]*fakeTask
}

type fakeTask struct {
	id       int
	deadline time.Time
	period   time.Duration // zero for one-shot
	fn       func()
}

var _ Clock = (*Fake)(nil)

func NewFake(start time.Time) *Fake {
	return &Fake{now: start, tasks: make(map[int]*fakeTask)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) CancelFunc {
	return f.schedule(d, 0, fn)
}

func (f *Fake) Every(d time.Duration, fn func()) CancelFunc {
	return f.schedule(d, d, fn)
}

func (f *Fake) schedule(d, period time.Duration, fn func()) CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.tasks[id] = &fakeTask{id: id, deadline: f.now.Add(d), period: period, fn: fn}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.tasks, id)
	}
}

// Advance moves the clock forward by d, firing every task whose deadline
// falls within the window, in deadline order. Periodic tasks fire once per
// elapsed period.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		task := f.nextDue(target)
		if task == nil {
			break
		}
		f.mu.Lock()
		f.now = task.deadline
		if task.period > 0 {
			task.deadline = task.deadline.Add(task.period)
		} else {
			delete(f.tasks, task.id)
		}
		fn := task.fn
		f.mu.Unlock()
		fn()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// nextDue returns the task with the earliest deadline at or before target.
func (f *Fake) nextDue(target time.Time) *fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []*fakeTask
	for _, t := range f.tasks {
		if !t.deadline.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}

// Pending reports how many tasks are currently scheduled.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}
