// Package clock wraps timer scheduling behind an interface so
// timing-dependent behavior (settle delays, periodic health checks) is
// deterministic under test. Production code uses System; tests use Fake
// and advance time explicitly.
package clock

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled task. Safe to call more than once.
type CancelFunc func()

// Clock schedules one-shot and periodic tasks.
type Clock interface {
	Now() time.Time

	// AfterFunc runs fn once after d elapses.
	AfterFunc(d time.Duration, fn func()) CancelFunc

	// Every runs fn each time d elapses, until cancelled.
	Every(d time.Duration, fn func()) CancelFunc
}

// System is the wall-clock implementation.
type System struct{}

var _ Clock = System{}

func (System) Now() time.Time { return time.Now() }

func (System) AfterFunc(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (System) Every(d time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
