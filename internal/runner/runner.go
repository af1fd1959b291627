// Package runner provides the single-slot background task registry: one
// crawl or scrape run may be active per process, started fire-and-forget and
// observed via a non-blocking state query. There is no cancellation; a run
// proceeds until it finishes.
package runner

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned when a run is started while another one
// holds the slot. Callers surface it as a distinct rejection, never queue.
var ErrAlreadyRunning = errors.New("a run is already active")

type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Runner is the single-slot registry. The zero value is ready to use.
type Runner struct {
	mu    sync.Mutex
	state State
	done  chan struct{}
}

// Start launches fn on a background goroutine and returns immediately.
// It fails with ErrAlreadyRunning if a previous run is still active.
func (r *Runner) Start(name string, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRunning {
		return ErrAlreadyRunning
	}

	done := make(chan struct{})
	r.state = StateRunning
	r.done = done

	go func() {
		defer close(done)
		err := fn()

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.state = StateFailed
			log.Errorf("%s run failed: %v", name, err)
			return
		}
		r.state = StateSucceeded
	}()

	return nil
}

// State reports the current slot state without blocking.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Wait blocks until the most recently started run has finished. It returns
// immediately if no run was ever started.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}
