// Package progress tracks the state of a long-running crawl or scrape run
// for polling by the serving layer.
package progress

import (
	"sync"

	"kurskompass/scraper/internal/domain"
)

// maxDetails bounds the rolling log of recently processed item names.
const maxDetails = 5

// Tracker holds one run's phase, status line, counters and rolling log.
// It is reset at the start of each run and left in its terminal state
// afterwards so late polls still see the final status.
type Tracker struct {
	mu    sync.Mutex
	state domain.Progress
}

func NewTracker() *Tracker {
	return &Tracker{
		state: domain.Progress{Phase: "idle", Status: "Bereit"},
	}
}

// Reset starts a new run: counters back to zero, rolling log cleared.
func (t *Tracker) Reset(phase, status string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = domain.Progress{Phase: phase, Status: status, Total: total}
}

func (t *Tracker) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = status
}

// Finish moves the run into a terminal phase with its final status line.
func (t *Tracker) Finish(phase, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Phase = phase
	t.state.Status = status
}

// Step increments the current counter by one.
func (t *Tracker) Step() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Current++
}

// Push appends an item name to the rolling log, keeping only the most
// recent maxDetails entries.
func (t *Tracker) Push(item string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Details = append(t.state.Details, item)
	if len(t.state.Details) > maxDetails {
		t.state.Details = t.state.Details[len(t.state.Details)-maxDetails:]
	}
}

// Snapshot returns a copy of the current state. The Details slice is copied
// so callers never alias the tracker's internal storage.
func (t *Tracker) Snapshot() domain.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.state
	snap.Details = append([]string(nil), t.state.Details...)
	return snap
}
