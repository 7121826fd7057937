package core

// run_gate.go admits one run at a time.
//
// Runs assume a single writer. Callers that can start runs concurrently
// (the HTTP trigger) pass through a RunGate: a second caller is turned
// away with ErrRunInProgress rather than queued. Shutdown uses WaitIdle to
// let an active run reach commit or rollback first.

import (
	"context"
	"sync"
	"time"
)

// drainPollInterval is how often WaitIdle checks for an active run.
const drainPollInterval = 50 * time.Millisecond

// RunGate is a one-slot semaphore.
type RunGate struct {
	slot chan struct{}

	mu      sync.RWMutex
	since   time.Time
	entered int
}

// NewRunGate returns an open gate.
func NewRunGate() *RunGate {
	return &RunGate{slot: make(chan struct{}, 1)}
}

// TryEnter takes the slot without blocking. It returns ErrRunInProgress
// when a run is active. The caller MUST call Leave after a nil return.
func (g *RunGate) TryEnter() error {
	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.since = time.Now()
		g.entered++
		g.mu.Unlock()
		return nil
	default:
		return ErrRunInProgress
	}
}

// Leave frees the slot taken by TryEnter.
func (g *RunGate) Leave() {
	g.mu.Lock()
	g.since = time.Time{}
	g.mu.Unlock()

	<-g.slot
}

// Active reports whether a run holds the slot.
func (g *RunGate) Active() bool {
	return len(g.slot) > 0
}

// WaitIdle blocks until no run is active or ctx is done.
func (g *RunGate) WaitIdle(ctx context.Context) error {
	if !g.Active() {
		return nil
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !g.Active() {
				return nil
			}
		}
	}
}

// RunGateStatus is a snapshot of a RunGate.
type RunGateStatus struct {
	Active  bool      `json:"active"`
	Since   time.Time `json:"since,omitzero"`
	Entered int       `json:"entered"` // runs admitted since start
}

// Status returns the current gate state for health reporting.
func (g *RunGate) Status() RunGateStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return RunGateStatus{
		Active:  !g.since.IsZero(),
		Since:   g.since,
		Entered: g.entered,
	}
}
