package solver

import (
	"sync"
	"sync/atomic"
)

// Runner drives a Solver off the caller's goroutine. Each Tick starts at
// most one background step; a tick that arrives while a step is still
// running is dropped, so the simulation slows down instead of queueing.
type Runner struct {
	solver *Solver
	dt     float32
	onStep func(StepStats)

	busy atomic.Bool
	wg   sync.WaitGroup

	mu      sync.Mutex
	last    StepStats
	dropped int64
}

// NewRunner creates a runner stepping s by dt. onStep, if non-nil, is
// called from the stepping goroutine after every completed step.
func NewRunner(s *Solver, dt float32, onStep func(StepStats)) *Runner {
	return &Runner{solver: s, dt: dt, onStep: onStep}
}

// Tick starts a step if none is in flight and reports whether it did.
func (r *Runner) Tick() bool {
	if !r.busy.CompareAndSwap(false, true) {
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.busy.Store(false)

		stats := r.solver.Step(r.dt)
		r.mu.Lock()
		r.last = stats
		r.mu.Unlock()
		if r.onStep != nil {
			r.onStep(stats)
		}
	}()
	return true
}

// Busy reports whether a step is running.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Wait blocks until the running step, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Last returns the stats of the most recently completed step.
func (r *Runner) Last() StepStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Dropped returns the number of ticks skipped because a step was running.
func (r *Runner) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
