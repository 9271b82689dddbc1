package telemetry

import (
	"github.com/pthm-cable/grain/particles"
	"github.com/pthm-cable/grain/solver"
)

// Collector accumulates step stats within windows and produces WindowStats.
type Collector struct {
	windowSteps int64
	dt          float32
	runID       string

	// Current window tracking
	windowStartStep int64
	lastStep        int64

	// Counters for current window
	candidates        int
	overlaps          int
	rigidHits         int
	bondsCreated      int
	bondsBroken       int
	constraintsBroken int

	// Counts from the latest step
	bonds       int
	constraints int
}

// NewCollector creates a new stats collector.
// windowSteps: number of steps per window
// dt: seconds per step (used for step-to-time conversion)
func NewCollector(windowSteps int, dt float32) *Collector {
	if windowSteps < 1 {
		windowSteps = 1
	}
	return &Collector{
		windowSteps: int64(windowSteps),
		dt:          dt,
	}
}

// SetRunID stamps every produced window with id.
func (c *Collector) SetRunID(id string) {
	c.runID = id
}

// Record adds one step to the current window.
func (c *Collector) Record(st solver.StepStats) {
	c.lastStep = st.Step
	c.candidates += st.Candidates
	c.overlaps += st.Overlaps
	c.rigidHits += st.RigidHits
	c.bondsCreated += st.BondsCreated
	c.bondsBroken += st.BondsBroken
	c.constraintsBroken += st.ConstraintsBroken
	c.bonds = st.Bonds
	c.constraints = st.Constraints
}

// ShouldFlush returns true if enough steps have been recorded to flush the window.
func (c *Collector) ShouldFlush() bool {
	return c.lastStep-c.windowStartStep >= c.windowSteps
}

// Flush produces a WindowStats, sampling the distributions from p, and
// resets counters for the next window.
func (c *Collector) Flush(p *particles.Set) WindowStats {
	var overlapRate float64
	if c.candidates > 0 {
		overlapRate = float64(c.overlaps) / float64(c.candidates)
	}

	s := sampleSet(p)
	height := ComputeDistribution(s.heights)
	speed := ComputeDistribution(s.speeds)

	stats := WindowStats{
		RunID:           c.runID,
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   c.lastStep,
		SimTimeSec:      float64(c.lastStep) * float64(c.dt),

		Particles:   p.Len(),
		Bonds:       c.bonds,
		Constraints: c.constraints,

		Candidates:        c.candidates,
		Overlaps:          c.overlaps,
		RigidHits:         c.rigidHits,
		BondsCreated:      c.bondsCreated,
		BondsBroken:       c.bondsBroken,
		ConstraintsBroken: c.constraintsBroken,
		OverlapRate:       overlapRate,

		HeightMean: height.Mean,
		HeightStd:  height.Std,
		HeightP10:  height.P10,
		HeightP50:  height.P50,
		HeightP90:  height.P90,

		SpeedMean: speed.Mean,
		SpeedP90:  speed.P90,
		SpeedMax:  speed.Max,

		KineticEnergy: s.kinetic,
		NonFinite:     s.nonFinite,
	}

	// Reset for next window
	c.windowStartStep = c.lastStep
	c.candidates = 0
	c.overlaps = 0
	c.rigidHits = 0
	c.bondsCreated = 0
	c.bondsBroken = 0
	c.constraintsBroken = 0

	return stats
}

// WindowSteps returns the number of steps per window.
func (c *Collector) WindowSteps() int64 {
	return c.windowSteps
}
