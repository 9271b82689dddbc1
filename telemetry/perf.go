package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/grain/solver"
)

var _ solver.Observer = (*PerfCollector)(nil)

// PerfCollector times solver phases over a rolling window of steps.
//
// Phases are kept in slots: solver.Phases first in execution order, then
// any other name in the order it was first seen. The window sums are
// updated as steps enter and leave the ring, so Stats only scans the
// step durations for the extremes.
type PerfCollector struct {
	slot  map[string]int
	names []string

	// ring of the last len(stepUS) steps
	stepUS []float64
	ringNS [][]int64
	ringN  [][]int // phase entries per slot
	next   int
	n      int

	// window sums
	stepSum  float64
	phaseSum []int64
	enterSum []int

	// current step
	cur       []int64
	curN      []int
	stepStart time.Time
	mark      time.Time
	open      int // slot being timed, -1 between phases
}

// NewPerfCollector creates a collector averaging over window steps
// (60 when window < 1).
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	p := &PerfCollector{
		slot:   make(map[string]int, len(solver.Phases)),
		stepUS: make([]float64, window),
		ringNS: make([][]int64, window),
		ringN:  make([][]int, window),
		open:   -1,
	}
	for _, name := range solver.Phases {
		p.slotFor(name)
	}
	return p
}

func (p *PerfCollector) slotFor(name string) int {
	if i, ok := p.slot[name]; ok {
		return i
	}
	i := len(p.names)
	p.slot[name] = i
	p.names = append(p.names, name)
	p.phaseSum = append(p.phaseSum, 0)
	p.enterSum = append(p.enterSum, 0)
	p.cur = append(p.cur, 0)
	p.curN = append(p.curN, 0)
	return i
}

// close charges the time since the last mark to the open phase.
func (p *PerfCollector) close(now time.Time) {
	if p.open >= 0 {
		p.cur[p.open] += int64(now.Sub(p.mark))
	}
	p.mark = now
}

// StartTick begins timing a solver step.
func (p *PerfCollector) StartTick() {
	clear(p.cur)
	clear(p.curN)
	p.open = -1
	p.stepStart = time.Now()
}

// StartPhase ends the running phase and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	p.close(time.Now())
	p.open = p.slotFor(phase)
	p.curN[p.open]++
}

// EndTick closes the step and pushes it into the window.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.close(now)
	p.open = -1

	i := p.next
	if p.n == len(p.stepUS) {
		p.stepSum -= p.stepUS[i]
		for k := range p.ringNS[i] {
			p.phaseSum[k] -= p.ringNS[i][k]
			p.enterSum[k] -= p.ringN[i][k]
		}
	} else {
		p.n++
	}

	p.stepUS[i] = float64(now.Sub(p.stepStart)) / float64(time.Microsecond)
	p.ringNS[i] = append(p.ringNS[i][:0], p.cur...)
	p.ringN[i] = append(p.ringN[i][:0], p.curN...)

	p.stepSum += p.stepUS[i]
	for k := range p.cur {
		p.phaseSum[k] += p.cur[k]
		p.enterSum[k] += p.curN[k]
	}
	p.next = (i + 1) % len(p.stepUS)
}

// PerfStats aggregates the window.
type PerfStats struct {
	StepAvg time.Duration
	StepMin time.Duration
	StepMax time.Duration

	// Mean substeps per step, counted from forces phases.
	Substeps float64

	// Per-phase mean time per step and its share of the step in percent.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	StepsPerSecond float64
}

// Stats computes the window aggregate. Phases not entered by any step in
// the window are left out of the maps.
func (p *PerfCollector) Stats() PerfStats {
	st := PerfStats{
		PhaseAvg: make(map[string]time.Duration, len(p.names)),
		PhasePct: make(map[string]float64, len(p.names)),
	}
	if p.n == 0 {
		return st
	}

	us := func(v float64) time.Duration { return time.Duration(v * float64(time.Microsecond)) }
	window := p.stepUS[:p.n]
	mean := p.stepSum / float64(p.n)
	st.StepAvg = us(mean)
	st.StepMin = us(floats.Min(window))
	st.StepMax = us(floats.Max(window))
	st.Substeps = float64(p.enterSum[p.slot[solver.PhaseForces]]) / float64(p.n)
	if mean > 0 {
		st.StepsPerSecond = 1e6 / mean
	}

	for k, name := range p.names {
		if p.enterSum[k] == 0 {
			continue
		}
		avg := time.Duration(p.phaseSum[k] / int64(p.n))
		st.PhaseAvg[name] = avg
		if mean > 0 {
			st.PhasePct[name] = float64(avg) / float64(time.Microsecond) / mean * 100
		}
	}
	return st
}

// LogStats logs the aggregate, skipping phases under 0.1%.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_step_us", s.StepAvg.Microseconds(),
		"max_step_us", s.StepMax.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
		"substeps", s.Substeps,
	}
	for _, phase := range solver.Phases {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Duration("avg_step", s.StepAvg),
		slog.Duration("min_step", s.StepMin),
		slog.Duration("max_step", s.StepMax),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
		slog.Float64("substeps", s.Substeps),
	}
	for _, phase := range solver.Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	RunID       string  `csv:"run_id"`
	WindowEnd   int64   `csv:"window_end"`
	Particles   int     `csv:"particles"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	MinTickUS   int64   `csv:"min_tick_us"`
	MaxTickUS   int64   `csv:"max_tick_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	Substeps    float64 `csv:"substeps"`
	ForcesPct   float64 `csv:"forces_pct"`
	PredictPct  float64 `csv:"predict_pct"`
	SolvePct    float64 `csv:"solve_pct"`
	VelocityPct float64 `csv:"velocity_pct"`
	CohesionPct float64 `csv:"cohesion_pct"`
	CommitPct   float64 `csv:"commit_pct"`
}

// ToCSV flattens the aggregate for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int64, particles int) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		Particles:   particles,
		AvgTickUS:   s.StepAvg.Microseconds(),
		MinTickUS:   s.StepMin.Microseconds(),
		MaxTickUS:   s.StepMax.Microseconds(),
		TicksPerSec: s.StepsPerSecond,
		Substeps:    s.Substeps,
		ForcesPct:   s.PhasePct[solver.PhaseForces],
		PredictPct:  s.PhasePct[solver.PhasePredict],
		SolvePct:    s.PhasePct[solver.PhaseSolve],
		VelocityPct: s.PhasePct[solver.PhaseVelocity],
		CohesionPct: s.PhasePct[solver.PhaseCohesion],
		CommitPct:   s.PhasePct[solver.PhaseCommit],
	}
}
