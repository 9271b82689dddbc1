package solver

import (
	"log/slog"
	"time"
)

// Phase names reported to an Observer. Phases repeat once per substep.
const (
	PhaseForces   = "forces"
	PhasePredict  = "predict"
	PhaseSolve    = "solve"
	PhaseVelocity = "velocity"
	PhaseCohesion = "cohesion"
	PhaseCommit   = "commit"
)

// Phases lists every phase in execution order.
var Phases = []string{PhaseForces, PhasePredict, PhaseSolve, PhaseVelocity, PhaseCohesion, PhaseCommit}

// Observer receives timing hooks around each step. telemetry.PerfCollector
// implements it.
type Observer interface {
	StartTick()
	StartPhase(phase string)
	EndTick()
}

// StepStats summarizes one Step, summed over substeps and iterations.
type StepStats struct {
	Step              int64         `csv:"step"`
	Substeps          int           `csv:"substeps"`
	Particles         int           `csv:"particles"`
	Candidates        int           `csv:"candidates"`
	Overlaps          int           `csv:"overlaps"`
	RigidHits         int           `csv:"rigid_hits"`
	BondsCreated      int           `csv:"bonds_created"`
	BondsBroken       int           `csv:"bonds_broken"`
	Bonds             int           `csv:"bonds"`
	ConstraintsBroken int           `csv:"constraints_broken"`
	Constraints       int           `csv:"constraints"`
	Duration          time.Duration `csv:"-"`
	DurationUS        int64         `csv:"duration_us"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("step", s.Step),
		slog.Int("particles", s.Particles),
		slog.Int("candidates", s.Candidates),
		slog.Int("overlaps", s.Overlaps),
		slog.Int("rigid_hits", s.RigidHits),
		slog.Int("bonds", s.Bonds),
		slog.Int("bonds_created", s.BondsCreated),
		slog.Int("bonds_broken", s.BondsBroken),
		slog.Int("constraints", s.Constraints),
		slog.Int("constraints_broken", s.ConstraintsBroken),
		slog.Int64("duration_us", s.DurationUS),
	)
}

type nopObserver struct{}

func (nopObserver) StartTick()        {}
func (nopObserver) StartPhase(string) {}
func (nopObserver) EndTick()          {}
