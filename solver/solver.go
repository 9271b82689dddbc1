// Package solver advances a particle set with position-based dynamics.
//
// Each Step splits dt into substeps. A substep applies gravity, predicts
// positions from velocities, then iterates constraint projection, particle
// contacts and rigid contacts in Gauss-Seidel order. Velocities are then
// derived from the corrected positions, filtered by friction and cohesion,
// damped, and the predicted positions become the committed ones.
package solver

import (
	"log/slog"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/constraints"
	"github.com/pthm-cable/grain/particles"
)

// Solver owns the step sequence for one particle set. Steps on one Solver
// must not overlap; independent Solvers may run concurrently.
type Solver struct {
	particles   *particles.Set
	constraints *constraints.Set
	contacts    *ContactSolver
	rigid       *RigidContactSolver

	cfg     config.SolverConfig
	gravity [3]float32
	damping float32

	logger   *slog.Logger
	observer Observer

	busy  atomic.Bool
	steps int64
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for break events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// WithObserver installs step timing hooks.
func WithObserver(o Observer) Option {
	return func(s *Solver) { s.observer = o }
}

// New creates a solver. cs, contacts and rigid may each be nil to skip that
// stage. cfg.RigidOverlap turns on the overlap pass of rigid.
func New(
	p *particles.Set,
	cs *constraints.Set,
	contacts *ContactSolver,
	rigid *RigidContactSolver,
	cfg config.SolverConfig,
	opts ...Option,
) *Solver {
	if cs == nil {
		cs = constraints.NewSet()
	}
	s := &Solver{
		particles:   p,
		constraints: cs,
		contacts:    contacts,
		rigid:       rigid,
		cfg:         cfg,
		damping:     float32(cfg.Damping),
		logger:      slog.Default(),
		observer:    nopObserver{},
	}
	for i, g := range cfg.Gravity {
		s.gravity[i] = float32(g)
	}
	if rigid != nil && cfg.RigidOverlap {
		rigid.Overlap = true
	}
	if s.cfg.Substeps < 1 {
		s.cfg.Substeps = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Particles returns the simulated set.
func (s *Solver) Particles() *particles.Set {
	return s.particles
}

// Constraints returns the constraint working set.
func (s *Solver) Constraints() *constraints.Set {
	return s.constraints
}

// SetParticles swaps in a resized or merged set between steps.
func (s *Solver) SetParticles(p *particles.Set) {
	if s.busy.Load() {
		panic("solver: SetParticles during Step")
	}
	s.particles = p
}

// Busy reports whether a Step is in progress.
func (s *Solver) Busy() bool {
	return s.busy.Load()
}

// Step advances the simulation by dt. A non-positive dt is a no-op.
func (s *Solver) Step(dt float32) StepStats {
	if !s.busy.CompareAndSwap(false, true) {
		panic("solver: concurrent Step")
	}
	defer s.busy.Store(false)

	start := time.Now()
	s.steps++
	stats := StepStats{Step: s.steps, Substeps: s.cfg.Substeps}
	if dt <= 0 {
		return stats
	}

	s.observer.StartTick()
	sub := dt / float32(s.cfg.Substeps)
	for k := 0; k < s.cfg.Substeps; k++ {
		s.substep(sub, &stats)
	}
	s.observer.EndTick()

	p := s.particles
	stats.Particles = p.Len()
	stats.Bonds = p.Bonds.Len()
	stats.Constraints = s.constraints.Len()
	stats.Duration = time.Since(start)
	stats.DurationUS = stats.Duration.Microseconds()

	if stats.ConstraintsBroken > 0 {
		s.logger.Debug("constraints broken", "step", s.steps, "count", stats.ConstraintsBroken, "remaining", stats.Constraints)
	}
	if stats.BondsBroken > 0 {
		s.logger.Debug("cohesion bonds broken", "step", s.steps, "count", stats.BondsBroken, "remaining", stats.Bonds)
	}
	return stats
}

func (s *Solver) substep(dt float32, stats *StepStats) {
	p := s.particles

	s.observer.StartPhase(PhaseForces)
	s.applyForces(dt)

	s.observer.StartPhase(PhasePredict)
	s.predict(dt)

	s.observer.StartPhase(PhaseSolve)
	var contacts ContactStats
	for it := 0; it < s.cfg.Iterations; it++ {
		stats.ConstraintsBroken += s.constraints.Solve(p, dt)
		if s.contacts != nil {
			contacts.add(s.contacts.Solve(p))
		}
		if s.rigid != nil {
			stats.RigidHits += s.rigid.Solve(p)
		}
	}
	stats.Candidates += contacts.Candidates
	stats.Overlaps += contacts.Overlaps
	stats.BondsCreated += contacts.BondsCreated

	s.observer.StartPhase(PhaseVelocity)
	s.deriveVelocities(dt)

	s.observer.StartPhase(PhaseCohesion)
	stats.BondsBroken += s.applyCohesion()

	s.observer.StartPhase(PhaseCommit)
	s.commit()
}

// applyForces integrates gravity. Static particles have their velocity
// zeroed so prediction leaves them in place.
func (s *Solver) applyForces(dt float32) {
	p := s.particles
	gx, gy, gz := s.gravity[0]*dt, s.gravity[1]*dt, s.gravity[2]*dt
	for i := 0; i < p.Len(); i++ {
		if p.InvMass[i] == 0 {
			p.VX[i], p.VY[i], p.VZ[i] = 0, 0, 0
			continue
		}
		p.VX[i] += gx
		p.VY[i] += gy
		p.VZ[i] += gz
	}
}

// predict saves the substep start and extrapolates T = P + V*dt.
func (s *Solver) predict(dt float32) {
	p := s.particles
	n := p.Len()
	axes := [3][4][]float32{
		{p.PX, p.PrevX, p.TX, p.VX},
		{p.PY, p.PrevY, p.TY, p.VY},
		{p.PZ, p.PrevZ, p.TZ, p.VZ},
	}
	for _, a := range axes {
		pos, prev, target, vel := vec(a[0], n), vec(a[1], n), vec(a[2], n), vec(a[3], n)
		blas32.Copy(pos, prev)
		blas32.Copy(pos, target)
		blas32.Axpy(dt, vel, target)
	}
}

// commit damps velocities, makes predicted positions current and clears
// the substep contact state.
func (s *Solver) commit() {
	p := s.particles
	n := p.Len()
	if s.damping != 1 {
		blas32.Scal(s.damping, vec(p.VX, n))
		blas32.Scal(s.damping, vec(p.VY, n))
		blas32.Scal(s.damping, vec(p.VZ, n))
	}
	blas32.Copy(vec(p.TX, n), vec(p.PX, n))
	blas32.Copy(vec(p.TY, n), vec(p.PY, n))
	blas32.Copy(vec(p.TZ, n), vec(p.PZ, n))
	p.ClearContacts()
}

func vec(data []float32, n int) blas32.Vector {
	return blas32.Vector{N: n, Inc: 1, Data: data[:n]}
}
