package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/grain/broadphase"
	"github.com/pthm-cable/grain/collide"
	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/geom"
	"github.com/pthm-cable/grain/particles"
	"github.com/pthm-cable/grain/scenario"
	"github.com/pthm-cable/grain/solver"
	"github.com/pthm-cable/grain/telemetry"
)

const dt = 1.0 / 60

// pileBounds is the box the evaluated cloud settles in.
var pileBounds = geom.NewAABB(-0.5, 0, -0.5, 0.5, 1, 0.5)

// Fitness weights. Settling time dominates; overlap and iteration cost
// separate configs that settle equally fast.
const (
	weightOverlap = 0.5
	weightCost    = 0.1
	blowUpFitness = 10.0 // any non-finite particle state

	warmupWindows = 2 // the cloud is still falling
	statsWindow   = 30
)

// Scene describes the evaluated scenario.
type Scene struct {
	Particles int
	Radius    float32
	Material  particles.Material
}

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxSteps   int
	seeds      []uint64
	baseConfig *config.Config
	scene      Scene

	// Best run tracking
	mu           sync.Mutex
	bestFitness  float64
	bestSnapshot *telemetry.Snapshot
	lastSettle   float64 // mean settle fraction from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxSteps int, seeds []uint64, baseCfg *config.Config, scene Scene) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxSteps:    maxSteps,
		seeds:       seeds,
		baseConfig:  baseCfg,
		scene:       scene,
		bestFitness: math.Inf(1),
	}
}

// BestSnapshot returns the final state of the best evaluation.
func (fe *FitnessEvaluator) BestSnapshot() *telemetry.Snapshot {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestSnapshot
}

// LastSettle returns the settle fraction from the most recent evaluation.
func (fe *FitnessEvaluator) LastSettle() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSettle
}

// runResult holds the results from a single simulation run.
type runResult struct {
	settleStep  int64                   // first step of a settled window, or maxSteps
	iterations  int                     // solver iterations used
	windowStats []telemetry.WindowStats // one per stats window
	snapshot    *telemetry.Snapshot
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness  float64
	settle   float64
	snapshot *telemetry.Snapshot
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness:  fe.computeFitness(result),
				settle:   float64(result.settleStep) / float64(fe.maxSteps),
				snapshot: result.snapshot,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalSettle float64
	bestSeedFitness := math.Inf(1)
	var bestSeedSnapshot *telemetry.Snapshot

	for _, r := range results {
		totalFitness += r.fitness
		totalSettle += r.settle
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedSnapshot = r.snapshot
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	// Update best tracking
	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestSnapshot = bestSeedSnapshot
	}
	fe.lastSettle = totalSettle / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation drops a cloud into the pile box and steps it until it
// settles or maxSteps is reached.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	p := scenario.Cloud(fe.scene.Particles, pileBounds, fe.scene.Radius, scenario.NewRand(seed))
	p.ApplyMaterialAll(fe.scene.Material)

	bpCfg := cfg.Broadphase
	bpCfg.CellSize = 2 * float64(fe.scene.Radius)
	grid, err := broadphase.New(bpCfg)
	if err != nil {
		// The base config was validated; only the kind can be wrong here.
		panic(err)
	}

	s := solver.New(p, nil,
		solver.NewContactSolver(grid, float32(cfg.Solver.ContactStiffness)),
		solver.NewRigidContactSolver(collide.NewBox(pileBounds)),
		cfg.Solver,
	)
	collector := telemetry.NewCollector(statsWindow, dt)
	detector := telemetry.NewBookmarkDetector(10)

	result := &runResult{settleStep: int64(fe.maxSteps), iterations: cfg.Solver.Iterations}
	var last int64
	for range fe.maxSteps {
		st := s.Step(dt)
		last = st.Step
		collector.Record(st)
		if !collector.ShouldFlush() {
			continue
		}

		w := collector.Flush(p)
		result.windowStats = append(result.windowStats, w)
		detector.Check(w)
		if w.NonFinite > 0 {
			break
		}
		if detector.Settled() {
			result.settleStep = w.WindowEndStep
			break
		}
	}

	result.snapshot = telemetry.NewSnapshot(p, last)
	result.snapshot.Seed = seed
	return result
}

// copyConfig creates a copy of the base config that a run may modify.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: settle + 0.5 × overlap + 0.1 × cost, where settle is the
// fraction of maxSteps needed to come to rest, overlap the mean overlap
// rate after warmup and cost the iteration count relative to its maximum.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	for _, w := range r.windowStats {
		if w.NonFinite > 0 {
			return blowUpFitness
		}
	}

	settle := float64(r.settleStep) / float64(fe.maxSteps)
	cost := float64(r.iterations) / fe.params.Specs[0].Max
	return settle + weightOverlap*meanOverlap(r.windowStats) + weightCost*cost
}

// meanOverlap averages the overlap rate over windows past warmup.
func meanOverlap(windows []telemetry.WindowStats) float64 {
	if len(windows) <= warmupWindows {
		return 1
	}
	var sum float64
	for _, w := range windows[warmupWindows:] {
		sum += w.OverlapRate
	}
	return sum / float64(len(windows)-warmupWindows)
}
