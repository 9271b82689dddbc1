package main

import (
	"fmt"
	"log/slog"
	"time"

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

// benchBounds is the container every cloud falls into.
var benchBounds = geom.NewAABB(-1, 0, -1, 1, 2, 1)

type benchOptions struct {
	Warmup   int
	Steps    int
	Settle   int
	Realtime int // ticks per second, 0 = step back to back
	Radius   float32
	Material particles.Material
	Seed     uint64
	Snapshot bool
	LogStats bool

	Broadphase config.BroadphaseConfig
}

// benchResult summarizes the timed steps of one size.
type benchResult struct {
	Particles  int
	Steps      int
	StepMean   float64 // microseconds
	StepP50    float64
	StepMax    float64
	Candidates int
	Overlaps   int
	RigidHits  int
	Dropped    int64 // realtime ticks skipped while a step was running

	SettleSteps int
	Settled     bool
}

// LogValue implements slog.LogValuer for structured logging.
func (r benchResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("particles", r.Particles),
		slog.Int("steps", r.Steps),
		slog.Float64("step_mean_us", r.StepMean),
		slog.Float64("step_p50_us", r.StepP50),
		slog.Float64("step_max_us", r.StepMax),
		slog.Int("candidates", r.Candidates),
		slog.Int("overlaps", r.Overlaps),
		slog.Int("rigid_hits", r.RigidHits),
		slog.Int64("dropped_ticks", r.Dropped),
		slog.Int("settle_steps", r.SettleSteps),
		slog.Bool("settled", r.Settled),
	)
}

// bench holds the per-size simulation and its telemetry.
type bench struct {
	n         int
	p         *particles.Set
	solver    *solver.Solver
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	detector  *telemetry.BookmarkDetector
	out       *telemetry.OutputManager
	logStats  bool
	lastStep  int64
}

func newBench(cfg *config.Config, n int, opts benchOptions, out *telemetry.OutputManager) (*bench, error) {
	p := scenario.Cloud(n, benchBounds, opts.Radius, scenario.NewRand(opts.Seed))
	p.ApplyMaterialAll(opts.Material)

	bpCfg := opts.Broadphase
	bpCfg.Bounds = config.BoundsFromAABB(benchBounds)
	grid, err := broadphase.New(bpCfg)
	if err != nil {
		return nil, fmt.Errorf("broadphase: %w", err)
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	s := solver.New(p, nil,
		solver.NewContactSolver(grid, float32(cfg.Solver.ContactStiffness)),
		solver.NewRigidContactSolver(collide.NewBox(benchBounds)),
		cfg.Solver,
		solver.WithObserver(perf),
	)

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindow, dt)
	collector.SetRunID(out.RunID())

	return &bench{
		n:         n,
		p:         p,
		solver:    s,
		perf:      perf,
		collector: collector,
		detector:  telemetry.NewBookmarkDetector(10),
		out:       out,
		logStats:  opts.LogStats,
	}, nil
}

// record feeds one step into the window collector and flushes full windows
// to the log and the output files.
func (b *bench) record(st solver.StepStats) error {
	b.lastStep = st.Step
	b.collector.Record(st)
	if !b.collector.ShouldFlush() {
		return nil
	}

	w := b.collector.Flush(b.p)
	if b.logStats {
		w.LogStats()
	}
	if err := b.out.WriteWindow(w); err != nil {
		return err
	}
	if err := b.out.WritePerf(b.perf.Stats(), w.WindowEndStep, b.n); err != nil {
		return err
	}
	for _, bm := range b.detector.Check(w) {
		bm.LogBookmark()
		if err := b.out.WriteBookmark(bm); err != nil {
			return err
		}
	}
	return nil
}

func runBench(cfg *config.Config, n int, opts benchOptions, out *telemetry.OutputManager) (benchResult, error) {
	b, err := newBench(cfg, n, opts, out)
	if err != nil {
		return benchResult{}, err
	}

	for i := 0; i < opts.Warmup; i++ {
		if err := b.record(b.solver.Step(dt)); err != nil {
			return benchResult{}, err
		}
	}

	res := benchResult{Particles: n, Steps: opts.Steps}
	var durations []float64
	timed := func(st solver.StepStats) error {
		durations = append(durations, float64(st.DurationUS))
		res.Candidates += st.Candidates
		res.Overlaps += st.Overlaps
		res.RigidHits += st.RigidHits
		return b.record(st)
	}

	if opts.Realtime > 0 {
		res.Dropped, err = b.realtime(opts.Steps, opts.Realtime, timed)
	} else {
		for i := 0; i < opts.Steps && err == nil; i++ {
			err = timed(b.solver.Step(dt))
		}
	}
	if err != nil {
		return res, err
	}

	d := telemetry.ComputeDistribution(durations)
	res.StepMean, res.StepP50, res.StepMax = d.Mean, d.P50, d.Max

	for i := 0; i < opts.Settle && !b.detector.Settled(); i++ {
		if err := b.record(b.solver.Step(dt)); err != nil {
			return res, err
		}
		res.SettleSteps++
	}
	res.Settled = b.detector.Settled()

	if opts.Snapshot {
		snap := telemetry.NewSnapshot(b.p, b.lastStep)
		snap.Seed = opts.Seed
		path, err := out.WriteSnapshot(snap)
		if err != nil {
			return res, err
		}
		if path != "" {
			slog.Info("snapshot saved", "particles", n, "path", path)
		}
	}
	return res, nil
}

// realtime drives steps from a ticker through a Runner until steps have
// completed. Ticks that arrive while a step is still running are dropped.
// done is unbuffered so the runner stays busy until fn has the result, which
// keeps the next step from racing the window flush.
func (b *bench) realtime(steps, hz int, fn func(solver.StepStats) error) (int64, error) {
	done := make(chan solver.StepStats)
	r := solver.NewRunner(b.solver, dt, func(st solver.StepStats) { done <- st })

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for completed := 0; completed < steps; {
		select {
		case <-ticker.C:
			r.Tick()
		case st := <-done:
			completed++
			if err := fn(st); err != nil {
				r.Wait()
				return r.Dropped(), err
			}
		}
	}
	r.Wait()
	return r.Dropped(), nil
}
