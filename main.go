// Command grain runs a granular scene headless, logging window stats and
// writing CSV telemetry and snapshots.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/grain/broadphase"
	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/constraints"
	"github.com/pthm-cable/grain/particles"
	"github.com/pthm-cable/grain/solver"
	"github.com/pthm-cable/grain/telemetry"
)

const dt = 1.0 / 60

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	sceneName := flag.String("scene", SceneCloud, "Scene to run: cloud, layers, noodle or obstacles")
	count := flag.Int("particles", 2000, "Particles in the scene")
	radius := flag.Float64("radius", 0.02, "Particle radius (cloud and layers)")
	material := flag.String("material", "dry_sand", "Material preset (cloud and noodle)")
	restore := flag.String("restore", "", "Start from a snapshot file instead of a scene")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and snapshots (empty = use config)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	maxSteps := flag.Int("max-steps", 0, "Stop after N steps (0 = run until settled)")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	var (
		p   *particles.Set
		cs  *constraints.Set
		err error
	)
	if *restore != "" {
		snap, lerr := telemetry.LoadSnapshot(*restore)
		if lerr != nil {
			slog.Error("failed to load snapshot", "path", *restore, "error", lerr)
			os.Exit(1)
		}
		p = snap.Restore()
		rngSeed = snap.Seed
		slog.Info("restored snapshot", "path", *restore, "step", snap.Step, "particles", p.Len(), "bonds", p.Bonds.Len())
	} else {
		mat, ok := cfg.Material(*material)
		if !ok {
			slog.Error("unknown material", "material", *material)
			os.Exit(1)
		}
		p, cs, err = buildScene(sceneOptions{
			Name:      *sceneName,
			Particles: *count,
			Radius:    float32(*radius),
			Material:  mat,
			Seed:      rngSeed,
		})
		if err != nil {
			slog.Error("failed to build scene", "error", err)
			os.Exit(1)
		}
	}

	grid, err := broadphase.New(sceneBroadphase(cfg.Broadphase, p))
	if err != nil {
		slog.Error("failed to create broadphase", "error", err)
		os.Exit(1)
	}

	dir := cfg.Telemetry.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	s := solver.New(p, cs,
		solver.NewContactSolver(grid, float32(cfg.Solver.ContactStiffness)),
		solver.NewRigidContactSolver(sceneWorld(*sceneName)),
		cfg.Solver,
		solver.WithObserver(perf),
		solver.WithLogger(logger),
	)

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindow, dt)
	collector.SetRunID(out.RunID())
	detector := telemetry.NewBookmarkDetector(10)

	slog.Info("starting headless simulation",
		"run_id", out.RunID(),
		"scene", *sceneName,
		"particles", p.Len(),
		"constraints", s.Constraints().Len(),
		"seed", rngSeed,
		"max_steps", *maxSteps,
	)

	for {
		st := s.Step(dt)
		collector.Record(st)

		if collector.ShouldFlush() {
			w := collector.Flush(p)
			if *logStats {
				w.LogStats()
				perf.Stats().LogStats()
			}
			if err := out.WriteWindow(w); err != nil {
				slog.Error("failed to write window", "error", err)
			}
			if err := out.WritePerf(perf.Stats(), w.WindowEndStep, p.Len()); err != nil {
				slog.Error("failed to write perf", "error", err)
			}

			for _, b := range detector.Check(w) {
				b.LogBookmark()
				if err := out.WriteBookmark(b); err != nil {
					slog.Error("failed to write bookmark", "error", err)
				}

				snap := telemetry.NewSnapshot(p, st.Step)
				snap.Seed = rngSeed
				snap.Bookmark = &b
				if path, err := out.WriteSnapshot(snap); err != nil {
					slog.Error("failed to write snapshot", "error", err)
				} else if path != "" {
					slog.Info("snapshot saved", "path", path)
				}
			}

			if w.NonFinite > 0 {
				slog.Error("simulation diverged", "step", st.Step, "non_finite", w.NonFinite)
				os.Exit(1)
			}
			if *maxSteps == 0 && detector.Settled() {
				slog.Info("settled", "step", st.Step)
				return
			}
		}

		if *maxSteps > 0 && int(st.Step) >= *maxSteps {
			slog.Info("max steps reached", "step", st.Step)
			return
		}
	}
}
