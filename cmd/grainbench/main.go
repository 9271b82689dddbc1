// Command grainbench steps a falling particle cloud inside a box for a range
// of particle counts and reports the solver step time for each.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	sizes := flag.String("sizes", "1250,2500,5000,10000,20000,40000", "Comma-separated particle counts")
	warmup := flag.Int("warmup", 1, "Untimed steps before measuring")
	steps := flag.Int("steps", 10, "Timed steps per size")
	settle := flag.Int("settle", 0, "Keep stepping up to N more steps until the cloud settles (0 = off)")
	realtime := flag.Int("realtime", 0, "Drive timed steps from a ticker at N Hz through the async runner (0 = off)")
	radius := flag.Float64("radius", 0.01, "Particle radius")
	cellSize := flag.Float64("cell", 0, "Broadphase cell size (0 = twice the radius)")
	kind := flag.String("broadphase", "", "Broadphase kind override: hash, dense or sparse")
	material := flag.String("material", "dry_sand", "Material preset for the cloud")
	seed := flag.Uint64("seed", 51465, "RNG seed")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs (empty = use config)")
	snapshot := flag.Bool("snapshot", false, "Write a snapshot of each size's final state")
	logStats := flag.Bool("log-stats", false, "Log window stats via slog")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	counts, err := parseSizes(*sizes)
	if err != nil {
		slog.Error("invalid -sizes", "error", err)
		os.Exit(1)
	}
	mat, ok := cfg.Material(*material)
	if !ok {
		slog.Error("unknown material", "material", *material)
		os.Exit(1)
	}

	opts := benchOptions{
		Warmup:   *warmup,
		Steps:    *steps,
		Settle:   *settle,
		Realtime: *realtime,
		Radius:   float32(*radius),
		Material: mat,
		Seed:     *seed,
		Snapshot: *snapshot,
		LogStats: *logStats,
	}
	opts.Broadphase = cfg.Broadphase
	opts.Broadphase.CellSize = *cellSize
	if opts.Broadphase.CellSize <= 0 {
		opts.Broadphase.CellSize = 2 * *radius
	}
	if *kind != "" {
		opts.Broadphase.Kind = *kind
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

	slog.Info("starting benchmark",
		"run_id", out.RunID(),
		"sizes", counts,
		"steps", *steps,
		"iterations", cfg.Solver.Iterations,
		"substeps", cfg.Solver.Substeps,
		"broadphase", opts.Broadphase.Kind,
		"cell_size", opts.Broadphase.CellSize,
	)

	for _, n := range counts {
		res, err := runBench(cfg, n, opts, out)
		if err != nil {
			slog.Error("benchmark failed", "particles", n, "error", err)
			os.Exit(1)
		}
		slog.Info("bench", "result", res)
	}
}

// parseSizes reads a comma-separated list of positive counts.
func parseSizes(s string) ([]int, error) {
	var counts []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("size %d must be positive", n)
		}
		counts = append(counts, n)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return counts, nil
}
