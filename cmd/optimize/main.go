// Package main provides CMA-ES optimization for finding solver parameters
// that settle a granular pile quickly without interpenetration.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxSteps := flag.Int("max-steps", 1200, "Maximum steps per run (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	count := flag.Int("particles", 500, "Particles per run")
	radius := flag.Float64("radius", 0.02, "Particle radius")
	material := flag.String("material", "wet_sand", "Material preset for the pile")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	fatal := func(msg string, args ...any) {
		slog.Error(msg, args...)
		os.Exit(1)
	}

	if *outputDir == "" {
		fatal("-output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatal("failed to create output directory", "error", err)
	}
	if err := config.Init(*configPath); err != nil {
		fatal("failed to load config", "error", err)
	}
	baseCfg := config.Cfg()

	mat, ok := baseCfg.Material(*material)
	if !ok {
		fatal("unknown material", "material", *material)
	}
	scene := Scene{Particles: *count, Radius: float32(*radius), Material: mat}

	params := NewParamVector()
	evalSeeds := make([]uint64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *maxSteps, evalSeeds, baseCfg, scene)

	logFile, err := os.Create(filepath.Join(*outputDir, "optimize_log.csv"))
	if err != nil {
		fatal("failed to create log file", "error", err)
	}
	defer logFile.Close()
	evals, err := newEvalLog(logFile, params.Specs)
	if err != nil {
		fatal("failed to write log header", "error", err)
	}

	// CMA-ES searches the unit cube; the evaluator sees clamped raw values.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			if err := evals.record(fitness, raw); err != nil {
				slog.Error("failed to log evaluation", "error", err)
			}
			slog.Info("eval",
				"n", evals.count,
				"max", *maxEvals,
				"fitness", fitness,
				"settle_s", evaluator.LastSettle()*float64(*maxSteps)*dt,
				"best", evals.best,
			)
			return fitness
		},
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + 3*params.Dim()/2
	}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize}
	settings := &optimize.Settings{FuncEvaluations: *maxEvals}
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	slog.Info("starting CMA-ES",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"max_steps", *maxSteps,
		"particles", *count,
	)
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	// The best evaluation may come from any generation, not only the last.
	bestParams := evals.bestX
	if bestParams == nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	best := make([]any, 0, 2*len(params.Specs)+4)
	best = append(best, "evals", evals.count, "fitness", evals.best, "at", evals.bestAt)
	for i, spec := range params.Specs {
		best = append(best, spec.Name, bestParams[i])
	}
	slog.Info("optimization complete", best...)

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to reload config", "error", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
	} else {
		slog.Info("best config saved", "path", configOutPath)
	}

	if snap := evaluator.BestSnapshot(); snap != nil {
		path, err := telemetry.SaveSnapshot(snap, filepath.Join(*outputDir, "snapshots"))
		if err != nil {
			slog.Error("failed to write snapshot", "error", err)
		} else {
			slog.Info("best run snapshot saved", "path", path)
		}
	}
}
