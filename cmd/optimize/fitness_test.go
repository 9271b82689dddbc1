package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/particles"
	"github.com/pthm-cable/grain/telemetry"
)

func TestComputeFitness(t *testing.T) {
	fe := NewFitnessEvaluator(NewParamVector(), 100, nil, config.Default(), Scene{})

	windows := []telemetry.WindowStats{
		{OverlapRate: 0.9},
		{OverlapRate: 0.9},
		{OverlapRate: 0.1},
		{OverlapRate: 0.3},
	}
	got := fe.computeFitness(&runResult{settleStep: 50, iterations: 5, windowStats: windows})
	want := 0.5 + weightOverlap*0.2 + weightCost*5.0/20
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("fitness = %v, want %v", got, want)
	}

	windows[3].NonFinite = 1
	if got := fe.computeFitness(&runResult{settleStep: 10, iterations: 1, windowStats: windows}); got != blowUpFitness {
		t.Errorf("non-finite run fitness = %v, want %v", got, blowUpFitness)
	}
}

func TestMeanOverlapNeedsWindowsPastWarmup(t *testing.T) {
	if got := meanOverlap(make([]telemetry.WindowStats, warmupWindows)); got != 1 {
		t.Errorf("meanOverlap(warmup only) = %v, want 1", got)
	}
}

func TestEvaluate(t *testing.T) {
	if testing.Short() {
		t.Skip("runs full simulations")
	}

	pv := NewParamVector()
	scene := Scene{Particles: 60, Radius: 0.02, Material: particles.DrySand}
	fe := NewFitnessEvaluator(pv, 120, []uint64{1, 2}, config.Default(), scene)

	fitness := fe.Evaluate(pv.DefaultVector())
	if math.IsNaN(fitness) || fitness <= 0 || fitness >= blowUpFitness {
		t.Fatalf("fitness = %v, want a finite run in (0, %v)", fitness, blowUpFitness)
	}
	if s := fe.LastSettle(); s <= 0 || s > 1 {
		t.Errorf("settle fraction = %v, want (0, 1]", s)
	}
	snap := fe.BestSnapshot()
	if snap == nil {
		t.Fatal("no best snapshot recorded")
	}
	if len(snap.Particles) != scene.Particles {
		t.Errorf("snapshot has %d particles, want %d", len(snap.Particles), scene.Particles)
	}
	if snap.Seed != 1 && snap.Seed != 2 {
		t.Errorf("snapshot seed = %d, want one of the evaluated seeds", snap.Seed)
	}
}
