package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/grain/config"
)

func TestParamVectorNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()

	norm := pv.Normalize(def)
	for i, v := range norm {
		if v < 0 || v > 1 {
			t.Errorf("%s: normalized default %v outside [0, 1]", pv.Specs[i].Name, v)
		}
	}
	back := pv.Denormalize(norm)
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-12 {
			t.Errorf("%s: round trip %v, want %v", pv.Specs[i].Name, back[i], def[i])
		}
	}
}

func TestParamVectorDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Default())
	want := pv.DefaultVector()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("%s: config default %v, spec default %v", pv.Specs[i].Name, got[i], want[i])
		}
	}
}

func TestApplyToConfig(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	pv.ApplyToConfig(cfg, []float64{6.6, 2.0, 0.5, 1.0, 0.25})

	if cfg.Solver.Iterations != 7 {
		t.Errorf("iterations = %d, want 7", cfg.Solver.Iterations)
	}
	if cfg.Solver.ContactStiffness != 1.0 {
		t.Errorf("contact_stiffness = %v, want clamped to 1", cfg.Solver.ContactStiffness)
	}
	if cfg.Solver.Damping != 0.95 {
		t.Errorf("damping = %v, want clamped to 0.95", cfg.Solver.Damping)
	}
	if cfg.Solver.CohesionBreakVelocity != 1.0 || cfg.Solver.CohesionShearLimit != 0.25 {
		t.Errorf("cohesion limits = %v/%v, want 1/0.25", cfg.Solver.CohesionBreakVelocity, cfg.Solver.CohesionShearLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("applied config does not validate: %v", err)
	}
}
