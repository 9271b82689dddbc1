package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pthm-cable/grain/geom"
	"github.com/pthm-cable/grain/particles"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grain.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Solver.Substeps != 1 || cfg.Solver.Iterations != 5 {
		t.Errorf("substeps/iterations = %d/%d, want 1/5", cfg.Solver.Substeps, cfg.Solver.Iterations)
	}
	if g := cfg.Solver.Gravity; g[0] != 0 || math.Abs(g[1]+9.81) > 1e-6 || g[2] != 0 {
		t.Errorf("gravity = %v, want (0, -9.81, 0)", g)
	}
	if math.Abs(cfg.Solver.Damping-0.999) > 1e-12 {
		t.Errorf("damping = %v, want 0.999", cfg.Solver.Damping)
	}
	if !cfg.Solver.EnergyClamp {
		t.Error("energy clamp should default on")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}

	dough, ok := cfg.Material("dough")
	if !ok {
		t.Fatal("dough preset missing")
	}
	if dough.StaticFriction != 0.05 || dough.DynamicFriction != 1 || dough.Cohesion != 0.8 {
		t.Errorf("dough = %+v", dough)
	}
	if _, ok := cfg.Material("granite"); ok {
		t.Error("unknown material should not be found")
	}
}

func TestDefaultMaterialsMatchPresets(t *testing.T) {
	if got := Default().Materials; !slices.Equal(got, particles.Presets()) {
		t.Errorf("default materials = %+v, want the built-in presets", got)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeFile(t, `
solver:
  iterations: 10
broadphase:
  kind: sparse
  cell_size: 0.07
materials:
  - name: gravel
    static_friction: 0.9
    dynamic_friction: 0.7
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Solver.Iterations != 10 {
		t.Errorf("iterations = %d, want 10", cfg.Solver.Iterations)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Solver.Substeps != 1 {
		t.Errorf("substeps = %d, want default 1", cfg.Solver.Substeps)
	}
	if cfg.Broadphase.Kind != "sparse" || cfg.Broadphase.CellSize != 0.07 {
		t.Errorf("broadphase = %+v", cfg.Broadphase)
	}
	if len(cfg.Materials) != 1 {
		t.Fatalf("materials = %d, want the file's list only", len(cfg.Materials))
	}
	if _, ok := cfg.Material("gravel"); !ok {
		t.Error("gravel not indexed")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("GRAIN_SOLVER_SUBSTEPS", "4")
	t.Setenv("GRAIN_SOLVER_ENERGY_CLAMP", "false")
	t.Setenv("GRAIN_BROADPHASE_KIND", "dense")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Solver.Substeps != 4 {
		t.Errorf("substeps = %d, want 4", cfg.Solver.Substeps)
	}
	if cfg.Solver.EnergyClamp {
		t.Error("energy clamp should be off")
	}
	if cfg.Broadphase.Kind != "dense" {
		t.Errorf("kind = %q, want dense", cfg.Broadphase.Kind)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"zero substeps", "solver:\n  substeps: 0\n", true},
		{"damping above one", "solver:\n  damping: 1.5\n", true},
		{"unknown kind", "broadphase:\n  kind: octree\n", true},
		{"negative cell", "broadphase:\n  cell_size: -1\n", true},
		{"inverted dense bounds", "broadphase:\n  kind: dense\n  bounds:\n    min: [1, 1, 1]\n    max: [0, 0, 0]\n", true},
		{"duplicate material", "materials:\n  - name: a\n  - name: a\n", true},
		{"malformed yaml", "solver: [\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, ErrInvalid); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalid) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Solver.Iterations = 7
	cfg.Broadphase.Kind = "dense"

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Solver.Iterations != 7 || back.Broadphase.Kind != "dense" {
		t.Errorf("round trip lost values: %+v %+v", back.Solver, back.Broadphase)
	}
	if len(back.Materials) != len(cfg.Materials) {
		t.Errorf("materials = %d, want %d", len(back.Materials), len(cfg.Materials))
	}
}

func TestBoundsFromAABB(t *testing.T) {
	box := geom.NewAABB(-1, 0, -0.5, 1, 2, 0.5)
	b := BoundsFromAABB(box)
	if b.Min != [3]float64{-1, 0, -0.5} || b.Max != [3]float64{1, 2, 0.5} {
		t.Errorf("bounds = %+v", b)
	}
	if got := b.AABB(); got != box {
		t.Errorf("AABB() = %v, want %v", got, box)
	}
}

func TestGlobal(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Cfg().Solver.Iterations != 5 {
		t.Errorf("global iterations = %d", Cfg().Solver.Iterations)
	}
}
