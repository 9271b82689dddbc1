package main

import (
	"math"

	"github.com/pthm-cable/grain/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Rounded to the nearest whole iteration when applied
			{Name: "iterations", Path: "solver.iterations", Min: 1, Max: 20, Default: 5},
			{Name: "contact_stiffness", Path: "solver.contact_stiffness", Min: 0.2, Max: 1.0, Default: 1.0},
			{Name: "damping", Path: "solver.damping", Min: 0.95, Max: 1.0, Default: 0.999},
			// Cohesion (only matters for materials with cohesion > 0)
			{Name: "cohesion_break_velocity", Path: "solver.cohesion_break_velocity", Min: 0.05, Max: 2.0, Default: 0.5},
			{Name: "cohesion_shear_limit", Path: "solver.cohesion_shear_limit", Min: 0.05, Max: 2.0, Default: 0.5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Solver.Iterations = int(math.Round(clamped[0]))
	cfg.Solver.ContactStiffness = clamped[1]
	cfg.Solver.Damping = clamped[2]
	cfg.Solver.CohesionBreakVelocity = clamped[3]
	cfg.Solver.CohesionShearLimit = clamped[4]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		float64(cfg.Solver.Iterations),
		cfg.Solver.ContactStiffness,
		cfg.Solver.Damping,
		cfg.Solver.CohesionBreakVelocity,
		cfg.Solver.CohesionShearLimit,
	}
}
