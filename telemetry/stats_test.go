package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/grain/particles"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeDistribution(t *testing.T) {
	values := []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1}
	d := ComputeDistribution(values)

	if math.Abs(d.Mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", d.Mean)
	}
	// Sample standard deviation of 0.1..1.0
	if math.Abs(d.Std-0.30277) > 0.001 {
		t.Errorf("std = %v, want ~0.3028", d.Std)
	}
	if math.Abs(d.P10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", d.P10)
	}
	if math.Abs(d.P50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", d.P50)
	}
	if math.Abs(d.P90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", d.P90)
	}
	if d.Max != 1.0 {
		t.Errorf("max = %v, want 1", d.Max)
	}
}

func TestComputeDistributionSmall(t *testing.T) {
	if d := ComputeDistribution(nil); d != (Distribution{}) {
		t.Errorf("empty = %+v, want zero", d)
	}
	d := ComputeDistribution([]float64{2})
	if d.Mean != 2 || d.Std != 0 || d.P50 != 2 || d.Max != 2 {
		t.Errorf("single = %+v", d)
	}
}

func TestSampleSet(t *testing.T) {
	p := particles.New(3)
	p.SetPosition(0, 0, 1, 0)
	p.SetPosition(1, 0, 3, 0)
	p.SetPosition(2, 0, float32(math.NaN()), 0)
	p.SetVelocity(0, 3, 4, 0)
	p.InvMass[0] = 0.5
	p.SetVelocity(1, 1, 0, 0) // static, no kinetic energy

	s := sampleSet(p)
	if s.nonFinite != 1 {
		t.Errorf("non-finite = %d, want 1", s.nonFinite)
	}
	if len(s.heights) != 2 || s.heights[0] != 1 || s.heights[1] != 3 {
		t.Errorf("heights = %v", s.heights)
	}
	if len(s.speeds) != 2 || s.speeds[0] != 5 || s.speeds[1] != 1 {
		t.Errorf("speeds = %v", s.speeds)
	}
	// 0.5 * 25 / 0.5
	if s.kinetic != 25 {
		t.Errorf("kinetic = %v, want 25", s.kinetic)
	}
}
