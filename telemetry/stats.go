package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/grain/particles"
)

// WindowStats holds aggregated statistics for a window of steps.
type WindowStats struct {
	RunID           string  `csv:"run_id"`
	WindowStartStep int64   `csv:"-"`
	WindowEndStep   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Counts at window end
	Particles   int `csv:"particles"`
	Bonds       int `csv:"bonds"`
	Constraints int `csv:"constraints"`

	// Summed over the window
	Candidates        int `csv:"candidates"`
	Overlaps          int `csv:"overlaps"`
	RigidHits         int `csv:"rigid_hits"`
	BondsCreated      int `csv:"bonds_created"`
	BondsBroken       int `csv:"bonds_broken"`
	ConstraintsBroken int `csv:"constraints_broken"`

	// Candidate pairs that actually overlapped
	OverlapRate float64 `csv:"overlap_rate"`

	// Height distribution (sampled at window end)
	HeightMean float64 `csv:"height_mean"`
	HeightStd  float64 `csv:"height_std"`
	HeightP10  float64 `csv:"height_p10"`
	HeightP50  float64 `csv:"height_p50"`
	HeightP90  float64 `csv:"height_p90"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP90  float64 `csv:"speed_p90"`
	SpeedMax  float64 `csv:"speed_max"`

	KineticEnergy float64 `csv:"kinetic_energy"` // static particles excluded
	NonFinite     int     `csv:"non_finite"`     // particles with NaN or Inf state
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// ComputeDistribution calculates mean, sample standard deviation, max and
// percentiles. values is sorted in place.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	var d Distribution
	if n == 1 {
		d.Mean = values[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	}

	sort.Float64s(values)
	d.P10 = Percentile(values, 0.10)
	d.P50 = Percentile(values, 0.50)
	d.P90 = Percentile(values, 0.90)
	d.Max = floats.Max(values)
	return d
}

// sample holds the per-particle columns a window reads from a set.
type sample struct {
	heights, speeds []float64
	kinetic         float64
	nonFinite       int
}

// sampleSet reads heights, speeds and kinetic energy from the live
// particles. Non-finite particles are counted and left out.
func sampleSet(p *particles.Set) sample {
	n := p.Len()
	s := sample{
		heights: make([]float64, 0, n),
		speeds:  make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		y := float64(p.PY[i])
		vx, vy, vz := float64(p.VX[i]), float64(p.VY[i]), float64(p.VZ[i])
		speedSq := vx*vx + vy*vy + vz*vz
		if !finite(y) || !finite(float64(p.PX[i])) || !finite(float64(p.PZ[i])) || !finite(speedSq) {
			s.nonFinite++
			continue
		}
		s.heights = append(s.heights, y)
		s.speeds = append(s.speeds, math.Sqrt(speedSq))
		if w := p.InvMass[i]; w > 0 {
			s.kinetic += 0.5 * speedSq / float64(w)
		}
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartStep),
		slog.Int64("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("bonds", s.Bonds),
		slog.Int("constraints", s.Constraints),
		slog.Int("candidates", s.Candidates),
		slog.Int("overlaps", s.Overlaps),
		slog.Int("rigid_hits", s.RigidHits),
		slog.Int("bonds_created", s.BondsCreated),
		slog.Int("bonds_broken", s.BondsBroken),
		slog.Int("constraints_broken", s.ConstraintsBroken),
		slog.Float64("overlap_rate", s.OverlapRate),
		slog.Float64("height_mean", s.HeightMean),
		slog.Float64("height_std", s.HeightStd),
		slog.Float64("height_p10", s.HeightP10),
		slog.Float64("height_p50", s.HeightP50),
		slog.Float64("height_p90", s.HeightP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Int("non_finite", s.NonFinite),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
