package constraints

import (
	"math"

	"github.com/pthm-cable/grain/internal/assert"
	"github.com/pthm-cable/grain/particles"
)

// maxSpringCorrection bounds the fraction of the distance error a single
// projection may remove, which keeps stiff chains from overshooting.
const maxSpringCorrection = 0.25

// Spring keeps two particles at RestLength.
type Spring struct {
	I, J       int
	RestLength float32
	Stiffness  float32 // correction rate, scaled by dt

	// BreakThreshold is the distance deviation beyond which the spring
	// breaks. Zero means unbreakable.
	BreakThreshold float32
}

// NewSpring creates an unbreakable spring with the current distance between
// i and j as rest length.
func NewSpring(p *particles.Set, i, j int, stiffness float32) *Spring {
	dx := p.PX[j] - p.PX[i]
	dy := p.PY[j] - p.PY[i]
	dz := p.PZ[j] - p.PZ[i]
	return &Spring{
		I: i, J: j,
		RestLength: float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz))),
		Stiffness:  stiffness,
	}
}

// Project moves both ends along their axis, weighted by inverse mass.
func (s *Spring) Project(p *particles.Set, dt float32) bool {
	assert.Index(s.I, p.Len(), "spring")
	assert.Index(s.J, p.Len(), "spring")
	i, j := s.I, s.J

	dx := p.TX[j] - p.TX[i]
	dy := p.TY[j] - p.TY[i]
	dz := p.TZ[j] - p.TZ[i]
	distSq := dx*dx + dy*dy + dz*dz
	if distSq < distEpsilonSq {
		return false
	}
	dist := float32(math.Sqrt(float64(distSq)))
	stretch := dist - s.RestLength
	if s.BreakThreshold > 0 && float32(math.Abs(float64(stretch))) > s.BreakThreshold {
		return true
	}

	wi, wj := p.InvMass[i], p.InvMass[j]
	wSum := wi + wj
	if wSum == 0 {
		return false
	}

	corr := clamp(s.Stiffness*dt*stretch/dist, -maxSpringCorrection, maxSpringCorrection)
	p.AddPredicted(i, dx, dy, dz, corr*wi/wSum)
	p.AddPredicted(j, dx, dy, dz, -corr*wj/wSum)
	return false
}
