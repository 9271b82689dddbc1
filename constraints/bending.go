package constraints

import (
	"math"

	"github.com/pthm-cable/grain/internal/assert"
	"github.com/pthm-cable/grain/particles"
)

// Bending pulls the middle particle I1 toward the midpoint of its
// neighbors I0 and I2, straightening the chain.
type Bending struct {
	I0, I1, I2 int
	Stiffness  float32

	// BreakThreshold is the correction length beyond which the constraint
	// breaks. Zero means unbreakable.
	BreakThreshold float32

	// Link is broken together with this constraint.
	Link Handle
}

// LinkedHandle implements Linker.
func (b *Bending) LinkedHandle() Handle {
	return b.Link
}

// Project moves the middle particle by the full correction and each
// neighbor by half of it in the opposite direction.
func (b *Bending) Project(p *particles.Set, dt float32) bool {
	n := p.Len()
	assert.Index(b.I0, n, "bending")
	assert.Index(b.I1, n, "bending")
	assert.Index(b.I2, n, "bending")

	dx := p.TX[b.I1] - (p.TX[b.I0]+p.TX[b.I2])*0.5
	dy := p.TY[b.I1] - (p.TY[b.I0]+p.TY[b.I2])*0.5
	dz := p.TZ[b.I1] - (p.TZ[b.I0]+p.TZ[b.I2])*0.5

	w0, w1, w2 := p.InvMass[b.I0], p.InvMass[b.I1], p.InvMass[b.I2]
	wSum := w0*0.25 + w1 + w2*0.25
	if wSum == 0 {
		return false
	}

	corr := clamp(b.Stiffness/wSum*dt, -1, 1)
	if b.BreakThreshold > 0 {
		moved := float32(math.Sqrt(float64(dx*dx+dy*dy+dz*dz))) * float32(math.Abs(float64(corr)))
		if moved > b.BreakThreshold {
			return true
		}
	}

	p.AddPredicted(b.I1, dx, dy, dz, -corr*w1)
	half := corr * 0.5
	p.AddPredicted(b.I0, dx, dy, dz, half*w0)
	p.AddPredicted(b.I2, dx, dy, dz, half*w2)
	return false
}
