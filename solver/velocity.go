package solver

import (
	"math"

	"github.com/pthm-cable/grain/particles"
)

// minShearSpeed is the tangential speed below which cohesion skips shear damping.
const minShearSpeed = 1e-5

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// deriveVelocities sets V = (T - Prev)/dt, applies Coulomb friction to
// particles in rigid contact and optionally clamps the result to the speed
// the particle had before correction.
func (s *Solver) deriveVelocities(dt float32) {
	p := s.particles
	invDt := 1 / dt
	for i := 0; i < p.Len(); i++ {
		vx := (p.TX[i] - p.PrevX[i]) * invDt
		vy := (p.TY[i] - p.PrevY[i]) * invDt
		vz := (p.TZ[i] - p.PrevZ[i]) * invDt
		ox, oy, oz := p.VX[i], p.VY[i], p.VZ[i]

		if p.InContact[i] {
			vx, vy, vz = friction(p, i, vx, vy, vz, ox, oy, oz)
		}

		if s.cfg.EnergyClamp {
			newSq := vx*vx + vy*vy + vz*vz
			oldSq := ox*ox + oy*oy + oz*oz
			if newSq > oldSq {
				scale := sqrt32(oldSq / newSq)
				vx, vy, vz = vx*scale, vy*scale, vz*scale
			}
		}

		p.VX[i], p.VY[i], p.VZ[i] = vx, vy, vz
	}
}

// friction removes the inward normal velocity, then either sticks the
// particle (tangential speed below the static limit) or scales the
// tangential velocity by the dynamic coefficient. The normal speed the
// contact absorbed this substep stands in for the normal force.
func friction(p *particles.Set, i int, vx, vy, vz, ox, oy, oz float32) (float32, float32, float32) {
	nx, ny, nz := p.ContactNX[i], p.ContactNY[i], p.ContactNZ[i]

	vn := vx*nx + vy*ny + vz*nz
	if vn < 0 {
		vx -= nx * vn
		vy -= ny * vn
		vz -= nz * vn
		vn = 0
	}
	absorbed := max(0, vn-(ox*nx+oy*ny+oz*nz))

	tx := vx - nx*vn
	ty := vy - ny*vn
	tz := vz - nz*vn
	tangential := sqrt32(tx*tx + ty*ty + tz*tz)

	if tangential < p.StaticFriction[i]*absorbed {
		return nx * vn, ny * vn, nz * vn
	}
	scale := max(0, 1-p.DynamicFriction[i])
	return nx*vn + tx*scale, ny*vn + ty*scale, nz*vn + tz*scale
}

// applyCohesion damps relative motion across every bond and removes the
// bonds whose separation or shear speed exceeds the configured limits.
func (s *Solver) applyCohesion() int {
	p := s.particles
	if p.Bonds.Len() == 0 {
		return 0
	}
	breakVelocity := float32(s.cfg.CohesionBreakVelocity)
	shearLimit := float32(s.cfg.CohesionShearLimit)
	n := p.Len()

	return p.Bonds.RemoveIf(func(b particles.Bond) bool {
		i, j := int(b.I), int(b.J)
		if j >= n {
			return true // particle was dropped
		}

		rx := p.VX[j] - p.VX[i]
		ry := p.VY[j] - p.VY[i]
		rz := p.VZ[j] - p.VZ[i]

		dx := p.TX[j] - p.TX[i]
		dy := p.TY[j] - p.TY[i]
		dz := p.TZ[j] - p.TZ[i]
		dist := sqrt32(dx*dx + dy*dy + dz*dz)
		if dist == 0 {
			return false
		}
		nx, ny, nz := dx/dist, dy/dist, dz/dist

		vn := rx*nx + ry*ny + rz*nz
		tx := rx - nx*vn
		ty := ry - ny*vn
		tz := rz - nz*vn
		shear := sqrt32(tx*tx + ty*ty + tz*tz)

		strength := min(p.Cohesion[i], p.Cohesion[j])
		if shear > minShearSpeed {
			push(p, i, j, tx, ty, tz, 1-max(0, 1-strength))
		}
		if vn > 0 && strength > 0 {
			push(p, i, j, nx, ny, nz, min(vn, strength))
		}

		return vn > breakVelocity || shear > shearLimit
	})
}

// push reduces the relative velocity v_j - v_i by dir*amount, split by
// inverse mass so the pair's momentum is unchanged.
func push(p *particles.Set, i, j int, dx, dy, dz, amount float32) {
	wi, wj := p.InvMass[i], p.InvMass[j]
	wSum := wi + wj
	if wSum == 0 || amount == 0 {
		return
	}
	scale := amount / wSum
	p.AddVelocity(i, dx, dy, dz, wi*scale)
	p.AddVelocity(j, dx, dy, dz, -wj*scale)
}
