package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/grain/collide"
	"github.com/pthm-cable/grain/particles"
)

// minSweepSq skips particles that barely moved this substep.
const minSweepSq = 1e-9

// RigidContactSolver keeps particles out of the rigid collision world by
// sweeping each particle's substep displacement.
//
// The sweep runs along the direction of motion, so a particle sliding along
// a surface is not seen by it. With Overlap set, particles the sweep missed
// are also tested with a sphere cast at their predicted position.
type RigidContactSolver struct {
	world   collide.World
	Overlap bool
}

// NewRigidContactSolver creates a solver against world.
func NewRigidContactSolver(world collide.World) *RigidContactSolver {
	return &RigidContactSolver{world: world}
}

// Solve runs one rigid pass and returns the number of particles that hit.
// Hits set the particle's contact flag and normal for friction.
func (r *RigidContactSolver) Solve(p *particles.Set) int {
	hits := 0
	for i := 0; i < p.Len(); i++ {
		if p.InvMass[i] == 0 {
			continue
		}

		from := mgl32.Vec3{p.PrevX[i], p.PrevY[i], p.PrevZ[i]}
		target := mgl32.Vec3{p.TX[i], p.TY[i], p.TZ[i]}
		radius := p.Radius[i]
		d := target.Sub(from)
		if distSq := d.LenSqr(); distSq >= minSweepSq {
			// Extend the sweep by the radius so surfaces are caught on approach.
			to := target.Add(d.Mul(radius / float32(math.Sqrt(float64(distSq)))))
			if hit, ok := r.world.Raycast(from, to); ok {
				hits++
				resolve(p, i, target, radius, hit)
				continue
			}
		}
		if !r.Overlap {
			continue
		}
		overlaps := r.world.SphereCast(target, radius)
		if len(overlaps) > 0 {
			hits++
		}
		for _, hit := range overlaps {
			resolve(p, i, mgl32.Vec3{p.TX[i], p.TY[i], p.TZ[i]}, radius, hit)
		}
	}
	return hits
}

// resolve flags particle i as in contact with hit and pushes its predicted
// position out along the normal until it sits radius away from the surface.
func resolve(p *particles.Set, i int, target mgl32.Vec3, radius float32, hit collide.Hit) {
	n := hit.Normal
	p.InContact[i] = true
	p.ContactNX[i], p.ContactNY[i], p.ContactNZ[i] = n[0], n[1], n[2]

	penetration := -(hit.Point.Sub(target).Dot(n) + radius)
	if penetration < 0 {
		p.AddPredicted(i, n[0], n[1], n[2], -penetration)
	}
}
