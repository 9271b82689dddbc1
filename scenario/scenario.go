// Package scenario builds ready-to-simulate particle sets for benchmarks,
// tests and the grainbench command.
package scenario

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/grain/constraints"
	"github.com/pthm-cable/grain/geom"
	"github.com/pthm-cable/grain/particles"
)

// NewRand returns the deterministic generator used by the builders.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Cloud scatters n dry-sand particles in a gaussian blob a quarter of the
// way up bounds, clamped inside the walls. The spread is a tenth of the box
// height.
func Cloud(n int, bounds geom.AABB, radius float32, rng *rand.Rand) *particles.Set {
	p := particles.New(n)
	spread := bounds.Delta().Y() * 0.1
	center := mgl32.Vec3{
		(bounds.Min.X() + bounds.Max.X()) * 0.5,
		bounds.Min.Y() + bounds.Delta().Y()*0.25,
		(bounds.Min.Z() + bounds.Max.Z()) * 0.5,
	}
	inner := bounds.Shrink(radius)

	for i := 0; i < n; i++ {
		pos := mgl32.Vec3{
			center.X() + float32(rng.NormFloat64())*spread,
			center.Y() + float32(rng.NormFloat64())*spread,
			center.Z() + float32(rng.NormFloat64())*spread,
		}
		pos = inner.Clamp(pos)
		p.SetPosition(i, pos[0], pos[1], pos[2])
	}
	p.FillRadius(0, n, radius)
	p.FillInvMass(0, n, 1)
	p.ApplyMaterialAll(particles.DrySand)
	return p
}

// FluidLayer places n particles uniformly inside bounds with inverse mass
// 1/density and no friction.
func FluidLayer(n int, bounds geom.AABB, radius, density float32, rng *rand.Rand) *particles.Set {
	p := particles.New(n)
	inner := bounds.Shrink(radius)
	d := inner.Delta()
	for i := 0; i < n; i++ {
		p.SetPosition(i,
			inner.Min.X()+rng.Float32()*d.X(),
			inner.Min.Y()+rng.Float32()*d.Y(),
			inner.Min.Z()+rng.Float32()*d.Z(),
		)
	}
	p.FillRadius(0, n, radius)
	p.FillInvMass(0, n, 1/density)
	return p
}

// NoodleOptions describes a chain of particles along +X.
type NoodleOptions struct {
	Count         int
	SegmentLength float32
	Radius        float32
	Origin        mgl32.Vec3
	FixedFirst    bool // pin the first particle

	Stiffness   float32
	SpringBreak float32 // 0 = unbreakable

	// Bending > 0 adds a bending constraint over every triple, linked to
	// the spring between its first two particles.
	Bending      float32
	BendingBreak float32
}

// Noodle builds the chain and its constraints.
func Noodle(opt NoodleOptions) (*particles.Set, *constraints.Set) {
	n := opt.Count
	p := particles.New(n)
	for i := 0; i < n; i++ {
		p.SetPosition(i, opt.Origin.X()+float32(i)*opt.SegmentLength, opt.Origin.Y(), opt.Origin.Z())
	}
	p.FillRadius(0, n, opt.Radius)
	p.FillInvMass(0, n, 1)
	if opt.FixedFirst && n > 0 {
		p.InvMass[0] = 0
	}

	cs := constraints.NewSet()
	springs := make([]constraints.Handle, 0, max(n-1, 0))
	for i := 0; i+1 < n; i++ {
		springs = append(springs, cs.Add(&constraints.Spring{
			I: i, J: i + 1,
			RestLength:     opt.SegmentLength,
			Stiffness:      opt.Stiffness,
			BreakThreshold: opt.SpringBreak,
		}))
	}
	if opt.Bending > 0 {
		for i := 0; i+2 < n; i++ {
			cs.Add(&constraints.Bending{
				I0: i, I1: i + 1, I2: i + 2,
				Stiffness:      opt.Bending,
				BreakThreshold: opt.BendingBreak,
				Link:           springs[i],
			})
		}
	}
	return p, cs
}
