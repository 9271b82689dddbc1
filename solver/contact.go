package solver

import (
	"math"

	"github.com/pthm-cable/grain/broadphase"
	"github.com/pthm-cable/grain/particles"
)

// ContactStats counts the work of one contact pass.
type ContactStats struct {
	Candidates   int // pairs reported by the broadphase
	Overlaps     int // pairs actually pushed apart
	BondsCreated int
}

func (c *ContactStats) add(o ContactStats) {
	c.Candidates += o.Candidates
	c.Overlaps += o.Overlaps
	c.BondsCreated += o.BondsCreated
}

// ContactSolver pushes overlapping particles apart. The broadphase is
// rebuilt from predicted positions on every pass.
type ContactSolver struct {
	grid      broadphase.Broadphase
	Stiffness float32 // fraction of the penetration removed per pass

	p      *particles.Set
	stats  ContactStats
	pairFn broadphase.PairFunc
}

// NewContactSolver creates a contact solver over grid.
func NewContactSolver(grid broadphase.Broadphase, stiffness float32) *ContactSolver {
	c := &ContactSolver{grid: grid, Stiffness: stiffness}
	c.pairFn = c.solvePair
	return c
}

// Solve runs one contact pass over the live particles of p.
func (c *ContactSolver) Solve(p *particles.Set) ContactStats {
	c.p = p
	c.stats = ContactStats{}

	c.grid.Clear()
	for i := 0; i < p.Len(); i++ {
		c.grid.Insert(p.TX[i], p.TY[i], p.TZ[i], i)
	}
	c.grid.QueryPairs(c.pairFn)

	c.p = nil
	return c.stats
}

func (c *ContactSolver) solvePair(i, j int) {
	p := c.p
	c.stats.Candidates++

	dx := p.TX[j] - p.TX[i]
	dy := p.TY[j] - p.TY[i]
	dz := p.TZ[j] - p.TZ[i]
	distSq := dx*dx + dy*dy + dz*dz
	minDist := p.Radius[i] + p.Radius[j]
	if distSq >= minDist*minDist || distSq == 0 {
		return
	}

	wi, wj := p.InvMass[i], p.InvMass[j]
	wSum := wi + wj
	if wSum == 0 {
		return
	}

	dist := float32(math.Sqrt(float64(distSq)))
	scale := (minDist - dist) * c.Stiffness / (wSum * dist) // penetration along the unnormalized axis
	p.AddPredicted(i, dx, dy, dz, -scale*wi)
	p.AddPredicted(j, dx, dy, dz, scale*wj)
	c.stats.Overlaps++

	if p.Cohesion[i] > 0 || p.Cohesion[j] > 0 {
		if p.Bonds.Add(i, j) {
			c.stats.BondsCreated++
		}
	}
}
