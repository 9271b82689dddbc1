// Package constraints holds the geometric constraints projected by the
// solver: distance springs and three-particle bending.
//
// Constraints reference particles by index only and keep no particle state,
// so a Set of them can be solved in a fixed order against any particle store
// of matching layout.
package constraints

import (
	"github.com/pthm-cable/grain/particles"
)

// Constraint projects predicted positions toward a geometric target.
type Constraint interface {
	// Project applies one Gauss-Seidel correction to the predicted
	// positions of p and reports whether the constraint broke.
	Project(p *particles.Set, dt float32) bool
}

// Handle identifies a constraint inside a Set. Handles stay valid after the
// constraint breaks or is removed; NoHandle is never issued.
type Handle uint32

// NoHandle is the zero Handle.
const NoHandle Handle = 0

// Linker is implemented by constraints that force-break another constraint
// of the same Set when they break themselves.
type Linker interface {
	LinkedHandle() Handle
}

const distEpsilonSq = 1e-10

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
