// Package particles holds the structure-of-arrays particle store shared by
// every solver stage.
package particles

import (
	"github.com/pthm-cable/grain/internal/assert"
)

// Set is a fixed-capacity, variable-size particle store. Every per-particle
// field is a parallel slice of the same capacity; only the first Len()
// entries are live.
//
// Constraints and solvers address particles by index and never keep
// references into the slices, so a Set may be replaced wholesale by Resize or
// Merge between steps.
type Set struct {
	size int

	// Committed positions
	PX, PY, PZ []float32

	// Positions at the start of the current substep (velocity derivation)
	PrevX, PrevY, PrevZ []float32

	// Velocities
	VX, VY, VZ []float32

	// Predicted positions, scratch per substep
	TX, TY, TZ []float32

	// Inverse mass (0 = static) and contact radius
	InvMass []float32
	Radius  []float32

	// Rigid contact state, valid only within a substep
	InContact                       []bool
	ContactNX, ContactNY, ContactNZ []float32

	// Material coefficients
	StaticFriction  []float32
	DynamicFriction []float32
	Cohesion        []float32 // 0 = dry

	// Sticky contacts between particles of this set
	Bonds *BondSet
}

// New creates a set with n live particles and capacity n.
func New(n int) *Set {
	return NewWithCapacity(n, n)
}

// NewWithCapacity creates a set with n live particles and room for capacity.
func NewWithCapacity(n, capacity int) *Set {
	if capacity < n {
		capacity = n
	}
	s := &Set{size: n, Bonds: NewBondSet()}
	for _, f := range s.floatFields() {
		*f = make([]float32, capacity)
	}
	s.InContact = make([]bool, capacity)
	return s
}

// floatFields lists every float32 column. Order is irrelevant but must cover
// all columns, since copy and merge are driven by it.
func (s *Set) floatFields() []*[]float32 {
	return []*[]float32{
		&s.PX, &s.PY, &s.PZ,
		&s.PrevX, &s.PrevY, &s.PrevZ,
		&s.VX, &s.VY, &s.VZ,
		&s.TX, &s.TY, &s.TZ,
		&s.InvMass, &s.Radius,
		&s.ContactNX, &s.ContactNY, &s.ContactNZ,
		&s.StaticFriction, &s.DynamicFriction, &s.Cohesion,
	}
}

// Len returns the number of live particles.
func (s *Set) Len() int {
	return s.size
}

// Cap returns the allocated capacity.
func (s *Set) Cap() int {
	return len(s.PX)
}

// Resize changes the live size. Sizes inside the hysteresis band
// [Cap/2-16, Cap] reuse the current storage and return s; anything else
// allocates a new set of exactly newSize, copies the overlapping particles
// and returns it. Bonds referencing dropped particles are discarded.
func (s *Set) Resize(newSize int) *Set {
	assert.That(newSize >= 0, "particles: negative size %d", newSize)
	capacity := s.Cap()
	if newSize >= capacity/2-16 && newSize <= capacity {
		if newSize < s.size {
			s.Bonds.RemoveIf(func(b Bond) bool {
				return int(b.J) >= newSize
			})
			s.clearTail(newSize, s.size)
		}
		s.size = newSize
		return s
	}

	clone := New(newSize)
	n := min(s.size, newSize)
	copyParticles(clone, 0, s, n)
	s.Bonds.Each(func(b Bond) {
		if int(b.J) < n {
			clone.Bonds.Add(int(b.I), int(b.J))
		}
	})
	return clone
}

// clearTail zeroes the particles in [from, to) so regrowing inside the
// band never resurrects stale state.
func (s *Set) clearTail(from, to int) {
	for _, f := range s.floatFields() {
		clear((*f)[from:to])
	}
	clear(s.InContact[from:to])
}

// Merge concatenates the given sets index-wise into a new set. Particles
// keep their relative order; bonds are re-indexed to the merged layout.
func Merge(sets ...*Set) *Set {
	total := 0
	for _, src := range sets {
		total += src.size
	}
	dst := New(total)
	offset := 0
	for _, src := range sets {
		copyParticles(dst, offset, src, src.size)
		base := offset
		src.Bonds.Each(func(b Bond) {
			dst.Bonds.Add(base+int(b.I), base+int(b.J))
		})
		offset += src.size
	}
	return dst
}

// copyParticles copies the first n particles of src into dst starting at
// dstOffset.
func copyParticles(dst *Set, dstOffset int, src *Set, n int) {
	assert.That(dstOffset+n <= dst.Cap(), "particles: copy of %d at %d exceeds capacity %d", n, dstOffset, dst.Cap())
	srcFields := src.floatFields()
	for k, f := range dst.floatFields() {
		copy((*f)[dstOffset:dstOffset+n], (*srcFields[k])[:n])
	}
	copy(dst.InContact[dstOffset:dstOffset+n], src.InContact[:n])
}

// SetPosition places particle i, resetting its previous and predicted
// positions so the next substep derives no velocity from the jump.
func (s *Set) SetPosition(i int, x, y, z float32) {
	assert.Index(i, s.size, "particle")
	s.PX[i], s.PY[i], s.PZ[i] = x, y, z
	s.PrevX[i], s.PrevY[i], s.PrevZ[i] = x, y, z
	s.TX[i], s.TY[i], s.TZ[i] = x, y, z
}

// Position returns the committed position of particle i.
func (s *Set) Position(i int) (x, y, z float32) {
	assert.Index(i, s.size, "particle")
	return s.PX[i], s.PY[i], s.PZ[i]
}

// SetVelocity sets the velocity of particle i.
func (s *Set) SetVelocity(i int, x, y, z float32) {
	assert.Index(i, s.size, "particle")
	s.VX[i], s.VY[i], s.VZ[i] = x, y, z
}

// Velocity returns the velocity of particle i.
func (s *Set) Velocity(i int) (x, y, z float32) {
	assert.Index(i, s.size, "particle")
	return s.VX[i], s.VY[i], s.VZ[i]
}

// AddVelocity adds (dx,dy,dz)*scale to the velocity of particle k.
func (s *Set) AddVelocity(k int, dx, dy, dz, scale float32) {
	s.VX[k] += dx * scale
	s.VY[k] += dy * scale
	s.VZ[k] += dz * scale
}

// AddPredicted adds (dx,dy,dz)*scale to the predicted position of particle k.
func (s *Set) AddPredicted(k int, dx, dy, dz, scale float32) {
	s.TX[k] += dx * scale
	s.TY[k] += dy * scale
	s.TZ[k] += dz * scale
}

// FillRadius sets the radius of particles in [from, to).
func (s *Set) FillRadius(from, to int, radius float32) {
	fill(s.Radius[from:to], radius)
}

// FillInvMass sets the inverse mass of particles in [from, to).
func (s *Set) FillInvMass(from, to int, invMass float32) {
	fill(s.InvMass[from:to], invMass)
}

// ClearContacts resets the per-substep rigid contact flags and normals.
func (s *Set) ClearContacts() {
	n := s.size
	clear(s.InContact[:n])
	clear(s.ContactNX[:n])
	clear(s.ContactNY[:n])
	clear(s.ContactNZ[:n])
}

func fill(dst []float32, v float32) {
	for i := range dst {
		dst[i] = v
	}
}
