package constraints

import (
	"github.com/pthm-cable/grain/particles"
)

type entry struct {
	h Handle
	c Constraint
}

// Set is an ordered working set of constraints. Broken or removed
// constraints stop being projected immediately and are compacted out at the
// end of the pass that removed them.
type Set struct {
	order  []entry
	byID   []Constraint // handle-1 -> constraint
	active []bool       // handle-1 -> still in the working set
	live   int
	dirty  bool
}

// NewSet creates an empty set.
func NewSet(cs ...Constraint) *Set {
	s := &Set{}
	for _, c := range cs {
		s.Add(c)
	}
	return s
}

// Add appends c to the solve order.
func (s *Set) Add(c Constraint) Handle {
	s.byID = append(s.byID, c)
	s.active = append(s.active, true)
	h := Handle(len(s.byID))
	s.order = append(s.order, entry{h: h, c: c})
	s.live++
	return h
}

// Get returns the constraint for h, or nil for an unknown handle.
func (s *Set) Get(h Handle) Constraint {
	if !s.valid(h) {
		return nil
	}
	return s.byID[h-1]
}

// Active reports whether h is still being projected.
func (s *Set) Active(h Handle) bool {
	return s.valid(h) && s.active[h-1]
}

// Remove takes h out of the working set. It reports whether h was active.
func (s *Set) Remove(h Handle) bool {
	if !s.Active(h) {
		return false
	}
	s.active[h-1] = false
	s.live--
	s.dirty = true
	return true
}

// Len returns the number of active constraints.
func (s *Set) Len() int {
	return s.live
}

// Solve projects every active constraint once, in insertion order, and
// returns how many broke, counting cascaded links.
func (s *Set) Solve(p *particles.Set, dt float32) int {
	broken := 0
	for _, e := range s.order {
		if !s.active[e.h-1] {
			continue
		}
		if !e.c.Project(p, dt) {
			continue
		}
		s.Remove(e.h)
		broken++
		if l, ok := e.c.(Linker); ok && s.Remove(l.LinkedHandle()) {
			broken++
		}
	}
	s.compact()
	return broken
}

func (s *Set) compact() {
	if !s.dirty {
		return
	}
	kept := s.order[:0]
	for _, e := range s.order {
		if s.active[e.h-1] {
			kept = append(kept, e)
		}
	}
	clear(s.order[len(kept):])
	s.order = kept
	s.dirty = false
}

func (s *Set) valid(h Handle) bool {
	return h != NoHandle && int(h) <= len(s.byID)
}
