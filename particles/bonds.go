package particles

// Bond is an unordered pair of particle indices, stored with I < J so that
// (i,j) and (j,i) compare and hash equal.
type Bond struct {
	I, J int32
}

// MakeBond normalizes the pair order.
func MakeBond(i, j int) Bond {
	if i > j {
		i, j = j, i
	}
	return Bond{I: int32(i), J: int32(j)}
}

// BondSet is an insertion-ordered set of cohesion bonds. Iteration order is
// stable so that cohesion is applied deterministically.
type BondSet struct {
	index map[Bond]int
	bonds []Bond
}

// NewBondSet creates an empty bond set.
func NewBondSet() *BondSet {
	return &BondSet{index: make(map[Bond]int)}
}

// Add registers a bond between i and j. Returns false if the bond already
// exists or i == j.
func (s *BondSet) Add(i, j int) bool {
	if i == j {
		return false
	}
	b := MakeBond(i, j)
	if _, ok := s.index[b]; ok {
		return false
	}
	s.index[b] = len(s.bonds)
	s.bonds = append(s.bonds, b)
	return true
}

// Has reports whether a bond between i and j exists.
func (s *BondSet) Has(i, j int) bool {
	_, ok := s.index[MakeBond(i, j)]
	return ok
}

// Remove deletes the bond between i and j, if any.
func (s *BondSet) Remove(i, j int) bool {
	target := MakeBond(i, j)
	if _, ok := s.index[target]; !ok {
		return false
	}
	s.RemoveIf(func(b Bond) bool { return b == target })
	return true
}

// RemoveIf deletes every bond for which fn returns true, preserving the
// order of the rest. fn is called once per bond in order. Returns the number
// of removed bonds.
func (s *BondSet) RemoveIf(fn func(Bond) bool) int {
	kept := 0
	for _, b := range s.bonds {
		if fn(b) {
			delete(s.index, b)
			continue
		}
		s.bonds[kept] = b
		s.index[b] = kept
		kept++
	}
	removed := len(s.bonds) - kept
	s.bonds = s.bonds[:kept]
	return removed
}

// Each calls fn for every bond in insertion order.
func (s *BondSet) Each(fn func(Bond)) {
	for _, b := range s.bonds {
		fn(b)
	}
}

// Len returns the number of bonds.
func (s *BondSet) Len() int {
	return len(s.bonds)
}

// Clear removes all bonds.
func (s *BondSet) Clear() {
	clear(s.index)
	s.bonds = s.bonds[:0]
}
