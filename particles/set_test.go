package particles

import (
	"testing"
)

// fillSequential writes distinct values into every column so merge and
// resize mistakes show up as mismatches.
func fillSequential(s *Set, base float32) {
	for fi, f := range s.floatFields() {
		for i := 0; i < s.Len(); i++ {
			(*f)[i] = base + float32(fi)*100 + float32(i)
		}
	}
	for i := 0; i < s.Len(); i++ {
		s.InContact[i] = i%2 == 0
	}
}

func sameParticle(t *testing.T, a *Set, i int, b *Set, j int) {
	t.Helper()
	af := a.floatFields()
	bf := b.floatFields()
	for k := range af {
		if (*af[k])[i] != (*bf[k])[j] {
			t.Errorf("field %d: particle %d = %v, want %v (source %d)", k, i, (*af[k])[i], (*bf[k])[j], j)
		}
	}
	if a.InContact[i] != b.InContact[j] {
		t.Errorf("InContact: particle %d = %v, want %v", i, a.InContact[i], b.InContact[j])
	}
}

func TestNewAllocatesAllColumns(t *testing.T) {
	s := NewWithCapacity(3, 10)
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
	if s.Cap() != 10 {
		t.Errorf("Cap = %d, want 10", s.Cap())
	}
	for k, f := range s.floatFields() {
		if len(*f) != 10 {
			t.Errorf("field %d has length %d, want 10", k, len(*f))
		}
	}
	if len(s.InContact) != 10 {
		t.Errorf("InContact has length %d, want 10", len(s.InContact))
	}
}

func TestMergePreservesOrder(t *testing.T) {
	a := New(4)
	b := New(3)
	fillSequential(a, 0)
	fillSequential(b, 10000)
	a.Bonds.Add(0, 1)
	b.Bonds.Add(2, 0)

	m := Merge(a, b)

	if m.Len() != 7 {
		t.Fatalf("merged Len = %d, want 7", m.Len())
	}
	for i := 0; i < a.Len(); i++ {
		sameParticle(t, m, i, a, i)
	}
	for i := 0; i < b.Len(); i++ {
		sameParticle(t, m, a.Len()+i, b, i)
	}
	if !m.Bonds.Has(0, 1) {
		t.Error("bond (0,1) from first set missing")
	}
	if !m.Bonds.Has(4, 6) {
		t.Error("bond (0,2) from second set should be re-indexed to (4,6)")
	}
	if m.Bonds.Len() != 2 {
		t.Errorf("merged bond count = %d, want 2", m.Bonds.Len())
	}
}

func TestResizeWithinBandReusesStorage(t *testing.T) {
	s := New(100)
	fillSequential(s, 0)

	r := s.Resize(80)
	if r != s {
		t.Fatal("shrinking inside the band should return the same set")
	}
	if r.Len() != 80 || r.Cap() != 100 {
		t.Errorf("Len/Cap = %d/%d, want 80/100", r.Len(), r.Cap())
	}

	// Regrowing exposes cleared slots, not stale data
	r = r.Resize(100)
	if r != s {
		t.Fatal("growing back to capacity should return the same set")
	}
	if r.PX[90] != 0 || r.InContact[90] {
		t.Errorf("regrown slot holds stale data: PX=%v InContact=%v", r.PX[90], r.InContact[90])
	}
}

func TestResizeOutsideBandReallocates(t *testing.T) {
	tests := []struct {
		name    string
		from    int
		to      int
		wantCap int
	}{
		{"grow", 10, 25, 25},
		{"shrink far", 200, 20, 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(tc.from)
			fillSequential(s, 0)
			r := s.Resize(tc.to)
			if r == s {
				t.Fatal("expected a new set")
			}
			if r.Len() != tc.to || r.Cap() != tc.wantCap {
				t.Errorf("Len/Cap = %d/%d, want %d/%d", r.Len(), r.Cap(), tc.to, tc.wantCap)
			}
			for i := 0; i < min(tc.from, tc.to); i++ {
				sameParticle(t, r, i, s, i)
			}
		})
	}
}

func TestResizeDropsDanglingBonds(t *testing.T) {
	s := New(10)
	s.Bonds.Add(1, 2)
	s.Bonds.Add(3, 9)

	s = s.Resize(5)

	if !s.Bonds.Has(1, 2) {
		t.Error("bond inside the new size should survive")
	}
	if s.Bonds.Has(3, 9) {
		t.Error("bond to a dropped particle should be removed")
	}
}

func TestSetPositionResetsHistory(t *testing.T) {
	s := New(1)
	s.SetPosition(0, 1, 2, 3)
	if s.PrevY[0] != 2 || s.TY[0] != 2 {
		t.Errorf("prev/predicted y = %v/%v, want 2/2", s.PrevY[0], s.TY[0])
	}
}

func TestApplyMaterial(t *testing.T) {
	s := New(6)
	s.ApplyMaterial(Dough, 2, 4)

	for i := 0; i < 6; i++ {
		want := float32(0)
		if i >= 2 && i < 4 {
			want = Dough.Cohesion
		}
		if s.Cohesion[i] != want {
			t.Errorf("Cohesion[%d] = %v, want %v", i, s.Cohesion[i], want)
		}
	}
	if s.DynamicFriction[3] != 1 {
		t.Errorf("DynamicFriction[3] = %v, want 1", s.DynamicFriction[3])
	}
}

func TestClearContacts(t *testing.T) {
	s := New(2)
	s.InContact[1] = true
	s.ContactNY[1] = 1
	s.ClearContacts()
	if s.InContact[1] || s.ContactNY[1] != 0 {
		t.Error("contact state should be cleared")
	}
}
