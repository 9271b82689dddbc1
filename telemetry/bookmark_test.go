package telemetry

import (
	"testing"
)

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Settled(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Falling
	for i := 0; i < 3; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndStep: int64(i * 60), Particles: 100, SpeedP90: 2})
		if hasBookmark(bookmarks, BookmarkSettled) {
			t.Fatalf("window %d: settled while moving", i)
		}
	}

	// At rest: triggers on the third resting window only
	var triggered []int
	for i := 0; i < 6; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndStep: int64(180 + i*60), Particles: 100, SpeedP90: 0.01})
		if hasBookmark(bookmarks, BookmarkSettled) {
			triggered = append(triggered, i)
		}
	}
	if len(triggered) != 1 || triggered[0] != settledWindows-1 {
		t.Errorf("settled triggered at %v, want [%d]", triggered, settledWindows-1)
	}
	if !bd.Settled() {
		t.Error("expected Settled after resting windows")
	}

	// Motion resumes
	bd.Check(WindowStats{WindowEndStep: 600, Particles: 100, SpeedP90: 1})
	if bd.Settled() {
		t.Error("still settled after motion resumed")
	}
}

func TestBookmarkDetector_BondAvalanche(t *testing.T) {
	tests := []struct {
		name   string
		broken int
		remain int
		want   bool
	}{
		{"most bonds broke", 40, 60, true},
		{"few bonds broke", 12, 200, false},
		{"below minimum", 5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bd := NewBookmarkDetector(5)
			stats := WindowStats{WindowEndStep: 60, Particles: 100, SpeedP90: 1, BondsBroken: tt.broken, Bonds: tt.remain}
			if got := hasBookmark(bd.Check(stats), BookmarkBondAvalanche); got != tt.want {
				t.Errorf("bond_avalanche = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBookmarkDetector_SpeedSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		if hasBookmark(bd.Check(WindowStats{WindowEndStep: int64(i * 60), Particles: 10, SpeedP90: 1, SpeedMax: 2}), BookmarkSpeedSpike) {
			t.Fatal("spike on steady speeds")
		}
	}

	bookmarks := bd.Check(WindowStats{WindowEndStep: 300, Particles: 10, SpeedP90: 1, SpeedMax: 20})
	if !hasBookmark(bookmarks, BookmarkSpeedSpike) {
		t.Error("expected speed_spike bookmark")
	}
}

func TestBookmarkDetector_NonFiniteOnce(t *testing.T) {
	bd := NewBookmarkDetector(5)

	first := bd.Check(WindowStats{WindowEndStep: 60, Particles: 10, NonFinite: 2})
	if !hasBookmark(first, BookmarkNonFinite) {
		t.Fatal("expected non_finite bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{WindowEndStep: 120, Particles: 10, NonFinite: 3}), BookmarkNonFinite) {
		t.Error("non_finite reported twice")
	}
}
