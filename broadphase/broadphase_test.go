package broadphase

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/geom"
)

type pairKey struct{ i, j int }

func key(i, j int) pairKey {
	if i > j {
		i, j = j, i
	}
	return pairKey{i, j}
}

func randomPoints(n int, lo, hi float32, seed uint64) []mgl32.Vec3 {
	rng := rand.New(rand.NewPCG(seed, 1))
	pts := make([]mgl32.Vec3, n)
	for i := range pts {
		for a := 0; a < 3; a++ {
			pts[i][a] = lo + rng.Float32()*(hi-lo)
		}
	}
	return pts
}

// collect rebuilds g from pts and counts every reported pair.
func collect(t *testing.T, g Broadphase, pts []mgl32.Vec3) map[pairKey]int {
	t.Helper()
	g.Clear()
	for i, p := range pts {
		g.Insert(p[0], p[1], p[2], i)
	}
	seen := make(map[pairKey]int)
	g.QueryPairs(func(i, j int) {
		if i == j {
			t.Fatalf("self pair %d", i)
		}
		seen[key(i, j)]++
	})
	return seen
}

func strategies(cellSize float32, bounds geom.AABB) map[string]Broadphase {
	return map[string]Broadphase{
		"hash":   NewHashGrid(cellSize),
		"sparse": NewSparseGrid(cellSize),
		"dense":  NewDenseGrid(cellSize, bounds),
	}
}

func TestQueryPairsMatchesBruteForce(t *testing.T) {
	const cellSize = 0.5
	bounds := geom.NewAABB(-4, -4, -4, 4, 4, 4)
	pts := randomPoints(600, -4, 4, 7)

	for name, g := range strategies(cellSize, bounds) {
		t.Run(name, func(t *testing.T) {
			seen := collect(t, g, pts)

			for k, n := range seen {
				if n != 1 {
					t.Errorf("pair %v reported %d times", k, n)
				}
			}
			for i := range pts {
				for j := i + 1; j < len(pts); j++ {
					if pts[i].Sub(pts[j]).Len() < cellSize && seen[key(i, j)] == 0 {
						t.Errorf("close pair (%d, %d) missed", i, j)
					}
				}
			}
		})
	}
}

func TestStrategiesAgreeOnCloseSet(t *testing.T) {
	// Cells of the dense grid tile the box exactly, so with an integral
	// number of cells every strategy shares one grid and one candidate set.
	bounds := geom.NewAABB(0, 0, 0, 4, 4, 4)
	pts := randomPoints(300, 0.01, 3.99, 11)

	var ref map[pairKey]int
	for _, name := range []string{"hash", "sparse", "dense"} {
		seen := collect(t, strategies(0.5, bounds)[name], pts)
		if ref == nil {
			ref = seen
			continue
		}
		if len(seen) != len(ref) {
			t.Errorf("%s: %d pairs, hash had %d", name, len(seen), len(ref))
		}
		for k := range ref {
			if seen[k] == 0 {
				t.Errorf("%s: missing %v", name, k)
			}
		}
	}
}

func TestClearReusesCells(t *testing.T) {
	g := NewHashGrid(1)
	first := randomPoints(200, -10, 10, 3)
	second := randomPoints(50, 20, 25, 4)

	collect(t, g, first)

	seen := collect(t, g, second)
	for k := range seen {
		if k.i >= len(second) || k.j >= len(second) {
			t.Fatalf("stale index in pair %v after Clear", k)
		}
	}
	if len(g.table.pool) == 0 {
		t.Error("vacated cells were not pooled")
	}

	// Same input after a full cycle gives the same answer.
	a := collect(t, g, first)
	b := collect(t, g, first)
	if len(a) != len(b) {
		t.Errorf("rebuild changed pair count: %d vs %d", len(a), len(b))
	}
}

func TestNegativeCoordinates(t *testing.T) {
	// -0.1 and 0.1 fall in cells -1 and 0.
	pts := []mgl32.Vec3{{-0.1, 0, 0}, {0.1, 0, 0}}
	for name, g := range map[string]Broadphase{"hash": NewHashGrid(1), "sparse": NewSparseGrid(1)} {
		if got := collect(t, g, pts); got[key(0, 1)] != 1 {
			t.Errorf("%s: pair across the origin not reported once: %v", name, got)
		}
	}
}

func TestDenseGridClampsOutOfBounds(t *testing.T) {
	g := NewDenseGrid(1, geom.NewAABB(0, 0, 0, 4, 4, 4))
	nx, ny, nz := g.Dims()
	if nx != 4 || ny != 4 || nz != 4 {
		t.Fatalf("dims = %d,%d,%d, want 4,4,4", nx, ny, nz)
	}

	pts := []mgl32.Vec3{
		{-5, 2, 2},  // clamps to x cell 0
		{0.5, 2, 2}, // x cell 0
		{30, 30, 30},
		{3.9, 3.9, 3.9},
	}
	seen := collect(t, g, pts)
	if seen[key(0, 1)] != 1 {
		t.Error("clamped point should share the border cell")
	}
	if seen[key(2, 3)] != 1 {
		t.Error("far corner point should clamp into the last cell")
	}
}

func TestNew(t *testing.T) {
	bounds := config.BoundsConfig{Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}
	tests := []struct {
		kind    string
		want    string
		wantErr error
	}{
		{KindHash, "*broadphase.HashGrid", nil},
		{KindSparse, "*broadphase.SparseGrid", nil},
		{KindDense, "*broadphase.DenseGrid", nil},
		{"octree", "", ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			g, err := New(config.BroadphaseConfig{Kind: tt.kind, CellSize: 0.5, Bounds: bounds})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprintf("%T", g); got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.kind, got, tt.want)
			}
		})
	}

	if _, err := New(config.BroadphaseConfig{Kind: KindHash}); err == nil {
		t.Error("zero cell size should fail")
	}
}

func benchmarkGrid(b *testing.B, g Broadphase) {
	pts := randomPoints(10000, -20, 20, 1)
	pairs := 0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Clear()
		for k, p := range pts {
			g.Insert(p[0], p[1], p[2], k)
		}
		g.QueryPairs(func(i, j int) { pairs++ })
	}
	_ = pairs
}

func BenchmarkHashGrid(b *testing.B)   { benchmarkGrid(b, NewHashGrid(0.5)) }
func BenchmarkSparseGrid(b *testing.B) { benchmarkGrid(b, NewSparseGrid(0.5)) }
func BenchmarkDenseGrid(b *testing.B) {
	benchmarkGrid(b, NewDenseGrid(0.5, geom.NewAABB(-20, -20, -20, 20, 20, 20)))
}
