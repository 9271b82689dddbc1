package broadphase

import (
	"github.com/pthm-cable/grain/geom"
)

// DenseGrid is a flat array of cells covering a fixed box. Points outside
// the box are clamped into the border cells, so distant out-of-bounds
// points may be reported as candidates; the narrowphase rejects them.
type DenseGrid struct {
	bounds     geom.AABB
	nx, ny, nz int
	invX       float32
	invY       float32
	invZ       float32
	cells      [][]int32 // flat grid, x fastest then z then y
	occupied   []int32   // cells that received a point since Clear
}

// NewDenseGrid creates a dense grid over bounds. Each axis gets at least
// one cell; cell extents are stretched to tile the box exactly.
func NewDenseGrid(cellSize float32, bounds geom.AABB) *DenseGrid {
	d := bounds.Delta()
	g := &DenseGrid{bounds: bounds}
	g.nx, g.invX = axisCells(d.X(), cellSize)
	g.ny, g.invY = axisCells(d.Y(), cellSize)
	g.nz, g.invZ = axisCells(d.Z(), cellSize)

	g.cells = make([][]int32, g.nx*g.ny*g.nz)
	for i := range g.cells {
		g.cells[i] = make([]int32, 0, 4)
	}
	return g
}

func axisCells(extent, cellSize float32) (int, float32) {
	n := max(int(extent/cellSize), 1)
	if extent <= 0 {
		return n, 0
	}
	return n, float32(n) / extent
}

// Dims returns the number of cells along each axis.
func (g *DenseGrid) Dims() (nx, ny, nz int) {
	return g.nx, g.ny, g.nz
}

// Clear empties every occupied cell.
func (g *DenseGrid) Clear() {
	for _, idx := range g.occupied {
		g.cells[idx] = g.cells[idx][:0]
	}
	g.occupied = g.occupied[:0]
}

// Insert adds a point to the cell containing it, or to the nearest border
// cell when it lies outside the bounds.
func (g *DenseGrid) Insert(x, y, z float32, index int) {
	idx := g.cellIndex(g.axis(x, g.bounds.Min.X(), g.invX, g.nx),
		g.axis(y, g.bounds.Min.Y(), g.invY, g.ny),
		g.axis(z, g.bounds.Min.Z(), g.invZ, g.nz))
	if len(g.cells[idx]) == 0 {
		g.occupied = append(g.occupied, int32(idx))
	}
	g.cells[idx] = append(g.cells[idx], int32(index))
}

// QueryPairs reports same-cell pairs and, for each pair of adjacent cells,
// the cross pairs from the lower-indexed cell only.
func (g *DenseGrid) QueryPairs(fn PairFunc) {
	for _, idx := range g.occupied {
		i := int(idx)
		points := g.cells[i]
		samePairs(points, fn)

		cx := i % g.nx
		cz := (i / g.nx) % g.nz
		cy := i / (g.nx * g.nz)
		for y := max(cy-1, 0); y <= min(cy+1, g.ny-1); y++ {
			for z := max(cz-1, 0); z <= min(cz+1, g.nz-1); z++ {
				for x := max(cx-1, 0); x <= min(cx+1, g.nx-1); x++ {
					j := g.cellIndex(x, y, z)
					if j <= i || len(g.cells[j]) == 0 {
						continue
					}
					crossPairs(points, g.cells[j], fn)
				}
			}
		}
	}
}

func (g *DenseGrid) axis(v, lo, inv float32, n int) int {
	c := int((v - lo) * inv)
	if v < lo || c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

func (g *DenseGrid) cellIndex(x, y, z int) int {
	return (y*g.nz+z)*g.nx + x
}
