package broadphase

// SparseGrid is a hashed grid that scans the full 27-cell neighborhood of
// every cell and drops the mirrored half of the cross-cell pairs by index
// order.
type SparseGrid struct {
	table cellTable
}

// NewSparseGrid creates a sparse grid with the given cell size.
func NewSparseGrid(cellSize float32) *SparseGrid {
	return &SparseGrid{table: newCellTable(cellSize)}
}

// Clear returns all cells to the pool.
func (g *SparseGrid) Clear() {
	g.table.clear()
}

// Insert adds a point.
func (g *SparseGrid) Insert(x, y, z float32, index int) {
	g.table.insert(x, y, z, index)
}

// QueryPairs reports same-cell pairs and every cross-cell pair with i < j.
func (g *SparseGrid) QueryPairs(fn PairFunc) {
	t := &g.table
	for _, c := range t.active {
		samePairs(c.points, fn)
		for _, o := range neighborOffsets {
			other := t.lookup(c.x+o[0], c.y+o[1], c.z+o[2])
			if other == nil {
				continue
			}
			crossPairsOrdered(c.points, other.points, fn)
		}
	}
}
