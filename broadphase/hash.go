package broadphase

// HashGrid is an unbounded hashed grid. Each unordered pair of adjacent
// cells is visited from one side only, so no pair filtering is needed.
type HashGrid struct {
	table cellTable
}

// NewHashGrid creates a hashed grid with the given cell size.
func NewHashGrid(cellSize float32) *HashGrid {
	return &HashGrid{table: newCellTable(cellSize)}
}

// Clear returns all cells to the pool.
func (g *HashGrid) Clear() {
	g.table.clear()
}

// Insert adds a point.
func (g *HashGrid) Insert(x, y, z float32, index int) {
	g.table.insert(x, y, z, index)
}

// QueryPairs reports same-cell pairs and forward-neighbor pairs.
func (g *HashGrid) QueryPairs(fn PairFunc) {
	t := &g.table
	for _, c := range t.active {
		samePairs(c.points, fn)
		for _, o := range forwardOffsets {
			other := t.lookup(c.x+o[0], c.y+o[1], c.z+o[2])
			if other == nil {
				continue
			}
			crossPairs(c.points, other.points, fn)
		}
	}
}
