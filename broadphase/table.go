package broadphase

import "math"

// cell is one occupied grid cell of a hashed grid.
type cell struct {
	x, y, z int32
	points  []int32
	next    *cell // bucket chain for colliding hashes
}

// cellTable maps integer cell coordinates to cells through a spatial hash.
// Vacated cells go to a free list and are reset before reuse, so steady-state
// rebuilds allocate nothing.
type cellTable struct {
	invCellSize float32
	buckets     map[int64]*cell
	active      []*cell // insertion order, keeps queries deterministic
	pool        []*cell
}

func newCellTable(cellSize float32) cellTable {
	return cellTable{
		invCellSize: 1 / cellSize,
		buckets:     make(map[int64]*cell, 8<<10),
	}
}

// hashCell combines the coordinates with the classic three large primes.
func hashCell(x, y, z int32) int64 {
	return int64(x)*73856093 ^ int64(y)*19349663 ^ int64(z)*83492791
}

func (t *cellTable) coord(v float32) int32 {
	return int32(math.Floor(float64(v * t.invCellSize)))
}

func (t *cellTable) clear() {
	t.pool = append(t.pool, t.active...)
	clear(t.active)
	t.active = t.active[:0]
	clear(t.buckets)
}

func (t *cellTable) insert(x, y, z float32, index int) {
	c := t.getOrCreate(t.coord(x), t.coord(y), t.coord(z))
	c.points = append(c.points, int32(index))
}

// lookup returns the cell at the given coordinates, or nil.
func (t *cellTable) lookup(x, y, z int32) *cell {
	for c := t.buckets[hashCell(x, y, z)]; c != nil; c = c.next {
		if c.x == x && c.y == y && c.z == z {
			return c
		}
	}
	return nil
}

func (t *cellTable) getOrCreate(x, y, z int32) *cell {
	key := hashCell(x, y, z)
	head := t.buckets[key]
	for c := head; c != nil; c = c.next {
		if c.x == x && c.y == y && c.z == z {
			return c
		}
	}
	c := t.alloc()
	c.x, c.y, c.z = x, y, z
	c.next = head
	t.buckets[key] = c
	t.active = append(t.active, c)
	return c
}

// alloc takes a cell from the pool, fully reset, or makes a new one.
func (t *cellTable) alloc() *cell {
	n := len(t.pool)
	if n == 0 {
		return &cell{points: make([]int32, 0, 4)}
	}
	c := t.pool[n-1]
	t.pool[n-1] = nil
	t.pool = t.pool[:n-1]
	c.points = c.points[:0]
	c.next = nil
	return c
}

// neighborOffsets are the 26 cells around a cell.
var neighborOffsets = func() [][3]int32 {
	var offs [][3]int32
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				if dx != 0 || dy != 0 || dz != 0 {
					offs = append(offs, [3]int32{dx, dy, dz})
				}
			}
		}
	}
	return offs
}()

// forwardOffsets are the 13 neighbor offsets that are lexicographically
// positive. Every unordered pair of adjacent cells differs by exactly one of
// them in one direction.
var forwardOffsets = func() [][3]int32 {
	var offs [][3]int32
	for _, o := range neighborOffsets {
		if o[0] > 0 || (o[0] == 0 && o[1] > 0) || (o[0] == 0 && o[1] == 0 && o[2] > 0) {
			offs = append(offs, o)
		}
	}
	return offs
}()
