// Package broadphase turns particle positions into candidate contact pairs
// using uniform grids.
//
// All strategies share one contract: after Clear and a round of Insert calls,
// QueryPairs reports every pair of points lying in the same or in adjacent
// cells exactly once. The cell size must be at least the largest contact
// distance (twice the largest radius) for no contact to be missed.
package broadphase

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/grain/config"
)

// PairFunc receives one candidate pair of particle indices.
type PairFunc func(i, j int)

// Broadphase is a spatial index rebuilt from scratch every solver iteration.
type Broadphase interface {
	// Clear removes all inserted points.
	Clear()
	// Insert places point index at (x, y, z).
	Insert(x, y, z float32, index int)
	// QueryPairs calls fn once for every unordered candidate pair.
	QueryPairs(fn PairFunc)
}

// Strategy names accepted by New.
const (
	KindHash   = "hash"
	KindDense  = "dense"
	KindSparse = "sparse"
)

// ErrUnknownKind is returned by New for an unrecognized strategy name.
var ErrUnknownKind = errors.New("broadphase: unknown kind")

// New builds the strategy selected by the configuration.
func New(cfg config.BroadphaseConfig) (Broadphase, error) {
	cellSize := float32(cfg.CellSize)
	if cellSize <= 0 {
		return nil, fmt.Errorf("broadphase: cell size must be positive, got %v", cfg.CellSize)
	}
	switch cfg.Kind {
	case KindHash:
		return NewHashGrid(cellSize), nil
	case KindSparse:
		return NewSparseGrid(cellSize), nil
	case KindDense:
		bounds := cfg.Bounds.AABB()
		if !bounds.Valid() {
			return nil, fmt.Errorf("broadphase: dense grid needs valid bounds, got %v", cfg.Bounds)
		}
		return NewDenseGrid(cellSize, bounds), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, cfg.Kind)
	}
}

// samePairs reports every pair inside a single cell.
func samePairs(points []int32, fn PairFunc) {
	for a := 1; a < len(points); a++ {
		pa := int(points[a])
		for b := 0; b < a; b++ {
			fn(int(points[b]), pa)
		}
	}
}

// crossPairs reports every pair between two distinct cells.
func crossPairs(cell, other []int32, fn PairFunc) {
	for _, i := range cell {
		for _, j := range other {
			fn(int(i), int(j))
		}
	}
}

// crossPairsOrdered reports only pairs with i < j, so that visiting a cell
// pair from both sides yields each point pair once.
func crossPairsOrdered(cell, other []int32, fn PairFunc) {
	for _, i := range cell {
		for _, j := range other {
			if i < j {
				fn(int(i), int(j))
			}
		}
	}
}
