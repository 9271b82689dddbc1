// Package geom holds small shared geometry types.
package geom

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// NewAABB creates a box from its corner coordinates.
func NewAABB(minX, minY, minZ, maxX, maxY, maxZ float32) AABB {
	return AABB{
		Min: mgl32.Vec3{minX, minY, minZ},
		Max: mgl32.Vec3{maxX, maxY, maxZ},
	}
}

// Delta returns the box extent along each axis.
func (b AABB) Delta() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Contains reports whether the point lies inside the box (inclusive).
func (b AABB) Contains(x, y, z float32) bool {
	return x >= b.Min[0] && x <= b.Max[0] &&
		y >= b.Min[1] && y <= b.Max[1] &&
		z >= b.Min[2] && z <= b.Max[2]
}

// ContainsVec is Contains for a vector.
func (b AABB) ContainsVec(p mgl32.Vec3) bool {
	return b.Contains(p[0], p[1], p[2])
}

// Clamp returns the point closest to p inside the box.
func (b AABB) Clamp(p mgl32.Vec3) mgl32.Vec3 {
	for i := 0; i < 3; i++ {
		p[i] = mgl32.Clamp(p[i], b.Min[i], b.Max[i])
	}
	return p
}

// Shrink returns the box with each face moved inward by margin.
func (b AABB) Shrink(margin float32) AABB {
	m := mgl32.Vec3{margin, margin, margin}
	return AABB{Min: b.Min.Add(m), Max: b.Max.Sub(m)}
}

// Valid reports whether Min <= Max on every axis.
func (b AABB) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}
