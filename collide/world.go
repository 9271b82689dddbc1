// Package collide is the rigid collision surface consumed by the particle
// solver. Only queries are offered; rigid bodies never move in response to
// particles.
package collide

import "github.com/go-gl/mathgl/mgl32"

// Hit is one contact against a rigid body.
type Hit struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3 // unit, pointing away from the solid
	BodyID int
}

// World answers segment and overlap queries against static geometry.
type World interface {
	// Raycast returns the first surface the segment from -> to passes into.
	Raycast(from, to mgl32.Vec3) (Hit, bool)
	// SphereCast returns every surface the sphere overlaps.
	SphereCast(center mgl32.Vec3, radius float32) []Hit
}

// axisNormal returns the unit vector along axis a with the given sign.
func axisNormal(a int, sign float32) mgl32.Vec3 {
	var n mgl32.Vec3
	n[a] = sign
	return n
}
