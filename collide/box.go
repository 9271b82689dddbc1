package collide

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/grain/geom"
)

// Box face ids, used as Hit.BodyID.
const (
	FaceMinX = iota
	FaceMinY
	FaceMinZ
	FaceMaxX
	FaceMaxY
	FaceMaxZ
)

// Box is a hollow container: particles live inside and its six walls face
// inward.
type Box struct {
	Bounds geom.AABB
}

// NewBox creates a container with the given interior.
func NewBox(bounds geom.AABB) *Box {
	return &Box{Bounds: bounds}
}

// Raycast reports where a segment leaves the box. A segment that ends
// inside never hits. A segment lying entirely outside reports its clamped
// end point on the most violated wall, so escaped particles get pulled back.
func (b *Box) Raycast(from, to mgl32.Vec3) (Hit, bool) {
	if b.Bounds.ContainsVec(to) {
		return Hit{}, false
	}
	if !b.Bounds.ContainsVec(from) {
		return b.escaped(to)
	}

	d := to.Sub(from)
	best := float32(2)
	face := -1
	for a := 0; a < 3; a++ {
		var t float32
		var f int
		switch {
		case d[a] > 0:
			t, f = (b.Bounds.Max[a]-from[a])/d[a], FaceMaxX+a
		case d[a] < 0:
			t, f = (b.Bounds.Min[a]-from[a])/d[a], FaceMinX+a
		default:
			continue
		}
		if t < best {
			best, face = t, f
		}
	}
	if face < 0 {
		return Hit{}, false
	}
	point := b.Bounds.Clamp(from.Add(d.Mul(best)))
	return Hit{Point: point, Normal: faceNormal(face), BodyID: face}, true
}

// escaped handles a point already outside the box.
func (b *Box) escaped(p mgl32.Vec3) (Hit, bool) {
	face := -1
	var worst float32
	for a := 0; a < 3; a++ {
		if v := b.Bounds.Min[a] - p[a]; v > worst {
			worst, face = v, FaceMinX+a
		}
		if v := p[a] - b.Bounds.Max[a]; v > worst {
			worst, face = v, FaceMaxX+a
		}
	}
	if face < 0 {
		return Hit{}, false // NaN
	}
	return Hit{Point: b.Bounds.Clamp(p), Normal: faceNormal(face), BodyID: face}, true
}

// SphereCast reports one hit per wall the sphere overlaps, ordered by face
// id. Hit points lie on the wall.
func (b *Box) SphereCast(center mgl32.Vec3, radius float32) []Hit {
	var hits []Hit
	for a := 0; a < 3; a++ {
		if center[a]-radius < b.Bounds.Min[a] {
			p := center
			p[a] = b.Bounds.Min[a]
			hits = append(hits, Hit{Point: p, Normal: faceNormal(FaceMinX + a), BodyID: FaceMinX + a})
		}
	}
	for a := 0; a < 3; a++ {
		if center[a]+radius > b.Bounds.Max[a] {
			p := center
			p[a] = b.Bounds.Max[a]
			hits = append(hits, Hit{Point: p, Normal: faceNormal(FaceMaxX + a), BodyID: FaceMaxX + a})
		}
	}
	return hits
}

// faceNormal points from a wall into the box interior.
func faceNormal(face int) mgl32.Vec3 {
	if face < FaceMaxX {
		return axisNormal(face, 1)
	}
	return axisNormal(face-FaceMaxX, -1)
}
