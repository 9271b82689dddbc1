package collide

import "github.com/go-gl/mathgl/mgl32"

// Group answers queries against several worlds at once. Body ids are those
// of the member that produced the hit, so they may repeat across members.
type Group []World

// Raycast returns the member hit closest to the segment start.
func (g Group) Raycast(from, to mgl32.Vec3) (Hit, bool) {
	var (
		best     Hit
		bestDist float32
		found    bool
	)
	for _, w := range g {
		h, ok := w.Raycast(from, to)
		if !ok {
			continue
		}
		if d := h.Point.Sub(from).LenSqr(); !found || d < bestDist {
			best, bestDist, found = h, d, true
		}
	}
	return best, found
}

// SphereCast concatenates the hits of every member, in member order.
func (g Group) SphereCast(center mgl32.Vec3, radius float32) []Hit {
	var hits []Hit
	for _, w := range g {
		hits = append(hits, w.SphereCast(center, radius)...)
	}
	return hits
}
