package collide

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/grain/geom"
)

// Body tags every collider entity with its public id.
type Body struct {
	ID int
}

// Plane is a half-space solid: points with Normal·p < Offset are inside.
type Plane struct {
	Normal mgl32.Vec3 // unit
	Offset float32
}

// Sphere is a solid ball.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Cuboid is a solid axis-aligned block.
type Cuboid struct {
	Bounds geom.AABB
}

// Scene holds static solid obstacles as ECS entities. Particles live
// outside the solids and are pushed back out along the surface normal.
type Scene struct {
	world *ecs.World

	planeMapper  *ecs.Map2[Body, Plane]
	sphereMapper *ecs.Map2[Body, Sphere]
	cuboidMapper *ecs.Map2[Body, Cuboid]

	planeFilter  *ecs.Filter2[Body, Plane]
	sphereFilter *ecs.Filter2[Body, Sphere]
	cuboidFilter *ecs.Filter2[Body, Cuboid]

	entities map[int]ecs.Entity
	nextID   int
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	world := ecs.NewWorld()
	return &Scene{
		world:        world,
		planeMapper:  ecs.NewMap2[Body, Plane](world),
		sphereMapper: ecs.NewMap2[Body, Sphere](world),
		cuboidMapper: ecs.NewMap2[Body, Cuboid](world),
		planeFilter:  ecs.NewFilter2[Body, Plane](world),
		sphereFilter: ecs.NewFilter2[Body, Sphere](world),
		cuboidFilter: ecs.NewFilter2[Body, Cuboid](world),
		entities:     make(map[int]ecs.Entity),
	}
}

func (s *Scene) allocID() Body {
	id := s.nextID
	s.nextID++
	return Body{ID: id}
}

// AddPlane adds the half-space normal·p < offset. The normal is normalized.
func (s *Scene) AddPlane(normal mgl32.Vec3, offset float32) int {
	body := s.allocID()
	plane := Plane{Normal: normal.Normalize(), Offset: offset}
	s.entities[body.ID] = s.planeMapper.NewEntity(&body, &plane)
	return body.ID
}

// AddSphere adds a solid ball.
func (s *Scene) AddSphere(center mgl32.Vec3, radius float32) int {
	body := s.allocID()
	sphere := Sphere{Center: center, Radius: radius}
	s.entities[body.ID] = s.sphereMapper.NewEntity(&body, &sphere)
	return body.ID
}

// AddCuboid adds a solid block.
func (s *Scene) AddCuboid(bounds geom.AABB) int {
	body := s.allocID()
	cuboid := Cuboid{Bounds: bounds}
	s.entities[body.ID] = s.cuboidMapper.NewEntity(&body, &cuboid)
	return body.ID
}

// Remove deletes a collider. It reports whether the id was present.
func (s *Scene) Remove(id int) bool {
	e, ok := s.entities[id]
	if !ok {
		return false
	}
	delete(s.entities, id)
	s.world.RemoveEntity(e)
	return true
}

// Len returns the number of colliders.
func (s *Scene) Len() int {
	return len(s.entities)
}

// Raycast returns the hit with the smallest segment parameter. Segments
// that end inside a solid they started in resolve to the nearest surface
// point of the end, at parameter zero.
func (s *Scene) Raycast(from, to mgl32.Vec3) (Hit, bool) {
	best := Hit{}
	bestT := float32(math.Inf(1))
	consider := func(h Hit, t float32, ok bool) {
		if ok && t < bestT {
			best, bestT = h, t
		}
	}

	pq := s.planeFilter.Query()
	for pq.Next() {
		body, plane := pq.Get()
		h, t, ok := raycastPlane(plane, from, to)
		h.BodyID = body.ID
		consider(h, t, ok)
	}
	sq := s.sphereFilter.Query()
	for sq.Next() {
		body, sphere := sq.Get()
		h, t, ok := raycastSphere(sphere, from, to)
		h.BodyID = body.ID
		consider(h, t, ok)
	}
	cq := s.cuboidFilter.Query()
	for cq.Next() {
		body, cuboid := cq.Get()
		h, t, ok := raycastCuboid(cuboid, from, to)
		h.BodyID = body.ID
		consider(h, t, ok)
	}
	return best, !math.IsInf(float64(bestT), 1)
}

// SphereCast returns a hit for every solid the sphere overlaps, with the
// surface point closest to the center.
func (s *Scene) SphereCast(center mgl32.Vec3, radius float32) []Hit {
	var hits []Hit

	pq := s.planeFilter.Query()
	for pq.Next() {
		body, plane := pq.Get()
		dist := plane.Normal.Dot(center) - plane.Offset
		if dist < radius {
			hits = append(hits, Hit{
				Point:  center.Sub(plane.Normal.Mul(dist)),
				Normal: plane.Normal,
				BodyID: body.ID,
			})
		}
	}
	sq := s.sphereFilter.Query()
	for sq.Next() {
		body, sphere := sq.Get()
		if h, ok := sphereSurface(sphere, center); ok && center.Sub(sphere.Center).Len() < sphere.Radius+radius {
			h.BodyID = body.ID
			hits = append(hits, h)
		}
	}
	cq := s.cuboidFilter.Query()
	for cq.Next() {
		body, cuboid := cq.Get()
		closest := cuboid.Bounds.Clamp(center)
		d := center.Sub(closest)
		if d.Len() >= radius {
			continue
		}
		h := cuboidSurface(cuboid, center)
		h.BodyID = body.ID
		hits = append(hits, h)
	}
	return hits
}

func raycastPlane(p *Plane, from, to mgl32.Vec3) (Hit, float32, bool) {
	df := p.Normal.Dot(from) - p.Offset
	dt := p.Normal.Dot(to) - p.Offset
	if dt >= 0 {
		return Hit{}, 0, false
	}
	if df < 0 {
		// Already inside: project the end point back onto the surface.
		return Hit{Point: to.Sub(p.Normal.Mul(dt)), Normal: p.Normal}, 0, true
	}
	t := df / (df - dt)
	return Hit{Point: lerp(from, to, t), Normal: p.Normal}, t, true
}

func raycastSphere(s *Sphere, from, to mgl32.Vec3) (Hit, float32, bool) {
	r2 := s.Radius * s.Radius
	if from.Sub(s.Center).LenSqr() < r2 {
		if to.Sub(s.Center).LenSqr() >= r2 {
			return Hit{}, 0, false // leaving
		}
		h, ok := sphereSurface(s, to)
		return h, 0, ok
	}

	d := to.Sub(from)
	m := from.Sub(s.Center)
	a := d.LenSqr()
	if a == 0 {
		return Hit{}, 0, false
	}
	b := m.Dot(d)
	c := m.LenSqr() - r2
	disc := b*b - a*c
	if disc < 0 {
		return Hit{}, 0, false
	}
	t := (-b - float32(math.Sqrt(float64(disc)))) / a
	if t < 0 || t > 1 {
		return Hit{}, 0, false
	}
	point := lerp(from, to, t)
	return Hit{Point: point, Normal: point.Sub(s.Center).Normalize()}, t, true
}

// sphereSurface returns the surface point closest to p. A point exactly at
// the center has no defined normal.
func sphereSurface(s *Sphere, p mgl32.Vec3) (Hit, bool) {
	d := p.Sub(s.Center)
	l := d.Len()
	if l == 0 {
		return Hit{}, false
	}
	n := d.Mul(1 / l)
	return Hit{Point: s.Center.Add(n.Mul(s.Radius)), Normal: n}, true
}

func raycastCuboid(c *Cuboid, from, to mgl32.Vec3) (Hit, float32, bool) {
	if c.Bounds.ContainsVec(from) {
		if !c.Bounds.ContainsVec(to) {
			return Hit{}, 0, false
		}
		return cuboidSurface(c, to), 0, true
	}

	// Slab test for the entering parameter.
	d := to.Sub(from)
	tNear, tFar := float32(0), float32(1)
	axis := -1
	var sign float32
	for a := 0; a < 3; a++ {
		if d[a] == 0 {
			if from[a] < c.Bounds.Min[a] || from[a] > c.Bounds.Max[a] {
				return Hit{}, 0, false
			}
			continue
		}
		inv := 1 / d[a]
		t0 := (c.Bounds.Min[a] - from[a]) * inv
		t1 := (c.Bounds.Max[a] - from[a]) * inv
		s := float32(-1) // entering through the min face
		if t0 > t1 {
			t0, t1 = t1, t0
			s = 1
		}
		if t0 > tNear {
			tNear, axis, sign = t0, a, s
		}
		tFar = min(tFar, t1)
		if tNear > tFar {
			return Hit{}, 0, false
		}
	}
	if axis < 0 {
		return Hit{}, 0, false
	}
	return Hit{Point: lerp(from, to, tNear), Normal: axisNormal(axis, sign)}, tNear, true
}

// cuboidSurface returns the nearest face point of an interior point p.
func cuboidSurface(c *Cuboid, p mgl32.Vec3) Hit {
	best := float32(math.Inf(1))
	axis, sign := 0, float32(1)
	for a := 0; a < 3; a++ {
		if d := p[a] - c.Bounds.Min[a]; d < best {
			best, axis, sign = d, a, -1
		}
		if d := c.Bounds.Max[a] - p[a]; d < best {
			best, axis, sign = d, a, 1
		}
	}
	point := p
	if sign < 0 {
		point[axis] = c.Bounds.Min[axis]
	} else {
		point[axis] = c.Bounds.Max[axis]
	}
	if !c.Bounds.ContainsVec(p) {
		point = c.Bounds.Clamp(p)
	}
	return Hit{Point: point, Normal: axisNormal(axis, sign)}
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
