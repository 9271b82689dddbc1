package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/grain/broadphase"
	"github.com/pthm-cable/grain/collide"
	"github.com/pthm-cable/grain/config"
	"github.com/pthm-cable/grain/constraints"
	"github.com/pthm-cable/grain/geom"
	"github.com/pthm-cable/grain/particles"
	"github.com/pthm-cable/grain/scenario"
)

// sceneBounds is the container shared by every scene.
var sceneBounds = geom.NewAABB(-1, 0, -1, 1, 2, 1)

// Scene names accepted by -scene.
const (
	SceneCloud  = "cloud"
	SceneLayers = "layers"
	SceneNoodle = "noodle"

	// SceneObstacles drops a cloud onto a ball and a block inside the box.
	SceneObstacles = "obstacles"
)

// sceneOptions parameterizes buildScene.
type sceneOptions struct {
	Name      string
	Particles int
	Radius    float32
	Material  particles.Material
	Seed      uint64
}

// buildScene creates the initial particles and constraints of a named scene.
func buildScene(opt sceneOptions) (*particles.Set, *constraints.Set, error) {
	if opt.Particles < 1 {
		return nil, nil, fmt.Errorf("scene %q needs at least one particle", opt.Name)
	}
	rng := scenario.NewRand(opt.Seed)

	switch opt.Name {
	case SceneCloud, SceneObstacles:
		p := scenario.Cloud(opt.Particles, sceneBounds, opt.Radius, rng)
		p.ApplyMaterialAll(opt.Material)
		return p, nil, nil

	case SceneLayers:
		// Light and heavy fluid mixed through the lower half of the box
		lower := geom.NewAABB(-1, 0, -1, 1, 1, 1)
		light := scenario.FluidLayer(opt.Particles/2, lower, opt.Radius, 1, rng)
		heavy := scenario.FluidLayer(opt.Particles-opt.Particles/2, lower, opt.Radius, 4, rng)
		return particles.Merge(light, heavy), nil, nil

	case SceneNoodle:
		span := sceneBounds.Delta().X() * 0.9
		seg := span / float32(max(opt.Particles, 2))
		p, cs := scenario.Noodle(scenario.NoodleOptions{
			Count:         opt.Particles,
			SegmentLength: seg,
			Radius:        seg / 2,
			Origin:        mgl32.Vec3{-span / 2, 1.5, 0},
			FixedFirst:    true,
			Stiffness:     60,
			Bending:       10,
		})
		p.ApplyMaterialAll(opt.Material)
		return p, cs, nil
	}
	return nil, nil, fmt.Errorf("unknown scene %q", opt.Name)
}

// sceneWorld returns the rigid geometry of a named scene.
func sceneWorld(name string) collide.World {
	box := collide.NewBox(sceneBounds)
	if name != SceneObstacles {
		return box
	}
	solids := collide.NewScene()
	solids.AddSphere(mgl32.Vec3{0, 0.5, 0}, 0.3)
	solids.AddCuboid(geom.NewAABB(-0.9, 0, -0.9, -0.5, 0.4, -0.5))
	return collide.Group{box, solids}
}

// maxRadius returns the largest particle radius in p.
func maxRadius(p *particles.Set) float32 {
	var r float32
	for i := 0; i < p.Len(); i++ {
		r = max(r, p.Radius[i])
	}
	return r
}

// sceneBroadphase sizes grid cells to at least one particle diameter and
// fits a dense grid to the scene box.
func sceneBroadphase(bp config.BroadphaseConfig, p *particles.Set) config.BroadphaseConfig {
	bp.CellSize = max(bp.CellSize, 2*float64(maxRadius(p)))
	if bp.Kind == broadphase.KindDense {
		bp.Bounds = config.BoundsFromAABB(sceneBounds)
	}
	return bp
}
