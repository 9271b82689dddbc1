package solver

import (
	"fmt"
	"testing"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/grain/broadphase"
	"github.com/pthm-cable/grain/collide"
	"github.com/pthm-cable/grain/geom"
	"github.com/pthm-cable/grain/particles"
	"github.com/pthm-cable/grain/scenario"
)

// Benchmark prediction with a scalar loop
func BenchmarkPredictScalar(b *testing.B) {
	size := 10000
	pos := make([]float32, size)
	vel := make([]float32, size)
	target := make([]float32, size)
	for i := range pos {
		pos[i] = float32(i) * 0.001
		vel[i] = float32(i) * 0.002
	}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := range target {
			target[i] = pos[i] + vel[i]*dt
		}
	}
}

// Benchmark prediction with blas32, as the solver does it
func BenchmarkPredictBLAS(b *testing.B) {
	size := 10000
	pos := make([]float32, size)
	vel := make([]float32, size)
	target := make([]float32, size)
	for i := range pos {
		pos[i] = float32(i) * 0.001
		vel[i] = float32(i) * 0.002
	}

	// Pre-create vectors (reused each iteration)
	vPos := blas32.Vector{N: size, Inc: 1, Data: pos}
	vVel := blas32.Vector{N: size, Inc: 1, Data: vel}
	vTarget := blas32.Vector{N: size, Inc: 1, Data: target}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		blas32.Copy(vPos, vTarget)     // target = pos
		blas32.Axpy(dt, vVel, vTarget) // target = pos + dt*vel
	}
}

// Benchmark a full step of a settling cloud
func BenchmarkStep(b *testing.B) {
	bounds := geom.NewAABB(-1, 0, -1, 1, 2, 1)
	for _, n := range []int{1250, 5000, 20000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			p := scenario.Cloud(n, bounds, 0.01, scenario.NewRand(51465))
			p.ApplyMaterialAll(particles.DrySand)
			s := New(p, nil,
				NewContactSolver(broadphase.NewHashGrid(0.02), 1),
				NewRigidContactSolver(collide.NewBox(bounds)),
				testConfig(),
			)

			b.ResetTimer()
			for range b.N {
				s.Step(dt)
			}
		})
	}
}
