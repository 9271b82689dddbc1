package particles

// Material is a named bundle of surface coefficients. The solver never reads
// materials directly; they only fill a particle range's friction and
// cohesion columns.
type Material struct {
	Name            string  `yaml:"name"`
	StaticFriction  float32 `yaml:"static_friction"`
	DynamicFriction float32 `yaml:"dynamic_friction"`
	Cohesion        float32 `yaml:"cohesion"`
}

// Built-in presets.
var (
	DrySand = Material{Name: "dry_sand", StaticFriction: 0.6, DynamicFriction: 0.4, Cohesion: 0}
	WetSand = Material{Name: "wet_sand", StaticFriction: 0, DynamicFriction: 0, Cohesion: 0.02}
	Dough   = Material{Name: "dough", StaticFriction: 0.05, DynamicFriction: 1, Cohesion: 0.8}
)

// Presets returns the built-in materials in a fixed order.
func Presets() []Material {
	return []Material{DrySand, WetSand, Dough}
}

// ApplyMaterial fills particles [from, to) with the material's coefficients.
func (s *Set) ApplyMaterial(m Material, from, to int) {
	fill(s.StaticFriction[from:to], m.StaticFriction)
	fill(s.DynamicFriction[from:to], m.DynamicFriction)
	fill(s.Cohesion[from:to], m.Cohesion)
}

// ApplyMaterialAll fills every live particle with the material's coefficients.
func (s *Set) ApplyMaterialAll(m Material) {
	s.ApplyMaterial(m, 0, s.size)
}
