package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/grain/particles"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete particle state for replay.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id,omitempty"`
	Seed    uint64 `json:"seed"`
	Step    int64  `json:"step"`

	Particles []ParticleState `json:"particles"`
	Bonds     [][2]int32      `json:"bonds,omitempty"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState holds one particle's committed state.
type ParticleState struct {
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	Z  float32 `json:"z"`
	VX float32 `json:"vx"`
	VY float32 `json:"vy"`
	VZ float32 `json:"vz"`

	InvMass float32 `json:"inv_mass"`
	Radius  float32 `json:"radius"`

	StaticFriction  float32 `json:"static_friction"`
	DynamicFriction float32 `json:"dynamic_friction"`
	Cohesion        float32 `json:"cohesion"`
}

// NewSnapshot captures the live particles and bonds of p.
func NewSnapshot(p *particles.Set, step int64) *Snapshot {
	snap := &Snapshot{
		Version:   SnapshotVersion,
		Step:      step,
		Particles: make([]ParticleState, p.Len()),
	}
	for i := range snap.Particles {
		snap.Particles[i] = ParticleState{
			X:               p.PX[i],
			Y:               p.PY[i],
			Z:               p.PZ[i],
			VX:              p.VX[i],
			VY:              p.VY[i],
			VZ:              p.VZ[i],
			InvMass:         p.InvMass[i],
			Radius:          p.Radius[i],
			StaticFriction:  p.StaticFriction[i],
			DynamicFriction: p.DynamicFriction[i],
			Cohesion:        p.Cohesion[i],
		}
	}
	p.Bonds.Each(func(b particles.Bond) {
		snap.Bonds = append(snap.Bonds, [2]int32{b.I, b.J})
	})
	return snap
}

// Restore rebuilds a particle set from the snapshot. Bonds referencing
// particles outside the snapshot are dropped.
func (s *Snapshot) Restore() *particles.Set {
	n := len(s.Particles)
	p := particles.New(n)
	for i, ps := range s.Particles {
		p.SetPosition(i, ps.X, ps.Y, ps.Z)
		p.SetVelocity(i, ps.VX, ps.VY, ps.VZ)
		p.InvMass[i] = ps.InvMass
		p.Radius[i] = ps.Radius
		p.StaticFriction[i] = ps.StaticFriction
		p.DynamicFriction[i] = ps.DynamicFriction
		p.Cohesion[i] = ps.Cohesion
	}
	for _, b := range s.Bonds {
		if b[0] >= 0 && b[1] >= 0 && int(b[0]) < n && int(b[1]) < n {
			p.Bonds.Add(int(b[0]), int(b[1]))
		}
	}
	return p
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Step)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Step, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}

	return &snapshot, nil
}
