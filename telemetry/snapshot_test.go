package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/grain/particles"
)

func testSet() *particles.Set {
	p := particles.New(3)
	for i := 0; i < 3; i++ {
		p.SetPosition(i, float32(i), 2*float32(i), -float32(i))
		p.SetVelocity(i, 0.5, -0.25, float32(i))
	}
	p.FillRadius(0, 3, 0.1)
	p.FillInvMass(1, 3, 2)
	p.ApplyMaterialAll(particles.Dough)
	p.Bonds.Add(0, 1)
	p.Bonds.Add(2, 1)
	return p
}

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := NewSnapshot(testSet(), 1000)
	snapshot.Seed = 42
	snapshot.Bookmark = &Bookmark{
		Type:        BookmarkSettled,
		Step:        1000,
		Description: "Test bookmark",
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if filepath.Base(path) != "snapshot_1000_settled.json" {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Seed != 42 || loaded.Step != 1000 {
		t.Errorf("header = seed %d step %d", loaded.Seed, loaded.Step)
	}
	if len(loaded.Particles) != 3 || len(loaded.Bonds) != 2 {
		t.Fatalf("loaded %d particles %d bonds", len(loaded.Particles), len(loaded.Bonds))
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkSettled {
		t.Errorf("bookmark = %+v", loaded.Bookmark)
	}
}

func TestSnapshotRestore(t *testing.T) {
	orig := testSet()
	p := NewSnapshot(orig, 7).Restore()

	if p.Len() != orig.Len() {
		t.Fatalf("len = %d, want %d", p.Len(), orig.Len())
	}
	for i := 0; i < p.Len(); i++ {
		x, y, z := p.Position(i)
		ox, oy, oz := orig.Position(i)
		if x != ox || y != oy || z != oz {
			t.Errorf("particle %d at (%v, %v, %v), want (%v, %v, %v)", i, x, y, z, ox, oy, oz)
		}
		// Restored sets start a substep cleanly
		if p.PrevY[i] != y || p.TY[i] != y {
			t.Errorf("particle %d prev/predicted not reset", i)
		}
		vx, vy, vz := p.Velocity(i)
		ovx, ovy, ovz := orig.Velocity(i)
		if vx != ovx || vy != ovy || vz != ovz {
			t.Errorf("particle %d velocity mismatch", i)
		}
		if p.InvMass[i] != orig.InvMass[i] || p.Radius[i] != orig.Radius[i] || p.Cohesion[i] != orig.Cohesion[i] {
			t.Errorf("particle %d properties mismatch", i)
		}
	}
	if !p.Bonds.Has(0, 1) || !p.Bonds.Has(1, 2) || p.Bonds.Len() != 2 {
		t.Errorf("bonds not restored, len %d", p.Bonds.Len())
	}
}

func TestSnapshotRestoreDropsDanglingBonds(t *testing.T) {
	snap := &Snapshot{
		Version:   SnapshotVersion,
		Particles: make([]ParticleState, 2),
		Bonds:     [][2]int32{{0, 1}, {1, 5}, {-1, 0}},
	}
	if p := snap.Restore(); p.Bonds.Len() != 1 {
		t.Errorf("bonds = %d, want 1", p.Bonds.Len())
	}
}

func TestLoadSnapshotErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadSnapshot(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(bad); err == nil {
		t.Error("expected error for malformed json")
	}

	data, _ := json.Marshal(Snapshot{Version: SnapshotVersion + 1})
	future := filepath.Join(dir, "future.json")
	if err := os.WriteFile(future, data, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadSnapshot(future)
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("err = %v, want version error", err)
	}
}
