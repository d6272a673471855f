package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
)

const quadPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
property uchar red
property uchar green
property uchar blue
property int object_id
element face 2
property list uchar int vertex_indices
end_header
0 0 0 255 0 0 1
1 0 0 255 0 0 1
1 1 0 0 255 0 2
0 1 0 0 255 0 2
3 0 1 2
3 0 2 3
`

func writeAsset(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(quadPLY), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestManagerResolvePriority(t *testing.T) {
	low, high := t.TempDir(), t.TempDir()
	writeAsset(t, low, "room.ply")
	writeAsset(t, high, "room.ply")

	m := NewManager(instancemesh.DefaultOptions())
	if err := m.AddSearchPath(low); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSearchPath(high); err != nil {
		t.Fatal(err)
	}

	got, err := m.Resolve("room.ply")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != filepath.Join(high, "room.ply") {
		t.Errorf("resolved %s, want the last added directory", got)
	}

	if _, err := m.Resolve("missing.ply"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerAddSearchPathRejectsFile(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "room.ply")

	m := NewManager(instancemesh.DefaultOptions())
	if err := m.AddSearchPath(filepath.Join(dir, "room.ply")); err == nil {
		t.Error("expected error for non-directory search path")
	}
	if err := m.AddSearchPath(filepath.Join(dir, "nope")); err == nil {
		t.Error("expected error for missing search path")
	}
}

func TestManagerLoadCaches(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "room.ply")

	m := NewManager(instancemesh.DefaultOptions())
	m.AddSearchPath(dir)
	defer m.Close()

	first, err := m.Load("room.ply")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(first) != 2 {
		t.Errorf("expected 2 meshes from split, got %d", len(first))
	}
	second, err := m.Load("room.ply")
	if err != nil {
		t.Fatal(err)
	}
	if first[0] != second[0] {
		t.Error("second load should come from cache")
	}

	hits, misses, entries := m.Stats()
	if hits != 1 || misses != 1 || entries != 1 {
		t.Errorf("stats = %d hits, %d misses, %d entries", hits, misses, entries)
	}

	m.Evict("room.ply")
	if _, _, entries := m.Stats(); entries != 0 {
		t.Errorf("entries after evict = %d", entries)
	}
}

func TestManagerLoadFailureNotCached(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.ply"), []byte("not a ply"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(instancemesh.DefaultOptions())
	m.AddSearchPath(dir)

	if _, err := m.Load("broken.ply"); !errors.Is(err, instancemesh.ErrNoMesh) {
		t.Errorf("expected ErrNoMesh, got %v", err)
	}
	if _, _, entries := m.Stats(); entries != 0 {
		t.Errorf("failed load was cached")
	}
}
