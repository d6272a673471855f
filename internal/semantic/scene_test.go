package semantic

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	pkgmath "github.com/Faultbox/instancemesh/pkg/math"
)

const house = `{
  "classes": [
    {"id": 1, "name": "chair"},
    {"id": 2, "name": "table"},
    {"id": 20000, "name": "overflow"}
  ],
  "objects": [
    {
      "id": 5, "class_id": 2,
      "oriented_bbox": {
        "abb": {"center": [1, 0, 0], "sizes": [2, 2, 2]},
        "orientation": {"translation": [0, 0, 3], "rotation": [0, 0, 0, 1]}
      }
    },
    {
      "id": 7, "class_id": 42,
      "oriented_bbox": {
        "abb": {"center": [0, 0, 0], "sizes": [1, 1, 1]},
        "orientation": {"translation": [0, 0, 0], "rotation": [0, 0, 0, 1]}
      }
    },
    {
      "id": 12000, "class_id": 1,
      "oriented_bbox": {
        "abb": {"center": [0, 0, 0], "sizes": [1, 1, 1]},
        "orientation": {"translation": [0, 0, 0], "rotation": [0, 0, 0, 1]}
      }
    }
  ]
}`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(house), mgl32.QuatIdent())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.CategoryCount() != 2 {
		t.Errorf("categories = %d, want 2 (overflow skipped)", s.CategoryCount())
	}
	if s.ObjectCount() != 2 {
		t.Errorf("objects = %d, want 2 (overflow skipped)", s.ObjectCount())
	}

	name, ok := s.Category(5)
	if !ok || name != "table" {
		t.Errorf("Category(5) = %q, %v", name, ok)
	}
	if _, ok := s.Category(7); ok {
		t.Error("object with unknown class should have no category")
	}
	if _, ok := s.Category(99); ok {
		t.Error("missing object should have no category")
	}

	obj, _ := s.Object(5)
	if !pkgmath.ApproxEqualVec3(obj.Box.Center, mgl32.Vec3{1, 0, 3}, 1e-5) {
		t.Errorf("box center = %v", obj.Box.Center)
	}
	if !obj.Box.Contains(mgl32.Vec3{1.5, 0.5, 3.5}) || obj.Box.Contains(mgl32.Vec3{3, 0, 3}) {
		t.Error("Contains mismatch")
	}
}

func TestParseWorldRotation(t *testing.T) {
	world := pkgmath.RotationBetween(mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0})
	s, err := Parse([]byte(house), world)
	if err != nil {
		t.Fatal(err)
	}
	obj, _ := s.Object(5)
	want := world.Rotate(mgl32.Vec3{1, 0, 3})
	if !pkgmath.ApproxEqualVec3(obj.Box.Center, want, 1e-5) {
		t.Errorf("box center = %v, want %v", obj.Box.Center, want)
	}
	if !obj.Box.Contains(want) {
		t.Error("rotated box should contain its center")
	}
}

func TestParseCategoriesOnly(t *testing.T) {
	s, err := Parse([]byte(`{"classes": [{"id": 0, "name": "wall"}]}`), mgl32.QuatIdent())
	if err != nil {
		t.Fatal(err)
	}
	if s.ObjectCount() != 0 || s.CategoryCount() != 1 {
		t.Errorf("counts = %d/%d", s.CategoryCount(), s.ObjectCount())
	}
	if c, ok := s.CategoryByID(0); !ok || c.Name != "wall" {
		t.Errorf("CategoryByID(0) = %v, %v", c, ok)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"no classes", `{"objects": []}`, ErrNoClasses},
		{"bad rotation", `{"classes": [], "objects": [{"id": 1, "class_id": 0,
			"oriented_bbox": {"orientation": {"rotation": [0, 0, 1]}}}]}`, ErrBadRotation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), mgl32.QuatIdent()); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := Parse([]byte("{"), mgl32.QuatIdent()); err == nil {
		t.Error("expected JSON error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info_semantic.json")
	if err := os.WriteFile(path, []byte(house), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path, mgl32.QuatIdent())
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if s.ObjectCount() != 2 {
		t.Errorf("objects = %d", s.ObjectCount())
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), mgl32.QuatIdent()); err == nil {
		t.Error("expected error for missing file")
	}
}
