package gpu

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
	pkgmath "github.com/Faultbox/instancemesh/pkg/math"
)

func TestComponentTypes(t *testing.T) {
	for _, attr := range instancemesh.InterleavedLayout.Attributes {
		if _, err := glComponentType(attr.Type); err != nil {
			t.Errorf("attribute %s: %v", attr.Name, err)
		}
	}
	if _, err := glComponentType(instancemesh.ComponentType(99)); err == nil {
		t.Error("expected error for unknown component type")
	}
	if _, err := glPrimitive(instancemesh.PrimitiveType(42)); err == nil {
		t.Error("expected error for unknown primitive")
	}
}

func TestShaderLocationsMatchLayout(t *testing.T) {
	want := map[string]string{
		"position": "layout(location = 0) in vec3 aPosition;",
		"color":    "layout(location = 1) in vec3 aColor;",
		"objectId": "layout(location = 2) in uint aObjectId;",
	}
	for _, attr := range instancemesh.InterleavedLayout.Attributes {
		decl, ok := want[attr.Name]
		if !ok {
			t.Errorf("unexpected attribute %s", attr.Name)
			continue
		}
		if !strings.Contains(idVertexShader, decl) {
			t.Errorf("shader lacks %q", decl)
		}
	}
}

func TestCountIDs(t *testing.T) {
	pixels := []byte{
		0x34, 0x12, 0, 255,
		0x34, 0x12, 0, 255,
		255, 255, 255, 0, // background
		7, 0, 0, 255,
	}
	counts := CountIDs(pixels)
	if counts[0x1234] != 2 || counts[7] != 1 || len(counts) != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func TestFitViewProj(t *testing.T) {
	if FitViewProj(pkgmath.EmptyBounds(), mgl32.Vec3{0, -1, 0}) != mgl32.Ident4() {
		t.Error("empty bounds should give identity")
	}
	b := pkgmath.Bounds{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	m := FitViewProj(b, mgl32.Vec3{0, -1, 0})
	c := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if mgl32.Abs(c[0]) > 1e-4 || mgl32.Abs(c[1]) > 1e-4 {
		t.Errorf("bounds center projects to %v, want screen center", c)
	}
}

func TestSaveImage(t *testing.T) {
	// 1x2 image: bottom row red, top row blue.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	for _, name := range []string{"ids.png", "ids.bmp"} {
		path := filepath.Join(t.TempDir(), "shots", name)
		if err := SaveImage(path, pixels, 1, 2); err != nil {
			t.Fatalf("%s: SaveImage failed: %v", name, err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		var img image.Image
		if name == "ids.bmp" {
			img, err = bmp.Decode(f)
		} else {
			img, err = png.Decode(f)
		}
		f.Close()
		if err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		r, _, b, _ := img.At(0, 0).RGBA()
		if b>>8 != 255 || r != 0 {
			t.Errorf("%s: top row should be blue, got r=%d b=%d", name, r>>8, b>>8)
		}
	}

	if err := SaveImage(filepath.Join(t.TempDir(), "bad.png"), pixels, 2, 2); err == nil {
		t.Error("expected size mismatch error")
	}
}
