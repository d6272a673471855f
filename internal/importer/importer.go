// Package importer opens mesh assets and exposes their indexed vertex
// attributes. It does not interpret the attributes; that is left to the
// instance mesh pipeline.
package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Importer errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrNotOpen           = errors.New("no asset open")
	ErrNoMesh            = errors.New("mesh not found")
	ErrMissingAttribute  = errors.New("missing attribute")
	ErrFormatMismatch    = errors.New("attribute format mismatch")
	ErrAttributeLength   = errors.New("attribute length does not match vertex count")
	ErrNotTriangles      = errors.New("mesh is not a triangle list")
)

// Importer opens one asset at a time and yields its meshes.
type Importer interface {
	// OpenAsset opens the asset at path, closing any previously open asset.
	OpenAsset(path string) error
	// MeshCount returns the number of meshes in the open asset.
	MeshCount() int
	// ReadMesh returns mesh index of the open asset.
	ReadMesh(index int) (*MeshData, error)
	// Close releases the open asset.
	Close() error
}

// FrameHint is implemented by backends whose file format fixes the
// coordinate frame. The returned directions replace the configured native
// frame of the pipeline.
type FrameHint interface {
	NativeFrame() (gravity, front mgl32.Vec3)
}

// Factory creates a fresh importer backend.
type Factory func() Importer

var backends = map[string]Factory{
	".ply":  func() Importer { return NewPLYImporter() },
	".gltf": func() Importer { return NewGLTFImporter() },
	".glb":  func() Importer { return NewGLTFImporter() },
}

// ForPath returns an importer suited to the file extension of path.
func ForPath(path string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	factory, ok := backends[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return factory(), nil
}

// Extensions returns the file extensions with a registered backend.
func Extensions() []string {
	exts := make([]string, 0, len(backends))
	for ext := range backends {
		exts = append(exts, ext)
	}
	return exts
}
