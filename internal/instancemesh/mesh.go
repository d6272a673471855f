package instancemesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	pkgmath "github.com/Faultbox/instancemesh/pkg/math"
)

// PrimitiveType identifies how an index buffer is assembled.
type PrimitiveType int

// Supported primitive types.
const (
	PrimitiveTriangles PrimitiveType = iota
)

// String returns the primitive name.
func (p PrimitiveType) String() string {
	if p == PrimitiveTriangles {
		return "triangles"
	}
	return fmt.Sprintf("PrimitiveType(%d)", int(p))
}

// CollisionView is a read-only view over a mesh's positions and indices for
// physics. It aliases the mesh storage and is rebuilt whenever the buffers
// are replaced.
type CollisionView struct {
	Primitive PrimitiveType
	Positions []mgl32.Vec3
	Indices   []uint32
}

// TriangleCount returns the number of triangles in the view.
func (v CollisionView) TriangleCount() int {
	return len(v.Indices) / 3
}

// InstanceMesh owns the CPU-side buffers of one renderable mesh and tracks
// whether a GPU copy exists.
type InstanceMesh struct {
	name string

	vertexBuffer   []mgl32.Vec3
	colorBuffer    [][3]uint8
	objectIDBuffer []uint16
	indexBuffer    []uint32

	// objectID is set on meshes produced by splitting.
	objectID    uint16
	hasObjectID bool

	collision CollisionView
	gpu       *gpuState
}

// NewInstanceMesh builds a mesh from parallel per-vertex buffers and a
// triangle list. The slices are retained, not copied.
func NewInstanceMesh(name string, positions []mgl32.Vec3, colors [][3]uint8, objectIDs []uint16, indices []uint32) (*InstanceMesh, error) {
	m := &InstanceMesh{name: name}
	if err := m.SetBuffers(positions, colors, objectIDs, indices); err != nil {
		return nil, err
	}
	return m, nil
}

// SetBuffers replaces all CPU-side storage and rebuilds the collision view.
// A GPU copy, if any, is left untouched; upload again with forceReload to
// refresh it.
func (m *InstanceMesh) SetBuffers(positions []mgl32.Vec3, colors [][3]uint8, objectIDs []uint16, indices []uint32) error {
	n := len(positions)
	if len(colors) != n || len(objectIDs) != n {
		return fmt.Errorf("%w: %d positions, %d colors, %d object ids",
			ErrBufferLength, n, len(colors), len(objectIDs))
	}
	for i, idx := range indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at position %d, vertex count %d",
				ErrIndexOutOfRange, idx, i, n)
		}
	}

	m.vertexBuffer = positions
	m.colorBuffer = colors
	m.objectIDBuffer = objectIDs
	m.indexBuffer = indices
	m.updateCollisionView()
	return nil
}

// updateCollisionView points the collision view at the current buffers.
func (m *InstanceMesh) updateCollisionView() {
	m.collision = CollisionView{
		Primitive: PrimitiveTriangles,
		Positions: m.vertexBuffer,
		Indices:   m.indexBuffer,
	}
}

// Name returns the asset path or label the mesh was built from.
func (m *InstanceMesh) Name() string { return m.name }

// Positions returns the vertex positions. Callers must not modify them.
func (m *InstanceMesh) Positions() []mgl32.Vec3 { return m.vertexBuffer }

// Colors returns the per-vertex RGB colors.
func (m *InstanceMesh) Colors() [][3]uint8 { return m.colorBuffer }

// ObjectIDs returns the per-vertex object ids.
func (m *InstanceMesh) ObjectIDs() []uint16 { return m.objectIDBuffer }

// Indices returns the triangle list.
func (m *InstanceMesh) Indices() []uint32 { return m.indexBuffer }

// VertexCount returns the number of vertices.
func (m *InstanceMesh) VertexCount() int { return len(m.vertexBuffer) }

// TriangleCount returns the number of triangles.
func (m *InstanceMesh) TriangleCount() int { return len(m.indexBuffer) / 3 }

// CollisionView returns the physics view of the mesh.
func (m *InstanceMesh) CollisionView() CollisionView { return m.collision }

// ObjectID returns the object id shared by every vertex when the mesh came
// from splitting. ok is false for whole-asset meshes.
func (m *InstanceMesh) ObjectID() (id uint16, ok bool) {
	return m.objectID, m.hasObjectID
}

// Bounds returns the axis-aligned bounds of the vertex positions.
func (m *InstanceMesh) Bounds() pkgmath.Bounds {
	return pkgmath.BoundsOf(m.vertexBuffer)
}

// DistinctObjectIDs returns the number of distinct ids carried by the
// vertices.
func (m *InstanceMesh) DistinctObjectIDs() int {
	seen := make(map[uint16]struct{})
	for _, id := range m.objectIDBuffer {
		seen[id] = struct{}{}
	}
	return len(seen)
}
