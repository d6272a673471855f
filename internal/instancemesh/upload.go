package instancemesh

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Interleaved vertex layout: position (3 x float32), color (3 x uint8 plus
// one pad byte), object id (uint16 plus two pad bytes). Little endian.
const (
	VertexStride   = 20
	positionOffset = 0
	colorOffset    = 12
	objectIDOffset = 16
)

// ComponentType is the scalar type of a vertex attribute component.
type ComponentType int

// Component types used by the interleaved layout.
const (
	ComponentFloat32 ComponentType = iota
	ComponentUint8
	ComponentUint16
)

// VertexAttribute describes one attribute inside an interleaved buffer.
type VertexAttribute struct {
	Name       string
	Location   uint32
	Components int
	Type       ComponentType
	Normalized bool
	// Integer attributes are bound without float conversion.
	Integer bool
	Offset  int
}

// VertexLayout describes an interleaved vertex buffer.
type VertexLayout struct {
	Stride     int
	Attributes []VertexAttribute
}

// InterleavedLayout is the layout produced by Interleave.
var InterleavedLayout = VertexLayout{
	Stride: VertexStride,
	Attributes: []VertexAttribute{
		{Name: "position", Location: 0, Components: 3, Type: ComponentFloat32, Offset: positionOffset},
		{Name: "color", Location: 1, Components: 3, Type: ComponentUint8, Normalized: true, Offset: colorOffset},
		{Name: "objectId", Location: 2, Components: 1, Type: ComponentUint16, Integer: true, Offset: objectIDOffset},
	},
}

// RenderHandle identifies a mesh created by a RenderBackend.
type RenderHandle uint64

// RenderBackend creates device-side meshes. Implementations must be called on
// the thread that owns the rendering context.
type RenderBackend interface {
	CreateMesh(vertices []byte, layout VertexLayout, indices []uint32, primitive PrimitiveType) (RenderHandle, error)
	DeleteMesh(handle RenderHandle)
}

type gpuState struct {
	backend RenderBackend
	handle  RenderHandle
}

// Interleave packs parallel position, color and object id buffers into one
// VertexStride-wide buffer.
func Interleave(positions []mgl32.Vec3, colors [][3]uint8, objectIDs []uint16) []byte {
	buf := make([]byte, len(positions)*VertexStride)
	for i, p := range positions {
		v := buf[i*VertexStride : (i+1)*VertexStride]
		binary.LittleEndian.PutUint32(v[positionOffset:], gomath.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(v[positionOffset+4:], gomath.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(v[positionOffset+8:], gomath.Float32bits(p[2]))
		copy(v[colorOffset:colorOffset+3], colors[i][:])
		binary.LittleEndian.PutUint16(v[objectIDOffset:], objectIDs[i])
	}
	return buf
}

// Upload hands the interleaved buffers to backend. It is a no-op when a
// previous upload succeeded, unless forceReload is set, in which case the
// old device mesh is released first. A failed upload leaves the mesh without
// a render handle.
func (m *InstanceMesh) Upload(backend RenderBackend, forceReload bool) error {
	if m.gpu != nil && !forceReload {
		return nil
	}
	m.Release()
	m.updateCollisionView()

	vertices := Interleave(m.vertexBuffer, m.colorBuffer, m.objectIDBuffer)
	handle, err := backend.CreateMesh(vertices, InterleavedLayout, m.indexBuffer, PrimitiveTriangles)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", m.name, err)
	}
	m.gpu = &gpuState{backend: backend, handle: handle}
	return nil
}

// RenderHandle returns the device mesh handle. ok is false until an upload
// has succeeded.
func (m *InstanceMesh) RenderHandle() (handle RenderHandle, ok bool) {
	if m.gpu == nil {
		return 0, false
	}
	return m.gpu.handle, true
}

// Uploaded reports whether a device copy exists.
func (m *InstanceMesh) Uploaded() bool {
	return m.gpu != nil
}

// Release deletes the device copy, if any.
func (m *InstanceMesh) Release() {
	if m.gpu == nil {
		return
	}
	m.gpu.backend.DeleteMesh(m.gpu.handle)
	m.gpu = nil
}
