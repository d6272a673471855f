package gpu

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
	"github.com/Faultbox/instancemesh/internal/logger"
)

// glMesh holds the GL objects of one uploaded mesh.
type glMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
	mode          uint32
}

// Backend creates vertex array objects for instance meshes. It implements
// instancemesh.RenderBackend and must be used on the thread owning the
// GL context.
type Backend struct {
	meshes map[instancemesh.RenderHandle]*glMesh
	next   instancemesh.RenderHandle
}

// NewBackend creates an empty backend. A current GL context is required
// before meshes are created.
func NewBackend() *Backend {
	return &Backend{meshes: make(map[instancemesh.RenderHandle]*glMesh)}
}

// CreateMesh uploads an interleaved vertex buffer and an index buffer into a
// new vertex array object.
func (b *Backend) CreateMesh(vertices []byte, layout instancemesh.VertexLayout, indices []uint32, primitive instancemesh.PrimitiveType) (instancemesh.RenderHandle, error) {
	mode, err := glPrimitive(primitive)
	if err != nil {
		return 0, err
	}
	for _, attr := range layout.Attributes {
		if _, err := glComponentType(attr.Type); err != nil {
			return 0, fmt.Errorf("attribute %s: %w", attr.Name, err)
		}
	}

	m := &glMesh{indexCount: int32(len(indices)), mode: mode}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices), unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)
	}

	stride := int32(layout.Stride)
	for _, attr := range layout.Attributes {
		xtype, _ := glComponentType(attr.Type)
		if attr.Integer {
			gl.VertexAttribIPointerWithOffset(attr.Location, int32(attr.Components), xtype, stride, uintptr(attr.Offset))
		} else {
			gl.VertexAttribPointerWithOffset(attr.Location, int32(attr.Components), xtype, attr.Normalized, stride, uintptr(attr.Offset))
		}
		gl.EnableVertexAttribArray(attr.Location)
	}

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		b.deleteGL(m)
		return 0, fmt.Errorf("GL error 0x%x during upload", code)
	}

	b.next++
	b.meshes[b.next] = m
	logger.Debug("mesh uploaded",
		zap.Uint64("handle", uint64(b.next)),
		zap.Int("vertexBytes", len(vertices)),
		zap.Int("indices", len(indices)))
	return b.next, nil
}

// DeleteMesh releases the GL objects behind handle. Unknown handles are
// ignored.
func (b *Backend) DeleteMesh(handle instancemesh.RenderHandle) {
	m, ok := b.meshes[handle]
	if !ok {
		return
	}
	b.deleteGL(m)
	delete(b.meshes, handle)
}

// Draw issues one indexed draw call for handle with whatever program is
// bound.
func (b *Backend) Draw(handle instancemesh.RenderHandle) error {
	m, ok := b.meshes[handle]
	if !ok {
		return fmt.Errorf("unknown render handle %d", handle)
	}
	gl.BindVertexArray(m.vao)
	gl.DrawElementsWithOffset(m.mode, m.indexCount, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
	return nil
}

// Len returns the number of live meshes.
func (b *Backend) Len() int {
	return len(b.meshes)
}

// Destroy releases every mesh.
func (b *Backend) Destroy() {
	for h, m := range b.meshes {
		b.deleteGL(m)
		delete(b.meshes, h)
	}
}

func (b *Backend) deleteGL(m *glMesh) {
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
	}
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
	}
}

func glPrimitive(p instancemesh.PrimitiveType) (uint32, error) {
	switch p {
	case instancemesh.PrimitiveTriangles:
		return gl.TRIANGLES, nil
	default:
		return 0, fmt.Errorf("unsupported primitive %v", p)
	}
}

func glComponentType(t instancemesh.ComponentType) (uint32, error) {
	switch t {
	case instancemesh.ComponentFloat32:
		return gl.FLOAT, nil
	case instancemesh.ComponentUint8:
		return gl.UNSIGNED_BYTE, nil
	case instancemesh.ComponentUint16:
		return gl.UNSIGNED_SHORT, nil
	default:
		return 0, fmt.Errorf("unsupported component type %d", t)
	}
}
