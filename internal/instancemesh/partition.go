package instancemesh

import (
	"github.com/go-gl/mathgl/mgl32"
)

// perObjectBuilder accumulates the sub-mesh of one object id, renumbering
// global vertex indices to local ones in first-reference order.
type perObjectBuilder struct {
	objectID      uint16
	globalToLocal map[uint32]uint32

	positions []mgl32.Vec3
	colors    [][3]uint8
	indices   []uint32
}

func newPerObjectBuilder(id uint16) *perObjectBuilder {
	return &perObjectBuilder{
		objectID:      id,
		globalToLocal: make(map[uint32]uint32),
	}
}

// addVertex appends the local index for global, copying the vertex the first
// time it is referenced.
func (b *perObjectBuilder) addVertex(rec *rawRecord, global uint32) {
	local, ok := b.globalToLocal[global]
	if !ok {
		local = uint32(len(b.positions))
		b.globalToLocal[global] = local
		b.positions = append(b.positions, rec.positions[global])
		b.colors = append(b.colors, rec.colors[global])
	}
	b.indices = append(b.indices, local)
}

func (b *perObjectBuilder) build(name string) *InstanceMesh {
	ids := make([]uint16, len(b.positions))
	for i := range ids {
		ids[i] = b.objectID
	}
	m := &InstanceMesh{
		name:           name,
		vertexBuffer:   b.positions,
		colorBuffer:    b.colors,
		objectIDBuffer: ids,
		indexBuffer:    b.indices,
		objectID:       b.objectID,
		hasObjectID:    true,
	}
	m.updateCollisionView()
	return m
}

// partitionByObject splits rec into one mesh per object id. Each index is
// routed by the id of the vertex it references, so local index buffers keep
// the global triangle order. Meshes are returned in the order their ids are
// first met while scanning indices.
func partitionByObject(rec *rawRecord, name string) []*InstanceMesh {
	var order []*perObjectBuilder
	builders := make(map[uint16]*perObjectBuilder)

	for _, global := range rec.indices {
		id := rec.objectIDs[global]
		b, ok := builders[id]
		if !ok {
			b = newPerObjectBuilder(id)
			builders[id] = b
			order = append(order, b)
		}
		b.addVertex(rec, global)
	}

	meshes := make([]*InstanceMesh, 0, len(order))
	for _, b := range order {
		meshes = append(meshes, b.build(name))
	}
	return meshes
}

// wholeMesh moves the record's storage into a single mesh.
func wholeMesh(rec *rawRecord, name string) *InstanceMesh {
	m := &InstanceMesh{
		name:           name,
		vertexBuffer:   rec.positions,
		colorBuffer:    rec.colors,
		objectIDBuffer: rec.objectIDs,
		indexBuffer:    rec.indices,
	}
	m.updateCollisionView()
	return m
}
