package importer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is one indexed mesh as produced by an importer backend.
// Positions and triangle indices are always present; color and object ids
// are optional and carry the encoding the source declared.
type MeshData struct {
	positions []mgl32.Vec3
	indices   []uint32

	// colors holds raw channel values in the declared format's range
	// (0-255 for ub formats). Unused channels are zero.
	colors      [][4]float32
	colorFormat VertexFormat

	objectIDs []uint32
}

// NewMeshData creates mesh data over the given positions and triangle list.
// The slices are retained, not copied.
func NewMeshData(positions []mgl32.Vec3, indices []uint32) *MeshData {
	return &MeshData{positions: positions, indices: indices}
}

// SetColors attaches a color attribute in the given format. values must have
// one entry per vertex.
func (m *MeshData) SetColors(format VertexFormat, values [][4]float32) error {
	if len(values) != len(m.positions) {
		return fmt.Errorf("%w: %d colors for %d vertices", ErrAttributeLength, len(values), len(m.positions))
	}
	m.colorFormat = format
	m.colors = values
	return nil
}

// SetColorsRGB8 attaches 3-channel 8-bit normalized colors.
func (m *MeshData) SetColorsRGB8(values [][3]uint8) error {
	raw := make([][4]float32, len(values))
	for i, c := range values {
		raw[i] = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), 0}
	}
	return m.SetColors(FormatVector3ubNormalized, raw)
}

// SetColorsRGBA8 attaches 4-channel 8-bit normalized colors.
func (m *MeshData) SetColorsRGBA8(values [][4]uint8) error {
	raw := make([][4]float32, len(values))
	for i, c := range values {
		raw[i] = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
	}
	return m.SetColors(FormatVector4ubNormalized, raw)
}

// SetObjectIDs attaches an explicit per-vertex object id attribute.
func (m *MeshData) SetObjectIDs(ids []uint32) error {
	if len(ids) != len(m.positions) {
		return fmt.Errorf("%w: %d object ids for %d vertices", ErrAttributeLength, len(ids), len(m.positions))
	}
	m.objectIDs = ids
	return nil
}

// VertexCount returns the number of vertices.
func (m *MeshData) VertexCount() int {
	return len(m.positions)
}

// IndexCount returns the number of triangle indices.
func (m *MeshData) IndexCount() int {
	return len(m.indices)
}

// Positions3D returns a copy of the vertex positions.
func (m *MeshData) Positions3D() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(m.positions))
	copy(out, m.positions)
	return out
}

// Indices returns a copy of the triangle index list.
func (m *MeshData) Indices() []uint32 {
	out := make([]uint32, len(m.indices))
	copy(out, m.indices)
	return out
}

// HasAttribute reports whether the attribute is present.
func (m *MeshData) HasAttribute(a Attribute) bool {
	switch a {
	case AttributePosition:
		return true
	case AttributeColor:
		return m.colors != nil
	case AttributeObjectID:
		return m.objectIDs != nil
	default:
		return false
	}
}

// AttributeFormat returns the source encoding of the attribute, or
// FormatInvalid when absent.
func (m *MeshData) AttributeFormat(a Attribute) VertexFormat {
	switch a {
	case AttributePosition:
		return FormatVector3
	case AttributeColor:
		if m.colors == nil {
			return FormatInvalid
		}
		return m.colorFormat
	case AttributeObjectID:
		if m.objectIDs == nil {
			return FormatInvalid
		}
		return FormatUnsignedInt
	default:
		return FormatInvalid
	}
}

// ColorsRGB8 returns the color attribute as 8-bit RGB. Only the two 8-bit
// normalized formats can be viewed this way; the alpha channel of
// 4-channel data is dropped.
func (m *MeshData) ColorsRGB8() ([][3]uint8, error) {
	if m.colors == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingAttribute, AttributeColor)
	}
	if m.colorFormat != FormatVector3ubNormalized && m.colorFormat != FormatVector4ubNormalized {
		return nil, fmt.Errorf("%w: %s is %s", ErrFormatMismatch, AttributeColor, m.colorFormat)
	}
	out := make([][3]uint8, len(m.colors))
	for i, c := range m.colors {
		out[i] = [3]uint8{uint8(c[0]), uint8(c[1]), uint8(c[2])}
	}
	return out, nil
}

// ObjectIDsAsArray returns a copy of the explicit object ids, or nil when
// the attribute is absent.
func (m *MeshData) ObjectIDsAsArray() []uint32 {
	if m.objectIDs == nil {
		return nil
	}
	out := make([]uint32, len(m.objectIDs))
	copy(out, m.objectIDs)
	return out
}

// RemoveDuplicates collapses equal values of an attribute. It returns the
// number of distinct values and, per vertex, the index of its value in
// first-occurrence order.
func (m *MeshData) RemoveDuplicates(a Attribute) (unique int, mapping []uint32, err error) {
	mapping = make([]uint32, len(m.positions))
	switch a {
	case AttributePosition:
		unique = dedupe(m.positions, mapping)
	case AttributeColor:
		if m.colors == nil {
			return 0, nil, fmt.Errorf("%w: %s", ErrMissingAttribute, a)
		}
		unique = dedupe(m.colors, mapping)
	case AttributeObjectID:
		if m.objectIDs == nil {
			return 0, nil, fmt.Errorf("%w: %s", ErrMissingAttribute, a)
		}
		unique = dedupe(m.objectIDs, mapping)
	default:
		return 0, nil, fmt.Errorf("%w: %s", ErrMissingAttribute, a)
	}
	return unique, mapping, nil
}

func dedupe[T comparable](values []T, mapping []uint32) int {
	seen := make(map[T]uint32, 64)
	for i, v := range values {
		id, ok := seen[v]
		if !ok {
			id = uint32(len(seen))
			seen[v] = id
		}
		mapping[i] = id
	}
	return len(seen)
}
