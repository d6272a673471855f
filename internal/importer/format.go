package importer

import "fmt"

// Attribute names a per-vertex attribute an imported mesh may carry.
type Attribute int

const (
	AttributePosition Attribute = iota
	AttributeColor
	AttributeObjectID
)

// String returns a human-readable attribute name.
func (a Attribute) String() string {
	switch a {
	case AttributePosition:
		return "position"
	case AttributeColor:
		return "color"
	case AttributeObjectID:
		return "object id"
	default:
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
}

// VertexFormat describes how an attribute is encoded by the source asset.
type VertexFormat int

const (
	FormatInvalid VertexFormat = iota
	FormatVector3
	FormatVector4
	FormatVector3ubNormalized
	FormatVector4ubNormalized
	FormatVector3usNormalized
	FormatVector4usNormalized
	FormatUnsignedInt
)

// String returns the format name.
func (f VertexFormat) String() string {
	switch f {
	case FormatVector3:
		return "Vector3"
	case FormatVector4:
		return "Vector4"
	case FormatVector3ubNormalized:
		return "Vector3ubNormalized"
	case FormatVector4ubNormalized:
		return "Vector4ubNormalized"
	case FormatVector3usNormalized:
		return "Vector3usNormalized"
	case FormatVector4usNormalized:
		return "Vector4usNormalized"
	case FormatUnsignedInt:
		return "UnsignedInt"
	default:
		return "Invalid"
	}
}
