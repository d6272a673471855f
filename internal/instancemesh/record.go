package instancemesh

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/importer"
)

// rawRecord is the flat, global mesh copied out of an importer. It lives only
// until partitioning hands its storage to InstanceMesh values.
type rawRecord struct {
	positions []mgl32.Vec3
	colors    [][3]uint8
	indices   []uint32
	objectIDs []uint16

	// idsAreAuthoritative is true iff objectIDs came from an explicit source
	// attribute. Synthesized ids are palette indices and never split geometry.
	idsAreAuthoritative bool
}

// extractAttributes copies positions, 8-bit RGB colors and the triangle list
// out of md. Color must be present in one of the two 8-bit normalized
// encodings.
func extractAttributes(md *importer.MeshData, path string) (*rawRecord, error) {
	rec := &rawRecord{
		positions: md.Positions3D(),
		indices:   md.Indices(),
	}

	vertexCount := uint32(len(rec.positions))
	for i, idx := range rec.indices {
		if idx >= vertexCount {
			return nil, &AssetError{
				Path:   path,
				Detail: fmt.Sprintf("index %d at position %d, vertex count %d", idx, i, vertexCount),
				Err:    ErrIndexOutOfRange,
			}
		}
	}

	if !md.HasAttribute(importer.AttributeColor) {
		return nil, &AssetError{
			Path:      path,
			Attribute: importer.AttributeColor.String(),
			Detail:    "vertex colors are required",
			Err:       ErrMissingAttribute,
		}
	}

	switch format := md.AttributeFormat(importer.AttributeColor); format {
	case importer.FormatVector3ubNormalized, importer.FormatVector4ubNormalized:
		colors, err := md.ColorsRGB8()
		if err != nil {
			return nil, &AssetError{Path: path, Attribute: importer.AttributeColor.String(), Err: err}
		}
		rec.colors = colors
	default:
		return nil, &AssetError{
			Path:      path,
			Attribute: importer.AttributeColor.String(),
			Detail:    "unexpected vertex color type " + format.String(),
			Err:       ErrUnsupportedFormat,
		}
	}

	return rec, nil
}

// resolveObjectIDs fills rec.objectIDs. Explicit ids are copied and must fit
// in 16 bits; otherwise each vertex gets the palette index of its color.
func resolveObjectIDs(md *importer.MeshData, rec *rawRecord, path string, log *zap.Logger) error {
	rec.objectIDs = make([]uint16, len(rec.positions))

	if md.HasAttribute(importer.AttributeObjectID) {
		ids := md.ObjectIDsAsArray()
		var maxID uint32
		for _, id := range ids {
			if id > maxID {
				maxID = id
			}
		}
		if maxID > gomath.MaxUint16 {
			return &AssetError{
				Path:      path,
				Attribute: importer.AttributeObjectID.String(),
				Detail:    fmt.Sprintf("max id value %d", maxID),
				Err:       ErrObjectIDOverflow,
			}
		}
		for i, id := range ids {
			rec.objectIDs[i] = uint16(id)
		}
		rec.idsAreAuthoritative = true
		return nil
	}

	unique, mapping, err := md.RemoveDuplicates(importer.AttributeColor)
	if err != nil {
		return &AssetError{Path: path, Attribute: importer.AttributeColor.String(), Err: err}
	}
	if unique > gomath.MaxUint16+1 {
		// Synthesized ids are display labels only, so wrapping is tolerated.
		log.Warn("color palette exceeds 16-bit ids, labels will alias",
			zap.Int("colors", unique))
	}
	for i, p := range mapping {
		rec.objectIDs[i] = uint16(p)
	}
	rec.idsAreAuthoritative = false
	return nil
}
