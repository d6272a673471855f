package importer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Custom attribute names carrying per-vertex object ids, in lookup order.
var gltfObjectIDAttributes = []string{"_OBJECT_ID", "_FEATURE_ID_0"}

// GLTFImporter reads .gltf and .glb files. All primitives of all meshes are
// merged, in document order, into one mesh. Node transforms are not applied.
type GLTFImporter struct {
	path  string
	doc   *gltf.Document
	prims []*gltf.Primitive
}

// gltfPart is one decoded primitive before merging.
type gltfPart struct {
	positions   []mgl32.Vec3
	indices     []uint32
	colorFormat VertexFormat
	colors      [][4]float32
	objectIDs   []uint32
}

// NewGLTFImporter creates a glTF backend with no asset open.
func NewGLTFImporter() *GLTFImporter {
	return &GLTFImporter{}
}

// OpenAsset opens a glTF or GLB file.
func (g *GLTFImporter) OpenAsset(path string) error {
	g.Close()
	doc, err := gltf.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	g.OpenDocument(path, doc)
	return nil
}

// OpenDocument uses an already decoded document.
func (g *GLTFImporter) OpenDocument(name string, doc *gltf.Document) {
	g.Close()
	g.path = name
	g.doc = doc
	for _, mesh := range doc.Meshes {
		g.prims = append(g.prims, mesh.Primitives...)
	}
}

// NativeFrame reports the glTF frame: +Y up and -Z front.
func (g *GLTFImporter) NativeFrame() (gravity, front mgl32.Vec3) {
	return mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}
}

// MeshCount returns 1 when the open document has any primitive.
func (g *GLTFImporter) MeshCount() int {
	if len(g.prims) == 0 {
		return 0
	}
	return 1
}

// ReadMesh merges every primitive of the open document. Indices are offset by
// the vertices of the preceding primitives. Colors and object ids are kept
// only when every primitive carries them, and colors must share one format.
func (g *GLTFImporter) ReadMesh(index int) (*MeshData, error) {
	if g.doc == nil {
		return nil, ErrNotOpen
	}
	if index != 0 || len(g.prims) == 0 {
		return nil, fmt.Errorf("%w: index %d in %s", ErrNoMesh, index, g.path)
	}

	parts := make([]*gltfPart, len(g.prims))
	for i, prim := range g.prims {
		part, err := g.readPrimitive(prim)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}
		parts[i] = part
	}

	var (
		positions []mgl32.Vec3
		indices   []uint32
		colors    [][4]float32
		objectIDs []uint32
	)
	hasColors, hasIDs := true, true
	colorFormat := FormatInvalid
	for _, part := range parts {
		base := uint32(len(positions))
		positions = append(positions, part.positions...)
		for _, idx := range part.indices {
			indices = append(indices, base+idx)
		}

		switch {
		case part.colors == nil:
			hasColors = false
		case colorFormat == FormatInvalid:
			colorFormat = part.colorFormat
		case part.colorFormat != colorFormat:
			return nil, fmt.Errorf("%w: %s is %v and %v across primitives",
				ErrFormatMismatch, AttributeColor, colorFormat, part.colorFormat)
		}
		colors = append(colors, part.colors...)

		if part.objectIDs == nil {
			hasIDs = false
		}
		objectIDs = append(objectIDs, part.objectIDs...)
	}

	md := NewMeshData(positions, indices)
	if hasColors {
		if err := md.SetColors(colorFormat, colors); err != nil {
			return nil, err
		}
	}
	if hasIDs {
		if err := md.SetObjectIDs(objectIDs); err != nil {
			return nil, err
		}
	}
	return md, nil
}

func (g *GLTFImporter) readPrimitive(prim *gltf.Primitive) (*gltfPart, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("%w: primitive mode %v", ErrNotTriangles, prim.Mode)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingAttribute, AttributePosition)
	}
	rawPositions, err := modeler.ReadPosition(g.doc, g.doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}
	part := &gltfPart{positions: make([]mgl32.Vec3, len(rawPositions))}
	for i, p := range rawPositions {
		part.positions[i] = mgl32.Vec3(p)
	}

	if prim.Indices != nil {
		part.indices, err = modeler.ReadIndices(g.doc, g.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
		for _, idx := range part.indices {
			if int(idx) >= len(part.positions) {
				return nil, fmt.Errorf("%w: index %d, vertex count %d",
					ErrFormatMismatch, idx, len(part.positions))
			}
		}
	} else {
		part.indices = make([]uint32, len(part.positions))
		for i := range part.indices {
			part.indices[i] = uint32(i)
		}
	}

	if colorIdx, ok := prim.Attributes[gltf.COLOR_0]; ok {
		part.colorFormat, part.colors, err = g.readColors(g.doc.Accessors[colorIdx])
		if err != nil {
			return nil, err
		}
		if len(part.colors) != len(part.positions) {
			return nil, fmt.Errorf("%w: %s", ErrAttributeLength, AttributeColor)
		}
	}

	for _, name := range gltfObjectIDAttributes {
		idIdx, ok := prim.Attributes[name]
		if !ok {
			continue
		}
		if part.objectIDs, err = g.readObjectIDs(g.doc.Accessors[idIdx]); err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if len(part.objectIDs) != len(part.positions) {
			return nil, fmt.Errorf("%w: %s", ErrAttributeLength, name)
		}
		break
	}
	return part, nil
}

// Close forgets the open document.
func (g *GLTFImporter) Close() error {
	g.path = ""
	g.doc = nil
	g.prims = nil
	return nil
}

func (g *GLTFImporter) readColors(acr *gltf.Accessor) (VertexFormat, [][4]float32, error) {
	format := gltfVertexFormat(acr)
	data, err := modeler.ReadAccessor(g.doc, acr, nil)
	if err != nil {
		return format, nil, fmt.Errorf("reading colors: %w", err)
	}

	values := make([][4]float32, acr.Count)
	switch c := data.(type) {
	case [][3]uint8:
		for i, v := range c {
			values[i] = [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), 0}
		}
	case [][4]uint8:
		for i, v := range c {
			values[i] = [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
		}
	case [][3]uint16:
		for i, v := range c {
			values[i] = [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), 0}
		}
	case [][4]uint16:
		for i, v := range c {
			values[i] = [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
		}
	case [][3]float32:
		for i, v := range c {
			values[i] = [4]float32{v[0], v[1], v[2], 0}
		}
	case [][4]float32:
		for i, v := range c {
			values[i] = v
		}
	default:
		return format, nil, fmt.Errorf("%w: %s accessor of %T", ErrFormatMismatch, AttributeColor, data)
	}
	return format, values, nil
}

func (g *GLTFImporter) readObjectIDs(acr *gltf.Accessor) ([]uint32, error) {
	if acr.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: object ids must be scalar", ErrFormatMismatch)
	}
	data, err := modeler.ReadAccessor(g.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, acr.Count)
	switch v := data.(type) {
	case []uint8:
		for i, id := range v {
			ids[i] = uint32(id)
		}
	case []uint16:
		for i, id := range v {
			ids[i] = uint32(id)
		}
	case []uint32:
		copy(ids, v)
	case []float32:
		for i, id := range v {
			ids[i] = uint32(id)
		}
	default:
		return nil, fmt.Errorf("%w: object id accessor of %T", ErrFormatMismatch, data)
	}
	return ids, nil
}

func gltfVertexFormat(acr *gltf.Accessor) VertexFormat {
	vec4 := acr.Type == gltf.AccessorVec4
	if acr.Type != gltf.AccessorVec3 && !vec4 {
		return FormatInvalid
	}
	switch acr.ComponentType {
	case gltf.ComponentUbyte:
		if !acr.Normalized {
			return FormatInvalid
		}
		if vec4 {
			return FormatVector4ubNormalized
		}
		return FormatVector3ubNormalized
	case gltf.ComponentUshort:
		if !acr.Normalized {
			return FormatInvalid
		}
		if vec4 {
			return FormatVector4usNormalized
		}
		return FormatVector3usNormalized
	case gltf.ComponentFloat:
		if vec4 {
			return FormatVector4
		}
		return FormatVector3
	default:
		return FormatInvalid
	}
}
