package importer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/instancemesh/pkg/formats"
)

// PLYImporter reads colored, point-indexed PLY files. Every PLY file holds
// exactly one mesh.
type PLYImporter struct {
	path string
	ply  *formats.PLY
}

// NewPLYImporter creates a PLY backend with no asset open.
func NewPLYImporter() *PLYImporter {
	return &PLYImporter{}
}

// OpenAsset parses the PLY file at path.
func (p *PLYImporter) OpenAsset(path string) error {
	p.Close()
	ply, err := formats.ParsePLYFile(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	p.path = path
	p.ply = ply
	return nil
}

// OpenData parses PLY data already in memory.
func (p *PLYImporter) OpenData(name string, data []byte) error {
	p.Close()
	ply, err := formats.ParsePLY(data)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	p.path = name
	p.ply = ply
	return nil
}

// MeshCount returns 1 when a file is open.
func (p *PLYImporter) MeshCount() int {
	if p.ply == nil {
		return 0
	}
	return 1
}

// ReadMesh converts the open PLY file to mesh data. Polygons are fan
// triangulated. Per-face object ids are moved onto the vertices by giving
// every face its own copy of each vertex it shares with a face of another
// object, so each triangle's three vertices carry that triangle's id.
func (p *PLYImporter) ReadMesh(index int) (*MeshData, error) {
	if p.ply == nil {
		return nil, ErrNotOpen
	}
	if index != 0 {
		return nil, fmt.Errorf("%w: index %d in %s", ErrNoMesh, index, p.path)
	}

	positions := make([]mgl32.Vec3, len(p.ply.Positions))
	for i, pos := range p.ply.Positions {
		positions[i] = mgl32.Vec3(pos)
	}
	var colors [][4]float32
	if p.ply.ColorChannels > 0 {
		colors = make([][4]float32, len(p.ply.Colors))
		for i, c := range p.ply.Colors {
			colors[i] = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
		}
	}
	indices, faceOfTriangle := p.ply.Triangles()

	var ids []uint32
	switch {
	case p.ply.VertexObjectIDs != nil:
		ids = append([]uint32(nil), p.ply.VertexObjectIDs...)
	case p.ply.FaceObjectIDs != nil:
		positions, colors, ids, indices = splitFaceIDs(positions, colors, indices, faceOfTriangle, p.ply.FaceObjectIDs)
	}

	md := NewMeshData(positions, indices)
	if colors != nil {
		if err := md.SetColors(plyColorFormat(p.ply.ColorType, p.ply.ColorChannels), colors); err != nil {
			return nil, err
		}
	}
	if ids != nil {
		if err := md.SetObjectIDs(ids); err != nil {
			return nil, err
		}
	}
	return md, nil
}

// splitFaceIDs emits one vertex per distinct (source vertex, face id) pair in
// first-reference order and remaps the triangle list onto them. Vertices no
// face references are dropped.
func splitFaceIDs(positions []mgl32.Vec3, colors [][4]float32, indices []uint32, faceOfTriangle []int, faceIDs []uint32) ([]mgl32.Vec3, [][4]float32, []uint32, []uint32) {
	type key struct{ vertex, id uint32 }
	remap := make(map[key]uint32, len(positions))

	var (
		outPositions = make([]mgl32.Vec3, 0, len(positions))
		outColors    [][4]float32
		outIDs       = make([]uint32, 0, len(positions))
		outIndices   = make([]uint32, len(indices))
	)
	if colors != nil {
		outColors = make([][4]float32, 0, len(positions))
	}

	for tri, face := range faceOfTriangle {
		id := faceIDs[face]
		for k := 0; k < 3; k++ {
			global := indices[tri*3+k]
			local, ok := remap[key{global, id}]
			if !ok {
				local = uint32(len(outPositions))
				remap[key{global, id}] = local
				outPositions = append(outPositions, positions[global])
				if colors != nil {
					outColors = append(outColors, colors[global])
				}
				outIDs = append(outIDs, id)
			}
			outIndices[tri*3+k] = local
		}
	}
	return outPositions, outColors, outIDs, outIndices
}

// Close forgets the open file.
func (p *PLYImporter) Close() error {
	p.path = ""
	p.ply = nil
	return nil
}

func plyColorFormat(t formats.PLYScalarType, channels int) VertexFormat {
	switch t {
	case formats.PLYUint8:
		if channels == 4 {
			return FormatVector4ubNormalized
		}
		return FormatVector3ubNormalized
	case formats.PLYUint16:
		if channels == 4 {
			return FormatVector4usNormalized
		}
		return FormatVector3usNormalized
	case formats.PLYFloat32, formats.PLYFloat64:
		if channels == 4 {
			return FormatVector4
		}
		return FormatVector3
	default:
		return FormatInvalid
	}
}
