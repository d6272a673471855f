// Package formats provides parsers for mesh file formats.
// PLY (Polygon File Format) parser for colored, point-indexed meshes.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic      = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat = errors.New("unsupported PLY format")
	ErrTruncatedPLYData     = errors.New("truncated PLY data")
	ErrInvalidPLYHeader     = errors.New("invalid PLY header")
	ErrInvalidPLYIndex      = errors.New("PLY face references missing vertex")
)

// PLYEncoding is the body encoding declared in the header.
type PLYEncoding int

const (
	PLYASCII PLYEncoding = iota
	PLYBinaryLittleEndian
	PLYBinaryBigEndian
)

// String returns the header keyword for the encoding.
func (e PLYEncoding) String() string {
	switch e {
	case PLYASCII:
		return "ascii"
	case PLYBinaryLittleEndian:
		return "binary_little_endian"
	case PLYBinaryBigEndian:
		return "binary_big_endian"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// PLYScalarType is a property value type.
type PLYScalarType int

const (
	PLYInvalid PLYScalarType = iota
	PLYInt8
	PLYUint8
	PLYInt16
	PLYUint16
	PLYInt32
	PLYUint32
	PLYFloat32
	PLYFloat64
)

var plyTypeNames = map[string]PLYScalarType{
	"char": PLYInt8, "int8": PLYInt8,
	"uchar": PLYUint8, "uint8": PLYUint8,
	"short": PLYInt16, "int16": PLYInt16,
	"ushort": PLYUint16, "uint16": PLYUint16,
	"int": PLYInt32, "int32": PLYInt32,
	"uint": PLYUint32, "uint32": PLYUint32,
	"float": PLYFloat32, "float32": PLYFloat32,
	"double": PLYFloat64, "float64": PLYFloat64,
}

// Size returns the encoded size in bytes.
func (t PLYScalarType) Size() int {
	switch t {
	case PLYInt8, PLYUint8:
		return 1
	case PLYInt16, PLYUint16:
		return 2
	case PLYInt32, PLYUint32, PLYFloat32:
		return 4
	case PLYFloat64:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether the type holds integral values.
func (t PLYScalarType) IsInteger() bool {
	return t >= PLYInt8 && t <= PLYUint32
}

// String returns the canonical PLY type name.
func (t PLYScalarType) String() string {
	switch t {
	case PLYInt8:
		return "char"
	case PLYUint8:
		return "uchar"
	case PLYInt16:
		return "short"
	case PLYUint16:
		return "ushort"
	case PLYInt32:
		return "int"
	case PLYUint32:
		return "uint"
	case PLYFloat32:
		return "float"
	case PLYFloat64:
		return "double"
	default:
		return "invalid"
	}
}

// PLYProperty describes one property of an element.
type PLYProperty struct {
	Name      string
	Type      PLYScalarType // Value type (list item type for lists)
	IsList    bool
	CountType PLYScalarType // List length type
}

// PLYElement describes one element declaration.
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYHeader is the parsed header of a PLY file.
type PLYHeader struct {
	Encoding PLYEncoding
	Comments []string
	Elements []PLYElement
}

// Element returns the declaration with the given name, or nil.
func (h *PLYHeader) Element(name string) *PLYElement {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// PLY holds the mesh-relevant contents of a PLY file.
type PLY struct {
	Header PLYHeader

	Positions [][3]float32

	// Colors holds raw channel values in their declared type's range
	// (0-255 for uchar). ColorChannels is 0 when no color is present.
	Colors        [][4]float64
	ColorChannels int
	ColorType     PLYScalarType

	// VertexObjectIDs is nil unless the vertex element has an id property.
	VertexObjectIDs []uint32

	// Faces holds polygons as declared; FaceObjectIDs is nil unless the face
	// element has an id property.
	Faces         [][]uint32
	FaceObjectIDs []uint32
}

// objectIDNames lists property names recognized as per-vertex/per-face ids.
var objectIDNames = map[string]bool{
	"object_id": true,
	"objectId":  true,
	"objectid":  true,
}

var colorNames = [4]string{"red", "green", "blue", "alpha"}

// ParsePLYFile parses a PLY file from disk.
func ParsePLYFile(path string) (*PLY, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PLY file: %w", err)
	}
	return ParsePLY(data)
}

// ParsePLY parses PLY data from a byte slice.
func ParsePLY(data []byte) (*PLY, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedPLYData
	}
	if !bytes.HasPrefix(data, []byte("ply")) {
		return nil, ErrInvalidPLYMagic
	}

	header, bodyOffset, err := parsePLYHeader(data)
	if err != nil {
		return nil, err
	}

	if err := header.checkBodySize(len(data) - bodyOffset); err != nil {
		return nil, err
	}

	ply := &PLY{Header: *header}

	var body plyValueReader
	switch header.Encoding {
	case PLYASCII:
		body = newPLYASCIIReader(data[bodyOffset:])
	case PLYBinaryLittleEndian:
		body = &plyBinaryReader{r: bytes.NewReader(data[bodyOffset:]), order: binary.LittleEndian}
	case PLYBinaryBigEndian:
		body = &plyBinaryReader{r: bytes.NewReader(data[bodyOffset:]), order: binary.BigEndian}
	}

	for i := range header.Elements {
		el := &header.Elements[i]
		switch el.Name {
		case "vertex":
			err = ply.readVertices(body, el)
		case "face":
			err = ply.readFaces(body, el)
		default:
			err = skipPLYElement(body, el)
		}
		if err != nil {
			return nil, fmt.Errorf("reading element %q: %w", el.Name, err)
		}
	}

	for fi, face := range ply.Faces {
		for _, vi := range face {
			if int(vi) >= len(ply.Positions) {
				return nil, fmt.Errorf("%w: face %d index %d (vertex count %d)",
					ErrInvalidPLYIndex, fi, vi, len(ply.Positions))
			}
		}
	}

	return ply, nil
}

// minValueSize returns the fewest body bytes one value of type t can occupy.
// An ASCII value is at least one digit plus a separator.
func (h *PLYHeader) minValueSize(t PLYScalarType) int {
	if h.Encoding == PLYASCII {
		return 2
	}
	return t.Size()
}

// checkBodySize rejects headers whose element counts cannot fit in a body of
// n bytes, before anything is allocated for them. Lists are counted as empty.
func (h *PLYHeader) checkBodySize(n int) error {
	limit := int64(n) + 1
	var need int64
	for _, el := range h.Elements {
		per := 0
		for _, prop := range el.Properties {
			if prop.IsList {
				per += h.minValueSize(prop.CountType)
			} else {
				per += h.minValueSize(prop.Type)
			}
		}
		if per == 0 {
			continue
		}
		if int64(el.Count) > limit/int64(per) {
			return fmt.Errorf("%w: element %q declares %d entries for %d body bytes",
				ErrTruncatedPLYData, el.Name, el.Count, n)
		}
		need += int64(el.Count) * int64(per)
		if need > limit {
			return fmt.Errorf("%w: header needs at least %d body bytes, have %d",
				ErrTruncatedPLYData, need, n)
		}
	}
	return nil
}

func parsePLYHeader(data []byte) (*PLYHeader, int, error) {
	header := &PLYHeader{}
	formatSeen := false
	offset := 0
	first := true

	for {
		nl := bytes.IndexByte(data[offset:], '\n')
		if nl < 0 {
			return nil, 0, ErrTruncatedPLYData
		}
		line := strings.TrimSpace(string(data[offset : offset+nl]))
		offset += nl + 1

		if first {
			if line != "ply" {
				return nil, 0, ErrInvalidPLYMagic
			}
			first = false
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) < 3 {
				return nil, 0, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, line)
			}
			switch fields[1] {
			case "ascii":
				header.Encoding = PLYASCII
			case "binary_little_endian":
				header.Encoding = PLYBinaryLittleEndian
			case "binary_big_endian":
				header.Encoding = PLYBinaryBigEndian
			default:
				return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedPLYFormat, fields[1])
			}
			if fields[2] != "1.0" {
				return nil, 0, fmt.Errorf("%w: version %s", ErrUnsupportedPLYFormat, fields[2])
			}
			formatSeen = true

		case "comment", "obj_info":
			header.Comments = append(header.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))

		case "element":
			if len(fields) != 3 {
				return nil, 0, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, 0, fmt.Errorf("%w: bad element count %q", ErrInvalidPLYHeader, fields[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: fields[1], Count: count})

		case "property":
			if len(header.Elements) == 0 {
				return nil, 0, fmt.Errorf("%w: property before element", ErrInvalidPLYHeader)
			}
			prop, err := parsePLYProperty(fields)
			if err != nil {
				return nil, 0, err
			}
			el := &header.Elements[len(header.Elements)-1]
			el.Properties = append(el.Properties, prop)

		case "end_header":
			if !formatSeen {
				return nil, 0, fmt.Errorf("%w: missing format line", ErrInvalidPLYHeader)
			}
			return header, offset, nil

		default:
			return nil, 0, fmt.Errorf("%w: unknown keyword %q", ErrInvalidPLYHeader, fields[0])
		}
	}
}

func parsePLYProperty(fields []string) (PLYProperty, error) {
	if len(fields) >= 5 && fields[1] == "list" {
		countType, ok1 := plyTypeNames[fields[2]]
		itemType, ok2 := plyTypeNames[fields[3]]
		if !ok1 || !ok2 || !countType.IsInteger() {
			return PLYProperty{}, fmt.Errorf("%w: bad list property %v", ErrInvalidPLYHeader, fields)
		}
		return PLYProperty{Name: fields[4], Type: itemType, IsList: true, CountType: countType}, nil
	}
	if len(fields) != 3 {
		return PLYProperty{}, fmt.Errorf("%w: bad property %v", ErrInvalidPLYHeader, fields)
	}
	t, ok := plyTypeNames[fields[1]]
	if !ok {
		return PLYProperty{}, fmt.Errorf("%w: unknown type %q", ErrInvalidPLYHeader, fields[1])
	}
	return PLYProperty{Name: fields[2], Type: t}, nil
}

func (p *PLY) readVertices(body plyValueReader, el *PLYElement) error {
	posIdx := [3]int{-1, -1, -1}
	colorIdx := [4]int{-1, -1, -1, -1}
	idIdx := -1

	for i, prop := range el.Properties {
		if prop.IsList {
			continue
		}
		switch prop.Name {
		case "x":
			posIdx[0] = i
		case "y":
			posIdx[1] = i
		case "z":
			posIdx[2] = i
		}
		for c, name := range colorNames {
			if prop.Name == name || prop.Name == "diffuse_"+name {
				colorIdx[c] = i
			}
		}
		if objectIDNames[prop.Name] && prop.Type.IsInteger() {
			idIdx = i
		}
	}

	for _, idx := range posIdx {
		if idx < 0 {
			return fmt.Errorf("%w: vertex element lacks x/y/z", ErrInvalidPLYHeader)
		}
	}

	if colorIdx[0] >= 0 && colorIdx[1] >= 0 && colorIdx[2] >= 0 {
		p.ColorChannels = 3
		if colorIdx[3] >= 0 {
			p.ColorChannels = 4
		}
		p.ColorType = el.Properties[colorIdx[0]].Type
		p.Colors = make([][4]float64, el.Count)
	}

	p.Positions = make([][3]float32, el.Count)
	if idIdx >= 0 {
		p.VertexObjectIDs = make([]uint32, el.Count)
	}

	values := make([]float64, len(el.Properties))
	for v := 0; v < el.Count; v++ {
		for i, prop := range el.Properties {
			if prop.IsList {
				if _, err := readPLYList(body, prop); err != nil {
					return err
				}
				continue
			}
			val, err := body.value(prop.Type)
			if err != nil {
				return err
			}
			values[i] = val
		}

		p.Positions[v] = [3]float32{
			float32(values[posIdx[0]]),
			float32(values[posIdx[1]]),
			float32(values[posIdx[2]]),
		}
		if p.Colors != nil {
			for c := 0; c < p.ColorChannels; c++ {
				p.Colors[v][c] = values[colorIdx[c]]
			}
		}
		if idIdx >= 0 {
			p.VertexObjectIDs[v] = uint32(values[idIdx])
		}
	}
	return nil
}

func (p *PLY) readFaces(body plyValueReader, el *PLYElement) error {
	listIdx := -1
	idIdx := -1
	for i, prop := range el.Properties {
		if prop.IsList && (prop.Name == "vertex_indices" || prop.Name == "vertex_index") {
			listIdx = i
		}
		if !prop.IsList && objectIDNames[prop.Name] && prop.Type.IsInteger() {
			idIdx = i
		}
	}
	if listIdx < 0 {
		return fmt.Errorf("%w: face element lacks vertex_indices", ErrInvalidPLYHeader)
	}

	p.Faces = make([][]uint32, el.Count)
	if idIdx >= 0 {
		p.FaceObjectIDs = make([]uint32, el.Count)
	}

	for f := 0; f < el.Count; f++ {
		for i, prop := range el.Properties {
			if prop.IsList {
				items, err := readPLYList(body, prop)
				if err != nil {
					return err
				}
				if i == listIdx {
					face := make([]uint32, len(items))
					for k, it := range items {
						if it < 0 {
							return fmt.Errorf("%w: negative index %v", ErrInvalidPLYIndex, it)
						}
						face[k] = uint32(it)
					}
					p.Faces[f] = face
				}
				continue
			}
			val, err := body.value(prop.Type)
			if err != nil {
				return err
			}
			if i == idIdx {
				p.FaceObjectIDs[f] = uint32(val)
			}
		}
	}
	return nil
}

func skipPLYElement(body plyValueReader, el *PLYElement) error {
	for n := 0; n < el.Count; n++ {
		for _, prop := range el.Properties {
			if prop.IsList {
				if _, err := readPLYList(body, prop); err != nil {
					return err
				}
				continue
			}
			if _, err := body.value(prop.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

func readPLYList(body plyValueReader, prop PLYProperty) ([]float64, error) {
	n, err := body.value(prop.CountType)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%w: list length %v", ErrInvalidPLYHeader, n)
	}
	if !body.fits(int(n), prop.Type) {
		return nil, fmt.Errorf("%w: list of %v items", ErrTruncatedPLYData, n)
	}
	items := make([]float64, int(n))
	for i := range items {
		if items[i], err = body.value(prop.Type); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Triangles fan-triangulates every face and returns a flat index list.
// Faces with fewer than three vertices are dropped. The second return value
// maps each emitted triangle back to its source face.
func (p *PLY) Triangles() (indices []uint32, faceOfTriangle []int) {
	for fi, face := range p.Faces {
		for k := 1; k+1 < len(face); k++ {
			indices = append(indices, face[0], face[k], face[k+1])
			faceOfTriangle = append(faceOfTriangle, fi)
		}
	}
	return indices, faceOfTriangle
}

// plyValueReader yields successive scalar values from a PLY body.
type plyValueReader interface {
	value(t PLYScalarType) (float64, error)
	// fits reports whether n more values of type t can still be present.
	fits(n int, t PLYScalarType) bool
}

type plyBinaryReader struct {
	r     *bytes.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *plyBinaryReader) value(t PLYScalarType) (float64, error) {
	size := t.Size()
	if size == 0 {
		return 0, fmt.Errorf("%w: invalid scalar type", ErrInvalidPLYHeader)
	}
	buf := b.buf[:size]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return 0, ErrTruncatedPLYData
	}
	switch t {
	case PLYInt8:
		return float64(int8(buf[0])), nil
	case PLYUint8:
		return float64(buf[0]), nil
	case PLYInt16:
		return float64(int16(b.order.Uint16(buf))), nil
	case PLYUint16:
		return float64(b.order.Uint16(buf)), nil
	case PLYInt32:
		return float64(int32(b.order.Uint32(buf))), nil
	case PLYUint32:
		return float64(b.order.Uint32(buf)), nil
	case PLYFloat32:
		return float64(math.Float32frombits(b.order.Uint32(buf))), nil
	default:
		return math.Float64frombits(b.order.Uint64(buf)), nil
	}
}

func (b *plyBinaryReader) fits(n int, t PLYScalarType) bool {
	return int64(n)*int64(t.Size()) <= int64(b.r.Len())
}

type plyASCIIReader struct {
	s *bufio.Scanner
	// left bounds the unread bytes from above; each consumed token took at
	// least its length plus one separator.
	left int
}

func newPLYASCIIReader(data []byte) *plyASCIIReader {
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Split(bufio.ScanWords)
	return &plyASCIIReader{s: s, left: len(data)}
}

func (a *plyASCIIReader) fits(n int, _ PLYScalarType) bool {
	return int64(n)*2-1 <= int64(a.left)
}

func (a *plyASCIIReader) value(t PLYScalarType) (float64, error) {
	if !a.s.Scan() {
		return 0, ErrTruncatedPLYData
	}
	a.left -= len(a.s.Bytes()) + 1
	v, err := strconv.ParseFloat(a.s.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s value %q: %w", t, a.s.Text(), err)
	}
	return v, nil
}
