package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const asciiQuadPLY = `ply
format ascii 1.0
comment two triangles, two objects
element vertex 4
property float x
property float y
property float z
property uchar red
property uchar green
property uchar blue
property int object_id
element face 2
property list uchar int vertex_indices
end_header
0 0 0 255 0 0 0
1 0 0 255 0 0 0
1 1 0 0 255 0 1
0 1 0 0 255 0 1
3 0 1 2
3 0 2 3
`

func TestParsePLY_ASCII(t *testing.T) {
	ply, err := ParsePLY([]byte(asciiQuadPLY))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}

	if ply.Header.Encoding != PLYASCII {
		t.Errorf("expected ascii encoding, got %v", ply.Header.Encoding)
	}
	if len(ply.Header.Comments) != 1 || ply.Header.Comments[0] != "two triangles, two objects" {
		t.Errorf("unexpected comments: %q", ply.Header.Comments)
	}
	if len(ply.Positions) != 4 {
		t.Fatalf("expected 4 positions, got %d", len(ply.Positions))
	}
	if ply.Positions[2] != [3]float32{1, 1, 0} {
		t.Errorf("position 2 = %v", ply.Positions[2])
	}
	if ply.ColorChannels != 3 || ply.ColorType != PLYUint8 {
		t.Errorf("expected 3 uchar color channels, got %d %v", ply.ColorChannels, ply.ColorType)
	}
	if ply.Colors[2][1] != 255 {
		t.Errorf("color 2 green = %v, want 255", ply.Colors[2][1])
	}
	wantIDs := []uint32{0, 0, 1, 1}
	for i, id := range wantIDs {
		if ply.VertexObjectIDs[i] != id {
			t.Errorf("object id %d = %d, want %d", i, ply.VertexObjectIDs[i], id)
		}
	}
	if len(ply.Faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(ply.Faces))
	}
	if ply.FaceObjectIDs != nil {
		t.Error("expected no face object ids")
	}

	indices, faceOf := ply.Triangles()
	want := []uint32{0, 1, 2, 0, 2, 3}
	if len(indices) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(indices))
	}
	for i := range want {
		if indices[i] != want[i] {
			t.Errorf("index %d = %d, want %d", i, indices[i], want[i])
		}
	}
	if len(faceOf) != 2 || faceOf[1] != 1 {
		t.Errorf("unexpected face mapping %v", faceOf)
	}
}

func TestParsePLY_BinaryLittleEndian(t *testing.T) {
	data := makeBinaryPLY(t, binary.LittleEndian)
	ply, err := ParsePLY(data)
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	checkBinaryFixture(t, ply)
}

func TestParsePLY_BinaryBigEndian(t *testing.T) {
	data := makeBinaryPLY(t, binary.BigEndian)
	ply, err := ParsePLY(data)
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if ply.Header.Encoding != PLYBinaryBigEndian {
		t.Errorf("expected big endian, got %v", ply.Header.Encoding)
	}
	checkBinaryFixture(t, ply)
}

func TestParsePLY_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty", "", ErrTruncatedPLYData},
		{"bad magic", "obj\nformat ascii 1.0\nend_header\n", ErrInvalidPLYMagic},
		{"no end header", "ply\nformat ascii 1.0\n", ErrTruncatedPLYData},
		{"unknown format", "ply\nformat xml 1.0\nend_header\n", ErrUnsupportedPLYFormat},
		{"missing format", "ply\nelement vertex 0\nproperty float x\nend_header\n", ErrInvalidPLYHeader},
		{"property before element", "ply\nformat ascii 1.0\nproperty float x\nend_header\n", ErrInvalidPLYHeader},
		{"truncated body", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", ErrTruncatedPLYData},
		{"element count exceeds body", "ply\nformat ascii 1.0\nelement vertex 2000000000\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", ErrTruncatedPLYData},
		{"binary element count exceeds body", "ply\nformat binary_little_endian 1.0\nelement vertex 2000000000\nproperty float x\nproperty float y\nproperty float z\nend_header\n" + string(make([]byte, 12)), ErrTruncatedPLYData},
		{"list length exceeds body", "ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uint int vertex_indices\nend_header\n" + string(make([]byte, 12)) + "\x00\x00\x00\x10", ErrTruncatedPLYData},
		{"index out of range", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n3 0 1 2\n", ErrInvalidPLYIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePLY([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParsePLY_PolygonFan(t *testing.T) {
	data := `ply
format ascii 1.0
element vertex 5
property float x
property float y
property float z
element face 2
property list uchar uint vertex_indices
property ushort object_id
end_header
0 0 0
1 0 0
1 1 0
0 1 0
2 2 2
4 0 1 2 3 7
2 3 4 9
`
	ply, err := ParsePLY([]byte(data))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if ply.ColorChannels != 0 {
		t.Errorf("expected no color, got %d channels", ply.ColorChannels)
	}
	if ply.FaceObjectIDs == nil || ply.FaceObjectIDs[0] != 7 || ply.FaceObjectIDs[1] != 9 {
		t.Errorf("unexpected face ids %v", ply.FaceObjectIDs)
	}
	indices, faceOf := ply.Triangles()
	if len(indices) != 6 {
		t.Errorf("quad should fan into 2 triangles, got %d indices", len(indices))
	}
	for _, f := range faceOf {
		if f != 0 {
			t.Errorf("degenerate face should be dropped, got triangle from face %d", f)
		}
	}
}

func TestParsePLY_SkipsUnknownElements(t *testing.T) {
	data := `ply
format ascii 1.0
element camera 1
property float view_px
property list uchar float params
element vertex 1
property double x
property double y
property double z
property uchar red
property uchar green
property uchar blue
property uchar alpha
end_header
1.5 3 9 9 9
4 5 6 10 20 30 40
`
	ply, err := ParsePLY([]byte(data))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if ply.Positions[0] != [3]float32{4, 5, 6} {
		t.Errorf("position = %v", ply.Positions[0])
	}
	if ply.ColorChannels != 4 || ply.Colors[0][3] != 40 {
		t.Errorf("expected rgba color, got %d channels %v", ply.ColorChannels, ply.Colors[0])
	}
}

func TestParsePLYFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.ply")
	if err := os.WriteFile(path, []byte(asciiQuadPLY), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	ply, err := ParsePLYFile(path)
	if err != nil {
		t.Fatalf("ParsePLYFile failed: %v", err)
	}
	if len(ply.Faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(ply.Faces))
	}

	if _, err := ParsePLYFile(filepath.Join(t.TempDir(), "missing.ply")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPLYScalarType(t *testing.T) {
	tests := []struct {
		typ  PLYScalarType
		size int
		name string
	}{
		{PLYInt8, 1, "char"},
		{PLYUint8, 1, "uchar"},
		{PLYInt16, 2, "short"},
		{PLYUint16, 2, "ushort"},
		{PLYInt32, 4, "int"},
		{PLYUint32, 4, "uint"},
		{PLYFloat32, 4, "float"},
		{PLYFloat64, 8, "double"},
	}
	for _, tt := range tests {
		if tt.typ.Size() != tt.size {
			t.Errorf("%s: size %d, want %d", tt.name, tt.typ.Size(), tt.size)
		}
		if tt.typ.String() != tt.name {
			t.Errorf("String() = %s, want %s", tt.typ.String(), tt.name)
		}
	}
}

// makeBinaryPLY builds a two-vertex-object triangle fixture with uchar RGBA
// colors, uint object ids, and one float64 extra property.
func makeBinaryPLY(t *testing.T, order binary.ByteOrder) []byte {
	t.Helper()

	format := "binary_little_endian"
	if order == binary.BigEndian {
		format = "binary_big_endian"
	}

	buf := new(bytes.Buffer)
	buf.WriteString("ply\n")
	buf.WriteString("format " + format + " 1.0\n")
	buf.WriteString("element vertex 3\n")
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("property double confidence\n")
	buf.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\nproperty uchar alpha\n")
	buf.WriteString("property uint object_id\n")
	buf.WriteString("element face 1\n")
	buf.WriteString("property list uchar uint vertex_indices\n")
	buf.WriteString("end_header\n")

	vertices := []struct {
		pos   [3]float32
		conf  float64
		color [4]uint8
		id    uint32
	}{
		{[3]float32{0, 0, 0}, 0.5, [4]uint8{10, 20, 30, 255}, 70000},
		{[3]float32{1, 0, 0}, 0.5, [4]uint8{10, 20, 30, 255}, 70000},
		{[3]float32{0, 1, -2.5}, math.Pi, [4]uint8{40, 50, 60, 128}, 3},
	}
	for _, v := range vertices {
		binary.Write(buf, order, v.pos)
		binary.Write(buf, order, v.conf)
		buf.Write(v.color[:])
		binary.Write(buf, order, v.id)
	}
	buf.WriteByte(3)
	binary.Write(buf, order, []uint32{0, 1, 2})

	return buf.Bytes()
}

func checkBinaryFixture(t *testing.T, ply *PLY) {
	t.Helper()

	if len(ply.Positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(ply.Positions))
	}
	if ply.Positions[2] != [3]float32{0, 1, -2.5} {
		t.Errorf("position 2 = %v", ply.Positions[2])
	}
	if ply.ColorChannels != 4 {
		t.Errorf("expected 4 color channels, got %d", ply.ColorChannels)
	}
	if ply.Colors[2] != [4]float64{40, 50, 60, 128} {
		t.Errorf("color 2 = %v", ply.Colors[2])
	}
	if ply.VertexObjectIDs[0] != 70000 || ply.VertexObjectIDs[2] != 3 {
		t.Errorf("object ids = %v", ply.VertexObjectIDs)
	}
	if len(ply.Faces) != 1 || len(ply.Faces[0]) != 3 || ply.Faces[0][2] != 2 {
		t.Errorf("faces = %v", ply.Faces)
	}
}
