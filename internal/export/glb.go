// Package export writes instance meshes to glTF 2.0 documents.
package export

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
	"github.com/Faultbox/instancemesh/internal/logger"
)

// ObjectIDAttribute is the custom vertex attribute holding object ids.
const ObjectIDAttribute = "_OBJECT_ID"

// ErrNothingToExport is returned for an empty mesh list.
var ErrNothingToExport = errors.New("no meshes to export")

// Document builds a glTF document with one node and mesh per instance mesh.
// Vertex colors are stored as normalized bytes and object ids as unsigned
// shorts under ObjectIDAttribute.
func Document(meshes []*instancemesh.InstanceMesh) (*gltf.Document, error) {
	if len(meshes) == 0 {
		return nil, ErrNothingToExport
	}

	doc := gltf.NewDocument()
	scene := &gltf.Scene{Name: "instances"}

	for i, m := range meshes {
		positions := make([][3]float32, m.VertexCount())
		for j, p := range m.Positions() {
			positions[j] = [3]float32(p)
		}

		attrs := map[string]int{}
		if len(positions) > 0 {
			attrs[gltf.POSITION] = modeler.WritePosition(doc, positions)
			attrs[gltf.COLOR_0] = modeler.WriteColor(doc, m.Colors())
			attrs[ObjectIDAttribute] = modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, m.ObjectIDs())
		}
		prim := &gltf.Primitive{Attributes: attrs, Mode: gltf.PrimitiveTriangles}
		if len(m.Indices()) > 0 {
			prim.Indices = gltf.Index(modeler.WriteIndices(doc, m.Indices()))
		}

		name := meshName(m, i)
		mesh := &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}}
		if id, ok := m.ObjectID(); ok {
			mesh.Extras = map[string]any{"objectId": id}
		}
		doc.Meshes = append(doc.Meshes, mesh)
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(len(doc.Meshes) - 1)})
		scene.Nodes = append(scene.Nodes, len(doc.Nodes)-1)
	}

	doc.Scenes = []*gltf.Scene{scene}
	doc.Scene = gltf.Index(0)
	return doc, nil
}

// Write saves meshes to path. A .glb extension, or binary set, produces a
// binary container; otherwise buffers are embedded as data URIs in JSON.
func Write(meshes []*instancemesh.InstanceMesh, path string, binary bool) error {
	doc, err := Document(meshes)
	if err != nil {
		return err
	}

	if binary || strings.EqualFold(filepath.Ext(path), ".glb") {
		if err := gltf.SaveBinary(doc, path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	} else {
		for _, b := range doc.Buffers {
			b.URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.Data)
		}
		if err := gltf.Save(doc, path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	logger.Info("meshes exported",
		zap.String("path", path),
		zap.Int("meshes", len(meshes)),
		zap.Bool("binary", binary))
	return nil
}

// OutputPath derives the export file name for an asset.
func OutputPath(dir, asset string, binary bool) string {
	base := strings.TrimSuffix(filepath.Base(asset), filepath.Ext(asset))
	ext := ".gltf"
	if binary {
		ext = ".glb"
	}
	return filepath.Join(dir, base+"_instances"+ext)
}

func meshName(m *instancemesh.InstanceMesh, i int) string {
	base := strings.TrimSuffix(filepath.Base(m.Name()), filepath.Ext(m.Name()))
	if id, ok := m.ObjectID(); ok {
		return fmt.Sprintf("%s_object_%d", base, id)
	}
	return fmt.Sprintf("%s_%d", base, i)
}
