// Package instancemesh turns an imported semantic mesh, where every vertex
// carries an object label, into per-object geometry ready for rendering and
// collision queries.
//
// The pipeline runs in fixed order: attribute extraction, object identity
// resolution, frame normalization, then partitioning. Any failure aborts the
// asset and no meshes are returned.
package instancemesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/importer"
	"github.com/Faultbox/instancemesh/internal/logger"
)

// Options controls a pipeline run.
type Options struct {
	// Split partitions the asset per object id. It only takes effect when
	// the ids come from an explicit attribute.
	Split bool
	// NativeGravity is the gravity direction of the asset's coordinate frame.
	// Importers that fix their frame, such as glTF, override it.
	NativeGravity mgl32.Vec3
	// NativeFront is the asset's front direction. Zero aligns gravity only.
	NativeFront mgl32.Vec3
	// Gravity is the engine gravity direction positions are rotated into.
	Gravity mgl32.Vec3
	// Front is the engine front direction.
	Front mgl32.Vec3
	// Scale converts asset units to meters. Zero means 1.
	Scale float32
}

// DefaultOptions returns options that split by object and map the Z-up, Y-front
// asset frame onto the Y-up, -Z-front engine frame.
func DefaultOptions() Options {
	return Options{
		Split:         true,
		NativeGravity: NativeGravity,
		NativeFront:   NativeFront,
		Gravity:       EngineGravity,
		Front:         EngineFront,
		Scale:         1,
	}
}

// Load opens path with the importer registered for its extension and runs the
// pipeline on its first mesh.
func Load(path string, opts Options) ([]*InstanceMesh, error) {
	imp, err := importer.ForPath(path)
	if err != nil {
		return nil, &AssetError{Path: path, Err: ErrNoMesh, Detail: err.Error()}
	}
	return FromFile(imp, path, opts)
}

// FromFile opens path with imp and runs the pipeline on the first mesh of the
// asset. The importer is closed before returning.
func FromFile(imp importer.Importer, path string, opts Options) ([]*InstanceMesh, error) {
	log := logger.With(zap.String("path", path))

	if err := imp.OpenAsset(path); err != nil {
		log.Error("cannot open asset", zap.Error(err))
		return nil, &AssetError{Path: path, Err: ErrNoMesh, Detail: err.Error()}
	}
	defer imp.Close()

	if hint, ok := imp.(importer.FrameHint); ok {
		opts.NativeGravity, opts.NativeFront = hint.NativeFrame()
		log.Debug("using importer frame",
			zap.Float32s("gravity", opts.NativeGravity[:]),
			zap.Float32s("front", opts.NativeFront[:]))
	}

	md, err := imp.ReadMesh(0)
	if err != nil {
		log.Error("cannot read mesh", zap.Error(err))
		return nil, &AssetError{Path: path, Err: ErrNoMesh, Detail: err.Error()}
	}
	return FromMeshData(md, path, opts)
}

// FromMeshData runs the pipeline on already imported mesh data. name labels
// the resulting meshes and error reports.
func FromMeshData(md *importer.MeshData, name string, opts Options) ([]*InstanceMesh, error) {
	if md == nil {
		return nil, &AssetError{Path: name, Err: ErrNoMesh}
	}
	log := logger.With(zap.String("path", name))

	rec, err := extractAttributes(md, name)
	if err != nil {
		log.Error("attribute extraction failed", zap.Error(err))
		return nil, err
	}
	if err := resolveObjectIDs(md, rec, name, log); err != nil {
		log.Error("object id resolution failed", zap.Error(err))
		return nil, err
	}

	newFrameNormalizer(opts).Apply(rec.positions)
	scalePositions(rec.positions, opts.Scale)

	var meshes []*InstanceMesh
	switch {
	case opts.Split && rec.idsAreAuthoritative:
		meshes = partitionByObject(rec, name)
	case opts.Split:
		log.Debug("object ids inferred from color, keeping asset whole")
		meshes = []*InstanceMesh{wholeMesh(rec, name)}
	default:
		meshes = []*InstanceMesh{wholeMesh(rec, name)}
	}

	log.Info("instance mesh built",
		zap.Int("vertices", len(rec.positions)),
		zap.Int("indices", len(rec.indices)),
		zap.Bool("explicitIds", rec.idsAreAuthoritative),
		zap.Int("meshes", len(meshes)))
	return meshes, nil
}

// Summary describes a pipeline result.
type Summary struct {
	Meshes    int
	Vertices  int
	Triangles int
	ObjectIDs int
}

// Summarize totals vertex, triangle and distinct object id counts over
// meshes.
func Summarize(meshes []*InstanceMesh) Summary {
	s := Summary{Meshes: len(meshes)}
	ids := make(map[uint16]struct{})
	for _, m := range meshes {
		s.Vertices += m.VertexCount()
		s.Triangles += m.TriangleCount()
		for _, id := range m.objectIDBuffer {
			ids[id] = struct{}{}
		}
	}
	s.ObjectIDs = len(ids)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d meshes, %d vertices, %d triangles, %d object ids",
		s.Meshes, s.Vertices, s.Triangles, s.ObjectIDs)
}
