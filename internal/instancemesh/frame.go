package instancemesh

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	pkgmath "github.com/Faultbox/instancemesh/pkg/math"
)

// Frame conventions.
var (
	// NativeGravity is the gravity direction of semantic scene assets (-Z).
	NativeGravity = mgl32.Vec3{0, 0, -1}
	// NativeFront is the front direction of semantic scene assets (+Y).
	NativeFront = mgl32.Vec3{0, 1, 0}
	// EngineGravity is the default engine gravity direction (-Y).
	EngineGravity = mgl32.Vec3{0, -1, 0}
	// EngineFront is the default engine front direction (-Z).
	EngineFront = mgl32.Vec3{0, 0, -1}
)

// FrameNormalizer rotates positions from an asset's native frame convention
// into the engine's. The rotation is computed once.
type FrameNormalizer struct {
	rotation mgl32.Quat
}

// NewFrameNormalizer returns a normalizer taking native onto engine gravity
// along the shortest arc.
func NewFrameNormalizer(native, engine mgl32.Vec3) FrameNormalizer {
	return FrameNormalizer{rotation: pkgmath.RotationBetween(native, engine)}
}

// NewFrameNormalizerWithFront aligns gravity like NewFrameNormalizer, then
// twists about engine gravity so the native front lands on the engine front.
// A zero front, or one parallel to gravity, leaves the twist out.
func NewFrameNormalizerWithFront(nativeGravity, nativeFront, engineGravity, engineFront mgl32.Vec3) FrameNormalizer {
	q := pkgmath.RotationBetween(nativeGravity, engineGravity)
	if engineGravity.Len() == 0 || nativeFront.Len() == 0 || engineFront.Len() == 0 {
		return FrameNormalizer{rotation: q}
	}

	g := engineGravity.Normalize()
	from := q.Rotate(nativeFront)
	from = from.Sub(g.Mul(from.Dot(g)))
	to := engineFront.Sub(g.Mul(engineFront.Dot(g)))
	if from.Len() < 1e-6 || to.Len() < 1e-6 {
		return FrameNormalizer{rotation: q}
	}

	angle := math32.Atan2(g.Dot(from.Cross(to)), from.Dot(to))
	twist := mgl32.QuatRotate(angle, g)
	return FrameNormalizer{rotation: twist.Mul(q).Normalize()}
}

func newFrameNormalizer(opts Options) FrameNormalizer {
	return NewFrameNormalizerWithFront(opts.NativeGravity, opts.NativeFront, opts.Gravity, opts.Front)
}

// Rotation returns the fixed rotation applied by Apply.
func (f FrameNormalizer) Rotation() mgl32.Quat {
	return f.rotation
}

// Apply rotates every point in place.
func (f FrameNormalizer) Apply(points []mgl32.Vec3) {
	pkgmath.RotateAll(f.rotation, points)
}

// scalePositions multiplies every point by s in place. Non-positive and unit
// scales are ignored.
func scalePositions(points []mgl32.Vec3, s float32) {
	if s <= 0 || s == 1 {
		return
	}
	for i := range points {
		points[i] = points[i].Mul(s)
	}
}
