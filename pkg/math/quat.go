// Package math provides the coordinate-frame helpers shared by the mesh pipeline.
package math

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// parallelEpsilon bounds 1-|cos| below which two directions are treated as
// parallel or antiparallel.
const parallelEpsilon = 1e-6

// Common axis directions.
var (
	UnitX = mgl32.Vec3{1, 0, 0}
	UnitY = mgl32.Vec3{0, 1, 0}
	UnitZ = mgl32.Vec3{0, 0, 1}
)

// RotationBetween returns the shortest-arc rotation taking direction from onto
// direction to. Inputs need not be normalized. Zero-length inputs yield the
// identity.
//
// mgl32.QuatBetweenVectors produces NaN for identical directions, so both
// degenerate cases are handled here.
func RotationBetween(from, to mgl32.Vec3) mgl32.Quat {
	fl, tl := from.Len(), to.Len()
	if fl == 0 || tl == 0 {
		return mgl32.QuatIdent()
	}
	f := from.Mul(1 / fl)
	t := to.Mul(1 / tl)

	cos := f.Dot(t)
	switch {
	case cos >= 1-parallelEpsilon:
		return mgl32.QuatIdent()
	case cos <= -1+parallelEpsilon:
		// Half turn about any axis perpendicular to f.
		axis := UnitX.Cross(f)
		if axis.Len() < 1e-3 {
			axis = UnitY.Cross(f)
		}
		return mgl32.QuatRotate(math32.Pi, axis.Normalize())
	}

	// Half-angle construction: q = (1+cos, f x t) normalized.
	axis := f.Cross(t)
	return mgl32.Quat{W: 1 + cos, V: axis}.Normalize()
}

// RotateAll rotates every point in place by q.
func RotateAll(q mgl32.Quat, points []mgl32.Vec3) {
	m := q.Normalize().Mat4().Mat3()
	for i := range points {
		points[i] = m.Mul3x1(points[i])
	}
}

// ApproxEqualVec3 reports whether a and b differ by at most eps per component.
func ApproxEqualVec3(a, b mgl32.Vec3, eps float32) bool {
	for i := 0; i < 3; i++ {
		if math32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
