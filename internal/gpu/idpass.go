package gpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
	pkgmath "github.com/Faultbox/instancemesh/pkg/math"
)

// IDPass renders uploaded meshes with their object ids encoded as color and
// reads the result back.
type IDPass struct {
	program     uint32
	locViewProj int32
}

// NewIDPass compiles the object id program.
func NewIDPass() (*IDPass, error) {
	program, err := CompileProgram(idVertexShader, idFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("id pass: %w", err)
	}
	return &IDPass{program: program, locViewProj: uniformLocation(program, "uViewProj")}, nil
}

// Render draws meshes into the current framebuffer of size width x height and
// returns the RGBA pixels, bottom row first.
func (p *IDPass) Render(b *Backend, meshes []*instancemesh.InstanceMesh, viewProj mgl32.Mat4, width, height int) ([]byte, error) {
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(1, 1, 1, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)

	gl.UseProgram(p.program)
	gl.UniformMatrix4fv(p.locViewProj, 1, false, &viewProj[0])
	for _, m := range meshes {
		h, ok := m.RenderHandle()
		if !ok {
			continue
		}
		if err := b.Draw(h); err != nil {
			return nil, err
		}
	}
	gl.UseProgram(0)

	pixels := make([]byte, width*height*4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, nil
}

// Destroy deletes the program.
func (p *IDPass) Destroy() {
	if p.program != 0 {
		gl.DeleteProgram(p.program)
		p.program = 0
	}
}

// CountIDs returns the number of covered pixels per object id in an id pass
// readback. Pixels with zero alpha are background.
func CountIDs(pixels []byte) map[uint16]int {
	counts := make(map[uint16]int)
	for i := 0; i+3 < len(pixels); i += 4 {
		if pixels[i+3] == 0 {
			continue
		}
		counts[uint16(pixels[i])|uint16(pixels[i+1])<<8]++
	}
	return counts
}

// FitViewProj returns an orthographic view looking down the engine gravity
// direction that frames bounds.
func FitViewProj(bounds pkgmath.Bounds, gravity mgl32.Vec3) mgl32.Mat4 {
	if bounds.IsEmpty() {
		return mgl32.Ident4()
	}
	center := bounds.Center()
	radius := bounds.Size().Len()/2 + 1e-3
	down := gravity
	if down.Len() == 0 {
		down = mgl32.Vec3{0, -1, 0}
	}
	down = down.Normalize()

	up := pkgmath.UnitZ
	if mgl32.Abs(down.Dot(up)) > 0.99 {
		up = pkgmath.UnitX
	}
	eye := center.Sub(down.Mul(radius * 2))
	view := mgl32.LookAtV(eye, center, up)
	proj := mgl32.Ortho(-radius, radius, -radius, radius, 0.01, radius*4)
	return proj.Mul4(view)
}
