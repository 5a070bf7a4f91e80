package renderer

import (
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraUniform is the GPU-visible camera block. It is derived from the
// CPU view/proj pair on every Update and is the only camera
// representation shaders observe.
//
// Struct Camera {
//   view: mat4x4<f32>;          -- 64
//   proj: mat4x4<f32>;          -- 128
//   view_proj: mat4x4<f32>;     -- 192
//   inv_view: mat4x4<f32>;      -- 256
//   inv_proj: mat4x4<f32>;      -- 320
//   frustum: array<vec4f, 6>;   -- 416
// }
type CameraUniform struct {
	View     mgl32.Mat4
	Proj     mgl32.Mat4
	ViewProj mgl32.Mat4
	InvView  mgl32.Mat4
	InvProj  mgl32.Mat4
	Frustum  [6]mgl32.Vec4
}

// CameraManager recomputes the derived camera block whenever view or
// proj changes, and only then touches the GPU. Reading last frame's
// frustum against this frame's geometry is a correctness bug, so Update
// must be called before encoding any pass that consumes the camera.
type CameraManager struct {
	uniform *UniformBuffer[CameraUniform]
}

func NewCameraManager(device *wgpu.Device) (*CameraManager, error) {
	uniform, err := NewUniformBuffer(device, "Camera",
		wgpu.ShaderStageVertex|wgpu.ShaderStageFragment|wgpu.ShaderStageCompute,
		CameraUniform{
			View:     mgl32.Ident4(),
			Proj:     mgl32.Ident4(),
			ViewProj: mgl32.Ident4(),
			InvView:  mgl32.Ident4(),
			InvProj:  mgl32.Ident4(),
		})
	if err != nil {
		return nil, err
	}
	return &CameraManager{uniform: uniform}, nil
}

func (c *CameraManager) Update(view, proj mgl32.Mat4) {
	viewProj := proj.Mul4(view)
	c.uniform.Value = CameraUniform{
		View:     view,
		Proj:     proj,
		ViewProj: viewProj,
		InvView:  view.Inv(),
		InvProj:  proj.Inv(),
		Frustum:  ExtractFrustumPlanes(viewProj),
	}
	c.uniform.Update()
}

func (c *CameraManager) Value() CameraUniform          { return c.uniform.Value }
func (c *CameraManager) Buffer() *wgpu.Buffer          { return c.uniform.Buffer() }
func (c *CameraManager) Layout() *wgpu.BindGroupLayout { return c.uniform.Layout() }
func (c *CameraManager) BindGroup() *wgpu.BindGroup    { return c.uniform.BindGroup() }

// ExtractFrustumPlanes extracts the 6 planes of the frustum from the
// view-projection matrix. Order: Left, Right, Bottom, Top, Near, Far.
// Plane is Ax + By + Cz + D = 0 with the camera-visible half-space on
// the positive side. Each plane is normalized by the length of its xyz
// direction so distance tests are metric.
func ExtractFrustumPlanes(vp mgl32.Mat4) [6]mgl32.Vec4 {
	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]mgl32.Vec4{
		r3.Add(r0), // Left:   row 3 + row 0
		r3.Sub(r0), // Right:  row 3 - row 0
		r3.Add(r1), // Bottom: row 3 + row 1
		r3.Sub(r1), // Top:    row 3 - row 1
		r3.Add(r2), // Near:   row 3 + row 2
		r3.Sub(r2), // Far:    row 3 - row 2
	}

	for i := range planes {
		p := planes[i]
		length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if length > 0 {
			planes[i] = p.Mul(1.0 / length)
		}
	}
	return planes
}

// SphereInFrustum reports whether a bounding sphere intersects the
// frustum described by planes from ExtractFrustumPlanes.
func SphereInFrustum(center mgl32.Vec3, radius float32, planes [6]mgl32.Vec4) bool {
	p4 := center.Vec4(1.0)
	for i := range planes {
		if planes[i].Dot(p4) < -radius {
			return false
		}
	}
	return true
}
