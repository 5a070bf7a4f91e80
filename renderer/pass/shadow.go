package pass

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

const (
	// ShadowMapSize is the fixed edge length of the variance shadow
	// map. Independent of the window, so Resize never touches it.
	ShadowMapSize = 2048

	// RG16Float keeps the moments filterable for the variance lookup.
	ShadowFormat = wgpu.TextureFormatRG16Float
)

// DirectionalLight is the sun: an orthographic view-projection for the
// shadow pass, a world-space direction and an RGB color with intensity
// in the fourth component.
//
// Struct DirectionalLight {
//   view_proj: mat4x4<f32>;  -- 64
//   direction: vec4f;        -- 80
//   color: vec4f;            -- 96
// }
type DirectionalLight struct {
	ViewProj  mgl32.Mat4
	Direction mgl32.Vec4
	Color     mgl32.Vec4
}

// ShadowPass renders depth moments (depth, depth squared) of every
// instance from the sun's point of view, for variance shadow lookups
// in the lighting pass. The map is fixed-size so the pass has no
// Resize; the sun uniform is shared with LightingPass.
type ShadowPass struct {
	r        *renderer.Renderer
	pipeline *wgpu.RenderPipeline

	sun      *renderer.UniformBuffer[DirectionalLight]
	sceneBGL *wgpu.BindGroupLayout
	sceneBG  *wgpu.BindGroup
	skinBG   *wgpu.BindGroup

	moments target
	depth   target
}

func NewShadowPass(r *renderer.Renderer) (*ShadowPass, error) {
	p := &ShadowPass{r: r}

	var err error
	if p.sun, err = renderer.NewUniformBuffer(r.Device, "Sun",
		wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, DirectionalLight{
			ViewProj:  mgl32.Ident4(),
			Direction: mgl32.Vec4{0, -1, 0, 0},
			Color:     mgl32.Vec4{1, 1, 1, 1},
		}); err != nil {
		return nil, fmt.Errorf("sun uniform: %w", err)
	}

	if p.sceneBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Shadow scene BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			storageEntry(0, wgpu.ShaderStageVertex),
			storageEntry(1, wgpu.ShaderStageVertex),
		},
	}); err != nil {
		return nil, err
	}
	if p.sceneBG, err = r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Shadow scene BG",
		Layout: p.sceneBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.Meshes.Infos(), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.Instances.Buffer(), Size: wgpu.WholeSize},
		},
	}); err != nil {
		return nil, err
	}
	if p.skinBG, err = r.SkinningBindGroup(); err != nil {
		return nil, err
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Shadow",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ShadowWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Shadow layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.sun.Layout(), p.sceneBGL, r.SkinningLayout},
	})
	if err != nil {
		return nil, err
	}

	if p.pipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Shadow",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: renderer.PositionStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    ShadowFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			// Front-face culling reduces peter-panning on closed meshes.
			CullMode: wgpu.CullModeFront,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}); err != nil {
		return nil, err
	}

	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	if p.moments, err = newTarget(r.Device, "Shadow moments", ShadowMapSize, ShadowMapSize, ShadowFormat, usage); err != nil {
		return nil, err
	}
	if p.depth, err = newTarget(r.Device, "Shadow depth", ShadowMapSize, ShadowMapSize, DepthFormat, wgpu.TextureUsageRenderAttachment); err != nil {
		return nil, err
	}
	return p, nil
}

// SetSun updates the sun parameters. The orthographic extent describes
// the world-space box the shadow map covers around the focus point.
func (p *ShadowPass) SetSun(direction mgl32.Vec3, color mgl32.Vec3, intensity float32, focus mgl32.Vec3, extent float32) {
	dir := direction.Normalize()
	eye := focus.Sub(dir.Mul(extent))
	up := mgl32.Vec3{0, 1, 0}
	if abs32(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	view := mgl32.LookAtV(eye, focus, up)
	proj := mgl32.Ortho(-extent, extent, -extent, extent, 0.1, extent*2)

	p.sun.Value = DirectionalLight{
		ViewProj:  proj.Mul4(view),
		Direction: dir.Vec4(0),
		Color:     color.Vec4(intensity),
	}
	p.sun.Update()
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func (p *ShadowPass) Sun() DirectionalLight          { return p.sun.Value }
func (p *ShadowPass) SunBuffer() *wgpu.Buffer        { return p.sun.Buffer() }
func (p *ShadowPass) MomentsView() *wgpu.TextureView { return p.moments.view }

// Release frees the sun uniform and the shadow targets.
func (p *ShadowPass) Release() {
	p.sun.Release()
	p.moments.release()
	p.depth.release()
}

// Record renders every instanced mesh into the shadow map. No frustum
// culling here: casters behind the camera still throw shadows into
// view.
func (p *ShadowPass) Record(encoder *wgpu.CommandEncoder) error {
	r := p.r
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Shadow",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       p.moments.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 1, G: 1, B: 0, A: 0},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            p.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	defer rp.Release()

	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.sun.BindGroup(), nil)
	rp.SetBindGroup(1, p.sceneBG, nil)
	rp.SetBindGroup(2, p.skinBG, nil)
	rp.SetVertexBuffer(0, r.Meshes.Positions(), 0, wgpu.WholeSize)
	rp.SetIndexBuffer(r.Meshes.Indices(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)

	for m := renderer.MeshHandle(0); uint32(m) < r.Meshes.Count(); m++ {
		count := r.Instances.MeshInstanceCount(m)
		if count == 0 {
			continue
		}
		info := r.Meshes.Info(m)
		rp.DrawIndexed(r.Meshes.IndexCount(m), count,
			info.BaseIndex, info.VertexOffset, r.Instances.BaseInstance(m))
	}

	return rp.End()
}
