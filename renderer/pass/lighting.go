package pass

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// IcosphereSubdivisions controls the tessellation of the point light
// volume hull. One subdivision (80 triangles) is plenty for a bounding
// volume.
const IcosphereSubdivisions = 1

// LightingPass accumulates direct lighting into the HDR buffer: one
// fullscreen pass for the sun with a variance shadow lookup, then one
// instanced icosphere hull per point light slot. Both blend
// additively over the ambient seed.
type LightingPass struct {
	r      *renderer.Renderer
	geo    *GeometryPass
	shadow *ShadowPass

	sunPipeline   *wgpu.RenderPipeline
	pointPipeline *wgpu.RenderPipeline

	inputBGL *wgpu.BindGroupLayout
	inputBG  *wgpu.BindGroup

	shadowSampler  *wgpu.Sampler
	hullVertices   *wgpu.Buffer
	hullIndices    *wgpu.Buffer
	hullIndexCount uint32
}

func NewLightingPass(r *renderer.Renderer, geo *GeometryPass, shadow *ShadowPass) (*LightingPass, error) {
	p := &LightingPass{r: r, geo: geo, shadow: shadow}

	var err error
	if p.shadowSampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	}); err != nil {
		return nil, err
	}

	positions, indices := renderer.Icosphere(IcosphereSubdivisions)
	p.hullIndexCount = uint32(len(indices))
	if p.hullVertices, err = r.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Light hull vertices",
		Contents: renderer.IcospherePositions(positions),
		Usage:    wgpu.BufferUsageVertex,
	}); err != nil {
		return nil, err
	}
	if p.hullIndices, err = r.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Light hull indices",
		Contents: wgpu.ToBytes(indices),
		Usage:    wgpu.BufferUsageIndex,
	}); err != nil {
		return nil, err
	}

	if p.inputBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Lighting input BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureEntry(0, wgpu.TextureSampleTypeUnfilterableFloat),
			textureEntry(1, wgpu.TextureSampleTypeUnfilterableFloat),
			textureEntry(2, wgpu.TextureSampleTypeDepth),
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    4,
				Visibility: wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			textureEntry(5, wgpu.TextureSampleTypeFloat),
			samplerEntry(6, wgpu.SamplerBindingTypeFiltering),
		},
	}); err != nil {
		return nil, err
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Lighting",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.LightingWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Lighting layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.Camera.Layout(), r.Config.Layout(), p.inputBGL},
	})
	if err != nil {
		return nil, err
	}

	additive := &wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
	}

	if p.sunPipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Lighting sun",
		Layout: layout,
		Vertex: wgpu.VertexState{Module: module, EntryPoint: "vs_sun"},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_sun",
			Targets: []wgpu.ColorTargetState{{
				Format:    HDRFormat,
				Blend:     additive,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}); err != nil {
		return nil, err
	}

	if p.pointPipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Lighting point",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_point",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: renderer.PositionStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_point",
			Targets: []wgpu.ColorTargetState{{
				Format:    HDRFormat,
				Blend:     additive,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			// Front faces are culled so the volume still shades when the
			// camera sits inside it.
			CullMode: wgpu.CullModeFront,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}); err != nil {
		return nil, err
	}

	if err = p.Rebind(r.Device); err != nil {
		return nil, err
	}
	return p, nil
}

// Rebind rebuilds the input bind group against the current G-buffer
// views. Must run after every GeometryPass.Resize.
func (p *LightingPass) Rebind(dev bindGroupDevice) error {
	bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Lighting input BG",
		Layout: p.inputBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.geo.AlbedoView()},
			{Binding: 1, TextureView: p.geo.NormalView()},
			{Binding: 2, TextureView: p.geo.DepthView()},
			{Binding: 3, Buffer: p.r.PointLights.Buffer(), Size: wgpu.WholeSize},
			{Binding: 4, Buffer: p.shadow.SunBuffer(), Size: wgpu.WholeSize},
			{Binding: 5, TextureView: p.shadow.MomentsView()},
			{Binding: 6, Sampler: p.shadowSampler},
		},
	})
	if err != nil {
		return err
	}
	p.inputBG = bg
	return nil
}

// Record accumulates the sun and every live point light slot into the
// HDR buffer. The instance count is the slot high-water mark; zeroed
// slots collapse to a radius-0 hull that rasterizes nothing.
func (p *LightingPass) Record(encoder *wgpu.CommandEncoder, hdr *wgpu.TextureView) error {
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Lighting",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    hdr,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	defer rp.Release()

	rp.SetBindGroup(0, p.r.Camera.BindGroup(), nil)
	rp.SetBindGroup(1, p.r.Config.BindGroup(), nil)
	rp.SetBindGroup(2, p.inputBG, nil)

	rp.SetPipeline(p.sunPipeline)
	rp.Draw(3, 1, 0, 0)

	if slots := p.r.PointLights.Count(); slots > 0 {
		rp.SetPipeline(p.pointPipeline)
		rp.SetVertexBuffer(0, p.hullVertices, 0, wgpu.WholeSize)
		rp.SetIndexBuffer(p.hullIndices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		rp.DrawIndexed(p.hullIndexCount, slots, 0, 0, 0)
	}

	return rp.End()
}
