package pass

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// G-buffer attachment formats. Normals are stored encoded as n*0.5+0.5
// so 8 bits per channel suffice; emissive stays in half floats to
// survive the HDR pipeline.
const (
	AlbedoFormat   = wgpu.TextureFormatRGBA8Unorm
	NormalFormat   = wgpu.TextureFormatRGBA8Unorm
	EmissiveFormat = wgpu.TextureFormatRGBA16Float
	DepthFormat    = wgpu.TextureFormatDepth32Float
)

// GeometryPass rasterizes every visible mesh instance into the
// G-buffer: albedo+metallic, encoded normal+roughness, emissive and
// depth. It owns those four targets; downstream passes borrow the
// views and must rebind after Resize.
type GeometryPass struct {
	r        *renderer.Renderer
	pipeline *wgpu.RenderPipeline

	sceneBGL *wgpu.BindGroupLayout
	sceneBG  *wgpu.BindGroup
	skinBG   *wgpu.BindGroup

	albedo   target
	normal   target
	emissive target
	depth    target
}

func NewGeometryPass(r *renderer.Renderer, width, height uint32) (*GeometryPass, error) {
	p := &GeometryPass{r: r}

	var err error
	if p.sceneBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Geometry scene BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			storageEntry(0, wgpu.ShaderStageVertex),
			storageEntry(1, wgpu.ShaderStageFragment),
			storageEntry(2, wgpu.ShaderStageVertex),
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			samplerEntry(4, wgpu.SamplerBindingTypeFiltering),
		},
	}); err != nil {
		return nil, fmt.Errorf("scene layout: %w", err)
	}

	if p.sceneBG, err = r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Geometry scene BG",
		Layout: p.sceneBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.Meshes.Infos(), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.Materials.Buffer(), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: r.Instances.Buffer(), Size: wgpu.WholeSize},
			{Binding: 3, TextureView: r.Textures.View()},
			{Binding: 4, Sampler: r.Textures.Sampler()},
		},
	}); err != nil {
		return nil, fmt.Errorf("scene bind group: %w", err)
	}

	if p.skinBG, err = r.SkinningBindGroup(); err != nil {
		return nil, fmt.Errorf("skinning bind group: %w", err)
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Geometry",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.GeometryWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Geometry layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.Camera.Layout(), p.sceneBGL, r.SkinningLayout},
	})
	if err != nil {
		return nil, err
	}

	if p.pipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Geometry",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: renderer.PositionStride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}},
				},
				{
					ArrayStride: renderer.NormalStride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 1}},
				},
				{
					ArrayStride: renderer.TangentStride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2}},
				},
				{
					ArrayStride: renderer.UV0Stride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 3}},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: AlbedoFormat, WriteMask: wgpu.ColorWriteMaskAll},
				{Format: NormalFormat, WriteMask: wgpu.ColorWriteMaskAll},
				{Format: EmissiveFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
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

	if err := p.createTargets(width, height); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *GeometryPass) createTargets(width, height uint32) error {
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding

	var err error
	if p.albedo, err = newTarget(p.r.Device, "G-buffer albedo", width, height, AlbedoFormat, usage); err != nil {
		return err
	}
	if p.normal, err = newTarget(p.r.Device, "G-buffer normal", width, height, NormalFormat, usage); err != nil {
		return err
	}
	if p.emissive, err = newTarget(p.r.Device, "G-buffer emissive", width, height, EmissiveFormat, usage); err != nil {
		return err
	}
	if p.depth, err = newTarget(p.r.Device, "G-buffer depth", width, height, DepthFormat, usage); err != nil {
		return err
	}
	return nil
}

// Resize drops the old targets and recreates them at the new size.
// Downstream passes hold views into these textures and must Rebind.
func (p *GeometryPass) Resize(width, height uint32) error {
	p.albedo.release()
	p.normal.release()
	p.emissive.release()
	p.depth.release()
	return p.createTargets(width, height)
}

func (p *GeometryPass) AlbedoView() *wgpu.TextureView   { return p.albedo.view }
func (p *GeometryPass) NormalView() *wgpu.TextureView   { return p.normal.view }
func (p *GeometryPass) EmissiveView() *wgpu.TextureView { return p.emissive.view }
func (p *GeometryPass) DepthView() *wgpu.TextureView    { return p.depth.view }
func (p *GeometryPass) DepthTexture() *wgpu.Texture     { return p.depth.texture }

// Record encodes the G-buffer pass: one multi-draw loop over the
// registered meshes, instanced from the grouped instance buffer.
// Meshes with no instance inside the frustum are skipped.
func (p *GeometryPass) Record(encoder *wgpu.CommandEncoder) error {
	r := p.r
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Geometry",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{View: p.albedo.view, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
			{View: p.normal.view, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
			{View: p.emissive.view, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            p.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	defer rp.Release()

	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, r.Camera.BindGroup(), nil)
	rp.SetBindGroup(1, p.sceneBG, nil)
	rp.SetBindGroup(2, p.skinBG, nil)
	rp.SetVertexBuffer(0, r.Meshes.Positions(), 0, wgpu.WholeSize)
	rp.SetVertexBuffer(1, r.Meshes.Normals(), 0, wgpu.WholeSize)
	rp.SetVertexBuffer(2, r.Meshes.Tangents(), 0, wgpu.WholeSize)
	rp.SetVertexBuffer(3, r.Meshes.UV0(), 0, wgpu.WholeSize)
	rp.SetIndexBuffer(r.Meshes.Indices(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)

	frustum := r.Camera.Value().Frustum
	for m := renderer.MeshHandle(0); uint32(m) < r.Meshes.Count(); m++ {
		count := r.Instances.MeshInstanceCount(m)
		if count == 0 {
			continue
		}
		info := r.Meshes.Info(m)
		if !r.Instances.AnyVisible(m, info.BoundingSphere, frustum) {
			continue
		}
		rp.DrawIndexed(r.Meshes.IndexCount(m), count,
			info.BaseIndex, info.VertexOffset, r.Instances.BaseInstance(m))
	}

	return rp.End()
}
