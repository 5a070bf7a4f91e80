// Package overlay draws 2D UI geometry over the finished frame:
// pre-tessellated triangle lists in pixel space, with optional scissor
// clipping and a texture registry keyed by opaque ids. Text rendering
// goes through a rasterized font atlas registered as a regular
// texture.
package overlay

import (
	"fmt"
	"image"
	"image/draw"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// Geometry budget of a single frame's overlay.
const (
	MaxVertices = 1 << 16
	MaxIndices  = 1 << 17
)

// TextureId identifies a registered overlay texture.
type TextureId string

// ClipRect is a pixel-space scissor window.
type ClipRect struct {
	X, Y, W, H uint32
}

// Vertex is one overlay vertex: pixel position, texture coordinate
// and straight-alpha color.
type Vertex struct {
	Position [2]float32
	UV       [2]float32
	Color    [4]float32
}

const vertexSize = uint64(unsafe.Sizeof(Vertex{}))

// PaintData is one draw batch: a triangle list against a single
// texture, optionally scissored.
type PaintData struct {
	Vertices []Vertex
	Indices  []uint32
	Texture  TextureId
	Clip     *ClipRect
}

type overlayParams struct {
	ScreenW float32
	ScreenH float32
}

// Renderer batches submitted paints and records them onto the surface
// at the end of the frame. It implements the pass graph's Overlay
// hook.
type Renderer struct {
	r *renderer.Renderer

	pipeline   *wgpu.RenderPipeline
	params     *renderer.UniformBuffer[overlayParams]
	textureBGL *wgpu.BindGroupLayout
	sampler    *wgpu.Sampler

	vertexBuf *wgpu.Buffer
	indexBuf  *wgpu.Buffer

	// White is the 1x1-equivalent default texture; untextured quads
	// reference it so one pipeline covers every paint.
	White TextureId

	textures map[TextureId]*overlayTexture
	frame    []PaintData
}

// overlayTexture bundles one registered texture with its view and bind
// group so removal can release all three.
type overlayTexture struct {
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

func (t *overlayTexture) release() {
	if t.bindGroup != nil {
		t.bindGroup.Release()
		t.bindGroup = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func New(r *renderer.Renderer) (*Renderer, error) {
	o := &Renderer{
		r:        r,
		textures: make(map[TextureId]*overlayTexture),
	}

	var err error
	if o.params, err = renderer.NewUniformBuffer(r.Device, "Overlay params",
		wgpu.ShaderStageVertex, overlayParams{}); err != nil {
		return nil, err
	}

	if o.sampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Overlay sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	}); err != nil {
		return nil, err
	}

	if o.textureBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Overlay texture BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	}); err != nil {
		return nil, err
	}

	if o.vertexBuf, err = r.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Overlay vertices",
		Size:  MaxVertices * vertexSize,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	}); err != nil {
		return nil, err
	}
	if o.indexBuf, err = r.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Overlay indices",
		Size:  MaxIndices * 4,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	}); err != nil {
		return nil, err
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Overlay",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.OverlayWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Overlay layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{o.params.Layout(), o.textureBGL},
	})
	if err != nil {
		return nil, err
	}

	if o.pipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Overlay",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: vertexSize,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: r.SurfaceFormat(),
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
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

	white := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range white.Pix {
		white.Pix[i] = 0xFF
	}
	if o.White, err = o.AddTexture(white); err != nil {
		return nil, err
	}

	return o, nil
}

// AddTexture registers an image and returns its id. The texture is
// immutable once uploaded.
func (o *Renderer) AddTexture(img image.Image) (TextureId, error) {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	texture, err := o.r.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Overlay texture",
		Size:          wgpu.Extent3D{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy()), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return "", err
	}

	o.r.Queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: texture, Aspect: wgpu.TextureAspectAll},
		rgba.Pix,
		&wgpu.TextureDataLayout{BytesPerRow: 4 * uint32(bounds.Dx()), RowsPerImage: uint32(bounds.Dy())},
		&wgpu.Extent3D{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy()), DepthOrArrayLayers: 1},
	)

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return "", err
	}
	bg, err := o.r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Overlay texture BG",
		Layout: o.textureBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: o.sampler},
		},
	})
	if err != nil {
		view.Release()
		texture.Release()
		return "", err
	}

	id := TextureId(uuid.NewString())
	o.textures[id] = &overlayTexture{texture: texture, view: view, bindGroup: bg}
	return id, nil
}

// RemoveTexture frees a registered texture and its GPU resources.
// Unknown ids and the white default are ignored; paints still
// referencing a removed id fall back to the white texture.
func (o *Renderer) RemoveTexture(id TextureId) {
	if id == o.White {
		return
	}
	t, ok := o.textures[id]
	if !ok {
		return
	}
	delete(o.textures, id)
	t.release()
}

// AddFontAtlas registers a font atlas's alpha image as a white RGBA
// texture so glyphs tint with the vertex color.
func (o *Renderer) AddFontAtlas(atlas *FontAtlas) (TextureId, error) {
	bounds := atlas.Image.Bounds()
	rgba := image.NewRGBA(bounds)
	for i, a := range atlas.Image.Pix {
		rgba.Pix[i*4+0] = 0xFF
		rgba.Pix[i*4+1] = 0xFF
		rgba.Pix[i*4+2] = 0xFF
		rgba.Pix[i*4+3] = a
	}
	return o.AddTexture(rgba)
}

// Rect tessellates a solid rectangle against the white texture.
func (o *Renderer) Rect(x, y, w, h float32, color [4]float32) PaintData {
	uv := [2]float32{0.5, 0.5}
	return PaintData{
		Texture: o.White,
		Vertices: []Vertex{
			{Position: [2]float32{x, y}, UV: uv, Color: color},
			{Position: [2]float32{x + w, y}, UV: uv, Color: color},
			{Position: [2]float32{x + w, y + h}, UV: uv, Color: color},
			{Position: [2]float32{x, y + h}, UV: uv, Color: color},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Submit queues paints for the current frame. The queue drains when
// the pass graph records the overlay.
func (o *Renderer) Submit(paints ...PaintData) {
	o.frame = append(o.frame, paints...)
}

// Record implements the pass graph's Overlay hook: upload the queued
// geometry and draw each paint with its texture and scissor.
func (o *Renderer) Record(encoder *wgpu.CommandEncoder, surface *wgpu.TextureView, width, height uint32) error {
	paints := o.frame
	o.frame = o.frame[:0]
	if len(paints) == 0 {
		return nil
	}

	o.params.Value = overlayParams{ScreenW: float32(width), ScreenH: float32(height)}
	o.params.Update()

	type span struct {
		paint      *PaintData
		firstIndex uint32
		indexCount uint32
		baseVertex int32
	}

	var vertices []Vertex
	var indices []uint32
	spans := make([]span, 0, len(paints))
	for i := range paints {
		p := &paints[i]
		if len(p.Vertices) == 0 || len(p.Indices) == 0 {
			continue
		}
		if len(vertices)+len(p.Vertices) > MaxVertices || len(indices)+len(p.Indices) > MaxIndices {
			o.r.Log.Warnf("overlay geometry budget exceeded, dropping %d paints", len(paints)-i)
			break
		}
		spans = append(spans, span{
			paint:      p,
			firstIndex: uint32(len(indices)),
			indexCount: uint32(len(p.Indices)),
			baseVertex: int32(len(vertices)),
		})
		vertices = append(vertices, p.Vertices...)
		indices = append(indices, p.Indices...)
	}
	if len(spans) == 0 {
		return nil
	}

	if err := o.r.Queue.WriteBuffer(o.vertexBuf, 0,
		unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(vertexSize))); err != nil {
		return fmt.Errorf("overlay vertices: %w", err)
	}
	if err := o.r.Queue.WriteBuffer(o.indexBuf, 0, wgpu.ToBytes(indices)); err != nil {
		return fmt.Errorf("overlay indices: %w", err)
	}

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Overlay",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    surface,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	defer rp.Release()

	rp.SetPipeline(o.pipeline)
	rp.SetBindGroup(0, o.params.BindGroup(), nil)
	rp.SetVertexBuffer(0, o.vertexBuf, 0, wgpu.WholeSize)
	rp.SetIndexBuffer(o.indexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)

	for _, s := range spans {
		tex, ok := o.textures[s.paint.Texture]
		if !ok {
			tex = o.textures[o.White]
		}
		rp.SetBindGroup(1, tex.bindGroup, nil)

		if c := s.paint.Clip; c != nil && c.X < width && c.Y < height {
			rp.SetScissorRect(c.X, c.Y, min32(c.W, width-c.X), min32(c.H, height-c.Y))
		} else {
			rp.SetScissorRect(0, 0, width, height)
		}

		rp.DrawIndexed(s.indexCount, 1, s.firstIndex, s.baseVertex, 0)
	}

	return rp.End()
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
