package pass

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// AOFormat is the single-channel occlusion target.
const AOFormat = wgpu.TextureFormatR8Unorm

// SsaoPass estimates screen-space ambient occlusion at half
// resolution, smooths it with a separable box blur (horizontal into a
// scratch target, vertical back), and multiplies the result onto the
// HDR buffer.
type SsaoPass struct {
	r   *renderer.Renderer
	geo *GeometryPass

	occlusionPipeline *wgpu.RenderPipeline
	blurHPipeline     *wgpu.RenderPipeline
	blurVPipeline     *wgpu.RenderPipeline
	compositePipeline *wgpu.RenderPipeline

	inputBGL     *wgpu.BindGroupLayout
	blurBGL      *wgpu.BindGroupLayout
	compositeBGL *wgpu.BindGroupLayout

	inputBG     *wgpu.BindGroup
	blurHBG     *wgpu.BindGroup
	blurVBG     *wgpu.BindGroup
	compositeBG *wgpu.BindGroup

	depthSampler *wgpu.Sampler
	aoSampler    *wgpu.Sampler

	occlusion target
	scratch   target
}

func NewSsaoPass(r *renderer.Renderer, geo *GeometryPass, width, height uint32) (*SsaoPass, error) {
	p := &SsaoPass{r: r, geo: geo}

	var err error
	if p.depthSampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "SSAO depth sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	}); err != nil {
		return nil, err
	}
	if p.aoSampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "SSAO sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	}); err != nil {
		return nil, err
	}

	if p.inputBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "SSAO input BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureEntry(0, wgpu.TextureSampleTypeDepth),
			textureEntry(1, wgpu.TextureSampleTypeUnfilterableFloat),
			samplerEntry(2, wgpu.SamplerBindingTypeNonFiltering),
		},
	}); err != nil {
		return nil, err
	}
	if p.blurBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "SSAO blur BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureEntry(1, wgpu.TextureSampleTypeUnfilterableFloat),
		},
	}); err != nil {
		return nil, err
	}
	if p.compositeBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "SSAO composite BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureEntry(2, wgpu.TextureSampleTypeFloat),
			samplerEntry(3, wgpu.SamplerBindingTypeFiltering),
		},
	}); err != nil {
		return nil, err
	}

	aoTarget := []wgpu.ColorTargetState{{Format: AOFormat, WriteMask: wgpu.ColorWriteMaskAll}}
	if p.occlusionPipeline, err = fullscreenPipeline(r.Device, "SSAO occlusion", shaders.SsaoWGSL, "fs_occlusion",
		[]*wgpu.BindGroupLayout{r.Camera.Layout(), r.Config.Layout(), p.inputBGL}, aoTarget); err != nil {
		return nil, err
	}
	if p.blurHPipeline, err = fullscreenPipeline(r.Device, "SSAO blur H", shaders.SsaoWGSL, "fs_blur_horizontal",
		[]*wgpu.BindGroupLayout{p.blurBGL}, aoTarget); err != nil {
		return nil, err
	}
	if p.blurVPipeline, err = fullscreenPipeline(r.Device, "SSAO blur V", shaders.SsaoWGSL, "fs_blur_vertical",
		[]*wgpu.BindGroupLayout{p.blurBGL}, aoTarget); err != nil {
		return nil, err
	}

	// Composite multiplies the blurred AO onto the lit image:
	// out = src * dst.
	if p.compositePipeline, err = fullscreenPipeline(r.Device, "SSAO composite", shaders.SsaoWGSL, "fs_composite",
		[]*wgpu.BindGroupLayout{p.compositeBGL},
		[]wgpu.ColorTargetState{{
			Format: HDRFormat,
			Blend: &wgpu.BlendState{
				Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorDst, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
				Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
			},
			WriteMask: wgpu.ColorWriteMaskAll,
		}},
	); err != nil {
		return nil, err
	}

	if err = p.createTargets(width, height); err != nil {
		return nil, err
	}
	if err = p.Rebind(r.Device); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SsaoPass) createTargets(width, height uint32) error {
	// Half resolution; the blur hides the lost detail.
	w, h := max32(width/2, 1), max32(height/2, 1)
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding

	var err error
	if p.occlusion, err = newTarget(p.r.Device, "SSAO occlusion", w, h, AOFormat, usage); err != nil {
		return err
	}
	if p.scratch, err = newTarget(p.r.Device, "SSAO scratch", w, h, AOFormat, usage); err != nil {
		return err
	}
	return nil
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// Resize recreates the half-resolution targets. The caller must Rebind
// afterwards, as with every pass that consumes G-buffer views.
func (p *SsaoPass) Resize(width, height uint32) error {
	p.occlusion.release()
	p.scratch.release()
	return p.createTargets(width, height)
}

// Rebind rebuilds every bind group that references a size-dependent
// view: the G-buffer inputs and the internal blur ping-pong.
func (p *SsaoPass) Rebind(dev bindGroupDevice) error {
	inputBG, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "SSAO input BG",
		Layout: p.inputBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.geo.DepthView()},
			{Binding: 1, TextureView: p.geo.NormalView()},
			{Binding: 2, Sampler: p.depthSampler},
		},
	})
	if err != nil {
		return err
	}
	blurHBG, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "SSAO blur H BG",
		Layout:  p.blurBGL,
		Entries: []wgpu.BindGroupEntry{{Binding: 1, TextureView: p.occlusion.view}},
	})
	if err != nil {
		return err
	}
	blurVBG, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "SSAO blur V BG",
		Layout:  p.blurBGL,
		Entries: []wgpu.BindGroupEntry{{Binding: 1, TextureView: p.scratch.view}},
	})
	if err != nil {
		return err
	}
	compositeBG, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "SSAO composite BG",
		Layout: p.compositeBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 2, TextureView: p.occlusion.view},
			{Binding: 3, Sampler: p.aoSampler},
		},
	})
	if err != nil {
		return err
	}

	p.inputBG = inputBG
	p.blurHBG = blurHBG
	p.blurVBG = blurVBG
	p.compositeBG = compositeBG
	return nil
}

func (p *SsaoPass) fullscreen(encoder *wgpu.CommandEncoder, label string, view *wgpu.TextureView,
	load wgpu.LoadOp, pipeline *wgpu.RenderPipeline, groups ...*wgpu.BindGroup) error {

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  load,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	defer rp.Release()

	rp.SetPipeline(pipeline)
	for i, bg := range groups {
		rp.SetBindGroup(uint32(i), bg, nil)
	}
	rp.Draw(3, 1, 0, 0)
	return rp.End()
}

// Record runs estimate, blur and composite.
func (p *SsaoPass) Record(encoder *wgpu.CommandEncoder, hdr *wgpu.TextureView) error {
	if err := p.fullscreen(encoder, "SSAO occlusion", p.occlusion.view, wgpu.LoadOpClear,
		p.occlusionPipeline, p.r.Camera.BindGroup(), p.r.Config.BindGroup(), p.inputBG); err != nil {
		return err
	}
	if err := p.fullscreen(encoder, "SSAO blur H", p.scratch.view, wgpu.LoadOpClear,
		p.blurHPipeline, p.blurHBG); err != nil {
		return err
	}
	if err := p.fullscreen(encoder, "SSAO blur V", p.occlusion.view, wgpu.LoadOpClear,
		p.blurVPipeline, p.blurVBG); err != nil {
		return err
	}
	return p.fullscreen(encoder, "SSAO composite", hdr, wgpu.LoadOpLoad,
		p.compositePipeline, p.compositeBG)
}
