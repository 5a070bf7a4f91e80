package pass

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// LDRFormat is the tone-mapped output before FXAA resolves it to the
// surface.
const LDRFormat = wgpu.TextureFormatRGBA8Unorm

// ToneMappingPass resolves the HDR accumulation buffer to LDR with
// exposure, an ACES curve and gamma from the renderer config.
type ToneMappingPass struct {
	r *renderer.Renderer

	pipeline *wgpu.RenderPipeline
	inputBGL *wgpu.BindGroupLayout
	inputBG  *wgpu.BindGroup
	sampler  *wgpu.Sampler

	hdrView *wgpu.TextureView
}

func NewToneMappingPass(r *renderer.Renderer, hdrView *wgpu.TextureView) (*ToneMappingPass, error) {
	p := &ToneMappingPass{r: r, hdrView: hdrView}

	var err error
	if p.sampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Tonemap sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	}); err != nil {
		return nil, err
	}

	if p.inputBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Tonemap input BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureEntry(0, wgpu.TextureSampleTypeFloat),
			samplerEntry(1, wgpu.SamplerBindingTypeFiltering),
		},
	}); err != nil {
		return nil, err
	}

	if p.pipeline, err = fullscreenPipeline(r.Device, "Tonemap", shaders.TonemapWGSL, "fs_main",
		[]*wgpu.BindGroupLayout{r.Config.Layout(), p.inputBGL},
		[]wgpu.ColorTargetState{{Format: LDRFormat, WriteMask: wgpu.ColorWriteMaskAll}},
	); err != nil {
		return nil, err
	}

	if err = p.rebind(r.Device); err != nil {
		return nil, err
	}
	return p, nil
}

// Rebind points the pass at a recreated HDR view after resize.
func (p *ToneMappingPass) Rebind(dev bindGroupDevice, hdrView *wgpu.TextureView) error {
	p.hdrView = hdrView
	return p.rebind(dev)
}

func (p *ToneMappingPass) rebind(dev bindGroupDevice) error {
	bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Tonemap input BG",
		Layout: p.inputBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.hdrView},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		return err
	}
	p.inputBG = bg
	return nil
}

// Record writes the tone-mapped image into the LDR target.
func (p *ToneMappingPass) Record(encoder *wgpu.CommandEncoder, ldr *wgpu.TextureView) error {
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Tonemap",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    ldr,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	defer rp.Release()

	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.r.Config.BindGroup(), nil)
	rp.SetBindGroup(1, p.inputBG, nil)
	rp.Draw(3, 1, 0, 0)
	return rp.End()
}
