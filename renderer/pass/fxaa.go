package pass

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// FxaaPass antialiases the tone-mapped LDR image while resolving it to
// the swapchain surface. It is the last full-frame pass; the overlay
// draws on top of its output.
type FxaaPass struct {
	r *renderer.Renderer

	pipeline *wgpu.RenderPipeline
	inputBGL *wgpu.BindGroupLayout
	inputBG  *wgpu.BindGroup
	sampler  *wgpu.Sampler

	ldrView *wgpu.TextureView
}

func NewFxaaPass(r *renderer.Renderer, ldrView *wgpu.TextureView) (*FxaaPass, error) {
	p := &FxaaPass{r: r, ldrView: ldrView}

	var err error
	if p.sampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "FXAA sampler",
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
		Label: "FXAA input BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureEntry(0, wgpu.TextureSampleTypeFloat),
			samplerEntry(1, wgpu.SamplerBindingTypeFiltering),
		},
	}); err != nil {
		return nil, err
	}

	if p.pipeline, err = fullscreenPipeline(r.Device, "FXAA", shaders.FxaaWGSL, "fs_main",
		[]*wgpu.BindGroupLayout{p.inputBGL},
		[]wgpu.ColorTargetState{{Format: r.SurfaceFormat(), WriteMask: wgpu.ColorWriteMaskAll}},
	); err != nil {
		return nil, err
	}

	if err = p.rebind(r.Device); err != nil {
		return nil, err
	}
	return p, nil
}

// Rebind points the pass at a recreated LDR view after resize.
func (p *FxaaPass) Rebind(dev bindGroupDevice, ldrView *wgpu.TextureView) error {
	p.ldrView = ldrView
	return p.rebind(dev)
}

func (p *FxaaPass) rebind(dev bindGroupDevice) error {
	bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "FXAA input BG",
		Layout: p.inputBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.ldrView},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		return err
	}
	p.inputBG = bg
	return nil
}

// Record resolves the LDR image onto the surface view.
func (p *FxaaPass) Record(encoder *wgpu.CommandEncoder, surface *wgpu.TextureView) error {
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "FXAA",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    surface,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	defer rp.Release()

	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.inputBG, nil)
	rp.Draw(3, 1, 0, 0)
	return rp.End()
}
