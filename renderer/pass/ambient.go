package pass

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// HDRFormat is the lit accumulation buffer every shading pass writes
// into before tone mapping.
const HDRFormat = wgpu.TextureFormatRGBA16Float

// AmbientPass clears the HDR buffer to ambient-lit albedo plus
// emissive. Running it first means the lighting pass can blend
// additively without a separate clear.
type AmbientPass struct {
	r        *renderer.Renderer
	geometry *GeometryPass

	pipeline *wgpu.RenderPipeline
	inputBGL *wgpu.BindGroupLayout
	inputBG  *wgpu.BindGroup
}

func NewAmbientPass(r *renderer.Renderer, geometry *GeometryPass) (*AmbientPass, error) {
	p := &AmbientPass{r: r, geometry: geometry}

	var err error
	if p.inputBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Ambient input BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			textureEntry(0, wgpu.TextureSampleTypeUnfilterableFloat),
			textureEntry(1, wgpu.TextureSampleTypeUnfilterableFloat),
		},
	}); err != nil {
		return nil, err
	}

	if p.pipeline, err = fullscreenPipeline(r.Device, "Ambient", shaders.AmbientWGSL, "fs_main",
		[]*wgpu.BindGroupLayout{r.Config.Layout(), p.inputBGL},
		[]wgpu.ColorTargetState{{Format: HDRFormat, WriteMask: wgpu.ColorWriteMaskAll}},
	); err != nil {
		return nil, err
	}

	if err = p.Rebind(r.Device); err != nil {
		return nil, err
	}
	return p, nil
}

// Rebind rebuilds the input bind group against the geometry pass's
// current G-buffer views. Must run after every GeometryPass.Resize.
func (p *AmbientPass) Rebind(dev bindGroupDevice) error {
	bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Ambient input BG",
		Layout: p.inputBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.geometry.AlbedoView()},
			{Binding: 1, TextureView: p.geometry.EmissiveView()},
		},
	})
	if err != nil {
		return err
	}
	p.inputBG = bg
	return nil
}

// Record seeds the HDR buffer.
func (p *AmbientPass) Record(encoder *wgpu.CommandEncoder, hdr *wgpu.TextureView) error {
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Ambient",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    hdr,
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
