package pass

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
)

// Overlay is the hook the UI layer implements to draw over the final
// image. It runs inside the frame encoder, after FXAA resolves to the
// surface.
type Overlay interface {
	Record(encoder *wgpu.CommandEncoder, surface *wgpu.TextureView, width, height uint32) error
}

// Graph owns the full-frame targets and runs the fixed pass sequence:
// animate, shadow, geometry, HiZ, ambient, lighting, SSAO, skybox,
// tone mapping, FXAA, overlay. The order is not configurable; every
// pass depends on its predecessors' outputs.
type Graph struct {
	r *renderer.Renderer

	hdr target
	ldr target

	Animate  *AnimatePass
	Shadow   *ShadowPass
	Geometry *GeometryPass
	Hiz      *HizPass
	Ambient  *AmbientPass
	Lighting *LightingPass
	Ssao     *SsaoPass
	Skybox   *SkyboxPass
	Tonemap  *ToneMappingPass
	Fxaa     *FxaaPass

	// Overlay is optional; nil skips the pass.
	Overlay Overlay

	width  uint32
	height uint32
}

// NewGraph builds every pass against the renderer's managers. Pass
// construction order follows data dependencies: geometry owns the
// G-buffer the rest consume.
func NewGraph(r *renderer.Renderer, width, height uint32) (*Graph, error) {
	g := &Graph{r: r, width: width, height: height}

	if err := g.createTargets(width, height); err != nil {
		return nil, err
	}

	var err error
	if g.Animate, err = NewAnimatePass(r); err != nil {
		return nil, fmt.Errorf("animate pass: %w", err)
	}
	if g.Shadow, err = NewShadowPass(r); err != nil {
		return nil, fmt.Errorf("shadow pass: %w", err)
	}
	if g.Geometry, err = NewGeometryPass(r, width, height); err != nil {
		return nil, fmt.Errorf("geometry pass: %w", err)
	}
	if g.Hiz, err = NewHizPass(r, g.Geometry, width, height); err != nil {
		return nil, fmt.Errorf("hiz pass: %w", err)
	}
	if g.Ambient, err = NewAmbientPass(r, g.Geometry); err != nil {
		return nil, fmt.Errorf("ambient pass: %w", err)
	}
	if g.Lighting, err = NewLightingPass(r, g.Geometry, g.Shadow); err != nil {
		return nil, fmt.Errorf("lighting pass: %w", err)
	}
	if g.Ssao, err = NewSsaoPass(r, g.Geometry, width, height); err != nil {
		return nil, fmt.Errorf("ssao pass: %w", err)
	}
	if g.Skybox, err = NewSkyboxPass(r, g.Geometry); err != nil {
		return nil, fmt.Errorf("skybox pass: %w", err)
	}
	if g.Tonemap, err = NewToneMappingPass(r, g.hdr.view); err != nil {
		return nil, fmt.Errorf("tonemap pass: %w", err)
	}
	if g.Fxaa, err = NewFxaaPass(r, g.ldr.view); err != nil {
		return nil, fmt.Errorf("fxaa pass: %w", err)
	}

	return g, nil
}

func (g *Graph) createTargets(width, height uint32) error {
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding

	var err error
	if g.hdr, err = newTarget(g.r.Device, "HDR", width, height, HDRFormat, usage); err != nil {
		return err
	}
	if g.ldr, err = newTarget(g.r.Device, "LDR", width, height, LDRFormat, usage); err != nil {
		return err
	}
	return nil
}

// Resize recreates every size-dependent target and rebinds every pass
// in dependency order. Any bind group still referring to an old view
// would be a stale-resource validation error on the next frame, so
// this must complete before Render runs again.
func (g *Graph) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	g.width, g.height = width, height

	g.hdr.release()
	g.ldr.release()
	if err := g.createTargets(width, height); err != nil {
		return err
	}
	if err := g.Geometry.Resize(width, height); err != nil {
		return err
	}
	if err := g.Ssao.Resize(width, height); err != nil {
		return err
	}
	if err := g.Hiz.Resize(width, height); err != nil {
		return err
	}

	dev := g.r.Device
	if err := g.Hiz.Rebind(dev); err != nil {
		return err
	}
	if err := g.Ambient.Rebind(dev); err != nil {
		return err
	}
	if err := g.Lighting.Rebind(dev); err != nil {
		return err
	}
	if err := g.Ssao.Rebind(dev); err != nil {
		return err
	}
	if err := g.Tonemap.Rebind(dev, g.hdr.view); err != nil {
		return err
	}
	if err := g.Fxaa.Rebind(dev, g.ldr.view); err != nil {
		return err
	}

	g.r.Log.Debugf("pass graph resized to %dx%d", width, height)
	return nil
}

// Render encodes and submits one frame, then presents.
func (g *Graph) Render(deltaTime float32) error {
	r := g.r

	surfaceTexture, err := r.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface: %w", err)
	}
	surfaceView, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer surfaceView.Release()

	encoder, err := r.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()

	type step struct {
		name   string
		record func() error
	}
	steps := []step{
		{"animate", func() error { return g.Animate.Record(encoder, deltaTime) }},
		{"shadow", func() error { return g.Shadow.Record(encoder) }},
		{"geometry", func() error { return g.Geometry.Record(encoder) }},
		{"hiz", func() error { return g.Hiz.Record(encoder) }},
		{"ambient", func() error { return g.Ambient.Record(encoder, g.hdr.view) }},
		{"lighting", func() error { return g.Lighting.Record(encoder, g.hdr.view) }},
		{"ssao", func() error { return g.Ssao.Record(encoder, g.hdr.view) }},
		{"skybox", func() error { return g.Skybox.Record(encoder, g.hdr.view) }},
		{"tonemap", func() error { return g.Tonemap.Record(encoder, g.ldr.view) }},
		{"fxaa", func() error { return g.Fxaa.Record(encoder, surfaceView) }},
	}
	for _, s := range steps {
		r.Profiler.Begin(s.name)
		err := s.record()
		r.Profiler.End(s.name)
		if err != nil {
			return fmt.Errorf("%s pass: %w", s.name, err)
		}
	}

	if g.Overlay != nil {
		r.Profiler.Begin("overlay")
		err := g.Overlay.Record(encoder, surfaceView, g.width, g.height)
		r.Profiler.End("overlay")
		if err != nil {
			return fmt.Errorf("overlay pass: %w", err)
		}
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("encoder finish: %w", err)
	}
	defer cmd.Release()

	r.Queue.Submit(cmd)
	r.Surface.Present()
	return nil
}
