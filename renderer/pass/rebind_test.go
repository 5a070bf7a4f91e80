package pass

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IcanDivideBy0/calva/renderer"
)

// fakeBindGroupDevice records every bind group descriptor so tests can
// check which texture views a pass binds after its inputs are swapped.
type fakeBindGroupDevice struct {
	descs []*wgpu.BindGroupDescriptor
}

func (d *fakeBindGroupDevice) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	d.descs = append(d.descs, desc)
	return &wgpu.BindGroup{}, nil
}

type failingBindGroupDevice struct{}

func (failingBindGroupDevice) CreateBindGroup(*wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	return nil, errors.New("device lost")
}

func (d *fakeBindGroupDevice) lastEntries(t *testing.T) []wgpu.BindGroupEntry {
	t.Helper()
	require.NotEmpty(t, d.descs)
	return d.descs[len(d.descs)-1].Entries
}

func TestAmbientPass_RebindFollowsGBufferViews(t *testing.T) {
	geo := &GeometryPass{
		albedo:   target{view: &wgpu.TextureView{}},
		emissive: target{view: &wgpu.TextureView{}},
	}
	p := &AmbientPass{geometry: geo}
	dev := &fakeBindGroupDevice{}

	require.NoError(t, p.Rebind(dev))
	entries := dev.lastEntries(t)
	require.Len(t, entries, 2)
	assert.Same(t, geo.AlbedoView(), entries[0].TextureView)
	assert.Same(t, geo.EmissiveView(), entries[1].TextureView)
	assert.NotNil(t, p.inputBG)

	// A resize hands the geometry pass fresh targets; rebinding must
	// pick up the new views, not the cached ones.
	geo.albedo = target{view: &wgpu.TextureView{}}
	geo.emissive = target{view: &wgpu.TextureView{}}
	require.NoError(t, p.Rebind(dev))
	entries = dev.lastEntries(t)
	assert.Same(t, geo.AlbedoView(), entries[0].TextureView)
	assert.Same(t, geo.EmissiveView(), entries[1].TextureView)
}

func TestAmbientPass_RebindKeepsOldGroupOnError(t *testing.T) {
	p := &AmbientPass{
		geometry: &GeometryPass{},
		inputBG:  &wgpu.BindGroup{},
	}
	old := p.inputBG
	assert.Error(t, p.Rebind(failingBindGroupDevice{}))
	assert.Same(t, old, p.inputBG)
}

func TestSsaoPass_RebindBindsCurrentTargets(t *testing.T) {
	geo := &GeometryPass{
		normal: target{view: &wgpu.TextureView{}},
		depth:  target{view: &wgpu.TextureView{}},
	}
	p := &SsaoPass{
		geo:       geo,
		occlusion: target{view: &wgpu.TextureView{}},
		scratch:   target{view: &wgpu.TextureView{}},
	}
	dev := &fakeBindGroupDevice{}

	require.NoError(t, p.Rebind(dev))
	// input, blur H, blur V, composite.
	require.Len(t, dev.descs, 4)

	input := dev.descs[0].Entries
	assert.Same(t, geo.DepthView(), input[0].TextureView)
	assert.Same(t, geo.NormalView(), input[1].TextureView)

	assert.Same(t, p.occlusion.view, dev.descs[1].Entries[0].TextureView, "horizontal blur reads the raw occlusion")
	assert.Same(t, p.scratch.view, dev.descs[2].Entries[0].TextureView, "vertical blur reads the scratch")
	assert.Same(t, p.occlusion.view, dev.descs[3].Entries[0].TextureView, "composite reads the blurred occlusion")
}

func TestSsaoPass_RebindIsAllOrNothing(t *testing.T) {
	p := &SsaoPass{
		geo:     &GeometryPass{},
		inputBG: &wgpu.BindGroup{},
		blurHBG: &wgpu.BindGroup{},
	}
	oldInput, oldBlur := p.inputBG, p.blurHBG
	assert.Error(t, p.Rebind(failingBindGroupDevice{}))
	assert.Same(t, oldInput, p.inputBG)
	assert.Same(t, oldBlur, p.blurHBG)
}

func TestToneMappingPass_RebindSwapsHDRView(t *testing.T) {
	p := &ToneMappingPass{}
	dev := &fakeBindGroupDevice{}

	hdr := &wgpu.TextureView{}
	require.NoError(t, p.Rebind(dev, hdr))
	assert.Same(t, hdr, dev.lastEntries(t)[0].TextureView)

	replacement := &wgpu.TextureView{}
	require.NoError(t, p.Rebind(dev, replacement))
	assert.Same(t, replacement, dev.lastEntries(t)[0].TextureView)
	assert.Same(t, replacement, p.hdrView)
}

func TestFxaaPass_RebindSwapsLDRView(t *testing.T) {
	p := &FxaaPass{}
	dev := &fakeBindGroupDevice{}

	ldr := &wgpu.TextureView{}
	require.NoError(t, p.Rebind(dev, ldr))
	assert.Same(t, ldr, dev.lastEntries(t)[0].TextureView)
}

func TestLightingPass_RebindBindsShadowAndGBuffer(t *testing.T) {
	geo := &GeometryPass{
		albedo: target{view: &wgpu.TextureView{}},
		normal: target{view: &wgpu.TextureView{}},
		depth:  target{view: &wgpu.TextureView{}},
	}
	shadow := &ShadowPass{
		sun:     new(renderer.UniformBuffer[DirectionalLight]),
		moments: target{view: &wgpu.TextureView{}},
	}
	p := &LightingPass{
		r:      &renderer.Renderer{PointLights: new(renderer.PointLightManager)},
		geo:    geo,
		shadow: shadow,
	}
	dev := &fakeBindGroupDevice{}

	require.NoError(t, p.Rebind(dev))
	entries := dev.lastEntries(t)
	require.Len(t, entries, 7)
	assert.Same(t, geo.AlbedoView(), entries[0].TextureView)
	assert.Same(t, geo.NormalView(), entries[1].TextureView)
	assert.Same(t, geo.DepthView(), entries[2].TextureView)
	assert.Same(t, shadow.MomentsView(), entries[5].TextureView)
}
