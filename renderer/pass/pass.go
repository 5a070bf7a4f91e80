// Package pass implements the fixed deferred frame graph: animate,
// shadow, geometry, hierarchical depth, ambient, lighting, SSAO,
// skybox, tone mapping and FXAA, in that order. Each pass builds its
// pipelines once at construction and rebuilds only its bind groups
// when the frame targets are recreated on resize.
package pass

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupDevice is the slice of *wgpu.Device the rebind paths use.
// Narrowed so tests can hand in a recorder and check which texture
// views a pass binds after a resize.
type bindGroupDevice interface {
	CreateBindGroup(descriptor *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)
}

// target is one size-dependent frame attachment. The texture and its
// default view are recreated together on resize; stale views are the
// classic resize bug, so nothing outside the owning pass may cache
// them.
type target struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *target) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func newTarget(device *wgpu.Device, label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (target, error) {
	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return target{}, err
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return target{}, err
	}
	return target{texture: texture, view: view}, nil
}

// fullscreenPipeline builds a render pipeline for one of the
// fullscreen-triangle passes: no vertex buffers, triangle list, no
// culling, no depth.
func fullscreenPipeline(device *wgpu.Device, label, code, fragEntry string,
	layouts []*wgpu.BindGroupLayout, targets []wgpu.ColorTargetState) (*wgpu.RenderPipeline, error) {

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}

	return device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fragEntry,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

func textureEntry(binding uint32, sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    sampleType,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

func samplerEntry(binding uint32, kind wgpu.SamplerBindingType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Sampler:    wgpu.SamplerBindingLayout{Type: kind},
	}
}

func storageEntry(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
	}
}
