package renderer

import (
	"fmt"

	"github.com/IcanDivideBy0/calva/renderer/shaders"
	"github.com/cogentcore/webgpu/wgpu"
)

// MipLevelCount returns the full mip chain length for a texture of the
// given dimensions.
func MipLevelCount(width, height uint32) uint32 {
	dim := width
	if height > dim {
		dim = height
	}
	levels := uint32(0)
	for dim > 0 {
		levels++
		dim >>= 1
	}
	return levels
}

// MipmapGenerator downsamples texture mip chains on demand with a
// linear-filtered fullscreen blit, level N into level N+1. Pipelines
// are cached per color format; the per-level views and bind groups are
// transient since each texture is processed once at upload.
type MipmapGenerator struct {
	device    *wgpu.Device
	sampler   *wgpu.Sampler
	layout    *wgpu.BindGroupLayout
	pipelines map[wgpu.TextureFormat]*wgpu.RenderPipeline
}

func NewMipmapGenerator(device *wgpu.Device) (*MipmapGenerator, error) {
	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Mipmap sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Mipmap BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &MipmapGenerator{
		device:    device,
		sampler:   sampler,
		layout:    layout,
		pipelines: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
	}, nil
}

func (g *MipmapGenerator) pipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p, ok := g.pipelines[format]; ok {
		return p, nil
	}

	module, err := g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Mipmap blit",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BlitWGSL},
	})
	if err != nil {
		return nil, err
	}

	layout, err := g.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{g.layout},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := g.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("Mipmap pipeline (format %d)", format),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
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
	if err != nil {
		return nil, err
	}

	g.pipelines[format] = pipeline
	return pipeline, nil
}

// Generate fills mip levels 1..levels-1 of one array layer from level 0.
func (g *MipmapGenerator) Generate(texture *wgpu.Texture, format wgpu.TextureFormat, width, height, levels, layer uint32) error {
	if levels < 2 {
		return nil
	}

	pipeline, err := g.pipeline(format)
	if err != nil {
		return err
	}

	encoder, err := g.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	levelView := func(level uint32) (*wgpu.TextureView, error) {
		return texture.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("Mip level %d", level),
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    level,
			MipLevelCount:   1,
			BaseArrayLayer:  layer,
			ArrayLayerCount: 1,
		})
	}

	src, err := levelView(0)
	if err != nil {
		return err
	}
	for level := uint32(1); level < levels; level++ {
		dst, err := levelView(level)
		if err != nil {
			return err
		}

		bindGroup, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Mipmap BG",
			Layout: g.layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Sampler: g.sampler},
				{Binding: 1, TextureView: src},
			},
		})
		if err != nil {
			return err
		}

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:       dst,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{},
			}},
		})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Draw(3, 1, 0, 0)
		if err := pass.End(); err != nil {
			return err
		}

		src.Release()
		src = dst
	}
	src.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	g.device.GetQueue().Submit(cmd)
	return nil
}
