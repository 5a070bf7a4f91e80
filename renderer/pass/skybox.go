package pass

import (
	"image"
	"image/draw"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// SkyboxFaceSize is the edge length of each cubemap face.
const SkyboxFaceSize = 512

// SkyboxPass draws the background cubemap into the HDR buffer wherever
// the depth buffer is still at the clear value. A solid dark gradient
// cube is installed by default; SetFaces replaces it.
type SkyboxPass struct {
	r   *renderer.Renderer
	geo *GeometryPass

	pipeline *wgpu.RenderPipeline
	skyBGL   *wgpu.BindGroupLayout
	skyBG    *wgpu.BindGroup

	sampler *wgpu.Sampler
	cube    *wgpu.Texture
	view    *wgpu.TextureView
}

func NewSkyboxPass(r *renderer.Renderer, geo *GeometryPass) (*SkyboxPass, error) {
	p := &SkyboxPass{r: r, geo: geo}

	var err error
	if p.sampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Skybox sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	}); err != nil {
		return nil, err
	}

	if p.skyBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Skybox BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimensionCube,
				},
			},
			samplerEntry(1, wgpu.SamplerBindingTypeFiltering),
		},
	}); err != nil {
		return nil, err
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Skybox",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SkyboxWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Skybox layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.Camera.Layout(), p.skyBGL},
	})
	if err != nil {
		return nil, err
	}

	if p.pipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Skybox",
		Layout: layout,
		Vertex: wgpu.VertexState{Module: module, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    HDRFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: false,
			// The fullscreen triangle sits at z = 1; only texels the
			// geometry pass left untouched pass the test.
			DepthCompare: wgpu.CompareFunctionLessEqual,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}); err != nil {
		return nil, err
	}

	if err = p.installDefaultCube(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SkyboxPass) installDefaultCube() error {
	faces := make([]image.Image, 6)
	for i := range faces {
		face := image.NewRGBA(image.Rect(0, 0, SkyboxFaceSize, SkyboxFaceSize))
		for j := 0; j < len(face.Pix); j += 4 {
			face.Pix[j+0] = 0x10
			face.Pix[j+1] = 0x12
			face.Pix[j+2] = 0x18
			face.Pix[j+3] = 0xFF
		}
		faces[i] = face
	}
	return p.SetFaces(faces)
}

// SetFaces uploads a new cubemap from six equally-sized square face
// images, ordered +X, -X, +Y, -Y, +Z, -Z.
func (p *SkyboxPass) SetFaces(faces []image.Image) error {
	if len(faces) != 6 {
		return renderer.ErrSkyboxFaces
	}
	size := uint32(faces[0].Bounds().Dx())

	cube, err := p.r.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Skybox cubemap",
		Size:          wgpu.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 6},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return err
	}

	for i, face := range faces {
		bounds := face.Bounds()
		if uint32(bounds.Dx()) != size || uint32(bounds.Dy()) != size {
			cube.Release()
			return renderer.ErrSkyboxFaces
		}
		rgba, ok := face.(*image.RGBA)
		if !ok {
			rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
			draw.Draw(rgba, rgba.Bounds(), face, bounds.Min, draw.Src)
		}
		p.r.Queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture: cube,
				Origin:  wgpu.Origin3D{Z: uint32(i)},
				Aspect:  wgpu.TextureAspectAll,
			},
			rgba.Pix,
			&wgpu.TextureDataLayout{BytesPerRow: 4 * size, RowsPerImage: size},
			&wgpu.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
		)
	}

	view, err := cube.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Skybox cubemap view",
		Format:          wgpu.TextureFormatRGBA8Unorm,
		Dimension:       wgpu.TextureViewDimensionCube,
		MipLevelCount:   1,
		ArrayLayerCount: 6,
	})
	if err != nil {
		cube.Release()
		return err
	}

	bg, err := p.r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Skybox BG",
		Layout: p.skyBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		view.Release()
		cube.Release()
		return err
	}

	if p.cube != nil {
		p.view.Release()
		p.cube.Release()
	}
	p.cube, p.view, p.skyBG = cube, view, bg
	return nil
}

// Record draws the sky behind the geometry, depth-tested against the
// G-buffer depth.
func (p *SkyboxPass) Record(encoder *wgpu.CommandEncoder, hdr *wgpu.TextureView) error {
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Skybox",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    hdr,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:         p.geo.DepthView(),
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		},
	})
	defer rp.Release()

	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.r.Camera.BindGroup(), nil)
	rp.SetBindGroup(1, p.skyBG, nil)
	rp.Draw(3, 1, 0, 0)
	return rp.End()
}
