package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Renderer owns the device, the surface configuration, the config
// uniform and the explicit struct of resource managers. Managers are
// named fields on purpose: every consumer's dependency is visible at
// construction time instead of hiding behind a type-erased registry.
type Renderer struct {
	Device        *wgpu.Device
	Queue         *wgpu.Queue
	Surface       *wgpu.Surface
	SurfaceConfig *wgpu.SurfaceConfiguration

	Log      Logger
	Profiler *Profiler

	Config *UniformBuffer[RendererConfig]

	Camera      *CameraManager
	Meshes      *MeshManager
	Skins       *SkinManager
	Animations  *AnimationManager
	Materials   *MaterialManager
	Textures    *TextureManager
	Instances   *InstanceManager
	PointLights *PointLightManager
	Mipmaps     *MipmapGenerator

	// SkinningLayout is the bind group layout shared by every pass that
	// reads skin and animation data (geometry, shadow, animate). It is
	// built once here and handed to each consumer, so initialization
	// order is explicit.
	SkinningLayout *wgpu.BindGroupLayout

	adapter *wgpu.Adapter
}

// New initializes the renderer against an adapter and a surface the
// windowing layer already created.
func New(adapter *wgpu.Adapter, surface *wgpu.Surface, width, height uint32, log Logger) (*Renderer, error) {
	if log == nil {
		log = NewNopLogger()
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, surfaceConfig)

	r := &Renderer{
		Device:        device,
		Queue:         device.GetQueue(),
		Surface:       surface,
		SurfaceConfig: surfaceConfig,
		Log:           log,
		Profiler:      NewProfiler(60),
		adapter:       adapter,
	}

	if r.Config, err = NewUniformBuffer(device, "RendererConfig",
		wgpu.ShaderStageFragment|wgpu.ShaderStageCompute, DefaultRendererConfig()); err != nil {
		return nil, fmt.Errorf("config uniform: %w", err)
	}
	if r.Camera, err = NewCameraManager(device); err != nil {
		return nil, fmt.Errorf("camera manager: %w", err)
	}
	if r.Mipmaps, err = NewMipmapGenerator(device); err != nil {
		return nil, fmt.Errorf("mipmap generator: %w", err)
	}
	if r.Meshes, err = NewMeshManager(device, log); err != nil {
		return nil, fmt.Errorf("mesh manager: %w", err)
	}
	if r.Skins, err = NewSkinManager(device); err != nil {
		return nil, fmt.Errorf("skin manager: %w", err)
	}
	if r.Animations, err = NewAnimationManager(device, log); err != nil {
		return nil, fmt.Errorf("animation manager: %w", err)
	}
	if r.Materials, err = NewMaterialManager(device); err != nil {
		return nil, fmt.Errorf("material manager: %w", err)
	}
	if r.Textures, err = NewTextureManager(device, r.Mipmaps); err != nil {
		return nil, fmt.Errorf("texture manager: %w", err)
	}
	if r.Instances, err = NewInstanceManager(device, log); err != nil {
		return nil, fmt.Errorf("instance manager: %w", err)
	}
	if r.PointLights, err = NewPointLightManager(device); err != nil {
		return nil, fmt.Errorf("point light manager: %w", err)
	}

	if r.SkinningLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Skinning BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("skinning layout: %w", err)
	}

	log.Infof("renderer initialized: %dx%d, surface format %d", width, height, surfaceConfig.Format)
	return r, nil
}

// SkinningBindGroup builds the bind group matching SkinningLayout.
// Consumers call this once at construction; the referenced buffers are
// fixed-capacity and never recreated, so no rebind is needed.
func (r *Renderer) SkinningBindGroup() (*wgpu.BindGroup, error) {
	return r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Skinning BG",
		Layout: r.SkinningLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.Skins.Joints(), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.Skins.Weights(), Size: wgpu.WholeSize},
			{Binding: 2, TextureView: r.Animations.View()},
			{Binding: 3, Buffer: r.Animations.Infos(), Size: wgpu.WholeSize},
		},
	})
}

func (r *Renderer) SurfaceFormat() wgpu.TextureFormat { return r.SurfaceConfig.Format }

// Resize reconfigures the surface. Frame targets and pass bind groups
// are owned by the pass graph; callers must follow up with the graph's
// Resize so every pass rebinds against the recreated textures.
func (r *Renderer) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	r.SurfaceConfig.Width = width
	r.SurfaceConfig.Height = height
	r.Surface.Configure(r.adapter, r.Device, r.SurfaceConfig)
	r.Log.Debugf("surface reconfigured to %dx%d", width, height)
}

// UpdateConfig pushes CPU-side config edits to the GPU if anything
// changed.
func (r *Renderer) UpdateConfig() {
	r.Config.Update()
}
