package renderer

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// MaxTextures is the layer count of the bound texture array.
	// Layer 0 is the 1x1-equivalent white default.
	MaxTextures = 64

	// TextureArraySize is the fixed edge length of every array layer.
	// Loader images must already be decoded and scaled to fit.
	TextureArraySize = 512
)

type TextureHandle uint32

// TextureManager owns the shared material texture array. Uploads go
// through the write queue and mip chains are generated on the spot by
// the shared MipmapGenerator.
type TextureManager struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	mipgen *MipmapGenerator

	cursor    uint32
	mipLevels uint32
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	sampler   *wgpu.Sampler
}

func NewTextureManager(device *wgpu.Device, mipgen *MipmapGenerator) (*TextureManager, error) {
	mipLevels := MipLevelCount(TextureArraySize, TextureArraySize)

	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Material textures",
		Size: wgpu.Extent3D{
			Width:              TextureArraySize,
			Height:             TextureArraySize,
			DepthOrArrayLayers: MaxTextures,
		},
		MipLevelCount: mipLevels,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst |
			wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, err
	}

	view, err := texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Material textures view",
		Format:          wgpu.TextureFormatRGBA8Unorm,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   mipLevels,
		ArrayLayerCount: MaxTextures,
	})
	if err != nil {
		return nil, err
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Material sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	m := &TextureManager{
		device:    device,
		queue:     device.GetQueue(),
		mipgen:    mipgen,
		mipLevels: mipLevels,
		texture:   texture,
		view:      view,
		sampler:   sampler,
	}

	// Layer 0: solid white, so material index 0 samples to 1.0.
	white := image.NewRGBA(image.Rect(0, 0, TextureArraySize, TextureArraySize))
	for i := range white.Pix {
		white.Pix[i] = 0xFF
	}
	if _, err := m.upload(white); err != nil {
		return nil, err
	}

	return m, nil
}

// Add uploads one decoded image into the next free array layer,
// generates its mip chain, and returns the layer index as the handle.
func (m *TextureManager) Add(img image.Image) (TextureHandle, error) {
	bounds := img.Bounds()
	if bounds.Dx() != TextureArraySize || bounds.Dy() != TextureArraySize {
		return 0, fmt.Errorf("texture must be %dx%d, got %dx%d",
			TextureArraySize, TextureArraySize, bounds.Dx(), bounds.Dy())
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return m.upload(rgba)
}

func (m *TextureManager) upload(rgba *image.RGBA) (TextureHandle, error) {
	if m.cursor >= MaxTextures {
		return 0, fmt.Errorf("%w: over %d layers", ErrTextureCapacity, MaxTextures)
	}
	layer := m.cursor

	m.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  m.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		rgba.Pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  4 * TextureArraySize,
			RowsPerImage: TextureArraySize,
		},
		&wgpu.Extent3D{Width: TextureArraySize, Height: TextureArraySize, DepthOrArrayLayers: 1},
	)

	if err := m.mipgen.Generate(m.texture, wgpu.TextureFormatRGBA8Unorm,
		TextureArraySize, TextureArraySize, m.mipLevels, layer); err != nil {
		return 0, fmt.Errorf("mipmap generation: %w", err)
	}

	m.cursor++
	return TextureHandle(layer), nil
}

func (m *TextureManager) Count() uint32           { return m.cursor }
func (m *TextureManager) View() *wgpu.TextureView { return m.view }
func (m *TextureManager) Sampler() *wgpu.Sampler  { return m.sampler }
