package pass

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// HizFormat is the depth pyramid texel format. A color format because
// storage bindings cannot target depth formats.
const HizFormat = wgpu.TextureFormatR32Float

// HizPass builds a hierarchical min-depth pyramid from the G-buffer
// depth: mip 0 is a copy, each further mip the min of the 2x2 block
// below. Consumers use it for conservative occlusion queries.
type HizPass struct {
	r   *renderer.Renderer
	geo *GeometryPass

	copyPipeline   *wgpu.ComputePipeline
	reducePipeline *wgpu.ComputePipeline
	copyBGL        *wgpu.BindGroupLayout
	reduceBGL      *wgpu.BindGroupLayout

	pyramid *wgpu.Texture
	view    *wgpu.TextureView

	levels     []hizLevel
	width      uint32
	height     uint32
	levelCount uint32
}

type hizLevel struct {
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
	width     uint32
	height    uint32
}

func NewHizPass(r *renderer.Renderer, geo *GeometryPass, width, height uint32) (*HizPass, error) {
	p := &HizPass{r: r, geo: geo}

	var err error
	if p.copyBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "HiZ copy BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        HizFormat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	}); err != nil {
		return nil, err
	}
	if p.reduceBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "HiZ reduce BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        HizFormat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	}); err != nil {
		return nil, err
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "HiZ",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.HizWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	copyLayout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "HiZ copy layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.copyBGL},
	})
	if err != nil {
		return nil, err
	}
	if p.copyPipeline, err = r.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "HiZ copy",
		Layout: copyLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cs_copy",
		},
	}); err != nil {
		return nil, err
	}

	reduceLayout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "HiZ reduce layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.reduceBGL},
	})
	if err != nil {
		return nil, err
	}
	if p.reducePipeline, err = r.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "HiZ reduce",
		Layout: reduceLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cs_reduce",
		},
	}); err != nil {
		return nil, err
	}

	if err = p.createPyramid(width, height); err != nil {
		return nil, err
	}
	if err = p.Rebind(r.Device); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *HizPass) createPyramid(width, height uint32) error {
	p.width, p.height = width, height
	p.levelCount = renderer.MipLevelCount(width, height)

	pyramid, err := p.r.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "HiZ pyramid",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: p.levelCount,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        HizFormat,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding,
	})
	if err != nil {
		return err
	}
	view, err := pyramid.CreateView(&wgpu.TextureViewDescriptor{
		Label:         "HiZ pyramid view",
		Format:        HizFormat,
		Dimension:     wgpu.TextureViewDimension2D,
		MipLevelCount: p.levelCount,
	})
	if err != nil {
		pyramid.Release()
		return err
	}

	p.pyramid, p.view = pyramid, view
	return nil
}

// Resize recreates the pyramid at the new size. Rebind must follow.
func (p *HizPass) Resize(width, height uint32) error {
	p.releaseLevels()
	if p.view != nil {
		p.view.Release()
		p.view = nil
	}
	if p.pyramid != nil {
		p.pyramid.Release()
		p.pyramid = nil
	}
	return p.createPyramid(width, height)
}

func (p *HizPass) releaseLevels() {
	for i := range p.levels {
		if p.levels[i].view != nil {
			p.levels[i].view.Release()
		}
	}
	p.levels = nil
}

// Rebind rebuilds the per-level views and bind groups: level 0 reads
// the G-buffer depth, level N reads level N-1.
func (p *HizPass) Rebind(dev bindGroupDevice) error {
	p.releaseLevels()

	w, h := p.width, p.height
	levels := make([]hizLevel, 0, p.levelCount)
	for level := uint32(0); level < p.levelCount; level++ {
		view, err := p.pyramid.CreateView(&wgpu.TextureViewDescriptor{
			Label:         fmt.Sprintf("HiZ level %d", level),
			Format:        HizFormat,
			Dimension:     wgpu.TextureViewDimension2D,
			BaseMipLevel:  level,
			MipLevelCount: 1,
		})
		if err != nil {
			return err
		}

		var bg *wgpu.BindGroup
		if level == 0 {
			bg, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  "HiZ copy BG",
				Layout: p.copyBGL,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, TextureView: p.geo.DepthView()},
					{Binding: 1, TextureView: view},
				},
			})
		} else {
			bg, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  fmt.Sprintf("HiZ reduce BG %d", level),
				Layout: p.reduceBGL,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 2, TextureView: levels[level-1].view},
					{Binding: 3, TextureView: view},
				},
			})
		}
		if err != nil {
			view.Release()
			return err
		}

		levels = append(levels, hizLevel{view: view, bindGroup: bg, width: w, height: h})
		w = max32(w/2, 1)
		h = max32(h/2, 1)
	}

	p.levels = levels
	return nil
}

func (p *HizPass) View() *wgpu.TextureView { return p.view }
func (p *HizPass) LevelCount() uint32      { return p.levelCount }

// Record dispatches the copy then each reduction, one workgroup per
// 8x8 tile of the destination level.
func (p *HizPass) Record(encoder *wgpu.CommandEncoder) error {
	cp := encoder.BeginComputePass(nil)
	defer cp.Release()

	for level, l := range p.levels {
		if level == 0 {
			cp.SetPipeline(p.copyPipeline)
		} else if level == 1 {
			cp.SetPipeline(p.reducePipeline)
		}
		cp.SetBindGroup(0, l.bindGroup, nil)
		cp.DispatchWorkgroups((l.width+7)/8, (l.height+7)/8, 1)
	}

	return cp.End()
}
