package pass

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/IcanDivideBy0/calva/renderer"
	"github.com/IcanDivideBy0/calva/renderer/shaders"
)

// animateWorkgroupSize matches @workgroup_size in the shader.
const animateWorkgroupSize = 256

// AnimateParams is the per-frame input of the animate dispatch.
//
// Struct AnimateParams {
//   delta_time: f32;      -- 4
//   instance_count: u32;  -- 8
// }
type AnimateParams struct {
	DeltaTime     float32
	InstanceCount uint32
}

// AnimatePass advances every instance's animation clock on the GPU,
// one thread per instance, wrapping each clock against its clip
// duration. Runs first in the frame so the geometry and shadow passes
// see the new times.
type AnimatePass struct {
	r *renderer.Renderer

	pipeline *wgpu.ComputePipeline
	params   *renderer.UniformBuffer[AnimateParams]
	dataBGL  *wgpu.BindGroupLayout
	dataBG   *wgpu.BindGroup
}

func NewAnimatePass(r *renderer.Renderer) (*AnimatePass, error) {
	p := &AnimatePass{r: r}

	var err error
	if p.params, err = renderer.NewUniformBuffer(r.Device, "AnimateParams",
		wgpu.ShaderStageCompute, AnimateParams{}); err != nil {
		return nil, err
	}

	if p.dataBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Animate BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
		},
	}); err != nil {
		return nil, err
	}

	if p.dataBG, err = r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Animate BG",
		Layout: p.dataBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.params.Buffer(), Size: wgpu.WholeSize},
			{Binding: 1, Buffer: r.Instances.Buffer(), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: r.Animations.Infos(), Size: wgpu.WholeSize},
		},
	}); err != nil {
		return nil, err
	}

	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Animate",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.AnimateWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Animate layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.dataBGL},
	})
	if err != nil {
		return nil, err
	}
	if p.pipeline, err = r.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "Animate",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cs_main",
		},
	}); err != nil {
		return nil, err
	}

	return p, nil
}

// DispatchGroups returns the workgroup count covering n instances.
func DispatchGroups(n uint32) uint32 {
	return (n + animateWorkgroupSize - 1) / animateWorkgroupSize
}

// Record uploads the frame delta and dispatches one thread per
// instance. A frame with no instances skips the dispatch entirely.
func (p *AnimatePass) Record(encoder *wgpu.CommandEncoder, deltaTime float32) error {
	count := p.r.Instances.Count()
	if count == 0 {
		return nil
	}

	p.params.Value = AnimateParams{DeltaTime: deltaTime, InstanceCount: count}
	p.params.Update()

	cp := encoder.BeginComputePass(nil)
	defer cp.Release()

	cp.SetPipeline(p.pipeline)
	cp.SetBindGroup(0, p.dataBG, nil)
	cp.DispatchWorkgroups(DispatchGroups(count), 1, 1)
	return cp.End()
}
