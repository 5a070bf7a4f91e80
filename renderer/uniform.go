package renderer

import (
	"bytes"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// writeQueue is the slice of *wgpu.Queue the resource managers use for
// uploads. Narrowed to an interface so tests can record writes without a
// live device.
type writeQueue interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

// UniformBuffer mirrors a POD value on the CPU and shadows the last
// uploaded copy. Update issues a GPU write only when the CPU value
// actually changed since the previous upload, so per-frame calls on
// untouched parameters cost nothing.
//
// T must be a flat struct with an explicit GPU-compatible layout
// (fixed-size arrays, float32/uint32/int32 fields, 16-byte friendly).
type UniformBuffer[T any] struct {
	// Value is the CPU side. Mutate it freely, then call Update.
	Value T

	shadow    T
	queue     writeQueue
	buffer    *wgpu.Buffer
	layout    *wgpu.BindGroupLayout
	bindGroup *wgpu.BindGroup
}

func NewUniformBuffer[T any](device *wgpu.Device, label string, visibility wgpu.ShaderStage, value T) (*UniformBuffer[T], error) {
	size := uniformSize[T]()

	buffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label + " BGL",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: visibility,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: size,
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " BG",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, err
	}

	u := &UniformBuffer[T]{
		Value:     value,
		shadow:    value,
		queue:     device.GetQueue(),
		buffer:    buffer,
		layout:    layout,
		bindGroup: bindGroup,
	}
	u.upload()
	return u, nil
}

// Update uploads the CPU value if it differs from the last-synchronized
// copy. Returns true when a write was issued.
func (u *UniformBuffer[T]) Update() bool {
	if bytes.Equal(podBytes(&u.Value), podBytes(&u.shadow)) {
		return false
	}
	u.upload()
	u.shadow = u.Value
	return true
}

func (u *UniformBuffer[T]) upload() {
	data := podBytes(&u.Value)
	if pad := len(data) % 16; pad != 0 {
		padded := make([]byte, len(data)+16-pad)
		copy(padded, data)
		data = padded
	}
	u.queue.WriteBuffer(u.buffer, 0, data)
}

func (u *UniformBuffer[T]) Buffer() *wgpu.Buffer          { return u.buffer }
func (u *UniformBuffer[T]) Layout() *wgpu.BindGroupLayout { return u.layout }
func (u *UniformBuffer[T]) BindGroup() *wgpu.BindGroup    { return u.bindGroup }

func (u *UniformBuffer[T]) Release() {
	if u.buffer != nil {
		u.buffer.Release()
		u.buffer = nil
	}
}

func uniformSize[T any]() uint64 {
	var v T
	size := uint64(unsafe.Sizeof(v))
	if size%16 != 0 {
		size += 16 - size%16
	}
	return size
}

// podBytes reinterprets a flat struct as its raw bytes for upload and
// comparison. Only valid for pointer-free types.
func podBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}
