package renderer

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

const MaxMaterials = 256

type MaterialHandle uint16

// Material references textures by index into the bound texture array.
// Zero means "no texture", which the shaders resolve to the defaults
// (white albedo, flat normal, full roughness, no emissive).
//
// Struct Material {
//   albedo: u32;             -- 4
//   normal: u32;             -- 8
//   metallic_roughness: u32; -- 12
//   emissive: u32;           -- 16
// }
type Material struct {
	Albedo            TextureHandle
	Normal            TextureHandle
	MetallicRoughness TextureHandle
	Emissive          TextureHandle
}

const MaterialSize = uint64(unsafe.Sizeof(Material{}))

// MaterialManager is an append-only arena over a fixed-capacity storage
// buffer. Slot 0 is reserved for the default material and written at
// construction; handles from Add start at 1.
type MaterialManager struct {
	queue  writeQueue
	cursor atomic.Uint32

	buffer *wgpu.Buffer
}

func NewMaterialManager(device *wgpu.Device) (*MaterialManager, error) {
	buffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Materials",
		Size:  MaxMaterials * MaterialSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	m := &MaterialManager{queue: device.GetQueue(), buffer: buffer}

	// Slot 0: the null material.
	def := Material{}
	m.queue.WriteBuffer(buffer, 0, podBytes(&def))
	m.cursor.Store(1)

	return m, nil
}

func (m *MaterialManager) Add(material Material) (MaterialHandle, error) {
	slot := m.cursor.Add(1) - 1
	if slot >= MaxMaterials {
		return 0, fmt.Errorf("%w: %d materials over %d", ErrMaterialCapacity, slot+1, MaxMaterials)
	}
	m.queue.WriteBuffer(m.buffer, uint64(slot)*MaterialSize, podBytes(&material))
	return MaterialHandle(slot), nil
}

func (m *MaterialManager) Count() uint32        { return m.cursor.Load() }
func (m *MaterialManager) Buffer() *wgpu.Buffer { return m.buffer }
