package renderer

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const MaxPointLights = 1024

type LightHandle uint16

// PointLight is the GPU record of one point light.
//
// Struct PointLight {
//   position: vec3f;  -- 12
//   radius: f32;      -- 16
//   color: vec3f;     -- 28
//   pad: f32;         -- 32
// }
type PointLight struct {
	Position mgl32.Vec3
	Radius   float32
	Color    mgl32.Vec3
	_        float32
}

const PointLightSize = uint64(unsafe.Sizeof(PointLight{}))

// PointLightManager differs from the append-only arenas: lights come
// and go during a session (transient effects), so slots are recycled
// through an IdGenerator. Remove zeroes the GPU record so a stale slot
// reads back as the default dark light until reused.
type PointLightManager struct {
	mu    sync.Mutex
	queue writeQueue
	ids   *IdGenerator
	live  map[LightHandle]struct{}

	buffer *wgpu.Buffer
}

func NewPointLightManager(device *wgpu.Device) (*PointLightManager, error) {
	buffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Point lights",
		Size:  MaxPointLights * PointLightSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &PointLightManager{
		queue:  device.GetQueue(),
		ids:    NewIdGenerator(),
		live:   make(map[LightHandle]struct{}),
		buffer: buffer,
	}, nil
}

// Add writes the light into a recycled slot when one is free, else the
// next slot.
func (m *PointLightManager) Add(light PointLight) (LightHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.ids.Get()
	if id >= MaxPointLights {
		// Put the id back so the high-water mark stays reachable.
		m.ids.Recycle(id)
		return 0, fmt.Errorf("%w: over %d", ErrLightCapacity, MaxPointLights)
	}

	handle := LightHandle(id)
	m.live[handle] = struct{}{}
	m.queue.WriteBuffer(m.buffer, uint64(id)*PointLightSize, podBytes(&light))
	return handle, nil
}

// Remove zeroes the GPU slots and recycles the handles. Removing a
// handle that is not live is ignored.
func (m *PointLightManager) Remove(handles ...LightHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zero := make([]byte, PointLightSize)
	for _, h := range handles {
		if _, ok := m.live[h]; !ok {
			continue
		}
		delete(m.live, h)
		m.queue.WriteBuffer(m.buffer, uint64(h)*PointLightSize, zero)
		m.ids.Recycle(uint32(h))
	}
}

// Count returns the high-water slot count the lighting pass iterates,
// including zeroed (removed, not yet reused) slots.
func (m *PointLightManager) Count() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids.Count()
}

// LiveCount returns the number of currently-live lights.
func (m *PointLightManager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

func (m *PointLightManager) Buffer() *wgpu.Buffer { return m.buffer }
