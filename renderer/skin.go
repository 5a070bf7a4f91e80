package renderer

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

const MaxSkinVertices = 1 << 18

// NoSkin marks a mesh registered without joint data.
const NoSkin int32 = -1

// JointIndices holds the four joint slots influencing one vertex.
type JointIndices [4]uint16

// JointWeights holds the matching normalized blend weights.
type JointWeights [4]float32

// SkinManager appends per-vertex joint-index and joint-weight streams
// into shared fixed-capacity GPU buffers. Entries share the global
// vertex numbering space with the mesh vertex streams, so a mesh
// addresses its skin data from one absolute base index and no second
// indirection. Append-only; the cursor is an atomic fetch-and-add so
// concurrent loader goroutines may register skins in parallel.
type SkinManager struct {
	queue  writeQueue
	cursor atomic.Uint32

	joints  *wgpu.Buffer
	weights *wgpu.Buffer
}

func NewSkinManager(device *wgpu.Device) (*SkinManager, error) {
	joints, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Skin joints",
		Size:  MaxSkinVertices * uint64(unsafe.Sizeof(JointIndices{})),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	weights, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Skin weights",
		Size:  MaxSkinVertices * uint64(unsafe.Sizeof(JointWeights{})),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &SkinManager{queue: device.GetQueue(), joints: joints, weights: weights}, nil
}

// Add appends one skin's per-vertex streams and returns the global base
// index to pass to MeshManager.Add.
func (s *SkinManager) Add(joints []JointIndices, weights []JointWeights) (int32, error) {
	if len(joints) != len(weights) {
		return NoSkin, fmt.Errorf("joint stream (%d) and weight stream (%d) disagree", len(joints), len(weights))
	}
	count := uint32(len(joints))
	if count == 0 {
		return NoSkin, fmt.Errorf("skin has no vertices")
	}

	base := s.cursor.Add(count) - count
	if base+count > MaxSkinVertices {
		return NoSkin, fmt.Errorf("%w: %d vertices over %d", ErrSkinCapacity, base+count, MaxSkinVertices)
	}

	jointStride := uint64(unsafe.Sizeof(JointIndices{}))
	weightStride := uint64(unsafe.Sizeof(JointWeights{}))
	s.queue.WriteBuffer(s.joints, uint64(base)*jointStride,
		unsafe.Slice((*byte)(unsafe.Pointer(&joints[0])), int(count)*int(jointStride)))
	s.queue.WriteBuffer(s.weights, uint64(base)*weightStride,
		unsafe.Slice((*byte)(unsafe.Pointer(&weights[0])), int(count)*int(weightStride)))

	return int32(base), nil
}

func (s *SkinManager) Count() uint32         { return s.cursor.Load() }
func (s *SkinManager) Joints() *wgpu.Buffer  { return s.joints }
func (s *SkinManager) Weights() *wgpu.Buffer { return s.weights }
