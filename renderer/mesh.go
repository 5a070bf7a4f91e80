package renderer

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Fixed arena capacities. Meshes are loaded once at scene-load time, so
// the arenas never shrink and removal is not supported.
const (
	MaxMeshes   = 1024
	MaxVertices = 1 << 20
	MaxIndices  = 1 << 21
)

// Per-vertex attribute strides in bytes, as supplied by the loader.
const (
	PositionStride = 12 // vec3f
	NormalStride   = 12 // vec3f
	TangentStride  = 16 // vec4f
	UV0Stride      = 8  // vec2f
	IndexStride    = 4  // u32
)

type MeshHandle uint16

type BoundingSphere struct {
	Center mgl32.Vec3
	Radius float32
}

// MeshInfo is the GPU record written once per registered mesh, indexed
// by mesh handle. Immutable after Add.
//
// Struct MeshInfo {
//   vertex_count: u32;    -- 4
//   base_index: u32;      -- 8
//   vertex_offset: i32;   -- 12
//   skin_base: i32;       -- 16
//   bounding_sphere: vec4f; -- 32 (center xyz, radius w)
// }
type MeshInfo struct {
	VertexCount    uint32
	BaseIndex      uint32
	VertexOffset   int32
	SkinBase       int32
	BoundingSphere BoundingSphere
}

const MeshInfoSize = uint64(unsafe.Sizeof(MeshInfo{}))

// MeshManager bump-allocates vertex and index ranges out of shared
// fixed-capacity GPU buffers and hands back stable handles. The offset
// cursors are atomic fetch-and-add counters so concurrent registration
// from multiple loader goroutines cannot corrupt each other's ranges;
// this is the only multi-thread entry point the manager supports.
type MeshManager struct {
	queue writeQueue
	log   Logger

	vertexCursor atomic.Uint32
	indexCursor  atomic.Uint32
	meshCursor   atomic.Uint32

	positions *wgpu.Buffer
	normals   *wgpu.Buffer
	tangents  *wgpu.Buffer
	uv0       *wgpu.Buffer
	indices   *wgpu.Buffer
	infos     *wgpu.Buffer

	infoMirror  [MaxMeshes]MeshInfo
	indexCounts [MaxMeshes]uint32
}

func NewMeshManager(device *wgpu.Device, log Logger) (*MeshManager, error) {
	m := &MeshManager{
		queue: device.GetQueue(),
		log:   log,
	}

	vertexBuf := func(label string, stride uint64) (*wgpu.Buffer, error) {
		return device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label,
			Size:  MaxVertices * stride,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
	}

	var err error
	if m.positions, err = vertexBuf("Mesh positions", PositionStride); err != nil {
		return nil, err
	}
	if m.normals, err = vertexBuf("Mesh normals", NormalStride); err != nil {
		return nil, err
	}
	if m.tangents, err = vertexBuf("Mesh tangents", TangentStride); err != nil {
		return nil, err
	}
	if m.uv0, err = vertexBuf("Mesh uv0", UV0Stride); err != nil {
		return nil, err
	}

	m.indices, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Mesh indices",
		Size:  MaxIndices * IndexStride,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	m.infos, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MeshInfo",
		Size:  MaxMeshes * MeshInfoSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Add registers one mesh: appends its attribute streams and index
// stream at bump-allocated offsets and writes its MeshInfo record.
// skinBase is the global skin-stream base index from SkinManager.Add,
// or NoSkin for rigid meshes.
//
// A failed reservation burns cursor space but never overlaps ranges
// already handed out to other meshes.
func (m *MeshManager) Add(sphere BoundingSphere, positions, normals, tangents, uv0 []byte, indices []uint32, skinBase int32) (MeshHandle, error) {
	if len(positions)%PositionStride != 0 {
		return 0, fmt.Errorf("positions stream not a multiple of %d bytes", PositionStride)
	}
	vertexCount := uint32(len(positions) / PositionStride)
	if vertexCount == 0 {
		return 0, fmt.Errorf("mesh has no vertices")
	}
	if uint32(len(normals)/NormalStride) != vertexCount ||
		uint32(len(tangents)/TangentStride) != vertexCount ||
		uint32(len(uv0)/UV0Stride) != vertexCount {
		return 0, fmt.Errorf("attribute streams disagree on vertex count %d", vertexCount)
	}

	indexCount := uint32(len(indices))

	vertexOffset := m.vertexCursor.Add(vertexCount) - vertexCount
	if vertexOffset+vertexCount > MaxVertices {
		return 0, fmt.Errorf("%w: %d vertices over %d", ErrVertexCapacity, vertexOffset+vertexCount, MaxVertices)
	}
	baseIndex := m.indexCursor.Add(indexCount) - indexCount
	if baseIndex+indexCount > MaxIndices {
		return 0, fmt.Errorf("%w: %d indices over %d", ErrIndexCapacity, baseIndex+indexCount, MaxIndices)
	}
	slot := m.meshCursor.Add(1) - 1
	if slot >= MaxMeshes {
		return 0, fmt.Errorf("%w: %d meshes over %d", ErrMeshCapacity, slot+1, MaxMeshes)
	}

	m.queue.WriteBuffer(m.positions, uint64(vertexOffset)*PositionStride, positions)
	m.queue.WriteBuffer(m.normals, uint64(vertexOffset)*NormalStride, normals)
	m.queue.WriteBuffer(m.tangents, uint64(vertexOffset)*TangentStride, tangents)
	m.queue.WriteBuffer(m.uv0, uint64(vertexOffset)*UV0Stride, uv0)
	if indexCount > 0 {
		m.queue.WriteBuffer(m.indices, uint64(baseIndex)*IndexStride,
			unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*IndexStride))
	}

	// The record stores the skin stream's absolute base index; rigid
	// meshes keep the NoSkin sentinel, so a skin registered at base 0
	// stays distinguishable from no skin at all.
	info := MeshInfo{
		VertexCount:    vertexCount,
		BaseIndex:      baseIndex,
		VertexOffset:   int32(vertexOffset),
		SkinBase:       skinBase,
		BoundingSphere: sphere,
	}
	m.infoMirror[slot] = info
	m.indexCounts[slot] = indexCount
	m.queue.WriteBuffer(m.infos, uint64(slot)*MeshInfoSize, podBytes(&info))

	m.log.Debugf("mesh %d: %d vertices at %d, %d indices at %d", slot, vertexCount, vertexOffset, indexCount, baseIndex)
	return MeshHandle(slot), nil
}

// Count returns the number of registered meshes.
func (m *MeshManager) Count() uint32 { return m.meshCursor.Load() }

// Info returns the CPU mirror of a mesh's GPU record.
func (m *MeshManager) Info(h MeshHandle) MeshInfo { return m.infoMirror[h] }

// IndexCount returns the number of indices in a mesh's range, for
// issuing draws.
func (m *MeshManager) IndexCount(h MeshHandle) uint32 { return m.indexCounts[h] }

func (m *MeshManager) Positions() *wgpu.Buffer { return m.positions }
func (m *MeshManager) Normals() *wgpu.Buffer   { return m.normals }
func (m *MeshManager) Tangents() *wgpu.Buffer  { return m.tangents }
func (m *MeshManager) UV0() *wgpu.Buffer       { return m.uv0 }
func (m *MeshManager) Indices() *wgpu.Buffer   { return m.indices }
func (m *MeshManager) Infos() *wgpu.Buffer     { return m.infos }
