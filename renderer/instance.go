package renderer

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const MaxInstances = 16384

// Instance is the authoritative record of one drawable occurrence of a
// mesh with a material, a transform and an animation playback state.
type Instance struct {
	Transform mgl32.Mat4
	Mesh      MeshHandle
	Material  MaterialHandle
	Animation AnimationState
}

// instanceRecord is the GPU layout of one instance.
//
// Struct Instance {
//   transform: mat4x4<f32>;  -- 64
//   mesh: u32;               -- 68
//   material: u32;           -- 72
//   animation: u32;          -- 76
//   anim_time: f32;          -- 80
// }
type instanceRecord struct {
	Transform mgl32.Mat4
	Mesh      uint32
	Material  uint32
	Animation uint32
	AnimTime  float32
}

const InstanceSize = uint64(unsafe.Sizeof(instanceRecord{}))

// InstanceManager keeps the flat GPU instance buffer grouped by mesh
// handle and maintains the per-mesh base-instance prefix table:
// baseInstances[m] is the count of instances whose mesh handle is < m,
// which is also mesh m's starting offset into the flat buffer. A draw
// for mesh m then needs no per-instance mesh-id branch in the vertex
// shader.
//
// Appends touch only the suffix from the minimum mesh index of the
// batch onward, both in the table and in the instance buffer, which
// bounds write amplification.
type InstanceManager struct {
	queue writeQueue
	log   Logger

	buckets [MaxMeshes][]Instance
	base    [MaxMeshes + 1]uint32
	total   uint32

	instances *wgpu.Buffer
	baseBuf   *wgpu.Buffer
}

func NewInstanceManager(device *wgpu.Device, log Logger) (*InstanceManager, error) {
	instances, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Instances",
		Size:  MaxInstances * InstanceSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	baseBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Base instances",
		Size:  (MaxMeshes + 1) * 4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &InstanceManager{
		queue:     device.GetQueue(),
		log:       log,
		instances: instances,
		baseBuf:   baseBuf,
	}, nil
}

// Add appends a batch of instances, regroups them by mesh, and
// re-uploads the touched suffix of the instance buffer and the
// base-instance table.
func (im *InstanceManager) Add(instances ...Instance) error {
	if len(instances) == 0 {
		return nil
	}
	if im.total+uint32(len(instances)) > MaxInstances {
		return fmt.Errorf("%w: %d instances over %d", ErrInstanceCapacity, im.total+uint32(len(instances)), MaxInstances)
	}

	minMesh := MaxMeshes
	for _, inst := range instances {
		m := int(inst.Mesh)
		if m >= MaxMeshes {
			return fmt.Errorf("instance references mesh %d beyond capacity %d", m, MaxMeshes)
		}
		im.buckets[m] = append(im.buckets[m], inst)
		if m < minMesh {
			minMesh = m
		}
	}
	im.total += uint32(len(instances))

	// Counts of instances below minMesh are untouched; rebuild the
	// running prefix from there.
	for m := minMesh; m < MaxMeshes; m++ {
		im.base[m+1] = im.base[m] + uint32(len(im.buckets[m]))
	}

	im.uploadSuffix(minMesh)
	return nil
}

func (im *InstanceManager) uploadSuffix(minMesh int) {
	start := im.base[minMesh]
	records := make([]instanceRecord, 0, im.total-start)
	for m := minMesh; m < MaxMeshes; m++ {
		for _, inst := range im.buckets[m] {
			records = append(records, instanceRecord{
				Transform: inst.Transform,
				Mesh:      uint32(inst.Mesh),
				Material:  uint32(inst.Material),
				Animation: uint32(inst.Animation.Animation),
				AnimTime:  inst.Animation.Time,
			})
		}
	}
	if len(records) > 0 {
		im.queue.WriteBuffer(im.instances, uint64(start)*InstanceSize,
			unsafe.Slice((*byte)(unsafe.Pointer(&records[0])), len(records)*int(InstanceSize)))
	}

	table := im.base[minMesh:]
	im.queue.WriteBuffer(im.baseBuf, uint64(minMesh)*4,
		unsafe.Slice((*byte)(unsafe.Pointer(&table[0])), len(table)*4))

	im.log.Debugf("instances: %d total, re-uploaded suffix from mesh %d (%d records)", im.total, minMesh, len(records))
}

func (im *InstanceManager) Count() uint32 { return im.total }

// BaseInstance returns mesh m's starting offset into the flat buffer.
func (im *InstanceManager) BaseInstance(m MeshHandle) uint32 { return im.base[m] }

// MeshInstanceCount returns the number of live instances of mesh m.
func (im *InstanceManager) MeshInstanceCount(m MeshHandle) uint32 {
	return im.base[m+1] - im.base[m]
}

func (im *InstanceManager) Buffer() *wgpu.Buffer     { return im.instances }
func (im *InstanceManager) BaseBuffer() *wgpu.Buffer { return im.baseBuf }

// AnyVisible reports whether at least one instance of mesh m has its
// bounding sphere inside the frustum. The sphere is the mesh's local
// bound; each instance transform moves the center and the radius is
// scaled by the longest axis of the transform.
func (im *InstanceManager) AnyVisible(m MeshHandle, sphere BoundingSphere, planes [6]mgl32.Vec4) bool {
	for _, inst := range im.buckets[m] {
		center := inst.Transform.Mul4x1(sphere.Center.Vec4(1)).Vec3()
		radius := sphere.Radius * maxAxisScale(inst.Transform)
		if SphereInFrustum(center, radius, planes) {
			return true
		}
	}
	return false
}

func maxAxisScale(m mgl32.Mat4) float32 {
	scale := float32(0)
	for c := 0; c < 3; c++ {
		axis := mgl32.Vec3{m.At(0, c), m.At(1, c), m.At(2, c)}.Len()
		if axis > scale {
			scale = axis
		}
	}
	return scale
}
