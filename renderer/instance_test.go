package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstanceManager() (*InstanceManager, *recordingQueue) {
	queue := &recordingQueue{}
	return &InstanceManager{queue: queue, log: NewNopLogger()}, queue
}

func instanceOf(mesh MeshHandle) Instance {
	return Instance{Transform: mgl32.Ident4(), Mesh: mesh}
}

func TestInstanceManager_BaseTableIsAPrefixSum(t *testing.T) {
	im, _ := testInstanceManager()

	require.NoError(t, im.Add(
		instanceOf(2), instanceOf(0), instanceOf(2), instanceOf(5),
	))
	require.NoError(t, im.Add(instanceOf(0), instanceOf(2)))

	// mesh 0: 2 instances, mesh 2: 3, mesh 5: 1.
	assert.Equal(t, uint32(0), im.BaseInstance(0))
	assert.Equal(t, uint32(2), im.BaseInstance(1))
	assert.Equal(t, uint32(2), im.BaseInstance(2))
	assert.Equal(t, uint32(5), im.BaseInstance(3))
	assert.Equal(t, uint32(5), im.BaseInstance(5))

	assert.Equal(t, uint32(2), im.MeshInstanceCount(0))
	assert.Equal(t, uint32(0), im.MeshInstanceCount(1))
	assert.Equal(t, uint32(3), im.MeshInstanceCount(2))
	assert.Equal(t, uint32(1), im.MeshInstanceCount(5))
	assert.Equal(t, uint32(6), im.Count())

	// The table stays a running prefix over every mesh slot.
	for m := 0; m < MaxMeshes; m++ {
		if im.base[m+1] < im.base[m] {
			t.Fatalf("base table not monotonic at mesh %d", m)
		}
	}
	assert.Equal(t, im.Count(), im.base[MaxMeshes])
}

func TestInstanceManager_AddUploadsOnlyTheTouchedSuffix(t *testing.T) {
	im, queue := testInstanceManager()

	require.NoError(t, im.Add(instanceOf(0), instanceOf(1), instanceOf(4)))
	queue.writes = nil

	// Appending to mesh 3 leaves meshes 0..2 untouched.
	require.NoError(t, im.Add(instanceOf(3)))
	require.Len(t, queue.writes, 2)

	records := queue.writes[0]
	assert.Equal(t, uint64(2)*InstanceSize, records.offset, "suffix starts at mesh 3's base")
	assert.Equal(t, 2*int(InstanceSize), len(records.data), "new mesh-3 instance plus the shifted mesh-4 one")

	table := queue.writes[1]
	assert.Equal(t, uint64(3*4), table.offset)
}

func TestInstanceManager_EmptyAddIsANoOp(t *testing.T) {
	im, queue := testInstanceManager()
	require.NoError(t, im.Add())
	assert.Empty(t, queue.writes)
}

func TestInstanceManager_CapacityAndBadMesh(t *testing.T) {
	im, _ := testInstanceManager()

	im.total = MaxInstances
	err := im.Add(instanceOf(0))
	if !errors.Is(err, ErrInstanceCapacity) {
		t.Fatalf("err = %v, want ErrInstanceCapacity", err)
	}
	im.total = 0

	assert.Error(t, im.Add(instanceOf(MaxMeshes)), "mesh handle beyond capacity is rejected")
}

func TestInstanceManager_AnyVisible(t *testing.T) {
	im, _ := testInstanceManager()

	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	planes := ExtractFrustumPlanes(proj.Mul4(view))

	sphere := BoundingSphere{Radius: 1}

	behind := instanceOf(0)
	behind.Transform = mgl32.Translate3D(0, 0, 200)
	require.NoError(t, im.Add(behind))
	assert.False(t, im.AnyVisible(0, sphere, planes))

	center := instanceOf(0)
	require.NoError(t, im.Add(center))
	assert.True(t, im.AnyVisible(0, sphere, planes))

	// A scaled instance grows its bound: a radius-1 sphere scaled x40
	// pokes into the frustum from well off-axis.
	scaled := instanceOf(1)
	scaled.Transform = mgl32.Translate3D(30, 0, 0).Mul4(mgl32.Scale3D(40, 40, 40))
	require.NoError(t, im.Add(scaled))
	assert.True(t, im.AnyVisible(1, sphere, planes))
}

func TestMaxAxisScale(t *testing.T) {
	if got := maxAxisScale(mgl32.Ident4()); got != 1 {
		t.Errorf("maxAxisScale(identity) = %v, want 1", got)
	}
	m := mgl32.Scale3D(2, 7, 3)
	if got := maxAxisScale(m); got != 7 {
		t.Errorf("maxAxisScale(scale 2,7,3) = %v, want 7", got)
	}
	// Rotation never changes axis lengths.
	r := mgl32.HomogRotate3DY(mgl32.DegToRad(37)).Mul4(mgl32.Scale3D(2, 2, 2))
	got := maxAxisScale(r)
	if got < 1.999 || got > 2.001 {
		t.Errorf("maxAxisScale(rotated uniform scale) = %v, want 2", got)
	}
}
