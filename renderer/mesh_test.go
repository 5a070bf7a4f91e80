package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeshManager() (*MeshManager, *recordingQueue) {
	queue := &recordingQueue{}
	return &MeshManager{queue: queue, log: NewNopLogger()}, queue
}

// meshStreams fabricates consistent attribute streams for n vertices.
func meshStreams(n int) (positions, normals, tangents, uv0 []byte) {
	return make([]byte, n*PositionStride),
		make([]byte, n*NormalStride),
		make([]byte, n*TangentStride),
		make([]byte, n*UV0Stride)
}

func TestMeshManager_AddAssignsDisjointRanges(t *testing.T) {
	m, _ := testMeshManager()
	sphere := BoundingSphere{Center: mgl32.Vec3{0, 1, 0}, Radius: 2}

	p, n, tg, uv := meshStreams(3)
	a, err := m.Add(sphere, p, n, tg, uv, []uint32{0, 1, 2}, NoSkin)
	require.NoError(t, err)

	p, n, tg, uv = meshStreams(4)
	b, err := m.Add(sphere, p, n, tg, uv, []uint32{0, 1, 2, 2, 1, 3}, NoSkin)
	require.NoError(t, err)

	infoA := m.Info(a)
	infoB := m.Info(b)

	assert.Equal(t, uint32(3), infoA.VertexCount)
	assert.Equal(t, int32(0), infoA.VertexOffset)
	assert.Equal(t, uint32(0), infoA.BaseIndex)
	assert.Equal(t, uint32(3), m.IndexCount(a))

	assert.Equal(t, uint32(4), infoB.VertexCount)
	assert.Equal(t, int32(3), infoB.VertexOffset, "second mesh starts where the first ended")
	assert.Equal(t, uint32(3), infoB.BaseIndex)
	assert.Equal(t, uint32(6), m.IndexCount(b))

	assert.Equal(t, sphere, infoA.BoundingSphere)
	assert.Equal(t, uint32(2), m.Count())
}

func TestMeshManager_SkinBaseKeepsRigidSentinel(t *testing.T) {
	m, _ := testMeshManager()

	// The very first skinned mesh in a scene sits at vertex offset 0
	// with its skin stream at base 0; its record must still read as
	// skinned, not as the rigid default.
	p, n, tg, uv := meshStreams(2)
	skinned, err := m.Add(BoundingSphere{Radius: 1}, p, n, tg, uv, []uint32{0, 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), m.Info(skinned).SkinBase)

	p, n, tg, uv = meshStreams(2)
	rigid, err := m.Add(BoundingSphere{Radius: 1}, p, n, tg, uv, nil, NoSkin)
	require.NoError(t, err)
	assert.Equal(t, NoSkin, m.Info(rigid).SkinBase)
	assert.NotEqual(t, m.Info(skinned).SkinBase, m.Info(rigid).SkinBase)

	// A later skin keeps its absolute base untouched by the mesh's own
	// vertex offset.
	p, n, tg, uv = meshStreams(3)
	later, err := m.Add(BoundingSphere{Radius: 1}, p, n, tg, uv, []uint32{0, 1, 2}, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(7), m.Info(later).SkinBase)
}

func TestMeshManager_RejectsInconsistentStreams(t *testing.T) {
	m, queue := testMeshManager()

	p, n, tg, _ := meshStreams(3)
	uvShort := make([]byte, 2*UV0Stride)
	_, err := m.Add(BoundingSphere{}, p, n, tg, uvShort, nil, NoSkin)
	assert.Error(t, err)

	_, err = m.Add(BoundingSphere{}, nil, nil, nil, nil, nil, NoSkin)
	assert.Error(t, err, "empty mesh is rejected")

	_, err = m.Add(BoundingSphere{}, make([]byte, 7), n, tg, nil, nil, NoSkin)
	assert.Error(t, err, "truncated position stream is rejected")

	assert.Empty(t, queue.writes, "rejected meshes never upload")
}

func TestMeshManager_CapacityErrors(t *testing.T) {
	m, _ := testMeshManager()

	m.vertexCursor.Store(MaxVertices - 1)
	p, n, tg, uv := meshStreams(2)
	_, err := m.Add(BoundingSphere{}, p, n, tg, uv, []uint32{0, 1}, NoSkin)
	if !errors.Is(err, ErrVertexCapacity) {
		t.Fatalf("err = %v, want ErrVertexCapacity", err)
	}
	m.vertexCursor.Store(0)

	m.indexCursor.Store(MaxIndices - 1)
	_, err = m.Add(BoundingSphere{}, p, n, tg, uv, []uint32{0, 1}, NoSkin)
	if !errors.Is(err, ErrIndexCapacity) {
		t.Fatalf("err = %v, want ErrIndexCapacity", err)
	}
	m.indexCursor.Store(0)

	m.meshCursor.Store(MaxMeshes)
	_, err = m.Add(BoundingSphere{}, p, n, tg, uv, []uint32{0, 1}, NoSkin)
	if !errors.Is(err, ErrMeshCapacity) {
		t.Fatalf("err = %v, want ErrMeshCapacity", err)
	}
}

func TestMeshManager_UploadOffsetsFollowCursors(t *testing.T) {
	m, queue := testMeshManager()

	p, n, tg, uv := meshStreams(5)
	_, err := m.Add(BoundingSphere{}, p, n, tg, uv, []uint32{0, 1, 2}, NoSkin)
	require.NoError(t, err)
	queue.writes = nil

	p, n, tg, uv = meshStreams(2)
	_, err = m.Add(BoundingSphere{}, p, n, tg, uv, []uint32{0, 1}, NoSkin)
	require.NoError(t, err)

	// positions, normals, tangents, uv0, indices, info.
	require.Len(t, queue.writes, 6)
	assert.Equal(t, uint64(5*PositionStride), queue.writes[0].offset)
	assert.Equal(t, uint64(5*NormalStride), queue.writes[1].offset)
	assert.Equal(t, uint64(5*TangentStride), queue.writes[2].offset)
	assert.Equal(t, uint64(5*UV0Stride), queue.writes[3].offset)
	assert.Equal(t, uint64(3*IndexStride), queue.writes[4].offset)
	assert.Equal(t, uint64(1)*MeshInfoSize, queue.writes[5].offset)
	assert.Equal(t, int(MeshInfoSize), len(queue.writes[5].data))
}
