package renderer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPointLightManager() (*PointLightManager, *recordingQueue) {
	queue := &recordingQueue{}
	return &PointLightManager{
		queue: queue,
		ids:   NewIdGenerator(),
		live:  make(map[LightHandle]struct{}),
	}, queue
}

func TestPointLightManager_AddRemoveRecyclesSlots(t *testing.T) {
	m, queue := testPointLightManager()

	a, err := m.Add(PointLight{Position: mgl32.Vec3{1, 2, 3}, Radius: 5, Color: mgl32.Vec3{1, 1, 1}})
	require.NoError(t, err)
	b, err := m.Add(PointLight{Radius: 2})
	require.NoError(t, err)
	assert.Equal(t, LightHandle(0), a)
	assert.Equal(t, LightHandle(1), b)
	assert.Equal(t, 2, m.LiveCount())
	assert.Equal(t, uint32(2), m.Count())

	m.Remove(a)
	assert.Equal(t, 1, m.LiveCount())
	assert.Equal(t, uint32(2), m.Count(), "high-water count keeps the zeroed slot")

	// The removed slot was zeroed on the GPU.
	last := queue.writes[len(queue.writes)-1]
	assert.Equal(t, uint64(0), last.offset)
	assert.True(t, bytes.Equal(last.data, make([]byte, PointLightSize)))

	c, err := m.Add(PointLight{Radius: 9})
	require.NoError(t, err)
	assert.Equal(t, a, c, "freed slot is reused before a fresh one")
	assert.Equal(t, uint32(2), m.Count())
}

func TestPointLightManager_RemoveUnknownHandleIsIgnored(t *testing.T) {
	m, queue := testPointLightManager()
	m.Remove(7)
	assert.Empty(t, queue.writes)
	assert.Equal(t, 0, m.LiveCount())
}

func TestPointLightManager_WriteOffsetsFollowSlots(t *testing.T) {
	m, queue := testPointLightManager()

	_, err := m.Add(PointLight{})
	require.NoError(t, err)
	h, err := m.Add(PointLight{})
	require.NoError(t, err)
	require.Len(t, queue.writes, 2)
	assert.Equal(t, uint64(h)*PointLightSize, queue.writes[1].offset)
	assert.Equal(t, int(PointLightSize), len(queue.writes[1].data))
}

func TestPointLightManager_CapacityError(t *testing.T) {
	m, _ := testPointLightManager()
	m.ids.next = MaxPointLights

	_, err := m.Add(PointLight{})
	if !errors.Is(err, ErrLightCapacity) {
		t.Fatalf("err = %v, want ErrLightCapacity", err)
	}
	if m.LiveCount() != 0 {
		t.Errorf("failed add left %d live lights", m.LiveCount())
	}
}
