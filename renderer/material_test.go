package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialManager_HandlesStartAfterNullSlot(t *testing.T) {
	queue := &recordingQueue{}
	m := &MaterialManager{queue: queue}
	m.cursor.Store(1)

	a, err := m.Add(Material{Albedo: 3})
	require.NoError(t, err)
	b, err := m.Add(Material{Albedo: 7, Emissive: 2})
	require.NoError(t, err)

	assert.Equal(t, MaterialHandle(1), a)
	assert.Equal(t, MaterialHandle(2), b)
	assert.Equal(t, uint32(3), m.Count())

	require.Len(t, queue.writes, 2)
	assert.Equal(t, uint64(1)*MaterialSize, queue.writes[0].offset)
	assert.Equal(t, uint64(2)*MaterialSize, queue.writes[1].offset)
	assert.Equal(t, int(MaterialSize), len(queue.writes[0].data))
}

func TestMaterialManager_CapacityError(t *testing.T) {
	m := &MaterialManager{queue: &recordingQueue{}}
	m.cursor.Store(MaxMaterials)

	_, err := m.Add(Material{})
	if !errors.Is(err, ErrMaterialCapacity) {
		t.Fatalf("err = %v, want ErrMaterialCapacity", err)
	}
}
