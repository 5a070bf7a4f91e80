package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkinManager_AddReturnsGlobalBase(t *testing.T) {
	queue := &recordingQueue{}
	s := &SkinManager{queue: queue}

	joints := make([]JointIndices, 5)
	weights := make([]JointWeights, 5)
	base, err := s.Add(joints, weights)
	require.NoError(t, err)
	assert.Equal(t, int32(0), base)

	base, err = s.Add(joints[:2], weights[:2])
	require.NoError(t, err)
	assert.Equal(t, int32(5), base, "second skin starts where the first ended")
	assert.Equal(t, uint32(7), s.Count())

	// Joint and weight streams land at matching vertex offsets.
	require.Len(t, queue.writes, 4)
	assert.Equal(t, uint64(5*8), queue.writes[2].offset)
	assert.Equal(t, uint64(5*16), queue.writes[3].offset)
}

func TestSkinManager_Validation(t *testing.T) {
	s := &SkinManager{queue: &recordingQueue{}}

	_, err := s.Add(make([]JointIndices, 3), make([]JointWeights, 2))
	assert.Error(t, err, "stream length mismatch")

	_, err = s.Add(nil, nil)
	assert.Error(t, err, "empty skin")

	s.cursor.Store(MaxSkinVertices - 1)
	_, err = s.Add(make([]JointIndices, 2), make([]JointWeights, 2))
	if !errors.Is(err, ErrSkinCapacity) {
		t.Fatalf("err = %v, want ErrSkinCapacity", err)
	}
}
