package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdGenerator_FreshIdsIncrement(t *testing.T) {
	g := NewIdGenerator()

	assert.Equal(t, uint32(0), g.Get())
	assert.Equal(t, uint32(1), g.Get())
	assert.Equal(t, uint32(2), g.Get())
	assert.Equal(t, uint32(3), g.Count())
}

func TestIdGenerator_RecycledIdsAreReused(t *testing.T) {
	g := NewIdGenerator()
	a := g.Get()
	b := g.Get()
	c := g.Get()

	g.Recycle(b)
	reused := g.Get()
	assert.Equal(t, b, reused, "recycled id should come back before a fresh one")

	g.Recycle(a)
	g.Recycle(c)
	first := g.Get()
	second := g.Get()
	assert.ElementsMatch(t, []uint32{a, c}, []uint32{first, second})

	// Pool drained; the next id is fresh again.
	assert.Equal(t, uint32(3), g.Get())
}

func TestIdGenerator_CountIsHighWaterMark(t *testing.T) {
	g := NewIdGenerator()
	for i := 0; i < 5; i++ {
		g.Get()
	}
	g.Recycle(1)
	g.Recycle(3)

	// Recycling does not lower the mark.
	assert.Equal(t, uint32(5), g.Count())

	g.Get()
	g.Get()
	assert.Equal(t, uint32(5), g.Count(), "reused ids stay under the mark")
}
