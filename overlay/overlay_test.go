package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_RectGeometry(t *testing.T) {
	o := &Renderer{White: TextureId("white")}

	paint := o.Rect(10, 20, 100, 40, [4]float32{0, 0, 0, 0.5})
	require.Len(t, paint.Vertices, 4)
	require.Len(t, paint.Indices, 6)
	assert.Equal(t, o.White, paint.Texture)
	assert.Nil(t, paint.Clip)

	assert.Equal(t, [2]float32{10, 20}, paint.Vertices[0].Position)
	assert.Equal(t, [2]float32{110, 20}, paint.Vertices[1].Position)
	assert.Equal(t, [2]float32{110, 60}, paint.Vertices[2].Position)
	assert.Equal(t, [2]float32{10, 60}, paint.Vertices[3].Position)

	// Solid fills sample the center of the white texture.
	for _, v := range paint.Vertices {
		assert.Equal(t, [2]float32{0.5, 0.5}, v.UV)
		assert.Equal(t, float32(0.5), v.Color[3])
	}

	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, paint.Indices)
}

func TestRenderer_SubmitQueuesInOrder(t *testing.T) {
	o := &Renderer{White: TextureId("white")}

	a := o.Rect(0, 0, 1, 1, [4]float32{1, 0, 0, 1})
	b := o.Rect(1, 1, 1, 1, [4]float32{0, 1, 0, 1})
	o.Submit(a)
	o.Submit(b)

	require.Len(t, o.frame, 2)
	assert.Equal(t, a.Vertices[0], o.frame[0].Vertices[0])
	assert.Equal(t, b.Vertices[0], o.frame[1].Vertices[0])
}

func TestRenderer_RemoveTexture(t *testing.T) {
	o := &Renderer{
		White:    TextureId("white"),
		textures: map[TextureId]*overlayTexture{},
	}
	o.textures[o.White] = &overlayTexture{}
	o.textures["glyphs"] = &overlayTexture{}

	o.RemoveTexture("glyphs")
	_, ok := o.textures["glyphs"]
	assert.False(t, ok, "removed id leaves the registry")

	// Unknown ids and the default texture are kept.
	o.RemoveTexture("never registered")
	o.RemoveTexture(o.White)
	_, ok = o.textures[o.White]
	assert.True(t, ok)
	assert.Len(t, o.textures, 1)
}

func TestMin32(t *testing.T) {
	if got := min32(4, 9); got != 4 {
		t.Errorf("min32(4, 9) = %d", got)
	}
	if got := min32(9, 4); got != 4 {
		t.Errorf("min32(9, 4) = %d", got)
	}
}
