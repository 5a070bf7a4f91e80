package renderer

import (
	"errors"
	"image"
	"testing"
)

func TestTextureManager_RejectsWrongSize(t *testing.T) {
	m := &TextureManager{}
	_, err := m.Add(image.NewRGBA(image.Rect(0, 0, 256, 256)))
	if err == nil {
		t.Fatal("expected size error")
	}
}

func TestTextureManager_CapacityError(t *testing.T) {
	m := &TextureManager{cursor: MaxTextures}
	_, err := m.upload(image.NewRGBA(image.Rect(0, 0, TextureArraySize, TextureArraySize)))
	if !errors.Is(err, ErrTextureCapacity) {
		t.Fatalf("err = %v, want ErrTextureCapacity", err)
	}
}
