package pass

import (
	"errors"
	"image"
	"testing"

	"github.com/IcanDivideBy0/calva/renderer"
)

func TestMax32(t *testing.T) {
	if got := max32(3, 7); got != 7 {
		t.Errorf("max32(3, 7) = %d", got)
	}
	if got := max32(1, 0); got != 1 {
		t.Errorf("max32(1, 0) = %d", got)
	}
}

func TestSkyboxPass_SetFacesRequiresSixImages(t *testing.T) {
	p := &SkyboxPass{}
	faces := make([]image.Image, 5)
	for i := range faces {
		faces[i] = image.NewRGBA(image.Rect(0, 0, 4, 4))
	}
	if err := p.SetFaces(faces); !errors.Is(err, renderer.ErrSkyboxFaces) {
		t.Fatalf("err = %v, want ErrSkyboxFaces", err)
	}
}
