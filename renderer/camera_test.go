package renderer

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testViewProj() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 2, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func TestExtractFrustumPlanes_AreUnitLength(t *testing.T) {
	planes := ExtractFrustumPlanes(testViewProj())
	for i, p := range planes {
		length := math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2]))
		if math.Abs(length-1) > 1e-5 {
			t.Errorf("plane %d direction length = %v, want 1", i, length)
		}
	}
}

func TestSphereInFrustum(t *testing.T) {
	planes := ExtractFrustumPlanes(testViewProj())

	cases := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"at the look-at target", mgl32.Vec3{0, 0, 0}, 1, true},
		{"behind the camera", mgl32.Vec3{0, 2, 20}, 1, false},
		{"beyond the far plane", mgl32.Vec3{0, 0, -150}, 1, false},
		{"far off to the side", mgl32.Vec3{80, 0, 0}, 1, false},
		{"outside but radius reaches in", mgl32.Vec3{0, 0, 12}, 5, true},
		{"point light sized bound straddling the near plane", mgl32.Vec3{0, 2, 10}, 0.5, true},
	}
	for _, tc := range cases {
		if got := SphereInFrustum(tc.center, tc.radius, planes); got != tc.want {
			t.Errorf("%s: SphereInFrustum = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestExtractFrustumPlanes_PositiveSideFacesInward(t *testing.T) {
	planes := ExtractFrustumPlanes(testViewProj())

	// A point well inside the frustum sits on the positive side of
	// every plane.
	inside := mgl32.Vec3{0, 1, 0}.Vec4(1)
	for i, p := range planes {
		if p.Dot(inside) < 0 {
			t.Errorf("plane %d: inside point on negative side", i)
		}
	}
}
