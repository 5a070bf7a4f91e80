package renderer

import (
	"math"
	"testing"
)

func TestIcosphere_Counts(t *testing.T) {
	cases := []struct {
		subdivisions int
		vertices     int
		faces        int
	}{
		{0, 12, 20},
		{1, 42, 80},
		{2, 162, 320},
	}
	for _, tc := range cases {
		vertices, indices := Icosphere(tc.subdivisions)
		if len(vertices) != tc.vertices {
			t.Errorf("subdiv %d: %d vertices, want %d", tc.subdivisions, len(vertices), tc.vertices)
		}
		if len(indices) != tc.faces*3 {
			t.Errorf("subdiv %d: %d indices, want %d", tc.subdivisions, len(indices), tc.faces*3)
		}
	}
}

func TestIcosphere_VerticesLieOnUnitSphere(t *testing.T) {
	vertices, indices := Icosphere(2)
	for i, v := range vertices {
		if math.Abs(float64(v.Len())-1) > 1e-5 {
			t.Fatalf("vertex %d has length %v, want 1", i, v.Len())
		}
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			t.Fatalf("index %d references vertex %d, only %d exist", i, idx, len(vertices))
		}
	}
}

func TestIcosphere_SharedEdgesShareMidpoints(t *testing.T) {
	// Euler characteristic of a sphere: V - E + F = 2, with each edge
	// shared by exactly two faces. If subdivision duplicated midpoint
	// vertices the count would break this.
	vertices, indices := Icosphere(1)
	faces := len(indices) / 3
	edges := faces * 3 / 2
	if got := len(vertices) - edges + faces; got != 2 {
		t.Errorf("V - E + F = %d, want 2", got)
	}
}

func TestIcospherePositions_Layout(t *testing.T) {
	vertices, _ := Icosphere(0)
	stream := IcospherePositions(vertices)
	if len(stream) != len(vertices)*PositionStride {
		t.Fatalf("stream is %d bytes, want %d", len(stream), len(vertices)*PositionStride)
	}
	// Little-endian float at offset 0 round-trips.
	bits := uint32(stream[0]) | uint32(stream[1])<<8 | uint32(stream[2])<<16 | uint32(stream[3])<<24
	got := math.Float32frombits(bits)
	if got != vertices[0][0] {
		t.Errorf("first component decodes to %v, want %v", got, vertices[0][0])
	}
}
