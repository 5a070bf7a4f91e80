package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Icosphere generates a unit sphere by subdividing an icosahedron.
// Used for point-light volume rasterization, where a coarse hull that
// fully contains the light radius matters more than smoothness.
// subdivisions=0 returns the raw icosahedron (12 vertices, 20 faces);
// each level quadruples the face count.
func Icosphere(subdivisions int) ([]mgl32.Vec3, []uint32) {
	t := float32((1.0 + math.Sqrt(5.0)) / 2.0)

	vertices := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range vertices {
		vertices[i] = vertices[i].Normalize()
	}

	indices := []uint32{
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}

	for s := 0; s < subdivisions; s++ {
		midpoints := make(map[[2]uint32]uint32)
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{a, b}
			if a > b {
				key = [2]uint32{b, a}
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			mid := vertices[a].Add(vertices[b]).Mul(0.5).Normalize()
			idx := uint32(len(vertices))
			vertices = append(vertices, mid)
			midpoints[key] = idx
			return idx
		}

		next := make([]uint32, 0, len(indices)*4)
		for i := 0; i < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			ab := midpoint(a, b)
			bc := midpoint(b, c)
			ca := midpoint(c, a)
			next = append(next,
				a, ab, ca,
				b, bc, ab,
				c, ca, bc,
				ab, bc, ca,
			)
		}
		indices = next
	}

	return vertices, indices
}

// IcospherePositions flattens the vertex list into the raw position
// stream layout the MeshManager consumes.
func IcospherePositions(vertices []mgl32.Vec3) []byte {
	out := make([]byte, 0, len(vertices)*PositionStride)
	for _, v := range vertices {
		out = append(out, float32Bytes(v[0])...)
		out = append(out, float32Bytes(v[1])...)
		out = append(out, float32Bytes(v[2])...)
	}
	return out
}

func float32Bytes(f float32) []byte {
	bits := math.Float32bits(f)
	return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}
