package testbed

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// spriteVertex is one interleaved vertex record of the quad batch.
type spriteVertex struct {
	Position mgl32.Vec2 `attr:"position"`
	Color    [4]uint8   `attr:"color,normalized"`
	TexCoord mgl32.Vec2 `attr:"texcoord"`
}

const (
	quadsPerRow = 8
	quadRows    = 4
	quadSize    = 64
	quadSpacing = 16

	verticesPerQuad = 4
	indicesPerQuad  = 6
)

var rowColors = [quadRows][4]uint8{
	{255, 255, 255, 255},
	{255, 200, 120, 255},
	{120, 200, 255, 255},
	{200, 255, 160, 255},
}

// quadIndices returns the index list of count quads laid out as two
// triangles each.
func quadIndices(count int) []uint16 {
	indices := make([]uint16, 0, count*indicesPerQuad)
	for q := 0; q < count; q++ {
		base := uint16(q * verticesPerQuad)
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return indices
}

// buildQuads fills vertices with the quad grid at the given time. Each quad
// spins slowly around its own center.
func buildQuads(vertices []spriteVertex, elapsed float64) []spriteVertex {
	vertices = vertices[:0]
	corners := [verticesPerQuad]mgl32.Vec2{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}
	uvs := [verticesPerQuad]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	for row := 0; row < quadRows; row++ {
		for col := 0; col < quadsPerRow; col++ {
			center := mgl32.Vec2{
				float32(quadSpacing + col*(quadSize+quadSpacing) + quadSize/2),
				float32(quadSpacing + row*(quadSize+quadSpacing) + quadSize/2),
			}
			angle := float32(math.Mod(elapsed*0.5+float64(col)*0.2, 2*math.Pi))
			rotation := mgl32.Rotate2D(angle)
			for i, corner := range corners {
				vertices = append(vertices, spriteVertex{
					Position: center.Add(rotation.Mul2x1(corner.Mul(quadSize))),
					Color:    rowColors[row],
					TexCoord: uvs[i],
				})
			}
		}
	}
	return vertices
}

// encodeVertices packs vertices in host byte order, matching the declared
// attribute layout.
func encodeVertices(buf []byte, vertices []spriteVertex) ([]byte, error) {
	return binary.Append(buf[:0], binary.NativeEndian, vertices)
}
