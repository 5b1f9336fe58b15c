// Package render rasterises the blob into a block of coloured terminal cells.
package render

import (
	"math"

	"github.com/olivier-w/pulse/internal/render/shader"
)

// Mesh is an indexed triangle mesh with per-vertex normals and UVs.
type Mesh struct {
	Positions []shader.Vec3
	Normals   []shader.Vec3
	UVs       [][2]float64
	Triangles [][3]int
}

var (
	icoT = (1 + math.Sqrt(5)) / 2

	icoVertices = []shader.Vec3{
		{X: -1, Y: icoT, Z: 0}, {X: 1, Y: icoT, Z: 0}, {X: -1, Y: -icoT, Z: 0}, {X: 1, Y: -icoT, Z: 0},
		{X: 0, Y: -1, Z: icoT}, {X: 0, Y: 1, Z: icoT}, {X: 0, Y: -1, Z: -icoT}, {X: 0, Y: 1, Z: -icoT},
		{X: icoT, Y: 0, Z: -1}, {X: icoT, Y: 0, Z: 1}, {X: -icoT, Y: 0, Z: -1}, {X: -icoT, Y: 0, Z: 1},
	}

	icoFaces = [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
)

// Icosphere builds an icosahedron whose faces are each split into
// (detail+1)² triangles, with every vertex pushed out to radius.
func Icosphere(radius float64, detail int) *Mesh {
	detail = max(detail, 0)
	cols := detail + 1
	perFace := (cols + 1) * (cols + 2) / 2

	m := &Mesh{
		Positions: make([]shader.Vec3, 0, len(icoFaces)*perFace),
		Normals:   make([]shader.Vec3, 0, len(icoFaces)*perFace),
		UVs:       make([][2]float64, 0, len(icoFaces)*perFace),
		Triangles: make([][3]int, 0, len(icoFaces)*cols*cols),
	}

	for _, f := range icoFaces {
		a, b, c := icoVertices[f[0]], icoVertices[f[1]], icoVertices[f[2]]

		// grid[i][j] indexes row i (toward c) and column j (toward b).
		grid := make([][]int, cols+1)
		for i := range cols + 1 {
			ai := lerp3(a, c, float64(i)/float64(cols))
			bi := lerp3(b, c, float64(i)/float64(cols))
			rows := cols - i
			grid[i] = make([]int, rows+1)
			for j := range rows + 1 {
				p := ai
				if rows > 0 {
					p = lerp3(ai, bi, float64(j)/float64(rows))
				}
				grid[i][j] = m.addVertex(p, radius)
			}
		}

		for i := range cols {
			for j := range 2*(cols-i) - 1 {
				k := j / 2
				if j%2 == 0 {
					m.Triangles = append(m.Triangles, [3]int{grid[i][k+1], grid[i+1][k], grid[i][k]})
				} else {
					m.Triangles = append(m.Triangles, [3]int{grid[i][k+1], grid[i+1][k+1], grid[i+1][k]})
				}
			}
		}
	}
	return m
}

func (m *Mesh) addVertex(p shader.Vec3, radius float64) int {
	n := p.Normalize()
	m.Positions = append(m.Positions, n.Scale(radius))
	m.Normals = append(m.Normals, n)
	m.UVs = append(m.UVs, sphereUV(n))
	return len(m.Positions) - 1
}

// sphereUV maps a unit direction to equirectangular texture coordinates.
func sphereUV(n shader.Vec3) [2]float64 {
	azimuth := math.Atan2(n.Z, -n.X)
	inclination := math.Atan2(-n.Y, math.Hypot(n.X, n.Z))
	return [2]float64{
		azimuth/(2*math.Pi) + 0.5,
		1 - (inclination/math.Pi + 0.5),
	}
}

func lerp3(a, b shader.Vec3, t float64) shader.Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}
