package render

import (
	"math"
	"strings"

	"github.com/olivier-w/pulse/internal/params"
	"github.com/olivier-w/pulse/internal/render/shader"
)

const nearPlane = 0.1

// luminance ramp used when the terminal has no colour.
const lumaRamp = " .:-=+*#%@"

var background = colorRGB{}

type projected struct {
	x, y, z float64
	v       shader.Varying
	visible bool
}

// Renderer rasterises a mesh into width×height terminal cells. Each cell
// holds two vertically stacked pixels drawn with an upper half block, so the
// pixel grid is width×2·height. A Renderer reuses its buffers between frames
// and is not safe for concurrent use.
type Renderer struct {
	profile ColorProfile
	width   int
	height  int

	pixels []colorRGB
	depth  []float64
	filled []bool
	verts  []projected
}

// NewRenderer returns a renderer writing escape codes for profile.
func NewRenderer(p ColorProfile) *Renderer {
	return &Renderer{profile: p}
}

// Resize sets the output size in cells.
func (r *Renderer) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	n := width * height * 2
	r.pixels = make([]colorRGB, n)
	r.depth = make([]float64, n)
	r.filled = make([]bool, n)
}

// Size returns the output size in cells.
func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// Render shades m with u, scaled per axis, as seen from cam. The result has
// exactly height lines of width cells.
func (r *Renderer) Render(m *Mesh, u params.Uniforms, scale [3]float64, cam Camera) string {
	if r.width == 0 || r.height == 0 {
		return ""
	}
	clear(r.filled)
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}

	r.transform(m, u, scale, cam)
	for _, t := range m.Triangles {
		r.rasterise(r.verts[t[0]], r.verts[t[1]], r.verts[t[2]], u)
	}
	return r.encode()
}

// transform runs the vertex stage and projects every vertex to pixel space.
func (r *Renderer) transform(m *Mesh, u params.Uniforms, scale [3]float64, cam Camera) {
	if cap(r.verts) < len(m.Positions) {
		r.verts = make([]projected, len(m.Positions))
	}
	r.verts = r.verts[:len(m.Positions)]

	eye := cam.Eye()
	right, up, forward := cam.basis()
	pw, ph := float64(r.width), float64(r.height*2)
	fov := cam.FOV
	if fov <= 0 {
		fov = DefaultFOV
	}
	focal := 1 / math.Tan(fov*math.Pi/360)
	aspect := pw / ph

	for i, pos := range m.Positions {
		normal := m.Normals[i]
		displaced, v := shader.Vertex(pos, normal, m.UVs[i], normal.Dot(up), u)
		world := shader.Vec3{X: displaced.X * scale[0], Y: displaced.Y * scale[1], Z: displaced.Z * scale[2]}

		rel := world.Sub(eye)
		z := rel.Dot(forward)
		if z < nearPlane {
			r.verts[i] = projected{}
			continue
		}
		ndcX := rel.Dot(right) * focal / aspect / z
		ndcY := rel.Dot(up) * focal / z
		r.verts[i] = projected{
			x:       (ndcX + 1) / 2 * pw,
			y:       (1 - ndcY) / 2 * ph,
			z:       z,
			v:       v,
			visible: true,
		}
	}
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func (r *Renderer) rasterise(a, b, c projected, u params.Uniforms) {
	if !a.visible || !b.visible || !c.visible {
		return
	}
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if math.Abs(area) < 1e-9 {
		return
	}

	pw, ph := r.width, r.height*2
	x0 := max(int(math.Floor(min(a.x, b.x, c.x))), 0)
	x1 := min(int(math.Ceil(max(a.x, b.x, c.x))), pw-1)
	y0 := max(int(math.Floor(min(a.y, b.y, c.y))), 0)
	y1 := min(int(math.Ceil(max(a.y, b.y, c.y))), ph-1)

	for py := y0; py <= y1; py++ {
		cy := float64(py) + 0.5
		for px := x0; px <= x1; px++ {
			cx := float64(px) + 0.5
			wa := edge(b.x, b.y, c.x, c.y, cx, cy) / area
			wb := edge(c.x, c.y, a.x, a.y, cx, cy) / area
			wc := edge(a.x, a.y, b.x, b.y, cx, cy) / area
			if wa < 0 || wb < 0 || wc < 0 {
				continue
			}
			z := a.z*wa + b.z*wb + c.z*wc
			idx := py*pw + px
			if z >= r.depth[idx] {
				continue
			}
			r.depth[idx] = z
			r.filled[idx] = true
			col := shader.Fragment(shader.Blend(a.v, b.v, c.v, wa, wb, wc), u)
			r.pixels[idx] = rgbFromUnit(col.X, col.Y, col.Z)
		}
	}
}

func (r *Renderer) pixel(x, y int) (colorRGB, bool) {
	idx := y*r.width + x
	if !r.filled[idx] {
		return background, false
	}
	return r.pixels[idx], true
}

// encode turns the pixel grid into lines of half-block cells.
func (r *Renderer) encode() string {
	var sb strings.Builder
	sb.Grow(r.width * r.height * 8)

	for row := range r.height {
		if row > 0 {
			sb.WriteByte('\n')
		}
		state := newANSIState(r.profile)
		for col := range r.width {
			top, topOK := r.pixel(col, row*2)
			bottom, bottomOK := r.pixel(col, row*2+1)

			if r.profile == ColorNone {
				sb.WriteByte(rampChar(top, topOK, bottom, bottomOK))
				continue
			}
			if !topOK && !bottomOK {
				state.setBG(&sb, background)
				sb.WriteByte(' ')
				continue
			}
			state.setFG(&sb, top)
			state.setBG(&sb, bottom)
			sb.WriteString("▀")
		}
		state.reset(&sb)
	}
	return sb.String()
}

func rampChar(top colorRGB, topOK bool, bottom colorRGB, bottomOK bool) byte {
	if !topOK && !bottomOK {
		return ' '
	}
	l := max(top.luma(), bottom.luma())
	idx := 1 + int(l*float64(len(lumaRamp)-2)+0.5)
	return lumaRamp[min(idx, len(lumaRamp)-1)]
}
