// Package shader holds the blob's per-vertex displacement and per-pixel
// colouring, evaluated on the CPU.
package shader

import "github.com/olivier-w/pulse/internal/params"

var (
	BassColor = Vec3{1, 0.1, 0.1}
	MidColor  = Vec3{0.1, 1, 0.1}
	HighColor = Vec3{0.1, 0.1, 1}
)

// Varying is what the vertex stage hands to the fragment stage.
type Varying struct {
	UV           [2]float64
	Displacement float64
	// ViewNormalY is the y component of the normal in view space.
	ViewNormalY float64
}

// Blend returns the barycentric combination a*wa + b*wb + c*wc.
func Blend(a, b, c Varying, wa, wb, wc float64) Varying {
	return Varying{
		UV: [2]float64{
			a.UV[0]*wa + b.UV[0]*wb + c.UV[0]*wc,
			a.UV[1]*wa + b.UV[1]*wb + c.UV[1]*wc,
		},
		Displacement: a.Displacement*wa + b.Displacement*wb + c.Displacement*wc,
		ViewNormalY:  a.ViewNormalY*wa + b.ViewNormalY*wb + c.ViewNormalY*wc,
	}
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := min(max((x-edge0)/(edge1-edge0), 0), 1)
	return t * t * (3 - 2*t)
}

// Regions splits the sphere into bottom (bass), middle and top (high) bands
// by the view-space normal's y component. The bands overlap.
func Regions(normalY float64) (bass, mid, high float64) {
	return smoothstep(-1, -0.33, normalY),
		smoothstep(-0.33, 0.33, normalY),
		smoothstep(0.33, 1, normalY)
}

// Vertex displaces position along its object-space normal by band-weighted
// noise. viewNormalY selects the regions.
func Vertex(position, normal Vec3, uv [2]float64, viewNormalY float64, u params.Uniforms) (Vec3, Varying) {
	bass, mid, high := Regions(viewNormalY)
	n := Noise(position.AddScalar(2 * u.Time))
	disp := n*u.Bass*bass + n*u.Mid*mid + n*u.High*high

	out := position.Add(normal.Scale(u.Intensity * disp))
	return out, Varying{UV: uv, Displacement: disp, ViewNormalY: viewNormalY}
}

// Fragment returns the RGB colour in [0,1] for an interpolated varying.
func Fragment(v Varying, u params.Uniforms) Vec3 {
	distort := 2 * v.Displacement * u.Intensity
	bass, mid, high := Regions(v.ViewNormalY)

	c := BassColor.Scale(u.Bass * bass).
		Add(MidColor.Scale(u.Mid * mid)).
		Add(HighColor.Scale(u.High * high))
	tint := Vec3{v.UV[0], v.UV[1], 1 - v.UV[0] - v.UV[1]}
	c = c.Add(tint.Scale(0.2 * (1 - distort)))
	return c.Clamp(0, 1)
}
