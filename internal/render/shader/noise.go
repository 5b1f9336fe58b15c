package shader

import "math"

// Classic 3D Perlin noise over a 289-periodic lattice, with gradients picked
// by a permutation polynomial instead of a lookup table.

const noiseGain = 2.2

func mod289(x float64) float64 { return x - 289*math.Floor(x/289) }

func fract(x float64) float64 { return x - math.Floor(x) }

func permute(x float64) float64 { return mod289((x*34 + 1) * x) }

func taylorInvSqrt(r float64) float64 { return 1.79284291400159 - 0.85373472095314*r }

func fade(t float64) float64 { return t * t * t * (t*(t*6-15) + 10) }

func mix(a, b, t float64) float64 { return a + (b-a)*t }

// step is 0 below edge and 1 from edge up.
func step(edge, x float64) float64 {
	if x < edge {
		return 0
	}
	return 1
}

// gradient maps a permuted lattice hash to a normalized gradient on the
// octahedron.
func gradient(hash float64) Vec3 {
	gx := hash / 7
	gy := fract(math.Floor(gx)/7) - 0.5
	gx = fract(gx)
	gz := 0.5 - math.Abs(gx) - math.Abs(gy)
	sz := step(gz, 0)
	gx -= sz * (step(0, gx) - 0.5)
	gy -= sz * (step(0, gy) - 0.5)
	g := Vec3{gx, gy, gz}
	return g.Scale(taylorInvSqrt(g.Dot(g)))
}

// Noise returns classic Perlin noise at p, scaled to roughly [-2.2, 2.2]. It
// is zero on every integer lattice point.
func Noise(p Vec3) float64 {
	i0 := Vec3{math.Floor(p.X), math.Floor(p.Y), math.Floor(p.Z)}
	i1 := i0.AddScalar(1)
	i0 = Vec3{mod289(i0.X), mod289(i0.Y), mod289(i0.Z)}
	i1 = Vec3{mod289(i1.X), mod289(i1.Y), mod289(i1.Z)}
	f0 := Vec3{fract(p.X), fract(p.Y), fract(p.Z)}
	f1 := f0.AddScalar(-1)

	// Corners in x-fastest order: 000, 100, 010, 110.
	ix := [4]float64{i0.X, i1.X, i0.X, i1.X}
	iy := [4]float64{i0.Y, i0.Y, i1.Y, i1.Y}

	var g0, g1 [4]Vec3
	for c := range 4 {
		ixy := permute(permute(ix[c]) + iy[c])
		g0[c] = gradient(permute(ixy + i0.Z))
		g1[c] = gradient(permute(ixy + i1.Z))
	}

	n000 := g0[0].Dot(f0)
	n100 := g0[1].Dot(Vec3{f1.X, f0.Y, f0.Z})
	n010 := g0[2].Dot(Vec3{f0.X, f1.Y, f0.Z})
	n110 := g0[3].Dot(Vec3{f1.X, f1.Y, f0.Z})
	n001 := g1[0].Dot(Vec3{f0.X, f0.Y, f1.Z})
	n101 := g1[1].Dot(Vec3{f1.X, f0.Y, f1.Z})
	n011 := g1[2].Dot(Vec3{f0.X, f1.Y, f1.Z})
	n111 := g1[3].Dot(f1)

	fx, fy, fz := fade(f0.X), fade(f0.Y), fade(f0.Z)
	nz0 := mix(n000, n001, fz)
	nz1 := mix(n100, n101, fz)
	nz2 := mix(n010, n011, fz)
	nz3 := mix(n110, n111, fz)
	nyz0 := mix(nz0, nz2, fy)
	nyz1 := mix(nz1, nz3, fy)
	return noiseGain * mix(nyz0, nyz1, fx)
}
