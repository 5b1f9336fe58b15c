package shader

import "math"

// Vec3 is a point, direction or RGB colour.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3          { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3          { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3     { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) AddScalar(s float64) Vec3 { return Vec3{v.X + s, v.Y + s, v.Z + s} }
func (v Vec3) Dot(o Vec3) float64       { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64             { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Normalize returns v scaled to unit length, or v unchanged if it is zero.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Clamp limits each component to [lo, hi].
func (v Vec3) Clamp(lo, hi float64) Vec3 {
	return Vec3{
		min(max(v.X, lo), hi),
		min(max(v.Y, lo), hi),
		min(max(v.Z, lo), hi),
	}
}
