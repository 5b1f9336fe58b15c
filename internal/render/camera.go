package render

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/olivier-w/pulse/internal/render/shader"
)

const (
	DefaultFOV      = 75.0
	DefaultDistance = 8.0

	minDistance = 3.0
	maxDistance = 30.0
	maxPitch    = math.Pi/2 - 0.05
)

// Camera is a perspective view of the origin from a point on a sphere.
type Camera struct {
	Yaw      float64 // radians around the y axis
	Pitch    float64 // radians above the xz plane
	Distance float64
	FOV      float64 // vertical, degrees
}

// DefaultCamera looks down -z from (0, 0, 8).
func DefaultCamera() Camera {
	return Camera{Distance: DefaultDistance, FOV: DefaultFOV}
}

// Eye returns the camera position.
func (c Camera) Eye() shader.Vec3 {
	cp := math.Cos(c.Pitch)
	return shader.Vec3{
		X: c.Distance * cp * math.Sin(c.Yaw),
		Y: c.Distance * math.Sin(c.Pitch),
		Z: c.Distance * cp * math.Cos(c.Yaw),
	}
}

// basis returns the camera's right, up and forward axes.
func (c Camera) basis() (right, up, forward shader.Vec3) {
	forward = c.Eye().Scale(-1).Normalize()
	right = forward.Cross(shader.Vec3{Y: 1}).Normalize()
	up = right.Cross(forward)
	return right, up, forward
}

// Orbit damps a camera toward the angles and distance set by user input.
type Orbit struct {
	target Camera
	spring harmonica.Spring
	pos    [3]float64
	vel    [3]float64
}

// NewOrbit starts at cam with springs stepped fps times a second.
func NewOrbit(cam Camera, fps int) *Orbit {
	return &Orbit{
		target: cam,
		spring: harmonica.NewSpring(harmonica.FPS(max(fps, 1)), 6.0, 1.0),
		pos:    [3]float64{cam.Yaw, cam.Pitch, cam.Distance},
	}
}

// Rotate moves the target by the given yaw and pitch in radians. Pitch stops
// short of the poles.
func (o *Orbit) Rotate(dyaw, dpitch float64) {
	o.target.Yaw += dyaw
	o.target.Pitch = min(max(o.target.Pitch+dpitch, -maxPitch), maxPitch)
}

// Zoom scales the target distance by factor.
func (o *Orbit) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	o.target.Distance = min(max(o.target.Distance*factor, minDistance), maxDistance)
}

// Step advances the springs one frame and returns the damped camera.
func (o *Orbit) Step() Camera {
	targets := [3]float64{o.target.Yaw, o.target.Pitch, o.target.Distance}
	for i, t := range targets {
		o.pos[i], o.vel[i] = o.spring.Update(o.pos[i], o.vel[i], t)
	}
	return o.Camera()
}

// Camera returns the current damped camera without stepping.
func (o *Orbit) Camera() Camera {
	return Camera{Yaw: o.pos[0], Pitch: o.pos[1], Distance: o.pos[2], FOV: o.target.FOV}
}

// Target returns where the camera is heading.
func (o *Orbit) Target() Camera {
	return o.target
}
