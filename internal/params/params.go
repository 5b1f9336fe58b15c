package params

import (
	"time"

	"github.com/olivier-w/pulse/internal/spectrum"
)

const (
	restIntensity = 0.3
	restScale     = 1.5
	timeSpeed     = 0.4

	reactiveBandFactor      = 0.2
	reactiveIntensityFactor = 0.3
	reactiveScaleFactor     = 0.2
	restUniformFactor       = 0.1
	restScaleFactor         = 0.5
)

// Uniforms are the five shader inputs for the current frame.
type Uniforms struct {
	Intensity float64 `json:"intensity"`
	Time      float64 `json:"time"`
	Bass      float64 `json:"bassFrequency"`
	Mid       float64 `json:"midFrequency"`
	High      float64 `json:"highFrequency"`
}

// Smoother eases uniforms and mesh scale toward either the live band
// intensities (Reactive) or neutral values (Resting). Interpolation runs once
// per rendered frame and is not corrected for frame timing.
type Smoother struct {
	uniforms Uniforms
	scale    float64
	playing  bool
	bands    spectrum.Bands
}

// NewSmoother returns a Smoother in the resting state.
func NewSmoother() *Smoother {
	return &Smoother{
		uniforms: Uniforms{Intensity: restIntensity},
		scale:    restScale,
	}
}

// SetPlaying switches between Reactive (true) and Resting (false).
func (s *Smoother) SetPlaying(playing bool) { s.playing = playing }

// Playing reports whether the smoother is in the Reactive state.
func (s *Smoother) Playing() bool { return s.playing }

// SetBands stores the latest band intensities. The last value set before a
// Step wins.
func (s *Smoother) SetBands(b spectrum.Bands) { s.bands = b }

// Bands returns the latest band intensities.
func (s *Smoother) Bands() spectrum.Bands { return s.bands }

// Uniforms returns the current uniform values.
func (s *Smoother) Uniforms() Uniforms { return s.uniforms }

// Scale returns the uniform mesh scale (applied on all three axes).
func (s *Smoother) Scale() [3]float64 { return [3]float64{s.scale, s.scale, s.scale} }

// Step advances one frame. elapsed is wall-clock time since the scene mounted.
func (s *Smoother) Step(elapsed time.Duration) {
	u := &s.uniforms
	u.Time = timeSpeed * elapsed.Seconds()

	if s.playing {
		avg := s.bands.Average()
		u.Intensity = lerp(u.Intensity, restIntensity+avg/3, reactiveIntensityFactor)
		u.Bass = lerp(u.Bass, s.bands.Bass, reactiveBandFactor)
		u.Mid = lerp(u.Mid, s.bands.Mid, reactiveBandFactor)
		u.High = lerp(u.High, s.bands.High, reactiveBandFactor)
		s.scale = lerp(s.scale, restScale+avg/6, reactiveScaleFactor)
		return
	}

	u.Intensity = lerp(u.Intensity, restIntensity, restUniformFactor)
	u.Bass = lerp(u.Bass, 0, restUniformFactor)
	u.Mid = lerp(u.Mid, 0, restUniformFactor)
	u.High = lerp(u.High, 0, restUniformFactor)
	s.scale = lerp(s.scale, restScale, restScaleFactor)
}

func lerp(current, target, factor float64) float64 {
	return current + factor*(target-current)
}
