package params

import (
	"math"
	"testing"
	"time"

	"github.com/olivier-w/pulse/internal/spectrum"
)

func TestNewSmootherStartsAtRest(t *testing.T) {
	s := NewSmoother()
	u := s.Uniforms()
	if u.Intensity != 0.3 || u.Bass != 0 || u.Mid != 0 || u.High != 0 || u.Time != 0 {
		t.Fatalf("unexpected initial uniforms %+v", u)
	}
	if s.Scale() != [3]float64{1.5, 1.5, 1.5} {
		t.Fatalf("unexpected initial scale %v", s.Scale())
	}
}

func TestStepAdvancesTimeEvenAtRest(t *testing.T) {
	s := NewSmoother()
	s.Step(2 * time.Second)
	if got := s.Uniforms().Time; math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("time=%f want=0.8", got)
	}
}

func TestReactiveStepUsesSpecFactors(t *testing.T) {
	s := NewSmoother()
	s.SetPlaying(true)
	s.SetBands(spectrum.Bands{Bass: 0.9, Mid: 0.6, High: 0.3})
	s.Step(0)

	u := s.Uniforms()
	avg := 0.6
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"intensity", u.Intensity, 0.3 + 0.3*((0.3+avg/3)-0.3)},
		{"bass", u.Bass, 0.2 * 0.9},
		{"mid", u.Mid, 0.2 * 0.6},
		{"high", u.High, 0.2 * 0.3},
		{"scale", s.Scale()[0], 1.5 + 0.2*((1.5+avg/6)-1.5)},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Fatalf("%s=%f want=%f", c.name, c.got, c.want)
		}
	}
}

func TestRestingStepUsesSpecFactors(t *testing.T) {
	s := NewSmoother()
	s.uniforms = Uniforms{Intensity: 0.7, Bass: 1, Mid: 0.5, High: 0.2}
	s.scale = 1.7
	s.Step(0)

	u := s.Uniforms()
	if math.Abs(u.Intensity-(0.7-0.1*0.4)) > 1e-9 {
		t.Fatalf("intensity=%f", u.Intensity)
	}
	if math.Abs(u.Bass-0.9) > 1e-9 || math.Abs(u.Mid-0.45) > 1e-9 || math.Abs(u.High-0.18) > 1e-9 {
		t.Fatalf("bands did not decay by 0.1: %+v", u)
	}
	if math.Abs(s.Scale()[0]-1.6) > 1e-9 {
		t.Fatalf("scale=%f want=1.6", s.Scale()[0])
	}
}

func TestRestingConvergesToNeutral(t *testing.T) {
	s := NewSmoother()
	s.SetPlaying(true)
	s.SetBands(spectrum.Bands{Bass: 1, Mid: 1, High: 1})
	for range 100 {
		s.Step(0)
	}
	s.SetPlaying(false)
	for range 400 {
		s.Step(0)
	}
	u := s.Uniforms()
	if math.Abs(u.Intensity-0.3) > 1e-6 || u.Bass > 1e-6 || u.Mid > 1e-6 || u.High > 1e-6 {
		t.Fatalf("expected resting uniforms, got %+v", u)
	}
	if math.Abs(s.Scale()[0]-1.5) > 1e-6 {
		t.Fatalf("expected resting scale, got %f", s.Scale()[0])
	}
}

func TestLerpConvergesWithoutOvershoot(t *testing.T) {
	for _, factor := range []float64{0.1, 0.2, 0.3, 0.5, 0.99} {
		for _, start := range []float64{-2, 0, 3} {
			target := 1.0
			v := start
			prevDist := math.Abs(target - v)
			for range 200 {
				v = lerp(v, target, factor)
				dist := math.Abs(target - v)
				if dist > prevDist {
					t.Fatalf("factor %f start %f: moved away from target", factor, start)
				}
				if (start < target && v > target) || (start > target && v < target) {
					t.Fatalf("factor %f start %f: overshot to %f", factor, start, v)
				}
				prevDist = dist
			}
			if prevDist > 1e-6 {
				t.Fatalf("factor %f start %f: did not converge (%f left)", factor, start, prevDist)
			}
		}
	}
}
