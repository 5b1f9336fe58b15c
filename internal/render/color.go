package render

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
)

// ColorProfile is the terminal's colour depth.
type ColorProfile uint8

const (
	ColorNone ColorProfile = iota
	ColorANSI16
	ColorANSI256
	ColorTrueColor
)

type colorRGB struct {
	R uint8
	G uint8
	B uint8
}

func rgbFromUnit(r, g, b float64) colorRGB {
	return colorRGB{R: unitByte(r), G: unitByte(g), B: unitByte(b)}
}

func unitByte(v float64) uint8 {
	return uint8(math.Round(min(max(v, 0), 1) * 255))
}

// luma is perceived brightness in [0,1].
func (c colorRGB) luma() float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

var (
	profileOnce sync.Once
	profile     ColorProfile
	seqCache    sync.Map
)

// DetectColorProfile reads NO_COLOR, COLORTERM and TERM once per process.
func DetectColorProfile() ColorProfile {
	profileOnce.Do(func() {
		profile = profileFromEnv(os.LookupEnv)
	})
	return profile
}

func profileFromEnv(lookup func(string) (string, bool)) ColorProfile {
	if _, disabled := lookup("NO_COLOR"); disabled {
		return ColorNone
	}
	termVar, _ := lookup("TERM")
	colorTermVar, _ := lookup("COLORTERM")
	term := strings.ToLower(termVar)
	colorTerm := strings.ToLower(colorTermVar)
	switch {
	case strings.Contains(colorTerm, "truecolor"), strings.Contains(colorTerm, "24bit"):
		return ColorTrueColor
	case strings.Contains(term, "256color"):
		return ColorANSI256
	case term == "", term == "dumb":
		return ColorNone
	default:
		return ColorANSI16
	}
}

// ansiState writes colour changes only, tracking foreground and background
// separately.
type ansiState struct {
	profile ColorProfile
	fg      uint32
	bg      uint32
}

const noColor = ^uint32(0)

func newANSIState(p ColorProfile) ansiState {
	return ansiState{profile: p, fg: noColor, bg: noColor}
}

func colorKey(c colorRGB) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (s *ansiState) setFG(sb *strings.Builder, c colorRGB) {
	if s.profile == ColorNone {
		return
	}
	if key := colorKey(c); key != s.fg {
		sb.WriteString(colorSequence(s.profile, c, false))
		s.fg = key
	}
}

func (s *ansiState) setBG(sb *strings.Builder, c colorRGB) {
	if s.profile == ColorNone {
		return
	}
	if key := colorKey(c); key != s.bg {
		sb.WriteString(colorSequence(s.profile, c, true))
		s.bg = key
	}
}

func (s *ansiState) reset(sb *strings.Builder) {
	if s.profile == ColorNone || (s.fg == noColor && s.bg == noColor) {
		return
	}
	sb.WriteString("\x1b[0m")
	s.fg, s.bg = noColor, noColor
}

var ansi16Palette = []colorRGB{
	{R: 0, G: 0, B: 0},
	{R: 205, G: 49, B: 49},
	{R: 13, G: 188, B: 121},
	{R: 229, G: 229, B: 16},
	{R: 36, G: 114, B: 200},
	{R: 188, G: 63, B: 188},
	{R: 17, G: 168, B: 205},
	{R: 229, G: 229, B: 229},
}

func colorSequence(p ColorProfile, c colorRGB, background bool) string {
	key := uint32(p)<<25 | colorKey(c)
	if background {
		key |= 1 << 24
	}
	if seq, ok := seqCache.Load(key); ok {
		return seq.(string)
	}

	layer := 38
	if background {
		layer = 48
	}
	var seq string
	switch p {
	case ColorTrueColor:
		seq = fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", layer, c.R, c.G, c.B)
	case ColorANSI256:
		r := int(c.R) * 5 / 255
		g := int(c.G) * 5 / 255
		b := int(c.B) * 5 / 255
		seq = fmt.Sprintf("\x1b[%d;5;%dm", layer, 16+36*r+6*g+b)
	case ColorANSI16:
		best := 0
		bestDist := math.MaxFloat64
		for i, q := range ansi16Palette {
			dr := float64(c.R) - float64(q.R)
			dg := float64(c.G) - float64(q.G)
			db := float64(c.B) - float64(q.B)
			if d := dr*dr + dg*dg + db*db; d < bestDist {
				bestDist = d
				best = i
			}
		}
		seq = fmt.Sprintf("\x1b[%dm", layer-8+best)
	}

	seqCache.Store(key, seq)
	return seq
}
