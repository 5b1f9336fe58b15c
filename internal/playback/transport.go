package playback

import (
	"math"

	"github.com/olivier-w/pulse/internal/util"
)

// Transport is the playback state shown to the user. Times are in seconds.
// Duration is 0 until the track's metadata is known.
type Transport struct {
	Playing  bool    `json:"playing"`
	Current  float64 `json:"current"`
	Duration float64 `json:"duration"`
}

// Ready reports whether the duration is known.
func (t Transport) Ready() bool {
	return validDuration(t.Duration)
}

// SeekPercent returns the seek-bar position in percent.
func (t Transport) SeekPercent() float64 {
	return SeekPercent(t.Current, t.Duration)
}

// SeekPercent returns current as a percentage of duration, or 0 when the
// duration is zero, negative or not finite.
func SeekPercent(current, duration float64) float64 {
	if !validDuration(duration) || math.IsNaN(current) {
		return 0
	}
	return current / duration * 100
}

// FormatTime renders seconds as M:SS.
func FormatTime(seconds float64) string {
	return util.FormatSeconds(seconds)
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// percentToSeconds converts a seek-bar percentage into a track time, clamping
// the percentage to [0, 100].
func percentToSeconds(pct, duration float64) float64 {
	if math.IsNaN(pct) {
		return 0
	}
	return min(max(pct, 0), 100) / 100 * duration
}
