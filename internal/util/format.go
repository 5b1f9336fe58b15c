package util

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSeconds formats a time in seconds as m:ss. NaN, infinite and
// negative values render as 0:00.
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	return FormatDuration(time.Duration(math.Floor(seconds)) * time.Second)
}
