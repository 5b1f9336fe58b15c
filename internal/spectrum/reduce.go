package spectrum

import "math"

const maxMagnitude = 255

// Band is an inclusive range of frequency bins reduced to one intensity.
type Band struct {
	Start    int
	End      int
	Exponent float64
}

// Band partitions tuned for a 256-point transform (128 bins). They are policy,
// not derived from the sample rate.
var (
	Bass = Band{Start: 0, End: 3, Exponent: 25}
	Mid  = Band{Start: 4, End: 20, Exponent: 5}
	High = Band{Start: 21, End: 50, Exponent: 4}
)

// Bands holds the per-frame bass/mid/high intensities, each in [0,1].
type Bands struct {
	Bass float64 `json:"bass"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// Average returns the mean of the three intensities.
func (b Bands) Average() float64 {
	return (b.Bass + b.Mid + b.High) / 3
}

// Reduce averages snapshot[start..end] (inclusive), normalizes it by 255 and
// applies exponent as a power-law compression. The result is in [0,1].
func Reduce(snapshot []byte, start, end int, exponent float64) float64 {
	if len(snapshot) == 0 || start < 0 || start >= len(snapshot) {
		return 0
	}
	if end >= len(snapshot) {
		end = len(snapshot) - 1
	}
	if end < start {
		return 0
	}
	if exponent <= 0 {
		exponent = 1
	}

	sum := 0
	for _, v := range snapshot[start : end+1] {
		sum += int(v)
	}
	mean := float64(sum) / float64(end-start+1)
	return math.Pow(mean/maxMagnitude, exponent)
}

// Reduce applies the band to a snapshot.
func (b Band) Reduce(snapshot []byte) float64 {
	return Reduce(snapshot, b.Start, b.End, b.Exponent)
}

// ReduceBands runs the bass, mid and high reductions over one snapshot.
func ReduceBands(snapshot []byte) Bands {
	return Bands{
		Bass: Bass.Reduce(snapshot),
		Mid:  Mid.Reduce(snapshot),
		High: High.Reduce(snapshot),
	}
}
