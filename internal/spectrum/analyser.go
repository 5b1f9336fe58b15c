package spectrum

import (
	"encoding/binary"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// DefaultFFTSize is the transform width the band partitions are tuned for.
	DefaultFFTSize = 256

	defaultSmoothing = 0.8
	defaultMinDB     = -100.0
	defaultMaxDB     = -30.0
)

// Analyser turns the PCM stream written into it into byte frequency
// snapshots. It accepts signed 16-bit little-endian interleaved samples.
type Analyser struct {
	fftSize   int
	channels  int
	smoothing float64
	minDB     float64
	maxDB     float64

	mu       sync.Mutex
	ring     *ring
	carry    []byte
	window   []float64
	frame    []float64
	smoothed []float64
}

// NewAnalyser creates an Analyser for a stereo stream. fftSize is rounded up
// to a power of two with a floor of 32.
func NewAnalyser(fftSize int) *Analyser {
	return NewAnalyserChannels(fftSize, 2)
}

// NewAnalyserChannels creates an Analyser for a stream with the given
// interleaved channel count.
func NewAnalyserChannels(fftSize, channels int) *Analyser {
	if fftSize < 32 {
		fftSize = 32
	}
	fftSize = nextPow2(fftSize)
	if channels < 1 {
		channels = 1
	}
	return &Analyser{
		fftSize:   fftSize,
		channels:  channels,
		smoothing: defaultSmoothing,
		minDB:     defaultMinDB,
		maxDB:     defaultMaxDB,
		ring:      newRing(fftSize),
		window:    window.Blackman(fftSize),
		frame:     make([]float64, fftSize),
		smoothed:  make([]float64, fftSize/2),
	}
}

// FFTSize returns the transform width.
func (a *Analyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount returns the snapshot length, half the transform width.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// Write feeds PCM into the analyser. It never fails; partial sample frames are
// carried over to the next call.
func (a *Analyser) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	frameBytes := a.channels * 2
	data := p
	if len(a.carry) > 0 {
		data = append(a.carry, p...)
		a.carry = a.carry[:0]
	}

	whole := len(data) - len(data)%frameBytes
	for off := 0; off < whole; off += frameBytes {
		sum := 0.0
		for ch := range a.channels {
			s := int16(binary.LittleEndian.Uint16(data[off+ch*2:]))
			sum += float64(s) / 32768.0
		}
		a.ring.push(sum / float64(a.channels))
	}
	if rest := data[whole:]; len(rest) > 0 {
		a.carry = append(a.carry[:0], rest...)
	}
	return len(p), nil
}

// ByteFrequencyData fills dst with the current spectrum, one byte per bin,
// mapping [-100 dB, -30 dB] onto [0, 255]. At most FrequencyBinCount bins are
// written.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring.latest(a.frame)
	for i := range a.frame {
		a.frame[i] *= a.window[i]
	}
	coeffs := fft.FFTReal(a.frame)

	bins := a.fftSize / 2
	if len(dst) < bins {
		bins = len(dst)
	}
	scale := 1.0 / float64(a.fftSize)
	rangeDB := a.maxDB - a.minDB
	for k := range a.fftSize / 2 {
		mag := cmplx.Abs(coeffs[k]) * scale
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if k >= bins {
			continue
		}
		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		v := 255 * (db - a.minDB) / rangeDB
		switch {
		case math.IsInf(v, -1) || v < 0:
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
}

// Snapshot allocates and returns a fresh frequency snapshot.
func (a *Analyser) Snapshot() []byte {
	out := make([]byte, a.FrequencyBinCount())
	a.ByteFrequencyData(out)
	return out
}

// Reset drops buffered audio and smoothing history, used after seeks.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring.reset()
	a.carry = a.carry[:0]
	clear(a.smoothed)
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}
