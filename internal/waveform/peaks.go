package waveform

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Peaks reduces interleaved 16-bit PCM to n peak amplitudes in [0,1], one per
// equal slice of the stream. length is the stream size in bytes; channels are
// mixed by taking the loudest.
func Peaks(r io.Reader, length int64, channels, n int) ([]float64, error) {
	if n <= 0 || channels <= 0 {
		return nil, nil
	}
	peaks := make([]float64, n)
	frameSize := int64(channels) * 2
	frames := length / frameSize
	if frames <= 0 {
		return peaks, nil
	}

	br := bufio.NewReaderSize(r, 64*1024)
	frame := make([]byte, frameSize)
	for i := range frames {
		if _, err := io.ReadFull(br, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		bucket := int(i * int64(n) / frames)
		for ch := range channels {
			s := int16(binary.LittleEndian.Uint16(frame[ch*2:]))
			v := math.Abs(float64(s)) / 32768
			if v > peaks[bucket] {
				peaks[bucket] = v
			}
		}
	}
	return peaks, nil
}

// resample maps peaks onto n bars, each bar taking the maximum of the peaks it
// covers.
func resample(peaks []float64, n int) []float64 {
	out := make([]float64, max(n, 0))
	if len(peaks) == 0 || n <= 0 {
		return out
	}
	for i := range n {
		lo := i * len(peaks) / n
		hi := max((i+1)*len(peaks)/n, lo+1)
		for _, p := range peaks[lo:min(hi, len(peaks))] {
			out[i] = max(out[i], p)
		}
	}
	return out
}
