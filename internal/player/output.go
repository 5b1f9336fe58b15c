package player

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Output is the process-wide audio device. Oto allows a single context per
// process, so the first NewOutput fixes the format for every later track.
type Output struct {
	ctx    *oto.Context
	format Format
}

var (
	globalOutput  *Output
	outputOnce    sync.Once
	outputInitErr error
)

// NewOutput opens the audio device for 16-bit PCM at the given rate and
// channel count. Later calls return the same Output, or ErrFormatMismatch if
// they ask for a different format.
func NewOutput(sampleRate, channels int) (*Output, error) {
	outputOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			outputInitErr = fmt.Errorf("opening audio output: %w", err)
			return
		}
		<-ready
		globalOutput = &Output{
			ctx:    ctx,
			format: Format{SampleRate: sampleRate, Channels: channels},
		}
	})
	if outputInitErr != nil {
		return nil, outputInitErr
	}
	if f := globalOutput.format; f.SampleRate != sampleRate || f.Channels != channels {
		return nil, fmt.Errorf("%w: output already open at %d Hz/%dch", ErrFormatMismatch, f.SampleRate, f.Channels)
	}
	return globalOutput, nil
}

// Format returns the output sample rate and channel count.
func (o *Output) Format() Format {
	return o.format
}

func (o *Output) newVoice(r io.Reader) voice {
	return o.ctx.NewPlayer(r)
}
