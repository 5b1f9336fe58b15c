// Package playback drives a track and turns its audio into band intensities.
// Two controllers share one interface: Media talks to the player directly and
// Waveform goes through the waveform display.
package playback

import (
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/pulse/internal/spectrum"
)

// Controller owns one track's playback and reports its audio to a Listener.
// All methods must be called from the Bubble Tea update loop.
type Controller interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	TogglePlay() tea.Cmd
	SeekPercent(pct float64) tea.Cmd
	SeekBy(delta time.Duration) tea.Cmd
	Transport() Transport
	// View renders the controller's seek row(s) followed by a status line.
	View(width int) string
	Close() error
}

// Listener receives a controller's notifications. Either field may be nil.
type Listener struct {
	OnAudioData     func(spectrum.Bands)
	OnPlayingChange func(bool)
}

func (l Listener) audioData(b spectrum.Bands) {
	if l.OnAudioData != nil {
		l.OnAudioData(b)
	}
}

func (l Listener) playingChange(playing bool) {
	if l.OnPlayingChange != nil {
		l.OnPlayingChange(playing)
	}
}

// Tap is the analysis node fed by the player's PCM stream.
type Tap interface {
	io.Writer
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
	Reset()
}

// Config holds the settings shared by both controllers.
type Config struct {
	// FPS is the rate at which audio is sampled while playing.
	FPS float64
	// FFTSize is the analysis transform size. Zero means 256.
	FFTSize int
	// Channels is the interleaved channel count of the PCM stream.
	Channels int
	Log      *log.Logger
}

func (c Config) withDefaults() Config {
	if c.FPS <= 0 {
		c.FPS = 60
	}
	if c.FFTSize <= 0 {
		c.FFTSize = spectrum.DefaultFFTSize
	}
	if c.Channels <= 0 {
		c.Channels = 2
	}
	if c.Log == nil {
		c.Log = log.New(io.Discard, "", 0)
	}
	return c
}
