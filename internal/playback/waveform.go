package playback

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/pulse/internal/player"
	"github.com/olivier-w/pulse/internal/spectrum"
	"github.com/olivier-w/pulse/internal/waveform"
)

// display is the part of *waveform.Display the controller uses.
type display interface {
	On(name string, h waveform.Handler)
	UnAll()
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	PlayPause() tea.Cmd
	SeekTo(fraction float64) tea.Cmd
	Analyser() *spectrum.Analyser
	View(width int) string
	Destroy() error
}

// Waveform drives playback through a waveform display and samples the
// display's own analyser.
type Waveform struct {
	cfg        Config
	src        player.Source
	listener   Listener
	newDisplay func() display

	display  display
	created  int
	snapshot []byte
	state    Transport
	closed   bool
}

// NewWaveform returns a controller that creates its display for src on Init.
func NewWaveform(src player.Source, path string, listener Listener, cfg Config) *Waveform {
	cfg = cfg.withDefaults()
	w := &Waveform{cfg: cfg, src: src, listener: listener}
	w.newDisplay = func() display {
		opts := waveform.DefaultOptions(path)
		opts.FFTSize = cfg.FFTSize
		opts.Channels = cfg.Channels
		opts.FPS = cfg.FPS
		opts.Log = cfg.Log
		return waveform.New(src, opts)
	}
	return w
}

// ensureDisplay creates the display and registers handlers once.
func (w *Waveform) ensureDisplay() {
	if w.display != nil {
		return
	}
	w.display = w.newDisplay()
	w.created++

	w.display.On(waveform.EventReady, func(e waveform.Event) {
		w.state.Duration = e.Duration
		w.cfg.Log.Printf("waveform: ready, duration %s", FormatTime(e.Duration))
	})
	w.display.On(waveform.EventPlay, func(waveform.Event) {
		w.setPlaying(true)
	})
	w.display.On(waveform.EventPause, func(waveform.Event) {
		w.setPlaying(false)
	})
	w.display.On(waveform.EventSeek, func(e waveform.Event) {
		w.state.Current = e.Time
	})
	w.display.On(waveform.EventAudioProcess, func(e waveform.Event) {
		w.state.Current = e.Time
		w.sample()
	})
}

func (w *Waveform) setPlaying(playing bool) {
	if w.state.Playing == playing {
		return
	}
	w.state.Playing = playing
	w.listener.playingChange(playing)
}

// sample reduces the display analyser's spectrum, if it has one.
func (w *Waveform) sample() {
	a := w.display.Analyser()
	if a == nil {
		return
	}
	if len(w.snapshot) != a.FrequencyBinCount() {
		w.snapshot = make([]byte, a.FrequencyBinCount())
	}
	a.ByteFrequencyData(w.snapshot)
	w.listener.audioData(spectrum.ReduceBands(w.snapshot))
}

// Init creates the display and starts it.
func (w *Waveform) Init() tea.Cmd {
	if w.closed {
		return nil
	}
	w.ensureDisplay()
	return w.display.Init()
}

// Update forwards messages to the display.
func (w *Waveform) Update(msg tea.Msg) tea.Cmd {
	if w.closed || w.display == nil {
		return nil
	}
	return w.display.Update(msg)
}

// TogglePlay plays or pauses through the display.
func (w *Waveform) TogglePlay() tea.Cmd {
	if w.closed {
		return nil
	}
	w.ensureDisplay()
	return w.display.PlayPause()
}

// SeekPercent moves to pct percent of the track.
func (w *Waveform) SeekPercent(pct float64) tea.Cmd {
	if w.closed || w.display == nil || !w.state.Ready() {
		return nil
	}
	return w.display.SeekTo(percentToSeconds(pct, w.state.Duration) / w.state.Duration)
}

// SeekBy moves relative to the current position.
func (w *Waveform) SeekBy(delta time.Duration) tea.Cmd {
	if w.closed || w.display == nil || !w.state.Ready() {
		return nil
	}
	target := min(max(w.state.Current+delta.Seconds(), 0), w.state.Duration)
	return w.display.SeekTo(target / w.state.Duration)
}

// Transport returns the current playback state.
func (w *Waveform) Transport() Transport {
	return w.state
}

// View renders the waveform and the status line.
func (w *Waveform) View(width int) string {
	var b strings.Builder
	if w.display != nil {
		b.WriteString(w.display.View(width))
		b.WriteString("\n")
	}
	b.WriteString(statusLine(w.state))
	return b.String()
}

// Close unregisters handlers and destroys the display.
func (w *Waveform) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.display == nil {
		return w.src.Close()
	}
	w.display.UnAll()
	return w.display.Destroy()
}
