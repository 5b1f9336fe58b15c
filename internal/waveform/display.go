// Package waveform is a scrubbable waveform view bound to one player. It
// loads the track's peaks, plays and seeks it, and reports what happens
// through named events.
package waveform

import (
	"io"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/pulse/internal/frameloop"
	"github.com/olivier-w/pulse/internal/player"
	"github.com/olivier-w/pulse/internal/spectrum"
)

// Event names emitted by a Display.
const (
	EventReady        = "ready"
	EventPlay         = "play"
	EventPause        = "pause"
	EventFinish       = "finish"
	EventSeek         = "seek"
	EventAudioProcess = "audioprocess"
)

// Event is passed to handlers. Time and Duration are in seconds.
type Event struct {
	Name     string
	Time     float64
	Duration float64
}

// Handler receives display events.
type Handler func(Event)

// Options configures a Display.
type Options struct {
	// Path is the track to load peaks from. Empty skips peak loading.
	Path string
	// BarWidth and BarGap are in terminal cells.
	BarWidth int
	BarGap   int
	// Height is the number of rows the bars span.
	Height int
	// Analyse attaches a spectrum analyser to the playback stream.
	Analyse  bool
	FFTSize  int
	Channels int
	FPS      float64
	Log      *log.Logger
}

// DefaultOptions matches a bar width of 2 and a gap of 1.
func DefaultOptions(path string) Options {
	return Options{
		Path:     path,
		BarWidth: 2,
		BarGap:   1,
		Height:   3,
		Analyse:  true,
		FFTSize:  spectrum.DefaultFFTSize,
		Channels: 2,
		FPS:      60,
	}
}

const peakResolution = 1024

type (
	eventMsg struct {
		owner *Display
		event player.Event
	}
	peaksMsg struct {
		owner *Display
		peaks []float64
		err   error
	}
)

var (
	playedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F1F"))
	unplayedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#BBBBBB", Dark: "#555555"})
)

// Display plays a Source and renders its waveform. It is driven from the
// Bubble Tea update loop.
type Display struct {
	opts     Options
	src      player.Source
	openPCM  func(string) (*player.PCMStream, error)
	analyser *spectrum.Analyser
	handlers map[string][]Handler

	peaks     []float64
	duration  float64
	current   float64
	playing   bool
	frames    *frameloop.Task
	done      chan struct{}
	destroyed bool
}

// New binds a Display to src. With Analyse set, the analyser is connected to
// src immediately.
func New(src player.Source, opts Options) *Display {
	if opts.BarWidth <= 0 {
		opts.BarWidth = 2
	}
	opts.BarGap = max(opts.BarGap, 0)
	opts.Height = max(opts.Height, 1)
	if opts.Log == nil {
		opts.Log = log.New(io.Discard, "", 0)
	}

	d := &Display{
		opts:     opts,
		src:      src,
		openPCM:  player.OpenPCM,
		handlers: make(map[string][]Handler),
		frames:   frameloop.New(opts.FPS),
		done:     make(chan struct{}),
	}
	if opts.Analyse {
		d.analyser = spectrum.NewAnalyserChannels(opts.FFTSize, opts.Channels)
		src.Connect(d.analyser)
	}
	return d
}

// On registers h for the named event.
func (d *Display) On(name string, h Handler) {
	d.handlers[name] = append(d.handlers[name], h)
}

// UnAll removes every handler.
func (d *Display) UnAll() {
	clear(d.handlers)
}

func (d *Display) emit(name string) {
	e := Event{Name: name, Time: d.current, Duration: d.duration}
	for _, h := range d.handlers[name] {
		h(e)
	}
}

// Analyser returns the backend analyser, or nil when analysis is off.
func (d *Display) Analyser() *spectrum.Analyser {
	return d.analyser
}

// Init starts peak loading and event listening.
func (d *Display) Init() tea.Cmd {
	return tea.Batch(d.waitForEvent(), d.loadPeaks())
}

func (d *Display) waitForEvent() tea.Cmd {
	src, done := d.src, d.done
	return func() tea.Msg {
		select {
		case e := <-src.Events():
			return eventMsg{owner: d, event: e}
		case <-done:
			return nil
		}
	}
}

func (d *Display) loadPeaks() tea.Cmd {
	if d.opts.Path == "" {
		return nil
	}
	path, open := d.opts.Path, d.openPCM
	return func() tea.Msg {
		s, err := open(path)
		if err != nil {
			return peaksMsg{owner: d, err: err}
		}
		defer s.Close()
		peaks, err := Peaks(s, s.Length, s.Format.Channels, peakResolution)
		return peaksMsg{owner: d, peaks: peaks, err: err}
	}
}

// Update handles the display's own messages.
func (d *Display) Update(msg tea.Msg) tea.Cmd {
	if d.destroyed {
		return nil
	}
	switch msg := msg.(type) {
	case eventMsg:
		if msg.owner != d {
			return nil
		}
		d.handleSourceEvent(msg.event)
		return d.waitForEvent()

	case peaksMsg:
		if msg.owner != d {
			return nil
		}
		if msg.err != nil {
			d.opts.Log.Printf("waveform: peaks: %v", msg.err)
			return nil
		}
		d.peaks = msg.peaks

	case frameloop.FrameMsg:
		if !d.frames.Owns(msg) {
			return nil
		}
		live, next := d.frames.Handle(msg)
		if live {
			d.current = d.src.Position().Seconds()
			d.emit(EventAudioProcess)
		}
		return next
	}
	return nil
}

func (d *Display) handleSourceEvent(e player.Event) {
	switch e := e.(type) {
	case player.MetadataEvent:
		d.duration = e.Duration.Seconds()
		d.emit(EventReady)
	case player.ProgressEvent:
		d.current = e.Position.Seconds()
	case player.EndedEvent:
		d.current = d.duration
		d.setPlaying(false)
		d.emit(EventFinish)
	}
}

func (d *Display) setPlaying(playing bool) tea.Cmd {
	if d.playing == playing {
		return nil
	}
	d.playing = playing
	if playing {
		d.emit(EventPlay)
		return d.frames.Start()
	}
	d.frames.Stop()
	d.emit(EventPause)
	return nil
}

// PlayPause toggles playback.
func (d *Display) PlayPause() tea.Cmd {
	if d.destroyed {
		return nil
	}
	if d.playing {
		d.src.Pause()
		return d.setPlaying(false)
	}
	if err := d.src.Play(); err != nil {
		d.opts.Log.Printf("waveform: play: %v", err)
		return nil
	}
	return d.setPlaying(true)
}

// SeekTo moves to fraction (0 to 1) of the track.
func (d *Display) SeekTo(fraction float64) tea.Cmd {
	if d.destroyed || d.duration <= 0 {
		return nil
	}
	fraction = min(max(fraction, 0), 1)
	target := fraction * d.duration
	if err := d.src.SeekTo(time.Duration(target * float64(time.Second))); err != nil {
		d.opts.Log.Printf("waveform: seek: %v", err)
		return nil
	}
	d.current = target
	d.emit(EventSeek)
	return nil
}

// IsPlaying reports whether the track is playing.
func (d *Display) IsPlaying() bool { return d.playing }

// CurrentTime returns the playback position in seconds.
func (d *Display) CurrentTime() float64 { return d.current }

// Duration returns the track length in seconds, or 0 before ready.
func (d *Display) Duration() float64 { return d.duration }

// View renders the bars across width cells, split into played and unplayed
// colours at the cursor.
func (d *Display) View(width int) string {
	step := d.opts.BarWidth + d.opts.BarGap
	bars := max(width/step, 0)
	levels := resample(d.peaks, bars)

	var progress float64
	if d.duration > 0 {
		progress = min(max(d.current/d.duration, 0), 1)
	}
	playedBars := int(progress * float64(bars))

	rows := make([]string, d.opts.Height)
	for row := range d.opts.Height {
		// Rows are filled bottom-up; row 0 is the top line.
		floor := float64(d.opts.Height-1-row) / float64(d.opts.Height)
		var played, unplayed strings.Builder
		for i, level := range levels {
			cell := barCell(level, floor, d.opts.Height)
			seg := strings.Repeat(cell, d.opts.BarWidth) + strings.Repeat(" ", d.opts.BarGap)
			if i < playedBars {
				played.WriteString(seg)
			} else {
				unplayed.WriteString(seg)
			}
		}
		line := playedStyle.Render(played.String()) + unplayedStyle.Render(unplayed.String())
		if pad := width - bars*step; pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		rows[row] = line
	}
	return strings.Join(rows, "\n")
}

var blocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// barCell picks the block for the slice of a bar that starts at floor (as a
// fraction of the full height).
func barCell(level, floor float64, height int) string {
	// Silent stretches still show a baseline on the bottom row.
	if floor == 0 && level < 1.0/8/float64(height) {
		return blocks[1]
	}
	fill := (level - floor) * float64(height)
	idx := int(min(max(fill, 0), 1) * 8)
	return blocks[idx]
}

// Destroy stops playback, detaches the analyser and closes the source.
func (d *Display) Destroy() error {
	if d.destroyed {
		return nil
	}
	d.destroyed = true
	d.frames.Stop()
	d.playing = false
	close(d.done)
	if d.analyser != nil {
		d.src.Disconnect()
		d.analyser.Reset()
	}
	return d.src.Close()
}
