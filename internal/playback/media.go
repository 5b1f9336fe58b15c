package playback

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/pulse/internal/frameloop"
	"github.com/olivier-w/pulse/internal/player"
	"github.com/olivier-w/pulse/internal/spectrum"
)

var (
	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#888888"})

	stateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})
)

// sourceEventMsg carries a player notification into the update loop.
type sourceEventMsg struct {
	owner any
	event player.Event
}

// waitForEvent blocks on the next player event. It returns nil once done is
// closed so the command goroutine does not outlive the controller.
func waitForEvent(owner any, src player.Source, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-src.Events():
			return sourceEventMsg{owner: owner, event: e}
		case <-done:
			return nil
		}
	}
}

// playingEvent and seekEvent are local state changes routed through apply
// alongside the player's own events.
type (
	playingEvent struct{ playing bool }
	seekEvent    struct{ current float64 }
)

// Media drives a player directly and samples its PCM through a lazily built
// analysis tap.
type Media struct {
	cfg      Config
	src      player.Source
	listener Listener
	newTap   func() Tap

	tap      Tap
	tapBuilt int
	snapshot []byte

	frames *frameloop.Task
	state  Transport
	bar    progress.Model
	done   chan struct{}
	closed bool
}

// NewMedia returns a paused controller for src.
func NewMedia(src player.Source, listener Listener, cfg Config) *Media {
	cfg = cfg.withDefaults()
	m := &Media{
		cfg:      cfg,
		src:      src,
		listener: listener,
		frames:   frameloop.New(cfg.FPS),
		bar: progress.New(
			progress.WithScaledGradient("#FF8C00", "#FF5F1F"),
			progress.WithoutPercentage(),
		),
		done: make(chan struct{}),
	}
	m.newTap = func() Tap {
		return spectrum.NewAnalyserChannels(cfg.FFTSize, cfg.Channels)
	}
	return m
}

// Init starts listening for player events.
func (m *Media) Init() tea.Cmd {
	return waitForEvent(m, m.src, m.done)
}

// Update handles player events and frame ticks addressed to this controller.
func (m *Media) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sourceEventMsg:
		if msg.owner != m || m.closed {
			return nil
		}
		return tea.Batch(m.apply(msg.event), waitForEvent(m, m.src, m.done))

	case frameloop.FrameMsg:
		if !m.frames.Owns(msg) {
			return nil
		}
		live, next := m.frames.Handle(msg)
		if live {
			m.sample()
		}
		return next
	}
	return nil
}

// apply is the single place controller state changes. It returns the command
// that starts the frame task when playback begins.
func (m *Media) apply(event any) tea.Cmd {
	switch e := event.(type) {
	case player.MetadataEvent:
		m.state.Duration = e.Duration.Seconds()
		m.cfg.Log.Printf("media: duration %s", FormatTime(m.state.Duration))

	case player.ProgressEvent:
		m.state.Current = e.Position.Seconds()

	case seekEvent:
		m.state.Current = e.current

	case player.EndedEvent:
		m.state.Current = m.state.Duration
		return m.apply(playingEvent{playing: false})

	case playingEvent:
		if m.state.Playing == e.playing {
			return nil
		}
		m.state.Playing = e.playing
		m.listener.playingChange(e.playing)
		if e.playing {
			return m.frames.Start()
		}
		m.frames.Stop()
	}
	return nil
}

// ensureTap builds and connects the analysis tap the first time it is
// needed. Later calls reuse it.
func (m *Media) ensureTap() {
	if m.tap != nil {
		return
	}
	m.tap = m.newTap()
	m.tapBuilt++
	m.snapshot = make([]byte, m.tap.FrequencyBinCount())
	m.src.Connect(m.tap)
}

func (m *Media) releaseTap() {
	if m.tap == nil {
		return
	}
	m.src.Disconnect()
	m.tap.Reset()
	m.tap = nil
	m.snapshot = nil
}

// sample reads one spectrum snapshot and reports the three bands. Without a
// tap there is nothing to read.
func (m *Media) sample() {
	if m.tap == nil {
		return
	}
	m.tap.ByteFrequencyData(m.snapshot)
	m.listener.audioData(spectrum.ReduceBands(m.snapshot))
}

// TogglePlay plays or pauses.
func (m *Media) TogglePlay() tea.Cmd {
	if m.closed {
		return nil
	}
	if m.state.Playing {
		m.src.Pause()
		return m.apply(playingEvent{playing: false})
	}

	m.ensureTap()
	if err := m.src.Play(); err != nil {
		m.cfg.Log.Printf("media: play: %v", err)
		return nil
	}
	return m.apply(playingEvent{playing: true})
}

// SeekPercent moves to pct percent of the track. It does nothing until the
// duration is known.
func (m *Media) SeekPercent(pct float64) tea.Cmd {
	if m.closed || !m.state.Ready() {
		return nil
	}
	return m.seek(percentToSeconds(pct, m.state.Duration))
}

// SeekBy moves relative to the current position.
func (m *Media) SeekBy(delta time.Duration) tea.Cmd {
	if m.closed || !m.state.Ready() {
		return nil
	}
	target := min(max(m.state.Current+delta.Seconds(), 0), m.state.Duration)
	return m.seek(target)
}

func (m *Media) seek(seconds float64) tea.Cmd {
	if err := m.src.SeekTo(time.Duration(seconds * float64(time.Second))); err != nil {
		m.cfg.Log.Printf("media: seek: %v", err)
		return nil
	}
	// Reported immediately; the next progress event corrects any drift.
	return m.apply(seekEvent{current: seconds})
}

// Transport returns the current playback state.
func (m *Media) Transport() Transport {
	return m.state
}

// View renders a full-width seek bar and the status line.
func (m *Media) View(width int) string {
	m.bar.Width = max(width, 1)
	pct := m.state.SeekPercent() / 100
	if math.IsNaN(pct) {
		pct = 0
	}
	var b strings.Builder
	b.WriteString(m.bar.ViewAs(min(max(pct, 0), 1)))
	b.WriteString("\n")
	b.WriteString(statusLine(m.state))
	return b.String()
}

func statusLine(t Transport) string {
	icon := "▶"
	if t.Playing {
		icon = "⏸"
	}
	times := fmt.Sprintf("%s / %s", FormatTime(t.Current), FormatTime(t.Duration))
	return stateStyle.Render(icon) + " " + timeStyle.Render(times)
}

// Close stops sampling, releases the tap and closes the player.
func (m *Media) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.frames.Stop()
	close(m.done)
	m.releaseTap()
	return m.src.Close()
}
