package playback

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/olivier-w/pulse/internal/player"
	"github.com/olivier-w/pulse/internal/spectrum"
)

type stubSource struct {
	events      chan player.Event
	playing     bool
	seeks       []time.Duration
	position    time.Duration
	duration    time.Duration
	tap         io.Writer
	connects    int
	disconnects int
	closes      int
	playErr     error
}

func newStubSource() *stubSource {
	return &stubSource{events: make(chan player.Event, 8)}
}

func (s *stubSource) Play() error {
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}
func (s *stubSource) Pause()       { s.playing = false }
func (s *stubSource) Paused() bool { return !s.playing }
func (s *stubSource) SeekTo(pos time.Duration) error {
	s.seeks = append(s.seeks, pos)
	s.position = pos
	return nil
}
func (s *stubSource) Position() time.Duration     { return s.position }
func (s *stubSource) Duration() time.Duration     { return s.duration }
func (s *stubSource) Connect(w io.Writer)         { s.tap = w; s.connects++ }
func (s *stubSource) Disconnect()                 { s.tap = nil; s.disconnects++ }
func (s *stubSource) Events() <-chan player.Event { return s.events }
func (s *stubSource) Close() error                { s.closes++; return nil }

type stubTap struct {
	resets int
	level  byte
}

func (t *stubTap) Write(p []byte) (int, error) { return len(p), nil }
func (t *stubTap) FrequencyBinCount() int      { return 128 }
func (t *stubTap) Reset()                      { t.resets++ }
func (t *stubTap) ByteFrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = t.level
	}
}

type recorder struct {
	bands   []spectrum.Bands
	playing []bool
}

func (r *recorder) listener() Listener {
	return Listener{
		OnAudioData:     func(b spectrum.Bands) { r.bands = append(r.bands, b) },
		OnPlayingChange: func(p bool) { r.playing = append(r.playing, p) },
	}
}

func newTestMedia() (*Media, *stubSource, *stubTap, *recorder) {
	src := newStubSource()
	tap := &stubTap{level: 255}
	rec := &recorder{}
	m := NewMedia(src, rec.listener(), Config{FPS: 120})
	m.newTap = func() Tap { return tap }
	return m, src, tap, rec
}

func TestSeekPercent(t *testing.T) {
	tests := []struct {
		name              string
		current, duration float64
		want              float64
	}{
		{"halfway", 90, 180, 50},
		{"start", 0, 180, 0},
		{"zero duration", 10, 0, 0},
		{"nan duration", 10, math.NaN(), 0},
		{"infinite duration", 10, math.Inf(1), 0},
		{"negative duration", 10, -5, 0},
		{"nan current", math.NaN(), 180, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeekPercent(tt.current, tt.duration); got != tt.want {
				t.Fatalf("SeekPercent(%v, %v)=%v want %v", tt.current, tt.duration, got, tt.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	for in, want := range map[float64]string{65: "1:05", 5: "0:05", -1: "0:00"} {
		if got := FormatTime(in); got != want {
			t.Fatalf("FormatTime(%v)=%q want %q", in, got, want)
		}
	}
	if got := FormatTime(math.NaN()); got != "0:00" {
		t.Fatalf("FormatTime(NaN)=%q", got)
	}
}

func TestMediaAppliesPlayerEvents(t *testing.T) {
	m, _, _, rec := newTestMedia()

	m.apply(player.MetadataEvent{Duration: 180 * time.Second})
	m.apply(player.ProgressEvent{Position: 90 * time.Second})
	if got := m.Transport(); got.Duration != 180 || got.Current != 90 || got.SeekPercent() != 50 {
		t.Fatalf("unexpected transport %+v", got)
	}

	m.TogglePlay()
	m.apply(player.EndedEvent{})
	if m.Transport().Playing {
		t.Fatal("expected ended to stop playback")
	}
	if len(rec.playing) != 2 || rec.playing[0] != true || rec.playing[1] != false {
		t.Fatalf("unexpected playing notifications %v", rec.playing)
	}
}

func TestMediaReceivesEventsThroughUpdate(t *testing.T) {
	m, src, _, _ := newTestMedia()
	src.events <- player.MetadataEvent{Duration: time.Minute}

	msg := m.Init()()
	if cmd := m.Update(msg); cmd == nil {
		t.Fatal("expected Update to keep listening for events")
	}
	if m.Transport().Duration != 60 {
		t.Fatalf("duration=%v want=60", m.Transport().Duration)
	}
}

func TestMediaBuildsTapOnce(t *testing.T) {
	m, src, _, _ := newTestMedia()
	if m.tap != nil {
		t.Fatal("expected no tap before first play")
	}

	m.TogglePlay()
	m.TogglePlay()
	m.TogglePlay()

	if m.tapBuilt != 1 {
		t.Fatalf("tap built %d times, want 1", m.tapBuilt)
	}
	if src.connects != 1 {
		t.Fatalf("tap connected %d times, want 1", src.connects)
	}
	if !src.playing {
		t.Fatal("expected source to be playing")
	}
}

func TestMediaPlayErrorLeavesPaused(t *testing.T) {
	m, src, _, rec := newTestMedia()
	src.playErr = errors.New("no device")

	if cmd := m.TogglePlay(); cmd != nil {
		t.Fatal("expected no frame task after failed play")
	}
	if m.Transport().Playing || len(rec.playing) != 0 {
		t.Fatal("expected controller to stay paused")
	}
}

func TestMediaLiveFrameEmitsBands(t *testing.T) {
	m, _, _, rec := newTestMedia()

	frame := m.TogglePlay()()
	next := m.Update(frame)
	if next == nil {
		t.Fatal("expected next frame to be scheduled")
	}
	if len(rec.bands) != 1 {
		t.Fatalf("got %d audio callbacks, want 1", len(rec.bands))
	}
	if b := rec.bands[0]; b.Bass != 1 || b.Mid != 1 || b.High != 1 {
		t.Fatalf("expected full bands from a saturated tap, got %+v", b)
	}
}

func TestMediaStopsEmittingAfterPause(t *testing.T) {
	m, _, _, rec := newTestMedia()

	inFlight := m.TogglePlay()()
	m.TogglePlay()

	if cmd := m.Update(inFlight); cmd != nil {
		t.Fatal("expected stale frame not to reschedule")
	}
	if len(rec.bands) != 0 {
		t.Fatalf("expected no audio callbacks after pause, got %d", len(rec.bands))
	}
}

func TestMediaSampleWithoutTapIsNoop(t *testing.T) {
	m, _, _, rec := newTestMedia()
	m.sample()
	if len(rec.bands) != 0 {
		t.Fatal("expected no audio callback without a tap")
	}
}

func TestMediaSeekPercent(t *testing.T) {
	m, src, _, _ := newTestMedia()

	if cmd := m.SeekPercent(50); cmd != nil || len(src.seeks) != 0 {
		t.Fatal("expected seek before metadata to be ignored")
	}

	m.apply(player.MetadataEvent{Duration: 180 * time.Second})
	m.SeekPercent(50)
	if len(src.seeks) != 1 || src.seeks[0] != 90*time.Second {
		t.Fatalf("unexpected seeks %v", src.seeks)
	}
	if got := m.Transport().Current; got != 90 {
		t.Fatalf("current=%v want=90", got)
	}

	m.SeekPercent(150)
	if got := m.Transport().Current; got != 180 {
		t.Fatalf("expected seek clamped to end, got %v", got)
	}
}

func TestMediaSeekByClamps(t *testing.T) {
	m, src, _, _ := newTestMedia()
	m.apply(player.MetadataEvent{Duration: 10 * time.Second})

	m.SeekBy(-5 * time.Second)
	if m.Transport().Current != 0 {
		t.Fatalf("expected clamp to 0, got %v", m.Transport().Current)
	}
	m.SeekBy(30 * time.Second)
	if m.Transport().Current != 10 {
		t.Fatalf("expected clamp to 10, got %v", m.Transport().Current)
	}
	if len(src.seeks) != 2 {
		t.Fatalf("expected 2 seeks, got %d", len(src.seeks))
	}
}

func TestMediaCloseReleasesTapOnce(t *testing.T) {
	m, src, tap, _ := newTestMedia()
	frame := m.TogglePlay()()

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if src.disconnects != 1 || tap.resets != 1 || src.closes != 1 {
		t.Fatalf("disconnects=%d resets=%d closes=%d, want 1 each", src.disconnects, tap.resets, src.closes)
	}
	if cmd := m.Update(frame); cmd != nil {
		t.Fatal("expected no frames after Close")
	}
	if cmd := m.TogglePlay(); cmd != nil || m.tap != nil {
		t.Fatal("expected TogglePlay after Close to do nothing")
	}
}

func TestMediaCloseWithoutTap(t *testing.T) {
	m, src, _, _ := newTestMedia()
	m.Close()
	if src.disconnects != 0 || src.closes != 1 {
		t.Fatalf("disconnects=%d closes=%d", src.disconnects, src.closes)
	}
}

func TestMediaViewShowsTimes(t *testing.T) {
	m, _, _, _ := newTestMedia()
	m.apply(player.MetadataEvent{Duration: 65 * time.Second})
	m.apply(player.ProgressEvent{Position: 5 * time.Second})

	view := m.View(40)
	if !strings.Contains(view, "0:05") || !strings.Contains(view, "1:05") {
		t.Fatalf("expected times in view, got %q", view)
	}
}

var (
	_ Controller = (*Media)(nil)
	_ Controller = (*Waveform)(nil)
)
