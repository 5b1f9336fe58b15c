package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type stubSeekDecoder struct {
	pos        int64
	length     int64
	sampleRate int
	channels   int
	seekErr    error
}

func (d *stubSeekDecoder) Read(p []byte) (int, error) {
	if d.pos >= d.length {
		return 0, io.EOF
	}
	n := int(min(int64(len(p)), d.length-d.pos))
	clear(p[:n])
	d.pos += int64(n)
	return n, nil
}

func (d *stubSeekDecoder) Seek(offset int64, whence int) (int64, error) {
	if d.seekErr != nil {
		return d.pos, d.seekErr
	}
	switch whence {
	case io.SeekStart:
		d.pos = offset
	case io.SeekCurrent:
		d.pos += offset
	case io.SeekEnd:
		d.pos = d.length + offset
	}
	return d.pos, nil
}

func (d *stubSeekDecoder) Length() int64     { return d.length }
func (d *stubSeekDecoder) SampleRate() int   { return d.sampleRate }
func (d *stubSeekDecoder) ChannelCount() int { return d.channels }

type stubVoice struct {
	playing bool
	volume  float64
	plays   int
}

func (v *stubVoice) Play()               { v.playing = true; v.plays++ }
func (v *stubVoice) Pause()              { v.playing = false }
func (v *stubVoice) IsPlaying() bool     { return v.playing }
func (v *stubVoice) SetVolume(f float64) { v.volume = f }

type voiceRecorder struct {
	voices []*stubVoice
}

func (r *voiceRecorder) newVoice(io.Reader) voice {
	v := &stubVoice{}
	r.voices = append(r.voices, v)
	return v
}

func (r *voiceRecorder) last() *stubVoice {
	return r.voices[len(r.voices)-1]
}

// newStubPlayer builds a 10 byte/s player: 5 Hz, mono, 16-bit.
func newStubPlayer(length int64) (*Player, *stubSeekDecoder, *voiceRecorder) {
	dec := &stubSeekDecoder{length: length, sampleRate: 5, channels: 1}
	rec := &voiceRecorder{}
	p := newPlayer(dec, formatOf(dec), rec.newVoice)
	return p, dec, rec
}

func TestClampSeekByteOffsetClampsAndAligns(t *testing.T) {
	tests := []struct {
		name   string
		pos    time.Duration
		bps    int64
		length int64
		frame  int64
		want   int64
	}{
		{"clamped to length then aligned", 3900 * time.Millisecond, 10, 10, 4, 8},
		{"negative clamps to zero", -1 * time.Second, 10, 100, 4, 0},
		{"aligned down to frame", 1500 * time.Millisecond, 10, 100, 4, 12},
		{"no frame alignment", 1500 * time.Millisecond, 10, 100, 0, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampSeekByteOffset(tt.pos, tt.bps, tt.length, tt.frame); got != tt.want {
				t.Fatalf("got %d want %d", got, tt.want)
			}
		})
	}
}

func TestNewPlayerStartsPaused(t *testing.T) {
	p, _, rec := newStubPlayer(100)
	if !p.Paused() {
		t.Fatal("expected new player to be paused")
	}
	if rec.last().playing {
		t.Fatal("expected voice not to be playing")
	}
	if got := p.Duration(); got != 5*time.Second {
		t.Fatalf("duration=%v want=5s", got)
	}
}

func TestPlayPauseDriveVoice(t *testing.T) {
	p, _, rec := newStubPlayer(100)

	if err := p.Play(); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if p.Paused() || !rec.last().playing {
		t.Fatal("expected playback to start")
	}

	p.Pause()
	if !p.Paused() || rec.last().playing {
		t.Fatal("expected playback to pause")
	}
}

func TestSeekToClampsAndAlignsToFrameBoundary(t *testing.T) {
	dec := &stubSeekDecoder{length: 41, sampleRate: 44100, channels: 2}
	rec := &voiceRecorder{}
	p := newPlayer(dec, Format{SampleRate: 2, Channels: 2}, rec.newVoice) // 8 bytes/s, 4 byte frames

	if err := p.SeekTo(4500 * time.Millisecond); err != nil {
		t.Fatalf("SeekTo returned error: %v", err)
	}
	if dec.pos != 36 {
		t.Fatalf("expected decoder seek position 36, got %d", dec.pos)
	}
	if got := p.counter.Pos(); got != 36 {
		t.Fatalf("expected counter position 36, got %d", got)
	}
}

func TestSeekToKeepsPausedState(t *testing.T) {
	p, _, rec := newStubPlayer(100)

	if err := p.SeekTo(2 * time.Second); err != nil {
		t.Fatalf("SeekTo returned error: %v", err)
	}
	if len(rec.voices) != 2 {
		t.Fatalf("expected seek to replace the voice, got %d voices", len(rec.voices))
	}
	if rec.last().playing {
		t.Fatal("expected paused player to stay paused after seek")
	}

	p.Play()
	if err := p.SeekTo(time.Second); err != nil {
		t.Fatalf("SeekTo returned error: %v", err)
	}
	if !rec.last().playing {
		t.Fatal("expected playing player to keep playing after seek")
	}
	if rec.voices[1].playing {
		t.Fatal("expected previous voice to be paused")
	}
}

func TestSeekToReportsDecoderError(t *testing.T) {
	p, dec, _ := newStubPlayer(100)
	dec.seekErr = errors.New("boom")

	err := p.SeekTo(time.Second)
	if err == nil || !errors.Is(err, dec.seekErr) {
		t.Fatalf("expected wrapped seek error, got %v", err)
	}
}

func TestSeekToWithoutLengthIsNotSeekable(t *testing.T) {
	p, _, _ := newStubPlayer(0)
	if err := p.SeekTo(time.Second); !errors.Is(err, ErrNotSeekable) {
		t.Fatalf("expected ErrNotSeekable, got %v", err)
	}
}

func TestPlayAfterEndRestartsFromBeginning(t *testing.T) {
	p, dec, _ := newStubPlayer(100)
	p.counter.SetPos(100)
	dec.pos = 100

	if err := p.Play(); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if got := p.Position(); got != 0 {
		t.Fatalf("expected restart at 0, got %v", got)
	}
	if dec.pos != 0 {
		t.Fatalf("expected decoder rewound, got %d", dec.pos)
	}
}

func TestPositionTracksReads(t *testing.T) {
	p, _, _ := newStubPlayer(100)
	buf := make([]byte, 25)
	if _, err := p.counter.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := p.Position(); got != 2500*time.Millisecond {
		t.Fatalf("position=%v want=2.5s", got)
	}
}

func TestConnectTeesPCMIntoTap(t *testing.T) {
	p, _, _ := newStubPlayer(100)
	var tap bytes.Buffer
	p.Connect(&tap)

	buf := make([]byte, 8)
	p.counter.Read(buf)
	if tap.Len() != 8 {
		t.Fatalf("expected 8 bytes in tap, got %d", tap.Len())
	}

	p.Disconnect()
	p.counter.Read(buf)
	if tap.Len() != 8 {
		t.Fatalf("expected no writes after disconnect, got %d bytes", tap.Len())
	}
}

func TestCloseIsIdempotentAndRejectsPlay(t *testing.T) {
	p, _, _ := newStubPlayer(100)
	if err := p.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := p.Play(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := p.SeekTo(0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from SeekTo, got %v", err)
	}
}

func TestMonitorReportsEnd(t *testing.T) {
	p, _, _ := newStubPlayer(100)
	p.start()
	defer p.Close()

	if e, ok := (<-p.Events()).(MetadataEvent); !ok || e.Duration != 5*time.Second {
		t.Fatalf("expected metadata event first, got %#v", e)
	}

	p.Play()
	p.counter.SetPos(100)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-p.Events():
			if _, ok := e.(EndedEvent); ok {
				if !p.Paused() {
					t.Fatal("expected player paused at end of track")
				}
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for EndedEvent")
		}
	}
}

func TestSetVolumeClamps(t *testing.T) {
	p, _, rec := newStubPlayer(100)
	p.SetVolume(1.5)
	if p.Volume() != 1 || rec.last().volume != 1 {
		t.Fatalf("expected volume clamped to 1, got %f", p.Volume())
	}
	p.SetVolume(-1)
	if p.Volume() != 0 {
		t.Fatalf("expected volume clamped to 0, got %f", p.Volume())
	}
}

func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()

	const channels, rate, depth = 2, 8000, 16
	dataLen := frames * channels * depth / 8
	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	w(uint32(36 + dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(channels))
	w(uint32(rate))
	w(uint32(rate * channels * depth / 8))
	w(uint16(channels * depth / 8))
	w(uint16(depth))
	buf.WriteString("data")
	w(uint32(dataLen))
	for i := range frames * channels {
		w(int16(i))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProbeWAV(t *testing.T) {
	path := writeTestWAV(t, 8000)

	f, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if f.SampleRate != 8000 || f.Channels != 2 {
		t.Fatalf("unexpected format %+v", f)
	}
	if f.Duration != time.Second {
		t.Fatalf("duration=%v want=1s", f.Duration)
	}
}

func TestProbeRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Probe(path); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestReadMetadataFallsBackToFilename(t *testing.T) {
	m := ReadMetadata(filepath.Join("music", "Night Drive.wav"))
	if m.Title != "Night Drive" || m.Artist != "" {
		t.Fatalf("unexpected metadata %+v", m)
	}
	if got := (Metadata{Title: "T", Artist: "A"}).Display(); got != "A - T" {
		t.Fatalf("Display()=%q", got)
	}
}

func TestOpenPCMReadsWholeTrack(t *testing.T) {
	path := writeTestWAV(t, 100)

	s, err := OpenPCM(path)
	if err != nil {
		t.Fatalf("OpenPCM: %v", err)
	}
	defer s.Close()

	if s.Length != 400 {
		t.Fatalf("length=%d want=400", s.Length)
	}
	data, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(data) != 400 {
		t.Fatalf("read %d bytes want 400", len(data))
	}
	if got := int16(binary.LittleEndian.Uint16(data[6:])); got != 3 {
		t.Fatalf("sample 3=%d want 3", got)
	}
}
