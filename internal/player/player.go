package player

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by operations on a closed Player.
	ErrClosed = errors.New("player closed")
	// ErrFormatMismatch is returned when a track does not match the output format.
	ErrFormatMismatch = errors.New("track format does not match audio output")
	// ErrNotSeekable is returned when the decoder cannot report a length.
	ErrNotSeekable = errors.New("track is not seekable")
)

const progressInterval = 250 * time.Millisecond

// Format describes decoded PCM.
type Format struct {
	SampleRate int
	Channels   int
	Duration   time.Duration
}

func (f Format) bytesPerSec() int64 {
	return int64(f.SampleRate) * int64(f.Channels) * 2
}

// voice is the playing end of an audio output.
type voice interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(float64)
}

// countingReader tracks the decoder position and copies everything read into
// the connected tap, if any.
type countingReader struct {
	reader io.ReadSeeker
	mu     sync.Mutex
	pos    int64
	tap    io.Writer
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	tap := cr.tap
	cr.mu.Unlock()
	if tap != nil && n > 0 {
		_, _ = tap.Write(p[:n])
	}
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

func (cr *countingReader) SetPos(pos int64) {
	cr.mu.Lock()
	cr.pos = pos
	cr.mu.Unlock()
}

func (cr *countingReader) setTap(w io.Writer) {
	cr.mu.Lock()
	cr.tap = w
	cr.mu.Unlock()
}

// Probe opens path just long enough to read its PCM format and duration.
func Probe(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer f.Close()

	dec, err := newDecoder(f)
	if err != nil {
		return Format{}, err
	}
	return formatOf(dec), nil
}

func formatOf(dec audioDecoder) Format {
	f := Format{SampleRate: dec.SampleRate(), Channels: dec.ChannelCount()}
	if bps := f.bytesPerSec(); bps > 0 && dec.Length() > 0 {
		f.Duration = time.Duration(float64(dec.Length()) / float64(bps) * float64(time.Second))
	}
	return f
}

// Player plays one track through an Output. It starts paused and reports
// metadata, progress and end of track on Events.
type Player struct {
	mu       sync.Mutex
	file     io.Closer
	decoder  audioDecoder
	counter  *countingReader
	newVoice func(io.Reader) voice
	voice    voice
	format   Format
	volume   float64
	paused   bool
	closed   bool

	events    chan Event
	stopMon   chan struct{}
	closeOnce sync.Once
}

// New opens path for playback on out. The track's sample rate and channel
// count must match the output.
func New(path string, out *Output) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	format := formatOf(dec)
	if want := out.Format(); format.SampleRate != want.SampleRate || format.Channels != want.Channels {
		f.Close()
		return nil, fmt.Errorf("%w: track %d Hz/%dch, output %d Hz/%dch",
			ErrFormatMismatch, format.SampleRate, format.Channels, want.SampleRate, want.Channels)
	}

	p := newPlayer(dec, format, out.newVoice)
	p.file = f
	p.start()
	return p, nil
}

func newPlayer(dec audioDecoder, format Format, newVoice func(io.Reader) voice) *Player {
	p := &Player{
		decoder:  dec,
		counter:  &countingReader{reader: dec},
		newVoice: newVoice,
		format:   format,
		volume:   0.8,
		paused:   true,
		events:   make(chan Event, 16),
		stopMon:  make(chan struct{}),
	}
	p.voice = newVoice(p.counter)
	p.voice.SetVolume(p.volume)
	return p
}

// start announces metadata and begins progress monitoring.
func (p *Player) start() {
	p.events <- MetadataEvent{Duration: p.format.Duration}
	go p.monitor()
}

func (p *Player) monitor() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopMon:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		paused := p.paused
		ended := !paused && p.decoder.Length() > 0 && p.counter.Pos() >= p.decoder.Length()
		if ended {
			p.voice.Pause()
			p.paused = true
		}
		p.mu.Unlock()

		if paused {
			continue
		}
		p.emit(ProgressEvent{Position: p.Position()})
		if ended {
			p.emit(EndedEvent{})
		}
	}
}

// emit delivers an event without blocking; a slow reader loses progress
// updates, not playback.
func (p *Player) emit(e Event) {
	select {
	case p.events <- e:
	default:
	}
}

// Events returns the notification channel. It is never closed.
func (p *Player) Events() <-chan Event {
	return p.events
}

// Format returns the decoded PCM format of the track.
func (p *Player) Format() Format {
	return p.format
}

// Play starts or resumes playback. Playing a finished track restarts it.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if length := p.decoder.Length(); length > 0 && p.counter.Pos() >= length {
		if err := p.seekLocked(0); err != nil {
			return err
		}
	}
	p.voice.Play()
	p.paused = false
	return nil
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.voice.Pause()
	p.paused = true
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	bps := p.format.bytesPerSec()
	if bps == 0 {
		return 0
	}
	return time.Duration(float64(p.counter.Pos()) / float64(bps) * float64(time.Second))
}

// Duration returns the total duration of the track, or 0 if unknown.
func (p *Player) Duration() time.Duration {
	return p.format.Duration
}

// SeekTo moves playback to pos, clamped to the track. The paused state is
// kept.
func (p *Player) SeekTo(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.decoder.Length() <= 0 {
		return ErrNotSeekable
	}
	frame := int64(p.format.Channels) * 2
	return p.seekLocked(clampSeekByteOffset(pos, p.format.bytesPerSec(), p.decoder.Length(), frame))
}

func (p *Player) seekLocked(offset int64) error {
	if _, err := p.decoder.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	p.counter.SetPos(offset)

	// A fresh voice drops whatever the old one had buffered.
	p.voice.Pause()
	p.voice = p.newVoice(p.counter)
	p.voice.SetVolume(p.volume)
	if !p.paused {
		p.voice.Play()
	}
	return nil
}

// clampSeekByteOffset converts a target time into a byte offset within
// [0, length], aligned down to a whole sample frame.
func clampSeekByteOffset(pos time.Duration, bytesPerSec, length, frame int64) int64 {
	offset := int64(pos.Seconds() * float64(bytesPerSec))
	offset = min(max(offset, 0), length)
	if frame > 0 {
		offset -= offset % frame
	}
	return offset
}

// Connect routes a copy of the PCM stream into w. Passing nil disconnects.
func (p *Player) Connect(w io.Writer) {
	p.counter.setTap(w)
}

// Disconnect stops copying PCM into the connected tap.
func (p *Player) Disconnect() {
	p.counter.setTap(nil)
}

// Volume returns the current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets the volume, clamped to 0.0 - 1.0.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = min(max(v, 0), 1)
	if p.voice != nil {
		p.voice.SetVolume(p.volume)
	}
}

// Close stops playback and releases the track. It is safe to call twice.
func (p *Player) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		if p.voice != nil {
			p.voice.Pause()
		}
		p.mu.Unlock()

		close(p.stopMon)
		p.counter.setTap(nil)
		if p.file != nil {
			err = p.file.Close()
		}
	})
	return err
}

// Source is the part of *Player that playback controllers drive.
type Source interface {
	Play() error
	Pause()
	Paused() bool
	SeekTo(pos time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	Connect(w io.Writer)
	Disconnect()
	Events() <-chan Event
	Close() error
}

var _ Source = (*Player)(nil)

// PCMStream is a decoded track opened for one sequential pass, independent of
// any playing Player.
type PCMStream struct {
	io.Reader
	Format Format
	// Length is the decoded size in bytes, or 0 if unknown.
	Length int64
	file   *os.File
}

// Close releases the underlying file.
func (s *PCMStream) Close() error {
	return s.file.Close()
}

// OpenPCM opens path and decodes it to 16-bit PCM.
func OpenPCM(path string) (*PCMStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &PCMStream{Reader: dec, Format: formatOf(dec), Length: dec.Length(), file: f}, nil
}
