package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// audioDecoder yields signed 16-bit little-endian interleaved PCM.
type audioDecoder interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
	ChannelCount() int
}

// newDecoder picks a decoder by file extension.
func newDecoder(f *os.File) (audioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3":
		dec, err := mp3.NewDecoder(f)
		if err != nil {
			return nil, fmt.Errorf("decoding MP3: %w", err)
		}
		return mp3Decoder{dec}, nil
	case ".wav":
		return newWAVDecoder(f)
	case ".flac":
		return newFLACDecoder(f)
	case ".ogg":
		return newOGGDecoder(f)
	default:
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}
}

// go-mp3 always decodes to stereo 16-bit at the source sample rate.
type mp3Decoder struct {
	*mp3.Decoder
}

func (mp3Decoder) ChannelCount() int { return 2 }

// pcmCursor holds converted-but-unread output and the output byte position
// shared by the converting decoders.
type pcmCursor struct {
	pending []byte
	pos     int64
	total   int64
}

func (c *pcmCursor) drain(p []byte) int {
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	c.pos += int64(n)
	return n
}

// emit copies converted output into p, keeping the remainder for later reads.
func (c *pcmCursor) emit(p, raw []byte) int {
	n := copy(p, raw)
	if n < len(raw) {
		c.pending = raw[n:]
	}
	c.pos += int64(n)
	return n
}

// target resolves a Seek call to a clamped output byte position.
func (c *pcmCursor) target(offset int64, whence int) int64 {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = c.pos + offset
	case io.SeekEnd:
		pos = c.total + offset
	}
	return min(max(pos, 0), c.total)
}

func (c *pcmCursor) moved(pos int64) {
	c.pending = nil
	c.pos = pos
}

func clamp16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// --- WAV ---

type wavDecoder struct {
	pcmCursor
	file       *os.File
	pcmStart   int64
	sampleRate int
	channels   int
	srcDepth   int
	srcFrame   int64
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	depth := int(dec.BitDepth)
	srcFrame := int64(channels) * int64(depth) / 8
	if srcFrame == 0 {
		return nil, fmt.Errorf("invalid WAV format: %d channels, %d bits", channels, depth)
	}

	start, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating WAV PCM data: %w", err)
	}

	frames := dec.PCMLen() / srcFrame
	return &wavDecoder{
		pcmCursor:  pcmCursor{total: frames * int64(channels) * 2},
		file:       f,
		pcmStart:   start,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		srcDepth:   depth,
		srcFrame:   srcFrame,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if len(d.pending) > 0 {
		return d.drain(p), nil
	}
	if d.pos >= d.total {
		return 0, io.EOF
	}

	width := d.srcDepth / 8
	samples := max(len(p)/2, 1)
	src := make([]byte, samples*width)
	n, err := io.ReadFull(d.file, src)
	samples = n / width
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, samples*2)
	for i := range samples {
		b := src[i*width:]
		var s int
		switch d.srcDepth {
		case 8:
			s = (int(b[0]) - 128) << 8
		case 16:
			s = int(int16(binary.LittleEndian.Uint16(b)))
		case 24:
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			s = int(v >> 8)
		case 32:
			s = int(int32(binary.LittleEndian.Uint32(b)) >> 16)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clamp16(s)))
	}

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return d.emit(p, raw), err
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	frame := pos / (int64(d.channels) * 2)
	if _, err := d.file.Seek(d.pcmStart+frame*d.srcFrame, io.SeekStart); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *wavDecoder) Length() int64     { return d.total }
func (d *wavDecoder) SampleRate() int   { return d.sampleRate }
func (d *wavDecoder) ChannelCount() int { return d.channels }

// --- FLAC ---

type flacDecoder struct {
	pcmCursor
	stream     *flac.Stream
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		pcmCursor:  pcmCursor{total: int64(info.NSamples) * int64(channels) * 2},
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   channels,
		bps:        int(info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if len(d.pending) > 0 {
		return d.drain(p), nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	n := int(frame.Subframes[0].NSamples)
	raw := make([]byte, n*d.channels*2)
	for i := range n {
		for ch := range d.channels {
			s := int(frame.Subframes[ch].Samples[i])
			switch {
			case d.bps > 16:
				s >>= d.bps - 16
			case d.bps < 16:
				s <<= 16 - d.bps
			}
			binary.LittleEndian.PutUint16(raw[(i*d.channels+ch)*2:], uint16(clamp16(s)))
		}
	}
	return d.emit(p, raw), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	sample := uint64(pos / (int64(d.channels) * 2))
	if _, err := d.stream.Seek(sample); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *flacDecoder) Length() int64     { return d.total }
func (d *flacDecoder) SampleRate() int   { return d.sampleRate }
func (d *flacDecoder) ChannelCount() int { return d.channels }

// --- OGG Vorbis ---

type oggDecoder struct {
	pcmCursor
	reader   *oggvorbis.Reader
	channels int
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	channels := reader.Channels()
	return &oggDecoder{
		pcmCursor: pcmCursor{total: reader.Length() * int64(channels) * 2},
		reader:    reader,
		channels:  channels,
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if len(d.pending) > 0 {
		return d.drain(p), nil
	}

	samples := make([]float32, max(len(p)/2, d.channels))
	n, err := d.reader.Read(samples)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*2)
	for i, s := range samples[:n] {
		s = min(max(s, -1), 1)
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(s*32767)))
	}
	return d.emit(p, raw), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	if err := d.reader.SetPosition(pos / (int64(d.channels) * 2)); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *oggDecoder) Length() int64     { return d.total }
func (d *oggDecoder) SampleRate() int   { return d.reader.SampleRate() }
func (d *oggDecoder) ChannelCount() int { return d.channels }
