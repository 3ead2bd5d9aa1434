// SPDX-License-Identifier: EPL-2.0

// Package mp3src adapts go-mp3 to audio.NativeSource.
package mp3src

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg2audio"
	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audiodecoder/audio"
)

// ErrUnsupportedLayer is returned for MPEG audio other than layer III.
var ErrUnsupportedLayer = errors.New("unsupported MPEG audio layer")

const (
	// go-mp3 always produces 16-bit little-endian stereo.
	channels      = 2
	bytesPerFrame = 2 * channels

	// ChunkFrames is the size of one MPEG-1 layer III frame.
	ChunkFrames = 1152

	// DecoderDelay is the layer III synthesis delay added to the encoder
	// delay recorded in a LAME tag.
	DecoderDelay = 529

	headSize = 64 << 10
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

// Source is an audio.NativeSource over a go-mp3 decoder. Its native clock
// counts 100ns units.
type Source struct {
	dec     mp3Reader
	closer  io.Closer
	buf     []byte
	priming int64
}

// OpenFile opens name and starts a go-mp3 session on it.
func OpenFile(name string) (*Source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	priming, err := scanHead(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mp3: %w", err)
	}

	src := newSource(dec, f)
	src.priming = priming

	return src, nil
}

func newSource(dec mp3Reader, closer io.Closer) *Source {
	return &Source{
		dec:    dec,
		closer: closer,
		buf:    make([]byte, ChunkFrames*bytesPerFrame),
	}
}

// scanHead rejects layer I and II streams up front and returns the priming
// frames recorded in the first frame's LAME tag. r is rewound.
func scanHead(r io.ReadSeeker) (int64, error) {
	head := make([]byte, headSize)
	n, _ := io.ReadFull(r, head)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	data := skipID3(head[:n])
	off, layer, ok := firstFrame(data)
	if !ok {
		return 0, nil
	}
	if layer != 3 {
		return 0, fmt.Errorf("%w: layer %d", ErrUnsupportedLayer, layer)
	}

	delay, ok := lameDelay(data[off:])
	if !ok {
		return 0, nil
	}

	return int64(delay) + DecoderDelay, nil
}

// firstFrame returns the offset and layer of the first parseable frame
// header.
func firstFrame(data []byte) (int, int, bool) {
	for i := 0; i+4 <= len(data); i++ {
		if data[i] != 0xFF || data[i+1]&0xE0 != 0xE0 {
			continue
		}

		var h mpeg2audio.FrameHeader
		if err := h.Unmarshal(data[i:]); err == nil {
			return i, int(h.Layer), true
		}
	}

	return 0, 0, false
}

// Xing header flags.
const (
	xingFrames  = 0x1
	xingBytes   = 0x2
	xingTOC     = 0x4
	xingQuality = 0x8
)

// lameDelay reads the encoder delay from the Xing or Info tag of a layer III
// frame. It reports false when the frame carries no LAME extension.
func lameDelay(frame []byte) (int, bool) {
	if len(frame) < 4 {
		return 0, false
	}

	// side information follows the header and its length depends on the
	// MPEG version and channel mode
	mpeg1 := frame[1]>>3&0x3 == 0x3
	mono := frame[3]>>6 == 0x3

	var side int
	switch {
	case mpeg1 && mono:
		side = 17
	case mpeg1:
		side = 32
	case mono:
		side = 9
	default:
		side = 17
	}

	tag := frame[min(4+side, len(frame)):]
	if len(tag) < 8 || (string(tag[:4]) != "Xing" && string(tag[:4]) != "Info") {
		return 0, false
	}

	flags := binary.BigEndian.Uint32(tag[4:8])
	off := 8
	if flags&xingFrames != 0 {
		off += 4
	}
	if flags&xingBytes != 0 {
		off += 4
	}
	if flags&xingTOC != 0 {
		off += 100
	}
	if flags&xingQuality != 0 {
		off += 4
	}

	// 9 byte encoder version, then the delay and padding share 3 bytes at
	// offset 21
	if len(tag) < off+24 {
		return 0, false
	}

	lame := tag[off:]
	switch string(lame[:4]) {
	case "LAME", "Lavf", "Lavc":
	default:
		return 0, false
	}

	return int(lame[21])<<4 | int(lame[22])>>4, true
}

func skipID3(data []byte) []byte {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return data
	}

	size := 10 + (int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F))
	if size > len(data) {
		return nil
	}

	return data[size:]
}

func (s *Source) Format() (audio.Format, error) {
	var total int64
	if l := s.dec.Length(); l > 0 {
		total = l / bytesPerFrame
	}

	return audio.Format{
		SampleRate:     s.dec.SampleRate(),
		Channels:       channels,
		BitDepth:       16,
		Encoding:       audio.EncodingS16LE,
		TimeScale:      audio.HundredNanoseconds,
		TotalFrames:    total,
		PrimingFrames:  s.primingFrames(total),
		MaxChunkFrames: ChunkFrames,
	}, nil
}

func (s *Source) primingFrames(total int64) int64 {
	if total > 0 {
		return min(s.priming, total)
	}

	return s.priming
}

func (s *Source) Pull(budget int) (audio.Chunk, error) {
	want := min(budget, ChunkFrames) * bytesPerFrame

	n, err := io.ReadFull(s.dec, s.buf[:want])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil {
		return audio.Chunk{}, err
	}

	n -= n % bytesPerFrame

	return audio.Chunk{Frames: n / bytesPerFrame, Data: s.buf[:n]}, nil
}

// SeekTime seeks to the frame at t (in 100ns units). go-mp3 seeks are
// sample accurate within the decoded stream.
func (s *Source) SeekTime(t int64) (int64, error) {
	frame := t * int64(s.dec.SampleRate()) / audio.HundredNanoseconds
	if l := s.dec.Length(); l > 0 {
		frame = min(frame, l/bytesPerFrame)
	}

	pos, err := s.dec.Seek(frame*bytesPerFrame, io.SeekStart)
	if err != nil {
		return 0, err
	}

	return pos / bytesPerFrame, nil
}

func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}
