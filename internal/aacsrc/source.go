// SPDX-License-Identifier: EPL-2.0

package aacsrc

import (
	"errors"
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	faad2 "github.com/llehouerou/go-faad2"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/utils"
)

// aacDecoder is an interface for faad2.Decoder to allow testing
type aacDecoder interface {
	Init(config []byte) error
	Decode(frame []byte) ([]int16, error)
	SampleRate() uint32
	Channels() uint8
	Close() error
}

// opener creates a fresh, uninitialised decoder session.
type opener func() (aacDecoder, error)

func openFAAD2() (aacDecoder, error) {
	dec, err := faad2.NewDecoder()
	if err != nil {
		return nil, err
	}

	return dec, nil
}

const (
	defaultFrameLength = 1024
	shortFrameLength   = 960
)

var errNoSession = errors.New("aac: no decoder session")

// Source is an audio.NativeSource decoding one indexed AAC track. FAAD2
// produces 16-bit PCM, which is delivered as is or scaled to float32.
//
// The decoder emits nothing for the first access unit after init or a seek,
// so output of access unit i (i >= 1) covers frames [(i-1)*L, i*L) where L
// is the frame length.
type Source struct {
	open   opener
	dec    aacDecoder
	track  *Track
	closer io.Closer

	encoding    audio.Encoding
	sampleRate  int
	channels    int
	frameLength int

	next    int // next access unit to decode
	unit    []byte
	raw     []int16
	data    []byte
	samples []float32
}

// New creates a FAAD2 session for t delivering enc, which is either
// audio.EncodingS16LE or audio.EncodingFloat32. The source takes ownership
// of closer, which may be nil.
func New(t *Track, closer io.Closer, enc audio.Encoding) (*Source, error) {
	return newSource(openFAAD2, t, closer, enc)
}

func newSource(open opener, t *Track, closer io.Closer, enc audio.Encoding) (*Source, error) {
	if enc != audio.EncodingS16LE && enc != audio.EncodingFloat32 {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("aac: unsupported output encoding %v", enc)
	}

	dec, err := initSession(open, t.ASC)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	s := &Source{
		open:       open,
		dec:        dec,
		track:      t,
		closer:     closer,
		encoding:   enc,
		sampleRate: int(dec.SampleRate()),
		channels:   int(dec.Channels()),
	}
	// channel configuration 0 is defined in-band; trust the container
	if s.channels == 0 {
		s.channels = t.Channels
	}
	s.frameLength = frameLength(t.ASC, s.sampleRate)

	return s, nil
}

func initSession(open opener, asc []byte) (aacDecoder, error) {
	dec, err := open()
	if err != nil {
		return nil, fmt.Errorf("aac session: %w", err)
	}

	if err := dec.Init(asc); err != nil {
		_ = dec.Close()
		return nil, fmt.Errorf("aac init: %w", err)
	}

	return dec, nil
}

// frameLength returns the number of PCM frames one access unit decodes to.
// A decoder running at twice the core rate is doing SBR and doubles it.
func frameLength(asc []byte, decoderRate int) int {
	var cfg mpeg4audio.Config
	if err := cfg.Unmarshal(asc); err != nil {
		return defaultFrameLength
	}

	n := defaultFrameLength
	if cfg.FrameLengthFlag {
		n = shortFrameLength
	}
	if cfg.SampleRate > 0 && decoderRate == 2*cfg.SampleRate {
		n *= 2
	}

	return n
}

func (s *Source) timeScale() int64 {
	if s.track.TimeScale > 0 {
		return s.track.TimeScale
	}

	return int64(s.sampleRate)
}

func (s *Source) Format() (audio.Format, error) {
	if s.channels <= 0 {
		return audio.Format{}, fmt.Errorf("aac: unknown channel layout")
	}

	n := int64(s.track.AccessUnits())
	total := max(n-1, 0) * int64(s.frameLength)

	bitDepth := 16
	if s.encoding == audio.EncodingFloat32 {
		bitDepth = 32
	}

	return audio.Format{
		SampleRate:     s.sampleRate,
		Channels:       s.channels,
		BitDepth:       bitDepth,
		Encoding:       s.encoding,
		TimeScale:      s.timeScale(),
		TotalFrames:    total,
		PrimingFrames:  s.priming(total),
		MaxChunkFrames: s.frameLength,
	}, nil
}

// priming converts the edit list start to frames. The start already
// includes the decoder's one-frame delay, which the unit index accounts for.
func (s *Source) priming(total int64) int64 {
	if s.track.MediaTime <= 0 || s.sampleRate <= 0 {
		return 0
	}

	p := s.track.MediaTime*int64(s.sampleRate)/s.timeScale() - int64(s.frameLength)

	return min(max(p, 0), total)
}

// Pull decodes access units until one yields samples and returns at most
// budget frames of them. Frames beyond budget are kept for the next call.
func (s *Source) Pull(budget int) (audio.Chunk, error) {
	if s.dec == nil {
		return audio.Chunk{}, errNoSession
	}

	for len(s.raw) == 0 {
		if s.next >= s.track.AccessUnits() {
			return audio.Chunk{}, nil
		}

		unit, err := s.track.units.Unit(s.next, s.unit)
		if err != nil {
			return audio.Chunk{}, err
		}
		s.unit = unit[:0]
		s.next++

		out, err := s.dec.Decode(unit)
		if err != nil {
			return audio.Chunk{}, fmt.Errorf("access unit %d: %w", s.next-1, err)
		}
		s.raw = out
	}

	frames := min(len(s.raw)/s.channels, budget)
	n := frames * s.channels
	// a partial trailing frame goes out whole so the reader can reject it
	if frames < budget && len(s.raw) > n {
		n = len(s.raw)
	}

	out := s.raw[:n]
	s.raw = s.raw[n:]

	if s.encoding == audio.EncodingFloat32 {
		s.samples = s.samples[:0]
		for _, v := range out {
			s.samples = append(s.samples, utils.Int16ToFloat32(v))
		}
		return audio.Chunk{Frames: frames, Samples: s.samples}, nil
	}

	s.data = utils.EncodeS16LE(s.data[:0], out)

	return audio.Chunk{Frames: frames, Data: s.data}, nil
}

// SeekTime restarts decoding at the access unit whose output contains t and
// returns the first frame that unit's successor produces. FAAD2 exposes no
// post-seek reset, so the session is recreated.
func (s *Source) SeekTime(t int64) (int64, error) {
	frame := t * int64(s.sampleRate) / s.timeScale()
	au := int(frame / int64(s.frameLength))
	au = max(min(au, s.track.AccessUnits()-1), 0)

	if s.dec != nil {
		_ = s.dec.Close()
		s.dec = nil
	}

	dec, err := initSession(s.open, s.track.ASC)
	if err != nil {
		return 0, err
	}

	s.dec = dec
	s.next = au
	s.raw = nil

	return int64(au) * int64(s.frameLength), nil
}

func (s *Source) Close() error {
	var err error
	if s.dec != nil {
		err = s.dec.Close()
		s.dec = nil
	}

	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}

	return err
}
