// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/audiodecoder/audio"
)

var _ audio.Decoder = (*Decoder)(nil)

const chunkFrames = 4096

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Length() int64
	SetPosition(pos int64) error
	Read([]float32) (int, error)
}

// source exposes an oggvorbis.Reader as an audio.NativeSource. Vorbis
// seeks are sample exact, so the native clock is the sample rate itself.
type source struct {
	dec      oggReader
	closer   io.Closer
	channels int
	buf      []float32
}

func newSource(dec oggReader, closer io.Closer) *source {
	return &source{
		dec:      dec,
		closer:   closer,
		channels: dec.Channels(),
		buf:      make([]float32, chunkFrames*max(dec.Channels(), 1)),
	}
}

func (s *source) Format() (audio.Format, error) {
	return audio.Format{
		SampleRate:     s.dec.SampleRate(),
		Channels:       s.channels,
		BitDepth:       32,
		Encoding:       audio.EncodingFloat32,
		TimeScale:      int64(s.dec.SampleRate()),
		TotalFrames:    max(s.dec.Length(), 0),
		MaxChunkFrames: chunkFrames,
	}, nil
}

func (s *source) Pull(budget int) (audio.Chunk, error) {
	want := min(budget, chunkFrames) * s.channels

	for {
		// oggvorbis counts interleaved values, not frames
		n, err := s.dec.Read(s.buf[:want])
		n -= n % s.channels

		if n > 0 {
			return audio.Chunk{Frames: n / s.channels, Samples: s.buf[:n]}, nil
		}
		if errors.Is(err, io.EOF) {
			return audio.Chunk{}, nil
		}
		if err != nil {
			return audio.Chunk{}, err
		}
	}
}

func (s *source) SeekTime(t int64) (int64, error) {
	if err := s.dec.SetPosition(t); err != nil {
		return 0, err
	}

	return t, nil
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

// Decoder decodes Ogg Vorbis files with github.com/jfreymuth/oggvorbis.
type Decoder struct {
	audio.FrameReader

	Logger *slog.Logger
	// OutputChannels overrides the delivered channel count; zero keeps the
	// stream's own.
	OutputChannels int
}

func (d *Decoder) Open(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrOpen, err)
	}

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %s: %w", audio.ErrOpen, filename, err)
	}

	opts := []audio.Option{audio.WithOutputChannels(d.OutputChannels)}
	if d.Logger != nil {
		opts = append(opts, audio.WithLogger(d.Logger.With(slog.String("file", filename))))
	}

	return d.FrameReader.Open(newSource(dec, f), opts...)
}

func (*Decoder) SupportedFileExtensions() []string {
	return []string{"ogg", "oga"}
}
