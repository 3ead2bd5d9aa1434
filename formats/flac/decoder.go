// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/utils"
)

var _ audio.Decoder = (*Decoder)(nil)

const defaultBlockSize = 4096

// flacStream is an interface for flac.Stream to allow testing
type flacStream interface {
	ParseNext() (*frame.Frame, error)
	Seek(sampleNum uint64) (uint64, error)
	Close() error
}

type streamInfo struct {
	sampleRate    int
	channels      int
	bitsPerSample int
	totalFrames   int64
	maxBlockSize  int
}

// source interleaves FLAC frames into float32 chunks. FLAC seeks land on
// the first sample of the containing frame.
type source struct {
	stream flacStream
	file   io.Closer
	info   streamInfo

	cur    *frame.Frame
	offset int // frames of cur already delivered
	buf    []float32
}

func newSource(stream flacStream, file io.Closer, info streamInfo) *source {
	if info.maxBlockSize <= 0 {
		info.maxBlockSize = defaultBlockSize
	}

	return &source{
		stream: stream,
		file:   file,
		info:   info,
		buf:    make([]float32, info.maxBlockSize*max(info.channels, 1)),
	}
}

func (s *source) Format() (audio.Format, error) {
	return audio.Format{
		SampleRate:     s.info.sampleRate,
		Channels:       s.info.channels,
		BitDepth:       s.info.bitsPerSample,
		Encoding:       audio.EncodingFloat32,
		TimeScale:      int64(s.info.sampleRate),
		TotalFrames:    s.info.totalFrames,
		MaxChunkFrames: s.info.maxBlockSize,
	}, nil
}

func (s *source) Pull(budget int) (audio.Chunk, error) {
	for s.cur == nil || s.offset >= blockSize(s.cur) {
		f, err := s.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			s.cur = nil
			return audio.Chunk{}, nil
		}
		if err != nil {
			return audio.Chunk{}, err
		}

		s.cur, s.offset = f, 0
	}

	chans := len(s.cur.Subframes)
	frames := min(budget, blockSize(s.cur)-s.offset, s.info.maxBlockSize)
	if chans*frames > len(s.buf) {
		return audio.Chunk{}, fmt.Errorf("flac: frame has %d channels, stream has %d", chans, s.info.channels)
	}

	bps := int(s.cur.BitsPerSample)
	out := s.buf[:0]
	for i := s.offset; i < s.offset+frames; i++ {
		for _, sub := range s.cur.Subframes {
			out = append(out, utils.IntToFloat32(sub.Samples[i], bps))
		}
	}
	s.offset += frames

	return audio.Chunk{Frames: frames, Samples: out}, nil
}

func blockSize(f *frame.Frame) int {
	if len(f.Subframes) == 0 {
		return 0
	}

	return len(f.Subframes[0].Samples)
}

func (s *source) SeekTime(t int64) (int64, error) {
	landed, err := s.stream.Seek(uint64(max(t, 0)))
	if err != nil {
		return 0, err
	}

	s.cur, s.offset = nil, 0

	return int64(landed), nil
}

func (s *source) Close() error {
	err := s.stream.Close()

	if s.file != nil {
		// flac.Stream may already have closed the file
		if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, os.ErrClosed) && err == nil {
			err = ferr
		}
	}

	return err
}

// Decoder decodes FLAC files with github.com/mewkiz/flac.
type Decoder struct {
	audio.FrameReader

	Logger         *slog.Logger
	OutputChannels int
}

func (d *Decoder) Open(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrOpen, err)
	}

	stream, err := flac.NewSeek(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %s: %w", audio.ErrOpen, filename, err)
	}

	info := streamInfo{
		sampleRate:    int(stream.Info.SampleRate),
		channels:      int(stream.Info.NChannels),
		bitsPerSample: int(stream.Info.BitsPerSample),
		totalFrames:   int64(stream.Info.NSamples),
		maxBlockSize:  int(stream.Info.BlockSizeMax),
	}

	opts := []audio.Option{audio.WithOutputChannels(d.OutputChannels)}
	if d.Logger != nil {
		opts = append(opts, audio.WithLogger(d.Logger.With(slog.String("file", filename))))
	}

	return d.FrameReader.Open(newSource(stream, f, info), opts...)
}

func (*Decoder) SupportedFileExtensions() []string {
	return []string{"flac"}
}
