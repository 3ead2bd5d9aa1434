// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides scripted native sources for testing decoders.
package audiotest

import (
	"errors"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/utils"
)

var (
	ErrFormat = errors.New("audiotest: format negotiation refused")
	ErrSeek   = errors.New("audiotest: seek refused")
	ErrPull   = errors.New("audiotest: pull failed")
	ErrClose  = errors.New("audiotest: close failed")
)

// Source is a scripted audio.NativeSource. Each native frame carries a
// deterministic value derived from its index, see Sample.
//
// Pulls follow Chunks in order; a 0 entry ends the stream. Once the script
// is exhausted, chunks of up to MaxChunkFrames are produced until
// TotalFrames is reached (or forever when TotalFrames is 0 and no script
// was given, which tests should avoid).
type Source struct {
	Fmt    audio.Format
	Chunks []int

	// Granularity makes SeekTime land on the previous multiple of it.
	Granularity int64

	FormatErr error
	SeekErr   error
	// PullErr is returned by the pull with index PullErrAt.
	PullErr   error
	PullErrAt int
	// BadChunkAt makes the pull with that index (1 based) return one sample
	// too few. Zero disables it.
	BadChunkAt int
	// Oversize makes every pull return one frame more than the budget.
	Oversize bool
	// LandPast makes SeekTime report a frame after the requested one.
	LandPast bool
	CloseErr error

	Releases int
	Pulls    int
	Seeks    []int64 // native times passed to SeekTime

	cursor int64
	script int
}

// New returns a source with the given layout and chunk script. The time scale
// defaults to the sample rate and MaxChunkFrames to the largest scripted chunk.
func New(enc audio.Encoding, sampleRate, channels int, totalFrames int64, chunks ...int) *Source {
	maxChunk := 1
	for _, c := range chunks {
		maxChunk = max(maxChunk, c)
	}

	return &Source{
		Fmt: audio.Format{
			SampleRate:     sampleRate,
			Channels:       channels,
			BitDepth:       16,
			Encoding:       enc,
			TimeScale:      int64(sampleRate),
			TotalFrames:    totalFrames,
			MaxChunkFrames: maxChunk,
		},
		Chunks: chunks,
	}
}

// Raw is the integer PCM value of channel ch at native frame.
func Raw(frame int64, channels, ch int) int16 {
	return int16((frame*int64(channels) + int64(ch)) % 32768)
}

// Sample is the canonical float value a FrameReader delivers for channel ch at
// native frame, for every encoding the fake supports.
func Sample(frame int64, channels, ch int) float32 {
	return utils.Int16ToFloat32(Raw(frame, channels, ch))
}

// Cursor returns the next native frame Pull produces.
func (s *Source) Cursor() int64 { return s.cursor }

func (s *Source) Format() (audio.Format, error) {
	if s.FormatErr != nil {
		return audio.Format{}, s.FormatErr
	}

	return s.Fmt, nil
}

func (s *Source) Pull(budget int) (audio.Chunk, error) {
	s.Pulls++

	if s.PullErr != nil && s.Pulls == s.PullErrAt {
		return audio.Chunk{}, s.PullErr
	}

	frames := s.next(budget)
	if frames == 0 {
		return audio.Chunk{}, nil
	}
	if s.Oversize {
		frames = budget + 1
	}

	chunk := s.render(frames)
	if s.Pulls == s.BadChunkAt {
		if chunk.Samples != nil {
			chunk.Samples = chunk.Samples[:len(chunk.Samples)-1]
		} else {
			chunk.Data = chunk.Data[:len(chunk.Data)-2]
		}
	}

	s.cursor += int64(frames)

	return chunk, nil
}

func (s *Source) next(budget int) int {
	frames := min(budget, s.Fmt.MaxChunkFrames)

	if s.script < len(s.Chunks) {
		frames = s.Chunks[s.script]
		s.script++
	}

	if total := s.Fmt.TotalFrames; total > 0 {
		frames = int(min(int64(frames), max(total-s.cursor, 0)))
	}

	return frames
}

func (s *Source) render(frames int) audio.Chunk {
	ch := s.Fmt.Channels
	raw := make([]int16, 0, frames*ch)

	for f := range int64(frames) {
		for c := range ch {
			raw = append(raw, Raw(s.cursor+f, ch, c))
		}
	}

	switch s.Fmt.Encoding {
	case audio.EncodingS16LE:
		return audio.Chunk{Frames: frames, Data: utils.EncodeS16LE(nil, raw)}
	default:
		samples := make([]float32, len(raw))
		for i, v := range raw {
			samples[i] = utils.Int16ToFloat32(v)
		}

		return audio.Chunk{Frames: frames, Samples: samples}
	}
}

func (s *Source) SeekTime(t int64) (int64, error) {
	s.Seeks = append(s.Seeks, t)

	if s.SeekErr != nil {
		return 0, s.SeekErr
	}

	frame := t * int64(s.Fmt.SampleRate) / s.Fmt.TimeScale
	if s.Granularity > 1 {
		frame -= frame % s.Granularity
	}

	s.cursor = frame
	if s.LandPast {
		return frame + 1, nil
	}

	return frame, nil
}

func (s *Source) Close() error {
	s.Releases++
	return s.CloseErr
}
