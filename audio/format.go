// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Encoding identifies the sample layout of a native chunk.
type Encoding int

const (
	// EncodingS16LE is interleaved signed 16-bit little-endian PCM in Chunk.Data.
	EncodingS16LE Encoding = iota + 1
	// EncodingS32LE is interleaved signed 32-bit little-endian PCM in Chunk.Data.
	EncodingS32LE
	// EncodingF32LE is interleaved IEEE float32 little-endian PCM in Chunk.Data.
	EncodingF32LE
	// EncodingFloat32 is interleaved float32 samples already in Chunk.Samples.
	EncodingFloat32
)

func (e Encoding) String() string {
	switch e {
	case EncodingS16LE:
		return "s16le"
	case EncodingS32LE:
		return "s32le"
	case EncodingF32LE:
		return "f32le"
	case EncodingFloat32:
		return "float32"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// BytesPerSample returns the byte width of one sample in Chunk.Data,
// or 0 for encodings that do not use Data.
func (e Encoding) BytesPerSample() int {
	switch e {
	case EncodingS16LE:
		return 2
	case EncodingS32LE, EncodingF32LE:
		return 4
	default:
		return 0
	}
}

// HundredNanoseconds is the native time scale used by sources that have
// no natural media clock of their own.
const HundredNanoseconds int64 = 10_000_000

// Format is the result of negotiating an output layout with a NativeSource.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Encoding   Encoding

	// TimeScale is the number of native time units per second accepted by SeekTime.
	TimeScale int64

	// TotalFrames is the number of frames the source delivers from the start of
	// the stream, priming frames included. Zero means unknown.
	TotalFrames int64
	// PrimingFrames are encoder delay frames at the start of the stream that
	// are skipped and not counted in the decoder's duration.
	PrimingFrames int64

	// MaxChunkFrames is the largest chunk Pull may return.
	MaxChunkFrames int
}

func (f Format) validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, f.SampleRate)
	case f.Channels <= 0:
		return fmt.Errorf("invalid channel count %d", f.Channels)
	case f.TimeScale <= 0:
		return fmt.Errorf("invalid time scale %d", f.TimeScale)
	case f.MaxChunkFrames <= 0:
		return fmt.Errorf("invalid max chunk size %d", f.MaxChunkFrames)
	case f.TotalFrames < 0 || f.PrimingFrames < 0:
		return fmt.Errorf("invalid length %d (priming %d)", f.TotalFrames, f.PrimingFrames)
	case f.TotalFrames > 0 && f.PrimingFrames > f.TotalFrames:
		return fmt.Errorf("priming frames %d exceed stream length %d", f.PrimingFrames, f.TotalFrames)
	}

	switch f.Encoding {
	case EncodingS16LE, EncodingS32LE, EncodingF32LE, EncodingFloat32:
		return nil
	default:
		return fmt.Errorf("unsupported sample encoding %s", f.Encoding)
	}
}

// Chunk is one batch of frames returned by NativeSource.Pull.
// Depending on the negotiated Encoding either Data or Samples carries the payload.
type Chunk struct {
	Frames  int
	Data    []byte
	Samples []float32
}

// check reports whether the payload size agrees with the negotiated frame layout.
func (c Chunk) check(f Format) error {
	if c.Frames < 0 {
		return fmt.Errorf("%w: negative frame count %d", ErrFormat, c.Frames)
	}

	want := c.Frames * f.Channels
	if f.Encoding == EncodingFloat32 {
		if len(c.Samples) != want {
			return fmt.Errorf("%w: %d frames carry %d samples, want %d",
				ErrFormat, c.Frames, len(c.Samples), want)
		}
		return nil
	}

	if bps := f.Encoding.BytesPerSample(); len(c.Data) != want*bps {
		return fmt.Errorf("%w: %d frames carry %d bytes, want %d",
			ErrFormat, c.Frames, len(c.Data), want*bps)
	}

	return nil
}

// NativeSource is the platform codec session a FrameReader pulls from.
//
// Implementations need not be safe for concurrent use; a FrameReader never
// calls them from more than one goroutine.
type NativeSource interface {
	// Format negotiates and reports the PCM layout the source delivers.
	Format() (Format, error)
	// Pull decodes at most budget frames. A chunk with zero frames means end of stream.
	Pull(budget int) (Chunk, error)
	// SeekTime moves the source to native time t (in Format.TimeScale units) and
	// returns the native frame index it actually landed on, which never exceeds
	// the frame t refers to.
	SeekTime(t int64) (int64, error)
	// Close releases the native session.
	Close() error
}
