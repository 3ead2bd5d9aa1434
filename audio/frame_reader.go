// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ik5/audiodecoder/utils"
)

// State is the lifecycle state of a FrameReader.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateReading
	StateSeeking
	// StateDead is terminal: the native source broke its contract or failed.
	// Only Close changes it.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateReading:
		return "reading"
	case StateSeeking:
		return "seeking"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type readerConfig struct {
	logger   *slog.Logger
	channels int
}

// Option configures a FrameReader at Open.
type Option func(*readerConfig)

// WithLogger sets the logger used for seek failures and fatal errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *readerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOutputChannels sets the number of channels delivered to callers.
// Zero keeps the native channel count.
func WithOutputChannels(n int) Option {
	return func(c *readerConfig) {
		c.channels = n
	}
}

// FrameReader adapts the arbitrarily sized chunks of a NativeSource to
// arbitrarily sized caller reads, keeping the undelivered tail of a chunk
// between calls. Samples are delivered as interleaved float32 in [-1, 1].
//
// The zero value is a closed reader. A FrameReader is not safe for
// concurrent use.
type FrameReader struct {
	src    NativeSource
	format Format
	conv   TimeConverter
	mapper ChannelMapper
	left   *leftover
	logger *slog.Logger

	scratch []float32 // one chunk in native channels
	mapped  []float32 // one chunk in output channels
	planar  []float32

	numFrames int64
	position  int64
	eof       bool
	state     State
}

// Open negotiates the format of src, derives the stream length and seeks to
// frame zero so that priming frames are skipped. On failure src is closed
// and the returned error wraps ErrOpen. An open reader is closed first.
func (r *FrameReader) Open(src NativeSource, opts ...Option) error {
	if r.state != StateClosed {
		_ = r.Close()
	}

	cfg := readerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	r.logger = cfg.logger

	if cfg.channels < 0 {
		_ = src.Close()
		return fmt.Errorf("%w: invalid output channel count %d", ErrOpen, cfg.channels)
	}

	format, err := src.Format()
	if err == nil {
		err = format.validate()
	}
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}

	conv, err := NewTimeConverter(format.SampleRate, format.TimeScale)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}

	out := cfg.channels
	if out == 0 {
		out = format.Channels
	}

	r.src = src
	r.format = format
	r.conv = conv
	r.mapper = NewChannelMapper(format.Channels, out)
	r.left = newLeftover(format.MaxChunkFrames, out)
	r.scratch = make([]float32, format.MaxChunkFrames*format.Channels)
	r.mapped = make([]float32, format.MaxChunkFrames*out)
	r.numFrames = 0
	if format.TotalFrames > 0 {
		r.numFrames = format.TotalFrames - format.PrimingFrames
	}
	r.position = 0
	r.eof = false
	r.state = StateOpen

	if _, err := r.Seek(0); err != nil {
		_ = r.Close()
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}

	r.logger.Debug("native source opened",
		slog.Int("sampleRate", format.SampleRate),
		slog.Int("channels", format.Channels),
		slog.Int("outputChannels", out),
		slog.String("encoding", format.Encoding.String()),
		slog.Int64("totalFrames", format.TotalFrames),
		slog.Int64("primingFrames", format.PrimingFrames),
	)

	return nil
}

func (r *FrameReader) ready() error {
	switch r.state {
	case StateClosed:
		return ErrNotOpen
	case StateDead:
		return ErrDead
	default:
		return nil
	}
}

// fail moves the reader to StateDead.
func (r *FrameReader) fail(err error) error {
	r.state = StateDead
	r.logger.Error("decoder is dead",
		slog.Int64("position", r.position),
		slog.Any("error", err),
	)

	return err
}

// Seek moves the stream to frame and returns the accepted position.
// Targets outside [0, NumFrames()) are rejected with ErrSeekOutOfRange and
// the position is kept. A failing native seek is not fatal: the error wraps
// ErrSeek and the position stays at the last known good frame.
func (r *FrameReader) Seek(frame int64) (int64, error) {
	if err := r.ready(); err != nil {
		return r.position, err
	}

	if frame < 0 || (r.numFrames > 0 && frame >= r.numFrames) {
		return r.position, fmt.Errorf("%w: %d not in [0, %d)", ErrSeekOutOfRange, frame, r.numFrames)
	}

	r.state = StateSeeking
	target := frame + r.format.PrimingFrames

	landed, err := r.src.SeekTime(r.conv.FramesToNative(target))
	if err != nil {
		r.state = StateOpen
		r.logger.Warn("native seek failed",
			slog.Int64("target", frame),
			slog.Int64("position", r.position),
			slog.Any("error", err),
		)

		return r.position, fmt.Errorf("%w: %w", ErrSeek, err)
	}

	if landed < 0 || landed > target {
		return r.position, r.fail(fmt.Errorf("%w: seek to frame %d landed on %d", ErrFormat, target, landed))
	}

	r.left.reset()
	r.eof = false

	// coarse native seeks land early; drop frames up to the target
	if skip := target - landed; skip > 0 {
		if _, err := r.fill(nil, skip); err != nil {
			return r.position, err
		}
	}

	r.position = frame
	r.state = StateOpen

	return frame, nil
}

// Read fills dst with interleaved frames and returns the number of frames
// delivered. A short count means the end of the stream was reached; it is
// not reported as an error. dst must hold a whole number of frames.
func (r *FrameReader) Read(dst []float32) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	out := r.mapper.Out()
	if len(dst)%out != 0 {
		return 0, ErrInvalidDstSize
	}

	return r.read(dst, len(dst)/out)
}

// ReadPlanar fills one slice per output channel and returns the number of
// frames delivered. The frame count is the length of the shortest slice.
func (r *FrameReader) ReadPlanar(dst [][]float32) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	out := r.mapper.Out()
	if len(dst) != out {
		return 0, ErrInvalidDstSize
	}

	frames := len(dst[0])
	for _, ch := range dst[1:] {
		frames = min(frames, len(ch))
	}

	if cap(r.planar) < frames*out {
		r.planar = make([]float32, frames*out)
	}
	buf := r.planar[:frames*out]

	n, err := r.read(buf, frames)
	for f := range n {
		for c := range out {
			dst[c][f] = buf[f*out+c]
		}
	}

	return n, err
}

func (r *FrameReader) read(dst []float32, frames int) (int, error) {
	if frames == 0 {
		return 0, nil
	}

	r.state = StateReading
	n, err := r.fill(dst, int64(frames))
	r.position += int64(n)

	if r.state == StateReading {
		r.state = StateOpen
	}

	return n, err
}

// fill delivers up to frames frames into dst, draining the leftover buffer
// before pulling new chunks. A nil dst discards the frames.
func (r *FrameReader) fill(dst []float32, frames int64) (int, error) {
	out := r.mapper.Out()
	budget := r.format.MaxChunkFrames

	var delivered int64

	for delivered < frames {
		var d []float32
		if dst != nil {
			d = dst[delivered*int64(out):]
		}

		delivered += int64(r.left.drain(d, int(min(frames-delivered, int64(r.left.capacity())))))
		if delivered == frames || r.eof {
			break
		}

		chunk, err := r.src.Pull(budget)
		if err != nil {
			return int(delivered), r.fail(fmt.Errorf("%w: %w", ErrDecode, err))
		}
		if chunk.Frames == 0 {
			r.eof = true
			break
		}
		if chunk.Frames > budget {
			return int(delivered), r.fail(fmt.Errorf("%w: chunk of %d frames exceeds budget %d",
				ErrFormat, chunk.Frames, budget))
		}
		if err := chunk.check(r.format); err != nil {
			return int(delivered), r.fail(err)
		}

		samples := r.convert(chunk)

		take := int(min(frames-delivered, int64(chunk.Frames)))
		if dst != nil {
			copy(dst[delivered*int64(out):], samples[:take*out])
		}
		delivered += int64(take)

		if take < chunk.Frames {
			if err := r.left.store(samples[take*out:]); err != nil {
				return int(delivered), r.fail(err)
			}
		}
	}

	return int(delivered), nil
}

// convert turns a validated chunk into canonical samples in output channels.
// The returned slice is only valid until the next call.
func (r *FrameReader) convert(c Chunk) []float32 {
	native := c.Frames * r.format.Channels

	var samples []float32
	switch r.format.Encoding {
	case EncodingFloat32:
		samples = c.Samples
	case EncodingS16LE:
		utils.DecodeS16LE(r.scratch[:native], c.Data)
		samples = r.scratch[:native]
	case EncodingS32LE:
		utils.DecodeS32LE(r.scratch[:native], c.Data)
		samples = r.scratch[:native]
	case EncodingF32LE:
		utils.DecodeF32LE(r.scratch[:native], c.Data)
		samples = r.scratch[:native]
	}

	if r.mapper.Identity() {
		return samples
	}

	mapped := r.mapped[:c.Frames*r.mapper.Out()]
	r.mapper.Map(mapped, samples, c.Frames)

	return mapped
}

// Close releases the native source exactly once. It is safe to call on a
// closed or dead reader. A failing release is reported wrapped in ErrClose,
// but the reader is closed regardless.
func (r *FrameReader) Close() error {
	src := r.src

	r.src = nil
	r.left = nil
	r.scratch, r.mapped, r.planar = nil, nil, nil
	r.state = StateClosed

	if src == nil {
		return nil
	}

	if err := src.Close(); err != nil {
		r.logger.Warn("native source release failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrClose, err)
	}

	return nil
}

func (r *FrameReader) State() State { return r.state }

// Format returns the negotiated native format.
func (r *FrameReader) Format() Format { return r.format }

// Position returns the index of the next frame Read delivers.
func (r *FrameReader) Position() int64 { return r.position }

// SampleRate in Hz, or 0 before Open.
func (r *FrameReader) SampleRate() int { return r.format.SampleRate }

// Channels returns the number of channels delivered to callers.
func (r *FrameReader) Channels() int {
	if r.state == StateClosed {
		return 0
	}
	return r.mapper.Out()
}

// NumFrames returns the stream length in frames, priming excluded.
// Zero means the native source did not report a length.
func (r *FrameReader) NumFrames() int64 {
	if r.state == StateClosed {
		return 0
	}
	return r.numFrames
}

// NumSamples returns the number of samples across all output channels.
func (r *FrameReader) NumSamples() int64 {
	return r.NumFrames() * int64(r.Channels())
}

func (r *FrameReader) Duration() time.Duration {
	if r.state == StateClosed {
		return 0
	}
	return r.conv.FramesToDuration(r.numFrames)
}
