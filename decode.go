// SPDX-License-Identifier: EPL-2.0

package audiodecoder

import (
	"fmt"
	"log/slog"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/formats/flac"
	"github.com/ik5/audiodecoder/formats/mp4"
	"github.com/ik5/audiodecoder/formats/mpeg"
	"github.com/ik5/audiodecoder/formats/vorbis"
	"github.com/ik5/audiodecoder/utils"
)

// DefaultRegistry returns a registry with every bundled backend, logging to
// slog.Default and keeping each stream's channel layout.
func DefaultRegistry() *audio.Registry {
	return NewRegistry(nil, 0)
}

// NewRegistry returns a registry with every bundled backend. Decoders it
// creates log to logger and deliver outputChannels channels; zero keeps the
// stream layout. The mpeg backend always delivers stereo.
//
// The mpeg backend is registered after mp4, so it serves the m4a extension
// both advertise.
func NewRegistry(logger *slog.Logger, outputChannels int) *audio.Registry {
	r := audio.NewRegistry()

	r.Register(func() audio.Decoder {
		return &mp4.Decoder{Logger: logger, OutputChannels: outputChannels}
	})
	r.Register(func() audio.Decoder {
		return &mpeg.Decoder{Logger: logger}
	})
	r.Register(func() audio.Decoder {
		return &vorbis.Decoder{Logger: logger, OutputChannels: outputChannels}
	})
	r.Register(func() audio.Decoder {
		return &flac.Decoder{Logger: logger, OutputChannels: outputChannels}
	})

	return r
}

// Open picks a backend by the extension of filename and opens it.
func Open(filename string) (audio.Decoder, error) {
	return DefaultRegistry().Open(filename)
}

// ReadAllInt16 drains r from its current position and returns the
// interleaved frames as 16-bit PCM. bufferFrames sets the read size.
// Any audio.Decoder or audio.Resampler can be drained.
func ReadAllInt16(r audio.FrameSource, bufferFrames int) ([]int16, error) {
	channels := r.Channels()
	if channels <= 0 {
		return nil, audio.ErrNotOpen
	}
	if bufferFrames <= 0 {
		return nil, fmt.Errorf("%w: buffer of %d frames", audio.ErrInvalidDstSize, bufferFrames)
	}

	// length is only a hint; unknown streams grow as needed
	pcm16 := make([]int16, 0, max(r.NumFrames(), 0)*int64(channels))
	buf := make([]float32, bufferFrames*channels)

	for {
		n, err := r.Read(buf)
		for _, x := range buf[:n*channels] {
			pcm16 = append(pcm16, utils.Float32ToInt16(x))
		}
		if err != nil {
			return pcm16, err
		}
		if n == 0 {
			break
		}
	}

	return pcm16, nil
}
