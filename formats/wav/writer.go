// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/audiodecoder/utils"
)

const (
	bitDepth  = 16
	formatPCM = 1
)

// Writer streams interleaved frames into a 16-bit PCM WAV file. The header
// sizes are patched on Close, so the destination must be seekable.
type Writer struct {
	enc      *wav.Encoder
	buf      *audio.IntBuffer
	channels int
	frames   int64
	closed   bool
}

func NewWriter(w io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	return &Writer{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, channels, formatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		channels: channels,
	}, nil
}

// WriteFloat clamps and scales samples in [-1, 1] to 16-bit PCM.
func (w *Writer) WriteFloat(samples []float32) error {
	if err := w.check(len(samples)); err != nil {
		return err
	}

	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(utils.Float32ToInt16(s)))
	}

	return w.flush(len(samples))
}

func (w *Writer) WriteInt16(samples []int16) error {
	if err := w.check(len(samples)); err != nil {
		return err
	}

	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}

	return w.flush(len(samples))
}

func (w *Writer) check(n int) error {
	if w.closed {
		return ErrWriterClosed
	}
	if n%w.channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, n, w.channels)
	}

	return nil
}

func (w *Writer) flush(n int) error {
	if n == 0 {
		return nil
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.frames += int64(n / w.channels)

	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int64 { return w.frames }

// Close finalises the header. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// WriteWAV16 writes interleaved 16-bit PCM as a complete WAV file.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	wr, err := NewWriter(w, sampleRate, channels)
	if err != nil {
		return err
	}

	if err := wr.WriteInt16(samples); err != nil {
		return err
	}

	return wr.Close()
}
