// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"

	"github.com/ik5/audiodecoder/utils"
)

// FrameSource delivers interleaved frames the way FrameReader does: Read
// returns whole frames and zero frames at the end of the stream.
type FrameSource interface {
	Read(dst []float32) (int, error)
	SampleRate() int
	Channels() int
	NumFrames() int64
}

const resamplerBatchFrames = 1024

// Resampler converts a FrameSource to another sample rate using cubic
// interpolation. The channel layout is preserved. A one-pole low-pass filter
// runs on the input when downsampling.
type Resampler struct {
	src      FrameSource
	srcRate  int
	dstRate  int
	channels int

	// frames[1] is source frame cur; frames[0] precedes it
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool
	cur      int64
	out      int64 // output frames produced

	batch    []float32
	batchLen int
	batchIdx int
	eof      bool

	useFilter   bool
	filterAlpha float32
	filterState []float32
}

func NewResampler(src FrameSource, dstRate int) (*Resampler, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrNotOpen
	}
	if dstRate <= 0 || src.SampleRate() <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidSampleRate, src.SampleRate(), dstRate)
	}

	r := &Resampler{
		src:         src,
		srcRate:     src.SampleRate(),
		dstRate:     dstRate,
		channels:    channels,
		batch:       make([]float32, resamplerBatchFrames*channels),
		filterState: make([]float32, channels),
	}

	if r.srcRate > r.dstRate {
		r.useFilter = true
		r.filterAlpha = 0.5
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r, nil
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

// NumFrames estimates the output length from the source length. Zero means
// unknown.
func (r *Resampler) NumFrames() int64 {
	n := r.src.NumFrames()
	if n <= 0 {
		return 0
	}

	return (n*int64(r.dstRate) + int64(r.srcRate) - 1) / int64(r.srcRate)
}

// next copies the next source frame into dst. It reports false at the end
// of the source.
func (r *Resampler) next(dst []float32) (bool, error) {
	if r.batchIdx == r.batchLen {
		if r.eof {
			return false, nil
		}

		n, err := r.src.Read(r.batch)
		if err != nil {
			return false, err
		}
		if n == 0 {
			r.eof = true
			return false, nil
		}

		r.batchLen, r.batchIdx = n, 0
	}

	copy(dst, r.batch[r.batchIdx*r.channels:(r.batchIdx+1)*r.channels])
	r.batchIdx++

	if r.useFilter {
		for c := range dst {
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}

	return true, nil
}

func (r *Resampler) prime() error {
	r.primed = true

	// the filter starts settled on the first frame
	filter := r.useFilter
	r.useFilter = false
	ok, err := r.next(r.frames[1])
	r.useFilter = filter
	if err != nil || !ok {
		return err
	}
	r.hasFrame[1] = true

	if filter {
		copy(r.filterState, r.frames[1])
	}
	copy(r.frames[0], r.frames[1])
	r.hasFrame[0] = true

	for i := 2; i < 4; i++ {
		ok, err := r.next(r.frames[i])
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		r.hasFrame[i] = true
	}

	return nil
}

// advance shifts the window by one source frame.
func (r *Resampler) advance() error {
	r.frames[0], r.frames[1], r.frames[2], r.frames[3] = r.frames[1], r.frames[2], r.frames[3], r.frames[0]
	r.hasFrame[0], r.hasFrame[1], r.hasFrame[2] = r.hasFrame[1], r.hasFrame[2], r.hasFrame[3]
	r.cur++

	r.hasFrame[3] = false
	if !r.hasFrame[2] {
		return nil
	}

	ok, err := r.next(r.frames[3])
	if err != nil {
		return err
	}
	r.hasFrame[3] = ok

	return nil
}

// Read fills dst with resampled interleaved frames and returns the number of
// frames written. Zero frames means the source is exhausted.
func (r *Resampler) Read(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	want := len(dst) / r.channels
	written := 0

	for written < want {
		// output frame out sits at source position out*srcRate/dstRate
		num := r.out * int64(r.srcRate)
		base := num / int64(r.dstRate)

		for r.cur < base && r.hasFrame[1] {
			if err := r.advance(); err != nil {
				return written, err
			}
		}

		if !r.hasFrame[1] {
			break
		}

		y2, y3 := r.frames[1], r.frames[1]
		if r.hasFrame[2] {
			y2, y3 = r.frames[2], r.frames[2]
		}
		if r.hasFrame[3] {
			y3 = r.frames[3]
		}

		alpha := float32(num%int64(r.dstRate)) / float32(r.dstRate)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.frames[0][c], r.frames[1][c], y2[c], y3[c], alpha)
		}

		written++
		r.out++
	}

	return written, nil
}
