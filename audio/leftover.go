// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// leftover holds the undelivered tail of one decoded chunk between reads.
// Frames are stored as canonical interleaved float32 samples.
//
// Invariant: 0 <= offset <= length <= len(buf).
type leftover struct {
	buf      []float32
	channels int
	offset   int // samples already drained
	length   int // samples stored
}

func newLeftover(capacityFrames, channels int) *leftover {
	return &leftover{
		buf:      make([]float32, capacityFrames*channels),
		channels: channels,
	}
}

// capacity in frames.
func (l *leftover) capacity() int { return len(l.buf) / l.channels }

// remaining returns the number of frames not yet drained.
func (l *leftover) remaining() int { return (l.length - l.offset) / l.channels }

// store replaces the buffer contents with frames. Storing while frames are
// still pending is a bug in the read loop and panics.
func (l *leftover) store(frames []float32) error {
	if l.offset != l.length {
		panic(fmt.Sprintf("audio: leftover store with %d frames still pending", l.remaining()))
	}
	if len(frames)%l.channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrFormat, len(frames), l.channels)
	}
	if len(frames) > len(l.buf) {
		return fmt.Errorf("%w: %d frames, capacity %d",
			ErrCapacityExceeded, len(frames)/l.channels, l.capacity())
	}

	l.length = copy(l.buf, frames)
	l.offset = 0

	return nil
}

// drain copies up to maxFrames frames into dst and returns the frame count.
// A nil dst discards the frames.
func (l *leftover) drain(dst []float32, maxFrames int) int {
	n := min(maxFrames, l.remaining())
	if n <= 0 {
		return 0
	}

	samples := n * l.channels
	if dst != nil {
		copy(dst[:samples], l.buf[l.offset:l.offset+samples])
	}
	l.offset += samples

	if l.offset == l.length {
		l.offset, l.length = 0, 0
	}

	return n
}

func (l *leftover) reset() {
	l.offset, l.length = 0, 0
}
