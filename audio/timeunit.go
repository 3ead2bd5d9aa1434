// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// TimeConverter maps between frame indices, native time units and seconds
// for a fixed sample rate. All conversions truncate toward zero, so
// NativeToFrames(FramesToNative(f)) never exceeds f.
type TimeConverter struct {
	sampleRate  int64
	unitsPerSec int64
}

func NewTimeConverter(sampleRate int, unitsPerSecond int64) (TimeConverter, error) {
	if sampleRate <= 0 {
		return TimeConverter{}, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if unitsPerSecond <= 0 {
		return TimeConverter{}, fmt.Errorf("invalid time scale %d", unitsPerSecond)
	}

	return TimeConverter{sampleRate: int64(sampleRate), unitsPerSec: unitsPerSecond}, nil
}

func (c TimeConverter) SampleRate() int       { return int(c.sampleRate) }
func (c TimeConverter) UnitsPerSecond() int64 { return c.unitsPerSec }

func (c TimeConverter) FramesToNative(frame int64) int64 {
	return frame * c.unitsPerSec / c.sampleRate
}

func (c TimeConverter) NativeToFrames(t int64) int64 {
	return t * c.sampleRate / c.unitsPerSec
}

func (c TimeConverter) FramesToSeconds(frame int64) float64 {
	return float64(frame) / float64(c.sampleRate)
}

func (c TimeConverter) NativeToSeconds(t int64) float64 {
	return float64(t) / float64(c.unitsPerSec)
}

// SecondsToNative truncates toward zero.
func (c TimeConverter) SecondsToNative(sec float64) int64 {
	return int64(sec * float64(c.unitsPerSec))
}

// FramesToDuration truncates to whole nanoseconds.
func (c TimeConverter) FramesToDuration(frame int64) time.Duration {
	sec := frame / c.sampleRate
	rem := frame % c.sampleRate

	return time.Duration(sec)*time.Second + time.Duration(rem*int64(time.Second)/c.sampleRate)
}
