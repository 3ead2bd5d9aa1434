// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize    = errors.New("dst size must be multiple of channels")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")

	// ErrOpen is returned when a native source cannot be created or refuses
	// format negotiation. Only Close may be called afterwards.
	ErrOpen = errors.New("open failed")
	// ErrSeek is returned when the native seek fails. The position is kept.
	ErrSeek = errors.New("seek failed")
	// ErrSeekOutOfRange is returned for seek targets outside [0, NumFrames).
	ErrSeekOutOfRange = errors.New("seek target out of range")
	// ErrFormat means the native source delivered data that does not match the
	// negotiated layout. The decoder is dead afterwards.
	ErrFormat = errors.New("native data inconsistent with negotiated format")
	// ErrCapacityExceeded means a chunk did not fit the leftover buffer.
	ErrCapacityExceeded = errors.New("leftover buffer capacity exceeded")
	// ErrDecode wraps a failing native pull. The decoder is dead afterwards.
	ErrDecode = errors.New("native decode failed")
	// ErrClose is returned when releasing the native source failed.
	// The decoder is closed regardless.
	ErrClose = errors.New("close failed")

	ErrNotOpen              = errors.New("decoder is not open")
	ErrDead                 = errors.New("decoder is dead after a fatal error")
	ErrUnsupportedExtension = errors.New("no decoder registered for extension")
)
