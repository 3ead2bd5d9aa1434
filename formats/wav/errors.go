// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrInvalidChannels = errors.New("channel count must be positive")
	ErrPartialFrame    = errors.New("sample count must be multiple of channels")
	ErrWriterClosed    = errors.New("wav writer is closed")
)
