// SPDX-License-Identifier: EPL-2.0

package aacsrc

import "errors"

var (
	ErrNoAudioTrack   = errors.New("no AAC audio track")
	ErrEncrypted      = errors.New("encrypted tracks are not supported")
	ErrNoConfig       = errors.New("missing AudioSpecificConfig")
	ErrNoAccessUnits  = errors.New("stream has no access units")
	ErrBadSampleTable = errors.New("inconsistent sample table")
)
