// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC files with github.com/mewkiz/flac.
//
// Samples of any bit depth are scaled to float32 in [-1, 1). Seeking uses
// the stream's seek table and decodes forward from the start of the
// containing FLAC frame.
package flac
