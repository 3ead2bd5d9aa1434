// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg Vorbis audio file decoding.
//
// This package uses github.com/jfreymuth/oggvorbis to decode Ogg Vorbis files.
// Vorbis decodes natively to float32, so samples reach the caller unscaled.
//
//	dec := &vorbis.Decoder{}
//	if err := dec.Open("audio.ogg"); err != nil {
//	    // Handle error
//	}
//	defer dec.Close()
//
//	buf := make([]float32, 4096*dec.Channels())
//	n, err := dec.Read(buf)
//
// Seeking is sample exact.
package vorbis
