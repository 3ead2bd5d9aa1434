// SPDX-License-Identifier: EPL-2.0

// Package mpeg decodes MP3 files with github.com/hajimehoshi/go-mp3 and AAC
// in M4A containers with github.com/llehouerou/go-faad2, whose 16-bit
// output the AAC source hands over as float32.
//
// The decoder always delivers two channels:
//
//	dec := &mpeg.Decoder{}
//	if err := dec.Open("song.mp3"); err != nil {
//	    return err
//	}
//	defer dec.Close()
//
//	buf := make([]float32, 2*4096)
//	for {
//	    n, err := dec.Read(buf)
//	    if err != nil || n == 0 {
//	        break
//	    }
//	    // process buf[:2*n]
//	}
//
// # Limitations
//
// The mp2 extension is advertised so that the registry routes MPEG audio
// here, but only layer III streams decode. An .mp2 file holding MPEG-1
// layer II audio is rejected at Open with an error wrapping
// mp3src.ErrUnsupportedLayer, as is layer I. Files with no frame header at
// all fail with go-mp3's own error.
//
// # Gapless Playback
//
// The encoder delay in a LAME or Xing "Info" tag, plus the 529 frame
// decoder delay, is skipped as priming. Streams without the tag start at
// the first decoded frame.
package mpeg
