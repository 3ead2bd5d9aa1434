// SPDX-License-Identifier: EPL-2.0

// Package mp4 decodes AAC audio from MP4/M4A containers and raw ADTS
// (.aac) streams.
//
// Containers are indexed with github.com/abema/go-mp4 (ISO BMFF) or
// github.com/bluenviron/mediacommon (ADTS) and the access units are decoded
// to 16-bit integer PCM by github.com/llehouerou/go-faad2, a WebAssembly
// build of FAAD2 run by wazero.
//
//	dec := &mp4.Decoder{}
//	if err := dec.Open("song.m4a"); err != nil {
//	    return err
//	}
//	defer dec.Close()
//
//	buf := make([]float32, 4096*dec.Channels())
//	n, err := dec.Read(buf)
//
// # Gapless Playback
//
// The edit list of an MP4 track marks the encoder delay. Those frames are
// skipped and excluded from NumFrames and Duration. ADTS streams carry no
// such information and start at the first decoded frame.
//
// # Seeking
//
// AAC can only restart decoding at an access unit boundary. Seek lands on
// the preceding boundary and decodes forward to the exact frame.
package mp4
