// SPDX-License-Identifier: EPL-2.0

// Package audiodecoder decodes compressed audio files into interleaved
// float32 frames through one pull based interface.
//
// # Supported Formats
//
//   - MP4, M4A and raw ADTS AAC via formats/mp4 (16-bit PCM native output)
//   - MP3 and M4A via formats/mpeg (float output, always stereo)
//   - Ogg Vorbis via formats/vorbis
//   - FLAC via formats/flac
//
// # Quick Start
//
//	dec, err := audiodecoder.Open("song.mp3")
//	if err != nil {
//	    return err
//	}
//	defer dec.Close()
//
//	buf := make([]float32, 4096*dec.Channels())
//	for {
//	    n, err := dec.Read(buf)
//	    if err != nil {
//	        return err
//	    }
//	    if n == 0 {
//	        break
//	    }
//	    // process buf[:n*dec.Channels()]
//	}
//
// Open selects a backend by file extension using DefaultRegistry. Build an
// audio.Registry directly to add or replace backends.
//
// ReadAllInt16 drains a decoder into 16-bit PCM, which pairs with
// wav.WriteWAV16 for dumping decoded audio.
//
// See the audio subpackage for the reading, seeking and error model.
package audiodecoder
