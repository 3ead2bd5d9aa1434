// SPDX-License-Identifier: EPL-2.0

// Package audio provides the decoding core shared by every format backend.
//
// A backend wraps a platform or library codec session in a NativeSource.
// The FrameReader then turns the source's arbitrarily sized chunks into
// exact, caller sized reads of interleaved float32 frames:
//
//	var r audio.FrameReader
//	if err := r.Open(src, audio.WithLogger(logger)); err != nil {
//	    return err // src is already closed
//	}
//	defer r.Close()
//
//	buf := make([]float32, 4096*r.Channels())
//	for {
//	    n, err := r.Read(buf)
//	    if err != nil {
//	        return err
//	    }
//	    if n == 0 {
//	        break // end of stream
//	    }
//	    // process buf[:n*r.Channels()]
//	}
//
// # Sample Format
//
// Samples are float32 in the range [-1.0, 1.0], interleaved by frame.
// Integer native encodings are scaled by 1/32768 (16-bit) or 1/2^31 (32-bit).
//
// # Positions and Seeking
//
// Positions are frame indices from the first audible frame. Encoder priming
// frames reported by the source are skipped at open and after every seek
// and are not counted by NumFrames, NumSamples or Duration.
//
// Native sources may seek coarsely. SeekTime reports the frame it landed
// on and the reader decodes and discards the difference, so Seek(f)
// followed by Read always starts at frame f.
//
// # Errors
//
// Every error wraps one of the sentinels in errors.go together with the
// native cause. ErrFormat and ErrDecode are fatal: the reader moves to
// StateDead and every call except Close returns ErrDead. A failing native
// seek (ErrSeek) is not fatal. Reaching the end of the stream is not an
// error; Read returns zero frames.
//
// # Resampling
//
// Resampler wraps any FrameSource, including a FrameReader or Decoder, and
// delivers the same channels at another rate:
//
//	rs, err := audio.NewResampler(dec, 8000)
//
// # Registry
//
// Registry maps file extensions to Decoder factories:
//
//	registry := audio.NewRegistry()
//	registry.Register(func() audio.Decoder { return &mpeg.Decoder{} })
//	dec, err := registry.Open("song.mp3")
package audio
