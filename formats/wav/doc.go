// SPDX-License-Identifier: EPL-2.0

// Package wav writes decoded audio as 16-bit PCM WAV files using
// github.com/go-audio/wav.
//
//	out, _ := os.Create("output.wav")
//	defer out.Close()
//
//	w, err := wav.NewWriter(out, dec.SampleRate(), dec.Channels())
//	if err != nil {
//	    return err
//	}
//	buf := make([]float32, 4096*dec.Channels())
//	for {
//	    n, err := dec.Read(buf)
//	    if err != nil || n == 0 {
//	        break
//	    }
//	    if err := w.WriteFloat(buf[:n*dec.Channels()]); err != nil {
//	        return err
//	    }
//	}
//	return w.Close()
//
// Float samples are clamped to [-1, 1] and scaled by 32767.
package wav
