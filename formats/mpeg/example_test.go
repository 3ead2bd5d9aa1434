// SPDX-License-Identifier: EPL-2.0

package mpeg_test

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/formats/mpeg"
	"github.com/ik5/audiodecoder/formats/wav"
)

// Example shows that the decoder always delivers stereo and rejects
// extensions it does not handle.
func Example() {
	dec := &mpeg.Decoder{}
	fmt.Println("extensions:", dec.SupportedFileExtensions())
	fmt.Println("channels:", mpeg.OutputChannels)

	err := dec.Open("song.ogg")
	fmt.Println("unsupported:", errors.Is(err, audio.ErrUnsupportedExtension))

	// Output:
	// extensions: [m4a mp3 mp2]
	// channels: 2
	// unsupported: true
}

// ExampleDecoder_Open converts an MP3 file to a 16 kHz WAV file.
func ExampleDecoder_Open() {
	dec := &mpeg.Decoder{}
	if err := dec.Open("input.mp3"); err != nil {
		log.Fatal(err)
	}
	defer dec.Close()

	rs, err := audio.NewResampler(dec, 16000)
	if err != nil {
		log.Fatal(err)
	}

	out, err := os.Create("output.wav")
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	w, err := wav.NewWriter(out, rs.SampleRate(), rs.Channels())
	if err != nil {
		log.Fatal(err)
	}

	buf := make([]float32, 4096*rs.Channels())
	for {
		n, err := rs.Read(buf)
		if err != nil {
			log.Fatal(err)
		}
		if n == 0 {
			break
		}
		if err := w.WriteFloat(buf[:n*rs.Channels()]); err != nil {
			log.Fatal(err)
		}
	}

	if err := w.Close(); err != nil {
		log.Fatal(err)
	}
}
