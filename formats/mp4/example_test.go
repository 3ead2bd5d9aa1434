// SPDX-License-Identifier: EPL-2.0

package mp4_test

import (
	"errors"
	"fmt"
	"log"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/formats/mp4"
)

// Example shows the extensions the decoder registers for and how a failed
// open is reported.
func Example() {
	dec := &mp4.Decoder{}
	fmt.Println("extensions:", dec.SupportedFileExtensions())

	err := dec.Open("testdata/missing.m4a")
	fmt.Println("open error:", errors.Is(err, audio.ErrOpen))

	// Output:
	// extensions: [mp4 m4a aac]
	// open error: true
}

// ExampleDecoder_Open decodes an M4A file downmixed to mono.
func ExampleDecoder_Open() {
	dec := &mp4.Decoder{OutputChannels: 1}
	if err := dec.Open("input.m4a"); err != nil {
		log.Fatal(err)
	}
	defer dec.Close()

	// frames covered by the edit list are already skipped
	fmt.Printf("%d Hz, %d frames, %v\n", dec.SampleRate(), dec.NumFrames(), dec.Duration())

	buf := make([]float32, 4096)
	for {
		n, err := dec.Read(buf)
		if err != nil {
			log.Fatal(err)
		}
		if n == 0 {
			break
		}
		// process buf[:n]
	}
}
