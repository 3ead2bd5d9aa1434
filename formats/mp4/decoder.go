// SPDX-License-Identifier: EPL-2.0

package mp4

import (
	"fmt"
	"log/slog"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/internal/aacsrc"
)

var _ audio.Decoder = (*Decoder)(nil)

// Decoder decodes the AAC family. The native session produces 16-bit
// integer PCM which is scaled to float32 on delivery.
//
// The zero value is ready to Open.
type Decoder struct {
	audio.FrameReader

	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// OutputChannels overrides the delivered channel count. Zero keeps the
	// stream's own layout.
	OutputChannels int
}

func (d *Decoder) Open(filename string) error {
	track, closer, err := aacsrc.OpenFile(filename)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", audio.ErrOpen, filename, err)
	}

	src, err := aacsrc.New(track, closer, audio.EncodingS16LE)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", audio.ErrOpen, filename, err)
	}

	opts := []audio.Option{audio.WithOutputChannels(d.OutputChannels)}
	if d.Logger != nil {
		opts = append(opts, audio.WithLogger(d.Logger.With(slog.String("file", filename))))
	}

	return d.FrameReader.Open(src, opts...)
}

func (*Decoder) SupportedFileExtensions() []string {
	return []string{"mp4", "m4a", "aac"}
}
