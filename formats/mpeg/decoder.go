// SPDX-License-Identifier: EPL-2.0

package mpeg

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/internal/aacsrc"
	"github.com/ik5/audiodecoder/internal/mp3src"
)

var _ audio.Decoder = (*Decoder)(nil)

// OutputChannels is the fixed channel count this backend delivers.
const OutputChannels = 2

// Decoder decodes MPEG audio (layer III) and AAC in M4A. Output is always
// stereo: mono streams are duplicated and wider layouts keep their first
// two channels.
type Decoder struct {
	audio.FrameReader

	Logger *slog.Logger
}

func (d *Decoder) Open(filename string) error {
	src, err := openSource(filename)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", audio.ErrOpen, filename, err)
	}

	opts := []audio.Option{audio.WithOutputChannels(OutputChannels)}
	if d.Logger != nil {
		opts = append(opts, audio.WithLogger(d.Logger.With(slog.String("file", filename))))
	}

	return d.FrameReader.Open(src, opts...)
}

func openSource(filename string) (audio.NativeSource, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".mp2":
		src, err := mp3src.OpenFile(filename)
		if err != nil {
			return nil, err
		}
		return src, nil

	case ".m4a":
		track, closer, err := aacsrc.OpenFile(filename)
		if err != nil {
			return nil, err
		}

		src, err := aacsrc.New(track, closer, audio.EncodingFloat32)
		if err != nil {
			return nil, err
		}
		return src, nil

	default:
		return nil, fmt.Errorf("%w %q", audio.ErrUnsupportedExtension, ext)
	}
}

func (*Decoder) SupportedFileExtensions() []string {
	return []string{"m4a", "mp3", "mp2"}
}
