// SPDX-License-Identifier: EPL-2.0

// Command audiodecode decodes an audio file and optionally dumps it as a
// 16-bit PCM WAV file.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ik5/audiodecoder"
	"github.com/ik5/audiodecoder/audio"
	"github.com/ik5/audiodecoder/formats/wav"
)

// version is set via ldflags at build time
var version = "dev"

const bufferFrames = 4096

var errNothingToDo = errors.New("nothing to do: give an output file or --info")

type cli struct {
	Input    string           `arg:"" name:"input" help:"Audio file to decode" type:"existingfile"`
	Output   string           `arg:"" name:"output" help:"WAV file to write" optional:""`
	Start    int64            `help:"First frame to decode" default:"0"`
	Frames   int64            `help:"Number of output frames to write, 0 for all" default:"0"`
	Rate     int              `help:"Output sample rate in Hz, 0 keeps the stream rate" default:"0"`
	Channels int              `help:"Output channels, 0 keeps the stream layout (mp3 is always stereo)" default:"0" env:"AUDIODECODE_CHANNELS"`
	Info     bool             `help:"Print stream information"`
	LogLevel string           `help:"Log level" enum:"debug,info,warn,error" default:"warn" env:"AUDIODECODE_LOG_LEVEL"`
	Version  kong.VersionFlag `help:"Show version information"`
}

func main() {
	var c cli

	ctx := kong.Parse(&c,
		kong.Name("audiodecode"),
		kong.Description("Decode MP4/AAC, MP3, Ogg Vorbis and FLAC files to WAV."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(c.LogLevel),
	}))

	ctx.FatalIfErrorf(c.run(audiodecoder.NewRegistry(logger, c.Channels), os.Stdout))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}

	return level
}

func (c *cli) run(registry *audio.Registry, stdout io.Writer) (err error) {
	if c.Output == "" && !c.Info {
		return errNothingToDo
	}

	dec, err := registry.Open(c.Input)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dec.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if c.Info {
		printInfo(stdout, c.Input, dec)
	}

	if c.Output == "" {
		return nil
	}

	if c.Start > 0 {
		if _, err := dec.Seek(c.Start); err != nil {
			return err
		}
	}

	return c.dump(dec)
}

func printInfo(w io.Writer, name string, dec audio.Decoder) {
	fmt.Fprintf(w, "file:        %s\n", name)
	fmt.Fprintf(w, "sample rate: %d Hz\n", dec.SampleRate())
	fmt.Fprintf(w, "channels:    %d\n", dec.Channels())
	fmt.Fprintf(w, "frames:      %d\n", dec.NumFrames())
	fmt.Fprintf(w, "duration:    %s\n", dec.Duration())
}

func (c *cli) dump(dec audio.Decoder) (err error) {
	var src audio.FrameSource = dec
	if c.Rate > 0 && c.Rate != dec.SampleRate() {
		if src, err = audio.NewResampler(dec, c.Rate); err != nil {
			return err
		}
	}

	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w", cerr)
		}
	}()

	w, err := wav.NewWriter(f, src.SampleRate(), src.Channels())
	if err != nil {
		return err
	}

	channels := src.Channels()
	buf := make([]float32, bufferFrames*channels)
	remaining := c.Frames

	for c.Frames == 0 || remaining > 0 {
		want := bufferFrames
		if c.Frames > 0 {
			want = int(min(remaining, bufferFrames))
		}

		n, err := src.Read(buf[:want*channels])
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}

		if err := w.WriteFloat(buf[:n*channels]); err != nil {
			return err
		}
		remaining -= int64(n)
	}

	return w.Close()
}
