// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

// stubDecoder records Open and Close calls. Everything else comes from the
// embedded, never opened FrameReader.
type stubDecoder struct {
	FrameReader

	name    string
	exts    []string
	openErr error

	opened []string
	closed int
}

func (d *stubDecoder) Open(filename string) error {
	d.opened = append(d.opened, filename)
	return d.openErr
}

func (d *stubDecoder) Close() error {
	d.closed++
	return d.FrameReader.Close()
}

func (d *stubDecoder) SupportedFileExtensions() []string { return d.exts }

func stubFactory(d *stubDecoder) Factory {
	return func() Decoder { return d }
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	dec := &stubDecoder{name: "mpeg", exts: []string{"mp3", "m4a"}}
	registry.Register(stubFactory(dec))

	for _, ext := range []string{"mp3", "m4a", ".MP3", "M4A"} {
		f, ok := registry.Get(ext)
		if !ok {
			t.Fatalf("Registry.Get(%q) failed to retrieve registered decoder", ext)
		}
		if got := f().(*stubDecoder); got != dec {
			t.Errorf("Registry.Get(%q) returned %q, want %q", ext, got.name, dec.name)
		}
	}
}

func TestRegistry_GetNonExistent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	if _, ok := registry.Get("flac"); ok {
		t.Error("Registry.Get() returned ok=true for non-existent extension")
	}
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	mp4 := &stubDecoder{name: "mp4", exts: []string{"mp4", "m4a", "aac"}}
	mpeg := &stubDecoder{name: "mpeg", exts: []string{"m4a", "mp3", "mp2"}}

	registry.Register(stubFactory(mp4))
	registry.Register(stubFactory(mpeg))

	tests := []struct {
		ext  string
		want string
	}{
		{"mp4", "mp4"},
		{"aac", "mp4"},
		{"m4a", "mpeg"},
		{"mp3", "mpeg"},
		{"mp2", "mpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			f, ok := registry.Get(tt.ext)
			if !ok {
				t.Fatalf("Registry.Get(%q) ok = false", tt.ext)
			}
			if got := f().(*stubDecoder).name; got != tt.want {
				t.Errorf("Registry.Get(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestRegistry_Extensions(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(stubFactory(&stubDecoder{exts: []string{"ogg", "FLAC"}}))
	registry.RegisterExtension(".mp3", stubFactory(&stubDecoder{}))

	want := []string{"flac", "mp3", "ogg"}
	if got := registry.Extensions(); !slices.Equal(got, want) {
		t.Errorf("Registry.Extensions() = %v, want %v", got, want)
	}
}

func TestRegistry_OpenUnsupported(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	_, err := registry.Open("song.xyz")
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Registry.Open() error = %v, want ErrOpen", err)
	}
	if !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("Registry.Open() error = %v, want ErrUnsupportedExtension", err)
	}
}

func TestRegistry_Open(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	dec := &stubDecoder{exts: []string{"mp3"}}
	registry.Register(stubFactory(dec))

	got, err := registry.Open("/music/Track.MP3")
	if err != nil {
		t.Fatalf("Registry.Open() error = %v", err)
	}
	if got != dec {
		t.Error("Registry.Open() returned a different decoder")
	}
	if !slices.Equal(dec.opened, []string{"/music/Track.MP3"}) {
		t.Errorf("decoder opened %v", dec.opened)
	}
	if dec.closed != 0 {
		t.Errorf("decoder closed %d times, want 0", dec.closed)
	}
}

func TestRegistry_OpenFailureCloses(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	dec := &stubDecoder{exts: []string{"mp3"}, openErr: ErrOpen}
	registry.Register(stubFactory(dec))

	got, err := registry.Open("broken.mp3")
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Registry.Open() error = %v, want ErrOpen", err)
	}
	if got != nil {
		t.Error("Registry.Open() returned a decoder on failure")
	}
	if dec.closed != 1 {
		t.Errorf("decoder closed %d times, want 1", dec.closed)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	dec := &stubDecoder{exts: []string{"ogg"}}
	f := stubFactory(dec)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			registry.RegisterExtension("ogg", f)
		})
		wg.Go(func() {
			_, _ = registry.Get("ogg")
			_ = registry.Extensions()
		})
	}
	wg.Wait()

	got, ok := registry.Get("ogg")
	if !ok {
		t.Fatal("Registry.Get() failed after concurrent operations")
	}
	if got() != Decoder(dec) {
		t.Error("Registry returned wrong decoder after concurrent operations")
	}
}
