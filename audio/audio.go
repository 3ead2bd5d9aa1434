// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Decoder is the contract every backend exposes.
type Decoder interface {
	// Open opens filename and positions the stream at its first frame.
	Open(filename string) error
	// Seek moves to frame and returns the accepted position.
	Seek(frame int64) (int64, error)
	// Read fills dst with interleaved frames and returns the number delivered.
	// Zero frames with a nil error is the end of the stream.
	Read(dst []float32) (int, error)
	// ReadPlanar fills one slice per channel.
	ReadPlanar(dst [][]float32) (int, error)

	SampleRate() int
	Channels() int
	Position() int64
	NumFrames() int64
	// NumSamples counts samples across all channels, priming excluded.
	NumSamples() int64
	Duration() time.Duration

	// Close is idempotent.
	Close() error

	// SupportedFileExtensions is static metadata; it performs no I/O.
	SupportedFileExtensions() []string
}

// Factory returns a new, closed Decoder.
type Factory func() Decoder

// Registry maps lower-case file extensions (without the dot) to decoder factories.
type Registry struct {
	factories map[string]Factory

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		mtx:       &sync.Mutex{},
	}
}

// Register adds f under every extension its decoders advertise.
// A later registration of the same extension wins.
func (r *Registry) Register(f Factory) {
	for _, ext := range f().SupportedFileExtensions() {
		r.RegisterExtension(ext, f)
	}
}

func (r *Registry) RegisterExtension(ext string, f Factory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.factories[normalizeExt(ext)] = f
}

func (r *Registry) Get(ext string) (Factory, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	f, ok := r.factories[normalizeExt(ext)]
	return f, ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	exts := make([]string, 0, len(r.factories))
	for ext := range r.factories {
		exts = append(exts, ext)
	}
	slices.Sort(exts)

	return exts
}

// Open picks a decoder by the extension of filename and opens it.
func (r *Registry) Open(filename string) (Decoder, error) {
	ext := filepath.Ext(filename)

	f, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", ErrOpen, ErrUnsupportedExtension, ext)
	}

	dec := f()
	if err := dec.Open(filename); err != nil {
		_ = dec.Close()
		return nil, err
	}

	return dec, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
