package media

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/daramkun/dseed"
)

// RegistryCapacity is the maximum number of factories in a Registry.
const RegistryCapacity = 16

// Decoder yields the samples of one audio stream.
type Decoder interface {
	// Format returns the layout of every sample's Data.
	Format() AudioFormat
	// Duration returns the total play time.
	Duration() time.Duration
	// Attributes holds container metadata such as INFO text.
	Attributes() *dseed.Attributes
	// ReadSample returns the next sample, or an error wrapping
	// dseed.ErrEndOfFile after the last one.
	ReadSample() (*Sample, error)
}

// DecoderFactory opens a decoder over s, which is positioned at 0. It
// returns an error wrapping dseed.ErrNotSupportFileFormat when s is not
// its format.
type DecoderFactory func(s dseed.Stream) (Decoder, error)

type entry struct {
	name    string
	factory DecoderFactory
}

// DecodeError reports a factory that recognized its input but failed.
type DecodeError struct {
	Decoder string
	Err     error
}

func (e *DecodeError) Error() string { return e.Decoder + ": " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Registry is a bounded, ordered list of decoder factories.
//
// Thread safety: all methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make([]entry, 0, RegistryCapacity)}
}

// DefaultRegistry returns a registry holding the WAV decoder.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Add("wav", OpenWAV)
	return r
}

// Add appends a factory. It fails with dseed.ErrOutOfRange once the
// registry holds RegistryCapacity factories.
func (r *Registry) Add(name string, f DecoderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= RegistryCapacity {
		return fmt.Errorf("media: registry full (%d): %w", RegistryCapacity, dseed.ErrOutOfRange)
	}
	r.entries = append(r.entries, entry{name: name, factory: f})
	return nil
}

// Len returns the number of registered factories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Decode tries every factory in order, rewinding s before each attempt.
func (r *Registry) Decode(s dseed.Stream) (Decoder, string, error) {
	if !s.CanRead() || !s.CanSeek() {
		return nil, "", fmt.Errorf("media: stream must be readable and seekable: %w", dseed.ErrInvalidArgs)
	}
	r.mu.RLock()
	entries := append([]entry(nil), r.entries...)
	r.mu.RUnlock()

	log := dseed.Logger()
	for _, e := range entries {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, "", fmt.Errorf("media: rewind: %w", dseed.ErrNotSeekable)
		}
		d, err := e.factory(s)
		if err == nil {
			log.Debug("media: decoder opened", "decoder", e.name, "format", d.Format().String())
			return d, e.name, nil
		}
		if errors.Is(err, dseed.ErrNotSupportFileFormat) {
			log.Debug("media: candidate rejected", "decoder", e.name, "reason", err)
			continue
		}
		return nil, "", &DecodeError{Decoder: e.name, Err: err}
	}
	return nil, "", fmt.Errorf("media: no decoder recognized the stream: %w", dseed.ErrNotSupportFileFormat)
}
