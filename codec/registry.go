// Package codec detects, decodes and encodes bitmap container formats.
//
// Decoders are tried in registration order by a Registry. A decoder that
// does not recognize its input returns an error wrapping
// dseed.ErrNotSupportFileFormat and detection moves on; any other error
// stops detection and is reported as a *DecodeError naming the decoder
// that claimed the stream.
package codec

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
)

// DecodeFunc decodes a whole container from s, which is positioned at 0.
type DecodeFunc func(s dseed.Stream) (*bitmap.Array, error)

// Candidate is a named decoder in a Registry.
type Candidate struct {
	Name   string
	Decode DecodeFunc
}

// DecodeError reports a decoder that recognized its input but failed.
type DecodeError struct {
	Decoder string
	Err     error
}

func (e *DecodeError) Error() string { return e.Decoder + ": " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Registry is an ordered list of decoder candidates.
//
// Thread safety: Decode may run concurrently with itself and with Add.
type Registry struct {
	mu         sync.RWMutex
	candidates []Candidate
}

// NewRegistry returns a registry holding cands in order.
func NewRegistry(cands ...Candidate) *Registry {
	return &Registry{candidates: append([]Candidate(nil), cands...)}
}

// builtins lists every decoder in default detection order: formats with a
// distinctive signature first, heuristic ones (ICO, TGA) last.
func builtins() []Candidate {
	return []Candidate{
		{"dib", DecodeDIB},
		{"dds", DecodeDDS},
		{"ktx", DecodeKTX},
		{"pkm", DecodePKM},
		{"png", DecodePNG},
		{"jpeg", DecodeJPEG},
		{"webp", DecodeWEBP},
		{"gif", DecodeGIF},
		{"tiff", DecodeTIFF},
		{"ico", DecodeICO},
		{"tga", DecodeTGA},
	}
}

// DefaultRegistry returns a new registry with every built-in decoder.
func DefaultRegistry() *Registry { return NewRegistry(builtins()...) }

// Select returns a registry with the named built-in decoders in the given
// order. An empty list selects all of them.
func Select(names []string) (*Registry, error) {
	if len(names) == 0 {
		return DefaultRegistry(), nil
	}
	all := builtins()
	r := NewRegistry()
	for _, n := range names {
		found := false
		for _, c := range all {
			if c.Name == n {
				r.Add(c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("codec: unknown decoder %q: %w", n, dseed.ErrInvalidArgs)
		}
	}
	return r, nil
}

// Add appends c to the end of the detection order.
func (r *Registry) Add(c Candidate) {
	r.mu.Lock()
	r.candidates = append(r.candidates, c)
	r.mu.Unlock()
}

// Names returns the candidate names in detection order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.candidates))
	for i, c := range r.candidates {
		names[i] = c.Name
	}
	return names
}

// Decode detects the format of s and decodes it. The first candidate that
// accepts the stream wins. It returns the decoded array and the name of
// the decoder that produced it.
func (r *Registry) Decode(s dseed.Stream) (*bitmap.Array, string, error) {
	if !s.CanRead() || !s.CanSeek() {
		return nil, "", fmt.Errorf("codec: stream must be readable and seekable: %w", dseed.ErrInvalidArgs)
	}
	r.mu.RLock()
	cands := r.candidates
	r.mu.RUnlock()

	log := dseed.Logger()
	for _, c := range cands {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, "", fmt.Errorf("codec: rewind: %w", dseed.ErrNotSeekable)
		}
		arr, err := c.Decode(s)
		if err == nil {
			log.Debug("codec: decoded", "decoder", c.Name, "frames", arr.Len())
			return arr, c.Name, nil
		}
		if errors.Is(err, dseed.ErrNotSupportFileFormat) {
			log.Debug("codec: candidate rejected", "decoder", c.Name, "reason", err)
			continue
		}
		return nil, "", &DecodeError{Decoder: c.Name, Err: err}
	}
	return nil, "", fmt.Errorf("codec: no decoder recognized the stream: %w", dseed.ErrNotSupportFileFormat)
}

// Encoder is the accumulate/commit protocol shared by bitmap encoders.
// Commit finalizes the stream exactly once; every call after it fails
// with dseed.ErrInvalidOp.
type Encoder interface {
	EncodeFrame(b *bitmap.Bitmap) error
	Commit() error
}
