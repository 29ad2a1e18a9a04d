package bitmap

import (
	"fmt"
	"time"

	"github.com/daramkun/dseed"
)

// ArrayKind tells how the frames of an Array relate to each other.
type ArrayKind uint8

const (
	// ArrayImages holds independent images, such as the entries of an icon.
	ArrayImages ArrayKind = iota
	// ArrayAnimation holds fully composited animation frames.
	ArrayAnimation
)

func (k ArrayKind) String() string {
	if k == ArrayAnimation {
		return "Animation"
	}
	return "Images"
}

// Frame is one bitmap of an Array. Duration is zero for ArrayImages.
type Frame struct {
	Bitmap   *Bitmap
	Duration time.Duration
}

// Array is an immutable, reference-counted sequence of frames.
type Array struct {
	dseed.RefCount

	kind   ArrayKind
	frames []Frame
	attrs  *dseed.Attributes
}

// NewArray takes ownership of the references held in frames.
func NewArray(kind ArrayKind, frames []Frame) (*Array, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("bitmap: empty array: %w", dseed.ErrInvalidArgs)
	}
	for i, f := range frames {
		if f.Bitmap == nil {
			return nil, fmt.Errorf("bitmap: frame %d is nil: %w", i, dseed.ErrInvalidArgs)
		}
	}
	return &Array{
		kind:   kind,
		frames: append([]Frame(nil), frames...),
		attrs:  dseed.NewAttributes(),
	}, nil
}

// Single wraps one bitmap in an ArrayImages array, taking ownership of b.
func Single(b *Bitmap) *Array {
	a, _ := NewArray(ArrayImages, []Frame{{Bitmap: b}})
	return a
}

// Kind returns the array kind.
func (a *Array) Kind() ArrayKind { return a.kind }

// Len returns the frame count.
func (a *Array) Len() int { return len(a.frames) }

// Attributes returns container-level metadata, such as the loop count.
func (a *Array) Attributes() *dseed.Attributes { return a.attrs }

// At returns frame i with an extra reference on its bitmap; the caller
// must Release it.
func (a *Array) At(i int) (*Bitmap, time.Duration, error) {
	if i < 0 || i >= len(a.frames) {
		return nil, 0, fmt.Errorf("bitmap: frame %d of %d: %w", i, len(a.frames), dseed.ErrOutOfRange)
	}
	f := a.frames[i]
	f.Bitmap.Retain()
	return f.Bitmap, f.Duration, nil
}

// Release drops a reference and releases every frame at the last one.
func (a *Array) Release() {
	if !a.RefCount.Release() {
		return
	}
	for _, f := range a.frames {
		f.Bitmap.Release()
	}
	a.frames = nil
	a.attrs.Clear()
}
