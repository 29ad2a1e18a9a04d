package bitmap

import (
	"errors"
	"testing"
	"time"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/pixelformat"
)

func TestArrayAt(t *testing.T) {
	b1, _ := New2D(1, 1, pixelformat.RGBA8)
	b2, _ := New2D(2, 2, pixelformat.RGBA8)

	a, err := NewArray(ArrayAnimation, []Frame{
		{Bitmap: b1, Duration: 100 * time.Millisecond},
		{Bitmap: b2, Duration: 50 * time.Millisecond},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := a.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	got, d, err := a.At(1)
	if err != nil {
		t.Fatal(err)
	}
	if got != b2 || d != 50*time.Millisecond {
		t.Errorf("At(1) = %p, %v; want %p, 50ms", got, d, b2)
	}
	if r := b2.Refs(); r != 2 {
		t.Errorf("Refs() after At = %d, want 2", r)
	}

	if _, _, err := a.At(2); !errors.Is(err, dseed.ErrOutOfRange) {
		t.Errorf("At(2) error = %v, want ErrOutOfRange", err)
	}

	a.Release()
	if r := b2.Refs(); r != 1 {
		t.Errorf("Refs() after array release = %d, want 1", r)
	}
	got.Release()
}

func TestNewArrayRejectsEmpty(t *testing.T) {
	if _, err := NewArray(ArrayImages, nil); !errors.Is(err, dseed.ErrInvalidArgs) {
		t.Errorf("NewArray(nil) error = %v, want ErrInvalidArgs", err)
	}
	if _, err := NewArray(ArrayImages, []Frame{{}}); !errors.Is(err, dseed.ErrInvalidArgs) {
		t.Errorf("NewArray(nil frame) error = %v, want ErrInvalidArgs", err)
	}
}
