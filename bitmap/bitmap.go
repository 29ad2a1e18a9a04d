// Package bitmap provides pixel buffers, palettes and multi-frame arrays.
//
// A Bitmap owns one contiguous buffer laid out as Depth slices of
// pixelformat.PlaneSize bytes each. Direct buffer access goes through Lock,
// which pins the buffer for a single holder until Unlock.
package bitmap

import (
	"fmt"
	"sync/atomic"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/pixelformat"
)

// Common errors for bitmap operations.
var (
	// ErrInvalidDimensions is returned when a size axis is non-positive or the
	// size does not fit the bitmap kind.
	ErrInvalidDimensions = fmt.Errorf("bitmap: invalid dimensions: %w", dseed.ErrInvalidArgs)

	// ErrInvalidFormat is returned when the pixel format is not recognized.
	ErrInvalidFormat = fmt.Errorf("bitmap: invalid format: %w", dseed.ErrInvalidArgs)

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = fmt.Errorf("bitmap: data buffer too small: %w", dseed.ErrInvalidArgs)

	// ErrTooLarge is returned when a size exceeds MaxSide on any axis or
	// needs more than MaxBytes of storage.
	ErrTooLarge = fmt.Errorf("bitmap: too large: %w", dseed.ErrOutOfMemory)

	// ErrLocked is returned by Lock while another holder has the buffer pinned.
	ErrLocked = fmt.Errorf("bitmap: already locked: %w", dseed.ErrInvalidOp)

	// ErrReleased is returned when a released bitmap is used.
	ErrReleased = fmt.Errorf("bitmap: released: %w", dseed.ErrInvalidOp)
)

// Allocation limits. With every axis at most MaxSide, TotalSize cannot
// overflow an int64.
const (
	MaxSide  = 1 << 16
	MaxBytes = 1<<31 - 1
)

// Kind is the array type of a bitmap.
type Kind uint8

const (
	// Kind2D is a plain image; Depth > 1 makes it a texture array.
	Kind2D Kind = iota
	// Kind3D is a volume texture with Depth slices.
	Kind3D
	// KindCube is a cube map; Depth counts faces and is a multiple of 6.
	KindCube
)

func (k Kind) String() string {
	switch k {
	case Kind2D:
		return "2D"
	case Kind3D:
		return "3D"
	case KindCube:
		return "Cube"
	default:
		return "Unknown"
	}
}

// Bitmap is a reference-counted pixel buffer.
//
// Thread safety: Retain, Release and Lock are safe for concurrent use.
// Mutating the pixels of a shared bitmap requires external coordination.
type Bitmap struct {
	dseed.RefCount

	kind    Kind
	size    dseed.Size3i
	format  pixelformat.Format
	data    []byte
	palette *Palette
	attrs   *dseed.Attributes
	pool    *Pool
	locked  atomic.Bool
}

func validate(kind Kind, size dseed.Size3i, format pixelformat.Format) (int, error) {
	if !format.IsValid() {
		return 0, ErrInvalidFormat
	}
	if !size.Valid() {
		return 0, ErrInvalidDimensions
	}
	if size.Width > MaxSide || size.Height > MaxSide || size.Depth > MaxSide {
		return 0, ErrTooLarge
	}
	switch kind {
	case Kind2D, Kind3D:
	case KindCube:
		if size.Width != size.Height || size.Depth%6 != 0 {
			return 0, ErrInvalidDimensions
		}
	default:
		return 0, fmt.Errorf("bitmap: unknown kind %d: %w", kind, dseed.ErrInvalidArgs)
	}
	n := pixelformat.TotalSize(format, size)
	if n == pixelformat.NotComputable {
		return 0, ErrInvalidFormat
	}
	if n > MaxBytes {
		return 0, ErrTooLarge
	}
	return n, nil
}

// New allocates a zeroed bitmap from the default buffer pool.
// Indexed formats get a palette of opaque black entries when palette is nil.
func New(kind Kind, size dseed.Size3i, format pixelformat.Format, palette *Palette) (*Bitmap, error) {
	return defaultPool.NewBitmap(kind, size, format, palette)
}

// New2D is shorthand for a single-slice 2D bitmap.
func New2D(width, height int, format pixelformat.Format) (*Bitmap, error) {
	return New(Kind2D, dseed.Size3(width, height, 1), format, nil)
}

// FromPixels wraps data without copying. The caller must not use data
// afterwards except through the bitmap.
func FromPixels(kind Kind, size dseed.Size3i, format pixelformat.Format, data []byte, palette *Palette) (*Bitmap, error) {
	n, err := validate(kind, size, format)
	if err != nil {
		return nil, err
	}
	if len(data) < n {
		return nil, ErrDataTooSmall
	}
	return newBitmap(kind, size, format, data[:n], palette, nil), nil
}

func newBitmap(kind Kind, size dseed.Size3i, format pixelformat.Format, data []byte, palette *Palette, pool *Pool) *Bitmap {
	if palette == nil && format.IsIndexed() {
		palette = NewPalette(nil)
	}
	return &Bitmap{
		kind:    kind,
		size:    size,
		format:  format,
		data:    data,
		palette: palette,
		attrs:   dseed.NewAttributes(),
		pool:    pool,
	}
}

// Release drops a reference. When the last reference goes, attributes are
// cleared and the buffer returns to its pool.
func (b *Bitmap) Release() {
	if !b.RefCount.Release() {
		return
	}
	b.attrs.Clear()
	if b.pool != nil && !b.locked.Load() {
		b.pool.Put(b.data)
	}
	b.data = nil
}

// Kind returns the array type.
func (b *Bitmap) Kind() Kind { return b.kind }

// Size returns the dimensions.
func (b *Bitmap) Size() dseed.Size3i { return b.size }

// Width returns the width in pixels.
func (b *Bitmap) Width() int { return b.size.Width }

// Height returns the height in pixels.
func (b *Bitmap) Height() int { return b.size.Height }

// Depth returns the slice count.
func (b *Bitmap) Depth() int { return b.size.Depth }

// Format returns the pixel format.
func (b *Bitmap) Format() pixelformat.Format { return b.format }

// Stride returns the number of bytes per row.
func (b *Bitmap) Stride() int { return pixelformat.Stride(b.format, b.size.Width) }

// PlaneSize returns the number of bytes per slice.
func (b *Bitmap) PlaneSize() int { return pixelformat.PlaneSize(b.format, b.size.Width, b.size.Height) }

// ByteSize returns the total buffer size.
func (b *Bitmap) ByteSize() int { return len(b.data) }

// Palette returns the palette, or nil for non-indexed bitmaps without one.
func (b *Bitmap) Palette() *Palette { return b.palette }

// SetPalette replaces the palette.
func (b *Bitmap) SetPalette(p *Palette) { b.palette = p }

// Attributes returns the metadata store owned by this bitmap.
func (b *Bitmap) Attributes() *dseed.Attributes { return b.attrs }

// Lock pins the buffer for exclusive access. Lock is not reentrant: a second
// Lock before Unlock fails with ErrLocked.
func (b *Bitmap) Lock() (*Pin, error) {
	if b.data == nil {
		return nil, ErrReleased
	}
	if !b.locked.CompareAndSwap(false, true) {
		return nil, ErrLocked
	}
	return &Pin{b: b, pix: b.data}, nil
}

// Access runs fn with the pinned buffer and unlocks on every exit path.
func (b *Bitmap) Access(fn func(pix []byte) error) error {
	pin, err := b.Lock()
	if err != nil {
		return err
	}
	defer pin.Unlock()
	return fn(pin.Pixels())
}

// Clone returns a deep copy with its own palette and attributes.
func (b *Bitmap) Clone() (*Bitmap, error) {
	if b.data == nil {
		return nil, ErrReleased
	}
	c, err := New(b.kind, b.size, b.format, b.palette.Clone())
	if err != nil {
		return nil, err
	}
	copy(c.data, b.data)
	b.attrs.CopyTo(c.attrs)
	return c, nil
}

// Pin grants exclusive access to a bitmap buffer until Unlock.
type Pin struct {
	b   *Bitmap
	pix []byte
}

// Pixels returns the whole buffer.
func (p *Pin) Pixels() []byte { return p.pix }

// Slice returns the bytes of slice z, or nil if z is out of range.
func (p *Pin) Slice(z int) []byte {
	if p.b == nil || z < 0 || z >= p.b.size.Depth {
		return nil
	}
	n := p.b.PlaneSize()
	return p.pix[z*n : (z+1)*n]
}

// Row returns row y of slice z for stride-addressable formats.
func (p *Pin) Row(z, y int) []byte {
	s := p.Slice(z)
	if s == nil || y < 0 || y >= p.b.size.Height {
		return nil
	}
	stride := p.b.Stride()
	return s[y*stride : (y+1)*stride]
}

// Unlock releases the pin. Calling Unlock more than once is a no-op.
func (p *Pin) Unlock() {
	if p.b == nil {
		return
	}
	p.b.locked.Store(false)
	p.b = nil
	p.pix = nil
}
