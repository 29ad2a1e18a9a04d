package pixelop

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

func newFilled(t *testing.T, kind bitmap.Kind, size dseed.Size3i, f pixelformat.Format, data []byte) *bitmap.Bitmap {
	t.Helper()
	b, err := bitmap.New(kind, size, f, nil)
	if err != nil {
		t.Fatalf("bitmap.New() error = %v", err)
	}
	t.Cleanup(b.Release)
	if data != nil {
		_ = b.Access(func(pix []byte) error {
			copy(pix, data)
			return nil
		})
	}
	return b
}

func pixels(t *testing.T, b *bitmap.Bitmap) []byte {
	t.Helper()
	var out []byte
	_ = b.Access(func(pix []byte) error {
		out = append(out, pix...)
		return nil
	})
	return out
}

func TestFlip(t *testing.T) {
	tests := []struct {
		name   string
		format pixelformat.Format
		size   dseed.Size3i
		mode   FlipMode
		in     []byte
		want   []byte
	}{
		{
			name: "gray horizontal", format: pixelformat.Gray8, size: dseed.Size3(3, 2, 1),
			mode: FlipHorizontal,
			in:   []byte{1, 2, 3, 4, 5, 6},
			want: []byte{3, 2, 1, 6, 5, 4},
		},
		{
			name: "gray vertical", format: pixelformat.Gray8, size: dseed.Size3(3, 2, 1),
			mode: FlipVertical,
			in:   []byte{1, 2, 3, 4, 5, 6},
			want: []byte{4, 5, 6, 1, 2, 3},
		},
		{
			name: "gray both", format: pixelformat.Gray8, size: dseed.Size3(3, 2, 1),
			mode: FlipHorizontal | FlipVertical,
			in:   []byte{1, 2, 3, 4, 5, 6},
			want: []byte{6, 5, 4, 3, 2, 1},
		},
		{
			name: "rgba horizontal keeps channel order", format: pixelformat.RGBA8, size: dseed.Size3(2, 1, 1),
			mode: FlipHorizontal,
			in:   []byte{1, 2, 3, 4, 5, 6, 7, 8},
			want: []byte{5, 6, 7, 8, 1, 2, 3, 4},
		},
		{
			name: "bgr padded rows vertical", format: pixelformat.BGR8, size: dseed.Size3(1, 2, 1),
			mode: FlipVertical,
			in:   []byte{1, 2, 3, 0, 4, 5, 6, 0},
			want: []byte{4, 5, 6, 0, 1, 2, 3, 0},
		},
		{
			name: "yuyv mirrors macropixels and luma", format: pixelformat.YUYV8, size: dseed.Size3(4, 1, 1),
			mode: FlipHorizontal,
			in:   []byte{10, 20, 11, 30, 12, 40, 13, 50},
			want: []byte{13, 40, 12, 50, 11, 20, 10, 30},
		},
		{
			name: "uyvy single macropixel swaps luma", format: pixelformat.UYVY8, size: dseed.Size3(2, 1, 1),
			mode: FlipHorizontal,
			in:   []byte{20, 10, 30, 11},
			want: []byte{20, 11, 30, 10},
		},
		{
			name: "yuyv odd width mirrors luma per pixel", format: pixelformat.YUYV8, size: dseed.Size3(3, 1, 1),
			mode: FlipHorizontal,
			in:   []byte{10, 20, 11, 30, 12, 40, 99, 50},
			want: []byte{12, 40, 11, 50, 10, 20, 99, 30},
		},
		{
			name: "uyvy odd width mirrors luma per pixel", format: pixelformat.UYVY8, size: dseed.Size3(3, 1, 1),
			mode: FlipHorizontal,
			in:   []byte{20, 10, 30, 11, 40, 12, 50, 99},
			want: []byte{40, 12, 50, 11, 20, 10, 30, 99},
		},
		{
			name: "yuyv odd width both", format: pixelformat.YUYV8, size: dseed.Size3(3, 2, 1),
			mode: FlipHorizontal | FlipVertical,
			in:   []byte{10, 20, 11, 30, 12, 40, 99, 50, 13, 60, 14, 70, 15, 80, 98, 90},
			want: []byte{15, 80, 14, 90, 13, 60, 98, 70, 12, 40, 11, 50, 10, 20, 99, 30},
		},
		{
			name: "every slice", format: pixelformat.Gray8, size: dseed.Size3(2, 1, 2),
			mode: FlipHorizontal,
			in:   []byte{1, 2, 3, 4},
			want: []byte{2, 1, 4, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := bitmap.Kind2D
			if tt.size.Depth > 1 {
				kind = bitmap.Kind3D
			}
			b := newFilled(t, kind, tt.size, tt.format, tt.in)
			if err := Flip(b, tt.mode); err != nil {
				t.Fatalf("Flip() error = %v", err)
			}
			if got := pixels(t, b); !bytes.Equal(got, tt.want) {
				t.Errorf("Flip() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlipTwiceIsIdentity(t *testing.T) {
	sizes := []dseed.Size3i{
		dseed.Size3(5, 3, 1),
		dseed.Size3(4, 2, 1),
		dseed.Size3(5, 3, 2),
		dseed.Size3(4, 2, 3),
		dseed.Size3(1, 1, 1),
	}
	modes := []struct {
		name string
		mode FlipMode
	}{
		{"horizontal", FlipHorizontal},
		{"vertical", FlipVertical},
		{"both", FlipHorizontal | FlipVertical},
	}
	for _, f := range pixelformat.Formats() {
		if !Supports(OpFlip, f) {
			continue
		}
		for _, size := range sizes {
			for _, m := range modes {
				t.Run(fmt.Sprintf("%s/%dx%dx%d/%s", f, size.Width, size.Height, size.Depth, m.name), func(t *testing.T) {
					in := make([]byte, pixelformat.TotalSize(f, size))
					for i := range in {
						in[i] = byte(i*7 + 3)
					}
					kind := bitmap.Kind2D
					if size.Depth > 1 {
						kind = bitmap.Kind3D
					}
					b := newFilled(t, kind, size, f, in)
					for range 2 {
						if err := Flip(b, m.mode); err != nil {
							t.Fatalf("Flip() error = %v", err)
						}
					}
					if got := pixels(t, b); !bytes.Equal(got, in) {
						t.Errorf("Flip() twice = %v, want %v", got, in)
					}
				})
			}
		}
	}
}

func TestFlipUnsupported(t *testing.T) {
	b := newFilled(t, bitmap.Kind2D, dseed.Size3(4, 4, 1), pixelformat.BC1, nil)
	if err := Flip(b, FlipVertical); !errors.Is(err, dseed.ErrNotSupport) {
		t.Errorf("Flip(BC1) error = %v, want ErrNotSupport", err)
	}
}

func TestFlipLocked(t *testing.T) {
	b := newFilled(t, bitmap.Kind2D, dseed.Size3(2, 2, 1), pixelformat.Gray8, nil)
	pin, _ := b.Lock()
	defer pin.Unlock()
	if err := Flip(b, FlipVertical); !errors.Is(err, dseed.ErrInvalidOp) {
		t.Errorf("Flip(locked) error = %v, want ErrInvalidOp", err)
	}
}

func TestSupports(t *testing.T) {
	tests := []struct {
		op   Op
		f    pixelformat.Format
		want bool
	}{
		{OpFlip, pixelformat.Indexed8, true},
		{OpFlip, pixelformat.YUYV8, true},
		{OpFlip, pixelformat.I420, false},
		{OpFlip, pixelformat.ASTC4x4, false},
		{OpFilter, pixelformat.RGBAF, true},
		{OpFilter, pixelformat.Indexed8, false},
		{OpFilter, pixelformat.BGR565, false},
		{OpDetectTransparent, pixelformat.Indexed8, true},
		{OpDetectTransparent, pixelformat.BC3, false},
		{OpConvert, pixelformat.BGR565, true},
		{OpConvert, pixelformat.YUV8, false},
	}
	for _, tt := range tests {
		if got := Supports(tt.op, tt.f); got != tt.want {
			t.Errorf("Supports(%s, %s) = %v, want %v", tt.op, tt.f, got, tt.want)
		}
	}
}
