package pixelop

import (
	"encoding/binary"

	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

type scanFunc func(b *bitmap.Bitmap, pix []byte) bool

// DetectTransparent reports whether any texel of b has alpha below the
// format maximum. Indexed bitmaps are judged by their whole palette.
// Formats without an alpha channel are never transparent.
func DetectTransparent(b *bitmap.Bitmap) (bool, error) {
	fn, err := lookup[scanFunc](OpDetectTransparent, b.Format())
	if err != nil {
		return false, err
	}
	var found bool
	err = b.Access(func(pix []byte) error {
		found = fn(b, pix)
		return nil
	})
	return found, err
}

func opaque(*bitmap.Bitmap, []byte) bool { return false }

func scanPalette(b *bitmap.Bitmap, _ []byte) bool {
	p := b.Palette()
	if p == nil {
		return false
	}
	for _, c := range p.Entries {
		if c.A != 0xff {
			return true
		}
	}
	return false
}

func alphaScanner(f pixelformat.Format) scanFunc {
	info := f.Info()
	switch {
	case info.IsIndexed:
		return scanPalette
	case !info.HasAlpha:
		return opaque
	}

	bpp, off := info.BytesPerPixel, info.AlphaOffset
	var below func(px []byte) bool
	switch {
	case info.IsFloat:
		below = func(px []byte) bool { return f32(px) < 1 }
	case info.BitsPerChannel == 16:
		below = func(px []byte) bool { return binary.LittleEndian.Uint16(px) != 0xffff }
	default:
		below = func(px []byte) bool { return px[0] != 0xff }
	}

	return func(b *bitmap.Bitmap, pix []byte) bool {
		width, height, stride := b.Width(), b.Height(), b.Stride()
		found := false
		eachPlane(b, pix, func(_ int, plane []byte) {
			for y := 0; y < height && !found; y++ {
				row := plane[y*stride:]
				for x := range width {
					if below(row[x*bpp+off:]) {
						found = true
						break
					}
				}
			}
		})
		return found
	}
}
