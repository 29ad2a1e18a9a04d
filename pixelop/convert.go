package pixelop

import (
	"fmt"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

// Convert returns a copy of b in format to. Both formats need an RGBA
// accessor, except that Indexed8 sources are expanded through their
// palette. Converting to the same format clones b.
func Convert(b *bitmap.Bitmap, to pixelformat.Format) (*bitmap.Bitmap, error) {
	if b.Format() == to {
		return b.Clone()
	}
	dacc, err := lookup[accessor](OpConvert, to)
	if err != nil {
		return nil, err
	}

	var load func(px []byte) rgba
	sbpp := 0
	if b.Format() == pixelformat.Indexed8 {
		pal := b.Palette()
		if pal == nil {
			return nil, fmt.Errorf("pixelop: indexed bitmap without palette: %w", dseed.ErrInvalidArgs)
		}
		sbpp = 1
		load = func(px []byte) rgba {
			c := pal.Entries[px[0]]
			return rgba{unorm8(c.R), unorm8(c.G), unorm8(c.B), unorm8(c.A)}
		}
	} else {
		sacc, err := lookup[accessor](OpConvert, b.Format())
		if err != nil {
			return nil, err
		}
		sbpp, load = sacc.bpp, sacc.load
	}

	dst, err := bitmap.New(b.Kind(), b.Size(), to, nil)
	if err != nil {
		return nil, err
	}
	width, height := b.Width(), b.Height()
	sstride, dstride := b.Stride(), dst.Stride()
	dn := dst.PlaneSize()

	err = b.Access(func(pix []byte) error {
		return dst.Access(func(dpix []byte) error {
			eachPlane(b, pix, func(z int, plane []byte) {
				dplane := dpix[z*dn : (z+1)*dn]
				for y := range height {
					srow, drow := plane[y*sstride:], dplane[y*dstride:]
					for x := range width {
						dacc.store(drow[x*dacc.bpp:], load(srow[x*sbpp:]))
					}
				}
			})
			return nil
		})
	})
	if err != nil {
		dst.Release()
		return nil, err
	}
	b.Attributes().CopyTo(dst.Attributes())
	return dst, nil
}
