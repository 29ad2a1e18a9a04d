package pixelop

import (
	"github.com/daramkun/dseed/bitmap"
)

// FlipMode selects the flip axes; combine with |.
type FlipMode uint8

const (
	// FlipHorizontal mirrors each row (x becomes width-1-x).
	FlipHorizontal FlipMode = 1 << iota
	// FlipVertical swaps rows top to bottom.
	FlipVertical
)

type flipFunc func(plane []byte, width, height, stride int, mode FlipMode)

// Flip mirrors every slice of b in place.
func Flip(b *bitmap.Bitmap, mode FlipMode) error {
	fn, err := lookup[flipFunc](OpFlip, b.Format())
	if err != nil {
		return err
	}
	if mode&(FlipHorizontal|FlipVertical) == 0 {
		return nil
	}
	return b.Access(func(pix []byte) error {
		eachPlane(b, pix, func(_ int, plane []byte) {
			fn(plane, b.Width(), b.Height(), b.Stride(), mode)
		})
		return nil
	})
}

func flipRows(plane []byte, height, stride int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := plane[top*stride : (top+1)*stride]
		b := plane[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

func flipPacked(bpp int) flipFunc {
	return func(plane []byte, width, height, stride int, mode FlipMode) {
		if mode&FlipHorizontal != 0 {
			var tmp [16]byte
			for y := range height {
				row := plane[y*stride:]
				for l, r := 0, width-1; l < r; l, r = l+1, r-1 {
					a := row[l*bpp : (l+1)*bpp]
					b := row[r*bpp : (r+1)*bpp]
					copy(tmp[:bpp], a)
					copy(a, b)
					copy(b, tmp[:bpp])
				}
			}
		}
		if mode&FlipVertical != 0 {
			flipRows(plane, height, stride)
		}
	}
}

// flip422 reverses luma samples pixel by pixel and mirrors the chroma of
// whole macropixels. With an odd width the padding sample of the last
// macropixel stays in place.
func flip422(uyvy bool) flipFunc {
	y0, y1, c0, c1 := 0, 2, 1, 3
	if uyvy {
		y0, y1, c0, c1 = 1, 3, 0, 2
	}
	luma := func(x int) int {
		if x%2 == 0 {
			return x/2*4 + y0
		}
		return x/2*4 + y1
	}
	return func(plane []byte, width, height, stride int, mode FlipMode) {
		if mode&FlipHorizontal != 0 {
			pairs := (width + 1) / 2
			for y := range height {
				row := plane[y*stride:]
				for l, r := 0, width-1; l < r; l, r = l+1, r-1 {
					a, b := luma(l), luma(r)
					row[a], row[b] = row[b], row[a]
				}
				for l, r := 0, pairs-1; l < r; l, r = l+1, r-1 {
					row[l*4+c0], row[r*4+c0] = row[r*4+c0], row[l*4+c0]
					row[l*4+c1], row[r*4+c1] = row[r*4+c1], row[l*4+c1]
				}
			}
		}
		if mode&FlipVertical != 0 {
			flipRows(plane, height, stride)
		}
	}
}

// eachPlane calls fn with every depth slice of a pinned buffer.
func eachPlane(b *bitmap.Bitmap, pix []byte, fn func(z int, plane []byte)) {
	n := b.PlaneSize()
	for z := range b.Depth() {
		fn(z, pix[z*n:(z+1)*n])
	}
}
