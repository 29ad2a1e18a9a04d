package pixelop

import (
	"github.com/daramkun/dseed/bitmap"
)

// Filter convolves every slice of b with m and returns a new bitmap of the
// same shape and format. Samples outside the image are clamped to the
// nearest edge texel. Only colour channels are convolved; destination alpha
// is copied from the source texel.
func Filter(b *bitmap.Bitmap, m *Mask) (*bitmap.Bitmap, error) {
	acc, err := lookup[accessor](OpFilter, b.Format())
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = IdentityMask()
	}
	if _, err := NewMask(m.Size, m.Weights); err != nil {
		return nil, err
	}

	dst, err := bitmap.New(b.Kind(), b.Size(), b.Format(), b.Palette().Clone())
	if err != nil {
		return nil, err
	}

	width, height, stride := b.Width(), b.Height(), b.Stride()
	src := make([]rgba, width*height)
	out := make([]rgba, width*height)

	err = b.Access(func(pix []byte) error {
		return dst.Access(func(dpix []byte) error {
			n := b.PlaneSize()
			eachPlane(b, pix, func(z int, plane []byte) {
				acc.loadPlane(plane, width, height, stride, src)
				convolve(src, out, width, height, m)
				acc.storePlane(out, dpix[z*n:(z+1)*n], width, height, stride)
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

func convolve(src, dst []rgba, width, height int, m *Mask) {
	half := m.Size / 2
	for y := range height {
		for x := range width {
			var sum [3]float32
			for dy := range m.Size {
				sy := clampInt(y+dy-half, 0, height-1)
				for dx := range m.Size {
					w := m.Weights[dy*m.Size+dx]
					if w == 0 {
						continue
					}
					sx := clampInt(x+dx-half, 0, width-1)
					c := src[sy*width+sx]
					sum[0] += w * c[0]
					sum[1] += w * c[1]
					sum[2] += w * c[2]
				}
			}
			i := y*width + x
			dst[i] = rgba{sum[0], sum[1], sum[2], src[i][3]}
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
