package pixelop

import (
	"math"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

// MipmapChain holds successively halved versions of a bitmap.
//
// Level 0 is the source bitmap itself. Each following level has every axis
// halved (rounded up, minimum 1) as given by pixelformat.MipSize; cube maps
// and 2D arrays keep their slice count, volumes halve depth too.
type MipmapChain struct {
	levels []*bitmap.Bitmap
}

// GenerateMipmaps builds the full chain down to 1x1 with a box filter.
// The chain holds a reference to src; Release drops it along with the
// generated levels.
func GenerateMipmaps(src *bitmap.Bitmap) (*MipmapChain, error) {
	acc, err := lookup[accessor](OpMipmap, src.Format())
	if err != nil {
		return nil, err
	}

	keepDepth := src.Kind() != bitmap.Kind3D
	numLevels := pixelformat.MaxMipLevels(src.Size(), keepDepth)

	src.Retain()
	chain := &MipmapChain{levels: make([]*bitmap.Bitmap, 1, numLevels)}
	chain.levels[0] = src

	for i := 1; i < numLevels; i++ {
		next, err := downsample(chain.levels[i-1], pixelformat.MipSize(i, src.Size(), keepDepth), acc)
		if err != nil {
			chain.Release()
			return nil, err
		}
		chain.levels = append(chain.levels, next)
	}
	return chain, nil
}

// downsample averages up to 2x2 (2x2x2 for volumes) source texels into
// each destination texel, clamping at odd edges.
func downsample(src *bitmap.Bitmap, size dseed.Size3i, acc accessor) (*bitmap.Bitmap, error) {
	dst, err := bitmap.New(src.Kind(), size, src.Format(), src.Palette().Clone())
	if err != nil {
		return nil, err
	}
	sw, sh, sd := src.Width(), src.Height(), src.Depth()
	volume := src.Kind() == bitmap.Kind3D
	sstride, dstride := src.Stride(), dst.Stride()
	sn, dn := src.PlaneSize(), dst.PlaneSize()

	err = src.Access(func(spix []byte) error {
		return dst.Access(func(dpix []byte) error {
			for z := range size.Depth {
				z0, z1 := z, z
				if volume {
					z0, z1 = z*2, min(z*2+1, sd-1)
				}
				for y := range size.Height {
					y0, y1 := y*2, min(y*2+1, sh-1)
					drow := dpix[z*dn+y*dstride:]
					for x := range size.Width {
						x0, x1 := x*2, min(x*2+1, sw-1)
						var sum rgba
						count := float32(0)
						for _, sz := range [2]int{z0, z1} {
							for _, sy := range [2]int{y0, y1} {
								for _, sx := range [2]int{x0, x1} {
									c := acc.load(spix[sz*sn+sy*sstride+sx*acc.bpp:])
									for i := range sum {
										sum[i] += c[i]
									}
									count++
								}
							}
						}
						for i := range sum {
							sum[i] /= count
						}
						acc.store(drow[x*acc.bpp:], sum)
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		dst.Release()
		return nil, err
	}
	return dst, nil
}

// Level returns the bitmap at level n without adding a reference, or nil
// when n is out of range.
func (m *MipmapChain) Level(n int) *bitmap.Bitmap {
	if m == nil || n < 0 || n >= len(m.levels) {
		return nil
	}
	return m.levels[n]
}

// NumLevels returns the number of levels; 0 for a nil chain.
func (m *MipmapChain) NumLevels() int {
	if m == nil {
		return 0
	}
	return len(m.levels)
}

// LevelForScale picks level floor(-log2(scale)), clamped to the chain.
func (m *MipmapChain) LevelForScale(scale float64) *bitmap.Bitmap {
	if m == nil || len(m.levels) == 0 {
		return nil
	}
	if scale >= 1 {
		return m.levels[0]
	}
	level := int(math.Floor(-math.Log2(scale)))
	return m.levels[clampInt(level, 0, len(m.levels)-1)]
}

// Release drops the chain's reference on every level.
func (m *MipmapChain) Release() {
	if m == nil {
		return
	}
	for _, b := range m.levels {
		b.Release()
	}
	m.levels = nil
}
