package pixelop

import (
	"encoding/binary"
	"math"

	"github.com/daramkun/dseed/pixelformat"
)

// rgba is a non-premultiplied colour with channels normalized to [0, 1]
// for integer formats. Float formats may leave that range.
type rgba [4]float32

// accessor reads and writes one packed pixel as rgba.
type accessor struct {
	bpp   int
	float bool
	load  func(px []byte) rgba
	store func(px []byte, c rgba)
}

func unorm8(v byte) float32 { return float32(v) / 255 }

func toUnorm8(f float32) byte {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return byte(f*255 + 0.5)
}

func unorm16(px []byte) float32 { return float32(binary.LittleEndian.Uint16(px)) / 65535 }

func putUnorm16(px []byte, f float32) {
	var v uint16
	switch {
	case f <= 0:
	case f >= 1:
		v = 0xffff
	default:
		v = uint16(f*65535 + 0.5)
	}
	binary.LittleEndian.PutUint16(px, v)
}

func f32(px []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(px)) }

func putF32(px []byte, f float32) { binary.LittleEndian.PutUint32(px, math.Float32bits(f)) }

// luma uses the Rec. 601 weights; they sum to one so grey stays grey.
func luma(c rgba) float32 { return 0.299*c[0] + 0.587*c[1] + 0.114*c[2] }

var accessors = map[pixelformat.Format]accessor{
	pixelformat.RGBA8: {
		bpp:   4,
		load:  func(p []byte) rgba { return rgba{unorm8(p[0]), unorm8(p[1]), unorm8(p[2]), unorm8(p[3])} },
		store: func(p []byte, c rgba) { p[0], p[1], p[2], p[3] = toUnorm8(c[0]), toUnorm8(c[1]), toUnorm8(c[2]), toUnorm8(c[3]) },
	},
	pixelformat.BGRA8: {
		bpp:   4,
		load:  func(p []byte) rgba { return rgba{unorm8(p[2]), unorm8(p[1]), unorm8(p[0]), unorm8(p[3])} },
		store: func(p []byte, c rgba) { p[0], p[1], p[2], p[3] = toUnorm8(c[2]), toUnorm8(c[1]), toUnorm8(c[0]), toUnorm8(c[3]) },
	},
	pixelformat.RGB8: {
		bpp:   3,
		load:  func(p []byte) rgba { return rgba{unorm8(p[0]), unorm8(p[1]), unorm8(p[2]), 1} },
		store: func(p []byte, c rgba) { p[0], p[1], p[2] = toUnorm8(c[0]), toUnorm8(c[1]), toUnorm8(c[2]) },
	},
	pixelformat.BGR8: {
		bpp:   3,
		load:  func(p []byte) rgba { return rgba{unorm8(p[2]), unorm8(p[1]), unorm8(p[0]), 1} },
		store: func(p []byte, c rgba) { p[0], p[1], p[2] = toUnorm8(c[2]), toUnorm8(c[1]), toUnorm8(c[0]) },
	},
	pixelformat.BGR565: {
		bpp: 2,
		load: func(p []byte) rgba {
			v := binary.LittleEndian.Uint16(p)
			return rgba{float32(v>>11) / 31, float32((v>>5)&0x3f) / 63, float32(v&0x1f) / 31, 1}
		},
		store: func(p []byte, c rgba) {
			r := uint16(toUnorm8(c[0])) * 31 / 255
			g := uint16(toUnorm8(c[1])) * 63 / 255
			b := uint16(toUnorm8(c[2])) * 31 / 255
			binary.LittleEndian.PutUint16(p, r<<11|g<<5|b)
		},
	},
	pixelformat.Gray8: {
		bpp: 1,
		load: func(p []byte) rgba {
			v := unorm8(p[0])
			return rgba{v, v, v, 1}
		},
		store: func(p []byte, c rgba) { p[0] = toUnorm8(luma(c)) },
	},
	pixelformat.GrayAlpha8: {
		bpp: 2,
		load: func(p []byte) rgba {
			v := unorm8(p[0])
			return rgba{v, v, v, unorm8(p[1])}
		},
		store: func(p []byte, c rgba) { p[0], p[1] = toUnorm8(luma(c)), toUnorm8(c[3]) },
	},
	pixelformat.A8: {
		bpp:   1,
		load:  func(p []byte) rgba { return rgba{0, 0, 0, unorm8(p[0])} },
		store: func(p []byte, c rgba) { p[0] = toUnorm8(c[3]) },
	},
	pixelformat.Gray16: {
		bpp: 2,
		load: func(p []byte) rgba {
			v := unorm16(p)
			return rgba{v, v, v, 1}
		},
		store: func(p []byte, c rgba) { putUnorm16(p, luma(c)) },
	},
	pixelformat.RGBA16: {
		bpp:  8,
		load: func(p []byte) rgba { return rgba{unorm16(p), unorm16(p[2:]), unorm16(p[4:]), unorm16(p[6:])} },
		store: func(p []byte, c rgba) {
			for i := range 4 {
				putUnorm16(p[i*2:], c[i])
			}
		},
	},
	pixelformat.GrayF: {
		bpp:   4,
		float: true,
		load: func(p []byte) rgba {
			v := f32(p)
			return rgba{v, v, v, 1}
		},
		store: func(p []byte, c rgba) { putF32(p, luma(c)) },
	},
	pixelformat.RGBF: {
		bpp:   12,
		float: true,
		load:  func(p []byte) rgba { return rgba{f32(p), f32(p[4:]), f32(p[8:]), 1} },
		store: func(p []byte, c rgba) {
			for i := range 3 {
				putF32(p[i*4:], c[i])
			}
		},
	},
	pixelformat.RGBAF: {
		bpp:   16,
		float: true,
		load:  func(p []byte) rgba { return rgba{f32(p), f32(p[4:]), f32(p[8:]), f32(p[12:])} },
		store: func(p []byte, c rgba) {
			for i := range 4 {
				putF32(p[i*4:], c[i])
			}
		},
	},
}

// loadPlane expands one slice into width*height rgba values.
func (a accessor) loadPlane(plane []byte, width, height, stride int, dst []rgba) {
	for y := range height {
		row := plane[y*stride:]
		for x := range width {
			dst[y*width+x] = a.load(row[x*a.bpp:])
		}
	}
}

// storePlane writes width*height rgba values into one slice.
func (a accessor) storePlane(src []rgba, plane []byte, width, height, stride int) {
	for y := range height {
		row := plane[y*stride:]
		for x := range width {
			a.store(row[x*a.bpp:], src[y*width+x])
		}
	}
}
