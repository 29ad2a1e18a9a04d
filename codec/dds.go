package codec

import (
	"encoding/binary"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

const (
	ddsHeaderSize     = 124
	ddsPixelFmtSize   = 32
	ddsDX10HeaderSize = 20

	ddpfAlphaPixels = 0x1
	ddpfAlpha       = 0x2
	ddpfFourCC      = 0x4
	ddpfRGB         = 0x40
	ddpfLuminance   = 0x20000

	ddsCaps2Cubemap = 0x200
	ddsCaps2Volume  = 0x200000

	dx10MiscCube      = 0x4
	dx10Texture3D     = 4
	ddsCubeAllFaces   = 0xfc00
	ddsFlagMipCount   = 0x20000
	ddsFlagDepthValid = 0x800000
)

var ddsFourCC = map[string]pixelformat.Format{
	"DXT1": pixelformat.BC1,
	"DXT2": pixelformat.BC2,
	"DXT3": pixelformat.BC2,
	"DXT4": pixelformat.BC3,
	"DXT5": pixelformat.BC3,
	"ATI1": pixelformat.BC4,
	"BC4U": pixelformat.BC4,
	"ATI2": pixelformat.BC5,
	"BC5U": pixelformat.BC5,
	"YUY2": pixelformat.YUYV8,
	"UYVY": pixelformat.UYVY8,
}

var dxgiFormats = map[uint32]pixelformat.Format{
	2:   pixelformat.RGBAF,
	6:   pixelformat.RGBF,
	11:  pixelformat.RGBA16,
	28:  pixelformat.RGBA8,
	29:  pixelformat.RGBA8,
	41:  pixelformat.GrayF,
	56:  pixelformat.Gray16,
	61:  pixelformat.Gray8,
	65:  pixelformat.A8,
	71:  pixelformat.BC1,
	72:  pixelformat.BC1,
	74:  pixelformat.BC2,
	75:  pixelformat.BC2,
	77:  pixelformat.BC3,
	78:  pixelformat.BC3,
	80:  pixelformat.BC4,
	83:  pixelformat.BC5,
	85:  pixelformat.BGR565,
	87:  pixelformat.BGRA8,
	91:  pixelformat.BGRA8,
	95:  pixelformat.BC6H,
	96:  pixelformat.BC6H,
	98:  pixelformat.BC7,
	99:  pixelformat.BC7,
	103: pixelformat.NV12,
	107: pixelformat.YUYV8,
}

type ddsPixelFormat struct {
	flags                      uint32
	fourCC                     string
	bitCount                   uint32
	rMask, gMask, bMask, aMask uint32
}

// maskFormat maps legacy uncompressed channel masks.
func (pf ddsPixelFormat) maskFormat() (pixelformat.Format, bool) {
	switch {
	case pf.flags&ddpfRGB != 0 && pf.bitCount == 32:
		switch {
		case pf.rMask == 0x00ff0000 && pf.gMask == 0xff00 && pf.bMask == 0xff:
			return pixelformat.BGRA8, true
		case pf.rMask == 0xff && pf.gMask == 0xff00 && pf.bMask == 0x00ff0000:
			return pixelformat.RGBA8, true
		}
	case pf.flags&ddpfRGB != 0 && pf.bitCount == 24:
		switch {
		case pf.rMask == 0x00ff0000 && pf.bMask == 0xff:
			return pixelformat.BGR8, true
		case pf.rMask == 0xff && pf.bMask == 0x00ff0000:
			return pixelformat.RGB8, true
		}
	case pf.flags&ddpfRGB != 0 && pf.bitCount == 16:
		if pf.rMask == 0xf800 && pf.gMask == 0x07e0 && pf.bMask == 0x1f {
			return pixelformat.BGR565, true
		}
	case pf.flags&ddpfLuminance != 0 && pf.bitCount == 8:
		return pixelformat.Gray8, true
	case pf.flags&ddpfLuminance != 0 && pf.bitCount == 16 && pf.flags&ddpfAlphaPixels != 0:
		return pixelformat.GrayAlpha8, true
	case pf.flags&ddpfLuminance != 0 && pf.bitCount == 16:
		return pixelformat.Gray16, true
	case pf.flags&ddpfAlpha != 0 && pf.bitCount == 8:
		return pixelformat.A8, true
	}
	return pixelformat.Unknown, false
}

// ddsLevelSize is the stored size of one level. DirectDraw surfaces pack
// rows of uncompressed pixels without padding.
func ddsLevelSize(f pixelformat.Format, size dseed.Size3i) int64 {
	if bpp := f.BytesPerPixel(); bpp > 0 {
		return int64(size.Width * bpp * size.Height * size.Depth)
	}
	return int64(pixelformat.TotalSize(f, size))
}

// DecodeDDS decodes DirectDraw Surface textures: 2D, 2D arrays, cube maps
// and volumes. Only the top mip level of every slice is kept; the stored
// level count is reported in AttrMipLevels.
func DecodeDDS(s dseed.Stream) (*bitmap.Array, error) {
	var magic [4]byte
	if err := probe("dds", s, magic[:]); err != nil {
		return nil, err
	}
	if string(magic[:]) != "DDS " {
		return nil, notFormat("dds", "missing DDS magic")
	}
	var h [ddsHeaderSize]byte
	if err := readBody("dds", s, h[:]); err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	if le.Uint32(h[0:]) != ddsHeaderSize || le.Uint32(h[72:]) != ddsPixelFmtSize {
		return nil, corrupted("dds", "bad header size")
	}
	flags := le.Uint32(h[4:])
	height := int(le.Uint32(h[8:]))
	width := int(le.Uint32(h[12:]))
	depth := int(le.Uint32(h[20:]))
	mips := int(le.Uint32(h[24:]))
	pf := ddsPixelFormat{
		flags:    le.Uint32(h[76:]),
		fourCC:   string(h[80:84]),
		bitCount: le.Uint32(h[84:]),
		rMask:    le.Uint32(h[88:]),
		gMask:    le.Uint32(h[92:]),
		bMask:    le.Uint32(h[96:]),
		aMask:    le.Uint32(h[100:]),
	}
	caps2 := le.Uint32(h[108:])

	if flags&ddsFlagMipCount == 0 || mips == 0 {
		mips = 1
	}
	if flags&ddsFlagDepthValid == 0 || depth == 0 {
		depth = 1
	}

	kind := bitmap.Kind2D
	layers := 1
	format := pixelformat.Unknown
	switch {
	case pf.flags&ddpfFourCC != 0 && pf.fourCC == "DX10":
		var x [ddsDX10HeaderSize]byte
		if err := readBody("dds", s, x[:]); err != nil {
			return nil, err
		}
		dxgi := le.Uint32(x[0:])
		f, ok := dxgiFormats[dxgi]
		if !ok {
			return nil, unsupported("dds", "DXGI format %d", dxgi)
		}
		format = f
		layers = max(1, int(le.Uint32(x[12:])))
		switch {
		case le.Uint32(x[8:])&dx10MiscCube != 0:
			kind, layers = bitmap.KindCube, layers*6
		case le.Uint32(x[4:]) == dx10Texture3D:
			kind = bitmap.Kind3D
		}
	case pf.flags&ddpfFourCC != 0:
		f, ok := ddsFourCC[pf.fourCC]
		if !ok {
			return nil, unsupported("dds", "FourCC %q", pf.fourCC)
		}
		format = f
	default:
		f, ok := pf.maskFormat()
		if !ok {
			return nil, unsupported("dds", "pixel format flags %#x, %d bpp", pf.flags, pf.bitCount)
		}
		format = f
	}
	if kind == bitmap.Kind2D {
		switch {
		case caps2&ddsCaps2Cubemap != 0:
			if caps2&ddsCubeAllFaces != ddsCubeAllFaces {
				return nil, unsupported("dds", "partial cube map")
			}
			kind, layers = bitmap.KindCube, 6
		case caps2&ddsCaps2Volume != 0 && depth > 1:
			kind = bitmap.Kind3D
		}
	}
	if width == 0 || height == 0 {
		return nil, corrupted("dds", "invalid dimensions %dx%d", width, height)
	}
	if width > bitmap.MaxSide || height > bitmap.MaxSide || depth > bitmap.MaxSide || layers > bitmap.MaxSide {
		return nil, corrupted("dds", "dimensions %dx%dx%d, %d layers exceed %d", width, height, depth, layers, bitmap.MaxSide)
	}
	if mips > 32 {
		return nil, corrupted("dds", "%d mip levels", mips)
	}

	size := dseed.Size3(width, height, layers)
	if kind == bitmap.Kind3D {
		size.Depth = depth
		layers = 1
	}

	// Each layer stores its whole mip chain before the next layer begins.
	sliceDepth := 1
	if kind == bitmap.Kind3D {
		sliceDepth = depth
	}
	top := dseed.Size3(width, height, sliceDepth)
	var rest int64
	for l := 1; l < mips; l++ {
		rest += ddsLevelSize(format, pixelformat.MipSize(l, top, false))
	}
	level := ddsLevelSize(format, top)
	if need, left := level*int64(layers)+rest*int64(layers-1), dseed.Remaining(s); left >= 0 && need > left {
		return nil, corrupted("dds", "%d layers need %d bytes, %d left", layers, need, left)
	}
	b, err := bitmap.New(kind, size, format, nil)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, level)
	plane := len(buf) / sliceDepth

	err = b.Access(func(pix []byte) error {
		stride, dstPlane := b.Stride(), b.PlaneSize()
		for layer := range layers {
			if err := readBody("dds", s, buf); err != nil {
				return err
			}
			for z := range sliceDepth {
				dst := pix[(layer*sliceDepth+z)*dstPlane:]
				src := buf[z*plane:]
				if bpp := format.BytesPerPixel(); bpp > 0 {
					copyRows(dst, stride, src, width*bpp, width*bpp, height)
				} else {
					copy(dst[:dstPlane], src[:plane])
				}
			}
			if layer < layers-1 {
				if err := skip("dds", s, rest); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		b.Release()
		return nil, err
	}
	b.Attributes().SetInt32(dseed.AttrMipLevels, int32(mips))
	b.Attributes().SetString(dseed.AttrContainer, "dds")
	return bitmap.Single(b), nil
}
