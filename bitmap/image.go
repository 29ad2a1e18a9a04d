package bitmap

import (
	"fmt"
	"image"
	"image/color"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/pixelformat"
)

// FromImage copies a standard library image into a new 2D bitmap.
//
// Gray, Gray16, Paletted, NRGBA64 and YCbCr images keep a matching format
// (Gray8, Gray16, Indexed8, RGBA16, RGB8); everything else becomes RGBA8
// with non-premultiplied alpha. Multi-byte channels are stored little-endian.
func FromImage(img image.Image) (*Bitmap, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		b, err := New2D(width, height, pixelformat.Gray8)
		if err != nil {
			return nil, err
		}
		for y := range height {
			copy(b.row(y), src.Pix[y*src.Stride:y*src.Stride+width])
		}
		return b, nil

	case *image.Gray16:
		b, err := New2D(width, height, pixelformat.Gray16)
		if err != nil {
			return nil, err
		}
		for y := range height {
			row, s := b.row(y), src.Pix[y*src.Stride:]
			for x := range width {
				row[x*2], row[x*2+1] = s[x*2+1], s[x*2]
			}
		}
		return b, nil

	case *image.Paletted:
		b, err := New(Kind2D, dseed.Size3(width, height, 1), pixelformat.Indexed8, NewPalette(src.Palette))
		if err != nil {
			return nil, err
		}
		for y := range height {
			copy(b.row(y), src.Pix[y*src.Stride:y*src.Stride+width])
		}
		return b, nil

	case *image.NRGBA64:
		b, err := New2D(width, height, pixelformat.RGBA16)
		if err != nil {
			return nil, err
		}
		for y := range height {
			row, s := b.row(y), src.Pix[y*src.Stride:]
			for i := 0; i < width*8; i += 2 {
				row[i], row[i+1] = s[i+1], s[i]
			}
		}
		return b, nil

	case *image.YCbCr:
		b, err := New2D(width, height, pixelformat.RGB8)
		if err != nil {
			return nil, err
		}
		for y := range height {
			row := b.row(y)
			for x := range width {
				c := src.YCbCrAt(bounds.Min.X+x, bounds.Min.Y+y)
				row[x*3], row[x*3+1], row[x*3+2] = color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
			}
		}
		return b, nil

	case *image.NRGBA:
		b, err := New2D(width, height, pixelformat.RGBA8)
		if err != nil {
			return nil, err
		}
		for y := range height {
			copy(b.row(y), src.Pix[y*src.Stride:y*src.Stride+width*4])
		}
		return b, nil
	}

	b, err := New2D(width, height, pixelformat.RGBA8)
	if err != nil {
		return nil, err
	}
	for y := range height {
		row := b.row(y)
		for x := range width {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = c.R, c.G, c.B, c.A
		}
	}
	return b, nil
}

// ToImage copies slice z of b into a standard library image.
// Returns *image.Gray, *image.Gray16, *image.Paletted, *image.NRGBA64 or
// *image.NRGBA depending on the format. Block-compressed, YUV and float
// formats are not supported.
func ToImage(b *Bitmap, z int) (image.Image, error) {
	if b.data == nil {
		return nil, ErrReleased
	}
	if z < 0 || z >= b.size.Depth {
		return nil, fmt.Errorf("bitmap: slice %d: %w", z, dseed.ErrOutOfRange)
	}
	width, height := b.size.Width, b.size.Height
	rect := image.Rect(0, 0, width, height)
	rowAt := func(y int) []byte {
		off := z*b.PlaneSize() + y*b.Stride()
		return b.data[off : off+b.Stride()]
	}

	switch b.format {
	case pixelformat.Gray8, pixelformat.A8:
		dst := image.NewGray(rect)
		for y := range height {
			copy(dst.Pix[y*dst.Stride:], rowAt(y)[:width])
		}
		return dst, nil

	case pixelformat.Gray16:
		dst := image.NewGray16(rect)
		for y := range height {
			row, d := rowAt(y), dst.Pix[y*dst.Stride:]
			for x := range width {
				d[x*2], d[x*2+1] = row[x*2+1], row[x*2]
			}
		}
		return dst, nil

	case pixelformat.Indexed8:
		pal := b.palette
		if pal == nil {
			pal = GrayPalette()
		}
		colors := make(color.Palette, PaletteSize)
		for i := range colors {
			colors[i] = pal.Entries[i]
		}
		dst := image.NewPaletted(rect, colors)
		for y := range height {
			copy(dst.Pix[y*dst.Stride:], rowAt(y)[:width])
		}
		return dst, nil

	case pixelformat.RGBA16:
		dst := image.NewNRGBA64(rect)
		for y := range height {
			row, d := rowAt(y), dst.Pix[y*dst.Stride:]
			for i := 0; i < width*8; i += 2 {
				d[i], d[i+1] = row[i+1], row[i]
			}
		}
		return dst, nil
	}

	dst := image.NewNRGBA(rect)
	for y := range height {
		row, d := rowAt(y), dst.Pix[y*dst.Stride:]
		for x := range width {
			var r, g, bl, a byte
			switch b.format {
			case pixelformat.RGBA8:
				r, g, bl, a = row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			case pixelformat.BGRA8:
				bl, g, r, a = row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			case pixelformat.RGB8:
				r, g, bl, a = row[x*3], row[x*3+1], row[x*3+2], 0xff
			case pixelformat.BGR8:
				bl, g, r, a = row[x*3], row[x*3+1], row[x*3+2], 0xff
			case pixelformat.GrayAlpha8:
				r, a = row[x*2], row[x*2+1]
				g, bl = r, r
			case pixelformat.BGR565:
				v := uint16(row[x*2]) | uint16(row[x*2+1])<<8
				r = byte((v>>11)&0x1f) << 3
				g = byte((v>>5)&0x3f) << 2
				bl = byte(v&0x1f) << 3
				r, g, bl, a = r|r>>5, g|g>>6, bl|bl>>5, 0xff
			default:
				return nil, fmt.Errorf("bitmap: %s to image: %w", b.format, dseed.ErrNotSupport)
			}
			d[x*4], d[x*4+1], d[x*4+2], d[x*4+3] = r, g, bl, a
		}
	}
	return dst, nil
}

// row returns row y of slice 0 without pinning; package-internal use only
// while the bitmap is still private to its creator.
func (b *Bitmap) row(y int) []byte {
	stride := b.Stride()
	return b.data[y*stride : (y+1)*stride]
}
