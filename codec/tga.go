package codec

import (
	"encoding/binary"
	"image/color"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
	"github.com/daramkun/dseed/pixelop"
)

const tgaHeaderSize = 18

// TGA image types.
const (
	tgaColorMapped    = 1
	tgaTrueColor      = 2
	tgaGray           = 3
	tgaRLEColorMapped = 9
	tgaRLETrueColor   = 10
	tgaRLEGray        = 11
)

// TGA image descriptor bits.
const (
	tgaRightOrigin = 0x10
	tgaTopOrigin   = 0x20
	tgaAlphaBits   = 0x0f
	tgaInterleave  = 0xc0
)

type tgaHeader struct {
	idLen      int
	cmapType   byte
	imageType  byte
	cmapFirst  int
	cmapLen    int
	cmapDepth  int
	width      int
	height     int
	bpp        int
	descriptor byte
}

func (h tgaHeader) rle() bool { return h.imageType >= tgaRLEColorMapped }

func (h tgaHeader) base() byte {
	if h.rle() {
		return h.imageType - 8
	}
	return h.imageType
}

// validate only accepts headers a TGA writer would produce; TGA has no
// signature, so this is the whole of detection.
func (h tgaHeader) validate() bool {
	if h.cmapType > 1 || h.width == 0 || h.height == 0 || h.descriptor&tgaInterleave != 0 {
		return false
	}
	switch h.base() {
	case tgaColorMapped:
		if h.cmapType != 1 || h.bpp != 8 || h.cmapLen == 0 || h.cmapFirst+h.cmapLen > bitmap.PaletteSize {
			return false
		}
	case tgaTrueColor:
		if h.bpp != 15 && h.bpp != 16 && h.bpp != 24 && h.bpp != 32 {
			return false
		}
	case tgaGray:
		if h.bpp != 8 && h.bpp != 16 {
			return false
		}
	default:
		return false
	}
	if h.cmapType == 1 {
		switch h.cmapDepth {
		case 15, 16, 24, 32:
		default:
			return false
		}
	}
	return true
}

func (h tgaHeader) format() pixelformat.Format {
	switch h.base() {
	case tgaColorMapped:
		return pixelformat.Indexed8
	case tgaGray:
		if h.bpp == 16 {
			return pixelformat.GrayAlpha8
		}
		return pixelformat.Gray8
	}
	switch h.bpp {
	case 24:
		return pixelformat.BGR8
	default:
		return pixelformat.BGRA8
	}
}

// DecodeTGA decodes Truevision TGA images, raw or run-length encoded.
func DecodeTGA(s dseed.Stream) (*bitmap.Array, error) {
	var raw [tgaHeaderSize]byte
	if err := probe("tga", s, raw[:]); err != nil {
		return nil, err
	}
	h := tgaHeader{
		idLen:      int(raw[0]),
		cmapType:   raw[1],
		imageType:  raw[2],
		cmapFirst:  int(binary.LittleEndian.Uint16(raw[3:])),
		cmapLen:    int(binary.LittleEndian.Uint16(raw[5:])),
		cmapDepth:  int(raw[7]),
		width:      int(binary.LittleEndian.Uint16(raw[12:])),
		height:     int(binary.LittleEndian.Uint16(raw[14:])),
		bpp:        int(raw[16]),
		descriptor: raw[17],
	}
	if !h.validate() {
		return nil, notFormat("tga", "implausible header")
	}
	srcBpp := (h.bpp + 7) / 8
	cmapBytes := h.cmapLen * ((h.cmapDepth + 7) / 8)
	if h.cmapType == 0 {
		cmapBytes = 0
	}
	need := int64(tgaHeaderSize + h.idLen + cmapBytes)
	if !h.rle() {
		need += int64(h.width * h.height * srcBpp)
	}
	if s.Length() < need {
		return nil, notFormat("tga", "stream shorter than header implies")
	}

	if err := skip("tga", s, int64(h.idLen)); err != nil {
		return nil, err
	}
	var palette *bitmap.Palette
	if cmapBytes > 0 {
		buf := make([]byte, cmapBytes)
		if err := readBody("tga", s, buf); err != nil {
			return nil, err
		}
		if h.base() == tgaColorMapped {
			palette = tgaPalette(buf, h)
		}
	}

	n := h.width * h.height
	if int64(n*srcBpp) > bitmap.MaxBytes {
		return nil, corrupted("tga", "%dx%d pixels exceed %d bytes", h.width, h.height, bitmap.MaxBytes)
	}
	if h.rle() {
		// A packet encodes at most 128 pixels.
		least := int64((n + 127) / 128 * (1 + srcBpp))
		if left := dseed.Remaining(s); left >= 0 && least > left {
			return nil, corrupted("tga", "RLE data for %d pixels needs %d bytes, %d left", n, least, left)
		}
	}
	pixels := make([]byte, n*srcBpp)
	if h.rle() {
		if err := readTGARLE(s, pixels, srcBpp); err != nil {
			return nil, err
		}
	} else if err := readBody("tga", s, pixels); err != nil {
		return nil, err
	}

	b, err := bitmap.New(bitmap.Kind2D, dseed.Size3(h.width, h.height, 1), h.format(), palette)
	if err != nil {
		return nil, err
	}
	alphaBits := h.descriptor & tgaAlphaBits
	err = b.Access(func(pix []byte) error {
		stride := b.Stride()
		for y := range h.height {
			src := pixels[y*h.width*srcBpp:]
			dst := pix[y*stride:]
			if h.bpp == 15 || (h.bpp == 16 && h.base() == tgaTrueColor) {
				for x := range h.width {
					c := tga16(binary.LittleEndian.Uint16(src[x*2:]), alphaBits != 0)
					dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = c.B, c.G, c.R, c.A
				}
				continue
			}
			copy(dst, src[:h.width*srcBpp])
			if h.bpp == 32 && alphaBits == 0 {
				for x := range h.width {
					dst[x*4+3] = 0xff
				}
			}
		}
		return nil
	})
	if err != nil {
		b.Release()
		return nil, err
	}

	var mode pixelop.FlipMode
	if h.descriptor&tgaTopOrigin == 0 {
		mode |= pixelop.FlipVertical
	}
	if h.descriptor&tgaRightOrigin != 0 {
		mode |= pixelop.FlipHorizontal
	}
	if err := pixelop.Flip(b, mode); err != nil {
		b.Release()
		return nil, err
	}
	b.Attributes().SetString(dseed.AttrContainer, "tga")
	return bitmap.Single(b), nil
}

func tga16(v uint16, alpha bool) color.NRGBA {
	expand := func(c uint16) uint8 { return uint8(c<<3 | c>>2) }
	a := uint8(0xff)
	if alpha && v&0x8000 == 0 {
		a = 0
	}
	return color.NRGBA{R: expand((v >> 10) & 0x1f), G: expand((v >> 5) & 0x1f), B: expand(v & 0x1f), A: a}
}

func tgaPalette(buf []byte, h tgaHeader) *bitmap.Palette {
	p := bitmap.NewPalette(nil)
	entry := (h.cmapDepth + 7) / 8
	for i := range h.cmapLen {
		e := buf[i*entry:]
		var c color.NRGBA
		switch entry {
		case 2:
			c = tga16(binary.LittleEndian.Uint16(e), h.cmapDepth == 16)
		case 3:
			c = color.NRGBA{R: e[2], G: e[1], B: e[0], A: 0xff}
		default:
			c = color.NRGBA{R: e[2], G: e[1], B: e[0], A: e[3]}
		}
		p.Entries[h.cmapFirst+i] = c
	}
	p.Count = h.cmapFirst + h.cmapLen
	return p
}

// readTGARLE expands run-length packets until dst is full.
func readTGARLE(s dseed.Stream, dst []byte, bpp int) error {
	var head [1]byte
	px := make([]byte, bpp)
	for i := 0; i < len(dst); {
		if err := readBody("tga", s, head[:]); err != nil {
			return err
		}
		count := int(head[0]&0x7f) + 1
		if i+count*bpp > len(dst) {
			return corrupted("tga", "run overflows image")
		}
		if head[0]&0x80 != 0 {
			if err := readBody("tga", s, px); err != nil {
				return err
			}
			for range count {
				copy(dst[i:], px)
				i += bpp
			}
			continue
		}
		if err := readBody("tga", s, dst[i:i+count*bpp]); err != nil {
			return err
		}
		i += count * bpp
	}
	return nil
}
