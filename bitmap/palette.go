package bitmap

import (
	"image/color"
)

// PaletteSize is the fixed number of palette entries.
const PaletteSize = 256

// Palette is a fixed 256-entry color table used by indexed formats.
//
// Count records how many leading entries are meaningful; the rest are
// opaque black so that scans over the whole table see no spurious
// transparency.
type Palette struct {
	Entries [PaletteSize]color.NRGBA
	Count   int
}

// NewPalette builds a palette from up to 256 colors.
func NewPalette(colors []color.Color) *Palette {
	p := &Palette{}
	for i := range p.Entries {
		p.Entries[i] = color.NRGBA{A: 0xff}
	}
	n := min(len(colors), PaletteSize)
	for i := range n {
		p.Entries[i] = color.NRGBAModel.Convert(colors[i]).(color.NRGBA)
	}
	p.Count = n
	return p
}

// GrayPalette returns the identity grey ramp.
func GrayPalette() *Palette {
	p := &Palette{Count: PaletteSize}
	for i := range p.Entries {
		v := uint8(i)
		p.Entries[i] = color.NRGBA{R: v, G: v, B: v, A: 0xff}
	}
	return p
}

// IsGrayRamp reports whether p is the full identity grey ramp.
func (p *Palette) IsGrayRamp() bool {
	if p == nil || p.Count != PaletteSize {
		return false
	}
	for i, c := range p.Entries {
		v := uint8(i)
		if c != (color.NRGBA{R: v, G: v, B: v, A: 0xff}) {
			return false
		}
	}
	return true
}

// Clone returns a copy of p; nil stays nil.
func (p *Palette) Clone() *Palette {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// ColorPalette returns the meaningful entries as a color.Palette.
func (p *Palette) ColorPalette() color.Palette {
	out := make(color.Palette, p.Count)
	for i := range p.Count {
		out[i] = p.Entries[i]
	}
	return out
}

// PutBGRA writes the first n entries as 4-byte BGRA quads.
// When opaqueReserved is set the fourth byte is written as zero, matching
// the reserved byte of DIB RGBQUADs.
func (p *Palette) PutBGRA(dst []byte, n int, opaqueReserved bool) {
	for i := range n {
		c := p.Entries[i]
		dst[i*4+0] = c.B
		dst[i*4+1] = c.G
		dst[i*4+2] = c.R
		if opaqueReserved {
			dst[i*4+3] = 0
		} else {
			dst[i*4+3] = c.A
		}
	}
}

// PaletteFromBGRA reads n 4-byte quads. With opaqueReserved the fourth
// byte is ignored and every entry is opaque.
func PaletteFromBGRA(src []byte, n int, opaqueReserved bool) *Palette {
	p := NewPalette(nil)
	n = min(n, PaletteSize)
	for i := range n {
		a := src[i*4+3]
		if opaqueReserved {
			a = 0xff
		}
		p.Entries[i] = color.NRGBA{R: src[i*4+2], G: src[i*4+1], B: src[i*4+0], A: a}
	}
	p.Count = n
	return p
}
