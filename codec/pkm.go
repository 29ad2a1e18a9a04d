package codec

import (
	"encoding/binary"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

const pkmHeaderSize = 16

// pkmFormats maps PKM format codes. Codes 7 to 11 are the signed and
// sRGB variants, stored here as their unsigned linear counterparts.
var pkmFormats = map[uint16]pixelformat.Format{
	0:  pixelformat.ETC1,
	1:  pixelformat.ETC2RGB,
	3:  pixelformat.ETC2RGBA8,
	4:  pixelformat.ETC2RGBA1,
	5:  pixelformat.EACR11,
	6:  pixelformat.EACRG11,
	7:  pixelformat.EACR11,
	8:  pixelformat.EACRG11,
	9:  pixelformat.ETC2RGB,
	10: pixelformat.ETC2RGBA8,
	11: pixelformat.ETC2RGBA1,
}

// DecodePKM decodes an ETC1/ETC2 texture in the PKM container.
func DecodePKM(s dseed.Stream) (*bitmap.Array, error) {
	var h [pkmHeaderSize]byte
	if err := probe("pkm", s, h[:]); err != nil {
		return nil, err
	}
	if string(h[:4]) != "PKM " {
		return nil, notFormat("pkm", "missing PKM magic")
	}
	version := string(h[4:6])
	if version != "10" && version != "20" {
		return nil, unsupported("pkm", "version %q", version)
	}
	be := binary.BigEndian
	code := be.Uint16(h[6:])
	extW, extH := int(be.Uint16(h[8:])), int(be.Uint16(h[10:]))
	width, height := int(be.Uint16(h[12:])), int(be.Uint16(h[14:]))

	format, ok := pkmFormats[code]
	if !ok || (version == "10" && code != 0) {
		return nil, unsupported("pkm", "format %d in version %s", code, version)
	}
	if width == 0 || height == 0 {
		return nil, corrupted("pkm", "invalid dimensions %dx%d", width, height)
	}
	if extW != (width+3)&^3 || extH != (height+3)&^3 {
		return nil, corrupted("pkm", "padded size %dx%d does not match %dx%d", extW, extH, width, height)
	}

	b, err := bitmap.New(bitmap.Kind2D, dseed.Size3(width, height, 1), format, nil)
	if err != nil {
		return nil, err
	}
	err = b.Access(func(pix []byte) error {
		return readBody("pkm", s, pix[:b.PlaneSize()])
	})
	if err != nil {
		b.Release()
		return nil, err
	}
	b.Attributes().SetString(dseed.AttrContainer, "pkm")
	return bitmap.Single(b), nil
}
