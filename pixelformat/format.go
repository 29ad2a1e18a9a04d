// Package pixelformat describes the byte layout of pixel formats.
//
// Every size function is a pure function of the format tag and the
// dimensions; none of them ever looks at pixel data. Unknown tags yield
// NotComputable, which callers must check before allocating.
package pixelformat

// NotComputable is returned by size functions for unknown formats or
// negative dimensions.
const NotComputable = -1

// Format is a pixel format tag.
type Format uint16

const (
	// Unknown is the zero value and never valid.
	Unknown Format = iota

	// RGBA8 is 8-bit RGBA (4 bytes per pixel).
	RGBA8
	// RGBA16 is 16-bit little-endian RGBA (8 bytes per pixel).
	RGBA16
	// RGBAF is 32-bit float RGBA (16 bytes per pixel).
	RGBAF
	// RGB8 is 8-bit RGB (3 bytes per pixel, rows padded to 4 bytes).
	RGB8
	// RGBF is 32-bit float RGB (12 bytes per pixel).
	RGBF
	// BGRA8 is 8-bit BGRA (4 bytes per pixel), the DIB/ICO native layout.
	BGRA8
	// BGR8 is 8-bit BGR (3 bytes per pixel, rows padded to 4 bytes).
	BGR8
	// BGR565 is 16-bit packed BGR (2 bytes per pixel).
	BGR565
	// Gray8 is 8-bit luminance.
	Gray8
	// Gray16 is 16-bit little-endian luminance.
	Gray16
	// GrayF is 32-bit float luminance.
	GrayF
	// GrayAlpha8 is 8-bit luminance followed by 8-bit alpha.
	GrayAlpha8
	// A8 is an 8-bit alpha mask.
	A8
	// Indexed8 is an 8-bit index into a 256-entry palette.
	Indexed8
	// YUVA8 is packed 4:4:4 YUV with alpha (4 bytes per pixel).
	YUVA8
	// YUV8 is packed 4:4:4 YUV (3 bytes per pixel, rows padded to 4 bytes).
	YUV8
	// YUYV8 is packed 4:2:2 (Y0 U Y1 V per pixel pair).
	YUYV8
	// UYVY8 is packed 4:2:2 (U Y0 V Y1 per pixel pair).
	UYVY8
	// I420 is planar 4:2:0 (Y plane, U plane, V plane).
	I420
	// NV12 is semi-planar 4:2:0 (Y plane, interleaved UV plane).
	NV12

	// BC1 is S3TC DXT1 (4x4 blocks, 8 bytes).
	BC1
	// BC2 is S3TC DXT3 (4x4 blocks, 16 bytes).
	BC2
	// BC3 is S3TC DXT5 (4x4 blocks, 16 bytes).
	BC3
	// BC4 is RGTC1 single channel (4x4 blocks, 8 bytes).
	BC4
	// BC5 is RGTC2 two channel (4x4 blocks, 16 bytes).
	BC5
	// BC6H is BPTC float (4x4 blocks, 16 bytes).
	BC6H
	// BC7 is BPTC unorm (4x4 blocks, 16 bytes).
	BC7
	// ETC1 is Ericsson texture compression 1 (4x4 blocks, 8 bytes).
	ETC1
	// ETC2RGB is ETC2 RGB (4x4 blocks, 8 bytes).
	ETC2RGB
	// ETC2RGBA1 is ETC2 RGB with punch-through alpha (4x4 blocks, 8 bytes).
	ETC2RGBA1
	// ETC2RGBA8 is ETC2 RGBA with EAC alpha (4x4 blocks, 16 bytes).
	ETC2RGBA8
	// EACR11 is EAC single channel (4x4 blocks, 8 bytes).
	EACR11
	// EACRG11 is EAC two channel (4x4 blocks, 16 bytes).
	EACRG11
	// PVRTC2 is PVRTC 2 bits per pixel (8x4 blocks, 8 bytes).
	PVRTC2
	// PVRTC4 is PVRTC 4 bits per pixel (4x4 blocks, 8 bytes).
	PVRTC4
	// ASTC4x4 through ASTC12x12 are ASTC LDR (16 bytes per block).
	ASTC4x4
	ASTC5x4
	ASTC5x5
	ASTC6x5
	ASTC6x6
	ASTC8x5
	ASTC8x6
	ASTC8x8
	ASTC10x5
	ASTC10x6
	ASTC10x8
	ASTC10x10
	ASTC12x10
	ASTC12x12

	// formatCount is the number of formats (for internal use).
	formatCount
)

// Layout classifies how a format arranges pixels in memory.
type Layout uint8

const (
	// LayoutNone marks an unknown format.
	LayoutNone Layout = iota
	// LayoutPacked stores whole pixels of BytesPerPixel bytes.
	LayoutPacked
	// LayoutPacked422 stores pixel pairs in 4-byte macropixels.
	LayoutPacked422
	// LayoutPlanar420 stores a full luma plane and quarter-size chroma.
	LayoutPlanar420
	// LayoutBlock stores fixed-size compressed blocks.
	LayoutBlock
)

// Info contains metadata about a pixel format.
type Info struct {
	Name string

	Layout Layout

	// BytesPerPixel is the size of a packed pixel (0 for non-packed layouts).
	BytesPerPixel int

	// Channels is the number of stored channels.
	Channels int

	// BitsPerChannel is the storage width of one channel.
	BitsPerChannel int

	// HasAlpha indicates an alpha channel; AlphaOffset is its byte offset
	// within a packed pixel.
	HasAlpha    bool
	AlphaOffset int

	IsGrayscale bool
	IsIndexed   bool
	IsFloat     bool
	IsYUV       bool

	// Block geometry for LayoutBlock formats.
	BlockWidth    int
	BlockHeight   int
	BytesPerBlock int
}

func packed(name string, bpp, channels, bits int) Info {
	return Info{Name: name, Layout: LayoutPacked, BytesPerPixel: bpp, Channels: channels, BitsPerChannel: bits}
}

func withAlpha(i Info, offset int) Info {
	i.HasAlpha = true
	i.AlphaOffset = offset
	return i
}

func gray(i Info) Info {
	i.IsGrayscale = true
	return i
}

func float(i Info) Info {
	i.IsFloat = true
	return i
}

func yuv(i Info) Info {
	i.IsYUV = true
	return i
}

func block(name string, w, h, size int, alpha bool) Info {
	return Info{
		Name:          name,
		Layout:        LayoutBlock,
		HasAlpha:      alpha,
		BlockWidth:    w,
		BlockHeight:   h,
		BytesPerBlock: size,
	}
}

// infoTable contains metadata for each format.
var infoTable = [formatCount]Info{
	RGBA8:      withAlpha(packed("RGBA8", 4, 4, 8), 3),
	RGBA16:     withAlpha(packed("RGBA16", 8, 4, 16), 6),
	RGBAF:      float(withAlpha(packed("RGBAF", 16, 4, 32), 12)),
	RGB8:       packed("RGB8", 3, 3, 8),
	RGBF:       float(packed("RGBF", 12, 3, 32)),
	BGRA8:      withAlpha(packed("BGRA8", 4, 4, 8), 3),
	BGR8:       packed("BGR8", 3, 3, 8),
	BGR565:     packed("BGR565", 2, 3, 5),
	Gray8:      gray(packed("Gray8", 1, 1, 8)),
	Gray16:     gray(packed("Gray16", 2, 1, 16)),
	GrayF:      float(gray(packed("GrayF", 4, 1, 32))),
	GrayAlpha8: gray(withAlpha(packed("GrayAlpha8", 2, 2, 8), 1)),
	A8:         withAlpha(packed("A8", 1, 1, 8), 0),
	Indexed8:   {Name: "Indexed8", Layout: LayoutPacked, BytesPerPixel: 1, Channels: 1, BitsPerChannel: 8, IsIndexed: true},
	YUVA8:      yuv(withAlpha(packed("YUVA8", 4, 4, 8), 3)),
	YUV8:       yuv(packed("YUV8", 3, 3, 8)),
	YUYV8:      {Name: "YUYV8", Layout: LayoutPacked422, Channels: 3, BitsPerChannel: 8, IsYUV: true},
	UYVY8:      {Name: "UYVY8", Layout: LayoutPacked422, Channels: 3, BitsPerChannel: 8, IsYUV: true},
	I420:       {Name: "I420", Layout: LayoutPlanar420, Channels: 3, BitsPerChannel: 8, IsYUV: true},
	NV12:       {Name: "NV12", Layout: LayoutPlanar420, Channels: 3, BitsPerChannel: 8, IsYUV: true},

	BC1:       block("BC1", 4, 4, 8, true),
	BC2:       block("BC2", 4, 4, 16, true),
	BC3:       block("BC3", 4, 4, 16, true),
	BC4:       block("BC4", 4, 4, 8, false),
	BC5:       block("BC5", 4, 4, 16, false),
	BC6H:      block("BC6H", 4, 4, 16, false),
	BC7:       block("BC7", 4, 4, 16, true),
	ETC1:      block("ETC1", 4, 4, 8, false),
	ETC2RGB:   block("ETC2RGB", 4, 4, 8, false),
	ETC2RGBA1: block("ETC2RGBA1", 4, 4, 8, true),
	ETC2RGBA8: block("ETC2RGBA8", 4, 4, 16, true),
	EACR11:    block("EACR11", 4, 4, 8, false),
	EACRG11:   block("EACRG11", 4, 4, 16, false),
	PVRTC2:    block("PVRTC2", 8, 4, 8, true),
	PVRTC4:    block("PVRTC4", 4, 4, 8, true),
	ASTC4x4:   block("ASTC4x4", 4, 4, 16, true),
	ASTC5x4:   block("ASTC5x4", 5, 4, 16, true),
	ASTC5x5:   block("ASTC5x5", 5, 5, 16, true),
	ASTC6x5:   block("ASTC6x5", 6, 5, 16, true),
	ASTC6x6:   block("ASTC6x6", 6, 6, 16, true),
	ASTC8x5:   block("ASTC8x5", 8, 5, 16, true),
	ASTC8x6:   block("ASTC8x6", 8, 6, 16, true),
	ASTC8x8:   block("ASTC8x8", 8, 8, 16, true),
	ASTC10x5:  block("ASTC10x5", 10, 5, 16, true),
	ASTC10x6:  block("ASTC10x6", 10, 6, 16, true),
	ASTC10x8:  block("ASTC10x8", 10, 8, 16, true),
	ASTC10x10: block("ASTC10x10", 10, 10, 16, true),
	ASTC12x10: block("ASTC12x10", 12, 10, 16, true),
	ASTC12x12: block("ASTC12x12", 12, 12, 16, true),
}

// Info returns the metadata for f. Unknown formats yield the zero Info.
func (f Format) Info() Info {
	if !f.IsValid() {
		return Info{}
	}
	return infoTable[f]
}

// IsValid returns true if f is a known format.
func (f Format) IsValid() bool {
	return f > Unknown && f < formatCount
}

// String returns the format name.
func (f Format) String() string {
	if !f.IsValid() {
		return "Unknown"
	}
	return infoTable[f].Name
}

// BytesPerPixel returns the packed pixel size, or 0 for non-packed layouts.
func (f Format) BytesPerPixel() int { return f.Info().BytesPerPixel }

// HasAlpha returns true if f carries an alpha channel.
func (f Format) HasAlpha() bool { return f.Info().HasAlpha }

// IsCompressed returns true for block-compressed formats.
func (f Format) IsCompressed() bool { return f.Info().Layout == LayoutBlock }

// IsIndexed returns true for palette-indexed formats.
func (f Format) IsIndexed() bool { return f.Info().IsIndexed }

// Formats returns every known format in declaration order.
func Formats() []Format {
	out := make([]Format, 0, formatCount-1)
	for f := Unknown + 1; f < formatCount; f++ {
		out = append(out, f)
	}
	return out
}

// Parse returns the format with the given name.
func Parse(name string) (Format, bool) {
	for f := Unknown + 1; f < formatCount; f++ {
		if infoTable[f].Name == name {
			return f, true
		}
	}
	return Unknown, false
}
