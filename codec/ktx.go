package codec

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

var (
	ktx1Identifier = []byte{0xab, 'K', 'T', 'X', ' ', '1', '1', 0xbb, '\r', '\n', 0x1a, '\n'}
	ktx2Identifier = []byte{0xab, 'K', 'T', 'X', ' ', '2', '0', 0xbb, '\r', '\n', 0x1a, '\n'}
)

const (
	ktxEndianness  = 0x04030201
	ktxWriterKey   = "KTXwriter"
	ktx1HeaderSize = 64
	ktx2HeaderSize = 80
	ktx2LevelSize  = 24
)

// glInternalFormats maps sized OpenGL internal formats.
var glInternalFormats = map[uint32]pixelformat.Format{
	0x8058: pixelformat.RGBA8,
	0x8051: pixelformat.RGB8,
	0x8229: pixelformat.Gray8,
	0x8040: pixelformat.Gray8,
	0x805b: pixelformat.RGBA16,
	0x8814: pixelformat.RGBAF,
	0x8815: pixelformat.RGBF,
	0x822e: pixelformat.GrayF,
	0x822a: pixelformat.Gray16,
	0x8d62: pixelformat.BGR565,

	0x83f0: pixelformat.BC1,
	0x83f1: pixelformat.BC1,
	0x83f2: pixelformat.BC2,
	0x83f3: pixelformat.BC3,
	0x8dbb: pixelformat.BC4,
	0x8dbd: pixelformat.BC5,
	0x8e8c: pixelformat.BC7,
	0x8e8e: pixelformat.BC6H,
	0x8e8f: pixelformat.BC6H,

	0x8d64: pixelformat.ETC1,
	0x9274: pixelformat.ETC2RGB,
	0x9275: pixelformat.ETC2RGB,
	0x9276: pixelformat.ETC2RGBA1,
	0x9277: pixelformat.ETC2RGBA1,
	0x9278: pixelformat.ETC2RGBA8,
	0x9279: pixelformat.ETC2RGBA8,
	0x9270: pixelformat.EACR11,
	0x9272: pixelformat.EACRG11,

	0x8c00: pixelformat.PVRTC4,
	0x8c01: pixelformat.PVRTC2,
	0x8c02: pixelformat.PVRTC4,
	0x8c03: pixelformat.PVRTC2,
}

// glUnsized maps unsized glFormat values paired with GL_UNSIGNED_BYTE.
var glUnsized = map[uint32]pixelformat.Format{
	0x1908: pixelformat.RGBA8,
	0x1907: pixelformat.RGB8,
	0x80e1: pixelformat.BGRA8,
	0x80e0: pixelformat.BGR8,
	0x1903: pixelformat.Gray8,
	0x1909: pixelformat.Gray8,
	0x1906: pixelformat.A8,
	0x190a: pixelformat.GrayAlpha8,
}

const glUnsignedByte = 0x1401

// vkFormats maps Vulkan formats used by KTX2.
var vkFormats = map[uint32]pixelformat.Format{
	9:   pixelformat.Gray8,
	23:  pixelformat.RGB8,
	29:  pixelformat.BGR8,
	37:  pixelformat.RGBA8,
	43:  pixelformat.RGBA8,
	44:  pixelformat.BGRA8,
	50:  pixelformat.BGRA8,
	70:  pixelformat.Gray16,
	91:  pixelformat.RGBA16,
	100: pixelformat.GrayF,
	106: pixelformat.RGBF,
	109: pixelformat.RGBAF,

	131: pixelformat.BC1,
	132: pixelformat.BC1,
	133: pixelformat.BC1,
	134: pixelformat.BC1,
	135: pixelformat.BC2,
	136: pixelformat.BC2,
	137: pixelformat.BC3,
	138: pixelformat.BC3,
	139: pixelformat.BC4,
	141: pixelformat.BC5,
	143: pixelformat.BC6H,
	145: pixelformat.BC7,
	146: pixelformat.BC7,
	147: pixelformat.ETC2RGB,
	148: pixelformat.ETC2RGB,
	149: pixelformat.ETC2RGBA1,
	150: pixelformat.ETC2RGBA1,
	151: pixelformat.ETC2RGBA8,
	152: pixelformat.ETC2RGBA8,
	153: pixelformat.EACR11,
	155: pixelformat.EACRG11,
}

func init() {
	astc := []pixelformat.Format{
		pixelformat.ASTC4x4, pixelformat.ASTC5x4, pixelformat.ASTC5x5, pixelformat.ASTC6x5,
		pixelformat.ASTC6x6, pixelformat.ASTC8x5, pixelformat.ASTC8x6, pixelformat.ASTC8x8,
		pixelformat.ASTC10x5, pixelformat.ASTC10x6, pixelformat.ASTC10x8, pixelformat.ASTC10x10,
		pixelformat.ASTC12x10, pixelformat.ASTC12x12,
	}
	for i, f := range astc {
		glInternalFormats[0x93b0+uint32(i)] = f
		glInternalFormats[0x93d0+uint32(i)] = f
		vkFormats[157+2*uint32(i)] = f
		vkFormats[158+2*uint32(i)] = f
	}
}

// ktxGeometry resolves the bitmap kind and size of a KTX texture from its
// header fields. Zero height, depth or layer count mean "not present".
func ktxGeometry(codec string, width, height, depth, layers, faces int) (bitmap.Kind, dseed.Size3i, error) {
	if width == 0 {
		return 0, dseed.Size3i{}, corrupted(codec, "zero width")
	}
	if max(width, height, depth, layers) > bitmap.MaxSide {
		return 0, dseed.Size3i{}, corrupted(codec, "dimensions %dx%dx%d, %d layers exceed %d", width, height, depth, layers, bitmap.MaxSide)
	}
	height = max(height, 1)
	switch {
	case faces == 6:
		if depth > 1 || width != height {
			return 0, dseed.Size3i{}, corrupted(codec, "invalid cube map")
		}
		return bitmap.KindCube, dseed.Size3(width, height, max(layers, 1)*6), nil
	case faces != 1:
		return 0, dseed.Size3i{}, corrupted(codec, "face count %d", faces)
	case depth > 1:
		if layers > 1 {
			return 0, dseed.Size3i{}, unsupported(codec, "3D texture arrays")
		}
		return bitmap.Kind3D, dseed.Size3(width, height, depth), nil
	}
	return bitmap.Kind2D, dseed.Size3(width, height, max(layers, 1)), nil
}

// ktxPlane returns the stored plane size and row pitch of one image of
// format f. Uncompressed rows are padded to align bytes.
func ktxPlane(f pixelformat.Format, width, height, align int) (plane, pitch int) {
	if bpp := f.BytesPerPixel(); bpp > 0 {
		pitch = (width*bpp + align - 1) / align * align
		return pitch * height, pitch
	}
	return pixelformat.PlaneSize(f, width, height), 0
}

// fillKTXImages copies count images of the given stored layout from src
// into b, starting at slice first.
func fillKTXImages(b *bitmap.Bitmap, pix, src []byte, first, count, plane, pitch int) {
	f := b.Format()
	stride, dstPlane := b.Stride(), b.PlaneSize()
	for i := range count {
		dst := pix[(first+i)*dstPlane:]
		img := src[i*plane:]
		if pitch > 0 {
			copyRows(dst, stride, img, pitch, b.Width()*f.BytesPerPixel(), b.Height())
		} else {
			copy(dst[:dstPlane], img[:plane])
		}
	}
}

// parseKTXKeyValues reads KTX key/value pairs. Each entry is a 32-bit
// length, a NUL-terminated key and a value, padded to 4 bytes.
func parseKTXKeyValues(data []byte, order binary.ByteOrder, attrs *dseed.Attributes) {
	for len(data) >= 4 {
		n := int(order.Uint32(data))
		data = data[4:]
		if n > len(data) {
			return
		}
		kv := data[:n]
		if k, v, ok := bytes.Cut(kv, []byte{0}); ok && string(k) == ktxWriterKey {
			attrs.SetString(dseed.AttrSoftware, strings.TrimRight(string(v), "\x00"))
		}
		data = data[min(len(data), (n+3)&^3):]
	}
}

// DecodeKTX decodes Khronos textures in both the KTX 1.1 and KTX 2.0
// containers. Only the top mip level is kept; the stored level count is
// reported in AttrMipLevels. KTX2 levels may be zstd or zlib
// supercompressed.
func DecodeKTX(s dseed.Stream) (*bitmap.Array, error) {
	var id [12]byte
	if err := probe("ktx", s, id[:]); err != nil {
		return nil, err
	}
	switch {
	case bytes.Equal(id[:], ktx1Identifier):
		return decodeKTX1(s)
	case bytes.Equal(id[:], ktx2Identifier):
		return decodeKTX2(s)
	}
	return nil, notFormat("ktx", "missing KTX identifier")
}

func decodeKTX1(s dseed.Stream) (*bitmap.Array, error) {
	var h [ktx1HeaderSize - 12]byte
	if err := readBody("ktx", s, h[:]); err != nil {
		return nil, err
	}
	var order binary.ByteOrder = binary.LittleEndian
	switch binary.LittleEndian.Uint32(h[0:]) {
	case ktxEndianness:
	case 0x01020304:
		order = binary.BigEndian
	default:
		return nil, corrupted("ktx", "bad endianness marker")
	}
	field := func(i int) uint32 { return order.Uint32(h[4+4*i:]) }
	glType, typeSize, glFormat, internal := field(0), int(field(1)), field(2), field(3)
	width, height, depth := int(field(5)), int(field(6)), int(field(7))
	layers, faces, mips, kvLen := int(field(8)), int(field(9)), int(field(10)), int(field(11))

	format, ok := glInternalFormats[internal]
	if !ok && glType == glUnsignedByte {
		format, ok = glUnsized[glFormat]
	}
	if !ok {
		return nil, unsupported("ktx", "GL internal format %#x", internal)
	}
	kind, size, err := ktxGeometry("ktx", width, height, depth, layers, faces)
	if err != nil {
		return nil, err
	}

	if s.Position()+int64(kvLen) > s.Length() {
		return nil, corrupted("ktx", "truncated key/value data")
	}
	kv := make([]byte, kvLen)
	if err := readBody("ktx", s, kv); err != nil {
		return nil, err
	}
	var sizeBuf [4]byte
	if err := readBody("ktx", s, sizeBuf[:]); err != nil {
		return nil, err
	}
	imageSize := int(order.Uint32(sizeBuf[:]))

	plane, pitch := ktxPlane(format, size.Width, size.Height, 4)
	slices := size.Depth
	perBlock := plane * slices
	cubeFaces := kind == bitmap.KindCube && layers == 0
	if cubeFaces {
		perBlock = plane
	}
	if imageSize != perBlock {
		return nil, corrupted("ktx", "image size %d, expected %d", imageSize, perBlock)
	}
	need := int64(perBlock)
	if cubeFaces {
		need *= 6
	}
	if left := dseed.Remaining(s); left >= 0 && need > left {
		return nil, corrupted("ktx", "images need %d bytes, %d left", need, left)
	}

	b, err := bitmap.New(kind, size, format, nil)
	if err != nil {
		return nil, err
	}
	err = b.Access(func(pix []byte) error {
		if cubeFaces {
			buf := make([]byte, plane)
			pad := int64((4 - plane%4) % 4)
			for face := range 6 {
				if err := readBody("ktx", s, buf); err != nil {
					return err
				}
				swapKTX(buf, order, typeSize)
				fillKTXImages(b, pix, buf, face, 1, plane, pitch)
				if err := skip("ktx", s, pad); err != nil {
					return err
				}
			}
			return nil
		}
		buf := make([]byte, perBlock)
		if err := readBody("ktx", s, buf); err != nil {
			return err
		}
		swapKTX(buf, order, typeSize)
		fillKTXImages(b, pix, buf, 0, slices, plane, pitch)
		return nil
	})
	if err != nil {
		b.Release()
		return nil, err
	}
	parseKTXKeyValues(kv, order, b.Attributes())
	b.Attributes().SetInt32(dseed.AttrMipLevels, int32(max(mips, 1)))
	b.Attributes().SetString(dseed.AttrContainer, "ktx")
	return bitmap.Single(b), nil
}

// swapKTX converts big-endian texel data of typeSize-byte elements to
// little-endian in place.
func swapKTX(buf []byte, order binary.ByteOrder, typeSize int) {
	if order == binary.LittleEndian || typeSize <= 1 {
		return
	}
	for i := 0; i+typeSize <= len(buf); i += typeSize {
		for a, z := i, i+typeSize-1; a < z; a, z = a+1, z-1 {
			buf[a], buf[z] = buf[z], buf[a]
		}
	}
}

func decodeKTX2(s dseed.Stream) (*bitmap.Array, error) {
	var h [ktx2HeaderSize - 12]byte
	if err := readBody("ktx", s, h[:]); err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	vk := le.Uint32(h[0:])
	width, height, depth := int(le.Uint32(h[8:])), int(le.Uint32(h[12:])), int(le.Uint32(h[16:]))
	layers, faces, levels := int(le.Uint32(h[20:])), int(le.Uint32(h[24:])), int(le.Uint32(h[28:]))
	scheme := Supercompression(le.Uint32(h[32:]))
	kvdOffset, kvdLen := int64(le.Uint32(h[44:])), int64(le.Uint32(h[48:]))

	if vk == 0 {
		return nil, unsupported("ktx", "VK_FORMAT_UNDEFINED (Basis Universal)")
	}
	format, ok := vkFormats[vk]
	if !ok {
		return nil, unsupported("ktx", "Vulkan format %d", vk)
	}
	if !scheme.valid() {
		return nil, unsupported("ktx", "supercompression scheme %d", scheme)
	}
	kind, size, err := ktxGeometry("ktx", width, height, depth, layers, faces)
	if err != nil {
		return nil, err
	}

	var lvl [ktx2LevelSize]byte
	if err := readBody("ktx", s, lvl[:]); err != nil {
		return nil, err
	}
	offset, length := int64(le.Uint64(lvl[0:])), int64(le.Uint64(lvl[8:]))
	rawLen := int64(le.Uint64(lvl[16:]))

	plane, pitch := ktxPlane(format, size.Width, size.Height, 1)
	want := int64(plane * size.Depth)
	if scheme == SupercompressionNone {
		rawLen = length
	}
	if rawLen != want {
		return nil, corrupted("ktx", "level 0 holds %d bytes, expected %d", rawLen, want)
	}
	if want > bitmap.MaxBytes {
		return nil, corrupted("ktx", "level 0 holds %d bytes, limit %d", want, bitmap.MaxBytes)
	}
	if offset < 0 || length < 0 || offset+length > s.Length() || kvdOffset+kvdLen > s.Length() {
		return nil, corrupted("ktx", "index points past end of file")
	}

	kv := make([]byte, kvdLen)
	if kvdLen > 0 {
		if _, err := s.Seek(kvdOffset, io.SeekStart); err != nil {
			return nil, err
		}
		if err := readBody("ktx", s, kv); err != nil {
			return nil, err
		}
	}
	if _, err := s.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	stored := make([]byte, length)
	if err := readBody("ktx", s, stored); err != nil {
		return nil, err
	}
	data, err := scheme.inflate(stored, int(want))
	if err != nil {
		return nil, corrupted("ktx", "%s level: %v", scheme, err)
	}
	if len(data) != int(want) {
		return nil, corrupted("ktx", "level inflated to %d bytes, expected %d", len(data), want)
	}

	b, err := bitmap.New(kind, size, format, nil)
	if err != nil {
		return nil, err
	}
	err = b.Access(func(pix []byte) error {
		fillKTXImages(b, pix, data, 0, size.Depth, plane, pitch)
		return nil
	})
	if err != nil {
		b.Release()
		return nil, err
	}
	parseKTXKeyValues(kv, le, b.Attributes())
	b.Attributes().SetInt32(dseed.AttrMipLevels, int32(max(levels, 1)))
	b.Attributes().SetString(dseed.AttrContainer, "ktx2")
	return bitmap.Single(b), nil
}
