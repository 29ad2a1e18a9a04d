package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
	"github.com/daramkun/dseed/pixelop"
)

// Supercompression is a KTX2 level compression scheme.
type Supercompression uint32

const (
	SupercompressionNone Supercompression = 0
	// SupercompressionBasisLZ is recognized but not decoded.
	SupercompressionBasisLZ Supercompression = 1
	SupercompressionZstd    Supercompression = 2
	SupercompressionZlib    Supercompression = 3
)

func (c Supercompression) String() string {
	switch c {
	case SupercompressionNone:
		return "none"
	case SupercompressionBasisLZ:
		return "basislz"
	case SupercompressionZstd:
		return "zstd"
	case SupercompressionZlib:
		return "zlib"
	}
	return fmt.Sprintf("Supercompression(%d)", uint32(c))
}

func (c Supercompression) valid() bool {
	return c == SupercompressionNone || c == SupercompressionZstd || c == SupercompressionZlib
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// inflate undoes the scheme; sizeHint is the expected output length.
func (c Supercompression) inflate(data []byte, sizeHint int) ([]byte, error) {
	switch c {
	case SupercompressionZstd:
		dec := zstdDecPool.Get().(*zstd.Decoder)
		defer zstdDecPool.Put(dec)
		return dec.DecodeAll(data, make([]byte, 0, sizeHint))
	case SupercompressionZlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		out := bytes.NewBuffer(make([]byte, 0, sizeHint))
		if _, err := io.Copy(out, io.LimitReader(r, int64(sizeHint)+1)); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	return data, nil
}

func (c Supercompression) deflate(data []byte) ([]byte, error) {
	switch c {
	case SupercompressionZstd:
		enc := zstdEncPool.Get().(*zstd.Encoder)
		defer zstdEncPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	case SupercompressionZlib:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return data, nil
}

// KTX2Options configures EncodeKTX2.
type KTX2Options struct {
	Supercompression Supercompression
	// Mipmaps stores a full box-filtered mip chain instead of one level.
	Mipmaps bool
	// Writer is stored under the KTXwriter key when not empty.
	Writer string
}

// ktx2VkFormat is the inverse of vkFormats, preferring UNORM over SRGB.
var ktx2VkFormat = map[pixelformat.Format]uint32{
	pixelformat.Gray8:     9,
	pixelformat.RGB8:      23,
	pixelformat.BGR8:      29,
	pixelformat.RGBA8:     37,
	pixelformat.BGRA8:     44,
	pixelformat.Gray16:    70,
	pixelformat.RGBA16:    91,
	pixelformat.GrayF:     100,
	pixelformat.RGBF:      106,
	pixelformat.RGBAF:     109,
	pixelformat.BC1:       133,
	pixelformat.BC2:       135,
	pixelformat.BC3:       137,
	pixelformat.BC4:       139,
	pixelformat.BC5:       141,
	pixelformat.BC6H:      143,
	pixelformat.BC7:       145,
	pixelformat.ETC2RGB:   147,
	pixelformat.ETC2RGBA1: 149,
	pixelformat.ETC2RGBA8: 151,
	pixelformat.EACR11:    153,
	pixelformat.EACRG11:   155,
}

// Khronos data format color models.
const (
	dfdModelRGBSDA = 1
	dfdModelBC1    = 128
	dfdModelETC2   = 161
	dfdModelASTC   = 162
)

// dfdChannels lists the channel ids of packed formats in byte order.
var dfdChannels = map[pixelformat.Format][]byte{
	pixelformat.Gray8:  {0},
	pixelformat.Gray16: {0},
	pixelformat.GrayF:  {0},
	pixelformat.RGB8:   {0, 1, 2},
	pixelformat.RGBF:   {0, 1, 2},
	pixelformat.BGR8:   {2, 1, 0},
	pixelformat.RGBA8:  {0, 1, 2, 15},
	pixelformat.RGBA16: {0, 1, 2, 15},
	pixelformat.RGBAF:  {0, 1, 2, 15},
	pixelformat.BGRA8:  {2, 1, 0, 15},
}

// buildDFD writes a basic data format descriptor. Packed formats get one
// sample per channel; block formats get one sample spanning the block.
func buildDFD(f pixelformat.Format) []byte {
	info := f.Info()
	model, bytesPlane := byte(dfdModelRGBSDA), info.BytesPerPixel
	bw, bh := 1, 1
	type sample struct {
		offset, length int
		channel        byte
	}
	var samples []sample
	if info.Layout == pixelformat.LayoutBlock {
		bw, bh, bytesPlane = info.BlockWidth, info.BlockHeight, info.BytesPerBlock
		switch {
		case f >= pixelformat.BC1 && f <= pixelformat.BC7:
			model = dfdModelBC1 + byte(f-pixelformat.BC1)
		case f >= pixelformat.ASTC4x4:
			model = dfdModelASTC
		default:
			model = dfdModelETC2
		}
		samples = append(samples, sample{0, bytesPlane * 8, 0})
	} else {
		for i, ch := range dfdChannels[f] {
			samples = append(samples, sample{i * info.BitsPerChannel, info.BitsPerChannel, ch})
		}
	}

	blockSize := 24 + 16*len(samples)
	out := make([]byte, 4+blockSize)
	le := binary.LittleEndian
	le.PutUint32(out[0:], uint32(len(out)))
	le.PutUint16(out[8:], 2)
	le.PutUint16(out[10:], uint16(blockSize))
	out[12] = model
	out[13] = 1 // BT.709 primaries
	out[14] = 1 // linear transfer
	out[16], out[17] = byte(bw-1), byte(bh-1)
	out[20] = byte(bytesPlane)
	for i, sm := range samples {
		p := out[28+16*i:]
		le.PutUint16(p[0:], uint16(sm.offset))
		p[2] = byte(sm.length - 1)
		p[3] = sm.channel
		if info.IsFloat {
			p[3] |= 0x80 | 0x40
			le.PutUint32(p[8:], 0xbf800000)
			le.PutUint32(p[12:], 0x3f800000)
		} else {
			le.PutUint32(p[12:], uint32(1<<min(sm.length, 32)-1))
		}
	}
	return out
}

func buildKTX2KeyValues(writer string) []byte {
	if writer == "" {
		return nil
	}
	entry := append([]byte(ktxWriterKey+"\x00"+writer), 0)
	out := make([]byte, 4, 4+len(entry)+3)
	binary.LittleEndian.PutUint32(out, uint32(len(entry)))
	out = append(out, entry...)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// EncodeKTX2 writes b as a KTX 2.0 texture. Cube maps and 2D arrays keep
// their slice layout; with Mipmaps set, the format must support
// pixelop.OpMipmap.
func EncodeKTX2(s dseed.Stream, b *bitmap.Bitmap, opts KTX2Options) error {
	if !s.CanWrite() || !s.CanSeek() {
		return fmt.Errorf("ktx: stream must be writable and seekable: %w", dseed.ErrInvalidArgs)
	}
	vk, ok := ktx2VkFormat[b.Format()]
	if !ok {
		return unsupported("ktx", "cannot store %v", b.Format())
	}
	if !opts.Supercompression.valid() {
		return unsupported("ktx", "supercompression scheme %d", opts.Supercompression)
	}

	levels := []*bitmap.Bitmap{b}
	if opts.Mipmaps {
		chain, err := pixelop.GenerateMipmaps(b)
		if err != nil {
			return err
		}
		defer chain.Release()
		levels = levels[:0]
		for i := range chain.NumLevels() {
			levels = append(levels, chain.Level(i))
		}
	}

	faces, layers, depth := 1, 0, 0
	switch b.Kind() {
	case bitmap.KindCube:
		faces = 6
		if b.Depth() > 6 {
			layers = b.Depth() / 6
		}
	case bitmap.Kind3D:
		depth = b.Depth()
	default:
		if b.Depth() > 1 {
			layers = b.Depth()
		}
	}

	type level struct {
		data   []byte
		rawLen int
	}
	stored := make([]level, len(levels))
	for i, lb := range levels {
		raw, err := packKTX2Level(lb)
		if err != nil {
			return err
		}
		data, err := opts.Supercompression.deflate(raw)
		if err != nil {
			return fmt.Errorf("ktx: %s: %w", opts.Supercompression, err)
		}
		stored[i] = level{data: data, rawLen: len(raw)}
	}

	dfd := buildDFD(b.Format())
	kvd := buildKTX2KeyValues(opts.Writer)
	dfdOffset := ktx2HeaderSize + ktx2LevelSize*len(levels)
	kvdOffset := dfdOffset + len(dfd)
	dataStart := kvdOffset + len(kvd)

	h := make([]byte, dataStart)
	le := binary.LittleEndian
	copy(h, ktx2Identifier)
	typeSize := uint32(1)
	if info := b.Format().Info(); info.Layout == pixelformat.LayoutPacked {
		typeSize = uint32(max(1, info.BitsPerChannel/8))
	}
	for i, v := range []uint32{vk, typeSize, uint32(b.Width()), uint32(b.Height()), uint32(depth),
		uint32(layers), uint32(faces), uint32(len(levels)), uint32(opts.Supercompression)} {
		le.PutUint32(h[12+4*i:], v)
	}
	le.PutUint32(h[48:], uint32(dfdOffset))
	le.PutUint32(h[52:], uint32(len(dfd)))
	if len(kvd) > 0 {
		le.PutUint32(h[56:], uint32(kvdOffset))
		le.PutUint32(h[60:], uint32(len(kvd)))
	}

	// Smallest level first in the file; the index stays in level order.
	var body bytes.Buffer
	off := dataStart
	for i := len(stored) - 1; i >= 0; i-- {
		if pad := (8 - off%8) % 8; pad > 0 && opts.Supercompression == SupercompressionNone {
			body.Write(make([]byte, pad))
			off += pad
		}
		p := h[ktx2HeaderSize+ktx2LevelSize*i:]
		le.PutUint64(p[0:], uint64(off))
		le.PutUint64(p[8:], uint64(len(stored[i].data)))
		le.PutUint64(p[16:], uint64(stored[i].rawLen))
		body.Write(stored[i].data)
		off += len(stored[i].data)
	}
	copy(h[dfdOffset:], dfd)
	copy(h[kvdOffset:], kvd)

	if err := dseed.WriteFull(s, h); err != nil {
		return err
	}
	return dseed.WriteFull(s, body.Bytes())
}

// packKTX2Level strips row padding: KTX2 images are tightly packed.
func packKTX2Level(b *bitmap.Bitmap) ([]byte, error) {
	f := b.Format()
	plane, pitch := ktxPlane(f, b.Width(), b.Height(), 1)
	out := make([]byte, plane*b.Depth())
	err := b.Access(func(pix []byte) error {
		stride, src := b.Stride(), b.PlaneSize()
		for z := range b.Depth() {
			if pitch > 0 {
				copyRows(out[z*plane:], pitch, pix[z*src:], stride, pitch, b.Height())
			} else {
				copy(out[z*plane:(z+1)*plane], pix[z*src:])
			}
		}
		return nil
	})
	return out, err
}
