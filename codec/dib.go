package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
	"github.com/daramkun/dseed/pixelop"
)

const (
	dibFileHeaderSize = 14
	dibInfoHeaderSize = 40
	biRGB             = 0

	// 72 DPI expressed in pixels per meter.
	dibDefaultPPM = 2835
)

func dibStride(width, bitCount int) int { return ((width*bitCount + 31) / 32) * 4 }

type dibInfo struct {
	headerSize  int
	width       int
	height      int
	topDown     bool
	bitCount    int
	compression uint32
	sizeImage   uint32
	xppm, yppm  int32
	clrUsed     int
}

// parseDIBInfo reads a BITMAPINFOHEADER and skips any extension bytes of
// newer header versions.
func parseDIBInfo(s dseed.Stream, icon bool) (dibInfo, error) {
	var h [dibInfoHeaderSize]byte
	if err := readBody("dib", s, h[:]); err != nil {
		return dibInfo{}, err
	}
	info := dibInfo{
		headerSize:  int(binary.LittleEndian.Uint32(h[0:])),
		width:       int(int32(binary.LittleEndian.Uint32(h[4:]))),
		height:      int(int32(binary.LittleEndian.Uint32(h[8:]))),
		bitCount:    int(binary.LittleEndian.Uint16(h[14:])),
		compression: binary.LittleEndian.Uint32(h[16:]),
		sizeImage:   binary.LittleEndian.Uint32(h[20:]),
		xppm:        int32(binary.LittleEndian.Uint32(h[24:])),
		yppm:        int32(binary.LittleEndian.Uint32(h[28:])),
		clrUsed:     int(binary.LittleEndian.Uint32(h[32:])),
	}
	if info.headerSize < dibInfoHeaderSize {
		return dibInfo{}, unsupported("dib", "info header size %d", info.headerSize)
	}
	if planes := binary.LittleEndian.Uint16(h[12:]); planes != 1 {
		return dibInfo{}, corrupted("dib", "invalid planes %d", planes)
	}
	if info.width <= 0 || info.height == 0 {
		return dibInfo{}, corrupted("dib", "invalid dimensions %dx%d", info.width, info.height)
	}
	if info.height < 0 {
		info.height = -info.height
		info.topDown = true
	}
	if icon {
		// Icon headers count the XOR and AND bitmaps together.
		info.height /= 2
		if info.height == 0 {
			return dibInfo{}, corrupted("dib", "icon height 0")
		}
	}
	if info.compression != biRGB {
		return dibInfo{}, unsupported("dib", "compression %d", info.compression)
	}
	if err := skip("dib", s, int64(info.headerSize-dibInfoHeaderSize)); err != nil {
		return dibInfo{}, err
	}
	return info, nil
}

func (info dibInfo) format() (pixelformat.Format, error) {
	switch info.bitCount {
	case 1, 4, 8:
		return pixelformat.Indexed8, nil
	case 24:
		return pixelformat.BGR8, nil
	case 32:
		return pixelformat.BGRA8, nil
	default:
		return pixelformat.Unknown, unsupported("dib", "bit count %d", info.bitCount)
	}
}

func readDIBPalette(s dseed.Stream, info dibInfo) (*bitmap.Palette, error) {
	if info.bitCount > 8 {
		return nil, nil
	}
	n := info.clrUsed
	if n == 0 {
		n = 1 << info.bitCount
	}
	if n > bitmap.PaletteSize {
		return nil, corrupted("dib", "palette size %d", n)
	}
	buf := make([]byte, n*4)
	if err := readBody("dib", s, buf); err != nil {
		return nil, err
	}
	return bitmap.PaletteFromBGRA(buf, n, true), nil
}

// readDIBPixels reads the XOR bitmap into a new top-down bitmap. The
// stream must still hold every row.
func readDIBPixels(s dseed.Stream, info dibInfo, palette *bitmap.Palette) (*bitmap.Bitmap, error) {
	format, err := info.format()
	if err != nil {
		return nil, err
	}
	if info.width > bitmap.MaxSide || info.height > bitmap.MaxSide {
		return nil, corrupted("dib", "dimensions %dx%d exceed %d", info.width, info.height, bitmap.MaxSide)
	}
	if need, left := int64(dibStride(info.width, info.bitCount))*int64(info.height), dseed.Remaining(s); left >= 0 && need > left {
		return nil, corrupted("dib", "%dx%d pixels need %d bytes, %d left", info.width, info.height, need, left)
	}
	if format == pixelformat.Indexed8 && info.bitCount == 8 && palette.IsGrayRamp() {
		format, palette = pixelformat.Gray8, nil
	}
	b, err := bitmap.New(bitmap.Kind2D, dseed.Size3(info.width, info.height, 1), format, palette)
	if err != nil {
		return nil, err
	}

	src := make([]byte, dibStride(info.width, info.bitCount))
	stride := b.Stride()
	err = b.Access(func(pix []byte) error {
		for i := range info.height {
			if err := readBody("dib", s, src); err != nil {
				return err
			}
			y := info.height - 1 - i
			if info.topDown {
				y = i
			}
			unpackDIBRow(pix[y*stride:(y+1)*stride], src, info.width, info.bitCount)
		}
		return nil
	})
	if err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func unpackDIBRow(dst, src []byte, width, bitCount int) {
	switch bitCount {
	case 1:
		for x := range width {
			dst[x] = (src[x/8] >> (7 - uint(x%8))) & 1
		}
	case 4:
		for x := range width {
			dst[x] = (src[x/2] >> (4 * uint(1-x%2))) & 0x0f
		}
	default:
		copy(dst, src[:width*bitCount/8])
	}
}

// DecodeDIB decodes a Windows BMP file (BITMAPFILEHEADER + BITMAPINFOHEADER,
// uncompressed only).
func DecodeDIB(s dseed.Stream) (*bitmap.Array, error) {
	var fh [dibFileHeaderSize]byte
	if err := probe("dib", s, fh[:]); err != nil {
		return nil, err
	}
	if fh[0] != 'B' || fh[1] != 'M' {
		return nil, notFormat("dib", "missing BM signature")
	}
	offBits := int64(binary.LittleEndian.Uint32(fh[10:]))

	info, err := parseDIBInfo(s, false)
	if err != nil {
		return nil, err
	}
	palette, err := readDIBPalette(s, info)
	if err != nil {
		return nil, err
	}
	if offBits != 0 {
		cur := s.Position()
		if offBits < cur {
			return nil, corrupted("dib", "bad bfOffBits %d", offBits)
		}
		if err := skip("dib", s, offBits-cur); err != nil {
			return nil, err
		}
	}

	b, err := readDIBPixels(s, info, palette)
	if err != nil {
		return nil, err
	}
	if info.xppm > 0 && info.yppm > 0 {
		b.Attributes().SetSize(dseed.AttrResolution, dseed.Size2i{Width: int(info.xppm), Height: int(info.yppm)})
	}
	b.Attributes().SetString(dseed.AttrContainer, "dib")
	return bitmap.Single(b), nil
}

// decodeIconDIB decodes an icon-mode DIB: no file header, doubled height
// and a 1 bpp AND mask after the colour bits.
func decodeIconDIB(s dseed.Stream) (*bitmap.Bitmap, error) {
	info, err := parseDIBInfo(s, true)
	if err != nil {
		return nil, err
	}
	palette, err := readDIBPalette(s, info)
	if err != nil {
		return nil, err
	}
	b, err := readDIBPixels(s, info, palette)
	if err != nil {
		return nil, err
	}
	if info.bitCount == 32 {
		return b, nil
	}

	maskStride := dibStride(info.width, 1)
	mask := make([]byte, maskStride*info.height)
	if s.Length()-s.Position() < int64(len(mask)) {
		// Some writers omit the mask of opaque icons.
		return b, nil
	}
	if err := readBody("dib", s, mask); err != nil {
		b.Release()
		return nil, err
	}
	hasMask := false
	for _, v := range mask {
		if v != 0 {
			hasMask = true
			break
		}
	}
	if !hasMask {
		return b, nil
	}

	out, err := pixelop.Convert(b, pixelformat.BGRA8)
	b.Release()
	if err != nil {
		return nil, err
	}
	err = out.Access(func(pix []byte) error {
		stride := out.Stride()
		for i := range info.height {
			y := info.height - 1 - i
			if info.topDown {
				y = i
			}
			row := mask[i*maskStride:]
			for x := range info.width {
				if row[x/8]&(0x80>>uint(x%8)) != 0 {
					pix[y*stride+x*4+3] = 0
				}
			}
		}
		return nil
	})
	if err != nil {
		out.Release()
		return nil, err
	}
	return out, nil
}

// dibLayout describes how a bitmap is stored in a DIB.
type dibLayout struct {
	bitCount int
	palette  *bitmap.Palette
}

func dibLayoutFor(b *bitmap.Bitmap) (dibLayout, error) {
	if b.Depth() != 1 {
		return dibLayout{}, fmt.Errorf("dib: depth %d: %w", b.Depth(), dseed.ErrInvalidArgs)
	}
	switch b.Format() {
	case pixelformat.BGRA8:
		return dibLayout{bitCount: 32}, nil
	case pixelformat.BGR8:
		return dibLayout{bitCount: 24}, nil
	case pixelformat.Indexed8:
		p := b.Palette()
		if p == nil {
			p = bitmap.NewPalette(nil)
		}
		return dibLayout{bitCount: 8, palette: p}, nil
	case pixelformat.Gray8:
		return dibLayout{bitCount: 8, palette: bitmap.GrayPalette()}, nil
	default:
		return dibLayout{}, fmt.Errorf("dib: encode %s: %w", b.Format(), dseed.ErrNotSupport)
	}
}

func (l dibLayout) paletteBytes() int {
	if l.palette == nil {
		return 0
	}
	return bitmap.PaletteSize * 4
}

func putDIBInfo(h []byte, width, height, bitCount int, sizeImage uint32, withPalette bool) {
	binary.LittleEndian.PutUint32(h[0:], dibInfoHeaderSize)
	binary.LittleEndian.PutUint32(h[4:], uint32(width))
	binary.LittleEndian.PutUint32(h[8:], uint32(height))
	binary.LittleEndian.PutUint16(h[12:], 1)
	binary.LittleEndian.PutUint16(h[14:], uint16(bitCount))
	binary.LittleEndian.PutUint32(h[16:], biRGB)
	binary.LittleEndian.PutUint32(h[20:], sizeImage)
	binary.LittleEndian.PutUint32(h[24:], dibDefaultPPM)
	binary.LittleEndian.PutUint32(h[28:], dibDefaultPPM)
	if withPalette {
		binary.LittleEndian.PutUint32(h[32:], bitmap.PaletteSize)
	}
}

// writeDIBBits writes the palette and bottom-up colour rows, plus the AND
// mask when icon is set. Alpha 0 texels of BGRA8 icons are masked out.
func writeDIBBits(w io.Writer, b *bitmap.Bitmap, l dibLayout, icon bool) error {
	if l.palette != nil {
		buf := make([]byte, l.paletteBytes())
		l.palette.PutBGRA(buf, bitmap.PaletteSize, true)
		if err := dseed.WriteFull(w, buf); err != nil {
			return err
		}
	}

	width, height, stride := b.Width(), b.Height(), b.Stride()
	rowBytes := width * l.bitCount / 8
	return b.Access(func(pix []byte) error {
		row := make([]byte, dibStride(width, l.bitCount))
		for y := height - 1; y >= 0; y-- {
			copy(row, pix[y*stride:y*stride+rowBytes])
			if err := dseed.WriteFull(w, row); err != nil {
				return err
			}
		}
		if !icon {
			return nil
		}
		mask := make([]byte, dibStride(width, 1))
		for y := height - 1; y >= 0; y-- {
			clear(mask)
			if l.bitCount == 32 {
				for x := range width {
					if pix[y*stride+x*4+3] == 0 {
						mask[x/8] |= 0x80 >> uint(x%8)
					}
				}
			}
			if err := dseed.WriteFull(w, mask); err != nil {
				return err
			}
		}
		return nil
	})
}

// dibBitsSize is the byte size of the colour rows plus, for icons, the mask.
func dibBitsSize(width, height, bitCount int, icon bool) int {
	n := dibStride(width, bitCount) * height
	if icon {
		n += dibStride(width, 1) * height
	}
	return n
}

// encodeIconDIB writes b as an icon-mode DIB (no file header).
func encodeIconDIB(w io.Writer, b *bitmap.Bitmap) error {
	l, err := dibLayoutFor(b)
	if err != nil {
		return err
	}
	var h [dibInfoHeaderSize]byte
	size := dibBitsSize(b.Width(), b.Height(), l.bitCount, true)
	putDIBInfo(h[:], b.Width(), b.Height()*2, l.bitCount, uint32(size), l.palette != nil)
	if err := dseed.WriteFull(w, h[:]); err != nil {
		return err
	}
	return writeDIBBits(w, b, l, true)
}

type encoderState uint8

const (
	stateIdle encoderState = iota
	stateFramed
	stateCommitted
)

// DIBEncoder writes a single bitmap as a BMP file.
//
// EncodeFrame writes both headers with zeroed size fields and streams the
// pixel rows; Commit seeks back, patches bfSize and biSizeImage with the
// real totals and restores the cursor to the end of the file.
type DIBEncoder struct {
	s       dseed.Stream
	start   int64
	offBits int64
	state   encoderState
}

// NewDIBEncoder starts a BMP file at the current position of s, which must
// be writable and seekable.
func NewDIBEncoder(s dseed.Stream) (*DIBEncoder, error) {
	if !s.CanWrite() || !s.CanSeek() {
		return nil, fmt.Errorf("dib: stream must be writable and seekable: %w", dseed.ErrInvalidArgs)
	}
	return &DIBEncoder{s: s, start: s.Position()}, nil
}

// EncodeFrame writes b. A BMP file holds exactly one frame.
func (e *DIBEncoder) EncodeFrame(b *bitmap.Bitmap) error {
	switch e.state {
	case stateCommitted:
		return fmt.Errorf("dib: encoder already committed: %w", dseed.ErrInvalidOp)
	case stateFramed:
		return fmt.Errorf("dib: only one frame per file: %w", dseed.ErrInvalidOp)
	}
	l, err := dibLayoutFor(b)
	if err != nil {
		return err
	}

	e.offBits = int64(dibFileHeaderSize + dibInfoHeaderSize + l.paletteBytes())
	var h [dibFileHeaderSize + dibInfoHeaderSize]byte
	h[0], h[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(h[10:], uint32(e.offBits))
	putDIBInfo(h[dibFileHeaderSize:], b.Width(), b.Height(), l.bitCount, 0, l.palette != nil)
	if err := dseed.WriteFull(e.s, h[:]); err != nil {
		return err
	}
	if err := writeDIBBits(e.s, b, l, false); err != nil {
		return err
	}
	e.state = stateFramed
	return nil
}

// Commit patches the size fields. It must be called exactly once, after
// EncodeFrame.
func (e *DIBEncoder) Commit() error {
	switch e.state {
	case stateCommitted:
		return fmt.Errorf("dib: encoder already committed: %w", dseed.ErrInvalidOp)
	case stateIdle:
		return fmt.Errorf("dib: commit without a frame: %w", dseed.ErrInvalidOp)
	}
	end := e.s.Position()
	total := end - e.start
	if err := dseed.PatchUint32(e.s, e.start+2, uint32(total)); err != nil {
		return err
	}
	if err := dseed.PatchUint32(e.s, e.start+dibFileHeaderSize+20, uint32(total-e.offBits)); err != nil {
		return err
	}
	if _, err := e.s.Seek(end, io.SeekStart); err != nil {
		return err
	}
	e.state = stateCommitted
	dseed.Logger().Debug("dib: committed", "bytes", total)
	return nil
}

// EncodeDIB writes b as a complete BMP file.
func EncodeDIB(s dseed.Stream, b *bitmap.Bitmap) error {
	e, err := NewDIBEncoder(s)
	if err != nil {
		return err
	}
	if err := e.EncodeFrame(b); err != nil {
		return err
	}
	return e.Commit()
}
