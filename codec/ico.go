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
	icoHeaderSize = 6
	icoEntrySize  = 16
	icoMaxSide    = 256

	icoTypeIcon   = 1
	icoTypeCursor = 2
)

type icoEntry struct {
	width, height int
	colorCount    int
	planes        uint16 // hotspot x for cursors
	bitCount      uint16 // hotspot y for cursors
	size          uint32
	offset        uint32
}

func parseICOEntry(b []byte) (icoEntry, bool) {
	if b[3] != 0 && b[3] != 0xff {
		return icoEntry{}, false
	}
	side := func(v byte) int {
		if v == 0 {
			return icoMaxSide
		}
		return int(v)
	}
	return icoEntry{
		width:      side(b[0]),
		height:     side(b[1]),
		colorCount: int(b[2]),
		planes:     binary.LittleEndian.Uint16(b[4:]),
		bitCount:   binary.LittleEndian.Uint16(b[6:]),
		size:       binary.LittleEndian.Uint32(b[8:]),
		offset:     binary.LittleEndian.Uint32(b[12:]),
	}, true
}

// DecodeICO decodes Windows icon and cursor directories.
//
// Entries must be stored back to back in directory order: an entry whose
// offset is not the current read position is rejected as corrupted, even
// though some writers reorder payloads.
func DecodeICO(s dseed.Stream) (*bitmap.Array, error) {
	var h [icoHeaderSize]byte
	if err := probe("ico", s, h[:]); err != nil {
		return nil, err
	}
	reserved := binary.LittleEndian.Uint16(h[0:])
	kind := binary.LittleEndian.Uint16(h[2:])
	count := int(binary.LittleEndian.Uint16(h[4:]))
	if reserved != 0 || (kind != icoTypeIcon && kind != icoTypeCursor) || count == 0 {
		return nil, notFormat("ico", "bad directory header")
	}

	dir := make([]byte, count*icoEntrySize)
	if err := probe("ico", s, dir); err != nil {
		return nil, err
	}
	entries := make([]icoEntry, count)
	for i := range entries {
		e, ok := parseICOEntry(dir[i*icoEntrySize:])
		if !ok {
			return nil, notFormat("ico", "bad entry reserved byte")
		}
		entries[i] = e
	}

	frames := make([]bitmap.Frame, 0, count)
	fail := func(err error) (*bitmap.Array, error) {
		for _, f := range frames {
			f.Bitmap.Release()
		}
		return nil, err
	}
	for i, e := range entries {
		if pos := s.Position(); int64(e.offset) != pos {
			return fail(corrupted("ico", "entry %d offset %d, expected %d", i, e.offset, pos))
		}
		payload, err := dseed.ReadRange(s, int64(e.size))
		if err != nil {
			return fail(corrupted("ico", "entry %d: %v", i, err))
		}
		b, err := decodeICOPayload(payload)
		if err != nil {
			return fail(err)
		}
		if b.Width() != e.width || b.Height() != e.height {
			dseed.Logger().Warn("ico: entry size differs from payload",
				"entry", i, "dir", fmt.Sprintf("%dx%d", e.width, e.height), "payload", b.Size())
		}
		if kind == icoTypeCursor {
			b.Attributes().SetPoint(dseed.AttrCursorHotspot, dseed.Point2i{X: int(e.planes), Y: int(e.bitCount)})
		}
		frames = append(frames, bitmap.Frame{Bitmap: b})
	}

	arr, err := bitmap.NewArray(bitmap.ArrayImages, frames)
	if err != nil {
		return fail(err)
	}
	container := "ico"
	if kind == icoTypeCursor {
		container = "cur"
	}
	arr.Attributes().SetString(dseed.AttrContainer, container)
	return arr, nil
}

// decodeICOPayload tries an icon-mode DIB first and falls back to PNG.
func decodeICOPayload(payload *dseed.MemoryStream) (*bitmap.Bitmap, error) {
	b, dibErr := decodeIconDIB(payload)
	if dibErr == nil {
		return b, nil
	}
	if _, err := payload.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	arr, err := DecodePNG(payload)
	if err != nil {
		dseed.Logger().Debug("ico: payload is neither DIB nor PNG", "dib", dibErr, "png", err)
		return nil, corrupted("ico", "undecodable entry: %v", dibErr)
	}
	defer arr.Release()
	b, _, err = arr.At(0)
	return b, err
}

// ICOOptions configures an ICOEncoder.
type ICOOptions struct {
	// Cursor writes a CUR file; hotspots come from AttrCursorHotspot.
	Cursor bool
	// Compress stores entries as PNG instead of icon-mode DIB.
	Compress bool
}

// ICOEncoder buffers frames and assembles an icon or cursor directory on
// Commit.
type ICOEncoder struct {
	s         dseed.Stream
	opts      ICOOptions
	frames    []*bitmap.Bitmap
	committed bool
}

// NewICOEncoder creates an encoder writing to s, which must be writable and
// seekable.
func NewICOEncoder(s dseed.Stream, opts ICOOptions) (*ICOEncoder, error) {
	if !s.CanWrite() || !s.CanSeek() {
		return nil, fmt.Errorf("ico: stream must be writable and seekable: %w", dseed.ErrInvalidArgs)
	}
	return &ICOEncoder{s: s, opts: opts}, nil
}

// EncodeFrame validates b and buffers a reference to it.
func (e *ICOEncoder) EncodeFrame(b *bitmap.Bitmap) error {
	if e.committed {
		return fmt.Errorf("ico: encoder already committed: %w", dseed.ErrInvalidOp)
	}
	if b.Kind() != bitmap.Kind2D || b.Depth() != 1 {
		return fmt.Errorf("ico: frame must be a single 2D slice: %w", dseed.ErrInvalidArgs)
	}
	if b.Width() > icoMaxSide || b.Height() > icoMaxSide {
		return fmt.Errorf("ico: frame %dx%d exceeds %d: %w", b.Width(), b.Height(), icoMaxSide, dseed.ErrInvalidArgs)
	}
	switch b.Format() {
	case pixelformat.BGRA8, pixelformat.BGR8, pixelformat.Indexed8, pixelformat.RGBA8:
	default:
		return fmt.Errorf("ico: frame format %s: %w", b.Format(), dseed.ErrNotSupport)
	}
	if len(e.frames) == 0xffff {
		return fmt.Errorf("ico: too many frames: %w", dseed.ErrOutOfRange)
	}
	for _, f := range e.frames {
		if f.Width() == b.Width() && f.Height() == b.Height() && f.Format() == b.Format() {
			return fmt.Errorf("ico: duplicate %dx%d %s frame: %w", b.Width(), b.Height(), b.Format(), dseed.ErrInvalidArgs)
		}
	}
	b.Retain()
	e.frames = append(e.frames, b)
	return nil
}

// Commit writes the directory and every buffered frame, then drops the
// buffered references.
func (e *ICOEncoder) Commit() error {
	if e.committed {
		return fmt.Errorf("ico: encoder already committed: %w", dseed.ErrInvalidOp)
	}
	if len(e.frames) == 0 {
		return fmt.Errorf("ico: commit without frames: %w", dseed.ErrInvalidOp)
	}
	e.committed = true
	defer func() {
		for _, f := range e.frames {
			f.Release()
		}
		e.frames = nil
	}()

	start := e.s.Position()
	kind := uint16(icoTypeIcon)
	if e.opts.Cursor {
		kind = icoTypeCursor
	}
	head := make([]byte, icoHeaderSize+icoEntrySize*len(e.frames))
	binary.LittleEndian.PutUint16(head[2:], kind)
	binary.LittleEndian.PutUint16(head[4:], uint16(len(e.frames)))
	if err := dseed.WriteFull(e.s, head); err != nil {
		return err
	}

	for i, f := range e.frames {
		payload, entry, err := e.encodeEntry(f)
		if err != nil {
			return fmt.Errorf("ico: frame %d: %w", i, err)
		}
		dataPos := e.s.Position()
		entry.size = uint32(len(payload))
		entry.offset = uint32(dataPos - start)

		if err := e.writeEntry(start+icoHeaderSize+int64(i*icoEntrySize), entry); err != nil {
			return err
		}
		if _, err := e.s.Seek(dataPos, io.SeekStart); err != nil {
			return err
		}
		if err := dseed.WriteFull(e.s, payload); err != nil {
			return err
		}
	}
	dseed.Logger().Debug("ico: committed", "frames", len(e.frames), "bytes", e.s.Position()-start)
	return nil
}

// encodeEntry sub-encodes one frame into a transient memory stream.
func (e *ICOEncoder) encodeEntry(b *bitmap.Bitmap) ([]byte, icoEntry, error) {
	entry := icoEntry{width: b.Width(), height: b.Height(), planes: 1}

	src := b
	if b.Format() == pixelformat.RGBA8 && !e.opts.Compress {
		conv, err := pixelop.Convert(b, pixelformat.BGRA8)
		if err != nil {
			return nil, entry, err
		}
		defer conv.Release()
		src = conv
	}
	switch src.Format() {
	case pixelformat.Indexed8:
		entry.bitCount = 8
	case pixelformat.BGR8:
		entry.bitCount = 24
	default:
		entry.bitCount = 32
	}

	buf := dseed.NewGrowableStream()
	var err error
	if e.opts.Compress {
		err = EncodePNG(buf, src)
	} else {
		err = encodeIconDIB(buf, src)
	}
	if err != nil {
		return nil, entry, err
	}

	if e.opts.Cursor {
		hs, herr := b.Attributes().Point(dseed.AttrCursorHotspot)
		if herr == nil {
			entry.planes, entry.bitCount = uint16(hs.X), uint16(hs.Y)
		} else {
			entry.planes, entry.bitCount = 0, 0
		}
	}
	return buf.Bytes(), entry, nil
}

func (e *ICOEncoder) writeEntry(at int64, entry icoEntry) error {
	var b [icoEntrySize]byte
	b[0] = byte(entry.width % icoMaxSide)
	b[1] = byte(entry.height % icoMaxSide)
	b[2] = byte(entry.colorCount)
	binary.LittleEndian.PutUint16(b[4:], entry.planes)
	binary.LittleEndian.PutUint16(b[6:], entry.bitCount)
	binary.LittleEndian.PutUint32(b[8:], entry.size)
	binary.LittleEndian.PutUint32(b[12:], entry.offset)
	if _, err := e.s.Seek(at, io.SeekStart); err != nil {
		return err
	}
	return dseed.WriteFull(e.s, b[:])
}
