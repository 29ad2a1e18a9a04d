package dseed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stream is the sole I/O boundary of every codec.
//
// Streams are shared by reference: codecs read, write and seek them but never
// close them. The caller that opened a stream closes it.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker

	// Flush commits buffered writes to the backing store.
	Flush() error
	// SetLength truncates or extends the stream.
	SetLength(n int64) error
	// Position returns the current read/write cursor.
	Position() int64
	// Length returns the total stream length in bytes.
	Length() int64

	CanRead() bool
	CanWrite() bool
	CanSeek() bool
}

// ReadFull reads exactly len(buf) bytes from r. A short read is reported as
// ErrEndOfFile so callers can tell truncation apart from transport failures.
func ReadFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrEndOfFile
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// WriteFull writes all of buf to w.
func WriteFull(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write %d of %d: %w", n, len(buf), ErrIO)
	}
	return nil
}

// PatchUint32 overwrites the little-endian field at absolute offset at.
// The cursor is left after the field.
func PatchUint32(s Stream, at int64, v uint32) error {
	if _, err := s.Seek(at, io.SeekStart); err != nil {
		return err
	}
	return WriteFull(s, binary.LittleEndian.AppendUint32(nil, v))
}

// Remaining returns the number of bytes between the cursor and the end, or
// -1 when the length of s is unknown.
func Remaining(s Stream) int64 {
	n := s.Length()
	if n < 0 {
		return -1
	}
	return max(0, n-s.Position())
}

// Rewind moves the cursor of s back to offset 0.
func Rewind(s Stream) error {
	if !s.CanSeek() {
		return ErrNotSeekable
	}
	_, err := s.Seek(0, io.SeekStart)
	return err
}

// ReadRange copies the next n bytes of s into a read-only, fixed-size memory
// stream.
func ReadRange(s Stream, n int64) (*MemoryStream, error) {
	if n < 0 {
		return nil, ErrInvalidArgs
	}
	if rest := Remaining(s); rest >= 0 && n > rest {
		return nil, ErrEndOfFile
	}
	buf := make([]byte, n)
	if err := ReadFull(s, buf); err != nil {
		return nil, err
	}
	return NewMemoryStream(buf, false), nil
}

// MemoryStream is an in-memory Stream.
//
// A fixed stream wraps an existing slice and never changes its length; a
// growable stream extends on writes past the end.
type MemoryStream struct {
	buf      []byte
	pos      int64
	writable bool
	growable bool
}

// NewMemoryStream wraps buf in a fixed-size stream. The slice is not copied.
func NewMemoryStream(buf []byte, writable bool) *MemoryStream {
	return &MemoryStream{buf: buf, writable: writable}
}

// NewGrowableStream returns an empty, writable stream that grows on demand.
func NewGrowableStream() *MemoryStream {
	return &MemoryStream{writable: true, growable: true}
}

// Bytes returns the stream contents. The slice aliases the stream buffer.
func (m *MemoryStream) Bytes() []byte { return m.buf }

func (m *MemoryStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemoryStream) Write(p []byte) (int, error) {
	if !m.writable {
		return 0, ErrNotWritable
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		if !m.growable {
			n := 0
			if m.pos < int64(len(m.buf)) {
				n = copy(m.buf[m.pos:], p)
			}
			m.pos += int64(n)
			return n, ErrEndOfFile
		}
		m.grow(end)
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *MemoryStream) grow(n int64) {
	if n <= int64(cap(m.buf)) {
		m.buf = m.buf[:n]
		return
	}
	nb := make([]byte, n, max(n, int64(cap(m.buf))*2))
	copy(nb, m.buf)
	m.buf = nb
}

func (m *MemoryStream) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return m.pos, ErrInvalidArgs
	}
	if abs < 0 {
		return m.pos, ErrInvalidArgs
	}
	if abs > int64(len(m.buf)) && !m.growable {
		return m.pos, ErrOutOfRange
	}
	m.pos = abs
	return abs, nil
}

func (m *MemoryStream) Flush() error { return nil }

func (m *MemoryStream) SetLength(n int64) error {
	if !m.growable {
		return ErrNotSupport
	}
	if n < 0 {
		return ErrInvalidArgs
	}
	if n > int64(len(m.buf)) {
		m.grow(n)
	} else {
		m.buf = m.buf[:n]
	}
	if m.pos > n {
		m.pos = n
	}
	return nil
}

func (m *MemoryStream) Position() int64 { return m.pos }
func (m *MemoryStream) Length() int64   { return int64(len(m.buf)) }
func (m *MemoryStream) CanRead() bool   { return true }
func (m *MemoryStream) CanWrite() bool  { return m.writable }
func (m *MemoryStream) CanSeek() bool   { return true }

// FileStream is a Stream backed by an *os.File.
type FileStream struct {
	f        *os.File
	writable bool
}

// OpenFile opens path for reading.
func OpenFile(path string) (*FileStream, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("dseed: open file: %w", err)
	}
	return &FileStream{f: f}, nil
}

// CreateFile creates or truncates path for reading and writing.
func CreateFile(path string) (*FileStream, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("dseed: create file: %w", err)
	}
	return &FileStream{f: f, writable: true}, nil
}

// Close closes the underlying file.
func (s *FileStream) Close() error { return s.f.Close() }

// Name returns the file name.
func (s *FileStream) Name() string { return s.f.Name() }

func (s *FileStream) Read(p []byte) (int, error) { return s.f.Read(p) }

func (s *FileStream) Write(p []byte) (int, error) {
	if !s.writable {
		return 0, ErrNotWritable
	}
	return s.f.Write(p)
}

func (s *FileStream) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

func (s *FileStream) Flush() error { return s.f.Sync() }

func (s *FileStream) SetLength(n int64) error {
	if !s.writable {
		return ErrNotWritable
	}
	return s.f.Truncate(n)
}

func (s *FileStream) Position() int64 {
	pos, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	return pos
}

func (s *FileStream) Length() int64 {
	fi, err := s.f.Stat()
	if err != nil {
		return -1
	}
	return fi.Size()
}

func (s *FileStream) CanRead() bool  { return true }
func (s *FileStream) CanWrite() bool { return s.writable }
func (s *FileStream) CanSeek() bool  { return true }

// ReaderStream adapts an io.ReadSeeker into a read-only Stream.
type ReaderStream struct {
	rs io.ReadSeeker
}

// NewReaderStream wraps rs.
func NewReaderStream(rs io.ReadSeeker) *ReaderStream { return &ReaderStream{rs: rs} }

func (s *ReaderStream) Read(p []byte) (int, error) { return s.rs.Read(p) }
func (s *ReaderStream) Write([]byte) (int, error)  { return 0, ErrNotWritable }
func (s *ReaderStream) Flush() error               { return nil }
func (s *ReaderStream) SetLength(int64) error      { return ErrNotWritable }
func (s *ReaderStream) CanRead() bool              { return true }
func (s *ReaderStream) CanWrite() bool             { return false }
func (s *ReaderStream) CanSeek() bool              { return true }

func (s *ReaderStream) Seek(offset int64, whence int) (int64, error) {
	return s.rs.Seek(offset, whence)
}

func (s *ReaderStream) Position() int64 {
	pos, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	return pos
}

func (s *ReaderStream) Length() int64 {
	cur, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return -1
	}
	if _, err := s.rs.Seek(cur, io.SeekStart); err != nil {
		return -1
	}
	return end
}
