package dseed

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
)

func TestMemoryStreamReadSeek(t *testing.T) {
	s := NewMemoryStream([]byte("abcdef"), false)
	buf := make([]byte, 3)
	if err := ReadFull(s, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abc" || s.Position() != 3 {
		t.Errorf("read %q at %d", buf, s.Position())
	}
	if _, err := s.Seek(-2, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	if err := ReadFull(s, buf); !errors.Is(err, ErrEndOfFile) {
		t.Errorf("short read error = %v, want ErrEndOfFile", err)
	}
	if _, err := s.Seek(10, io.SeekStart); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("seek past fixed end = %v, want ErrOutOfRange", err)
	}
	if _, err := s.Write([]byte("x")); !errors.Is(err, ErrNotWritable) {
		t.Errorf("write to read-only = %v, want ErrNotWritable", err)
	}
}

func TestGrowableStream(t *testing.T) {
	s := NewGrowableStream()
	if _, err := s.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Seek(8, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write([]byte("!")); err != nil {
		t.Fatal(err)
	}
	want := []byte{'h', 'e', 'l', 'l', 'o', 0, 0, 0, '!'}
	if !bytes.Equal(s.Bytes(), want) {
		t.Errorf("Bytes() = %v, want %v", s.Bytes(), want)
	}
	if err := s.SetLength(2); err != nil {
		t.Fatal(err)
	}
	if s.Length() != 2 || s.Position() != 2 {
		t.Errorf("after SetLength: len=%d pos=%d", s.Length(), s.Position())
	}
}

func TestFixedStreamWriteOverflow(t *testing.T) {
	s := NewMemoryStream(make([]byte, 4), true)
	n, err := s.Write([]byte("abcdef"))
	if n != 4 || !errors.Is(err, ErrEndOfFile) {
		t.Errorf("Write() = %d, %v; want 4, ErrEndOfFile", n, err)
	}
}

func TestReadRange(t *testing.T) {
	s := NewMemoryStream([]byte("0123456789"), false)
	_, _ = s.Seek(2, io.SeekStart)
	sub, err := ReadRange(s, 4)
	if err != nil {
		t.Fatal(err)
	}
	if string(sub.Bytes()) != "2345" || s.Position() != 6 {
		t.Errorf("ReadRange = %q, pos %d", sub.Bytes(), s.Position())
	}
	if _, err := ReadRange(s, 100); !errors.Is(err, ErrEndOfFile) {
		t.Errorf("oversized ReadRange = %v, want ErrEndOfFile", err)
	}
}

func TestFileStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	w, err := CreateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFull(w, []byte("RIFF....")); err != nil {
		t.Fatal(err)
	}
	if w.Length() != 8 || w.Position() != 8 {
		t.Errorf("len=%d pos=%d, want 8/8", w.Length(), w.Position())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.CanWrite() {
		t.Error("OpenFile stream reports writable")
	}
	buf := make([]byte, 4)
	if err := ReadFull(r, buf); err != nil || string(buf) != "RIFF" {
		t.Errorf("read %q, %v", buf, err)
	}
}

func TestReaderStream(t *testing.T) {
	s := NewReaderStream(bytes.NewReader([]byte("xyz")))
	if s.Length() != 3 || s.Position() != 0 {
		t.Errorf("len=%d pos=%d", s.Length(), s.Position())
	}
	if err := Rewind(s); err != nil {
		t.Fatal(err)
	}
}

func TestPatchUint32(t *testing.T) {
	s := NewGrowableStream()
	if err := WriteFull(s, make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	if err := PatchUint32(s, 2, 0x04030201); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0, 0, 1, 2, 3, 4, 0, 0}; !bytes.Equal(s.Bytes(), want) {
		t.Errorf("Bytes() = %v, want %v", s.Bytes(), want)
	}
	if s.Position() != 6 {
		t.Errorf("Position() = %d, want 6", s.Position())
	}
	if got := Remaining(s); got != 2 {
		t.Errorf("Remaining() = %d, want 2", got)
	}
	if err := PatchUint32(NewMemoryStream(make([]byte, 4), false), 0, 1); !errors.Is(err, ErrNotWritable) {
		t.Errorf("PatchUint32(read-only) error = %v, want %v", err, ErrNotWritable)
	}
}
