package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/daramkun/dseed"
)

// notFormat reports that a decoder does not recognize its input.
func notFormat(codec, what string) error {
	return fmt.Errorf("%s: %s: %w", codec, what, dseed.ErrNotSupportFileFormat)
}

// corrupted reports structurally invalid data in a recognized container.
func corrupted(codec, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", codec, fmt.Sprintf(format, args...), dseed.ErrCorruptedData)
}

// unsupported reports a valid but unimplemented feature.
func unsupported(codec, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", codec, fmt.Sprintf(format, args...), dseed.ErrNotSupport)
}

// probe reads a signature or header. A stream too short to hold it is not
// this format.
func probe(codec string, r io.Reader, buf []byte) error {
	if err := dseed.ReadFull(r, buf); err != nil {
		if errors.Is(err, dseed.ErrEndOfFile) {
			return notFormat(codec, "short header")
		}
		return err
	}
	return nil
}

// readBody reads data the header promised. A short read is corruption.
func readBody(codec string, r io.Reader, buf []byte) error {
	if err := dseed.ReadFull(r, buf); err != nil {
		if errors.Is(err, dseed.ErrEndOfFile) {
			return corrupted(codec, "truncated data")
		}
		return err
	}
	return nil
}

func skip(codec string, s dseed.Stream, n int64) error {
	if n <= 0 {
		return nil
	}
	pos := s.Position()
	if pos+n > s.Length() {
		return corrupted(codec, "truncated data")
	}
	_, err := s.Seek(n, io.SeekCurrent)
	return err
}

// copyRows copies height rows of rowBytes each between buffers whose row
// pitches differ.
func copyRows(dst []byte, dstPitch int, src []byte, srcPitch int, rowBytes, height int) {
	for y := range height {
		copy(dst[y*dstPitch:y*dstPitch+rowBytes], src[y*srcPitch:y*srcPitch+rowBytes])
	}
}

