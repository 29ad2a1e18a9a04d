package codec

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/pixelformat"
)

func pkmFile(version string, code uint16, w, h int, body []byte) []byte {
	out := append([]byte("PKM "), version...)
	be := binary.BigEndian
	out = be.AppendUint16(out, code)
	out = be.AppendUint16(out, uint16((w+3)&^3))
	out = be.AppendUint16(out, uint16((h+3)&^3))
	out = be.AppendUint16(out, uint16(w))
	out = be.AppendUint16(out, uint16(h))
	return append(out, body...)
}

func TestDecodePKM(t *testing.T) {
	tests := []struct {
		name    string
		version string
		code    uint16
		w, h    int
		format  pixelformat.Format
		size    int
	}{
		{"etc1", "10", 0, 4, 4, pixelformat.ETC1, 8},
		{"etc2 rgba", "20", 3, 5, 3, pixelformat.ETC2RGBA8, 2 * 16},
		{"srgb alias", "20", 9, 8, 4, pixelformat.ETC2RGB, 2 * 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := make([]byte, tt.size)
			for i := range body {
				body[i] = byte(i + 1)
			}
			data := pkmFile(tt.version, tt.code, tt.w, tt.h, body)
			got := decodeOnly(t)(DecodePKM(dseed.NewMemoryStream(data, false)))
			if got.Format() != tt.format {
				t.Errorf("format = %v, want %v", got.Format(), tt.format)
			}
			if got.Width() != tt.w || got.Height() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", got.Width(), got.Height(), tt.w, tt.h)
			}
			if pix := pixelBytes(t, got); string(pix) != string(body) {
				t.Errorf("blocks differ")
			}
		})
	}
}

func TestDecodePKMErrors(t *testing.T) {
	badExt := pkmFile("20", 1, 4, 4, make([]byte, 8))
	binary.BigEndian.PutUint16(badExt[8:], 12)
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", []byte("PNG not a pkm file"), dseed.ErrNotSupportFileFormat},
		{"version", pkmFile("30", 0, 4, 4, make([]byte, 8)), dseed.ErrNotSupport},
		{"etc2 in v1", pkmFile("10", 1, 4, 4, make([]byte, 8)), dseed.ErrNotSupport},
		{"extent", badExt, dseed.ErrCorruptedData},
		{"truncated", pkmFile("20", 1, 8, 8, make([]byte, 8)), dseed.ErrCorruptedData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePKM(dseed.NewMemoryStream(tt.data, false))
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodePKM() error = %v, want %v", err, tt.want)
			}
		})
	}
}
