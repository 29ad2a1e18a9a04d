package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/pixelformat"
)

func TestPNGRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format pixelformat.Format
		rows   [][]byte
	}{
		{"Gray8", pixelformat.Gray8, [][]byte{{0, 50}, {100, 255}}},
		{"RGBA8", pixelformat.RGBA8, [][]byte{{1, 2, 3, 4, 5, 6, 7, 8}, {9, 10, 11, 12, 13, 14, 15, 255}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestBitmap(t, 2, 2, tt.format, nil, tt.rows)
			s := dseed.NewGrowableStream()
			if err := EncodePNG(s, src); err != nil {
				t.Fatalf("EncodePNG() error = %v", err)
			}
			got := decodeOnly(t)(DecodePNG(dseed.NewMemoryStream(s.Bytes(), false)))
			if got.Format() != tt.format {
				t.Fatalf("format = %v, want %v", got.Format(), tt.format)
			}
			if r := logicalRows(t, got); !sameRows(r, tt.rows) {
				t.Errorf("rows = %v, want %v", r, tt.rows)
			}
		})
	}
}

func TestJPEGEncodeDecode(t *testing.T) {
	rows := make([][]byte, 8)
	for y := range rows {
		rows[y] = bytes.Repeat([]byte{128}, 8)
	}
	src := newTestBitmap(t, 8, 8, pixelformat.Gray8, nil, rows)
	s := dseed.NewGrowableStream()
	if err := EncodeJPEG(s, src, 500); err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}
	got := decodeOnly(t)(DecodeJPEG(dseed.NewMemoryStream(s.Bytes(), false)))
	if got.Width() != 8 || got.Height() != 8 {
		t.Fatalf("size = %v, want 8x8", got.Size())
	}
	for _, r := range logicalRows(t, got) {
		for _, v := range r {
			if v < 126 || v > 130 {
				t.Fatalf("flat grey decoded as %d", v)
			}
		}
	}
}

func TestDecodeTIFF(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 40, G: 50, B: 60, A: 255})
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("tiff.Encode() error = %v", err)
	}
	got := decodeOnly(t)(DecodeTIFF(dseed.NewMemoryStream(buf.Bytes(), false)))
	want := [][]byte{{10, 20, 30, 255, 40, 50, 60, 255}}
	if r := logicalRows(t, got); !sameRows(r, want) {
		t.Errorf("rows = %v, want %v", r, want)
	}
}

func TestDecodeWEBPRejects(t *testing.T) {
	_, err := DecodeWEBP(dseed.NewMemoryStream([]byte("RIFF\x00\x00\x00\x00WAVEfmt "), false))
	if !errors.Is(err, dseed.ErrNotSupportFileFormat) {
		t.Errorf("DecodeWEBP(wav) error = %v, want ErrNotSupportFileFormat", err)
	}
	_, err = DecodeWEBP(dseed.NewMemoryStream([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), false))
	if !errors.Is(err, dseed.ErrCorruptedData) {
		t.Errorf("DecodeWEBP(truncated) error = %v, want ErrCorruptedData", err)
	}
}
