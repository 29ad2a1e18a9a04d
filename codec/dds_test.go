package codec

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

type ddsHeader struct {
	width, height, mips int
	pfFlags             uint32
	fourCC              string
	bitCount            uint32
	masks               [4]uint32
	caps2               uint32
	dx10                []uint32 // dxgi, dimension, misc, arraySize, misc2
}

func ddsFile(hdr ddsHeader, body []byte) []byte {
	out := []byte("DDS ")
	h := make([]byte, ddsHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(h[0:], ddsHeaderSize)
	flags := uint32(0x1007)
	if hdr.mips > 0 {
		flags |= ddsFlagMipCount
	}
	le.PutUint32(h[4:], flags)
	le.PutUint32(h[8:], uint32(hdr.height))
	le.PutUint32(h[12:], uint32(hdr.width))
	le.PutUint32(h[24:], uint32(hdr.mips))
	le.PutUint32(h[72:], ddsPixelFmtSize)
	le.PutUint32(h[76:], hdr.pfFlags)
	copy(h[80:84], hdr.fourCC)
	le.PutUint32(h[84:], hdr.bitCount)
	for i, m := range hdr.masks {
		le.PutUint32(h[88+4*i:], m)
	}
	le.PutUint32(h[108:], hdr.caps2)
	out = append(out, h...)
	for _, v := range hdr.dx10 {
		out = le.AppendUint32(out, v)
	}
	return append(out, body...)
}

func TestDecodeDDSUncompressed(t *testing.T) {
	hdr := ddsHeader{
		width: 3, height: 2, pfFlags: ddpfRGB, bitCount: 24,
		masks: [4]uint32{0xff0000, 0xff00, 0xff, 0},
	}
	// Rows are stored unpadded: 9 bytes each.
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}
	got := decodeOnly(t)(DecodeDDS(dseed.NewMemoryStream(ddsFile(hdr, body), false)))
	if got.Format() != pixelformat.BGR8 {
		t.Fatalf("format = %v, want BGR8", got.Format())
	}
	want := [][]byte{body[:9], body[9:]}
	if r := logicalRows(t, got); !sameRows(r, want) {
		t.Errorf("rows = %v, want %v", r, want)
	}
}

func TestDecodeDDSFourCC(t *testing.T) {
	// 8x8 DXT5 with 4 mip levels: 4 + 1 + 1 + 1 blocks of 16 bytes.
	hdr := ddsHeader{width: 8, height: 8, mips: 4, pfFlags: ddpfFourCC, fourCC: "DXT5"}
	body := make([]byte, 7*16)
	for i := range body {
		body[i] = byte(i)
	}
	got := decodeOnly(t)(DecodeDDS(dseed.NewMemoryStream(ddsFile(hdr, body), false)))
	if got.Format() != pixelformat.BC3 {
		t.Fatalf("format = %v, want BC3", got.Format())
	}
	if n, _ := got.Attributes().Int32(dseed.AttrMipLevels); n != 4 {
		t.Errorf("mip levels = %d, want 4", n)
	}
	if pix := pixelBytes(t, got); string(pix) != string(body[:64]) {
		t.Errorf("top level differs")
	}
}

func TestDecodeDDSCubeMap(t *testing.T) {
	// 4x4 BC1 cube with 2 mips: each face is 8 + 8 bytes.
	hdr := ddsHeader{
		width: 4, height: 4, mips: 2, pfFlags: ddpfFourCC, fourCC: "DXT1",
		caps2: ddsCaps2Cubemap | ddsCubeAllFaces,
	}
	var body []byte
	for f := range 6 {
		top := make([]byte, 8)
		top[0] = byte(f + 1)
		body = append(body, top...)
		body = append(body, make([]byte, 8)...)
	}
	got := decodeOnly(t)(DecodeDDS(dseed.NewMemoryStream(ddsFile(hdr, body), false)))
	if got.Kind() != bitmap.KindCube || got.Depth() != 6 {
		t.Fatalf("got %v depth %d, want Cube depth 6", got.Kind(), got.Depth())
	}
	pix := pixelBytes(t, got)
	for f := range 6 {
		if pix[f*8] != byte(f+1) {
			t.Errorf("face %d marker = %d, want %d", f, pix[f*8], f+1)
		}
	}
}

func TestDecodeDDSDX10Array(t *testing.T) {
	hdr := ddsHeader{
		width: 2, height: 1, pfFlags: ddpfFourCC, fourCC: "DX10",
		dx10: []uint32{28, 3, 0, 2, 0}, // RGBA8 UNORM, 2D, two layers
	}
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	got := decodeOnly(t)(DecodeDDS(dseed.NewMemoryStream(ddsFile(hdr, body), false)))
	if got.Kind() != bitmap.Kind2D || got.Depth() != 2 || got.Format() != pixelformat.RGBA8 {
		t.Fatalf("got %v depth %d %v, want 2D depth 2 RGBA8", got.Kind(), got.Depth(), got.Format())
	}
	if pix := pixelBytes(t, got); string(pix) != string(body) {
		t.Errorf("pixels = %v, want %v", pix, body)
	}
}

func TestDecodeDDSErrors(t *testing.T) {
	bc3 := ddsHeader{width: 4, height: 4, pfFlags: ddpfFourCC, fourCC: "DXT5"}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not dds", []byte("this is not a surface"), dseed.ErrNotSupportFileFormat},
		{"fourcc", ddsFile(ddsHeader{width: 4, height: 4, pfFlags: ddpfFourCC, fourCC: "ZZZZ"}, nil), dseed.ErrNotSupport},
		{"dxgi", ddsFile(ddsHeader{width: 4, height: 4, pfFlags: ddpfFourCC, fourCC: "DX10", dx10: []uint32{999, 3, 0, 1, 0}}, nil), dseed.ErrNotSupport},
		{"truncated", ddsFile(bc3, make([]byte, 10)), dseed.ErrCorruptedData},
		{"huge dimensions", ddsFile(ddsHeader{width: 1 << 30, height: 1 << 30, pfFlags: ddpfFourCC, fourCC: "DXT5"}, nil), dseed.ErrCorruptedData},
		{"huge array", ddsFile(ddsHeader{width: 4, height: 4, pfFlags: ddpfFourCC, fourCC: "DX10", dx10: []uint32{28, 3, 0, 1 << 20, 0}}, nil), dseed.ErrCorruptedData},
		{"mip levels", ddsFile(ddsHeader{width: 4, height: 4, mips: 1000, pfFlags: ddpfFourCC, fourCC: "DXT5"}, make([]byte, 16)), dseed.ErrCorruptedData},
		{"levels past end", ddsFile(ddsHeader{width: 4096, height: 4096, pfFlags: ddpfFourCC, fourCC: "DXT5"}, make([]byte, 64)), dseed.ErrCorruptedData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDDS(dseed.NewMemoryStream(tt.data, false))
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeDDS() error = %v, want %v", err, tt.want)
			}
		})
	}
}
