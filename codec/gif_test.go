package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"testing"
	"time"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
)

func TestDecodeGIFAnimation(t *testing.T) {
	pal := color.Palette{color.NRGBA{A: 255}, color.NRGBA{R: 255, A: 255}, color.NRGBA{G: 255, A: 255}}
	full := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	// Second frame only covers the top-left pixel.
	patch := image.NewPaletted(image.Rect(0, 0, 1, 1), pal)
	patch.SetColorIndex(0, 0, 2)
	for i := range full.Pix {
		full.Pix[i] = 1
	}

	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image:     []*image.Paletted{full, patch},
		Delay:     []int{10, 25},
		LoopCount: 3,
		Config:    image.Config{ColorModel: pal, Width: 4, Height: 4},
	})
	if err != nil {
		t.Fatalf("gif.EncodeAll() error = %v", err)
	}

	arr, err := DecodeGIF(dseed.NewMemoryStream(buf.Bytes(), false))
	if err != nil {
		t.Fatalf("DecodeGIF() error = %v", err)
	}
	defer arr.Release()
	if arr.Kind() != bitmap.ArrayAnimation || arr.Len() != 2 {
		t.Fatalf("Kind, Len = %v, %d; want Animation, 2", arr.Kind(), arr.Len())
	}
	if n, _ := arr.Attributes().Int32(dseed.AttrLoopCount); n != 3 {
		t.Errorf("loop count = %d, want 3", n)
	}

	wantDur := []time.Duration{100 * time.Millisecond, 250 * time.Millisecond}
	for i, want := range wantDur {
		b, d, _ := arr.At(i)
		if d != want {
			t.Errorf("frame %d duration = %v, want %v", i, d, want)
		}
		if b.Width() != 4 || b.Height() != 4 {
			t.Errorf("frame %d size = %v, want 4x4", i, b.Size())
		}
	}

	// The second frame is composited over the first.
	second, _, _ := arr.At(1)
	rows := logicalRows(t, second)
	if got := rows[0][:4]; !bytes.Equal(got, []byte{0, 255, 0, 255}) {
		t.Errorf("patched pixel = %v, want green", got)
	}
	if got := rows[3][12:16]; !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("untouched pixel = %v, want red", got)
	}
}
