package pixelop

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/pixelformat"
)

// Interpolation selects the resampling kernel used by Resize.
type Interpolation uint8

const (
	NearestNeighbor Interpolation = iota
	ApproxBiLinear
	BiLinear
	CatmullRom
)

func (i Interpolation) scaler() draw.Scaler {
	switch i {
	case ApproxBiLinear:
		return draw.ApproxBiLinear
	case BiLinear:
		return draw.BiLinear
	case CatmullRom:
		return draw.CatmullRom
	default:
		return draw.NearestNeighbor
	}
}

// Resize scales a single-slice 2D bitmap to width x height.
// The result keeps the source format when it has an RGBA accessor;
// indexed sources come back as RGBA8.
func Resize(b *bitmap.Bitmap, width, height int, interp Interpolation) (*bitmap.Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pixelop: resize to %dx%d: %w", width, height, dseed.ErrInvalidArgs)
	}
	if b.Kind() != bitmap.Kind2D || b.Depth() != 1 {
		return nil, fmt.Errorf("pixelop: resize %s bitmap with depth %d: %w", b.Kind(), b.Depth(), dseed.ErrNotSupport)
	}

	var src image.Image
	err := b.Access(func([]byte) error {
		var err error
		src, err = toImageUnlocked(b)
		return err
	})
	if err != nil {
		return nil, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	interp.scaler().Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out, err := bitmap.FromImage(dst)
	if err != nil {
		return nil, err
	}
	b.Attributes().CopyTo(out.Attributes())
	if b.Format() == out.Format() || !Supports(OpConvert, b.Format()) {
		return out, nil
	}
	defer out.Release()
	return Convert(out, b.Format())
}

// toImageUnlocked converts slice 0 while the caller holds the pin.
func toImageUnlocked(b *bitmap.Bitmap) (image.Image, error) {
	if b.Format() != pixelformat.Indexed8 && !Supports(OpConvert, b.Format()) {
		return nil, fmt.Errorf("pixelop: resize %s: %w", b.Format(), dseed.ErrNotSupport)
	}
	return bitmap.ToImage(b, 0)
}
