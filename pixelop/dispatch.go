// Package pixelop implements pixel operations dispatched by pixel format.
//
// Each operation is looked up in a table keyed by (Op, Format) that is built
// once at package initialization and never modified afterwards, so lookups
// are safe from any goroutine. An operation that has no entry for a format
// fails with dseed.ErrNotSupport.
package pixelop

import (
	"fmt"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/pixelformat"
)

// Op identifies a dispatched pixel operation.
type Op uint8

const (
	// OpFlip mirrors pixels horizontally and/or vertically.
	OpFlip Op = iota + 1
	// OpFilter applies a convolution mask.
	OpFilter
	// OpDetectTransparent scans for non-opaque texels.
	OpDetectTransparent
	// OpConvert reads or writes pixels through an RGBA accessor.
	OpConvert
	// OpMipmap box-filters a level down to the next.
	OpMipmap
)

func (o Op) String() string {
	switch o {
	case OpFlip:
		return "flip"
	case OpFilter:
		return "filter"
	case OpDetectTransparent:
		return "detect-transparent"
	case OpConvert:
		return "convert"
	case OpMipmap:
		return "mipmap"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

type opKey struct {
	op     Op
	format pixelformat.Format
}

// filterFormats are the formats convolution is defined for.
var filterFormats = []pixelformat.Format{
	pixelformat.RGBA8, pixelformat.BGRA8, pixelformat.RGB8, pixelformat.BGR8,
	pixelformat.Gray8, pixelformat.GrayAlpha8, pixelformat.Gray16,
	pixelformat.RGBA16, pixelformat.RGBAF, pixelformat.GrayF,
}

var table = buildTable()

func buildTable() map[opKey]any {
	t := make(map[opKey]any)
	for _, f := range pixelformat.Formats() {
		info := f.Info()
		switch info.Layout {
		case pixelformat.LayoutPacked:
			t[opKey{OpFlip, f}] = flipPacked(info.BytesPerPixel)
			t[opKey{OpDetectTransparent, f}] = alphaScanner(f)
		case pixelformat.LayoutPacked422:
			t[opKey{OpFlip, f}] = flip422(f == pixelformat.UYVY8)
			t[opKey{OpDetectTransparent, f}] = scanFunc(opaque)
		}
		if acc, ok := accessors[f]; ok {
			t[opKey{OpConvert, f}] = acc
			t[opKey{OpMipmap, f}] = acc
		}
	}
	for _, f := range filterFormats {
		t[opKey{OpFilter, f}] = accessors[f]
	}
	return t
}

func lookup[T any](op Op, f pixelformat.Format) (T, error) {
	fn, ok := table[opKey{op, f}].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("pixelop: %s on %s: %w", op, f, dseed.ErrNotSupport)
	}
	return fn, nil
}

// Supports reports whether op is registered for format f.
func Supports(op Op, f pixelformat.Format) bool {
	_, ok := table[opKey{op, f}]
	return ok
}
