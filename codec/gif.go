package codec

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"time"

	"golang.org/x/image/draw"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
)

// DecodeGIF decodes every GIF frame and composites it over the previous
// canvas honouring disposal methods, so each output frame is a complete
// picture. Multi-frame files produce an ArrayAnimation with per-frame
// durations and AttrLoopCount on the array.
func DecodeGIF(s dseed.Stream) (*bitmap.Array, error) {
	var sig [6]byte
	if err := probe("gif", s, sig[:]); err != nil {
		return nil, err
	}
	if string(sig[:]) != "GIF87a" && string(sig[:]) != "GIF89a" {
		return nil, notFormat("gif", "signature mismatch")
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	g, err := gif.DecodeAll(s)
	if err != nil {
		return nil, fmt.Errorf("gif: decode: %w: %w", dseed.ErrCorruptedData, err)
	}
	if len(g.Image) == 0 {
		return nil, corrupted("gif", "no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	frames := make([]bitmap.Frame, 0, len(g.Image))
	release := func() {
		for _, f := range frames {
			f.Bitmap.Release()
		}
	}

	for i, p := range g.Image {
		var saved *image.RGBA
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			saved = image.NewRGBA(bounds)
			draw.Copy(saved, bounds.Min, canvas, bounds, draw.Src, nil)
		}

		draw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)

		b, err := bitmap.FromImage(canvas)
		if err != nil {
			release()
			return nil, err
		}
		var d time.Duration
		if i < len(g.Delay) {
			d = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		b.Attributes().SetInt64(dseed.AttrFrameDuration, int64(d))
		frames = append(frames, bitmap.Frame{Bitmap: b, Duration: d})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, p.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}

	kind := bitmap.ArrayImages
	if len(frames) > 1 {
		kind = bitmap.ArrayAnimation
	}
	arr, err := bitmap.NewArray(kind, frames)
	if err != nil {
		release()
		return nil, err
	}
	arr.Attributes().SetInt32(dseed.AttrLoopCount, int32(g.LoopCount))
	arr.Attributes().SetString(dseed.AttrContainer, "gif")
	return arr, nil
}
