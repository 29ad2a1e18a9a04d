package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
	"github.com/daramkun/dseed/codec"
	"github.com/daramkun/dseed/config"
	"github.com/daramkun/dseed/media"
	"github.com/daramkun/dseed/pixelformat"
	"github.com/daramkun/dseed/pixelop"
	"github.com/daramkun/dseed/pulse"
)

var imageTargets = map[string]bool{"dib": true, "png": true, "jpeg": true, "ico": true, "cur": true, "ktx2": true}

// stdImageFormats are stored by the png and jpeg encoders without conversion.
var stdImageFormats = []pixelformat.Format{
	pixelformat.RGBA8, pixelformat.BGRA8, pixelformat.RGB8, pixelformat.BGR8,
	pixelformat.Gray8, pixelformat.Gray16, pixelformat.GrayAlpha8,
	pixelformat.RGBA16, pixelformat.Indexed8, pixelformat.BGR565,
}

type converter struct {
	cfg    *config.Config
	images *codec.Registry
	audio  *media.Registry
	to     string
	outDir string
	info   bool
	meta   bool

	mu     sync.Mutex
	stdout io.Writer
}

func newConverter(cfg *config.Config, to, outDir string, info, meta bool, stdout io.Writer) (*converter, error) {
	to = strings.ToLower(to)
	switch {
	case to == "" && !info:
		return nil, fmt.Errorf("-to is required unless -info is set: %w", dseed.ErrInvalidArgs)
	case to != "" && to != "wav" && !imageTargets[to]:
		return nil, fmt.Errorf("unknown output format %q: %w", to, dseed.ErrInvalidArgs)
	}
	images, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	return &converter{
		cfg:    cfg,
		images: images,
		audio:  media.DefaultRegistry(),
		to:     to,
		outDir: outDir,
		info:   info,
		meta:   meta,
		stdout: stdout,
	}, nil
}

func (c *converter) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.stdout, format, args...)
}

// outputPath places the result next to in, or in outDir, with the
// extension of the target format. It never returns in itself.
func (c *converter) outputPath(in, ext string) string {
	dir := c.outDir
	if dir == "" {
		dir = filepath.Dir(in)
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(dir, base+"."+ext)
	if filepath.Clean(out) == filepath.Clean(in) {
		out = filepath.Join(dir, base+".conv."+ext)
	}
	return out
}

func (c *converter) convert(ctx context.Context, in string) error {
	s, err := dseed.OpenFile(in)
	if err != nil {
		return err
	}
	defer s.Close()

	arr, name, err := c.images.Decode(s)
	if err == nil {
		defer arr.Release()
		return c.convertImage(ctx, in, name, arr)
	}
	if !errors.Is(err, dseed.ErrNotSupportFileFormat) {
		return err
	}
	dec, name, err := c.audio.Decode(s)
	if err != nil {
		return err
	}
	return c.convertAudio(ctx, in, name, dec)
}

func (c *converter) convertImage(ctx context.Context, in, decoder string, arr *bitmap.Array) error {
	first, _, err := arr.At(0)
	if err != nil {
		return err
	}
	defer first.Release()
	if c.info {
		c.printf("%s: decoder=%s frames=%d size=%dx%dx%d format=%s\n",
			in, decoder, arr.Len(), first.Width(), first.Height(), first.Depth(), first.Format())
	}
	if c.to == "" {
		return nil
	}
	if !imageTargets[c.to] {
		return fmt.Errorf("%s is an image, cannot write %s: %w", in, c.to, dseed.ErrInvalidArgs)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := c.outputPath(in, c.to)
	s, err := dseed.CreateFile(out)
	if err != nil {
		return err
	}
	defer s.Close()

	switch c.to {
	case "ico", "cur":
		err = c.writeIcon(s, arr)
	default:
		err = c.writeSingle(s, first)
	}
	if err != nil {
		return err
	}
	if c.meta {
		if err := writeMeta(out, arr.Attributes()); err != nil {
			return err
		}
	}
	dseed.Logger().Info("dseedconv: wrote", "input", in, "output", out, "decoder", decoder)
	return nil
}

// normalized returns b itself when its format is one of accept, or a
// converted copy in accept[0]. The caller releases the result.
func normalized(b *bitmap.Bitmap, accept ...pixelformat.Format) (*bitmap.Bitmap, error) {
	for _, f := range accept {
		if b.Format() == f {
			b.Retain()
			return b, nil
		}
	}
	return pixelop.Convert(b, accept[0])
}

func (c *converter) writeSingle(s dseed.Stream, b *bitmap.Bitmap) error {
	var (
		src *bitmap.Bitmap
		err error
	)
	switch c.to {
	case "dib":
		src, err = normalized(b, pixelformat.BGRA8, pixelformat.BGR8, pixelformat.Indexed8, pixelformat.Gray8)
	case "png", "jpeg":
		src, err = normalized(b, stdImageFormats...)
	default:
		src, err = b, nil
		b.Retain()
	}
	if err != nil {
		return err
	}
	defer src.Release()

	switch c.to {
	case "dib":
		return codec.EncodeDIB(s, src)
	case "png":
		return codec.EncodePNG(s, src)
	case "jpeg":
		return codec.EncodeJPEG(s, src, 90)
	default:
		return codec.EncodeKTX2(s, src, codec.KTX2Options{
			Supercompression: codec.SupercompressionZstd,
			Mipmaps:          pixelop.Supports(pixelop.OpMipmap, src.Format()),
			Writer:           "dseedconv",
		})
	}
}

func (c *converter) writeIcon(s dseed.Stream, arr *bitmap.Array) error {
	opts := c.cfg.ICOOptions()
	opts.Cursor = c.to == "cur"
	enc, err := codec.NewICOEncoder(s, opts)
	if err != nil {
		return err
	}
	for i := range arr.Len() {
		b, _, err := arr.At(i)
		if err != nil {
			return err
		}
		src, err := normalized(b, pixelformat.BGRA8, pixelformat.BGR8, pixelformat.Indexed8, pixelformat.RGBA8)
		b.Release()
		if err != nil {
			return err
		}
		err = enc.EncodeFrame(src)
		src.Release()
		if err != nil {
			return err
		}
	}
	return enc.Commit()
}

func (c *converter) convertAudio(ctx context.Context, in, decoder string, dec media.Decoder) error {
	f := dec.Format()
	if c.info {
		c.printf("%s: decoder=%s format=%s duration=%s\n", in, decoder, f, dec.Duration().Round(time.Millisecond))
	}
	if c.to == "" {
		return nil
	}
	if c.to != "wav" {
		return fmt.Errorf("%s is audio, cannot write %s: %w", in, c.to, dseed.ErrInvalidArgs)
	}

	var pcm []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		smp, err := dec.ReadSample()
		if errors.Is(err, dseed.ErrEndOfFile) {
			break
		}
		if err != nil {
			return err
		}
		dseed.Logger().Debug("dseedconv: sample", "input", in, "trace", smp.TraceID, "frames", smp.Frames(f))
		pcm = append(pcm, smp.Data...)
	}

	var err error
	if rate := c.cfg.Audio.SampleRate; rate > 0 && rate != f.SampleRate {
		if pcm, f, err = pulse.Resample(pcm, f, rate, c.cfg.Interpolation()); err != nil {
			return err
		}
	}
	if c.cfg.Audio.Downmix && f.Channels > 1 {
		if pcm, f, err = pulse.Downmix(pcm, f); err != nil {
			return err
		}
	}

	out := c.outputPath(in, "wav")
	s, err := dseed.CreateFile(out)
	if err != nil {
		return err
	}
	defer s.Close()

	enc, err := media.NewWAVEncoder(s, media.WAVOptions{Info: dec.Attributes()})
	if err != nil {
		return err
	}
	if err := enc.SetFormat(f); err != nil {
		return err
	}
	d := time.Duration(len(pcm)/f.BlockAlign()) * time.Second / time.Duration(f.SampleRate)
	if err := enc.EncodeSample(media.NewSample(media.SampleAudio, 0, d, pcm)); err != nil {
		return err
	}
	if err := enc.Commit(); err != nil {
		return err
	}
	if c.meta {
		if err := writeMeta(out, dec.Attributes()); err != nil {
			return err
		}
	}
	dseed.Logger().Info("dseedconv: wrote", "input", in, "output", out, "decoder", decoder, "format", f.String())
	return nil
}

// writeMeta stores attrs as msgpack in out + ".meta".
func writeMeta(out string, attrs *dseed.Attributes) error {
	data, err := dseed.MarshalAttributes(attrs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out+".meta", data, 0o644); err != nil {
		return fmt.Errorf("write meta: %w: %w", dseed.ErrIO, err)
	}
	return nil
}
