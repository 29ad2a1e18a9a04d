package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/bitmap"
)

var (
	pngSignature  = []byte("\x89PNG\r\n\x1a\n")
	jpegSignature = []byte{0xff, 0xd8, 0xff}
	tiffLE        = []byte("II*\x00")
	tiffBE        = []byte("MM\x00*")
)

// decodeStd checks a signature and hands the whole stream to a standard
// image decoder.
func decodeStd(codec string, s dseed.Stream, sigLen int, match func(sig []byte) bool,
	decode func(io.Reader) (image.Image, error)) (*bitmap.Array, error) {
	sig := make([]byte, sigLen)
	if err := probe(codec, s, sig); err != nil {
		return nil, err
	}
	if !match(sig) {
		return nil, notFormat(codec, "signature mismatch")
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := decode(s)
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w: %w", codec, dseed.ErrCorruptedData, err)
	}
	b, err := bitmap.FromImage(img)
	if err != nil {
		return nil, err
	}
	b.Attributes().SetString(dseed.AttrContainer, codec)
	return bitmap.Single(b), nil
}

// DecodePNG decodes the first image of a PNG stream.
func DecodePNG(s dseed.Stream) (*bitmap.Array, error) {
	return decodeStd("png", s, len(pngSignature),
		func(sig []byte) bool { return bytes.Equal(sig, pngSignature) }, png.Decode)
}

// DecodeJPEG decodes a baseline or progressive JPEG stream.
func DecodeJPEG(s dseed.Stream) (*bitmap.Array, error) {
	return decodeStd("jpeg", s, len(jpegSignature),
		func(sig []byte) bool { return bytes.Equal(sig, jpegSignature) }, jpeg.Decode)
}

// DecodeWEBP decodes a still WebP image (lossy or lossless).
func DecodeWEBP(s dseed.Stream) (*bitmap.Array, error) {
	return decodeStd("webp", s, 12,
		func(sig []byte) bool { return string(sig[0:4]) == "RIFF" && string(sig[8:12]) == "WEBP" }, webp.Decode)
}

// DecodeTIFF decodes the first page of a TIFF stream.
func DecodeTIFF(s dseed.Stream) (*bitmap.Array, error) {
	return decodeStd("tiff", s, 4,
		func(sig []byte) bool { return bytes.Equal(sig, tiffLE) || bytes.Equal(sig, tiffBE) }, tiff.Decode)
}

// lockedImage converts slice 0 of b while holding its pin.
func lockedImage(b *bitmap.Bitmap) (image.Image, error) {
	var img image.Image
	err := b.Access(func([]byte) error {
		var err error
		img, err = bitmap.ToImage(b, 0)
		return err
	})
	return img, err
}

// EncodePNG writes slice 0 of b as PNG.
func EncodePNG(s dseed.Stream, b *bitmap.Bitmap) error {
	img, err := lockedImage(b)
	if err != nil {
		return err
	}
	if err := png.Encode(s, img); err != nil {
		return fmt.Errorf("png: encode: %w: %w", dseed.ErrIO, err)
	}
	return nil
}

// EncodeJPEG writes slice 0 of b as JPEG with quality clamped to 1..100.
func EncodeJPEG(s dseed.Stream, b *bitmap.Bitmap, quality int) error {
	quality = max(1, min(quality, 100))
	img, err := lockedImage(b)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(s, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("jpeg: encode: %w: %w", dseed.ErrIO, err)
	}
	return nil
}
