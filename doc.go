// Package dseed is the foundation of a multimedia asset framework.
//
// # Overview
//
// The root package holds the collaborators every codec shares:
//
//   - [Stream]: the only I/O boundary a codec ever touches
//   - [Attributes]: a typed key/value store attached to bitmaps and samples
//   - [Code]: process-wide error codes partitioned by category
//   - [RefCount]: explicit retain/release lifecycle for codec objects
//
// The engine itself lives in sub-packages:
//
//   - pixelformat: row stride, plane size and mip geometry per pixel format
//   - bitmap: pixel buffers, palettes and multi-frame arrays
//   - pixelop: format-keyed pixel operations (flip, convolution, transparency)
//   - codec: decoder auto-detection, DIB/ICO/TGA/DDS/KTX/PKM/PNG/JPEG/GIF/WEBP/TIFF
//   - media: audio formats, samples, WAV decoding and encoding
//   - pulse: resampling, downmix and spectrum analysis of audio samples
//   - config: YAML settings for the dseedconv command
//
// # Quick Start
//
//	s, err := dseed.OpenFile("icon.ico")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	frames, name, err := codec.DefaultRegistry().Decode(s)
//	if err != nil {
//	    return err
//	}
//	defer frames.Release()
//	log.Printf("%s: %d frame(s)", name, frames.Len())
//
// # Logging
//
// dseed is silent by default. Call [SetLogger] to route diagnostics to a
// [log/slog] logger.
package dseed
