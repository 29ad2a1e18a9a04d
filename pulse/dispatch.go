// Package pulse transforms interleaved audio buffers: resampling, channel
// downmix, and FFT based spectrum and loudness measurement.
//
// Every operation looks up a sample codec by (pulse kind, bit depth), the
// way pixelop dispatches by pixel format.
package pulse

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/media"
)

// sampleCodec converts one channel sample to and from a float in [-1, 1].
type sampleCodec struct {
	size  int
	load  func(b []byte) float64
	store func(b []byte, v float64)
}

type codecKey struct {
	pulse media.PulseKind
	bits  int
}

func clampUnit(v float64) float64 { return max(-1, min(1, v)) }

var codecs = map[codecKey]sampleCodec{
	{media.PulsePCM, 8}: {
		size:  1,
		load:  func(b []byte) float64 { return (float64(b[0]) - 128) / 128 },
		store: func(b []byte, v float64) { b[0] = byte(math.Round(clampUnit(v)*127) + 128) },
	},
	{media.PulsePCM, 16}: {
		size: 2,
		load: func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) / 32768 },
		store: func(b []byte, v float64) {
			binary.LittleEndian.PutUint16(b, uint16(int16(math.Round(clampUnit(v)*32767))))
		},
	},
	{media.PulsePCM, 24}: {
		size: 3,
		load: func(b []byte) float64 {
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			return float64(v) / (1 << 23)
		},
		store: func(b []byte, v float64) {
			i := int32(math.Round(clampUnit(v) * (1<<23 - 1)))
			b[0], b[1], b[2] = byte(i), byte(i>>8), byte(i>>16)
		},
	},
	{media.PulsePCM, 32}: {
		size: 4,
		load: func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31) },
		store: func(b []byte, v float64) {
			binary.LittleEndian.PutUint32(b, uint32(int32(math.Round(clampUnit(v)*(1<<31-1)))))
		},
	},
	{media.PulseFloat, 32}: {
		size:  4,
		load:  func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) },
		store: func(b []byte, v float64) { binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v))) },
	},
	{media.PulseFloat, 64}: {
		size:  8,
		load:  func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) },
		store: func(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) },
	},
}

func lookupCodec(op string, f media.AudioFormat) (sampleCodec, error) {
	if f.Channels <= 0 || f.SampleRate <= 0 {
		return sampleCodec{}, fmt.Errorf("pulse: %s: invalid format %v: %w", op, f, dseed.ErrInvalidArgs)
	}
	c, ok := codecs[codecKey{f.Pulse, f.BitsPerSample}]
	if !ok {
		return sampleCodec{}, fmt.Errorf("pulse: %s: %d-bit %s: %w", op, f.BitsPerSample, f.Pulse, dseed.ErrNotSupport)
	}
	return c, nil
}

func checkFrames(op string, src []byte, f media.AudioFormat) (int, error) {
	ba := f.BlockAlign()
	if len(src)%ba != 0 {
		return 0, fmt.Errorf("pulse: %s: %d bytes is not a whole number of %d-byte frames: %w",
			op, len(src), ba, dseed.ErrInvalidArgs)
	}
	return len(src) / ba, nil
}
