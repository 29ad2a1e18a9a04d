package pulse

import (
	"fmt"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/media"
)

// Interpolation selects the resampling kernel.
type Interpolation uint8

const (
	// Nearest picks source frame i*srcRate/dstRate.
	Nearest Interpolation = iota
	// Linear blends the two nearest source frames.
	Linear
)

func (i Interpolation) String() string {
	if i == Linear {
		return "linear"
	}
	return "nearest"
}

// ParseInterpolation accepts "nearest" and "linear".
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "nearest", "":
		return Nearest, nil
	case "linear":
		return Linear, nil
	}
	return 0, fmt.Errorf("pulse: interpolation %q: %w", s, dseed.ErrInvalidArgs)
}

// resampleFunc fills dst from src; both lengths are whole frames.
type resampleFunc func(dst, src []byte, srcRate, dstRate, channels int)

type resampleKey struct {
	interp Interpolation
	codec  codecKey
}

// resamplers is keyed by (interpolation, pulse kind, bit depth).
var resamplers = func() map[resampleKey]resampleFunc {
	t := make(map[resampleKey]resampleFunc)
	for k, c := range codecs {
		t[resampleKey{Nearest, k}] = nearestFor(c)
		t[resampleKey{Linear, k}] = linearFor(c)
	}
	return t
}()

// Resample converts src from f.SampleRate to dstRate and returns the new
// buffer together with its format. The output holds
// frames*dstRate/srcRate frames.
func Resample(src []byte, f media.AudioFormat, dstRate int, interp Interpolation) ([]byte, media.AudioFormat, error) {
	if _, err := lookupCodec("resample", f); err != nil {
		return nil, f, err
	}
	fn, ok := resamplers[resampleKey{interp, codecKey{f.Pulse, f.BitsPerSample}}]
	if !ok {
		return nil, f, fmt.Errorf("pulse: resample: %v: %w", interp, dseed.ErrNotSupport)
	}
	if dstRate <= 0 {
		return nil, f, fmt.Errorf("pulse: resample: rate %d: %w", dstRate, dseed.ErrInvalidArgs)
	}
	srcFrames, err := checkFrames("resample", src, f)
	if err != nil {
		return nil, f, err
	}

	out := f
	out.SampleRate = dstRate
	if dstRate == f.SampleRate {
		return append([]byte(nil), src...), out, nil
	}
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(f.SampleRate))
	dst := make([]byte, dstFrames*f.BlockAlign())
	fn(dst, src, f.SampleRate, dstRate, f.Channels)
	return dst, out, nil
}

func nearestFor(c sampleCodec) resampleFunc {
	return func(dst, src []byte, srcRate, dstRate, channels int) {
		ba := channels * c.size
		last := len(src)/ba - 1
		for i := range len(dst) / ba {
			j := min(int(int64(i)*int64(srcRate)/int64(dstRate)), last)
			copy(dst[i*ba:(i+1)*ba], src[j*ba:(j+1)*ba])
		}
	}
}

func linearFor(c sampleCodec) resampleFunc {
	return func(dst, src []byte, srcRate, dstRate, channels int) {
		ba := channels * c.size
		last := len(src)/ba - 1
		ratio := float64(srcRate) / float64(dstRate)
		for i := range len(dst) / ba {
			pos := float64(i) * ratio
			j := min(int(pos), last)
			k := min(j+1, last)
			t := pos - float64(j)
			for ch := range channels {
				off := ch * c.size
				a := c.load(src[j*ba+off:])
				b := c.load(src[k*ba+off:])
				c.store(dst[i*ba+off:], a+(b-a)*t)
			}
		}
	}
}
