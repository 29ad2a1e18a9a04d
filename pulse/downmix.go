package pulse

import "github.com/daramkun/dseed/media"

// Downmix averages every frame of src into one mono sample. Channels that
// are exactly silent are left out of the average, so a stereo file with
// one dead channel keeps its level.
func Downmix(src []byte, f media.AudioFormat) ([]byte, media.AudioFormat, error) {
	c, err := lookupCodec("downmix", f)
	if err != nil {
		return nil, f, err
	}
	frames, err := checkFrames("downmix", src, f)
	if err != nil {
		return nil, f, err
	}
	out := f
	out.Channels = 1
	if f.Channels == 1 {
		return append([]byte(nil), src...), out, nil
	}

	ba := f.BlockAlign()
	dst := make([]byte, frames*c.size)
	for i := range frames {
		var sum float64
		n := 0
		for ch := range f.Channels {
			v := c.load(src[i*ba+ch*c.size:])
			if v == 0 {
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			sum /= float64(n)
		}
		c.store(dst[i*c.size:], sum)
	}
	return dst, out, nil
}
