package pulse

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/media"
)

// MaxChannelGroups is the number of channels a ChannelMask can address.
const MaxChannelGroups = 10

// ChannelMask selects channels by bit: bit i is channel i.
type ChannelMask uint16

// AllChannels selects every addressable channel.
const AllChannels ChannelMask = 1<<MaxChannelGroups - 1

// Has reports whether channel ch is selected.
func (m ChannelMask) Has(ch int) bool { return ch < MaxChannelGroups && m&(1<<ch) != 0 }

// FFT transforms re and im in place with an iterative radix-2
// Cooley-Tukey FFT. The length must be a power of two.
func FFT(re, im []float64) error {
	n := len(re)
	if n != len(im) || n == 0 || n&(n-1) != 0 {
		return fmt.Errorf("pulse: fft length %d/%d is not a matching power of two: %w", len(re), len(im), dseed.ErrInvalidArgs)
	}
	shift := 64 - bits.Len(uint(n)) + 1
	for i := range n {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if j > i {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}
	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := -2 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := range half {
				wr, wi := math.Cos(step*float64(k)), math.Sin(step*float64(k))
				a, b := start+k, start+k+half
				tr := wr*re[b] - wi*im[b]
				ti := wr*im[b] + wi*re[b]
				re[b], im[b] = re[a]-tr, im[a]-ti
				re[a], im[a] = re[a]+tr, im[a]+ti
			}
		}
	}
	return nil
}

// mixSelected returns, per frame, the mean of the selected channels.
func mixSelected(op string, src []byte, f media.AudioFormat, mask ChannelMask) ([]float64, error) {
	c, err := lookupCodec(op, f)
	if err != nil {
		return nil, err
	}
	frames, err := checkFrames(op, src, f)
	if err != nil {
		return nil, err
	}
	var selected []int
	for ch := range min(f.Channels, MaxChannelGroups) {
		if mask.Has(ch) {
			selected = append(selected, ch)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("pulse: %s: mask %#x selects none of %d channels: %w", op, mask, f.Channels, dseed.ErrInvalidArgs)
	}
	ba := f.BlockAlign()
	out := make([]float64, frames)
	for i := range out {
		var sum float64
		for _, ch := range selected {
			sum += c.load(src[i*ba+ch*c.size:])
		}
		out[i] = sum / float64(len(selected))
	}
	return out, nil
}

// Spectrum returns the magnitudes of bins 0..n/2 of the first n frames of
// src, mixed over the selected channels and shaped by a Hann window. n
// must be a power of two no larger than the frame count.
func Spectrum(src []byte, f media.AudioFormat, mask ChannelMask, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("pulse: spectrum: %d frames: %w", n, dseed.ErrInvalidArgs)
	}
	mono, err := mixSelected("spectrum", src, f, mask)
	if err != nil {
		return nil, err
	}
	if n > len(mono) {
		return nil, fmt.Errorf("pulse: spectrum: %d frames, need %d: %w", len(mono), n, dseed.ErrOutOfRange)
	}
	re := make([]float64, n)
	im := make([]float64, n)
	for i := range n {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		re[i] = mono[i] * w
	}
	if n == 1 {
		re[0] = mono[0]
	}
	if err := FFT(re, im); err != nil {
		return nil, err
	}
	mags := make([]float64, n/2+1)
	for i := range mags {
		mags[i] = math.Sqrt(re[i]*re[i] + im[i]*im[i])
	}
	return mags, nil
}

// BinFrequency returns the centre frequency in Hz of spectrum bin i.
func BinFrequency(i, n, sampleRate int) float64 {
	return float64(i) * float64(sampleRate) / float64(n)
}

// Decibel returns 20*log10 of the mean absolute amplitude of the selected
// channels, relative to full scale. Silence is -Inf.
func Decibel(src []byte, f media.AudioFormat, mask ChannelMask) (float64, error) {
	mono, err := mixSelected("decibel", src, f, mask)
	if err != nil {
		return 0, err
	}
	if len(mono) == 0 {
		return math.Inf(-1), nil
	}
	var sum float64
	for _, v := range mono {
		sum += math.Abs(v)
	}
	return 20 * math.Log10(sum/float64(len(mono))), nil
}
