package pulse

import (
	"errors"
	"math"
	"testing"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/media"
)

func TestFFT(t *testing.T) {
	tests := []struct {
		name   string
		re     []float64
		wantRe []float64
	}{
		{"impulse", []float64{1, 0, 0, 0}, []float64{1, 1, 1, 1}},
		{"constant", []float64{1, 1, 1, 1}, []float64{4, 0, 0, 0}},
		{"alternating", []float64{1, -1, 1, -1, 1, -1, 1, -1}, []float64{0, 0, 0, 0, 8, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := make([]float64, len(tt.re))
			if err := FFT(tt.re, im); err != nil {
				t.Fatal(err)
			}
			for i := range tt.re {
				if math.Abs(tt.re[i]-tt.wantRe[i]) > 1e-9 || math.Abs(im[i]) > 1e-9 {
					t.Errorf("bin %d = %v%+vi, want %v", i, tt.re[i], im[i], tt.wantRe[i])
				}
			}
		})
	}
}

func TestFFTRejectsBadLength(t *testing.T) {
	if err := FFT(make([]float64, 3), make([]float64, 3)); !errors.Is(err, dseed.ErrInvalidArgs) {
		t.Errorf("FFT(3) error = %v, want %v", err, dseed.ErrInvalidArgs)
	}
	if err := FFT(make([]float64, 4), make([]float64, 2)); !errors.Is(err, dseed.ErrInvalidArgs) {
		t.Errorf("FFT(4, 2) error = %v, want %v", err, dseed.ErrInvalidArgs)
	}
}

func TestSpectrumPeaksAtTone(t *testing.T) {
	const (
		n    = 64
		rate = 6400
		bin  = 8
	)
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = float32(0.8 * math.Sin(2*math.Pi*bin*float64(i)/n))
	}
	f := media.AudioFormat{Channels: 1, BitsPerSample: 32, SampleRate: rate, Pulse: media.PulseFloat}
	mags, err := Spectrum(f32(vals...), f, AllChannels, n)
	if err != nil {
		t.Fatal(err)
	}
	if len(mags) != n/2+1 {
		t.Fatalf("len = %d, want %d", len(mags), n/2+1)
	}
	peak := 0
	for i, m := range mags {
		if m > mags[peak] {
			peak = i
		}
	}
	if peak != bin {
		t.Errorf("peak bin = %d, want %d", peak, bin)
	}
	if got := BinFrequency(peak, n, rate); got != 800 {
		t.Errorf("BinFrequency() = %v, want 800", got)
	}
}

func TestSpectrumErrors(t *testing.T) {
	f := media.AudioFormat{Channels: 1, BitsPerSample: 32, SampleRate: 8000, Pulse: media.PulseFloat}
	src := f32(0, 0, 0, 0)
	tests := []struct {
		name string
		mask ChannelMask
		n    int
		want error
	}{
		{"too few frames", AllChannels, 8, dseed.ErrOutOfRange},
		{"not power of two", AllChannels, 3, dseed.ErrInvalidArgs},
		{"zero frames", AllChannels, 0, dseed.ErrInvalidArgs},
		{"negative frames", AllChannels, -4, dseed.ErrInvalidArgs},
		{"empty mask", 0, 4, dseed.ErrInvalidArgs},
		{"mask past channels", 1 << 3, 4, dseed.ErrInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Spectrum(src, f, tt.mask, tt.n); !errors.Is(err, tt.want) {
				t.Errorf("Spectrum() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecibel(t *testing.T) {
	stereo := media.AudioFormat{Channels: 2, BitsPerSample: 32, SampleRate: 8000, Pulse: media.PulseFloat}
	src := f32(0.5, 0.25, -0.5, -0.25)
	tests := []struct {
		name string
		mask ChannelMask
		want float64
	}{
		{"left", 1 << 0, 20 * math.Log10(0.5)},
		{"right", 1 << 1, 20 * math.Log10(0.25)},
		{"both", AllChannels, 20 * math.Log10(0.375)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decibel(src, stereo, tt.mask)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Decibel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecibelSilence(t *testing.T) {
	f := media.AudioFormat{Channels: 1, BitsPerSample: 16, SampleRate: 8000}
	got, err := Decibel(s16(0, 0, 0), f, AllChannels)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(got, -1) {
		t.Errorf("Decibel() = %v, want -Inf", got)
	}
}

func TestChannelMask(t *testing.T) {
	if !AllChannels.Has(MaxChannelGroups - 1) {
		t.Error("AllChannels misses the last group")
	}
	if AllChannels.Has(MaxChannelGroups) {
		t.Error("AllChannels selects past the last group")
	}
	if ChannelMask(0b10).Has(0) {
		t.Error("mask 0b10 selects channel 0")
	}
}
