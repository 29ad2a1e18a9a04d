package pulse

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/media"
)

func TestResampleNearest(t *testing.T) {
	tests := []struct {
		name    string
		srcRate int
		dstRate int
		in      []int16
		want    []int16
	}{
		{"upsample", 4, 8, []int16{0, 1, 2, 3}, []int16{0, 0, 1, 1, 2, 2, 3, 3}},
		{"downsample", 8, 4, []int16{0, 1, 2, 3, 4, 5, 6, 7}, []int16{0, 2, 4, 6}},
		{"same rate", 4, 4, []int16{5, 6}, []int16{5, 6}},
		{"three to two", 3, 2, []int16{10, 20, 30}, []int16{10, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := media.AudioFormat{Channels: 1, BitsPerSample: 16, SampleRate: tt.srcRate}
			got, out, err := Resample(s16(tt.in...), f, tt.dstRate, Nearest)
			if err != nil {
				t.Fatal(err)
			}
			if out.SampleRate != tt.dstRate {
				t.Errorf("SampleRate = %d, want %d", out.SampleRate, tt.dstRate)
			}
			if !bytes.Equal(got, s16(tt.want...)) {
				t.Errorf("Resample() = %v, want %v", got, s16(tt.want...))
			}
		})
	}
}

func TestResampleStereoKeepsChannels(t *testing.T) {
	f := media.AudioFormat{Channels: 2, BitsPerSample: 16, SampleRate: 1}
	got, _, err := Resample(s16(1, -1, 2, -2), f, 2, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	want := s16(1, -1, 1, -1, 2, -2, 2, -2)
	if !bytes.Equal(got, want) {
		t.Errorf("Resample() = %v, want %v", got, want)
	}
}

func TestResampleLinear(t *testing.T) {
	f := media.AudioFormat{Channels: 1, BitsPerSample: 32, SampleRate: 1, Pulse: media.PulseFloat}
	got, _, err := Resample(f32(0, 1), f, 2, Linear)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 0.5, 1, 1}
	if vals := unf32(got); !slices.Equal(vals, want) {
		t.Errorf("Resample() = %v, want %v", vals, want)
	}
}

func TestResampleErrors(t *testing.T) {
	tests := []struct {
		name string
		f    media.AudioFormat
		src  []byte
		rate int
		want error
	}{
		{"12-bit", media.AudioFormat{Channels: 1, BitsPerSample: 12, SampleRate: 8000}, make([]byte, 4), 4000, dseed.ErrNotSupport},
		{"no channels", media.AudioFormat{BitsPerSample: 16, SampleRate: 8000}, nil, 4000, dseed.ErrInvalidArgs},
		{"zero rate", media.AudioFormat{Channels: 1, BitsPerSample: 16, SampleRate: 8000}, make([]byte, 4), 0, dseed.ErrInvalidArgs},
		{"ragged", media.AudioFormat{Channels: 2, BitsPerSample: 16, SampleRate: 8000}, make([]byte, 6), 4000, dseed.ErrInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Resample(tt.src, tt.f, tt.rate, Nearest); !errors.Is(err, tt.want) {
				t.Errorf("Resample() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseInterpolation(t *testing.T) {
	tests := []struct {
		in      string
		want    Interpolation
		wantErr bool
	}{
		{"nearest", Nearest, false},
		{"", Nearest, false},
		{"linear", Linear, false},
		{"cubic", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterpolation(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInterpolation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseInterpolation(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if err == nil && got.String() != tt.want.String() {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}
