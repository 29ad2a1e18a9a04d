package pulse

import (
	"bytes"
	"slices"
	"testing"

	"github.com/daramkun/dseed/media"
)

func TestDownmixSkipsSilentChannels(t *testing.T) {
	f := media.AudioFormat{Channels: 2, BitsPerSample: 32, SampleRate: 48000, Pulse: media.PulseFloat}
	got, out, err := Downmix(f32(0.5, 0, 0.5, -0.25, 0, 0), f)
	if err != nil {
		t.Fatal(err)
	}
	if out.Channels != 1 {
		t.Errorf("Channels = %d, want 1", out.Channels)
	}
	want := []float32{0.5, 0.125, 0}
	if vals := unf32(got); !slices.Equal(vals, want) {
		t.Errorf("Downmix() = %v, want %v", vals, want)
	}
}

func TestDownmixPCM(t *testing.T) {
	tests := []struct {
		name string
		f    media.AudioFormat
		in   []byte
		want []byte
	}{
		{
			"16-bit",
			media.AudioFormat{Channels: 2, BitsPerSample: 16, SampleRate: 8000},
			s16(1000, 0, 1000, 3000),
			s16(1000, 2000),
		},
		{
			"8-bit midpoint is silence",
			media.AudioFormat{Channels: 2, BitsPerSample: 8, SampleRate: 8000},
			[]byte{128, 128, 128, 192},
			[]byte{128, 192},
		},
		{
			"mono copy",
			media.AudioFormat{Channels: 1, BitsPerSample: 16, SampleRate: 8000},
			s16(7, -7),
			s16(7, -7),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Downmix(tt.in, tt.f)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Downmix() = %v, want %v", got, tt.want)
			}
		})
	}
}
