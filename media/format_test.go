package media

import (
	"errors"
	"testing"

	"github.com/daramkun/dseed"
)

func TestAudioFormatDerived(t *testing.T) {
	tests := []struct {
		name       string
		f          AudioFormat
		blockAlign int
		perSecond  int
	}{
		{"cd", AudioFormat{Channels: 2, BitsPerSample: 16, SampleRate: 44100}, 4, 176400},
		{"mono 8", AudioFormat{Channels: 1, BitsPerSample: 8, SampleRate: 8000}, 1, 8000},
		{"5.1 24", AudioFormat{Channels: 6, BitsPerSample: 24, SampleRate: 48000}, 18, 864000},
		{"float", AudioFormat{Channels: 2, BitsPerSample: 32, SampleRate: 48000, Pulse: PulseFloat}, 8, 384000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.BlockAlign(); got != tt.blockAlign {
				t.Errorf("BlockAlign() = %d, want %d", got, tt.blockAlign)
			}
			if got := tt.f.BytesPerSecond(); got != tt.perSecond {
				t.Errorf("BytesPerSecond() = %d, want %d", got, tt.perSecond)
			}
			if err := tt.f.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestAudioFormatValidate(t *testing.T) {
	tests := []struct {
		name string
		f    AudioFormat
		want error
	}{
		{"no channels", AudioFormat{BitsPerSample: 16, SampleRate: 8000}, dseed.ErrInvalidArgs},
		{"no rate", AudioFormat{Channels: 1, BitsPerSample: 16}, dseed.ErrInvalidArgs},
		{"12-bit", AudioFormat{Channels: 1, BitsPerSample: 12, SampleRate: 8000}, dseed.ErrNotSupport},
		{"16-bit float", AudioFormat{Channels: 1, BitsPerSample: 16, SampleRate: 8000, Pulse: PulseFloat}, dseed.ErrNotSupport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.f.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewSampleTraceID(t *testing.T) {
	a := NewSample(SampleAudio, 0, 0, nil)
	b := NewSample(SampleAudio, 0, 0, nil)
	if a.TraceID == "" || a.TraceID == b.TraceID {
		t.Errorf("TraceIDs = %q, %q, want distinct non-empty", a.TraceID, b.TraceID)
	}
	f := AudioFormat{Channels: 2, BitsPerSample: 16, SampleRate: 8000}
	if n := NewSample(SampleAudio, 0, 0, make([]byte, 10)).Frames(f); n != 2 {
		t.Errorf("Frames() = %d, want 2", n)
	}
}
