// Package media decodes and encodes audio streams as sequences of samples.
//
// A Registry detects the container of a dseed.Stream and returns a
// Decoder that yields Samples of raw PCM or IEEE float frames. The WAV
// container is built in.
package media

import (
	"fmt"

	"github.com/daramkun/dseed"
)

// PulseKind is the numeric encoding of audio samples.
type PulseKind uint8

const (
	// PulsePCM is integer PCM: unsigned 8-bit or signed little-endian 16,
	// 24 and 32-bit.
	PulsePCM PulseKind = iota
	// PulseFloat is little-endian IEEE float, 32 or 64-bit.
	PulseFloat
)

func (k PulseKind) String() string {
	if k == PulseFloat {
		return "float"
	}
	return "pcm"
}

// AudioFormat describes interleaved audio frames.
type AudioFormat struct {
	Channels      int
	BitsPerSample int
	SampleRate    int
	Pulse         PulseKind
}

// BlockAlign returns the size of one frame: channels times bytes per sample.
func (f AudioFormat) BlockAlign() int { return f.Channels * f.BytesPerSample() }

// BytesPerSample returns the size of one channel sample.
func (f AudioFormat) BytesPerSample() int { return (f.BitsPerSample + 7) / 8 }

// BytesPerSecond returns BlockAlign times SampleRate.
func (f AudioFormat) BytesPerSecond() int { return f.BlockAlign() * f.SampleRate }

// Validate checks that f describes a supported layout.
func (f AudioFormat) Validate() error {
	if f.Channels <= 0 || f.Channels > 0xffff || f.SampleRate <= 0 {
		return fmt.Errorf("media: invalid format %v: %w", f, dseed.ErrInvalidArgs)
	}
	switch {
	case f.Pulse == PulsePCM && (f.BitsPerSample == 8 || f.BitsPerSample == 16 || f.BitsPerSample == 24 || f.BitsPerSample == 32):
	case f.Pulse == PulseFloat && (f.BitsPerSample == 32 || f.BitsPerSample == 64):
	default:
		return fmt.Errorf("media: %d-bit %s: %w", f.BitsPerSample, f.Pulse, dseed.ErrNotSupport)
	}
	return nil
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%dch %dHz %d-bit %s", f.Channels, f.SampleRate, f.BitsPerSample, f.Pulse)
}
