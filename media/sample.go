package media

import (
	"time"

	"github.com/google/uuid"
)

// SampleType tags the payload of a Sample.
type SampleType uint8

const (
	SampleAudio SampleType = iota
	SampleVideo
)

func (t SampleType) String() string {
	if t == SampleVideo {
		return "video"
	}
	return "audio"
}

// Sample is one timed block of media data.
type Sample struct {
	Type      SampleType
	Timestamp time.Duration
	Duration  time.Duration
	Data      []byte
	// TraceID identifies the sample across pipeline stages.
	TraceID string
}

// NewSample returns a sample with a fresh TraceID.
func NewSample(t SampleType, ts, d time.Duration, data []byte) *Sample {
	return &Sample{
		Type:      t,
		Timestamp: ts,
		Duration:  d,
		Data:      data,
		TraceID:   uuid.New().String(),
	}
}

// Frames returns the number of whole audio frames in s under f.
func (s *Sample) Frames(f AudioFormat) int {
	if ba := f.BlockAlign(); ba > 0 {
		return len(s.Data) / ba
	}
	return 0
}
