package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/daramkun/dseed"
)

type encoderState uint8

const (
	stateIdle encoderState = iota
	stateFormatted
	stateCommitted
)

// WAVOptions configures a WAVEncoder.
type WAVOptions struct {
	// Info attributes with a RIFF INFO mapping (title, artist, ...) are
	// written as a LIST/INFO chunk in Windows-1252.
	Info *dseed.Attributes
}

// WAVEncoder writes a RIFF WAVE file in one pass.
//
// SetFormat writes every header with zero size fields; EncodeSample
// appends frames; Commit seeks back, patches the RIFF and data sizes and
// restores the cursor to the end of the file.
type WAVEncoder struct {
	s       dseed.Stream
	opts    WAVOptions
	start   int64
	dataAt  int64
	dataLen int64
	format  AudioFormat
	state   encoderState
}

// NewWAVEncoder starts a WAV file at the current position of s, which
// must be writable and seekable.
func NewWAVEncoder(s dseed.Stream, opts WAVOptions) (*WAVEncoder, error) {
	if !s.CanWrite() || !s.CanSeek() {
		return nil, fmt.Errorf("wav: stream must be writable and seekable: %w", dseed.ErrInvalidArgs)
	}
	return &WAVEncoder{s: s, opts: opts, start: s.Position()}, nil
}

// SetFormat writes the headers. It may be called once, before any sample.
func (e *WAVEncoder) SetFormat(f AudioFormat) error {
	if e.state != stateIdle {
		return fmt.Errorf("wav: format already set: %w", dseed.ErrInvalidOp)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	var h bytes.Buffer
	le := binary.LittleEndian
	h.WriteString("RIFF")
	h.Write(make([]byte, 4))
	h.WriteString("WAVE")

	h.WriteString("fmt ")
	tag := uint16(wavTagPCM)
	fmtLen := uint32(16)
	if f.Pulse == PulseFloat {
		tag, fmtLen = wavTagFloat, 18
	}
	h.Write(le.AppendUint32(nil, fmtLen))
	h.Write(le.AppendUint16(nil, tag))
	h.Write(le.AppendUint16(nil, uint16(f.Channels)))
	h.Write(le.AppendUint32(nil, uint32(f.SampleRate)))
	h.Write(le.AppendUint32(nil, uint32(f.BytesPerSecond())))
	h.Write(le.AppendUint16(nil, uint16(f.BlockAlign())))
	h.Write(le.AppendUint16(nil, uint16(f.BitsPerSample)))
	if fmtLen == 18 {
		h.Write(make([]byte, 2))
	}

	info, err := buildWAVInfo(e.opts.Info)
	if err != nil {
		return err
	}
	h.Write(info)

	h.WriteString("data")
	h.Write(make([]byte, 4))
	if err := dseed.WriteFull(e.s, h.Bytes()); err != nil {
		return err
	}
	e.dataAt = e.start + int64(h.Len()) - 4
	e.format = f
	e.state = stateFormatted
	return nil
}

// buildWAVInfo returns a LIST/INFO chunk, or nil when attrs carries no
// INFO text.
func buildWAVInfo(attrs *dseed.Attributes) ([]byte, error) {
	if attrs == nil {
		return nil, nil
	}
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	var body bytes.Buffer
	body.WriteString("INFO")
	for _, k := range infoKeys {
		v, err := attrs.StringValue(k.key)
		if err != nil {
			continue
		}
		text, err := enc.String(v)
		if err != nil {
			return nil, fmt.Errorf("wav: INFO %s: %w", k.key, dseed.ErrInvalidArgs)
		}
		n := len(text) + 1
		body.Write(k.id[:])
		body.Write(binary.LittleEndian.AppendUint32(nil, uint32(n)))
		body.WriteString(text)
		body.WriteByte(0)
		if n%2 == 1 {
			body.WriteByte(0)
		}
	}
	if body.Len() == 4 {
		return nil, nil
	}
	out := append([]byte("LIST"), binary.LittleEndian.AppendUint32(nil, uint32(body.Len()))...)
	return append(out, body.Bytes()...), nil
}

// EncodeSample appends the frames of s, whose Data must hold whole frames
// of the format given to SetFormat.
func (e *WAVEncoder) EncodeSample(s *Sample) error {
	switch e.state {
	case stateIdle:
		return fmt.Errorf("wav: sample before format: %w", dseed.ErrInvalidOp)
	case stateCommitted:
		return fmt.Errorf("wav: encoder already committed: %w", dseed.ErrInvalidOp)
	}
	if s.Type != SampleAudio {
		return fmt.Errorf("wav: %s sample: %w", s.Type, dseed.ErrInvalidArgs)
	}
	if len(s.Data)%e.format.BlockAlign() != 0 {
		return fmt.Errorf("wav: %d bytes is not a whole number of %d-byte frames: %w",
			len(s.Data), e.format.BlockAlign(), dseed.ErrInvalidArgs)
	}
	if e.dataLen+int64(len(s.Data)) > 0xffffffff-64 {
		return fmt.Errorf("wav: data exceeds 4 GiB: %w", dseed.ErrOutOfRange)
	}
	if err := dseed.WriteFull(e.s, s.Data); err != nil {
		return err
	}
	e.dataLen += int64(len(s.Data))
	return nil
}

// Commit pads the data chunk to an even length and patches the sizes. It
// must be called exactly once, after SetFormat.
func (e *WAVEncoder) Commit() error {
	switch e.state {
	case stateIdle:
		return fmt.Errorf("wav: commit without format: %w", dseed.ErrInvalidOp)
	case stateCommitted:
		return fmt.Errorf("wav: encoder already committed: %w", dseed.ErrInvalidOp)
	}
	if e.dataLen%2 == 1 {
		if err := dseed.WriteFull(e.s, []byte{0}); err != nil {
			return err
		}
	}
	end := e.s.Position()
	if err := dseed.PatchUint32(e.s, e.start+4, uint32(end-e.start-8)); err != nil {
		return err
	}
	if err := dseed.PatchUint32(e.s, e.dataAt, uint32(e.dataLen)); err != nil {
		return err
	}
	if _, err := e.s.Seek(end, io.SeekStart); err != nil {
		return err
	}
	e.state = stateCommitted
	dseed.Logger().Debug("wav: committed", "format", e.format.String(), "bytes", end-e.start)
	return nil
}

