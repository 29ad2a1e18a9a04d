package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/image/riff"
	"golang.org/x/text/encoding/charmap"

	"github.com/daramkun/dseed"
)

// WAVE format tags.
const (
	wavTagPCM        = 0x0001
	wavTagFloat      = 0x0003
	wavTagExtensible = 0xfffe
)

var (
	fourCCWAVE = riff.FourCC{'W', 'A', 'V', 'E'}
	fourCCFmt  = riff.FourCC{'f', 'm', 't', ' '}
	fourCCData = riff.FourCC{'d', 'a', 't', 'a'}
	fourCCInfo = riff.FourCC{'I', 'N', 'F', 'O'}
)

// infoKeys maps RIFF INFO chunk ids to attribute keys.
var infoKeys = []struct {
	id  riff.FourCC
	key dseed.Key
}{
	{riff.FourCC{'I', 'N', 'A', 'M'}, dseed.AttrTitle},
	{riff.FourCC{'I', 'A', 'R', 'T'}, dseed.AttrArtist},
	{riff.FourCC{'I', 'P', 'R', 'D'}, dseed.AttrAlbum},
	{riff.FourCC{'I', 'C', 'M', 'T'}, dseed.AttrComment},
	{riff.FourCC{'I', 'G', 'N', 'R'}, dseed.AttrGenre},
	{riff.FourCC{'I', 'C', 'R', 'D'}, dseed.AttrDate},
	{riff.FourCC{'I', 'C', 'O', 'P'}, dseed.AttrCopyright},
	{riff.FourCC{'I', 'S', 'F', 'T'}, dseed.AttrSoftware},
}

func notWAV(what string) error {
	return fmt.Errorf("wav: %s: %w", what, dseed.ErrNotSupportFileFormat)
}

func corruptWAV(format string, args ...any) error {
	return fmt.Errorf("wav: %s: %w", fmt.Sprintf(format, args...), dseed.ErrCorruptedData)
}

// WAVDecoder reads a RIFF WAVE stream.
//
// The fmt chunk and an optional LIST/INFO chunk must precede the data
// chunk; anything after the data chunk is ignored.
type WAVDecoder struct {
	format  AudioFormat
	attrs   *dseed.Attributes
	data    io.Reader
	dataLen int64
	read    int64
}

// OpenWAV is the DecoderFactory for WAV.
func OpenWAV(s dseed.Stream) (Decoder, error) {
	d, err := NewWAVDecoder(s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewWAVDecoder parses the headers of the WAV file at the current
// position of s and leaves s at the start of the sample data.
func NewWAVDecoder(s dseed.Stream) (*WAVDecoder, error) {
	start := s.Position()
	var sig [12]byte
	if err := dseed.ReadFull(s, sig[:]); err != nil {
		if errors.Is(err, dseed.ErrEndOfFile) {
			return nil, notWAV("short header")
		}
		return nil, err
	}
	if string(sig[0:4]) != "RIFF" || string(sig[8:12]) != "WAVE" {
		return nil, notWAV("missing RIFF/WAVE signature")
	}
	if _, err := s.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}

	formType, r, err := riff.NewReader(s)
	if err != nil || formType != fourCCWAVE {
		return nil, corruptWAV("riff header: %v", err)
	}
	d := &WAVDecoder{attrs: dseed.NewAttributes()}
	haveFormat := false
	for {
		id, size, chunk, err := r.Next()
		if err == io.EOF {
			return nil, corruptWAV("no data chunk")
		}
		if err != nil {
			return nil, corruptWAV("chunk: %v", err)
		}
		switch id {
		case fourCCFmt:
			buf := make([]byte, size)
			if _, err := io.ReadFull(chunk, buf); err != nil {
				return nil, corruptWAV("fmt chunk: %v", err)
			}
			if d.format, err = parseWAVFormat(buf); err != nil {
				return nil, err
			}
			haveFormat = true
		case riff.LIST:
			listType, list, err := riff.NewListReader(size, chunk)
			if err != nil {
				return nil, corruptWAV("LIST chunk: %v", err)
			}
			if listType == fourCCInfo {
				if err := readWAVInfo(list, d.attrs); err != nil {
					return nil, err
				}
			}
		case fourCCData:
			if !haveFormat {
				return nil, corruptWAV("data chunk before fmt chunk")
			}
			d.data, d.dataLen = chunk, int64(size)
			d.dataLen -= d.dataLen % int64(d.format.BlockAlign())
			d.attrs.SetString(dseed.AttrContainer, "wav")
			return d, nil
		}
	}
}

func parseWAVFormat(b []byte) (AudioFormat, error) {
	if len(b) < 16 {
		return AudioFormat{}, corruptWAV("fmt chunk of %d bytes", len(b))
	}
	le := binary.LittleEndian
	tag := le.Uint16(b[0:])
	f := AudioFormat{
		Channels:      int(le.Uint16(b[2:])),
		SampleRate:    int(le.Uint32(b[4:])),
		BitsPerSample: int(le.Uint16(b[14:])),
	}
	if tag == wavTagExtensible {
		if len(b) < 40 {
			return AudioFormat{}, corruptWAV("extensible fmt chunk of %d bytes", len(b))
		}
		// The sub-format GUID starts with the plain format tag.
		tag = le.Uint16(b[24:])
	}
	switch tag {
	case wavTagPCM:
		f.Pulse = PulsePCM
	case wavTagFloat:
		f.Pulse = PulseFloat
	default:
		return AudioFormat{}, fmt.Errorf("wav: format tag %#x: %w", tag, dseed.ErrNotSupport)
	}
	if err := f.Validate(); err != nil {
		return AudioFormat{}, err
	}
	if align := int(le.Uint16(b[12:])); align != f.BlockAlign() {
		return AudioFormat{}, corruptWAV("block align %d, expected %d", align, f.BlockAlign())
	}
	return f, nil
}

func readWAVInfo(list *riff.Reader, attrs *dseed.Attributes) error {
	dec := charmap.Windows1252.NewDecoder()
	for {
		id, size, chunk, err := list.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return corruptWAV("INFO chunk: %v", err)
		}
		for _, k := range infoKeys {
			if k.id != id {
				continue
			}
			raw := make([]byte, size)
			if _, err := io.ReadFull(chunk, raw); err != nil {
				return corruptWAV("INFO %s: %v", id[:], err)
			}
			text, err := dec.Bytes(bytes.TrimRight(raw, "\x00"))
			if err != nil {
				return corruptWAV("INFO %s: %v", id[:], err)
			}
			attrs.SetString(k.key, string(text))
		}
	}
}

// Format returns the stream layout.
func (d *WAVDecoder) Format() AudioFormat { return d.format }

// Attributes returns the INFO metadata.
func (d *WAVDecoder) Attributes() *dseed.Attributes { return d.attrs }

// Duration returns the play time of the data chunk.
func (d *WAVDecoder) Duration() time.Duration {
	return bytesToDuration(d.dataLen, d.format)
}

func bytesToDuration(n int64, f AudioFormat) time.Duration {
	bps := int64(f.BytesPerSecond())
	if bps == 0 {
		return 0
	}
	return time.Duration(n * int64(time.Second) / bps)
}

// ReadSample returns up to a tenth of a second of frames.
func (d *WAVDecoder) ReadSample() (*Sample, error) {
	remaining := d.dataLen - d.read
	if remaining <= 0 {
		return nil, fmt.Errorf("wav: %w", dseed.ErrEndOfFile)
	}
	ba := d.format.BlockAlign()
	n := min(int64(max(1, d.format.SampleRate/10)*ba), remaining)
	buf := make([]byte, n)
	got, err := io.ReadFull(d.data, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF):
		dseed.Logger().Warn("wav: data chunk shorter than declared",
			"declared", d.dataLen, "read", d.read+int64(got))
		d.dataLen = d.read + int64(got)
		buf = buf[:got-got%ba]
		if len(buf) == 0 {
			return nil, fmt.Errorf("wav: %w", dseed.ErrEndOfFile)
		}
	default:
		return nil, fmt.Errorf("wav: read: %w: %w", dseed.ErrIO, err)
	}
	ts := bytesToDuration(d.read, d.format)
	d.read += int64(len(buf))
	return NewSample(SampleAudio, ts, bytesToDuration(int64(len(buf)), d.format), buf), nil
}
