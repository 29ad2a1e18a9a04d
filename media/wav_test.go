package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daramkun/dseed"
)

var cd = AudioFormat{Channels: 2, BitsPerSample: 16, SampleRate: 44100}

func encodeWAV(t *testing.T, s dseed.Stream, f AudioFormat, opts WAVOptions, chunks ...[]byte) {
	t.Helper()
	e, err := NewWAVEncoder(s, opts)
	if err != nil {
		t.Fatalf("NewWAVEncoder() error = %v", err)
	}
	if err := e.SetFormat(f); err != nil {
		t.Fatalf("SetFormat() error = %v", err)
	}
	for _, c := range chunks {
		if err := e.EncodeSample(NewSample(SampleAudio, 0, 0, c)); err != nil {
			t.Fatalf("EncodeSample() error = %v", err)
		}
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func TestWAVCommitPatchesSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	fs, err := dseed.CreateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	pcm := make([]byte, 4*1000)
	encodeWAV(t, fs, cd, WAVOptions{}, pcm[:2000], pcm[2000:])
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(data[4:]); int(got) != len(data)-8 {
		t.Errorf("RIFF size = %d, want %d", got, len(data)-8)
	}
	if got := binary.LittleEndian.Uint32(data[40:]); got != 4000 {
		t.Errorf("data size = %d, want 4000", got)
	}
	if len(data) != 44+4000 {
		t.Errorf("file length = %d, want %d", len(data), 44+4000)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	// Half a second of a ramp, read back in tenth-of-a-second samples.
	f := AudioFormat{Channels: 1, BitsPerSample: 16, SampleRate: 8000}
	pcm := make([]byte, 2*4000)
	for i := range 4000 {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(i))
	}
	s := dseed.NewGrowableStream()
	encodeWAV(t, s, f, WAVOptions{}, pcm)

	d, err := NewWAVDecoder(dseed.NewMemoryStream(s.Bytes(), false))
	if err != nil {
		t.Fatalf("NewWAVDecoder() error = %v", err)
	}
	if d.Format() != f {
		t.Fatalf("Format() = %v, want %v", d.Format(), f)
	}
	if d.Duration() != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", d.Duration())
	}

	var got []byte
	var samples int
	for {
		sm, err := d.ReadSample()
		if errors.Is(err, dseed.ErrEndOfFile) {
			break
		}
		if err != nil {
			t.Fatalf("ReadSample() error = %v", err)
		}
		if sm.Duration > 100*time.Millisecond {
			t.Errorf("sample %d duration = %v, want <= 100ms", samples, sm.Duration)
		}
		if want := time.Duration(samples) * 100 * time.Millisecond; sm.Timestamp != want {
			t.Errorf("sample %d timestamp = %v, want %v", samples, sm.Timestamp, want)
		}
		got = append(got, sm.Data...)
		samples++
	}
	if samples != 5 {
		t.Errorf("samples = %d, want 5", samples)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("decoded PCM differs")
	}
}

func TestWAVInfoRoundTrip(t *testing.T) {
	info := dseed.NewAttributes()
	info.SetString(dseed.AttrTitle, "Café Müller")
	info.SetString(dseed.AttrArtist, "Ensemble")
	f := AudioFormat{Channels: 1, BitsPerSample: 32, SampleRate: 1000, Pulse: PulseFloat}

	s := dseed.NewGrowableStream()
	encodeWAV(t, s, f, WAVOptions{Info: info}, make([]byte, 40))
	if !bytes.Contains(s.Bytes(), []byte("Caf\xe9 M\xfcller\x00")) {
		t.Errorf("title not stored as Windows-1252")
	}

	d, err := NewWAVDecoder(dseed.NewMemoryStream(s.Bytes(), false))
	if err != nil {
		t.Fatalf("NewWAVDecoder() error = %v", err)
	}
	if d.Format().Pulse != PulseFloat {
		t.Errorf("Pulse = %v, want float", d.Format().Pulse)
	}
	for key, want := range map[dseed.Key]string{dseed.AttrTitle: "Café Müller", dseed.AttrArtist: "Ensemble"} {
		if got, _ := d.Attributes().StringValue(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestWAVEncoderProtocol(t *testing.T) {
	e, err := NewWAVEncoder(dseed.NewGrowableStream(), WAVOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.EncodeSample(NewSample(SampleAudio, 0, 0, make([]byte, 4))); !errors.Is(err, dseed.ErrInvalidOp) {
		t.Errorf("EncodeSample() before format error = %v, want ErrInvalidOp", err)
	}
	if err := e.Commit(); !errors.Is(err, dseed.ErrInvalidOp) {
		t.Errorf("Commit() before format error = %v, want ErrInvalidOp", err)
	}
	if err := e.SetFormat(cd); err != nil {
		t.Fatal(err)
	}
	if err := e.SetFormat(cd); !errors.Is(err, dseed.ErrInvalidOp) {
		t.Errorf("second SetFormat() error = %v, want ErrInvalidOp", err)
	}
	if err := e.EncodeSample(NewSample(SampleAudio, 0, 0, make([]byte, 3))); !errors.Is(err, dseed.ErrInvalidArgs) {
		t.Errorf("partial frame error = %v, want ErrInvalidArgs", err)
	}
	if err := e.EncodeSample(NewSample(SampleVideo, 0, 0, make([]byte, 4))); !errors.Is(err, dseed.ErrInvalidArgs) {
		t.Errorf("video sample error = %v, want ErrInvalidArgs", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := e.Commit(); !errors.Is(err, dseed.ErrInvalidOp) {
		t.Errorf("second Commit() error = %v, want ErrInvalidOp", err)
	}
	if err := e.EncodeSample(NewSample(SampleAudio, 0, 0, make([]byte, 4))); !errors.Is(err, dseed.ErrInvalidOp) {
		t.Errorf("EncodeSample() after commit error = %v, want ErrInvalidOp", err)
	}
}

func TestWAVOddDataIsPadded(t *testing.T) {
	f := AudioFormat{Channels: 1, BitsPerSample: 8, SampleRate: 8000}
	s := dseed.NewGrowableStream()
	encodeWAV(t, s, f, WAVOptions{}, []byte{1, 2, 3})
	data := s.Bytes()
	if len(data) != 44+4 {
		t.Fatalf("length = %d, want 48", len(data))
	}
	if got := binary.LittleEndian.Uint32(data[40:]); got != 3 {
		t.Errorf("data size = %d, want 3", got)
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != 40 {
		t.Errorf("RIFF size = %d, want 40", got)
	}
}

func TestNewWAVDecoderErrors(t *testing.T) {
	valid := dseed.NewGrowableStream()
	encodeWAV(t, valid, cd, WAVOptions{}, make([]byte, 8))
	badTag := append([]byte(nil), valid.Bytes()...)
	binary.LittleEndian.PutUint16(badTag[20:], 0x55) // MP3
	badAlign := append([]byte(nil), valid.Bytes()...)
	binary.LittleEndian.PutUint16(badAlign[32:], 3)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte("RIFF"), dseed.ErrNotSupportFileFormat},
		{"avi", []byte("RIFF\x04\x00\x00\x00AVI "), dseed.ErrNotSupportFileFormat},
		{"no data", []byte("RIFF\x04\x00\x00\x00WAVE"), dseed.ErrCorruptedData},
		{"format tag", badTag, dseed.ErrNotSupport},
		{"block align", badAlign, dseed.ErrCorruptedData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWAVDecoder(dseed.NewMemoryStream(tt.data, false))
			if !errors.Is(err, tt.want) {
				t.Errorf("NewWAVDecoder() error = %v, want %v", err, tt.want)
			}
		})
	}
}
