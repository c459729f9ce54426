package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"magpie/audio"
)

func TestHeaderLayout(t *testing.T) {
	var h Header
	h.SetAttributes(Attributes{
		SampleRate:    audio.Rate48k,
		BitsPerSample: audio.Depth16,
		NumChannels:   1,
		FileLength:    Length + 96000,
	})
	b := h.Bytes()

	if h.HeaderLength() != 44 || len(b) != 44 {
		t.Fatalf("header length = %d/%d, want 44", h.HeaderLength(), len(b))
	}

	checks := []struct {
		name string
		off  int
		want []byte
	}{
		{"riff", 0, []byte("RIFF")},
		{"wave", 8, []byte("WAVE")},
		{"fmt", 12, []byte("fmt ")},
		{"data", 36, []byte("data")},
	}
	for _, c := range checks {
		if !bytes.Equal(b[c.off:c.off+4], c.want) {
			t.Errorf("%s tag = %q", c.name, b[c.off:c.off+4])
		}
	}

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }
	u16 := func(off int) uint16 { return binary.LittleEndian.Uint16(b[off:]) }

	if got := u32(4); got != 96036 {
		t.Errorf("riff size = %d, want 96036", got)
	}
	if got := u16(22); got != 1 {
		t.Errorf("channels = %d", got)
	}
	if got := u32(24); got != 48000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := u32(28); got != 96000 {
		t.Errorf("byte rate = %d, want 96000", got)
	}
	if got := u16(32); got != 2 {
		t.Errorf("block align = %d, want 2", got)
	}
	if got := u16(34); got != 16 {
		t.Errorf("bits = %d", got)
	}
	if got := u32(40); got != 96000 {
		t.Errorf("data size = %d, want 96000", got)
	}
}

func TestParse(t *testing.T) {
	tests := []Attributes{
		{audio.Rate384k, audio.Depth24, 2, Length + 384000*6},
		{audio.Rate24k, audio.Depth16, 1, Length},
		{audio.Rate96k, audio.Depth24, 1, Length + 3},
	}
	for _, want := range tests {
		var h Header
		h.SetAttributes(want)
		got, err := Parse(h.Bytes())
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if got != want {
			t.Errorf("Parse = %+v, want %+v", got, want)
		}
		if got.DataLength() != want.FileLength-Length {
			t.Errorf("DataLength = %d", got.DataLength())
		}
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(make([]byte, 10)); !errors.Is(err, ErrShortHeader) {
		t.Errorf("short: %v", err)
	}
	if _, err := Parse(make([]byte, Length)); !errors.Is(err, ErrNotWave) {
		t.Errorf("zeros: %v", err)
	}
}

func TestPlaceholderHeader(t *testing.T) {
	var h Header
	h.SetAttributes(Attributes{})
	if h.Attributes().DataLength() != 0 {
		t.Error("empty attributes should have no data")
	}
	if binary.LittleEndian.Uint32(h.Bytes()[4:]) != 0 {
		t.Error("riff size of an empty file should be 0")
	}
}
