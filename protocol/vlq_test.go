package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestVLQIntRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 31, 32, 95, 96, -32, -33, 127, -127, 128, -128,
		1000, -1000, 65535, -65535, 1000000, -1000000, 1<<31 - 1, -1 << 31}

	for _, want := range values {
		out := NewScratchOutput()
		EncodeVLQInt(out, want)
		data := out.Result()
		got, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("decode %d: %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("decode = %d, want %d (encoded % x)", got, want, out.Result())
		}
		if len(data) != 0 {
			t.Errorf("%d: %d bytes left over", want, len(data))
		}
	}
}

func TestVLQUintRoundTrip(t *testing.T) {
	// File offsets run past 2^31 on long recordings.
	values := []uint32{0, 127, 128, 44, 96044, 1 << 31, 0xFFFFFFFF, 0xC0000000}
	for _, want := range values {
		out := NewScratchOutput()
		EncodeVLQUint(out, want)
		data := out.Result()
		got, err := DecodeVLQUint(&data)
		if err != nil || got != want {
			t.Errorf("uint %d: got %d, %v", want, got, err)
		}
	}
}

func TestVLQEncodedLength(t *testing.T) {
	tests := []struct {
		v    int32
		size int
	}{
		{0, 1},
		{95, 1},
		{96, 2},
		{-32, 1},
		{-33, 2},
		{3<<12 - 1, 2},
		{3 << 12, 3},
		{1 << 30, 5},
	}
	for _, tt := range tests {
		out := NewScratchOutput()
		EncodeVLQInt(out, tt.v)
		if got := len(out.Result()); got != tt.size {
			t.Errorf("len(encode(%d)) = %d, want %d", tt.v, got, tt.size)
		}
	}
}

func TestVLQBytesAndString(t *testing.T) {
	out := NewScratchOutput()
	payload := bytes.Repeat([]byte{0xAB}, 300)
	EncodeVLQBytes(out, payload)
	EncodeVLQString(out, "rec.wav")

	data := out.Result()
	b, err := DecodeVLQBytes(&data)
	if err != nil || !bytes.Equal(b, payload) {
		t.Fatalf("bytes: %v", err)
	}
	s, err := DecodeVLQString(&data)
	if err != nil || s != "rec.wav" {
		t.Fatalf("string = %q, %v", s, err)
	}
	if len(data) != 0 {
		t.Errorf("%d bytes left over", len(data))
	}
}

func TestVLQErrors(t *testing.T) {
	data := []byte{0x80}
	if _, err := DecodeVLQInt(&data); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("truncated: %v", err)
	}

	data = []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&data); !errors.Is(err, ErrInvalidVLQ) {
		t.Errorf("six bytes: %v", err)
	}

	data = []byte{0x05, 1, 2}
	if _, err := DecodeVLQBytes(&data); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("short bytes: %v", err)
	}

	var empty []byte
	if _, err := DecodeVLQInt(&empty); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("empty: %v", err)
	}
}
