// Package wav builds the 44-byte canonical PCM WAVE header written at the
// start of every recording.
package wav

import (
	"encoding/binary"
	"errors"

	"magpie/audio"
)

// Length is the size of the header in bytes.
const Length = 44

const formatPCM = 1

var (
	ErrShortHeader = errors.New("wav: header too short")
	ErrNotWave     = errors.New("wav: not a RIFF/WAVE PCM header")
)

// Attributes describe a recording. FileLength is the total file size in
// bytes, header included, as reported by the storage sink after the
// audio has been written.
type Attributes struct {
	SampleRate    audio.SampleRate
	BitsPerSample audio.BitDepth
	NumChannels   uint16
	FileLength    uint32
}

// DataLength is the audio payload size implied by FileLength.
func (a Attributes) DataLength() uint32 {
	if a.FileLength < Length {
		return 0
	}
	return a.FileLength - Length
}

// Header holds the encoded bytes. The zero value encodes an empty file
// and is valid to write as a placeholder.
type Header struct {
	attrs Attributes
	buf   [Length]byte
}

// HeaderLength returns the number of bytes the header occupies.
func (h *Header) HeaderLength() int {
	return Length
}

// SetAttributes re-encodes the header for a.
func (h *Header) SetAttributes(a Attributes) {
	h.attrs = a
	blockAlign := a.NumChannels * uint16(a.BitsPerSample/8)
	b := h.buf[:]

	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], riffSize(a.FileLength))
	copy(b[8:12], "WAVE")

	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16)
	binary.LittleEndian.PutUint16(b[20:22], formatPCM)
	binary.LittleEndian.PutUint16(b[22:24], a.NumChannels)
	binary.LittleEndian.PutUint32(b[24:28], uint32(a.SampleRate))
	binary.LittleEndian.PutUint32(b[28:32], uint32(a.SampleRate)*uint32(blockAlign))
	binary.LittleEndian.PutUint16(b[32:34], blockAlign)
	binary.LittleEndian.PutUint16(b[34:36], uint16(a.BitsPerSample))

	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], a.DataLength())
}

// Attributes returns what was last passed to SetAttributes.
func (h *Header) Attributes() Attributes {
	return h.attrs
}

// Bytes returns the encoded header. The slice aliases the header and is
// only valid until the next SetAttributes.
func (h *Header) Bytes() []byte {
	return h.buf[:]
}

func riffSize(fileLength uint32) uint32 {
	if fileLength < 8 {
		return 0
	}
	return fileLength - 8
}

// Parse decodes a header written by SetAttributes. FileLength is
// reconstructed from the RIFF chunk size.
func Parse(b []byte) (Attributes, error) {
	if len(b) < Length {
		return Attributes{}, ErrShortHeader
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" ||
		string(b[12:16]) != "fmt " || string(b[36:40]) != "data" ||
		binary.LittleEndian.Uint16(b[20:22]) != formatPCM {
		return Attributes{}, ErrNotWave
	}
	return Attributes{
		SampleRate:    audio.SampleRate(binary.LittleEndian.Uint32(b[24:28])),
		BitsPerSample: audio.BitDepth(binary.LittleEndian.Uint16(b[34:36])),
		NumChannels:   binary.LittleEndian.Uint16(b[22:24]),
		FileLength:    binary.LittleEndian.Uint32(b[4:8]) + 8,
	}, nil
}
