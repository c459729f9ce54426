package protocol

import (
	"errors"
	"io"
)

var (
	ErrFrameTooLong = errors.New("frame exceeds maximum length")
	ErrNameTooLong  = errors.New("file name too long")
)

// Encoder frames file operations onto a byte stream. It is the device
// side of the link and keeps no state beyond the frame sequence.
type Encoder struct {
	w   io.Writer
	out ScratchOutput
	seq uint8
}

// NewEncoder creates an encoder writing frames to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Reset restarts the sequence counter, which the decoder treats as a new
// session.
func (e *Encoder) Reset() {
	e.seq = 0
}

// Open sends file_open(name, mode).
func (e *Encoder) Open(name string, mode uint32) error {
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return e.frame(func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(CmdFileOpen))
		EncodeVLQString(out, name)
		EncodeVLQUint(out, mode)
	})
}

// Seek sends file_seek(offset).
func (e *Encoder) Seek(offset uint32) error {
	return e.frame(func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(CmdFileSeek))
		EncodeVLQUint(out, offset)
	})
}

// Write sends p as one or more file_write commands, each in its own frame.
// It returns the number of bytes whose frames were fully written.
func (e *Encoder) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > MaxWriteChunk {
			n = MaxWriteChunk
		}
		chunk := p[:n]
		err := e.frame(func(out OutputBuffer) {
			EncodeVLQUint(out, uint32(CmdFileWrite))
			EncodeVLQBytes(out, chunk)
		})
		if err != nil {
			return written, err
		}
		written += n
		p = p[n:]
	}
	return written, nil
}

// Close sends file_close().
func (e *Encoder) Close() error {
	return e.frame(func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(CmdFileClose))
	})
}

func (e *Encoder) frame(body func(out OutputBuffer)) error {
	e.out.Reset()
	e.out.Output([]byte{0, 0, FrameDest | e.seq})
	body(&e.out)

	length := e.out.CurPosition() + FrameTrailerSize
	if e.out.Overflowed() || length > FrameMax {
		return ErrFrameTooLong
	}
	e.out.Update(FramePositionLenHi, byte(length>>8))
	e.out.Update(FramePositionLenLo, byte(length))

	crc := CRC16(e.out.DataSince(0))
	e.out.Output([]byte{byte(crc >> 8), byte(crc), FrameValueSync})

	e.seq = (e.seq + 1) & FrameSeqMask
	_, err := e.w.Write(e.out.Result())
	return err
}
