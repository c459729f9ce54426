package storage

import (
	"io"

	"magpie/protocol"
)

// LinkSink forwards file operations to a host over the storage link. The
// host applies them to a real file; the size is tracked locally because
// the link has no return channel.
type LinkSink struct {
	enc  *protocol.Encoder
	open bool
	off  uint32
	size uint32
}

// NewLinkSink frames operations onto w, typically a USB CDC port.
func NewLinkSink(w io.Writer) *LinkSink {
	return &LinkSink{enc: protocol.NewEncoder(w)}
}

func (s *LinkSink) Open(name string, mode Mode) error {
	if s.open {
		return ErrAlreadyOpen
	}
	if err := s.enc.Open(name, uint32(mode)); err != nil {
		return err
	}
	s.open = true
	s.off = 0
	s.size = 0
	return nil
}

func (s *LinkSink) Seek(offset uint32) error {
	if !s.open {
		return ErrNotOpen
	}
	if err := s.enc.Seek(offset); err != nil {
		return err
	}
	s.off = offset
	return nil
}

func (s *LinkSink) Write(p []byte) (int, error) {
	if !s.open {
		return 0, ErrNotOpen
	}
	n, err := s.enc.Write(p)
	s.off += uint32(n)
	if s.off > s.size {
		s.size = s.off
	}
	if err == nil && n < len(p) {
		err = ErrShortWrite
	}
	return n, err
}

func (s *LinkSink) Size() uint32 {
	return s.size
}

func (s *LinkSink) Close() error {
	if !s.open {
		return ErrNotOpen
	}
	s.open = false
	return s.enc.Close()
}
