package storage

import (
	"io"
	"os"
	"path/filepath"
)

// FileSink writes recordings into a directory on a local file system.
type FileSink struct {
	dir  string
	f    *os.File
	size uint32
}

// NewFileSink creates a sink rooted at dir, which must exist.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Dir returns the directory files are created in.
func (s *FileSink) Dir() string {
	return s.dir
}

func (s *FileSink) Open(name string, mode Mode) error {
	if s.f != nil {
		return ErrAlreadyOpen
	}
	flags := os.O_RDWR
	if mode&ModeCreate != 0 {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	// Names come from the recorder; strip any directory part anyway.
	f, err := os.OpenFile(filepath.Join(s.dir, filepath.Base(name)), flags, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	s.f = f
	s.size = uint32(info.Size())
	return nil
}

func (s *FileSink) Seek(offset uint32) error {
	if s.f == nil {
		return ErrNotOpen
	}
	_, err := s.f.Seek(int64(offset), io.SeekStart)
	return err
}

func (s *FileSink) Write(p []byte) (int, error) {
	if s.f == nil {
		return 0, ErrNotOpen
	}
	n, err := s.f.Write(p)
	if err == nil && n < len(p) {
		err = ErrShortWrite
	}
	if pos, serr := s.f.Seek(0, io.SeekCurrent); serr == nil && uint32(pos) > s.size {
		s.size = uint32(pos)
	}
	return n, err
}

func (s *FileSink) Size() uint32 {
	return s.size
}

func (s *FileSink) Close() error {
	if s.f == nil {
		return ErrNotOpen
	}
	err := s.f.Close()
	s.f = nil
	s.size = 0
	return err
}
