package storage

// Op names a Sink operation for failure injection.
type Op uint8

const (
	OpOpen Op = iota
	OpSeek
	OpWrite
	OpClose
	numOps
)

type fault struct {
	armed bool
	after int // successful calls allowed before failing
	err   error
}

// MemSink keeps files in memory. It records every write so tests can
// check flush sizes, and can be told to fail a given operation.
type MemSink struct {
	files  map[string][]byte
	name   string
	buf    []byte
	off    uint32
	open   bool
	calls  [numOps]int
	faults [numOps]fault

	// Writes holds the length of every successful Write in order.
	Writes []int
}

// NewMemSink creates an empty in-memory sink.
func NewMemSink() *MemSink {
	return &MemSink{files: map[string][]byte{}}
}

// FailAfter makes op fail with err once it has succeeded after times.
// A nil err injects ErrInjected.
func (s *MemSink) FailAfter(op Op, after int, err error) {
	if err == nil {
		err = ErrInjected
	}
	s.faults[op] = fault{armed: true, after: after, err: err}
}

func (s *MemSink) check(op Op) error {
	f := &s.faults[op]
	if f.armed && s.calls[op] >= f.after {
		return f.err
	}
	s.calls[op]++
	return nil
}

func (s *MemSink) Open(name string, mode Mode) error {
	if s.open {
		return ErrAlreadyOpen
	}
	if err := s.check(OpOpen); err != nil {
		return err
	}
	s.name = name
	s.buf = nil
	if mode&ModeCreate == 0 {
		s.buf = append(s.buf, s.files[name]...)
	}
	s.off = 0
	s.open = true
	return nil
}

func (s *MemSink) Seek(offset uint32) error {
	if !s.open {
		return ErrNotOpen
	}
	if err := s.check(OpSeek); err != nil {
		return err
	}
	s.off = offset
	return nil
}

func (s *MemSink) Write(p []byte) (int, error) {
	if !s.open {
		return 0, ErrNotOpen
	}
	if err := s.check(OpWrite); err != nil {
		return 0, err
	}
	end := int(s.off) + len(p)
	if end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	copy(s.buf[s.off:], p)
	s.off = uint32(end)
	s.Writes = append(s.Writes, len(p))
	return len(p), nil
}

func (s *MemSink) Size() uint32 {
	return uint32(len(s.buf))
}

func (s *MemSink) Close() error {
	if !s.open {
		return ErrNotOpen
	}
	if err := s.check(OpClose); err != nil {
		return err
	}
	s.files[s.name] = s.buf
	s.buf = nil
	s.open = false
	return nil
}

// IsOpen reports whether a file is currently open.
func (s *MemSink) IsOpen() bool {
	return s.open
}

// File returns the contents of a closed file.
func (s *MemSink) File(name string) ([]byte, bool) {
	b, ok := s.files[name]
	return b, ok
}

// Names lists every file closed so far, in no particular order.
func (s *MemSink) Names() []string {
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	return names
}

// Current returns the contents of the open file.
func (s *MemSink) Current() []byte {
	return s.buf
}
