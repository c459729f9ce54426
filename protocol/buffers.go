package protocol

// InputBuffer provides an abstraction for reading incoming link data
type InputBuffer interface {
	// Data returns the available data slice
	Data() []byte

	// Available returns the number of bytes available
	Available() int

	// Pop removes n bytes from the front of the buffer
	Pop(n int)
}

// OutputBuffer provides an abstraction for writing outgoing frames
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int

	// Update modifies a byte at a specific position
	Update(pos int, val byte)

	// DataSince returns data from a specific position to current
	DataSince(pos int) []byte
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer
// large enough for one frame. Writes past the end are dropped and
// remembered so the encoder can refuse to send a truncated frame.
type ScratchOutput struct {
	buf      [FrameMax]byte
	pos      int
	overflow bool
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.overflow = true
	}
}

// Overflowed reports whether any Output since the last Reset was cut short.
func (s *ScratchOutput) Overflowed() bool {
	return s.overflow
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < len(s.buf) {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.overflow = false
}

// FifoBuffer holds link bytes between reads and the frame parser. It is
// linear rather than circular: consumed bytes are compacted away when a
// write needs the room, so Data is always one slice and a frame never
// straddles a wrap point.
type FifoBuffer struct {
	buf  []byte
	head int // first unread byte
	tail int // one past the last byte
}

// NewFifoBuffer creates a buffer holding up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count
func (f *FifoBuffer) Write(data []byte) int {
	if f.head > 0 && f.tail+len(data) > len(f.buf) {
		f.tail = copy(f.buf, f.buf[f.head:f.tail])
		f.head = 0
	}
	n := copy(f.buf[f.tail:], data)
	f.tail += n
	return n
}

// Available returns the number of unread bytes
func (f *FifoBuffer) Available() int {
	return f.tail - f.head
}

// Free returns how many more bytes fit after compaction
func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.Available()
}

// Data returns the unread bytes. The slice is valid until the next Write.
func (f *FifoBuffer) Data() []byte {
	return f.buf[f.head:f.tail]
}

// Pop discards n unread bytes
func (f *FifoBuffer) Pop(n int) {
	if n > f.Available() {
		n = f.Available()
	}
	f.head += n
	if f.head == f.tail {
		f.head, f.tail = 0, 0
	}
}

// Reset drops everything
func (f *FifoBuffer) Reset() {
	f.head, f.tail = 0, 0
}
