// Package storage defines the file sink the recorder writes to and the
// implementations used on the host, in tests and over the storage link.
package storage

import "errors"

// Mode selects how Open treats an existing file.
type Mode uint32

const (
	// ModeCreate creates the file or truncates an existing one.
	ModeCreate Mode = 1 << 0
)

var (
	ErrNotOpen     = errors.New("storage: no file open")
	ErrAlreadyOpen = errors.New("storage: a file is already open")
	ErrShortWrite  = errors.New("storage: short write")
	ErrInjected    = errors.New("storage: injected failure")
)

// Sink is a single-file-at-a-time storage target. Offsets and sizes are
// 32-bit because the WAVE header cannot describe anything larger.
type Sink interface {
	Open(name string, mode Mode) error
	Seek(offset uint32) error
	// Write writes all of p at the current offset or returns an error.
	Write(p []byte) (int, error)
	// Size is the current length of the open file.
	Size() uint32
	Close() error
}
