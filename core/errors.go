package core

import "errors"

// Error kinds shared by the capture pipeline. Every session-fatal failure
// reported by the recorder matches exactly one of these with errors.Is.
var (
	ErrConfig      = errors.New("config error")
	ErrDMA         = errors.New("dma error")
	ErrOverrun     = errors.New("overrun")
	ErrStorage     = errors.New("storage error")
	ErrSyncTimeout = errors.New("sync timeout")
)

// OpError records the failing operation, its error kind and the cause
// reported by the layer below (bus, driver or storage collaborator).
type OpError struct {
	Op   string
	Kind error
	Err  error
}

// NewOpError wraps cause as an error of the given kind. A nil cause is
// allowed when the kind alone describes the failure.
func NewOpError(op string, kind, cause error) *OpError {
	return &OpError{Op: op, Kind: kind, Err: cause}
}

func (e *OpError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is matches the error kind so callers can test errors.Is(err, ErrStorage)
// without caring about the cause.
func (e *OpError) Is(target error) bool {
	return target == e.Kind
}
