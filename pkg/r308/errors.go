package r308

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no complete response arrived in time.
	ErrTimeout = errors.New("r308: response timeout")
	// ErrInvalidBuffer indicates a char buffer id other than 1 or 2.
	ErrInvalidBuffer = errors.New("r308: invalid buffer id")
	// ErrInvalidArgument indicates command arguments not matching the command.
	ErrInvalidArgument = errors.New("r308: invalid argument")
)

// FormatError reports a frame which can't be trusted.
type FormatError struct {
	Reason string
}

// Error implements error.
func (e *FormatError) Error() string {
	return "r308: malformed frame: " + e.Reason
}

func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// IOError wraps failures of the underlying port.
type IOError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *IOError) Error() string {
	return fmt.Sprintf("r308: %s: %v", e.Op, e.Err)
}

// Unwrap returns the port error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// IsLinkError tells whether err is a link failure: a timeout, a malformed
// response or a port error. Link failures carry no sensor status.
func IsLinkError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FormatError
	var ie *IOError
	return errors.Is(err, ErrTimeout) || errors.As(err, &fe) || errors.As(err, &ie)
}
