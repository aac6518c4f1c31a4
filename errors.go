package mailbox

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned by every named-resource constructor on
	// platforms without POSIX semaphores, shared memory and message queues.
	ErrNotSupported = errors.New("named IPC resources are not supported on this platform")

	// ErrInvalidName is returned when a resource name is empty, too long or
	// contains a path separator after its leading slash.
	ErrInvalidName = errors.New("invalid resource name")

	// ErrUnknownTransport is returned for a transport id other than 1 or 2.
	ErrUnknownTransport = errors.New("unknown transport")

	// ErrRecordTooLong is returned when an input line does not fit in a
	// record and the line policy is reject.
	ErrRecordTooLong = errors.New("line exceeds record capacity")

	// ErrIncompatibleQueue is returned when an existing message queue cannot
	// carry a full slot.
	ErrIncompatibleQueue = errors.New("message queue has incompatible attributes")

	// ErrAcquireTimeout is returned when a semaphore acquire misses its deadline.
	ErrAcquireTimeout = errors.New("semaphore acquire timed out")

	// ErrClosed is returned when a closed handle is used.
	ErrClosed = errors.New("handle is closed")

	// ErrUnexpectedRecord is returned when a slot does not decode to a record.
	ErrUnexpectedRecord = errors.New("malformed record")
)

// OpError records the IPC primitive that failed, the resource it was applied
// to and the underlying error, usually an errno.
type OpError struct {
	Op   string
	Name string
	Err  error
}

func (e *OpError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Name: name, Err: err}
}
