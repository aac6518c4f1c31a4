//go:build !linux

package mailbox

import (
	"io"
)

// shmi is a stub implementation for platforms without POSIX shared memory.
// All operations return ErrNotSupported.
type shmi struct {
	size int
}

func (o *shmi) getSize() int {
	if o == nil {
		return 0
	}
	return o.size
}

func (o *shmi) bytes() []byte {
	return nil
}

func create(name string, size int, access Access) (*shmi, bool, error) {
	return nil, false, ErrNotSupported
}

func open(name string, size int, access Access) (*shmi, error) {
	return nil, ErrNotSupported
}

func unlink(name string) error {
	return ErrNotSupported
}

func (o *shmi) close() error {
	return ErrNotSupported
}

func (o *shmi) readAt(p []byte, off int64) (n int, err error) {
	return 0, io.EOF
}

func (o *shmi) writeAt(p []byte, off int64) (n int, err error) {
	return 0, io.EOF
}
