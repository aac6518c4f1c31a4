//go:build !linux

package mailbox

import "context"

func createMessageQueue(name string, access Access, attr QueueAttr) (*MessageQueue, bool, error) {
	return nil, false, ErrNotSupported
}

func openMessageQueue(name string, access Access) (*MessageQueue, error) {
	return nil, ErrNotSupported
}

func unlinkMessageQueue(name string) error {
	return ErrNotSupported
}

// Send is not supported on this platform.
func (q *MessageQueue) Send(ctx context.Context, msg []byte) error {
	return ErrNotSupported
}

// Receive is not supported on this platform.
func (q *MessageQueue) Receive(ctx context.Context, buf []byte) (int, error) {
	return 0, ErrNotSupported
}

// Attr is not supported on this platform.
func (q *MessageQueue) Attr() (QueueAttr, error) {
	return QueueAttr{}, ErrNotSupported
}

// Close is not supported on this platform.
func (q *MessageQueue) Close() error {
	return ErrNotSupported
}
