package mailbox

import "sync"

// QueueAttr describes a kernel message queue.
type QueueAttr struct {
	// MaxMessages is the queue depth; senders block when it is reached.
	MaxMessages int

	// MessageSize is the largest message the queue accepts. Receive buffers
	// must be at least this large.
	MessageSize int

	// CurMessages is the number of messages currently queued. It is ignored
	// on creation.
	CurMessages int
}

// MessageQueue is a named, kernel-held bounded queue of messages. Send and
// Receive block on a full or empty queue; ordering is FIFO.
//
// Create a queue with CreateMessageQueue and open an existing one with
// OpenMessageQueue. Both processes must use the same name.
//
// Example:
//
//	mq, _, _ := mailbox.CreateMessageQueue("/my_queue", mailbox.WriteOnly, mailbox.QueueAttr{MaxMessages: 10, MessageSize: 112})
//	defer mq.Close()
//	mq.Send(ctx, []byte("hello\x00"))
type MessageQueue struct {
	name   string
	fd     int
	access Access

	// mu guards fd against Close while an operation is using it
	mu sync.RWMutex
}

// Name returns the name the queue was opened with.
func (q *MessageQueue) Name() string {
	return q.name
}

// CreateMessageQueue opens the named queue, creating it with attr if it does
// not exist. An existing queue whose message size is smaller than
// attr.MessageSize is rejected with ErrIncompatibleQueue. The returned bool
// reports whether this call created the queue.
func CreateMessageQueue(name string, access Access, attr QueueAttr) (*MessageQueue, bool, error) {
	return createMessageQueue(name, access, attr)
}

// OpenMessageQueue opens an existing named queue. It fails with an error
// matching os.ErrNotExist when the queue has not been created.
func OpenMessageQueue(name string, access Access) (*MessageQueue, error) {
	return openMessageQueue(name, access)
}

// UnlinkMessageQueue removes the queue name. Open descriptors stay usable.
func UnlinkMessageQueue(name string) error {
	return unlinkMessageQueue(name)
}
