package mailbox

import (
	"context"
)

// queuedBackend carries slots through a kernel message queue. The queue
// orders and blocks on its own; the semaphore pair only limits it to one
// record in flight.
type queuedBackend struct {
	q *MessageQueue

	// scratch receives from a queue whose message size exceeds SlotSize,
	// e.g. one created by a foreign peer with default attributes
	scratch []byte
}

func openQueued(name string, role Role, depth int) (*queuedBackend, bool, error) {
	access := WriteOnly
	if role == RoleConsumer {
		access = ReadOnly
	}
	q, created, err := CreateMessageQueue(name, access, QueueAttr{MaxMessages: depth, MessageSize: SlotSize})
	if err != nil {
		return nil, false, err
	}
	b := &queuedBackend{q: q}
	if role == RoleConsumer {
		attr, err := q.Attr()
		if err != nil {
			q.Close()
			return nil, false, err
		}
		if attr.MessageSize > SlotSize {
			b.scratch = make([]byte, attr.MessageSize)
		}
	}
	return b, created, nil
}

func (b *queuedBackend) put(ctx context.Context, slot []byte) error {
	return b.q.Send(ctx, slot)
}

func (b *queuedBackend) get(ctx context.Context, buf []byte) (int, error) {
	if b.scratch == nil {
		return b.q.Receive(ctx, buf)
	}
	n, err := b.q.Receive(ctx, b.scratch)
	if err != nil {
		return 0, err
	}
	return copy(buf, b.scratch[:n]), nil
}

func (b *queuedBackend) close() error {
	return b.q.Close()
}

// mappedBackend carries slots through a shared region exactly one slot long.
// put overwrites the region and get copies it out; neither blocks, and only
// the semaphore alternation keeps the two sides from touching it at once.
type mappedBackend struct {
	shm *SharedMemory
}

func openMapped(name string, role Role) (*mappedBackend, bool, error) {
	access := ReadWrite
	if role == RoleConsumer {
		access = ReadOnly
	}
	shm, created, err := CreateSharedMemory(name, SlotSize, access)
	if err != nil {
		return nil, false, err
	}
	return &mappedBackend{shm: shm}, created, nil
}

func (b *mappedBackend) put(ctx context.Context, slot []byte) error {
	_, err := b.shm.WriteAt(slot, 0)
	return err
}

// get reads the whole region; the codec finds the record's end inside it.
func (b *mappedBackend) get(ctx context.Context, buf []byte) (int, error) {
	return b.shm.ReadAt(buf[:SlotSize], 0)
}

func (b *mappedBackend) close() error {
	return b.shm.Close()
}

var (
	_ backend = (*queuedBackend)(nil)
	_ backend = (*mappedBackend)(nil)
)
