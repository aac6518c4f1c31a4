package mailbox

import (
	"context"
	"fmt"
	"strings"
)

// Transport selects the backend a Mailbox carries records over. The numeric
// values are the transport ids both executables take on the command line.
type Transport int

const (
	// TransportQueued uses a named kernel message queue.
	TransportQueued Transport = 1
	// TransportMapped uses a named shared-memory region.
	TransportMapped Transport = 2
)

func (t Transport) String() string {
	switch t {
	case TransportQueued:
		return "queued"
	case TransportMapped:
		return "mapped"
	default:
		return fmt.Sprintf("transport(%d)", int(t))
	}
}

// Valid reports whether t names one of the two backends.
func (t Transport) Valid() bool {
	return t == TransportQueued || t == TransportMapped
}

// ParseTransport accepts a transport id ("1", "2") or name.
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "queued", "queue", "mq":
		return TransportQueued, nil
	case "2", "mapped", "shm":
		return TransportMapped, nil
	default:
		return 0, fmt.Errorf("%w %q: use 1 for message queue or 2 for shared memory", ErrUnknownTransport, s)
	}
}

// Role is the side of the handshake a process plays.
type Role int

const (
	RoleProducer Role = iota
	RoleConsumer
)

func (r Role) String() string {
	if r == RoleConsumer {
		return "consumer"
	}
	return "producer"
}

// Mailbox binds one backend variant to a codec and presents Send and Receive
// regardless of which variant is active. The variant is fixed at
// construction. A Mailbox does no synchronization of its own; callers order
// Send and Receive with the session's semaphore pair.
type Mailbox struct {
	transport Transport
	backend   backend
	codec     Codec
	slots     *BufferPool
}

func newMailbox(transport Transport, b backend, codec Codec) *Mailbox {
	if codec == nil {
		codec = TextCodec{}
	}
	return &Mailbox{
		transport: transport,
		backend:   b,
		codec:     codec,
		slots:     NewBufferPool(2),
	}
}

// Transport returns the active backend variant.
func (m *Mailbox) Transport() Transport {
	return m.transport
}

// Codec returns the slot layout in use.
func (m *Mailbox) Codec() Codec {
	return m.codec
}

// Send encodes rec and hands it to the backend. On the queued backend it
// blocks while the queue is full.
func (m *Mailbox) Send(ctx context.Context, rec Record) error {
	slot := m.slots.Get()
	defer m.slots.Put(slot)

	n, err := m.codec.Encode(slot, rec)
	if err != nil {
		return err
	}
	return m.backend.put(ctx, slot[:n])
}

// Receive takes the current slot from the backend and decodes it. On the
// queued backend it blocks while the queue is empty.
func (m *Mailbox) Receive(ctx context.Context) (Record, error) {
	slot := m.slots.Get()
	defer m.slots.Put(slot)

	n, err := m.backend.get(ctx, slot)
	if err != nil {
		return Record{}, err
	}
	return m.codec.Decode(slot[:n])
}

// Terminates reports whether rec reaches the peer as the terminator once
// encoded. With TextCodec that is true for a data line equal to SentinelText.
func (m *Mailbox) Terminates(rec Record) bool {
	if rec.IsTerminate() {
		return true
	}
	slot := m.slots.Get()
	defer m.slots.Put(slot)

	n, err := m.codec.Encode(slot, rec)
	if err != nil {
		return false
	}
	got, err := m.codec.Decode(slot[:n])
	return err == nil && got.IsTerminate()
}

// Close releases the backend handle. The backend's name is left in place.
func (m *Mailbox) Close() error {
	return m.backend.close()
}
