package mailbox

import "context"

// Access is the direction a process opens a named resource with.
type Access int

const (
	ReadOnly Access = iota
	WriteOnly
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}

// Codec defines how a Record is laid out in a transport slot.
// Implementations must never produce more than SlotSize bytes.
type Codec interface {
	// Encode writes rec into dst, which is SlotSize bytes long, and returns
	// the number of bytes a length-delimited transport must carry.
	Encode(dst []byte, rec Record) (int, error)

	// Decode parses a slot. src may extend past the encoded record.
	Decode(src []byte) (Record, error)

	// Name identifies the codec in configuration and logs.
	Name() string
}

// backend moves encoded slots between the two processes. The method set is
// unexported, so queuedBackend and mappedBackend are its only implementations.
type backend interface {
	// put hands one encoded slot to the peer.
	put(ctx context.Context, slot []byte) error

	// get fills buf (SlotSize bytes) with the next slot and returns how many
	// bytes are meaningful.
	get(ctx context.Context, buf []byte) (int, error)

	// close releases this process's handle; the name survives.
	close() error
}
