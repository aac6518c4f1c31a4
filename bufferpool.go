package mailbox

// BufferPool manages a pool of reusable slot buffers to reduce GC pressure.
// It uses a channel-based design for thread-safe access without locks.
//
// Every buffer is exactly SlotSize bytes. Buffers come back zeroed, so an
// encoded slot never carries bytes of an earlier record past its end.
type BufferPool struct {
	pool chan []byte
}

// NewBufferPool creates a pool pre-populated with count slot buffers.
// Buffers are retrieved with Get and returned with Put.
func NewBufferPool(count int) *BufferPool {
	pool := make(chan []byte, count)
	for i := 0; i < count; i++ {
		pool <- make([]byte, SlotSize)
	}
	return &BufferPool{pool: pool}
}

// Get returns a zeroed slot from the pool, or allocates a new one if the
// pool is empty.
func (bp *BufferPool) Get() []byte {
	select {
	case buf := <-bp.pool:
		return buf
	default:
		return make([]byte, SlotSize)
	}
}

// Put clears a slot and returns it to the pool for reuse. Buffers that are
// not slots, such as a queue's oversized scratch buffer, are discarded, as
// is any buffer arriving while the pool is full.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != SlotSize {
		return
	}
	buf = buf[:SlotSize]
	clear(buf)

	select {
	case bp.pool <- buf:
	default:
	}
}
