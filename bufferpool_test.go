package mailbox

import (
	"bytes"
	"sync"
	"testing"
)

// TestBufferPoolConcurrent tests that a slot pool is safe for concurrent access.
func TestBufferPoolConcurrent(t *testing.T) {
	pool := NewBufferPool(2)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := pool.Get()
				if len(buf) != SlotSize {
					t.Errorf("Expected slot length %d, got %d", SlotSize, len(buf))
				}
				buf[SlotSize-1] = byte(j)
				pool.Put(buf)
			}
		}()
	}

	wg.Wait()
}

// TestBufferPoolReturnsZeroedSlots tests that a slot resliced and dirtied by
// a codec comes back at full length and cleared.
func TestBufferPoolReturnsZeroedSlots(t *testing.T) {
	pool := NewBufferPool(1)

	buf := pool.Get()
	copy(buf, "stale record\x00")
	pool.Put(buf[:5])

	again := pool.Get()
	if len(again) != SlotSize {
		t.Fatalf("Expected slot length %d after reslice, got %d", SlotSize, len(again))
	}
	if !bytes.Equal(again, make([]byte, SlotSize)) {
		t.Errorf("Expected a zeroed slot, got %q", again[:16])
	}
}

// TestBufferPoolWrongSizeBuffer tests that buffers that are not slots are discarded.
func TestBufferPoolWrongSizeBuffer(t *testing.T) {
	pool := NewBufferPool(2)

	buf1 := pool.Get()
	buf2 := pool.Get()
	pool.Put(buf1)
	pool.Put(buf2)

	// a scratch buffer from a foreign queue is not a slot
	scratch := make([]byte, 8192)
	scratch[0] = 1
	pool.Put(scratch)
	if scratch[0] != 1 {
		t.Errorf("Expected a discarded buffer to be left untouched")
	}

	_ = pool.Get()
	_ = pool.Get()

	// pool is empty, so this allocates
	buf3 := pool.Get()
	if cap(buf3) != SlotSize {
		t.Errorf("Expected new buffer with capacity %d, got %d", SlotSize, cap(buf3))
	}
}
