package mailbox

import (
	"context"
	"errors"
	"time"
)

// SemValueMax is the largest value a named semaphore can hold.
const SemValueMax = 1<<31 - 1

var errInvalidValue = errors.New("semaphore value out of range")

// Semaphore provides cross-process synchronization using named counting
// semaphores. Two semaphores form the producer/consumer handshake of a
// Session, but the type is usable on its own.
//
// Note: named semaphores are implemented on Linux only:
//   - Linux: a 32-byte object under /dev/shm/sem.<name>, blocking on a shared futex
//   - elsewhere: every constructor returns ErrNotSupported
//
// Create a semaphore with CreateSemaphore and open an existing one with
// OpenSemaphore. Both processes must use the same name.
//
// Example:
//
//	sem, _ := mailbox.CreateSemaphore("/my_sem", 1)
//	defer sem.Close()
//
//	sem.Acquire(ctx)
//	// critical section - access shared resource
//	sem.Release()
type Semaphore interface {
	// Acquire blocks until the semaphore can be decremented or ctx is done.
	// A missed ctx deadline is reported as ErrAcquireTimeout.
	Acquire(ctx context.Context) error

	// Release increments the semaphore, potentially unblocking a waiter.
	Release() error

	// TryAcquire attempts to decrement the semaphore without blocking.
	// Returns true if acquired, false if the semaphore was not available.
	TryAcquire() (bool, error)

	// AcquireTimeout attempts to acquire with a maximum wait time.
	// Returns true if acquired, false if the timeout elapsed.
	AcquireTimeout(timeout time.Duration) (bool, error)

	// Value reports the current count.
	Value() (int, error)

	// Name returns the name the semaphore was opened with.
	Name() string

	// Close unmaps the semaphore. The named object survives until
	// UnlinkSemaphore is called.
	Close() error
}

// CreateSemaphore opens the named semaphore, creating it with the given
// initial value if it does not exist yet. The returned bool reports whether
// this call created it.
func CreateSemaphore(name string, initial int) (Semaphore, bool, error) {
	if initial < 0 || initial > SemValueMax {
		return nil, false, opError("sem_open", name, errInvalidValue)
	}
	return createSemaphore(name, uint32(initial))
}

// OpenSemaphore opens an existing named semaphore. It fails with an error
// matching os.ErrNotExist when the semaphore has not been created.
func OpenSemaphore(name string) (Semaphore, error) {
	return openSemaphore(name)
}

// UnlinkSemaphore removes the semaphore name. Processes that still have it
// open keep a working handle.
func UnlinkSemaphore(name string) error {
	return unlinkSemaphore(name)
}

func acquireWithTimeout(s Semaphore, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.Acquire(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAcquireTimeout):
		return false, nil
	default:
		return false, err
	}
}
