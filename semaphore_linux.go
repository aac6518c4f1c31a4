//go:build linux

package mailbox

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Shared (not private) futex operations, so waiters in other processes
// mapping the same object are woken.
const (
	futexWaitOp = 0 // FUTEX_WAIT
	futexWakeOp = 1 // FUTEX_WAKE
)

const (
	// semSize matches sizeof(sem_t) on 64-bit Linux: the value word at
	// offset 0, the waiter count at offset 4 and the futex "private" flag
	// at offset 8, the rest zero.
	semSize = 32
	semPerm = 0644

	// semPrivateOffset holds the futex flag glibc waiters pass to
	// FUTEX_WAIT. sem_open stores FUTEX_SHARED (0 would make a C waiter
	// sleep on a private futex no other process can wake).
	semPrivateOffset = 8
	futexShared      = 128

	// acquirePoll bounds a single futex sleep when the caller's context can
	// be cancelled, so cancellation is noticed promptly.
	acquirePoll = 50 * time.Millisecond
)

type namedSemaphore struct {
	name string

	// mu guards mem against Close while an operation is using it
	mu  sync.RWMutex
	mem []byte
}

func semPath(name string) (string, error) {
	bare, err := bareName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(shmDir, "sem."+bare), nil
}

func createSemaphore(name string, initial uint32) (Semaphore, bool, error) {
	path, err := semPath(name)
	if err != nil {
		return nil, false, err
	}
	for {
		s, err := mapSemaphore(path, name)
		if err == nil {
			return s, false, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, err
		}

		linked, err := linkNewSemaphore(path, name, initial)
		if err != nil {
			return nil, false, err
		}
		if !linked {
			// lost the creation race; open the winner's object
			continue
		}
		s, err = mapSemaphore(path, name)
		if err != nil {
			os.Remove(path)
			return nil, false, err
		}
		return s, true, nil
	}
}

// linkNewSemaphore writes a fully initialized object to a temporary file and
// links it into place, so no process ever maps a half-initialized semaphore.
func linkNewSemaphore(path, name string, initial uint32) (bool, error) {
	tmp, err := os.CreateTemp(shmDir, "sem.tmp-")
	if err != nil {
		return false, opError("sem_open", name, err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	buf := make([]byte, semSize)
	binary.NativeEndian.PutUint32(buf[0:4], initial)
	binary.NativeEndian.PutUint32(buf[semPrivateOffset:semPrivateOffset+4], futexShared)
	if _, err := tmp.Write(buf); err != nil {
		return false, opError("sem_open", name, err)
	}
	if err := tmp.Chmod(semPerm); err != nil {
		return false, opError("sem_open", name, err)
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, opError("sem_open", name, err)
	}
	return true, nil
}

func mapSemaphore(path, name string) (*namedSemaphore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, opError("sem_open", name, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, opError("sem_open", name, err)
	}
	if fi.Size() < semSize {
		return nil, opError("sem_open", name, fmt.Errorf("object is %d bytes, want %d", fi.Size(), semSize))
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, semSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, opError("mmap", name, err)
	}
	return &namedSemaphore{name: name, mem: mem}, nil
}

func openSemaphore(name string) (Semaphore, error) {
	path, err := semPath(name)
	if err != nil {
		return nil, err
	}
	return mapSemaphore(path, name)
}

func unlinkSemaphore(name string) error {
	path, err := semPath(name)
	if err != nil {
		return err
	}
	return opError("sem_unlink", name, os.Remove(path))
}

func (s *namedSemaphore) value() *uint32   { return (*uint32)(unsafe.Pointer(&s.mem[0])) }
func (s *namedSemaphore) waiters() *uint32 { return (*uint32)(unsafe.Pointer(&s.mem[4])) }

func (s *namedSemaphore) Name() string { return s.name }

func (s *namedSemaphore) tryDecrement() bool {
	v := s.value()
	for {
		cur := atomic.LoadUint32(v)
		if cur == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(v, cur, cur-1) {
			return true
		}
	}
}

func (s *namedSemaphore) Acquire(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mem == nil {
		return ErrClosed
	}

	for {
		if s.tryDecrement() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return acquireError(err)
		}

		var wait time.Duration
		if ctx.Done() != nil {
			wait = acquirePoll
			if deadline, ok := ctx.Deadline(); ok {
				remaining := time.Until(deadline)
				if remaining <= 0 {
					return ErrAcquireTimeout
				}
				if remaining < wait {
					wait = remaining
				}
			}
		}

		atomic.AddUint32(s.waiters(), 1)
		err := futexWait(s.value(), 0, wait)
		atomic.AddUint32(s.waiters(), ^uint32(0))
		if err != nil {
			return opError("sem_wait", s.name, err)
		}
	}
}

func acquireError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrAcquireTimeout
	}
	return err
}

func (s *namedSemaphore) TryAcquire() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mem == nil {
		return false, ErrClosed
	}
	return s.tryDecrement(), nil
}

func (s *namedSemaphore) AcquireTimeout(timeout time.Duration) (bool, error) {
	return acquireWithTimeout(s, timeout)
}

func (s *namedSemaphore) Release() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mem == nil {
		return ErrClosed
	}

	v := s.value()
	for {
		cur := atomic.LoadUint32(v)
		if cur >= SemValueMax {
			return opError("sem_post", s.name, unix.EOVERFLOW)
		}
		if atomic.CompareAndSwapUint32(v, cur, cur+1) {
			break
		}
	}
	if atomic.LoadUint32(s.waiters()) > 0 {
		if err := futexWake(v, 1); err != nil {
			return opError("sem_post", s.name, err)
		}
	}
	return nil
}

func (s *namedSemaphore) Value() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mem == nil {
		return 0, ErrClosed
	}
	return int(atomic.LoadUint32(s.value())), nil
}

func (s *namedSemaphore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem == nil {
		return nil
	}
	err := unix.Munmap(s.mem)
	s.mem = nil
	return opError("sem_close", s.name, err)
}

// futexWait sleeps while *addr == val, for at most d (d == 0 waits forever).
// Spurious wakeups, signals and timeouts all return nil; the caller re-checks
// its condition.
func futexWait(addr *uint32, val uint32, d time.Duration) error {
	var ts *unix.Timespec
	if d > 0 {
		t := unix.NsecToTimespec(d.Nanoseconds())
		ts = &t
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitOp,
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0,
		0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR, unix.ETIMEDOUT:
		return nil
	default:
		return errno
	}
}

func futexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakeOp,
		uintptr(n),
		0,
		0,
		0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}
