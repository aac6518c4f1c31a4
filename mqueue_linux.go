//go:build linux

package mailbox

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const mqPerm = 0644

// mqAttr mirrors the kernel's struct mq_attr: four longs plus reserved space.
type mqAttr struct {
	Flags   int
	Maxmsg  int
	Msgsize int
	Curmsgs int
	_       [4]int
}

func accessFlags(access Access) int {
	switch access {
	case ReadOnly:
		return unix.O_RDONLY
	case WriteOnly:
		return unix.O_WRONLY
	default:
		return unix.O_RDWR
	}
}

// mqOpen issues mq_open directly. The kernel takes the name without glibc's
// leading slash.
func mqOpen(bare string, oflag int, attr *mqAttr) (int, error) {
	p, err := unix.BytePtrFromString(bare)
	if err != nil {
		return -1, err
	}
	fd, _, errno := unix.Syscall6(
		unix.SYS_MQ_OPEN,
		uintptr(unsafe.Pointer(p)),
		uintptr(oflag|unix.O_CLOEXEC),
		uintptr(mqPerm),
		uintptr(unsafe.Pointer(attr)),
		0,
		0,
	)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

func mqGetAttr(fd int) (mqAttr, error) {
	var attr mqAttr
	_, _, errno := unix.Syscall(unix.SYS_MQ_GETSETATTR, uintptr(fd), 0, uintptr(unsafe.Pointer(&attr)))
	if errno != 0 {
		return attr, errno
	}
	return attr, nil
}

func createMessageQueue(name string, access Access, attr QueueAttr) (*MessageQueue, bool, error) {
	bare, err := bareName(name)
	if err != nil {
		return nil, false, err
	}
	if attr.MaxMessages <= 0 || attr.MessageSize <= 0 {
		return nil, false, opError("mq_open", name, unix.EINVAL)
	}

	kattr := &mqAttr{Maxmsg: attr.MaxMessages, Msgsize: attr.MessageSize}
	fd, err := mqOpen(bare, accessFlags(access)|unix.O_CREAT|unix.O_EXCL, kattr)
	if err == nil {
		return &MessageQueue{name: name, fd: fd, access: access}, true, nil
	}
	if !errors.Is(err, unix.EEXIST) {
		return nil, false, opError("mq_open", name, err)
	}

	q, err := openMessageQueue(name, access)
	if err != nil {
		return nil, false, err
	}
	got, err := q.Attr()
	if err != nil {
		q.Close()
		return nil, false, err
	}
	if got.MessageSize < attr.MessageSize {
		q.Close()
		return nil, false, opError("mq_open", name,
			fmt.Errorf("%w: message size %d, need %d", ErrIncompatibleQueue, got.MessageSize, attr.MessageSize))
	}
	return q, false, nil
}

func openMessageQueue(name string, access Access) (*MessageQueue, error) {
	bare, err := bareName(name)
	if err != nil {
		return nil, err
	}
	fd, err := mqOpen(bare, accessFlags(access), nil)
	if err != nil {
		return nil, opError("mq_open", name, err)
	}
	return &MessageQueue{name: name, fd: fd, access: access}, nil
}

func unlinkMessageQueue(name string) error {
	bare, err := bareName(name)
	if err != nil {
		return err
	}
	p, err := unix.BytePtrFromString(bare)
	if err != nil {
		return opError("mq_unlink", name, err)
	}
	_, _, errno := unix.Syscall(unix.SYS_MQ_UNLINK, uintptr(unsafe.Pointer(p)), 0, 0)
	if errno != 0 {
		return opError("mq_unlink", name, errno)
	}
	return nil
}

// deadlineSpec converts the context deadline, if any, to the absolute
// CLOCK_REALTIME timeout the mq_timed* calls expect.
func deadlineSpec(ctx context.Context) *unix.Timespec {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ts := unix.NsecToTimespec(deadline.UnixNano())
	return &ts
}

// Send enqueues msg, blocking while the queue is full. Only the context's
// deadline can end the wait early.
func (q *MessageQueue) Send(ctx context.Context, msg []byte) error {
	if len(msg) == 0 {
		return opError("mq_timedsend", q.name, unix.EINVAL)
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.fd < 0 {
		return ErrClosed
	}
	for {
		if err := ctx.Err(); err != nil {
			return opError("mq_timedsend", q.name, err)
		}
		ts := deadlineSpec(ctx)
		_, _, errno := unix.Syscall6(
			unix.SYS_MQ_TIMEDSEND,
			uintptr(q.fd),
			uintptr(unsafe.Pointer(&msg[0])),
			uintptr(len(msg)),
			0,
			uintptr(unsafe.Pointer(ts)),
			0,
		)
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return opError("mq_timedsend", q.name, errno)
		}
	}
}

// Receive dequeues the oldest message into buf, blocking while the queue is
// empty. buf must hold at least the queue's message size.
func (q *MessageQueue) Receive(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, opError("mq_timedreceive", q.name, unix.EMSGSIZE)
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.fd < 0 {
		return 0, ErrClosed
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, opError("mq_timedreceive", q.name, err)
		}
		ts := deadlineSpec(ctx)
		n, _, errno := unix.Syscall6(
			unix.SYS_MQ_TIMEDRECEIVE,
			uintptr(q.fd),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(len(buf)),
			0,
			uintptr(unsafe.Pointer(ts)),
			0,
		)
		switch errno {
		case 0:
			return int(n), nil
		case unix.EINTR:
			continue
		default:
			return 0, opError("mq_timedreceive", q.name, errno)
		}
	}
}

// Attr reports the queue's live attributes.
func (q *MessageQueue) Attr() (QueueAttr, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.fd < 0 {
		return QueueAttr{}, ErrClosed
	}
	attr, err := mqGetAttr(q.fd)
	if err != nil {
		return QueueAttr{}, opError("mq_getattr", q.name, err)
	}
	return QueueAttr{MaxMessages: attr.Maxmsg, MessageSize: attr.Msgsize, CurMessages: attr.Curmsgs}, nil
}

// Close releases the descriptor. The queue itself survives until
// UnlinkMessageQueue is called.
func (q *MessageQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fd < 0 {
		return nil
	}
	err := unix.Close(q.fd)
	q.fd = -1
	return opError("mq_close", q.name, err)
}
