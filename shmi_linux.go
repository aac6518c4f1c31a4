//go:build linux

package mailbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// shmDir is where glibc's shm_open and sem_open keep their objects.
const shmDir = "/dev/shm"

const shmPerm = 0666

// shmi is a POSIX shared memory object mapped into this process.
type shmi struct {
	name   string
	mem    []byte
	size   int
	access Access
}

func shmPath(name string) (string, error) {
	bare, err := bareName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(shmDir, bare), nil
}

func (o *shmi) getSize() int {
	if o == nil {
		return 0
	}
	return o.size
}

func (o *shmi) bytes() []byte {
	if o == nil {
		return nil
	}
	return o.mem
}

func create(name string, size int, access Access) (*shmi, bool, error) {
	if size <= 0 {
		return nil, false, opError("shm_open", name, unix.EINVAL)
	}
	path, err := shmPath(name)
	if err != nil {
		return nil, false, err
	}

	created := true
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, shmPerm)
	if errors.Is(err, os.ErrExist) {
		created = false
		f, err = os.OpenFile(path, os.O_RDWR, 0)
	}
	if err != nil {
		return nil, false, opError("shm_open", name, err)
	}
	defer f.Close()

	fail := func(op string, err error) (*shmi, bool, error) {
		if created {
			os.Remove(path)
		}
		return nil, false, opError(op, name, err)
	}

	fi, err := f.Stat()
	if err != nil {
		return fail("fstat", err)
	}
	// Both sides may create; growing only never shrinks a peer's mapping.
	if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return fail("ftruncate", err)
		}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, size, protFor(access), unix.MAP_SHARED)
	if err != nil {
		return fail("mmap", err)
	}
	return &shmi{name: name, mem: mem, size: size, access: access}, created, nil
}

func open(name string, size int, access Access) (*shmi, error) {
	path, err := shmPath(name)
	if err != nil {
		return nil, err
	}
	flag := os.O_RDWR
	if access == ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, opError("shm_open", name, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, opError("fstat", name, err)
	}
	// mapping past the end of the object would fault on first access
	if fi.Size() < int64(size) {
		return nil, opError("shm_open", name, fmt.Errorf("object is %d bytes, want %d", fi.Size(), size))
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, size, protFor(access), unix.MAP_SHARED)
	if err != nil {
		return nil, opError("mmap", name, err)
	}
	return &shmi{name: name, mem: mem, size: size, access: access}, nil
}

func unlink(name string) error {
	path, err := shmPath(name)
	if err != nil {
		return err
	}
	return opError("shm_unlink", name, os.Remove(path))
}

func protFor(access Access) int {
	if access == ReadOnly {
		return unix.PROT_READ
	}
	return unix.PROT_READ | unix.PROT_WRITE
}

func (o *shmi) close() error {
	if o.mem == nil {
		return nil
	}
	err := unix.Munmap(o.mem)
	if err != nil {
		return opError("munmap", o.name, err)
	}
	o.mem = nil
	return nil
}

func (o *shmi) readAt(p []byte, off int64) (n int, err error) {
	if o.access == WriteOnly {
		return 0, opError("read", o.name, unix.EBADF)
	}
	if off < 0 || off >= int64(o.size) {
		return 0, io.EOF
	}
	n = copy(p, o.mem[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (o *shmi) writeAt(p []byte, off int64) (n int, err error) {
	if o.access == ReadOnly {
		return 0, opError("write", o.name, unix.EBADF)
	}
	if off < 0 || off >= int64(o.size) {
		return 0, io.ErrShortWrite
	}
	n = copy(o.mem[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
