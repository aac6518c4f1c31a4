package mailbox

import (
	"io"
)

// SharedMemory is a named memory region mapped into every process that opens
// it. It implements io.ReaderAt and io.WriterAt; it does no synchronization of
// its own, so concurrent writers and readers must be ordered externally.
//
// Shared memory is created with CreateSharedMemory and opened with
// OpenSharedMemory. Both processes must use the same name and agree on the size.
//
// Note: shared memory is implemented on Linux only:
//   - Linux: POSIX shared memory objects under /dev/shm, mapped with mmap
//   - elsewhere: every constructor returns ErrNotSupported
//
// Example:
//
//	// producer (creator)
//	shm, _, _ := mailbox.CreateSharedMemory("/my_shm", 112, mailbox.ReadWrite)
//	shm.WriteAt([]byte("hello\x00"), 0)
//
//	// consumer
//	shm, _ := mailbox.OpenSharedMemory("/my_shm", 112, mailbox.ReadOnly)
//	buf := make([]byte, 112)
//	shm.ReadAt(buf, 0)
type SharedMemory struct {
	// m is the platform-specific shared memory implementation
	m *shmi

	// Name is the identifier used to open/create this shared memory
	Name string
}

// GetSize returns the size of the shared memory region in bytes.
func (o *SharedMemory) GetSize() int {
	return o.m.getSize()
}

// Bytes returns the mapped region itself. Writes through the slice are
// immediately visible to other processes; the slice is invalid after Close.
func (o *SharedMemory) Bytes() []byte {
	return o.m.bytes()
}

// CreateSharedMemory opens the named region, creating it if needed, and
// makes sure it is at least size bytes long. The returned bool reports
// whether this call created the object.
func CreateSharedMemory(name string, size int, access Access) (*SharedMemory, bool, error) {
	m, created, err := create(name, size, access)
	if err != nil {
		return nil, false, err
	}
	return &SharedMemory{m, name}, created, nil
}

// OpenSharedMemory opens an existing named region. It fails with an error
// matching os.ErrNotExist when the region has not been created, and refuses
// a region smaller than size.
func OpenSharedMemory(name string, size int, access Access) (*SharedMemory, error) {
	m, err := open(name, size, access)
	if err != nil {
		return nil, err
	}
	return &SharedMemory{m, name}, nil
}

// UnlinkSharedMemory removes the region name. Existing mappings stay valid.
func UnlinkSharedMemory(name string) error {
	return unlink(name)
}

// Close unmaps the region. The named object survives until
// UnlinkSharedMemory is called.
func (o *SharedMemory) Close() (err error) {
	if o.m != nil {
		err = o.m.close()
		if err == nil {
			o.m = nil
		}
	}
	return err
}

// ReadAt reads len(p) bytes from shared memory starting at offset off.
// Implements io.ReaderAt.
func (o *SharedMemory) ReadAt(p []byte, off int64) (n int, err error) {
	if o.m == nil {
		return 0, ErrClosed
	}
	return o.m.readAt(p, off)
}

// WriteAt writes len(p) bytes to shared memory starting at offset off.
// Implements io.WriterAt.
func (o *SharedMemory) WriteAt(p []byte, off int64) (n int, err error) {
	if o.m == nil {
		return 0, ErrClosed
	}
	return o.m.writeAt(p, off)
}

var (
	_ io.ReaderAt = (*SharedMemory)(nil)
	_ io.WriterAt = (*SharedMemory)(nil)
)
