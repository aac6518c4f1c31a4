//go:build !linux

package mailbox

func createSemaphore(name string, initial uint32) (Semaphore, bool, error) {
	return nil, false, ErrNotSupported
}

func openSemaphore(name string) (Semaphore, error) {
	return nil, ErrNotSupported
}

func unlinkSemaphore(name string) error {
	return ErrNotSupported
}
