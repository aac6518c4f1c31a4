//go:build linux

package mailbox

import (
	"context"
	"encoding/binary"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreCreateOrOpen(t *testing.T) {
	name := testNames(t).Sender

	s, created, err := CreateSemaphore(name, 1)
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, created)
	assert.Equal(t, name, s.Name())

	// the second create opens the existing object and ignores its value
	s2, created, err := CreateSemaphore(name, 5)
	require.NoError(t, err)
	defer s2.Close()
	assert.False(t, created)

	v, err := s2.Value()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = os.Stat("/dev/shm/sem." + name[1:])
	assert.NoError(t, err, "object lives where glibc puts named semaphores")
}

func TestSemaphoreGlibcLayout(t *testing.T) {
	name := testNames(t).Receiver
	s, _, err := CreateSemaphore(name, 3)
	require.NoError(t, err)
	defer s.Close()

	raw, err := os.ReadFile("/dev/shm/sem." + name[1:])
	require.NoError(t, err)
	require.Len(t, raw, 32)

	// value, waiters, then FUTEX_SHARED in the private flag as sem_open writes it
	assert.Equal(t, uint32(3), binary.NativeEndian.Uint32(raw[0:4]))
	assert.Equal(t, uint32(0), binary.NativeEndian.Uint32(raw[4:8]))
	assert.Equal(t, uint32(128), binary.NativeEndian.Uint32(raw[8:12]))
	assert.Equal(t, make([]byte, 20), raw[12:])
}

func TestSemaphoreTryAcquireAndRelease(t *testing.T) {
	s, _, err := CreateSemaphore(testNames(t).Receiver, 0)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	ok, err = s.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, s.Acquire(context.Background()))

	v, err = s.Value()
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestSemaphoreAcquireTimeout(t *testing.T) {
	s, _, err := CreateSemaphore(testNames(t).Sender, 0)
	require.NoError(t, err)
	defer s.Close()

	start := time.Now()
	ok, err := s.AcquireTimeout(30 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Acquire(ctx), ErrAcquireTimeout)

	require.NoError(t, s.Release())
	ok, err = s.AcquireTimeout(time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSemaphoreAcquireCancel(t *testing.T) {
	s, _, err := CreateSemaphore(testNames(t).Sender, 0)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not notice cancellation")
	}
}

func TestSemaphoreWakesOtherHandle(t *testing.T) {
	name := testNames(t).Receiver
	waiter, _, err := CreateSemaphore(name, 0)
	require.NoError(t, err)
	defer waiter.Close()
	poster, err := OpenSemaphore(name)
	require.NoError(t, err)
	defer poster.Close()

	done := make(chan error, 1)
	go func() { done <- waiter.Acquire(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, poster.Release())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("release through another handle did not wake the waiter")
	}
}

func TestSemaphoreMutualExclusion(t *testing.T) {
	name := testNames(t).Sender
	s, _, err := CreateSemaphore(name, 1)
	require.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := OpenSemaphore(name)
			if !assert.NoError(t, err) {
				return
			}
			defer h.Close()
			for j := 0; j < 200; j++ {
				if !assert.NoError(t, h.Acquire(context.Background())) {
					return
				}
				counter++
				assert.NoError(t, h.Release())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*200, counter)
}

func TestSemaphoreNotFound(t *testing.T) {
	name := testNames(t).Sender

	_, err := OpenSemaphore(name)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = UnlinkSemaphore(name)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "sem_unlink", opErr.Op)
}

func TestSemaphoreInvalid(t *testing.T) {
	_, _, err := CreateSemaphore("no-slash", 0)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, _, err = CreateSemaphore(testNames(t).Sender, -1)
	assert.Error(t, err)
}

func TestSemaphoreClosed(t *testing.T) {
	s, _, err := CreateSemaphore(testNames(t).Sender, 1)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Acquire(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Release(), ErrClosed)
	_, err = s.Value()
	assert.ErrorIs(t, err, ErrClosed)
}
