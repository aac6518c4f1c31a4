//go:build linux

package mailbox

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageQueueSendReceive(t *testing.T) {
	name := testNames(t).Queue
	attr := QueueAttr{MaxMessages: 4, MessageSize: SlotSize}

	w, created, err := CreateMessageQueue(name, WriteOnly, attr)
	require.NoError(t, err)
	defer w.Close()
	assert.True(t, created)
	assert.Equal(t, name, w.Name())

	r, created, err := CreateMessageQueue(name, ReadOnly, attr)
	require.NoError(t, err)
	defer r.Close()
	assert.False(t, created)

	ctx := context.Background()
	require.NoError(t, w.Send(ctx, []byte("one")))
	require.NoError(t, w.Send(ctx, []byte("two")))

	got, err := r.Attr()
	require.NoError(t, err)
	assert.Equal(t, QueueAttr{MaxMessages: 4, MessageSize: SlotSize, CurMessages: 2}, got)

	buf := make([]byte, SlotSize)
	n, err := r.Receive(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "one", string(buf[:n]))
	n, err = r.Receive(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "two", string(buf[:n]))
}

func TestMessageQueueDeadlines(t *testing.T) {
	name := testNames(t).Queue
	q, _, err := CreateMessageQueue(name, ReadWrite, QueueAttr{MaxMessages: 1, MessageSize: 8})
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = q.Receive(ctx, make([]byte, 8))
	assert.Error(t, err, "receive on an empty queue times out")

	require.NoError(t, q.Send(context.Background(), []byte("full")))
	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel2()
	err = q.Send(ctx2, []byte("more"))
	assert.Error(t, err, "send on a full queue times out")
}

func TestMessageQueueIncompatible(t *testing.T) {
	name := testNames(t).Queue
	small, _, err := CreateMessageQueue(name, ReadWrite, QueueAttr{MaxMessages: 2, MessageSize: 16})
	require.NoError(t, err)
	defer small.Close()

	_, _, err = CreateMessageQueue(name, ReadWrite, QueueAttr{MaxMessages: 2, MessageSize: SlotSize})
	assert.ErrorIs(t, err, ErrIncompatibleQueue)
}

func TestMessageQueueReceiveBufferTooSmall(t *testing.T) {
	name := testNames(t).Queue
	q, _, err := CreateMessageQueue(name, ReadWrite, QueueAttr{MaxMessages: 2, MessageSize: SlotSize})
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Send(context.Background(), []byte("x")))
	_, err = q.Receive(context.Background(), make([]byte, SlotSize-1))
	assert.Error(t, err)
}

func TestMessageQueueNotFound(t *testing.T) {
	name := testNames(t).Queue

	_, err := OpenMessageQueue(name, ReadOnly)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, UnlinkMessageQueue(name), os.ErrNotExist)
}

func TestMessageQueueClosed(t *testing.T) {
	q, _, err := CreateMessageQueue(testNames(t).Queue, ReadWrite, QueueAttr{MaxMessages: 1, MessageSize: 8})
	require.NoError(t, err)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Send(context.Background(), []byte("x")), ErrClosed)
	_, err = q.Attr()
	assert.ErrorIs(t, err, ErrClosed)
}
