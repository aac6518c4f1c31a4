// Package mailbox streams text records from one process to another through a
// single-slot handshake over named POSIX IPC resources.
//
// A producer and a consumer run as independent processes. They never
// exchange a handshake over the transport itself: both sides open the same
// named resources, agreed on out of band, and take turns through a pair of
// counting semaphores.
//
// # Architecture Overview
//
// Three layers sit on top of each other:
//
//  1. Named resources: Semaphore, MessageQueue and SharedMemory, each created
//     or opened by name from any process.
//
//  2. Mailbox: a Transport-tagged wrapper around exactly one backend, the
//     queued backend (kernel message queue) or the mapped backend (a shared
//     region one slot long). Send and Receive look the same for both.
//
//  3. Drivers: Producer frames an input stream into records and sends them;
//     Consumer receives until the terminator record arrives.
//
// # The Handshake
//
// The sender permit starts at 1 and the receiver permit at 0. One turn of
// the producer is acquire(sender), send, release(receiver); one turn of the
// consumer is acquire(receiver), receive, release(sender). Exactly one record
// is in flight at any time, even on the queued backend, and sends and receives
// are totally ordered:
//
//	send(i) -> receive(i) -> send(i+1)
//
// The mapped backend has no synchronization of its own; the alternation is
// what keeps reads from tearing.
//
// # Sessions
//
// OpenSession creates or opens the semaphore pair and the selected backend:
//
//	names, _ := mailbox.SessionNames("build-42")
//	s, err := mailbox.OpenSession(mailbox.Options{
//	    Transport: mailbox.TransportMapped,
//	    Role:      mailbox.RoleProducer,
//	    Names:     names,
//	})
//	defer s.Destroy()
//
//	report, err := mailbox.NewProducer(s, mailbox.ProducerOptions{AwaitAck: true}).Run(ctx, file)
//
// On the other side:
//
//	s, err := mailbox.OpenSession(mailbox.Options{Transport: mailbox.TransportMapped, Role: mailbox.RoleConsumer, Names: names})
//	defer s.Destroy()
//
//	_, err = mailbox.NewConsumer(s, mailbox.ConsumerOptions{}).Run(ctx, func(r mailbox.Record) error {
//	    fmt.Println(r.Line())
//	    return nil
//	})
//
// Close releases handles and leaves the names for a peer that may still need
// them; Destroy also unlinks them. An empty session name selects the historical
// fixed names (/test_queue, /shm_comm, /sender_sem, /receiver_sem).
//
// # Records and Codecs
//
// A record holds at most MaxRecordText bytes of one input line, terminator
// included when it fits. TextCodec writes NUL-terminated text and marks the
// end of the stream with the text "exit", so a last input line that reads
// "exit" with no newline after it also ends the stream. MsgpackCodec wraps
// records in a [kind, text] envelope and has no such collision.
// Both sides must use the same codec.
//
// # Platform Support
//
// Named resources are implemented on Linux without cgo:
//   - semaphores: 32-byte objects under /dev/shm/sem.<name>, waiting on a shared futex
//   - message queues: the kernel's mq_* system calls
//   - shared memory: objects under /dev/shm, mapped with mmap
//
// On other platforms every constructor returns ErrNotSupported.
package mailbox
