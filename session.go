package mailbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
)

// DefaultQueueDepth is the message queue capacity. The handshake never has
// more than one record queued, but a foreign peer may create the queue with
// this depth.
const DefaultQueueDepth = 10

// ResourceKind identifies the type of a named resource.
type ResourceKind int

const (
	ResourceSemaphore ResourceKind = iota
	ResourceQueue
	ResourceRegion
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceSemaphore:
		return "semaphore"
	case ResourceQueue:
		return "queue"
	case ResourceRegion:
		return "region"
	default:
		return "unknown"
	}
}

// Resource is one named IPC object.
type Resource struct {
	Kind ResourceKind
	Name string
}

func (r Resource) unlink() error {
	switch r.Kind {
	case ResourceSemaphore:
		return UnlinkSemaphore(r.Name)
	case ResourceQueue:
		return UnlinkMessageQueue(r.Name)
	case ResourceRegion:
		return UnlinkSharedMemory(r.Name)
	default:
		return fmt.Errorf("unlink %s: unknown resource kind", r.Name)
	}
}

// exists opens the resource without creating it.
func (r Resource) exists() (bool, error) {
	var err error
	switch r.Kind {
	case ResourceSemaphore:
		var s Semaphore
		if s, err = OpenSemaphore(r.Name); err == nil {
			s.Close()
		}
	case ResourceQueue:
		var q *MessageQueue
		if q, err = OpenMessageQueue(r.Name, ReadOnly); err == nil {
			q.Close()
		}
	case ResourceRegion:
		var m *SharedMemory
		if m, err = OpenSharedMemory(r.Name, 1, ReadOnly); err == nil {
			m.Close()
		}
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return true, err
}

// Resources lists every name a run with the given names could create,
// for both transports.
func (n Names) Resources() []Resource {
	return []Resource{
		{ResourceSemaphore, n.Sender},
		{ResourceSemaphore, n.Receiver},
		{ResourceQueue, n.Queue},
		{ResourceRegion, n.Region},
	}
}

// ResourceStatus reports whether a named resource is present.
type ResourceStatus struct {
	Resource
	Exists bool
	Err    error
}

// Inspect checks each resource of names without creating anything.
func Inspect(names Names) []ResourceStatus {
	out := make([]ResourceStatus, 0, 4)
	for _, r := range names.Resources() {
		ok, err := r.exists()
		out = append(out, ResourceStatus{Resource: r, Exists: ok, Err: err})
	}
	return out
}

// Remove unlinks every resource of names that exists and returns the ones
// it removed.
func Remove(names Names) ([]Resource, error) {
	var removed []Resource
	var errs error
	for _, r := range names.Resources() {
		err := r.unlink()
		switch {
		case err == nil:
			removed = append(removed, r)
		case errors.Is(err, os.ErrNotExist):
		default:
			errs = multierr.Append(errs, err)
		}
	}
	return removed, errs
}

// Options configures OpenSession.
type Options struct {
	Transport Transport
	Role      Role
	Names     Names

	// Codec lays records out in slots; nil means TextCodec.
	Codec Codec

	// QueueDepth is the queue capacity used when this side creates it.
	QueueDepth int

	// Timeout bounds each semaphore acquire; zero waits forever.
	Timeout time.Duration
}

// Session is everything one side of a run holds: the semaphore pair and the
// mailbox. Both sides open-or-create every resource, so either may start
// first.
//
// Teardown comes in two strengths. Close releases this process's handles
// and leaves the names for a peer that may still be blocked on them.
// Destroy also unlinks every name, and is what a side runs once the stream
// has ended or it is told to stop.
type Session struct {
	opts Options

	// SenderPermit starts at 1: the producer may send.
	SenderPermit Semaphore
	// ReceiverPermit starts at 0: a record is ready to receive.
	ReceiverPermit Semaphore
	// Mailbox carries the records.
	Mailbox *Mailbox

	created []Resource
	closed  bool
}

// OpenSession opens or creates the semaphore pair and the selected backend.
// On failure every resource this call created is unlinked again and nothing
// stays open.
func OpenSession(opts Options) (*Session, error) {
	if !opts.Transport.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTransport, int(opts.Transport))
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = DefaultQueueDepth
	}
	if opts.Codec == nil {
		opts.Codec = TextCodec{}
	}

	s := &Session{opts: opts}
	names := opts.Names

	var err error
	var created bool
	if s.SenderPermit, created, err = CreateSemaphore(names.Sender, 1); err != nil {
		return nil, s.rollback(err)
	}
	s.track(created, ResourceSemaphore, names.Sender)

	if s.ReceiverPermit, created, err = CreateSemaphore(names.Receiver, 0); err != nil {
		return nil, s.rollback(err)
	}
	s.track(created, ResourceSemaphore, names.Receiver)

	var b backend
	switch opts.Transport {
	case TransportQueued:
		var q *queuedBackend
		if q, created, err = openQueued(names.Queue, opts.Role, opts.QueueDepth); err != nil {
			return nil, s.rollback(err)
		}
		s.track(created, ResourceQueue, names.Queue)
		b = q
	case TransportMapped:
		var m *mappedBackend
		if m, created, err = openMapped(names.Region, opts.Role); err != nil {
			return nil, s.rollback(err)
		}
		s.track(created, ResourceRegion, names.Region)
		b = m
	}
	s.Mailbox = newMailbox(opts.Transport, b, opts.Codec)
	return s, nil
}

func (s *Session) track(created bool, kind ResourceKind, name string) {
	if created {
		s.created = append(s.created, Resource{Kind: kind, Name: name})
	}
}

func (s *Session) rollback(cause error) error {
	errs := s.closeHandles()
	for _, r := range s.created {
		errs = multierr.Append(errs, r.unlink())
	}
	if errs != nil {
		return fmt.Errorf("%w (cleanup: %v)", cause, errs)
	}
	return cause
}

// Options returns the options the session was opened with, defaults applied.
func (s *Session) Options() Options {
	return s.opts
}

// Created lists the resources this process created, as opposed to opened.
func (s *Session) Created() []Resource {
	return append([]Resource(nil), s.created...)
}

// Resources lists the names this session uses.
func (s *Session) Resources() []Resource {
	n := s.opts.Names
	out := []Resource{{ResourceSemaphore, n.Sender}, {ResourceSemaphore, n.Receiver}}
	if s.opts.Transport == TransportQueued {
		return append(out, Resource{ResourceQueue, n.Queue})
	}
	return append(out, Resource{ResourceRegion, n.Region})
}

// Acquire takes a permit, bounded by the session's timeout.
func (s *Session) Acquire(ctx context.Context, sem Semaphore) error {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	if err := sem.Acquire(ctx); err != nil {
		return fmt.Errorf("acquire %s: %w", sem.Name(), err)
	}
	return nil
}

func (s *Session) closeHandles() error {
	var errs error
	if s.Mailbox != nil {
		errs = multierr.Append(errs, s.Mailbox.Close())
	}
	if s.ReceiverPermit != nil {
		errs = multierr.Append(errs, s.ReceiverPermit.Close())
	}
	if s.SenderPermit != nil {
		errs = multierr.Append(errs, s.SenderPermit.Close())
	}
	return errs
}

// Close releases this process's handles. Names stay in place. Close is
// idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closeHandles()
}

// Destroy closes the handles and unlinks every name the session uses. A
// name already unlinked by the peer is not an error.
func (s *Session) Destroy() error {
	errs := s.Close()
	for _, r := range s.Resources() {
		if err := r.unlink(); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
