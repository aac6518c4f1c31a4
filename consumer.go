package mailbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ConsumerState is where a Consumer is in its receive loop.
type ConsumerState int32

const (
	StateWaiting ConsumerState = iota
	StateProcessing
	StateTerminated
)

func (s ConsumerState) String() string {
	switch s {
	case StateWaiting:
		return "WAITING_FOR_MESSAGE"
	case StateProcessing:
		return "PROCESSING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ConsumerOptions configures a Consumer.
type ConsumerOptions struct {
	Logger  *zap.Logger
	Metrics *Metrics
}

// ConsumerReport summarizes a consumer run.
type ConsumerReport struct {
	// Records is the number of data records received, terminator excluded.
	Records int
}

// Consumer receives records from a session until the terminator arrives.
type Consumer struct {
	session *Session
	opts    ConsumerOptions
	log     *zap.Logger
	state   atomic.Int32
}

// NewConsumer returns a consumer driving s.
func NewConsumer(s *Session, opts ConsumerOptions) *Consumer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{session: s, opts: opts, log: log}
}

// State returns the consumer's current state.
func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

func (c *Consumer) setState(s ConsumerState) {
	c.state.Store(int32(s))
}

// Run loops: wait for the receiver permit, receive, hand the sender permit
// back, then pass data records to emit. It returns nil once the terminator
// has been received; emit never sees the terminator.
func (c *Consumer) Run(ctx context.Context, emit func(Record) error) (ConsumerReport, error) {
	var report ConsumerReport
	s := c.session
	for {
		c.setState(StateWaiting)
		waitStart := time.Now()
		if err := s.Acquire(ctx, s.ReceiverPermit); err != nil {
			return report, err
		}
		c.opts.Metrics.waited("receiver", time.Since(waitStart))

		c.setState(StateProcessing)
		rec, err := s.Mailbox.Receive(ctx)
		if err != nil {
			return report, fmt.Errorf("receive: %w", err)
		}
		c.opts.Metrics.received()

		if err := s.SenderPermit.Release(); err != nil {
			return report, fmt.Errorf("release %s: %w", s.SenderPermit.Name(), err)
		}

		if rec.IsTerminate() {
			c.setState(StateTerminated)
			c.log.Info("terminator received", zap.Int("records", report.Records))
			return report, nil
		}

		report.Records++
		c.log.Debug("record received", zap.Int("seq", report.Records), zap.Int("bytes", len(rec.Text)))
		if emit != nil {
			if err := emit(rec); err != nil {
				return report, fmt.Errorf("emit record %d: %w", report.Records, err)
			}
		}
	}
}
