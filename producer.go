package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ProducerOptions configures a Producer.
type ProducerOptions struct {
	// Policy handles lines longer than MaxRecordText.
	Policy LinePolicy

	// AwaitAck makes Run wait, after the terminator, for the consumer's
	// final release of the sender permit. The names can then be unlinked
	// without racing a consumer that has not received the terminator yet.
	AwaitAck bool

	Logger  *zap.Logger
	Metrics *Metrics
}

// ProducerReport summarizes a producer run.
type ProducerReport struct {
	// Lines is the number of input lines read.
	Lines int
	// Records is the number of data records sent, terminator excluded.
	Records int
	// Elapsed runs from just before the first send to just after the
	// terminator was sent.
	Elapsed time.Duration
	// Acknowledged reports that the consumer released the sender permit
	// after the terminator.
	Acknowledged bool
	// EndedEarly reports that an input line encoded exactly like the
	// terminator, so the stream ended there and later lines were not sent.
	EndedEarly bool
}

// Producer streams an input file through a session, one record in flight
// at a time, and ends the stream with the terminator record.
type Producer struct {
	session *Session
	opts    ProducerOptions
	log     *zap.Logger
}

// NewProducer returns a producer driving s.
func NewProducer(s *Session, opts ProducerOptions) *Producer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{session: s, opts: opts, log: log}
}

// Run frames r into records and sends each one, then the terminator. The
// terminator is sent even when r is empty, and also when a line is rejected
// by PolicyReject, in which case Run returns ErrRecordTooLong afterwards.
func (p *Producer) Run(ctx context.Context, r io.Reader) (ProducerReport, error) {
	var report ProducerReport
	lines := NewLineReader(r, p.opts.Policy)
	var start time.Time

	for {
		rec, err := lines.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Lines = lines.Lines()
			if errors.Is(err, ErrRecordTooLong) {
				p.log.Error("rejecting input line", zap.Error(err))
				if start.IsZero() {
					start = time.Now()
				}
				if serr := p.deliver(ctx, TerminateRecord()); serr != nil {
					return report, multierr.Append(err, serr)
				}
				report.Elapsed = time.Since(start)
				if p.opts.AwaitAck {
					if aerr := p.awaitAck(ctx); aerr != nil {
						return report, multierr.Append(err, aerr)
					}
					report.Acknowledged = true
				}
				return report, err
			}
			return report, fmt.Errorf("read input: %w", err)
		}

		if start.IsZero() {
			start = time.Now()
		}
		if p.session.Mailbox.Terminates(rec) {
			// the consumer will stop at this line whatever follows it
			p.log.Warn("input line is indistinguishable from the terminator; ending stream",
				zap.Int("line", lines.Lines()),
				zap.String("codec", p.session.Mailbox.Codec().Name()))
			report.EndedEarly = true
			break
		}
		if err := p.deliver(ctx, rec); err != nil {
			report.Lines = lines.Lines()
			return report, err
		}
		report.Records++
		p.log.Debug("record sent", zap.Int("seq", report.Records), zap.Int("bytes", len(rec.Text)))
	}
	report.Lines = lines.Lines()

	if start.IsZero() {
		start = time.Now()
	}
	if err := p.deliver(ctx, TerminateRecord()); err != nil {
		return report, err
	}
	report.Elapsed = time.Since(start)
	p.log.Info("stream sent",
		zap.Int("records", report.Records),
		zap.Int("lines", report.Lines),
		zap.Duration("elapsed", report.Elapsed))

	if p.opts.AwaitAck {
		if err := p.awaitAck(ctx); err != nil {
			return report, err
		}
		report.Acknowledged = true
	}
	return report, nil
}

// deliver runs one turn of the handshake: take the sender permit, send,
// hand the receiver its permit.
func (p *Producer) deliver(ctx context.Context, rec Record) error {
	s := p.session
	waitStart := time.Now()
	if err := s.Acquire(ctx, s.SenderPermit); err != nil {
		return err
	}
	p.opts.Metrics.waited("sender", time.Since(waitStart))

	if err := s.Mailbox.Send(ctx, rec); err != nil {
		return fmt.Errorf("send %s record: %w", rec.Kind, err)
	}
	p.opts.Metrics.sent()

	if err := s.ReceiverPermit.Release(); err != nil {
		return fmt.Errorf("release %s: %w", s.ReceiverPermit.Name(), err)
	}
	return nil
}

// awaitAck waits for the consumer to finish with the terminator, then puts
// the sender permit back so the pair ends at its initial values.
func (p *Producer) awaitAck(ctx context.Context) error {
	s := p.session
	if err := s.Acquire(ctx, s.SenderPermit); err != nil {
		return fmt.Errorf("await terminator acknowledgement: %w", err)
	}
	if err := s.SenderPermit.Release(); err != nil {
		return fmt.Errorf("release %s: %w", s.SenderPermit.Name(), err)
	}
	p.log.Debug("terminator acknowledged")
	return nil
}
