package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/richinsley/mailbox"
	"github.com/richinsley/mailbox/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// NewProducerCommand returns the producer command:
//
//	producer <transport_id> <input_file>
func NewProducerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "producer <transport_id> <input_file>",
		Short: "Send the lines of a file to a consumer",
		Long: `Producer streams input_file to a consumer process one line at a time,
handing over each record only after the consumer has taken the previous one.

transport_id selects the backend: 1 for message queue, 2 for shared memory.
After the last line the producer sends the terminator record and reports the
time spent sending.`,
		Args:          transportArg(2),
		SilenceErrors: true,
		RunE:          runProducer,
	}
	addSettingFlags(cmd, true)
	return cmd
}

func runProducer(cmd *cobra.Command, args []string) (err error) {
	// arguments are valid; runtime failures should not print usage
	cmd.SilenceUsage = true

	transport, err := mailbox.ParseTransport(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Session == config.AutoSession {
		cfg.Session = uuid.NewString()
		fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", cfg.Session)
	}
	log := newLogger(cfg)
	defer log.Sync() //nolint:errcheck

	input, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	opts, err := cfg.SessionOptions(transport, mailbox.RoleProducer)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	s, err := mailbox.OpenSession(opts)
	if err != nil {
		return err
	}
	log = log.With(zap.Stringer("transport", transport), zap.String("queue", opts.Names.Queue),
		zap.String("region", opts.Names.Region))
	log.Info("session open", zap.Int("created", len(s.Created())), zap.String("codec", opts.Codec.Name()))

	metrics := mailbox.NewMetrics(transport)
	producer := mailbox.NewProducer(s, mailbox.ProducerOptions{
		Policy:   cfg.Policy(),
		AwaitAck: cfg.AwaitAck,
		Logger:   log,
		Metrics:  metrics,
	})
	report, runErr := producer.Run(ctx, input)
	defer func() {
		err = multierr.Append(err, teardown(ctx, s, runErr, log))
	}()

	if report.Elapsed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Total time taken in sending msg: %f seconds\n", report.Elapsed.Seconds())
	}
	log.Info("producer finished",
		zap.Int("lines", report.Lines),
		zap.Int("records", report.Records),
		zap.Duration("elapsed", report.Elapsed),
		zap.Bool("acknowledged", report.Acknowledged),
		zap.Bool("ended_early", report.EndedEarly),
		zap.Int64("peak_in_flight", metrics.PeakInFlight()))
	if runErr != nil {
		log.Error("producer failed", zap.Error(runErr))
	}
	return runErr
}
