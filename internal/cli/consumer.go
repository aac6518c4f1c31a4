package cli

import (
	"fmt"

	"github.com/richinsley/mailbox"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// NewConsumerCommand returns the consumer command:
//
//	consumer <transport_id>
func NewConsumerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consumer <transport_id>",
		Short: "Print records sent by a producer",
		Long: `Consumer receives records from a producer process and prints each one
as "Received message: <text>" until the terminator record arrives.

transport_id selects the backend: 1 for message queue, 2 for shared memory.`,
		Args:          transportArg(1),
		SilenceErrors: true,
		RunE:          runConsumer,
	}
	addSettingFlags(cmd, false)
	return cmd
}

func runConsumer(cmd *cobra.Command, args []string) (err error) {
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
	log := newLogger(cfg)
	defer log.Sync() //nolint:errcheck

	opts, err := cfg.SessionOptions(transport, mailbox.RoleConsumer)
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

	out := cmd.OutOrStdout()
	consumer := mailbox.NewConsumer(s, mailbox.ConsumerOptions{
		Logger:  log,
		Metrics: mailbox.NewMetrics(transport),
	})
	report, runErr := consumer.Run(ctx, func(rec mailbox.Record) error {
		_, err := fmt.Fprintf(out, "Received message: %s\n", rec.Line())
		return err
	})
	defer func() {
		err = multierr.Append(err, teardown(ctx, s, runErr, log))
	}()

	log.Info("consumer finished",
		zap.Int("records", report.Records),
		zap.Stringer("state", consumer.State()))
	if runErr != nil {
		log.Error("consumer failed", zap.Error(runErr))
	}
	return runErr
}
