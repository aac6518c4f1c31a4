// Package cli implements the producer, consumer and mailboxctl commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richinsley/mailbox"
	"github.com/richinsley/mailbox/internal/config"
	"github.com/richinsley/mailbox/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// settingFlags are the flags every command binds into viper, keyed by the
// config key they override.
var settingFlags = map[string]string{
	"session":            "session",
	"codec":              "codec",
	"line-policy":        "line_policy",
	"timeout":            "timeout",
	"await-ack":          "await_ack",
	"queue-max-messages": "queue.max_messages",
	"log-level":          "log.level",
	"log-development":    "log.development",
}

// addSettingFlags registers the shared configuration flags on cmd.
func addSettingFlags(cmd *cobra.Command, producer bool) {
	defaults := config.Default()
	flags := cmd.Flags()

	flags.StringP("config", "c", "", "config file (YAML)")
	flags.StringP("session", "s", defaults.Session, "session id scoping the IPC names (empty uses the fixed names)")
	flags.String("codec", defaults.Codec, "record layout: text or envelope")
	flags.Duration("timeout", defaults.Timeout, "bound on every semaphore wait (0 waits forever)")
	flags.Int("queue-max-messages", defaults.Queue.MaxMessages, "message queue depth when this side creates it")
	flags.String("log-level", defaults.Log.Level, "log level: debug, info, warn, error")
	flags.Bool("log-development", defaults.Log.Development, "human-readable console logs")
	if producer {
		flags.String("line-policy", defaults.LinePolicy, "overlong lines: split, truncate or reject")
		flags.Bool("await-ack", defaults.AwaitAck, "wait for the consumer to take the terminator before cleaning up")
	}
}

// loadConfig builds the configuration for cmd: defaults, then the config
// file, then MAILBOX_* variables, then flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	v, err := config.New(file)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flag, key := range settingFlags {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// newLogger builds the diagnostic logger. A logger that cannot be built
// never stops a run; it degrades to a no-op logger.
func newLogger(cfg *config.Config) *zap.Logger {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Development = cfg.Log.Development
	return logging.NewOrNop(lc)
}

// transportArg validates the leading transport id before anything is opened.
func transportArg(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return err
		}
		_, err := mailbox.ParseTransport(args[0])
		return err
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// teardown ends a session after a run. A run that finished, was rejected on
// data, or was told to stop removes the names; any other failure only closes
// handles so a peer still blocked on them is not cut off.
func teardown(ctx context.Context, s *mailbox.Session, runErr error, log *zap.Logger) error {
	full := runErr == nil || errors.Is(runErr, mailbox.ErrRecordTooLong) || ctx.Err() != nil
	var err error
	if full {
		err = s.Destroy()
	} else {
		err = s.Close()
	}
	if err != nil {
		log.Warn("teardown failed", zap.Bool("unlink", full), zap.Error(err))
	}
	return err
}
