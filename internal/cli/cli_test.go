//go:build linux

package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richinsley/mailbox"
	"github.com/richinsley/mailbox/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func newSession(t *testing.T) (string, mailbox.Names) {
	t.Helper()
	session := "cli-" + uuid.NewString()[:8]
	names, err := mailbox.SessionNames(session)
	require.NoError(t, err)
	t.Cleanup(func() { mailbox.Remove(names) })
	return session, names
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(ctx context.Context, cmd *cobra.Command, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func assertGone(t *testing.T, names mailbox.Names) {
	t.Helper()
	for _, st := range mailbox.Inspect(names) {
		assert.NoError(t, st.Err, st.Name)
		assert.False(t, st.Exists, "%s %s still exists", st.Kind, st.Name)
	}
}

func TestProducerConsumerRun(t *testing.T) {
	for _, transport := range []string{"1", "2"} {
		t.Run("transport "+transport, func(t *testing.T) {
			session, names := newSession(t)
			var lines []string
			for i := 0; i < 25; i++ {
				lines = append(lines, fmt.Sprintf("line %d", i))
			}
			input := writeInput(t, strings.Join(lines, "\n")+"\n")
			common := []string{"--session", session, "--timeout", "10s", "--log-level", "error"}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var producerOut, consumerOut string
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				consumerOut, err = execute(gctx, NewConsumerCommand(), append([]string{transport}, common...)...)
				return err
			})
			g.Go(func() error {
				var err error
				producerOut, err = execute(gctx, NewProducerCommand(), append([]string{transport, input}, common...)...)
				return err
			})
			require.NoError(t, g.Wait())

			var want strings.Builder
			for _, l := range lines {
				fmt.Fprintf(&want, "Received message: %s\n", l)
			}
			assert.Equal(t, want.String(), consumerOut)
			assert.True(t, strings.HasPrefix(producerOut, "Total time taken in sending msg: "), producerOut)
			assert.True(t, strings.HasSuffix(producerOut, " seconds\n"), producerOut)
			assertGone(t, names)
		})
	}
}

func TestProducerEmptyInput(t *testing.T) {
	session, names := newSession(t)
	input := writeInput(t, "")
	common := []string{"--session", session, "--timeout", "10s", "--log-level", "error", "--codec", "envelope"}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var consumerOut string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := execute(gctx, NewProducerCommand(), append([]string{"2", input}, common...)...)
		return err
	})
	g.Go(func() error {
		var err error
		consumerOut, err = execute(gctx, NewConsumerCommand(), append([]string{"2"}, common...)...)
		return err
	})
	require.NoError(t, g.Wait())

	assert.Empty(t, consumerOut)
	assertGone(t, names)
}

func TestProducerArgumentErrors(t *testing.T) {
	session, names := newSession(t)
	input := writeInput(t, "hello\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"missing input", []string{"1"}},
		{"extra argument", []string{"1", input, "more"}},
		{"unknown transport", []string{"3", input}},
		{"missing file", []string{"1", filepath.Join(t.TempDir(), "absent.txt")}},
		{"bad codec", []string{"1", input, "--codec", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--session", session)
			_, err := execute(context.Background(), NewProducerCommand(), args...)
			assert.Error(t, err)
			assertGone(t, names)
		})
	}
}

func TestProducerUnknownTransport(t *testing.T) {
	_, err := execute(context.Background(), NewProducerCommand(), "7", "input.txt")
	assert.ErrorIs(t, err, mailbox.ErrUnknownTransport)
}

func TestConsumerArgumentErrors(t *testing.T) {
	_, err := execute(context.Background(), NewConsumerCommand())
	assert.Error(t, err)

	_, err = execute(context.Background(), NewConsumerCommand(), "shm-please")
	assert.ErrorIs(t, err, mailbox.ErrUnknownTransport)
}

func TestConsumerTimeoutLeavesNames(t *testing.T) {
	session, names := newSession(t)

	_, err := execute(context.Background(), NewConsumerCommand(),
		"1", "--session", session, "--timeout", "50ms", "--log-level", "error")
	require.ErrorIs(t, err, mailbox.ErrAcquireTimeout)

	// a failed run closes its handles but keeps the names for the peer
	present := 0
	for _, st := range mailbox.Inspect(names) {
		if st.Exists {
			present++
		}
	}
	assert.Equal(t, 3, present)
}

// statusOf returns the STATE column of the status row for name.
func statusOf(t *testing.T, out, name string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[1] == name {
			return fields[2]
		}
	}
	t.Fatalf("no status row for %s in:\n%s", name, out)
	return ""
}

func TestCtlStatusAndClean(t *testing.T) {
	session, names := newSession(t)
	s, err := mailbox.OpenSession(mailbox.Options{
		Transport: mailbox.TransportMapped,
		Role:      mailbox.RoleProducer,
		Names:     names,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out, err := execute(context.Background(), NewCtlCommand(), "status", "--session", session)
	require.NoError(t, err)
	assert.Equal(t, "present", statusOf(t, out, names.Region))
	assert.Equal(t, "present", statusOf(t, out, names.Sender))
	assert.Equal(t, "absent", statusOf(t, out, names.Queue))

	out, err = execute(context.Background(), NewCtlCommand(), "clean", "--session", session)
	require.NoError(t, err)
	assert.Contains(t, out, "removed semaphore "+names.Sender)
	assert.Contains(t, out, "removed region "+names.Region)
	assertGone(t, names)

	out, err = execute(context.Background(), NewCtlCommand(), "clean", "--session", session)
	require.NoError(t, err)
	assert.Equal(t, "nothing to remove\n", out)
}

func TestCtlRejectsBadSession(t *testing.T) {
	_, err := execute(context.Background(), NewCtlCommand(), "status", "--session", "../etc")
	assert.ErrorIs(t, err, mailbox.ErrInvalidName)
}

func TestNewLoggerFallsBackToNop(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "debug"
	assert.True(t, newLogger(cfg).Core().Enabled(zapcore.DebugLevel))

	cfg.Log.Level = "loud"
	log := newLogger(cfg)
	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}
