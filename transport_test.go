package mailbox

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransport(t *testing.T) {
	for in, want := range map[string]Transport{
		"1":      TransportQueued,
		" mq ":   TransportQueued,
		"Queued": TransportQueued,
		"2":      TransportMapped,
		"shm":    TransportMapped,
	} {
		got, err := ParseTransport(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid())
	}

	for _, in := range []string{"", "0", "3", "pipe"} {
		_, err := ParseTransport(in)
		assert.ErrorIs(t, err, ErrUnknownTransport, in)
	}
	assert.False(t, Transport(0).Valid())
	assert.Equal(t, "transport(9)", Transport(9).String())
}

func TestRoleAndAccessStrings(t *testing.T) {
	assert.Equal(t, "producer", RoleProducer.String())
	assert.Equal(t, "consumer", RoleConsumer.String())
	assert.Equal(t, "read-only", ReadOnly.String())
	assert.Equal(t, "write-only", WriteOnly.String())
	assert.Equal(t, "read-write", ReadWrite.String())
}

func TestOpError(t *testing.T) {
	assert.NoError(t, opError("mq_open", "/q", nil))

	err := opError("mq_open", "/q", assert.AnError)
	assert.Equal(t, "mq_open /q: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "sem_wait: "+assert.AnError.Error(), opError("sem_wait", "", assert.AnError).Error())

	wrapped := fmt.Errorf("open session: %w", err)
	var opErr *OpError
	require.ErrorAs(t, wrapped, &opErr)
	assert.Equal(t, "mq_open", opErr.Op)
	assert.Equal(t, "/q", opErr.Name)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.sent()
		m.received()
		m.waited("sender", 0)
	})
	assert.Nil(t, m.Registry())
	assert.Zero(t, m.PeakInFlight())
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics(TransportMapped)
	m.sent()
	m.received()
	m.sent()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "mailbox_records_sent_total")
	assert.Contains(t, names, "mailbox_records_in_flight")
	assert.Equal(t, int64(1), m.PeakInFlight())
}
