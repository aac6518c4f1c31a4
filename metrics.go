package mailbox

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the handshake of one process. Every method is safe on
// a nil *Metrics, which records nothing.
//
// In-flight is sends minus receives as seen by this Metrics value; it is only
// meaningful when producer and consumer share one, as they do in tests.
type Metrics struct {
	registry *prometheus.Registry

	RecordsSent     prometheus.Counter
	RecordsReceived prometheus.Counter
	InFlight        prometheus.Gauge
	SemaphoreWait   *prometheus.HistogramVec

	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewMetrics creates the collectors on a private registry, labelled with the
// transport in use.
func NewMetrics(transport Transport) *Metrics {
	labels := prometheus.Labels{"transport": transport.String()}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mailbox_records_sent_total",
			Help:        "Records handed to the transport, terminator included",
			ConstLabels: labels,
		}),
		RecordsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mailbox_records_received_total",
			Help:        "Records taken from the transport, terminator included",
			ConstLabels: labels,
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mailbox_records_in_flight",
			Help:        "Records sent but not yet received",
			ConstLabels: labels,
		}),
		SemaphoreWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "mailbox_semaphore_wait_seconds",
			Help:        "Time spent blocked acquiring a permit",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"semaphore"}),
	}
	m.registry.MustRegister(m.RecordsSent, m.RecordsReceived, m.InFlight, m.SemaphoreWait)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) sent() {
	if m == nil {
		return
	}
	m.RecordsSent.Inc()
	m.InFlight.Inc()
	n := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (m *Metrics) received() {
	if m == nil {
		return
	}
	m.RecordsReceived.Inc()
	m.InFlight.Dec()
	m.inFlight.Add(-1)
}

func (m *Metrics) waited(semaphore string, d time.Duration) {
	if m == nil {
		return
	}
	m.SemaphoreWait.WithLabelValues(semaphore).Observe(d.Seconds())
}

// PeakInFlight returns the largest in-flight value observed.
func (m *Metrics) PeakInFlight() int64 {
	if m == nil {
		return 0
	}
	return m.peak.Load()
}
