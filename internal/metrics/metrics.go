// Package metrics defines the Prometheus metrics of the wallet core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "klingwallet"

// Submission paths.
const (
	PathNative    = "native"
	PathSponsored = "sponsored"
)

// Submission and reconcile outcomes.
const (
	ResultSubmitted = "submitted"
	ResultFailed    = "failed"

	OutcomeConfirmed = "confirmed"
	OutcomeReverted  = "reverted"
	OutcomePending   = "pending"
	OutcomeError     = "error"
)

// Metrics holds the wallet collectors.
type Metrics struct {
	submissions     *prometheus.CounterVec
	submitDuration  *prometheus.HistogramVec
	reconciled      *prometheus.CounterVec
	pending         *prometheus.GaugeVec
	upgrades        *prometheus.CounterVec
	storeVersion    prometheus.Gauge
	decryptFailures prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "submissions_total",
			Help:      "Transfers by submission path and result",
		}, []string{"path", "result"}),
		submitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "submit_duration_seconds",
			Help:      "Time from intent to submission",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"path"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pending",
			Name:      "reconciled_total",
			Help:      "Pending transaction checks by outcome",
		}, []string{"outcome"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pending",
			Name:      "transactions",
			Help:      "Pending transactions left after the last reconcile",
		}, []string{"network"}),
		upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "upgrades_total",
			Help:      "Collections created by store upgrades",
		}, []string{"collection"}),
		storeVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "version",
			Help:      "Current store schema version",
		}),
		decryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "decrypt_failures_total",
			Help:      "Failed wallet decryptions",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.submissions,
			m.submitDuration,
			m.reconciled,
			m.pending,
			m.upgrades,
			m.storeVersion,
			m.decryptFailures,
		)
	}
	return m
}

// Submission records one transfer attempt.
func (m *Metrics) Submission(path, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(path, result).Inc()
	if result == ResultSubmitted {
		m.submitDuration.WithLabelValues(path).Observe(elapsed.Seconds())
	}
}

// Reconciled records one pending status check.
func (m *Metrics) Reconciled(outcome string) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(outcome).Inc()
}

// SetPending sets the pending count of a network.
func (m *Metrics) SetPending(network string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(network).Set(float64(n))
}

// Upgrade records a collection creation. It matches the store upgrade hook.
func (m *Metrics) Upgrade(collection string, version uint64) {
	if m == nil {
		return
	}
	m.upgrades.WithLabelValues(collection).Inc()
	m.storeVersion.Set(float64(version))
}

// DecryptFailure records a failed wallet decryption.
func (m *Metrics) DecryptFailure() {
	if m == nil {
		return
	}
	m.decryptFailures.Inc()
}
