package oracle

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusLabel = "status"
	reasonLabel = "reason"
)

type metrics struct {
	requests     prometheus.Counter
	submitted    *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	finalized    *prometheus.CounterVec
	registered   prometheus.Gauge
	handleFailed prometheus.Counter
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_handled_total",
			Help:      "Number of flight status requests handled",
		}),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_submitted_total",
			Help:      "Number of oracle responses accepted by the ledger",
		}, []string{statusLabel}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_rejected_total",
			Help:      "Number of oracle responses rejected by the ledger",
		}, []string{reasonLabel}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_finalized_total",
			Help:      "Number of flight status requests finalized by a response of this service",
		}, []string{statusLabel}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_oracles",
			Help:      "Number of oracles operated by this service",
		}),
		handleFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_aborted_total",
			Help:      "Number of requests whose fan-out was cut short by cancellation",
		}),
	}
	err := errors.Join(
		registerer.Register(m.requests),
		registerer.Register(m.submitted),
		registerer.Register(m.rejected),
		registerer.Register(m.finalized),
		registerer.Register(m.registered),
		registerer.Register(m.handleFailed),
	)
	return m, err
}
