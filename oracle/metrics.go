package oracle

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks remote read traffic per value kind.
type Metrics struct {
	readsTotal   *prometheus.CounterVec
	readFailures *prometheus.CounterVec
}

// NewMetrics builds and registers the oracle's collectors. A nil
// registerer yields working but unregistered collectors, which keeps
// tests quiet.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giwadex",
			Subsystem: "oracle",
			Name:      "reads_total",
			Help:      "Remote contract reads attempted, by value kind.",
		}, []string{"kind"}),
		readFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giwadex",
			Subsystem: "oracle",
			Name:      "read_failures_total",
			Help:      "Remote contract reads that failed, by value kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.readsTotal, m.readFailures)
	}
	return m
}
