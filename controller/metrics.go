package controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	submissions   *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	failures      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giwadex",
			Subsystem: "controller",
			Name:      "submissions_total",
			Help:      "Transactions submitted, by kind.",
		}, []string{"kind"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giwadex",
			Subsystem: "controller",
			Name:      "confirmations_total",
			Help:      "Transactions confirmed, by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giwadex",
			Subsystem: "controller",
			Name:      "failures_total",
			Help:      "Operations that ended in failure, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.submissions, m.confirmations, m.failures)
	}
	return m
}
