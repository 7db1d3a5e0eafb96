// Package metrics collects the prometheus vectors every layer of the
// proxy feeds, mirroring the teacher's flat var-block-plus-init()
// registration (internal/metrics/metrics.go in the h3ws proxy).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relaymux_active_sessions",
		Help: "Number of spliced client sessions currently open",
	})
	Accepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaymux_accepted_total",
		Help: "Accepted inbound connections",
	})
	Rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymux_rejected_total",
		Help: "Rejected inbound connections by reason",
	}, []string{"reason"})
	Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymux_errors_total",
		Help: "Protocol/IO errors by layer breadcrumb",
	}, []string{"op"})
	Bytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymux_bytes_total",
		Help: "Bytes spliced by direction",
	}, []string{"dir"})
	Dispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymux_dispatches_total",
		Help: "Outbound dispatch outcomes by rule verdict",
	}, []string{"rule"})
	Retries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymux_connect_retries_total",
		Help: "Outbound connect attempts by outbox name and outcome",
	}, []string{"outbox", "outcome"})
	OutboxWeight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relaymux_outbox_weight",
		Help: "Current sampling weight of each forward outbox",
	}, []string{"outbox"})
	OutboxDelaySeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relaymux_outbox_delay_seconds",
		Help: "Last measured health-probe delay, -1 when unknown",
	}, []string{"outbox"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions, Accepted, Rejected, Errors,
		Bytes, Dispatches, Retries, OutboxWeight, OutboxDelaySeconds,
	)
}
