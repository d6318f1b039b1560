package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Redirect outcomes as reported on flexqr_redirects_total.
const (
	OutcomeRedirected   = "redirected"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"
	OutcomeLimitReached = "limit_reached"
	OutcomeError        = "error"
)

// Metrics holds the service counters. A nil *Metrics is a no-op.
type Metrics struct {
	redirects  *prometheus.CounterVec
	scanEvents *prometheus.CounterVec
}

// NewMetrics registers the service counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flexqr_redirects_total",
			Help: "Redirect requests by outcome.",
		}, []string{"outcome"}),
		scanEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flexqr_scan_events_total",
			Help: "Scan log writes by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.redirects, m.scanEvents)
	return m
}

// ObserveRedirect counts one redirect request.
func (m *Metrics) ObserveRedirect(outcome string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(outcome).Inc()
}

// ObserveScanEvent counts one scan log write.
func (m *Metrics) ObserveScanEvent(result string) {
	if m == nil {
		return
	}
	m.scanEvents.WithLabelValues(result).Inc()
}
