package metrics

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"dispenser-status-backend/internal/machine"
)

var allModes = []machine.Mode{machine.Closed, machine.Open, machine.Denied}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions     *prom.CounterVec
	mode            *prom.GaugeVec
	invalidRequests *prom.CounterVec

	mu      sync.Mutex
	lastSeq uint64
}

// NewPrometheusRecorder constructs and registers the dispenser metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dispenser",
			Name:      "transitions_total",
			Help:      "State entries by previous mode, new mode and cause",
		}, []string{"from", "to", "cause"}),
		mode: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "dispenser",
			Name:      "mode",
			Help:      "1 for the mode the dispenser is currently in, 0 otherwise",
		}, []string{"mode"}),
		invalidRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dispenser",
			Name:      "invalid_requests_total",
			Help:      "Rejected state change requests by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(pr.transitions, pr.mode, pr.invalidRequests)
	pr.setMode(machine.Closed)
	return pr
}

func (p *PrometheusRecorder) ObserveTransition(t machine.Transition) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(t.From.String(), t.To.String(), string(t.Cause)).Inc()

	// Observers can be called out of order; only the newest entry drives the gauge.
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Seq < p.lastSeq {
		return
	}
	p.lastSeq = t.Seq
	p.setMode(t.Snapshot.Mode)
}

func (p *PrometheusRecorder) IncInvalidRequest(reason string) {
	if p == nil || p.invalidRequests == nil {
		return
	}
	p.invalidRequests.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) setMode(current machine.Mode) {
	for _, m := range allModes {
		v := 0.0
		if m == current {
			v = 1
		}
		p.mode.WithLabelValues(m.String()).Set(v)
	}
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
