// Package metrics exposes job and device counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newtron-network/fleetscan/pkg/model"
)

const namespace = "fleetscan"

// Metrics holds the collectors. Each instance owns its registry so tests
// can create independent sets.
type Metrics struct {
	registry *prometheus.Registry

	JobsStarted   *prometheus.CounterVec
	JobsFinished  *prometheus.CounterVec
	JobsRejected  prometheus.Counter
	DeviceResults *prometheus.CounterVec
	JobProgress   prometheus.Gauge
	Hashrate      *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Jobs accepted, by kind.",
		}, []string{"kind"}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Jobs settled, by kind and outcome (completed, cancelled).",
		}, []string{"kind", "outcome"}),
		JobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_rejected_total",
			Help:      "Submissions rejected because a job was already running.",
		}),
		DeviceResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_results_total",
			Help:      "Per-device result events, by job kind and health status.",
		}, []string{"kind", "status"}),
		JobProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_progress_ratio",
			Help:      "Completion ratio of the current job.",
		}),
		Hashrate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_hashrate_terahashes",
			Help:      "Last observed hashrate per device in TH/s.",
		}, []string{"address"}),
	}
	m.registry.MustRegister(m.JobsStarted, m.JobsFinished, m.JobsRejected,
		m.DeviceResults, m.JobProgress, m.Hashrate)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Emitter returns an events emitter that records results of a job kind.
func (m *Metrics) Emitter(kind string) *Emitter {
	return &Emitter{m: m, kind: kind}
}

// Emitter counts result events and tracks job progress.
type Emitter struct {
	m    *Metrics
	kind string
}

func (e *Emitter) Miner(ev model.MinerEvent) {
	obs := ev.Observation
	e.m.DeviceResults.WithLabelValues(e.kind, string(obs.Status)).Inc()
	if obs.Hashrate != nil {
		e.m.Hashrate.WithLabelValues(obs.IP).Set(*obs.Hashrate)
	}
}

func (e *Emitter) Progress(p model.Progress) {
	e.m.JobProgress.Set(p.Ratio)
}
