package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	runsStarted       prometheus.Counter
	runsFinished      *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	activeRuns        prometheus.Gauge
	nodesVisited      *prometheus.CounterVec
	nodeDuration      *prometheus.HistogramVec
	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

// NewCollector creates a Prometheus metrics collector registered on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		runsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dagoflow_runs_started_total",
				Help: "Total number of graph runs started",
			},
		),
		runsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dagoflow_runs_finished_total",
				Help: "Total number of graph runs finished, by termination reason",
			},
			[]string{"termination"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dagoflow_run_duration_seconds",
				Help:    "Graph run duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"termination"},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dagoflow_active_runs",
				Help: "Number of runs currently executing",
			},
		),
		nodesVisited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dagoflow_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"handler", "kind", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dagoflow_node_duration_seconds",
				Help:    "Handler invocation duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"handler"},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dagoflow_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dagoflow_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dagoflow_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// RecordRunStarted counts a started run
func (c *Collector) RecordRunStarted() {
	c.runsStarted.Inc()
}

// RecordRunFinished counts a finished run and observes its duration
func (c *Collector) RecordRunFinished(termination string, duration time.Duration) {
	c.runsFinished.WithLabelValues(termination).Inc()
	c.runDuration.WithLabelValues(termination).Observe(duration.Seconds())
}

// RecordNodeVisited counts a node visit and observes the handler duration
func (c *Collector) RecordNodeVisited(handler, kind, status string, duration time.Duration) {
	c.nodesVisited.WithLabelValues(handler, kind, status).Inc()
	c.nodeDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// SetActiveRuns sets the number of currently executing runs
func (c *Collector) SetActiveRuns(count int) {
	c.activeRuns.Set(float64(count))
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
