// Package metrics provides Prometheus-based metrics for scanparser runs.
// Collectors live on a private registry; a run can be exported in the
// node_exporter textfile format after it finishes.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace for all scanparser metrics
	namespace = "scanparser"

	// Subsystems
	subsystemPipeline = "pipeline"
	subsystemIngest   = "ingest"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Pipeline metrics
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	lastRun       prometheus.Gauge

	// Ingest metrics
	hostsTotal    prometheus.Counter
	portsTotal    prometheus.Counter
	skippedTotal  *prometheus.CounterVec
	servicesTotal *prometheus.CounterVec

	mu       sync.Mutex
	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a metrics instance with all collectors
// registered on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{registry: prometheus.NewRegistry()}

	pm.initPipelineMetrics()
	pm.initIngestMetrics()
	pm.registerMetrics()

	return pm
}

// initPipelineMetrics initializes run-level metrics
func (pm *PrometheusMetrics) initPipelineMetrics() {
	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPipeline,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	pm.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemPipeline,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"stage"},
	)

	pm.lastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemPipeline,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run",
		},
	)
}

// initIngestMetrics initializes record-level metrics
func (pm *PrometheusMetrics) initIngestMetrics() {
	pm.hostsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "hosts_total",
			Help:      "Total number of host rows written",
		},
	)

	pm.portsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "ports_total",
			Help:      "Total number of port rows written",
		},
	)

	pm.skippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "skipped_total",
			Help:      "Total number of malformed records skipped by kind",
		},
		[]string{"kind"},
	)

	pm.servicesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "service_resolutions_total",
			Help:      "Total number of table lookups by outcome",
		},
		[]string{"outcome"},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(pm.runsTotal)
	pm.registry.MustRegister(pm.stageDuration)
	pm.registry.MustRegister(pm.lastRun)

	pm.registry.MustRegister(pm.hostsTotal)
	pm.registry.MustRegister(pm.portsTotal)
	pm.registry.MustRegister(pm.skippedTotal)
	pm.registry.MustRegister(pm.servicesTotal)
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// IncrementRuns counts a finished run. A nil receiver is a no-op, as
// are all recording methods below.
func (pm *PrometheusMetrics) IncrementRuns(status string) {
	if pm == nil {
		return
	}
	pm.runsTotal.WithLabelValues(status).Inc()
	pm.lastRun.SetToCurrentTime()
}

// RecordStageDuration records how long a pipeline stage took
func (pm *PrometheusMetrics) RecordStageDuration(stage string, duration time.Duration) {
	if pm == nil {
		return
	}
	pm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordIngest adds the counts of one ingestion.
func (pm *PrometheusMetrics) RecordIngest(hosts, ports, skippedHosts, skippedPorts, resolved, unknown int) {
	if pm == nil {
		return
	}
	pm.hostsTotal.Add(float64(hosts))
	pm.portsTotal.Add(float64(ports))
	pm.skippedTotal.WithLabelValues("host").Add(float64(skippedHosts))
	pm.skippedTotal.WithLabelValues("port").Add(float64(skippedPorts))
	pm.servicesTotal.WithLabelValues("resolved").Add(float64(resolved))
	pm.servicesTotal.WithLabelValues("unknown").Add(float64(unknown))
}

// WriteTextfile writes the registry to path in the text exposition
// format. The file is replaced atomically.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return prometheus.WriteToTextfile(path, pm.registry)
}
