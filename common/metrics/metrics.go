package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Pipeline stages timed by StageDuration
const (
	StageResolve   = "resolve"
	StageStoreGet  = "store_get"
	StageFetch     = "fetch"
	StageVerify    = "verify"
	StageTransform = "transform"
	StageStorePut  = "store_put"
)

// Metrics holds the service's Prometheus collectors on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	CacheLookups       *prometheus.CounterVec
	PipelineErrors     *prometheus.CounterVec
	StoreWriteFailures prometheus.Counter
	Coalesced          prometheus.Counter
	StageDuration      *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPResponse *prometheus.SummaryVec

	hostInfo *prometheus.GaugeVec
}

// New registers every collector under namespace on a fresh registry
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.CacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cache_lookups_total",
			Help:      "Blob store lookups by result",
		},
		[]string{"preset", "result"},
	)

	m.PipelineErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Failed requests by error kind",
		},
		[]string{"kind"},
	)

	m.StoreWriteFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "store_write_failures_total",
			Help:      "Renditions served but not persisted",
		},
	)

	m.Coalesced = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "coalesced_requests_total",
			Help:      "Requests that joined an in-flight pipeline run for the same key",
		},
	)

	m.StageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	m.HTTPRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	m.HTTPResponse = factory.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  namespace,
			Subsystem:  "http",
			Name:       "response_size_bytes",
			Help:       "HTTP response size in bytes",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"method", "route"},
	)

	m.hostInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_info",
			Help:      "Host the process runs on; value is always 1",
		},
		[]string{"hostname", "os", "arch", "go_version", "container_runtime"},
	)

	return m
}

// ObserveStage records how long a stage took since start
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordHost publishes info as the host_info gauge
func (m *Metrics) RecordHost(info *SystemInfo) {
	runtimeName := info.ContainerRuntime
	if runtimeName == "" {
		runtimeName = "none"
	}
	m.hostInfo.WithLabelValues(info.Hostname, info.OS, info.Arch, info.GoVersion, runtimeName).Set(1)
}
