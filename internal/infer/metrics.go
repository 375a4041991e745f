package infer

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	inferenceSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "success_total",
			Help:      "Successfully completed inference requests",
		},
		[]string{"model", "version", "gpu"},
	)

	inferenceFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "failure_total",
			Help:      "Failed inference requests",
		},
		[]string{"model", "version", "gpu"},
	)

	inferenceCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "count_total",
			Help:      "Inferences performed (one per batch item)",
		},
		[]string{"model", "version", "gpu"},
	)

	inferenceExecCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "executions_total",
			Help:      "Model executions performed (one per batch)",
		},
		[]string{"model", "version", "gpu"},
	)

	inferenceRequestDuration = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "request_duration_us_total",
			Help:      "Cumulative end-to-end request duration in microseconds",
		},
		[]string{"model", "version", "gpu"},
	)

	inferenceQueueDuration = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "queue_duration_us_total",
			Help:      "Cumulative request queue duration in microseconds",
		},
		[]string{"model", "version", "gpu"},
	)

	inferenceComputeDuration = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "compute_duration_us_total",
			Help:      "Cumulative compute duration in microseconds",
		},
		[]string{"model", "version", "gpu"},
	)

	inferenceLoadRatio = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "inference",
			Name:      "load_ratio",
			Help:      "Ratio of request batch size to the model's max batch size",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"model", "version", "gpu"},
	)
)

func init() {
	prometheus.MustRegister(
		inferenceSuccess, inferenceFailure, inferenceCount, inferenceExecCount,
		inferenceRequestDuration, inferenceQueueDuration, inferenceComputeDuration,
		inferenceLoadRatio,
	)
}

// counterCache lazily resolves one metric kind's per-device series for
// a servable's lifetime. The mutex makes concurrent first access for
// the same device key resolve to exactly one series.
type counterCache struct {
	mu     sync.Mutex
	series map[int]prometheus.Counter
}

func (c *counterCache) get(vec *prometheus.CounterVec, s *Servable, device int) prometheus.Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.series[device]; ok {
		return m
	}
	if c.series == nil {
		c.series = make(map[int]prometheus.Counter)
	}
	m := vec.WithLabelValues(metricLabels(s, device)...)
	c.series[device] = m
	return m
}

// observerCache is counterCache for histogram series.
type observerCache struct {
	mu     sync.Mutex
	series map[int]prometheus.Observer
}

func (c *observerCache) get(vec *prometheus.HistogramVec, s *Servable, device int) prometheus.Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.series[device]; ok {
		return m
	}
	if c.series == nil {
		c.series = make(map[int]prometheus.Observer)
	}
	m := vec.WithLabelValues(metricLabels(s, device)...)
	c.series[device] = m
	return m
}

// metricLabels builds the {model, version, gpu} label values. Device
// -1 is the aggregate, non-specialized series.
func metricLabels(s *Servable, device int) []string {
	gpu := "all"
	if device >= 0 {
		gpu = strconv.Itoa(device)
	}
	return []string{s.Name(), strconv.FormatInt(s.Version(), 10), gpu}
}

// Per-servable metric accessors, specialized for one accelerator when
// device >= 0 and aggregate when device is -1. Series are created on
// first access and cached for the servable's lifetime.

func (s *Servable) MetricInferenceSuccess(device int) prometheus.Counter {
	return s.metricSuccess.get(inferenceSuccess, s, device)
}

func (s *Servable) MetricInferenceFailure(device int) prometheus.Counter {
	return s.metricFailure.get(inferenceFailure, s, device)
}

func (s *Servable) MetricInferenceCount(device int) prometheus.Counter {
	return s.metricCount.get(inferenceCount, s, device)
}

func (s *Servable) MetricInferenceExecutionCount(device int) prometheus.Counter {
	return s.metricExecCount.get(inferenceExecCount, s, device)
}

func (s *Servable) MetricInferenceRequestDuration(device int) prometheus.Counter {
	return s.metricRequestDur.get(inferenceRequestDuration, s, device)
}

func (s *Servable) MetricInferenceQueueDuration(device int) prometheus.Counter {
	return s.metricQueueDur.get(inferenceQueueDuration, s, device)
}

func (s *Servable) MetricInferenceComputeDuration(device int) prometheus.Counter {
	return s.metricComputeDur.get(inferenceComputeDuration, s, device)
}

func (s *Servable) MetricInferenceLoadRatio(device int) prometheus.Observer {
	return s.metricLoadRatio.get(inferenceLoadRatio, s, device)
}
