package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

// PrometheusCollector implements ports.MetricsCollector on a private
// Prometheus registry. Vectors are created on first use, keyed by metric name;
// the label set seen first fixes the label names of a metric.
type PrometheusCollector struct {
	registry   *prometheus.Registry
	buckets    []float64
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	onError    func(error)
}

// CollectorOption configures a PrometheusCollector.
type CollectorOption func(*PrometheusCollector)

// WithBuckets overrides the default histogram buckets.
func WithBuckets(buckets []float64) CollectorOption {
	return func(c *PrometheusCollector) {
		if len(buckets) > 0 {
			c.buckets = buckets
		}
	}
}

// WithErrorHandler receives registration and label mismatches, which are
// otherwise dropped.
func WithErrorHandler(fn func(error)) CollectorOption {
	return func(c *PrometheusCollector) {
		c.onError = fn
	}
}

// NewPrometheusCollector creates a collector with its own registry.
func NewPrometheusCollector(opts ...CollectorOption) *PrometheusCollector {
	c := &PrometheusCollector{
		registry:   prometheus.NewRegistry(),
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry exposes the underlying registry for gathering.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// IncCounter implements ports.MetricsCollector.
func (c *PrometheusCollector) IncCounter(_ context.Context, name string, labels map[string]string) {
	c.mu.Lock()
	vec, ok := c.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: helpText(name),
		}, labelNames(labels))
		if !c.register(vec) {
			c.mu.Unlock()
			return
		}
		c.counters[name] = vec
	}
	c.mu.Unlock()

	counter, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		c.fail(fmt.Errorf("counter %s: %w", name, err))
		return
	}
	counter.Inc()
}

// SetGauge implements ports.MetricsCollector.
func (c *PrometheusCollector) SetGauge(_ context.Context, name string, value float64, labels map[string]string) {
	c.mu.Lock()
	vec, ok := c.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: helpText(name),
		}, labelNames(labels))
		if !c.register(vec) {
			c.mu.Unlock()
			return
		}
		c.gauges[name] = vec
	}
	c.mu.Unlock()

	gauge, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		c.fail(fmt.Errorf("gauge %s: %w", name, err))
		return
	}
	gauge.Set(value)
}

// ObserveHistogram implements ports.MetricsCollector.
func (c *PrometheusCollector) ObserveHistogram(_ context.Context, name string, value float64, labels map[string]string) {
	c.mu.Lock()
	vec, ok := c.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    helpText(name),
			Buckets: c.buckets,
		}, labelNames(labels))
		if !c.register(vec) {
			c.mu.Unlock()
			return
		}
		c.histograms[name] = vec
	}
	c.mu.Unlock()

	observer, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		c.fail(fmt.Errorf("histogram %s: %w", name, err))
		return
	}
	observer.Observe(value)
}

// WriteToTextfile dumps every registered metric in the text exposition format,
// suitable for the node_exporter textfile collector.
func (c *PrometheusCollector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

func (c *PrometheusCollector) register(collector prometheus.Collector) bool {
	if err := c.registry.Register(collector); err != nil {
		c.fail(err)
		return false
	}
	return true
}

func (c *PrometheusCollector) fail(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func helpText(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, "deployline_"), "_", " ")
}

var _ ports.MetricsCollector = (*PrometheusCollector)(nil)
