// Package selfmetrics exposes the exporter's own health as Prometheus
// metrics: whether each upstream endpoint answered the last scrape, how
// long its fetch took, and how many samples were dropped while extracting
// it. These are process-lifetime metrics, distinct from the per-scrape
// samples produced by pkg/extract.
package selfmetrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metricDefinition struct {
	Name string
	Help string
	Type string
}

// Metrics holds every self-metric the exporter registers once at startup.
type Metrics struct {
	up             *prometheus.GaugeVec
	fetchDuration  *prometheus.HistogramVec
	samplesDropped *prometheus.CounterVec
	definitions    []metricDefinition
}

// New registers the exporter's self-metrics against reg and returns the
// handle used to update them during scrapes.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}
	factory := promauto.With(reg)

	m.up = m.registerGaugeVec(factory, prometheus.GaugeOpts{
		Name: "json_exporter_endpoint_up",
		Help: "Whether the most recent fetch of an endpoint succeeded (1) or failed (0).",
	}, []string{"endpoint"})

	m.fetchDuration = m.registerHistogramVec(factory, prometheus.HistogramOpts{
		Name:    "json_exporter_fetch_duration_seconds",
		Help:    "Duration of upstream endpoint fetches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	m.samplesDropped = m.registerCounterVec(factory, prometheus.CounterOpts{
		Name: "json_exporter_samples_dropped_total",
		Help: "Samples dropped during extraction due to non-fatal errors (missing fields, non-numeric leaves, modifier mismatches).",
	}, []string{"endpoint"})

	return m
}

func (m *Metrics) registerGaugeVec(factory promauto.Factory, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	m.definitions = append(m.definitions, metricDefinition{Name: opts.Name, Help: opts.Help, Type: "gauge"})
	return factory.NewGaugeVec(opts, labels)
}

func (m *Metrics) registerHistogramVec(factory promauto.Factory, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	m.definitions = append(m.definitions, metricDefinition{Name: opts.Name, Help: opts.Help, Type: "histogram"})
	return factory.NewHistogramVec(opts, labels)
}

func (m *Metrics) registerCounterVec(factory promauto.Factory, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	m.definitions = append(m.definitions, metricDefinition{Name: opts.Name, Help: opts.Help, Type: "counter"})
	return factory.NewCounterVec(opts, labels)
}

// SetUp records whether endpoint's last fetch succeeded.
func (m *Metrics) SetUp(endpoint string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	m.up.WithLabelValues(endpoint).Set(v)
}

// ObserveFetchDuration records how long a fetch of endpoint took.
func (m *Metrics) ObserveFetchDuration(endpoint string, d time.Duration) {
	m.fetchDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncSamplesDropped increments the dropped-sample counter for endpoint.
func (m *Metrics) IncSamplesDropped(endpoint string) {
	m.samplesDropped.WithLabelValues(endpoint).Inc()
}

// Documentation renders a human-readable listing of every registered
// self-metric.
func (m *Metrics) Documentation() string {
	doc := ""
	for _, d := range m.definitions {
		doc += fmt.Sprintf("### %s\n| **Type** | %s |\n| **Description** | %s |\n\n", d.Name, d.Type, d.Help)
	}
	return doc
}
