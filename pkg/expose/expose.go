// Package expose turns a flat sample stream into the Prometheus text
// exposition format: samples are grouped into families by metric name,
// preserving the order in which each family was first seen, with every
// family carrying a single, type-consistent `# TYPE` header.
package expose

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
)

// Sample is the minimal shape expose needs; pkg/extract.Sample and the
// scheduler's synthesized self-samples both satisfy it via conversion.
type Sample struct {
	Name   string
	Type   string // "gauge" or "counter"
	Labels []Label
	Value  float64
}

// Label is a resolved (name, value) pair; Write sorts a sample's labels by
// name, so callers may pass them in any order.
type Label struct {
	Name  string
	Value string
}

// Write serializes samples as Prometheus text format to w, grouping by
// metric name in first-seen order. A sample whose type conflicts with its
// family's established type is dropped and logged at warn, per the sink's
// type-consistency contract; every other sample is always emitted.
func Write(w io.Writer, samples []Sample) error {
	var order []string
	families := map[string]*dto.MetricFamily{}

	for _, s := range samples {
		mf, ok := families[s.Name]
		if !ok {
			mf = &dto.MetricFamily{
				Name: strPtr(s.Name),
				Type: metricType(s.Type),
			}
			families[s.Name] = mf
			order = append(order, s.Name)
		}
		if mf.GetType().String() != metricType(s.Type).String() {
			logrus.WithFields(logrus.Fields{
				"metric":      s.Name,
				"family_type": mf.GetType().String(),
				"sample_type": s.Type,
			}).Warn("expose: dropping sample with type inconsistent with its family")
			continue
		}
		mf.Metric = append(mf.Metric, toDTOMetric(s))
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, name := range order {
		if err := enc.Encode(families[name]); err != nil {
			return fmt.Errorf("expose: encoding family %q: %w", name, err)
		}
	}
	return nil
}

func metricType(t string) *dto.MetricType {
	switch t {
	case "counter":
		return dto.MetricType_COUNTER.Enum()
	default:
		return dto.MetricType_GAUGE.Enum()
	}
}

func toDTOMetric(s Sample) *dto.Metric {
	labels := make([]Label, len(s.Labels))
	copy(labels, s.Labels)
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

	m := &dto.Metric{}
	for _, l := range labels {
		m.Label = append(m.Label, &dto.LabelPair{Name: strPtr(l.Name), Value: strPtr(l.Value)})
	}
	v := s.Value
	if s.Type == "counter" {
		m.Counter = &dto.Counter{Value: &v}
	} else {
		m.Gauge = &dto.Gauge{Value: &v}
	}
	return m
}

func strPtr(s string) *string { return &s }
