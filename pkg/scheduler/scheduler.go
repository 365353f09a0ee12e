// Package scheduler orchestrates one scrape: it is the only component that
// fans out concurrently, dispatching one fetch per endpoint and one per
// global label source, then assembling everything the extraction engine and
// global label resolver produced into a single ordered sample stream.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jsonexporter/json-exporter/pkg/compile"
	"github.com/jsonexporter/json-exporter/pkg/expose"
	"github.com/jsonexporter/json-exporter/pkg/extract"
	"github.com/jsonexporter/json-exporter/pkg/globallabels"
	"github.com/jsonexporter/json-exporter/pkg/httpfetch"
	"github.com/jsonexporter/json-exporter/pkg/selfmetrics"
	"github.com/sirupsen/logrus"
)

// Scheduler runs scrapes against one compiled configuration.
type Scheduler struct {
	cfg          *compile.Config
	client       *httpfetch.Client
	fetchTimeout time.Duration
	metrics      *selfmetrics.Metrics
}

// New builds a Scheduler. fetchTimeout bounds every individual endpoint and
// global-label fetch; it never bounds the scrape as a whole — that is the
// caller's own request context.
func New(cfg *compile.Config, client *httpfetch.Client, fetchTimeout time.Duration, metrics *selfmetrics.Metrics) *Scheduler {
	return &Scheduler{cfg: cfg, client: client, fetchTimeout: fetchTimeout, metrics: metrics}
}

// Scrape fetches every endpoint and global label source concurrently,
// extracts samples, decorates them with resolved global labels, and returns
// the flattened, endpoint-ordered stream ready for expose.Write.
//
// ctx governs the whole scrape: if it is cancelled (e.g. the HTTP client
// disconnected), every in-flight fetch derived from it is cancelled too.
func (s *Scheduler) Scrape(ctx context.Context) []expose.Sample {
	var globalLabels []extract.Label

	var wg sync.WaitGroup
	results := make([][]extract.Sample, len(s.cfg.Endpoints))
	ups := make([]expose.Sample, len(s.cfg.Endpoints))

	wg.Add(1)
	go func() {
		defer wg.Done()
		globalLabels = s.resolveGlobalLabels(ctx)
	}()

	for i, ep := range s.cfg.Endpoints {
		wg.Add(1)
		go func(i int, ep compile.Endpoint) {
			defer wg.Done()
			samples, up := s.scrapeEndpoint(ctx, ep)
			results[i] = samples
			ups[i] = up
		}(i, ep)
	}
	wg.Wait()

	var out []expose.Sample
	for i := range s.cfg.Endpoints {
		out = append(out, s.toExposeSample(asExtractSample(ups[i]), globalLabels))
		for _, sample := range results[i] {
			out = append(out, s.toExposeSample(sample, globalLabels))
		}
	}
	return out
}

// asExtractSample converts the scheduler's own synthetic up sample into the
// shape toExposeSample expects, so it goes through the same namespace and
// global-label decoration as every other sample.
func asExtractSample(s expose.Sample) extract.Sample {
	labels := make([]extract.Label, len(s.Labels))
	for i, l := range s.Labels {
		labels[i] = extract.Label{Name: l.Name, Value: l.Value}
	}
	return extract.Sample{Name: s.Name, Type: s.Type, Labels: labels, Value: s.Value}
}

func (s *Scheduler) resolveGlobalLabels(ctx context.Context) []extract.Label {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	return globallabels.Resolve(fetchCtx, s.client, s.cfg.GlobalLabels)
}

// scrapeEndpoint fetches and extracts one endpoint, returning its samples
// and the synthetic up{endpoint=...} sample the scheduler itself produces —
// 1 on success, 0 on any fetch or decode failure.
func (s *Scheduler) scrapeEndpoint(ctx context.Context, ep compile.Endpoint) ([]extract.Sample, expose.Sample) {
	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	doc, err := s.client.GetJSON(fetchCtx, ep.URL)
	s.metrics.ObserveFetchDuration(endpointLabel(ep), time.Since(start))
	if err != nil {
		logrus.WithError(err).WithField("endpoint", endpointLabel(ep)).Warn("scheduler: fetch failed, endpoint contributes no samples")
		s.metrics.SetUp(endpointLabel(ep), false)
		return nil, upSample(ep, 0)
	}

	samples, warnings := extract.Extract(ep.Roots, doc, nil)
	for _, w := range warnings {
		logrus.WithError(w.Err).WithFields(logrus.Fields{
			"endpoint": endpointLabel(ep),
			"path":     w.Path,
		}).Warn("scheduler: dropping sample")
		s.metrics.IncSamplesDropped(endpointLabel(ep))
	}
	s.metrics.SetUp(endpointLabel(ep), true)
	return samples, upSample(ep, 1)
}

func endpointLabel(ep compile.Endpoint) string {
	if ep.ID != "" {
		return ep.ID
	}
	return ep.URL
}

func upSample(ep compile.Endpoint, v float64) expose.Sample {
	return expose.Sample{
		Name: "up",
		Type: "gauge",
		Labels: []expose.Label{
			{Name: "endpoint", Value: endpointLabel(ep)},
		},
		Value: v,
	}
}

// toExposeSample applies the namespace prefix and merges global labels
// beneath the sample's own, which always win on a name clash.
func (s *Scheduler) toExposeSample(sample extract.Sample, globalLabels []extract.Label) expose.Sample {
	merged := make(map[string]string, len(globalLabels)+len(sample.Labels))
	for _, l := range globalLabels {
		merged[l.Name] = l.Value
	}
	for _, l := range sample.Labels {
		merged[l.Name] = l.Value
	}
	labels := make([]expose.Label, 0, len(merged))
	for name, value := range merged {
		labels = append(labels, expose.Label{Name: name, Value: value})
	}
	return expose.Sample{
		Name:   s.cfg.Namespace + "_" + sample.Name,
		Type:   sample.Type,
		Labels: labels,
		Value:  sample.Value,
	}
}
