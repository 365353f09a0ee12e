// Package globallabels resolves the top-level global_labels entries of a
// configuration: each is a mini-endpoint whose JSON response is consulted
// only for label values, never to produce samples of its own.
package globallabels

import (
	"context"
	"sync"

	"github.com/jsonexporter/json-exporter/pkg/compile"
	"github.com/jsonexporter/json-exporter/pkg/extract"
	"github.com/jsonexporter/json-exporter/pkg/httpfetch"
	"github.com/sirupsen/logrus"
)

// Resolve fetches every source concurrently and merges the resulting label
// sets into one dictionary; later sources (by declaration order) override
// earlier ones on a name clash. A source that fails to fetch or decode
// contributes no labels and is logged at warn; it never aborts the scrape.
func Resolve(ctx context.Context, client *httpfetch.Client, sources []compile.GlobalLabel) []extract.Label {
	results := make([][]extract.Label, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src compile.GlobalLabel) {
			defer wg.Done()
			doc, err := client.GetJSON(ctx, src.URL)
			if err != nil {
				logrus.WithError(err).WithField("url", src.URL).Warn("globallabels: fetch failed, skipping")
				return
			}
			var labels []extract.Label
			for _, l := range src.Labels {
				v, err := l.Value.Evaluate(doc, nil)
				if err != nil {
					continue
				}
				labels = append(labels, extract.Label{Name: l.Name, Value: v})
			}
			results[i] = labels
		}(i, src)
	}
	wg.Wait()

	merged := map[string]string{}
	var order []string
	for _, labels := range results {
		for _, l := range labels {
			if _, seen := merged[l.Name]; !seen {
				order = append(order, l.Name)
			}
			merged[l.Name] = l.Value
		}
	}

	out := make([]extract.Label, 0, len(order))
	for _, name := range order {
		out = append(out, extract.Label{Name: name, Value: merged[name]})
	}
	return out
}
