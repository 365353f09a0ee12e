package scheduler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jsonexporter/json-exporter/pkg/compile"
	"github.com/jsonexporter/json-exporter/pkg/config"
	"github.com/jsonexporter/json-exporter/pkg/expose"
	"github.com/jsonexporter/json-exporter/pkg/httpfetch"
	"github.com/jsonexporter/json-exporter/pkg/scheduler"
	"github.com/jsonexporter/json-exporter/pkg/selfmetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T, baseURL, yamlBody string) *scheduler.Scheduler {
	t.Helper()
	cfg, err := config.Load([]byte(yamlBody))
	require.NoError(t, err)
	cc, err := compile.Compile(cfg)
	require.NoError(t, err)
	client, err := httpfetch.New(nil, baseURL)
	require.NoError(t, err)
	metrics := selfmetrics.New(prometheus.NewRegistry())
	return scheduler.New(cc, client, 5*time.Second, metrics)
}

func renderText(t *testing.T, samples []expose.Sample) string {
	t.Helper()
	var buf strings.Builder
	require.NoError(t, expose.Write(&buf, samples))
	return buf.String()
}

func TestScrape_HealthScalar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number_of_nodes": 3, "cluster_name": "x"}`))
	}))
	defer srv.Close()

	s := newScheduler(t, srv.URL, `
namespace: elasticsearch
endpoints:
  - id: health
    url: /_cluster/health
    metrics:
      - path: number_of_nodes
`)
	out := renderText(t, s.Scrape(context.Background()))
	require.Contains(t, out, "elasticsearch_number_of_nodes 3")
}

func TestScrape_GlobalLabelInjection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cluster_name":"c1"}`))
	})
	mux.HandleFunc("/_cluster/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "green"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newScheduler(t, srv.URL, `
namespace: elasticsearch
global_labels:
  - url: /
    labels:
      - name: cluster
        value: ${$.cluster_name}
endpoints:
  - id: health
    url: /_cluster/health
    metrics:
      - path: status
        modifiers:
          - name: eq
            args:
              token: green
`)
	out := renderText(t, s.Scrape(context.Background()))
	require.Contains(t, out, `elasticsearch_up{cluster="c1",endpoint="health"} 1`)
	require.Contains(t, out, `elasticsearch_status{cluster="c1"} 1`)
}

func TestScrape_MissingUpstreamIsPartial(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_cluster/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number_of_nodes": 1}`))
	})
	mux.HandleFunc("/_nodes/stats", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newScheduler(t, srv.URL, `
namespace: elasticsearch
endpoints:
  - id: health
    url: /_cluster/health
    metrics:
      - path: number_of_nodes
  - id: nodes
    url: /_nodes/stats
    metrics:
      - path: count
`)
	out := renderText(t, s.Scrape(context.Background()))
	require.Contains(t, out, "elasticsearch_number_of_nodes 1")
	require.Contains(t, out, `endpoint="nodes"`)
	require.Contains(t, out, `elasticsearch_up{endpoint="nodes"} 0`)
	require.Contains(t, out, `elasticsearch_up{endpoint="health"} 1`)
}

func TestScrape_EndpointOrderIsDeclarationOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/first", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte(`{"v": 1}`))
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"v": 2}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newScheduler(t, srv.URL, `
namespace: x
endpoints:
  - id: first
    url: /first
    metrics:
      - path: v
  - id: second
    url: /second
    metrics:
      - path: v
`)
	out := renderText(t, s.Scrape(context.Background()))
	firstIdx := strings.Index(out, `endpoint="first"`)
	secondIdx := strings.Index(out, `endpoint="second"`)
	require.Less(t, firstIdx, secondIdx)
}
