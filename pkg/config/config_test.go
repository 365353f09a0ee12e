package config_test

import (
	"testing"

	"github.com/jsonexporter/json-exporter/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const elasticsearchExporterYAML = `
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
      - path: number_of_nodes
      - path: status
        name: status
        labels:
          - name: color
            value: green
        modifiers:
          - name: eq
            args:
              token: green
  - id: thread_pool
    url: /_nodes/stats
    metrics:
      - path: thread_pool.*
        name: ''
        labels:
          - name: type
            value: $1
        metrics:
          - path: '*'
            name: ${0}_count
`

func TestLoad_ElasticsearchExporterConfig(t *testing.T) {
	cfg, err := config.Load([]byte(elasticsearchExporterYAML))
	require.NoError(t, err)

	assert.Equal(t, "elasticsearch", cfg.Namespace)
	require.Len(t, cfg.GlobalLabels, 1)
	assert.Equal(t, "/", cfg.GlobalLabels[0].URL)
	require.Len(t, cfg.Endpoints, 2)
	assert.Equal(t, "health", cfg.Endpoints[0].ID)
	assert.Equal(t, "number_of_nodes", cfg.Endpoints[0].Metrics[0].Path)
}

func TestLoad_BareStringShorthand(t *testing.T) {
	cfg, err := config.Load([]byte(`
namespace: x
endpoints:
  - url: /stats
    metrics:
      - docs.count
      - query_time_in_millis
`))
	require.NoError(t, err)
	require.Len(t, cfg.Endpoints[0].Metrics, 2)
	assert.Equal(t, "docs.count", cfg.Endpoints[0].Metrics[0].Path)
	assert.Equal(t, "query_time_in_millis", cfg.Endpoints[0].Metrics[1].Path)
}

func TestLoad_RequiresNamespace(t *testing.T) {
	_, err := config.Load([]byte(`
endpoints:
  - url: /x
    metrics: [foo]
`))
	require.Error(t, err)
}

func TestLoad_RequiresEndpoints(t *testing.T) {
	_, err := config.Load([]byte(`
namespace: x
endpoints: []
`))
	require.Error(t, err)
}

func TestLoad_NameNilVsExplicitlyEmpty(t *testing.T) {
	cfg, err := config.Load([]byte(`
namespace: x
endpoints:
  - url: /a
    metrics:
      - path: foo
      - path: bar
        name: ''
`))
	require.NoError(t, err)
	ms := cfg.Endpoints[0].Metrics
	assert.Nil(t, ms[0].Name)
	require.NotNil(t, ms[1].Name)
	assert.Equal(t, "", *ms[1].Name)
}

func TestLoad_YAMLAnchors(t *testing.T) {
	cfg, err := config.Load([]byte(`
namespace: x
endpoints:
  - url: /a
    metrics: &shared
      - path: foo
      - path: bar
  - url: /b
    metrics: *shared
`))
	require.NoError(t, err)
	require.Len(t, cfg.Endpoints, 2)
	assert.Equal(t, cfg.Endpoints[0].Metrics, cfg.Endpoints[1].Metrics)
}
