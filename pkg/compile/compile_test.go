package compile_test

import (
	"testing"

	"github.com/jsonexporter/json-exporter/pkg/compile"
	"github.com/jsonexporter/json-exporter/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Load([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestCompile_DerivesNameFromLastPathSegmentWithCanonicalSuffix(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: /a
    metrics:
      - path: nodes.query_time_in_millis
`)
	cc, err := compile.Compile(cfg)
	require.NoError(t, err)
	leaf := cc.Endpoints[0].Roots[0]
	name, err := leaf.NameExpr.Evaluate(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "query_time_millis", name)
}

func TestCompile_WildcardTerminalPathWithoutNameIsFatal(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: /a
    metrics:
      - path: thread_pool.*
`)
	_, err := compile.Compile(cfg)
	require.Error(t, err)
}

func TestCompile_TypeInheritsFromAncestor(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: /a
    metrics:
      - path: thread_pool
        type: counter
        metrics:
          - path: search
`)
	cc, err := compile.Compile(cfg)
	require.NoError(t, err)
	child := cc.Endpoints[0].Roots[0].Children[0]
	assert.Equal(t, config.MetricTypeCounter, child.Type)
}

func TestCompile_ModifiersFlattenParentThenLocal(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: /a
    metrics:
      - path: a
        modifiers:
          - name: mul
            args: {factor: 2.0}
        metrics:
          - path: b
            modifiers:
              - name: mul
                args: {factor: 3.0}
`)
	cc, err := compile.Compile(cfg)
	require.NoError(t, err)
	leaf := cc.Endpoints[0].Roots[0].Children[0]
	require.Len(t, leaf.Modifiers, 2)
	v, err := leaf.Modifiers.Run(1.0)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)
}

func TestCompile_URLPartsPathSubstitution(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: http://localhost${paths.suffix}/stats
    url_parts:
      paths:
        suffix: /_nodes
    metrics:
      - path: count
`)
	cc, err := compile.Compile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/_nodes/stats", cc.Endpoints[0].URL)
}

func TestCompile_URLPartsUndefinedPathKeyIsFatal(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: http://localhost${paths.missing}/stats
    metrics:
      - path: count
`)
	_, err := compile.Compile(cfg)
	require.Error(t, err)
}

func TestCompile_URLPartsQueryParamsAppended(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: http://localhost/stats
    url_parts:
      params:
        level:
          name: level
          value: shards
    metrics:
      - path: count
`)
	cc, err := compile.Compile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/stats?level=shards", cc.Endpoints[0].URL)
}

func TestCompile_InvalidTypeIsFatal(t *testing.T) {
	cfg := mustLoad(t, `
namespace: x
endpoints:
  - url: /a
    metrics:
      - path: a
        type: histogram
`)
	_, err := compile.Compile(cfg)
	require.Error(t, err)
}
