// Package compile turns a raw config.Config into an immutable evaluation
// tree: every path and value expression is parsed once, wildcard-terminal
// paths without an explicit name are rejected, and name/type defaults are
// resolved ahead of any scrape.
package compile

import (
	"fmt"
	"strings"

	"github.com/jsonexporter/json-exporter/pkg/config"
	"github.com/jsonexporter/json-exporter/pkg/modifier"
	"github.com/jsonexporter/json-exporter/pkg/pathexpr"
)

// Config is the compiled, immutable form of a configuration document.
type Config struct {
	Namespace    string
	GlobalLabels []GlobalLabel
	Endpoints    []Endpoint
}

// GlobalLabel is a compiled config.GlobalLabels entry.
type GlobalLabel struct {
	URL    string
	Labels []Label
}

// Label is a compiled (name, value-expression) pair.
type Label struct {
	Name  string
	Value *pathexpr.ValueExpr
}

// Endpoint is a compiled config.Endpoint.
type Endpoint struct {
	ID       string
	URL      string
	URLParts config.URLParts
	Roots    []*Metric
}

// Metric is one compiled node of the extraction tree.
//
// Type and Modifiers are resolved eagerly here: neither depends on the JSON
// document being scraped, only on tree position, so a node simply inherits
// its parent's already-resolved values and layers its own on top (see
// DESIGN.md). Labels stay per-node and unresolved because their *values*
// are only known once the engine is walking a live document; the
// extraction engine accumulates them while it walks.
type Metric struct {
	Path       *pathexpr.Path
	NameExpr   *pathexpr.ValueExpr // explicit or path-derived name; nil when NameIsEmpty
	NameIsEmpty bool               // explicit name: '' — skip the join, keep walking children
	Type       config.MetricType
	Labels     []Label
	Modifiers  modifier.Chain
	Children   []*Metric
}

// IsLeaf reports whether m has no children; only leaves emit samples.
func (m *Metric) IsLeaf() bool { return len(m.Children) == 0 }

// Compile compiles a raw document into its immutable form.
func Compile(raw *config.Config) (*Config, error) {
	out := &Config{Namespace: raw.Namespace}

	for i, gl := range raw.GlobalLabels {
		labels, err := compileLabels(gl.Labels)
		if err != nil {
			return nil, fmt.Errorf("global_labels[%d]: %w", i, err)
		}
		out.GlobalLabels = append(out.GlobalLabels, GlobalLabel{URL: gl.URL, Labels: labels})
	}

	for i, ep := range raw.Endpoints {
		cep, err := compileEndpoint(ep)
		if err != nil {
			return nil, fmt.Errorf("endpoints[%d] (%s): %w", i, endpointLabel(ep), err)
		}
		out.Endpoints = append(out.Endpoints, *cep)
	}
	return out, nil
}

func endpointLabel(ep config.Endpoint) string {
	if ep.ID != "" {
		return ep.ID
	}
	return ep.URL
}

func compileEndpoint(ep config.Endpoint) (*Endpoint, error) {
	resolvedURL, err := resolveURL(ep.URL, ep.URLParts)
	if err != nil {
		return nil, err
	}
	cep := &Endpoint{ID: ep.ID, URL: resolvedURL, URLParts: ep.URLParts}
	for i, m := range ep.Metrics {
		cm, err := compileMetric(m, config.MetricTypeGauge, nil)
		if err != nil {
			return nil, fmt.Errorf("metrics[%d]: %w", i, err)
		}
		cep.Roots = append(cep.Roots, cm)
	}
	return cep, nil
}

// compileMetric compiles one raw node. inheritedType and inheritedMods
// carry the ancestor's already-resolved type and modifier chain.
func compileMetric(m config.Metric, inheritedType config.MetricType, inheritedMods modifier.Chain) (*Metric, error) {
	path, err := pathexpr.CompilePath(m.Path)
	if err != nil {
		return nil, fmt.Errorf("compiling path %q: %w", m.Path, err)
	}

	out := &Metric{Path: path}

	switch {
	case m.Name == nil:
		if path.LastSegmentIsWildcard() {
			return nil, fmt.Errorf("path %q ends in a wildcard and has no explicit name", m.Path)
		}
		field, ok := path.LastFieldSegment()
		if !ok {
			// empty path with no name: this level contributes nothing.
			out.NameIsEmpty = true
		} else {
			ve, err := pathexpr.CompileValueExpr(canonicalizeName(field))
			if err != nil {
				return nil, err
			}
			out.NameExpr = ve
		}
	case *m.Name == "":
		out.NameIsEmpty = true
	default:
		ve, err := pathexpr.CompileValueExpr(*m.Name)
		if err != nil {
			return nil, fmt.Errorf("compiling name %q: %w", *m.Name, err)
		}
		out.NameExpr = ve
	}

	out.Type = inheritedType
	if m.Type != "" {
		if m.Type != config.MetricTypeGauge && m.Type != config.MetricTypeCounter {
			return nil, fmt.Errorf("invalid type %q (must be gauge or counter)", m.Type)
		}
		out.Type = m.Type
	}

	localMods, err := compileModifiers(m.Modifiers)
	if err != nil {
		return nil, err
	}
	out.Modifiers = inheritedMods.Append(localMods)

	out.Labels, err = compileLabels(m.Labels)
	if err != nil {
		return nil, err
	}

	for i, child := range m.Metrics {
		cc, err := compileMetric(child, out.Type, out.Modifiers)
		if err != nil {
			return nil, fmt.Errorf("metrics[%d]: %w", i, err)
		}
		out.Children = append(out.Children, cc)
	}

	return out, nil
}

func compileLabels(raw []config.Label) ([]Label, error) {
	out := make([]Label, 0, len(raw))
	for _, l := range raw {
		ve, err := pathexpr.CompileValueExpr(l.Value)
		if err != nil {
			return nil, fmt.Errorf("compiling label %q value %q: %w", l.Name, l.Value, err)
		}
		out = append(out, Label{Name: l.Name, Value: ve})
	}
	return out, nil
}

func compileModifiers(raw []config.Modifier) (modifier.Chain, error) {
	out := make(modifier.Chain, 0, len(raw))
	for _, m := range raw {
		built, err := modifier.Build(m.Name, m.Args)
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

// canonicalSuffixes maps a raw field-name suffix to its canonicalized form
// when a name is derived from a path segment instead of stated explicitly.
var canonicalSuffixes = []struct {
	from, to string
}{
	{"_in_millis", "_millis"},
	{"_in_bytes", "_bytes"},
}

func canonicalizeName(field string) string {
	for _, s := range canonicalSuffixes {
		if strings.HasSuffix(field, s.from) {
			return strings.TrimSuffix(field, s.from) + s.to
		}
	}
	return field
}
