// Package extract walks a compiled metric tree against one decoded JSON
// document and produces a flat stream of samples.
package extract

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jsonexporter/json-exporter/pkg/compile"
	"github.com/jsonexporter/json-exporter/pkg/jsonvalue"
	"github.com/jsonexporter/json-exporter/pkg/modifier"
)

// Label is a resolved (name, value) pair, not yet sorted.
type Label struct {
	Name  string
	Value string
}

// Sample is one fully resolved metric point: name, type, labels and value.
type Sample struct {
	Name   string
	Type   string // "gauge" or "counter"
	Labels []Label
	Value  float64
}

// Warning records a recoverable, per-sample problem encountered while
// walking the tree — the offending subtree is skipped, not the whole scrape.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) Error() string { return fmt.Sprintf("%s: %v", w.Path, w.Err) }

// errAbsent marks a leaf whose underlying JSON value is null or missing:
// the sample is dropped silently, with no warning.
var errAbsent = errors.New("extract: value absent")

// Extract walks every root of ep against doc and returns the ordered
// sample stream plus any recoverable warnings encountered along the way.
// baseLabels are merged beneath every sample (e.g. endpoint-scoped labels
// resolved ahead of time); they are overridden by same-named node labels.
func Extract(roots []*compile.Metric, doc interface{}, baseLabels []Label) ([]Sample, []Warning) {
	w := &walker{}
	for _, root := range roots {
		w.walkNode(root, doc, nil, baseLabels)
	}
	return w.samples, w.warnings
}

type walker struct {
	samples  []Sample
	warnings []Warning
}

func (w *walker) walkNode(node *compile.Metric, cur interface{}, names []string, labels []Label) {
	for _, m := range node.Path.Resolve(cur) {
		w.walkMatch(node, m.Node, m.Captures, names, labels)
	}
}

func (w *walker) walkMatch(node *compile.Metric, matched interface{}, captures []string, names []string, labels []Label) {
	nextNames := names
	if !node.NameIsEmpty && node.NameExpr != nil {
		name, err := node.NameExpr.Evaluate(matched, captures)
		if err != nil {
			return // unresolved name component: drop this subtree silently
		}
		nextNames = append(append([]string{}, names...), name)
	}

	nextLabels := labels
	for _, lbl := range node.Labels {
		v, err := lbl.Value.Evaluate(matched, captures)
		if err != nil {
			return // unresolved label value: drop this subtree silently
		}
		nextLabels = overrideLabel(nextLabels, Label{Name: lbl.Name, Value: v})
	}

	if node.IsLeaf() {
		w.emitLeaf(node, matched, nextNames, nextLabels)
		return
	}
	for _, child := range node.Children {
		w.walkNode(child, matched, nextNames, nextLabels)
	}
}

func (w *walker) emitLeaf(node *compile.Metric, value interface{}, names []string, labels []Label) {
	path := strings.Join(names, "_")

	if value == nil {
		return // absent/null leaf: dropped silently, not a warning
	}

	result, err := node.Modifiers.Run(value)
	if err != nil {
		var s modifier.Suppressed
		if !errors.As(err, &s) {
			w.warnings = append(w.warnings, Warning{Path: path, Err: err})
		}
		return
	}

	final, err := coerceScalar(result)
	if err != nil {
		if err != errAbsent {
			w.warnings = append(w.warnings, Warning{Path: path, Err: err})
		}
		return
	}

	w.samples = append(w.samples, Sample{
		Name:   path,
		Type:   string(node.Type),
		Labels: sortedLabels(labels),
		Value:  final,
	})
}

// coerceScalar converts a modifier chain's final value to a finite float64.
// Numbers and booleans convert directly; strings are parsed as numeric
// literals; null and absent (Go nil) are treated as errAbsent; objects,
// arrays, and non-finite numbers (NaN/Inf) are a per-sample error.
func coerceScalar(v interface{}) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, errAbsent
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("value %v is not finite", t)
		}
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", t)
		}
		return f, nil
	case jsonvalue.Object:
		return 0, fmt.Errorf("expected a scalar, found an object")
	case []interface{}:
		return 0, fmt.Errorf("expected a scalar, found an array")
	default:
		return 0, fmt.Errorf("expected a scalar, found %T", t)
	}
}

func overrideLabel(labels []Label, next Label) []Label {
	out := make([]Label, 0, len(labels)+1)
	replaced := false
	for _, l := range labels {
		if l.Name == next.Name {
			out = append(out, next)
			replaced = true
			continue
		}
		out = append(out, l)
	}
	if !replaced {
		out = append(out, next)
	}
	return out
}

func sortedLabels(labels []Label) []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
