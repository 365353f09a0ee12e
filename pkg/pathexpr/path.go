// Package pathexpr implements two small languages: path expressions (the
// `path:` field, used to descend a JSON tree and allocate positional
// captures for wildcards) and value expressions (the `value:`/implicit-name
// language, mixing literal text, positional captures and a restricted
// JSONPath subset).
//
// Both languages are intentionally bespoke and restricted rather than a
// general JSONPath engine — see DESIGN.md.
package pathexpr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jsonexporter/json-exporter/pkg/jsonvalue"
)

type segmentKind int

const (
	segField segmentKind = iota
	segWildcard
	segIndex
)

type segment struct {
	kind  segmentKind
	field string // segField
	index int     // segIndex
}

// Path is a compiled path expression.
type Path struct {
	raw      string
	segments []segment
	// NumCaptures is how many wildcard capture slots this path allocates.
	NumCaptures int
}

var indexedSegmentRE = regexp.MustCompile(`^([^.\[\]]+)\[(\d+)\]$`)

// CompilePath parses a `path:` field. An empty expr compiles to a no-op path
// that stays on the current node.
func CompilePath(expr string) (*Path, error) {
	p := &Path{raw: expr}
	if expr == "" {
		return p, nil
	}
	for _, tok := range strings.Split(expr, ".") {
		if tok == "" {
			return nil, fmt.Errorf("pathexpr: empty segment in path %q", expr)
		}
		if tok == "*" {
			p.segments = append(p.segments, segment{kind: segWildcard})
			p.NumCaptures++
			continue
		}
		if m := indexedSegmentRE.FindStringSubmatch(tok); m != nil {
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("pathexpr: invalid index in segment %q: %w", tok, err)
			}
			p.segments = append(p.segments,
				segment{kind: segField, field: m[1]},
				segment{kind: segIndex, index: idx},
			)
			continue
		}
		p.segments = append(p.segments, segment{kind: segField, field: tok})
	}
	return p, nil
}

// LastSegmentIsWildcard reports whether the final path segment is a
// wildcard, in which case an explicit `name` is required at compile time.
func (p *Path) LastSegmentIsWildcard() bool {
	if len(p.segments) == 0 {
		return false
	}
	return p.segments[len(p.segments)-1].kind == segWildcard
}

// LastFieldSegment returns the last plain field segment's name, used for
// default name derivation when the path does not end in a wildcard.
func (p *Path) LastFieldSegment() (string, bool) {
	for i := len(p.segments) - 1; i >= 0; i-- {
		if p.segments[i].kind == segField {
			return p.segments[i].field, true
		}
	}
	return "", false
}

// Match is one resolved position: the JSON node the path led to, plus the
// captures newly bound by wildcards encountered along the way, in order.
type Match struct {
	Node     interface{}
	Captures []string
}

// Resolve walks node following p's segments. An absent intermediate key
// silently yields no results; it is not an error.
func (p *Path) Resolve(node interface{}) []Match {
	return resolveFrom(node, p.segments, nil)
}

func resolveFrom(node interface{}, segs []segment, captured []string) []Match {
	if len(segs) == 0 {
		return []Match{{Node: node, Captures: captured}}
	}
	seg := segs[0]
	rest := segs[1:]
	switch seg.kind {
	case segField:
		obj, ok := node.(jsonvalue.Object)
		if !ok {
			return nil
		}
		child, ok := obj.Get(seg.field)
		if !ok {
			return nil
		}
		return resolveFrom(child, rest, captured)
	case segIndex:
		arr, ok := node.([]interface{})
		if !ok || seg.index < 0 || seg.index >= len(arr) {
			return nil
		}
		return resolveFrom(arr[seg.index], rest, captured)
	case segWildcard:
		var results []Match
		switch v := node.(type) {
		case jsonvalue.Object:
			for _, m := range v {
				results = append(results, resolveFrom(m.Value, rest, appendCapture(captured, m.Key))...)
			}
		case []interface{}:
			for i, elem := range v {
				results = append(results, resolveFrom(elem, rest, appendCapture(captured, strconv.Itoa(i)))...)
			}
		}
		return results
	}
	return nil
}

func appendCapture(captured []string, next string) []string {
	out := make([]string, len(captured)+1)
	copy(out, captured)
	out[len(out)-1] = next
	return out
}
