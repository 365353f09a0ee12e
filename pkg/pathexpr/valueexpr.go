package pathexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jsonexporter/json-exporter/pkg/jsonvalue"
)

// ErrUnresolved is returned by ValueExpr.Evaluate when a JSONPath segment
// referenced a field that does not exist in the current JSON node. This is
// not treated as fatal: the caller drops the sample silently.
var ErrUnresolved = errors.New("pathexpr: value did not resolve")

type exprPartKind int

const (
	partLiteral exprPartKind = iota
	partCapture
	partJSONPath
)

type exprPart struct {
	kind    exprPartKind
	literal string
	capture int      // partCapture
	path    []string // partJSONPath, field names after the leading $
}

// ValueExpr is a compiled value expression: a mix of literal text,
// positional captures ($0, $1, ..., or braced as ${0}, ${1}, ...) and
// restricted JSONPath (${$.a.b}).
type ValueExpr struct {
	raw   string
	parts []exprPart
}

// CompileValueExpr parses a label value or implicit-name expression.
func CompileValueExpr(expr string) (*ValueExpr, error) {
	ve := &ValueExpr{raw: expr}
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			ve.parts = append(ve.parts, exprPart{kind: partLiteral, literal: lit.String()})
			lit.Reset()
		}
	}

	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '$' {
			lit.WriteRune(c)
			continue
		}
		// '$' lookahead
		if i+1 < len(runes) && runes[i+1] == '{' {
			end := strings.IndexRune(string(runes[i+2:]), '}')
			if end < 0 {
				return nil, fmt.Errorf("pathexpr: unterminated ${...} in %q", expr)
			}
			inner := string(runes[i+2 : i+2+end])
			digits := inner != ""
			for _, r := range inner {
				if r < '0' || r > '9' {
					digits = false
					break
				}
			}
			if digits {
				// '${N}' is the braced form of a positional capture
				n, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("pathexpr: invalid capture index in %q: %w", expr, err)
				}
				flushLit()
				ve.parts = append(ve.parts, exprPart{kind: partCapture, capture: n})
				i += 2 + end
				continue
			}
			path, err := parseJSONPath(inner)
			if err != nil {
				return nil, fmt.Errorf("pathexpr: %q: %w", expr, err)
			}
			flushLit()
			ve.parts = append(ve.parts, exprPart{kind: partJSONPath, path: path})
			i += 2 + end
			continue
		}
		// '$N' positional capture
		j := i + 1
		for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
			j++
		}
		if j == i+1 {
			// bare '$' with no digits and no '{' — treat as literal
			lit.WriteRune(c)
			continue
		}
		n, err := strconv.Atoi(string(runes[i+1 : j]))
		if err != nil {
			return nil, fmt.Errorf("pathexpr: invalid capture index in %q: %w", expr, err)
		}
		flushLit()
		ve.parts = append(ve.parts, exprPart{kind: partCapture, capture: n})
		i = j - 1
	}
	flushLit()
	return ve, nil
}

// parseJSONPath parses the restricted subset: "$" followed by zero or more
// ".field" selectors. Anything else (bracket filters, etc.) is rejected at
// compile time rather than silently ignored.
func parseJSONPath(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "$") {
		return nil, fmt.Errorf("jsonpath must start with '$': %q", expr)
	}
	rest := expr[1:]
	if rest == "" {
		return nil, nil
	}
	if !strings.HasPrefix(rest, ".") {
		return nil, fmt.Errorf("unsupported jsonpath selector in %q (only '.field' is supported)", expr)
	}
	fields := strings.Split(rest[1:], ".")
	for _, f := range fields {
		if f == "" || strings.ContainsAny(f, "[]?@*()") {
			return nil, fmt.Errorf("unsupported jsonpath selector %q in %q", f, expr)
		}
	}
	return fields, nil
}

// Evaluate substitutes every part of the expression against captures (the
// positional captures accumulated while walking wildcard segments) and node
// (the JSON node selected by the enclosing path). It returns ErrUnresolved if a
// JSONPath part referenced an absent field; that case is non-fatal and the
// caller should drop the sample. Any other error (e.g. a capture index
// beyond what was allocated) indicates a configuration/implementation bug.
func (ve *ValueExpr) Evaluate(node interface{}, captures []string) (string, error) {
	var sb strings.Builder
	for _, p := range ve.parts {
		switch p.kind {
		case partLiteral:
			sb.WriteString(p.literal)
		case partCapture:
			if p.capture == 0 {
				sb.WriteString(strings.Join(captures, "_"))
				continue
			}
			if p.capture < 1 || p.capture > len(captures) {
				return "", fmt.Errorf("pathexpr: capture $%d not available (have %d captures) in %q", p.capture, len(captures), ve.raw)
			}
			sb.WriteString(captures[p.capture-1])
		case partJSONPath:
			v, err := resolveJSONPath(node, p.path)
			if err != nil {
				return "", err
			}
			sb.WriteString(v)
		}
	}
	return sb.String(), nil
}

func resolveJSONPath(node interface{}, fields []string) (string, error) {
	cur := node
	for _, f := range fields {
		obj, ok := cur.(jsonvalue.Object)
		if !ok {
			return "", ErrUnresolved
		}
		val, ok := obj.Get(f)
		if !ok {
			return "", ErrUnresolved
		}
		cur = val
	}
	if cur == nil {
		return "", ErrUnresolved
	}
	return Stringify(cur), nil
}

// Stringify coerces a decoded JSON scalar to its string form, used both for
// label values and for leaf eq() comparisons.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
