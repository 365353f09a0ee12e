// Package modifier implements the ordered scalar-transform pipeline applied
// to leaf values. Each kind is a tagged variant with an open registry keyed
// by name: adding a new kind means adding a constructor and registering it.
package modifier

import (
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Suppressed is returned by Apply to indicate the sample must not be
// emitted (e.g. eq() on a non-matching token). It is not an error.
type Suppressed struct{}

func (Suppressed) Error() string { return "modifier: sample suppressed" }

// Modifier transforms a scalar value, in order, within a chain.
type Modifier interface {
	// Apply returns the transformed value, or a Suppressed error if the
	// sample must be dropped, or any other error if the input was not of a
	// shape this modifier can handle (dropping only that sample, not the scrape).
	Apply(value interface{}) (interface{}, error)
}

// Constructor builds a Modifier from its raw YAML args.
type Constructor func(args map[string]interface{}) (Modifier, error)

var registry = map[string]Constructor{
	"mul":       newMul,
	"div":       newDivide,
	"divide":    newDivide,
	"eq":        newEq,
	"lowercase": newLowercase,
	"uppercase": newUppercase,
}

// Register adds (or overrides, in tests) a modifier kind.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Build compiles one {name, args} declaration into a Modifier.
func Build(name string, args map[string]interface{}) (Modifier, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("modifier: unknown modifier %q", name)
	}
	m, err := ctor(args)
	if err != nil {
		return nil, fmt.Errorf("modifier: building %q: %w", name, err)
	}
	return m, nil
}

// toFloat coerces a raw leaf value (or a prior modifier's output) to a
// number: numbers and booleans convert directly, strings are parsed as
// numeric literals, anything else is a fatal per-sample error.
func toFloat(value interface{}) (float64, error) {
	switch t := value.(type) {
	case float64:
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
	default:
		return 0, fmt.Errorf("value %v is not numeric", value)
	}
}

// decodeArgs is a thin mapstructure wrapper shared by every constructor,
// since each modifier's args shape differs but all arrive as the same
// map[string]interface{} from YAML.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	return mapstructure.Decode(args, out)
}

// Chain is an ordered list of modifiers, applied parent-first: modifiers
// inherited from an ancestor node run before the current node's own.
type Chain []Modifier

// Append returns a new Chain with local modifiers appended after the
// receiver's. The receiver is never mutated, so the same parent Chain can
// be shared by every sibling of a compiled tree.
func (c Chain) Append(local Chain) Chain {
	out := make(Chain, 0, len(c)+len(local))
	out = append(out, c...)
	out = append(out, local...)
	return out
}

// Run applies every modifier in order, returning the final value or a
// Suppressed error if any modifier suppressed the sample, or the first
// fatal-per-sample error encountered.
func (c Chain) Run(value interface{}) (interface{}, error) {
	for _, m := range c {
		v, err := m.Apply(value)
		if err != nil {
			return nil, err
		}
		value = v
	}
	return value, nil
}
