package modifier

import (
	"fmt"
	"strings"
)

type caseModifier struct {
	upper bool
}

func newLowercase(args map[string]interface{}) (Modifier, error) { return &caseModifier{}, nil }
func newUppercase(args map[string]interface{}) (Modifier, error) { return &caseModifier{upper: true}, nil }

// Apply normalizes a string value's case; any non-string value is rejected
// with an error: these modifiers exist to canonicalize tokens ahead of an
// eq() comparison, not to coerce arbitrary values.
func (m *caseModifier) Apply(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("modifier: lowercase/uppercase require a string value, got %T", value)
	}
	if m.upper {
		return strings.ToUpper(s), nil
	}
	return strings.ToLower(s), nil
}
