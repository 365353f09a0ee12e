package modifier

import "fmt"

type divideArgs struct {
	Divisor float64 `mapstructure:"divisor"`
}

type divideModifier struct {
	divisor float64
}

func newDivide(args map[string]interface{}) (Modifier, error) {
	var a divideArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return &divideModifier{divisor: a.Divisor}, nil
}

// Apply implements v := v / divisor. value is coerced the same way mul
// coerces its input; non-numeric input returns a regular error (not
// Suppressed): the sample is dropped and the caller logs at warn.
func (m *divideModifier) Apply(value interface{}) (interface{}, error) {
	f, err := toFloat(value)
	if err != nil {
		return nil, fmt.Errorf("modifier: divide: %w", err)
	}
	return f / m.divisor, nil
}
