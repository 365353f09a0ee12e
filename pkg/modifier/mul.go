package modifier

import "fmt"

type mulArgs struct {
	Factor float64 `mapstructure:"factor"`
}

type mulModifier struct {
	factor float64
}

func newMul(args map[string]interface{}) (Modifier, error) {
	var a mulArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return &mulModifier{factor: a.Factor}, nil
}

// Apply implements v := v * factor. value is the raw, not-yet-coerced leaf
// (or a prior modifier's output), so mul coerces it to a number itself;
// non-numeric input returns a regular error (not Suppressed): the sample is
// dropped and the caller logs at warn.
func (m *mulModifier) Apply(value interface{}) (interface{}, error) {
	f, err := toFloat(value)
	if err != nil {
		return nil, fmt.Errorf("modifier: mul: %w", err)
	}
	return f * m.factor, nil
}
