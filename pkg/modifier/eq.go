package modifier

import "github.com/jsonexporter/json-exporter/pkg/pathexpr"

type eqArgs struct {
	Token string `mapstructure:"token"`
}

type eqModifier struct {
	token string
}

func newEq(args map[string]interface{}) (Modifier, error) {
	var a eqArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return &eqModifier{token: a.Token}, nil
}

// Apply replaces the value with 1.0 when its stringified form matches
// token, and suppresses the sample otherwise.
func (m *eqModifier) Apply(value interface{}) (interface{}, error) {
	if pathexpr.Stringify(value) == m.token {
		return 1.0, nil
	}
	return nil, Suppressed{}
}
