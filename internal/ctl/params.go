package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseParameters builds command parameters from a JSON object and k=v
// pairs. Pair values that parse as JSON keep their type; anything else is a
// string. Pairs override members of the object. With neither input the
// result is nil, so no parameters member is sent.
func ParseParameters(object string, pairs []string) (map[string]any, error) {
	if object == "" && len(pairs) == 0 {
		return nil, nil
	}

	params := map[string]any{}
	if object != "" {
		if err := json.Unmarshal([]byte(object), &params); err != nil {
			return nil, fmt.Errorf("--params must be a JSON object: %w", err)
		}
		if params == nil {
			params = map[string]any{}
		}
	}

	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--param %q must have the form key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			decoded = v
		}
		params[k] = decoded
	}
	return params, nil
}
