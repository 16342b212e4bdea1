package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// parseParams turns name=value flags into query parameters. The value is
// decoded as YAML, so 3 is an integer, '3' a string and [1, 2] a list.
func parseParams(flags []string) (map[string]value.Value, error) {
	params := make(map[string]value.Value, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q: want name=value", f)
		}
		var x any
		if err := yaml.Unmarshal([]byte(raw), &x); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		v, err := value.FromGo(x)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		params[name] = v
	}
	return params, nil
}
