// Package config loads command configuration from the environment.
package config

import (
	"fmt"
	"sort"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable a naasii command reads.
const Prefix = "NAASII_"

// Variable describes one environment variable bound to a config field.
type Variable struct {
	Name     string
	Default  string
	Required bool
}

func options() env.Options {
	return env.Options{Prefix: Prefix}
}

// ParseEnv loads NAASII_-prefixed variables into target. Field tags name the
// variable without the prefix.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, options()); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Variables lists the variables target reads, sorted by name.
func Variables(target any) ([]Variable, error) {
	params, err := env.GetFieldParamsWithOptions(target, options())
	if err != nil {
		return nil, fmt.Errorf("inspect env: %w", err)
	}
	vars := make([]Variable, 0, len(params))
	for _, p := range params {
		vars = append(vars, Variable{Name: p.Key, Default: p.DefaultValue, Required: p.Required})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars, nil
}
