package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into cfg using its `env` and
// `envDefault` struct tags.
func Load(cfg any) error {
	return LoadWithOptions(cfg, env.Options{})
}

// LoadWithOptions is Load with explicit caarlos0/env options, e.g. a
// Prefix shared by every variable of a service or a fixed Environment map
// in tests.
func LoadWithOptions(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
