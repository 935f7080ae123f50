// Package config parses service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the environment using `env` struct tags.
//
// Example:
//
//	type Config struct {
//	    Port      int    `env:"ACCOUNT_HTTP_PORT" envDefault:"8006"`
//	    JWTSecret string `env:"JWT_SECRET"`
//	}
//
// Validation beyond parsing (port ranges, secret strength) belongs to the
// caller.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env config: %w", err)
	}
	return nil
}
