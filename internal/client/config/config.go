package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for authctl.
type Config struct {
	ServerURL      string        `env:"AUTHCTL_SERVER_URL"`
	RequestTimeout time.Duration `env:"AUTHCTL_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080/api/v1/auth"
	c.RequestTimeout = 10 * time.Second
}

// Load applies defaults, then JSON, then environment, then the flags found
// in args. It returns the remaining positional arguments.
func Load(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, nil, fmt.Errorf("env config: %w", err)
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, rest, nil
}
