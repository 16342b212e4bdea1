// Package config loads the query engine configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-cypher/pkg/logging"
	"github.com/dd0wney/cluso-cypher/pkg/validation"
)

// Environment variables that override the file
const (
	EnvLogLevel     = "CYPHER_LOG_LEVEL"
	EnvQueryTimeout = "CYPHER_QUERY_TIMEOUT"
	EnvSlowQuery    = "CYPHER_SLOW_QUERY"
	EnvMaxRows      = "CYPHER_MAX_ROWS"
)

// Config holds engine settings
type Config struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// QueryTimeout bounds one query from compile to the last row
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// SlowQuery is the duration above which a query is logged at warn
	// level (0 disables)
	SlowQuery time.Duration `yaml:"slow_query"`

	// MaxRows stops result iteration after this many rows (0 is unlimited)
	MaxRows int `yaml:"max_rows" validate:"min=0"`

	// Pushdown enables the primary key pushdown rewrite
	Pushdown bool `yaml:"pushdown"`

	// Profile allows PROFILE statements
	Profile bool `yaml:"profile"`

	// MetricsNamespace prefixes every metric name
	MetricsNamespace string `yaml:"metrics_namespace" validate:"required,max=64"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		LogLevel:         "info",
		QueryTimeout:     DefaultQueryTimeout,
		SlowQuery:        time.Second,
		Pushdown:         true,
		Profile:          true,
		MetricsNamespace: "cypher",
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.QueryTimeout = ValidateTimeout(cfg.QueryTimeout, DefaultQueryTimeoutConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment as seen through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvQueryTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvQueryTimeout, err)
		}
		c.QueryTimeout = d
	}
	if v, ok := lookup(EnvSlowQuery); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSlowQuery, err)
		}
		c.SlowQuery = d
	}
	if v, ok := lookup(EnvMaxRows); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxRows, err)
		}
		c.MaxRows = n
	}
	return nil
}

// Validate checks the struct tags, then the rules that span fields
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	return validation.NewConfigValidator("Config").
		RangeDuration("QueryTimeout", c.QueryTimeout, 0, MaxQueryTimeout).
		When(c.SlowQuery != 0, func(cv *validation.ConfigValidator) {
			cv.RangeDuration("SlowQuery", c.SlowQuery, time.Nanosecond, MaxQueryTimeout)
		}).
		Custom("SlowQuery", func() error {
			if c.SlowQuery > 0 && c.QueryTimeout > 0 && c.SlowQuery > c.QueryTimeout {
				return errors.New("slow query threshold exceeds the query timeout")
			}
			return nil
		}).
		Validate()
}

// Level is LogLevel parsed for the logger
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}
