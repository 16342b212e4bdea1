package config

import "time"

const (
	// DefaultQueryTimeout applies when none is configured
	DefaultQueryTimeout = 30 * time.Second
	// MaxQueryTimeout caps any configured timeout
	MaxQueryTimeout = 10 * time.Minute
)

// TimeoutConfig defines the bounds for timeout validation.
type TimeoutConfig struct {
	Min     time.Duration // Minimum allowed timeout (0 means no minimum)
	Max     time.Duration // Maximum allowed timeout (0 means no maximum)
	Default time.Duration // Default timeout when value is invalid
}

// DefaultQueryTimeoutConfig returns the standard config for query timeouts.
func DefaultQueryTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Max:     MaxQueryTimeout,
		Default: DefaultQueryTimeout,
	}
}

// ValidateTimeout normalizes a timeout duration.
// Returns the default if timeout is <= 0 or below a configured minimum,
// and max if timeout exceeds a configured maximum.
func ValidateTimeout(timeout time.Duration, config TimeoutConfig) time.Duration {
	if timeout <= 0 {
		return config.Default
	}
	if config.Min > 0 && timeout < config.Min {
		return config.Default
	}
	if config.Max > 0 && timeout > config.Max {
		return config.Max
	}
	return timeout
}
