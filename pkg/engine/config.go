package engine

import (
	"fmt"
	"runtime"
)

// Config contains configuration for the compliance engine.
type Config struct {
	// Workers bounds how many documents of a project batch are evaluated
	// concurrently. Zero means runtime.NumCPU().
	Workers int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{Workers: 0}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	return nil
}

// WithWorkers sets the project batch concurrency.
func (c *Config) WithWorkers(n int) *Config {
	c.Workers = n
	return c
}

// workers resolves the effective concurrency.
func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
