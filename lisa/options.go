package lisa

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Config holds the settings shared by archives, converters and catalogs.
// Build it with Options; the zero value logs nothing and records no metrics.
type Config struct {
	Logger         zerolog.Logger
	Registerer     prometheus.Registerer
	MemoizeFactors bool
	Sorter         func([]string) []string
	Workers        int
}

// Option configures a Config.
type Option func(*Config)

func newConfig(opts []Option) Config {
	cfg := Config{Logger: zerolog.Nop(), Workers: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the logger used for load, correction and unit events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithRegisterer registers the package metrics on r. A nil registerer
// disables metrics.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registerer = r }
}

// WithFactorCache makes a Converter remember conversion factors per
// (quantity, role, unit).
func WithFactorCache() Option {
	return func(c *Config) { c.MemoizeFactors = true }
}

// WithSorter replaces the default catalog order. The function receives the
// matched paths and returns them in the desired order.
func WithSorter(sorter func([]string) []string) Option {
	return func(c *Config) { c.Sorter = sorter }
}

// WithWorkers bounds how many archives a catalog opens at once.
func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}
