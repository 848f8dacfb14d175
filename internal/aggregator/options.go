package aggregator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bakkerme/api-aggregator/internal/metrics"
)

// DefaultCacheCapacity is the number of search terms cached per provider.
const DefaultCacheCapacity = 10

type config struct {
	cacheCapacity   int
	providerTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		cacheCapacity: DefaultCacheCapacity,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for i, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %w", i, err)
		}
	}
	return cfg, nil
}

// WithCacheCapacity sets the capacity of every per-provider cache. The
// capacity must be positive.
//
// Default is 10.
func WithCacheCapacity(capacity int) Option {
	return func(cfg *config) error {
		if capacity <= 0 {
			return fmt.Errorf("%w: cache capacity must be greater than zero, got %d", ErrInvalidConfiguration, capacity)
		}
		cfg.cacheCapacity = capacity
		return nil
	}
}

// WithProviderTimeout bounds the duration of each outbound provider call. A
// provider that does not answer in time is treated as failed. Zero disables
// the bound.
func WithProviderTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout < 0 {
			return fmt.Errorf("provider timeout must be >= 0, got %s", timeout)
		}
		cfg.providerTimeout = timeout
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) error {
		if logger != nil {
			cfg.logger = logger
		}
		return nil
	}
}

// WithMetrics records cache and provider metrics. A nil value disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) error {
		cfg.metrics = m
		return nil
	}
}

// WithClock overrides the time source used to stamp fallback items.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) error {
		if now != nil {
			cfg.now = now
		}
		return nil
	}
}
