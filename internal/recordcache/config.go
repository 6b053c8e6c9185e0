package recordcache

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the tuning knobs for the sturdyc-backed record cache.
type Config struct {
	// Capacity defines the maximum number of entries the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent
	// access. Must be greater than 0.
	NumShards int

	// TTL is the time-to-live for cached records. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches capacity. Must be between 1 and 100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired
	// entries. Zero uses the sturdyc default.
	EvictionInterval time.Duration

	// MissingRecordStorage makes the cache remember keys that returned no
	// results, preventing repeated database queries for absent records.
	MissingRecordStorage bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

func (c Config) options() []sturdyc.Option {
	var options []sturdyc.Option
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "recordcache config error in field " + e.Field + ": " + e.Message
}
