// Package config loads and validates the shopsearch server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Duration parses TOML strings like "250ms" or "5m" into a time.Duration.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Server configures the HTTP listener.
type Server struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `toml:"addr"`
	// SearchRatePerSecond caps autocomplete requests across all entities.
	SearchRatePerSecond float64 `toml:"search_rate_per_second"`
	// SearchRateBurst is the token bucket size for the search limiter.
	SearchRateBurst int `toml:"search_rate_burst"`
	// ShutdownGrace bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownGrace Duration `toml:"shutdown_grace"`
}

// Database configures the SQLite backing store.
type Database struct {
	DSN string `toml:"dsn"`
}

// RecordCache tunes the sturdyc-backed by-ID/list cache.
type RecordCache struct {
	Capacity           int      `toml:"capacity"`
	NumShards          int      `toml:"num_shards"`
	TTL                Duration `toml:"ttl"`
	EvictionPercentage int      `toml:"eviction_percentage"`
}

// SearchCache tunes the coordinator-owned autocomplete cache.
type SearchCache struct {
	// MailboxSize is the per-coordinator mutation queue depth.
	MailboxSize int `toml:"mailbox_size"`
	// PutTimeout bounds the wait for a mutation acknowledgment before a
	// search degrades to bypass mode.
	PutTimeout Duration `toml:"put_timeout"`
	// MaxRestarts and RestartWindow bound coordinator restart intensity.
	MaxRestarts   int      `toml:"max_restarts"`
	RestartWindow Duration `toml:"restart_window"`
}

// Config is the root configuration document.
type Config struct {
	Server      Server      `toml:"server"`
	Database    Database    `toml:"database"`
	RecordCache RecordCache `toml:"record_cache"`
	SearchCache SearchCache `toml:"search_cache"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Server: Server{
			Addr:                ":8080",
			SearchRatePerSecond: 50,
			SearchRateBurst:     100,
			ShutdownGrace:       Duration(10 * time.Second),
		},
		Database: Database{
			DSN: "file:shopsearch.db?_fk=1",
		},
		RecordCache: RecordCache{
			Capacity:           10000,
			NumShards:          64,
			TTL:                Duration(5 * time.Minute),
			EvictionPercentage: 10,
		},
		SearchCache: SearchCache{
			MailboxSize:   256,
			PutTimeout:    Duration(250 * time.Millisecond),
			MaxRestarts:   5,
			RestartWindow: Duration(10 * time.Second),
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if c.Server.SearchRatePerSecond <= 0 {
		return fmt.Errorf("config: server.search_rate_per_second must be > 0")
	}
	if c.Server.SearchRateBurst <= 0 {
		return fmt.Errorf("config: server.search_rate_burst must be > 0")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn must not be empty")
	}
	if c.SearchCache.PutTimeout <= 0 {
		return fmt.Errorf("config: search_cache.put_timeout must be > 0")
	}
	if c.SearchCache.MaxRestarts < 0 {
		return fmt.Errorf("config: search_cache.max_restarts must be >= 0")
	}
	if c.SearchCache.RestartWindow <= 0 {
		return fmt.Errorf("config: search_cache.restart_window must be > 0")
	}
	return nil
}
