package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// SecurityConfig represents the complete security-core configuration
type SecurityConfig struct {
	Session  SessionConfig  `toml:"session"`
	Audit    AuditConfig    `toml:"audit"`
	Resolver ResolverConfig `toml:"resolver"`
}

// SessionConfig contains token lifetime and login throttling settings
type SessionConfig struct {
	TokenTTLSeconds        int `toml:"token_ttl_seconds"`
	RateLimitAttempts      int `toml:"rate_limit_attempts"`
	RateLimitWindowSeconds int `toml:"rate_limit_window_seconds"`
}

// AuditConfig contains event shipping and sweep cadence settings
type AuditConfig struct {
	Bucket               string `toml:"bucket"`
	ShipBatchSize        int    `toml:"ship_batch_size"`
	ShipIntervalSeconds  int    `toml:"ship_interval_seconds"`
	SweepIntervalMinutes int    `toml:"sweep_interval_minutes"`
}

// ResolverConfig contains tenant resolution cache settings
type ResolverConfig struct {
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// DefaultSecurityConfig returns the settings used when no config file is
// supplied.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		Session: SessionConfig{
			TokenTTLSeconds:        3600,
			RateLimitAttempts:      5,
			RateLimitWindowSeconds: 300,
		},
		Audit: AuditConfig{
			Bucket:               "tenantcore-audit",
			ShipBatchSize:        500,
			ShipIntervalSeconds:  60,
			SweepIntervalMinutes: 15,
		},
		Resolver: ResolverConfig{
			CacheTTLSeconds: 300,
		},
	}
}

// LoadSecurityConfig loads configuration from a TOML file, filling unset
// fields from the defaults.
func LoadSecurityConfig(filename string) (*SecurityConfig, error) {
	config := DefaultSecurityConfig()
	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if config.Session.TokenTTLSeconds <= 0 {
		return nil, fmt.Errorf("session.token_ttl_seconds must be positive")
	}
	if config.Audit.ShipBatchSize <= 0 {
		return nil, fmt.Errorf("audit.ship_batch_size must be positive")
	}
	return config, nil
}
