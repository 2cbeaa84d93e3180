// Package config loads tracker service configuration with Viper and
// watches the config file for changes so long-running importers pick up
// new settings without a restart.
package config

import (
	"github.com/teranos/trax/errors"
)

// Config is the tracker service configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	RuleEngine RuleEngineConfig `mapstructure:"rule_engine"`
	Validation ValidationConfig `mapstructure:"validation"`
	Preheat    PreheatConfig    `mapstructure:"preheat"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	Log        LogConfig        `mapstructure:"log"`
}

// DatabaseConfig selects the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RuleEngineConfig holds program rule engine toggles.
type RuleEngineConfig struct {
	// AllowAssignOverwrite lets assign-value rule actions replace non-empty
	// payload values instead of refusing them.
	AllowAssignOverwrite bool `mapstructure:"allow_assign_overwrite"`
}

// ValidationConfig holds validator limits.
type ValidationConfig struct {
	MaxAttributeValueLength int `mapstructure:"max_attribute_value_length"`
}

// PreheatConfig bounds the cross-batch metadata cache. A TTL of 0 means
// cached entries never expire, and a capacity of 0 means the cache is
// unbounded; both still clear on invalidation.
type PreheatConfig struct {
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
	CacheCapacity   int `mapstructure:"cache_capacity"`
}

// EncryptionConfig reports the state of confidential-attribute storage.
// Status other than "OK" makes confidential attribute values fail
// validation.
type EncryptionConfig struct {
	Status string `mapstructure:"status"`
}

// LogConfig selects log output format.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Validation.MaxAttributeValueLength <= 0 {
		return errors.Newf("validation.max_attribute_value_length must be > 0, got %d", c.Validation.MaxAttributeValueLength)
	}
	if c.Preheat.CacheTTLMinutes < 0 {
		return errors.Newf("preheat.cache_ttl_minutes must be >= 0, got %d", c.Preheat.CacheTTLMinutes)
	}
	if c.Preheat.CacheCapacity < 0 {
		return errors.Newf("preheat.cache_capacity must be >= 0, got %d", c.Preheat.CacheCapacity)
	}
	if c.Encryption.Status == "" {
		return errors.New("encryption.status cannot be empty")
	}
	return nil
}

// AllowAssignOverwrite implements the settings view the rule engine reads.
func (c *Config) AllowAssignOverwrite() bool {
	return c.RuleEngine.AllowAssignOverwrite
}

// MaxAttributeValueLength implements the settings view validators read.
func (c *Config) MaxAttributeValueLength() int {
	return c.Validation.MaxAttributeValueLength
}

// EncryptionStatus adapts the configured status to the pipeline's
// encryption check.
type EncryptionStatus struct {
	cfg *Config
}

// NewEncryptionStatus wraps a config for the encryption check.
func NewEncryptionStatus(cfg *Config) EncryptionStatus {
	return EncryptionStatus{cfg: cfg}
}

// Status returns the configured encryption status key.
func (e EncryptionStatus) Status() string {
	return e.cfg.Encryption.Status
}
