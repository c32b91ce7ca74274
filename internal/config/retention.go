package config

import (
	"fmt"
	"time"
)

// RetentionConfig controls how long completed sessions stay in storage.
type RetentionConfig struct {
	// MaxAgeHours is how old a session must be before it is pruned (in hours)
	// Default: 720 (30 days), Range: 0-8760
	// 0 = keep sessions forever
	MaxAgeHours int `yaml:"max_age_hours"`

	// Keep is the minimum number of recent sessions that survive pruning
	// regardless of age
	// Default: 50, Range: 0-10000
	Keep int `yaml:"keep"`
}

// DefaultRetentionConfig returns the default retention configuration
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		MaxAgeHours: 720,
		Keep:        50,
	}
}

// Validate checks if the configuration has valid values
func (c RetentionConfig) Validate() error {
	if c.MaxAgeHours < 0 || c.MaxAgeHours > 8760 {
		return fmt.Errorf("max_age_hours must be between 0 and 8760 (got %d)", c.MaxAgeHours)
	}
	if c.Keep < 0 || c.Keep > 10000 {
		return fmt.Errorf("keep must be between 0 and 10000 (got %d)", c.Keep)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c RetentionConfig) String() string {
	return fmt.Sprintf("RetentionConfig{MaxAgeHours: %d, Keep: %d}", c.MaxAgeHours, c.Keep)
}

// MaxAge returns the age threshold as a time.Duration. Zero disables pruning.
func (c RetentionConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

// Enabled reports whether pruning should run at all.
func (c RetentionConfig) Enabled() bool {
	return c.MaxAgeHours > 0
}
