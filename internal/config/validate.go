package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would make a batch run
// misbehave. It returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Scoring.ReachWeight < 0 {
		return fmt.Errorf("scoring.reach_weight must not be negative, got %v", c.Scoring.ReachWeight)
	}
	if c.Scoring.Interval != "weekly" {
		return fmt.Errorf("scoring.interval: unsupported value %q (only \"weekly\" is supported)", c.Scoring.Interval)
	}
	if c.Anchor.Enabled && c.Anchor.URL == "" {
		return errors.New("anchor.url must be set when anchor.enabled is true")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
