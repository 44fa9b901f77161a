package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSort(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSort() error {
	if c.Sort.Workers < 1 {
		return fmt.Errorf("sort.workers must be at least 1, got %d", c.Sort.Workers)
	}

	switch c.Sort.Progress {
	case ProgressAuto, ProgressAlways, ProgressNever:
	default:
		return fmt.Errorf("sort.progress must be one of %q, %q or %q, got %q",
			ProgressAuto, ProgressAlways, ProgressNever, c.Sort.Progress)
	}

	for _, pattern := range c.Sort.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("sort.exclude: invalid pattern %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "text", "json", c.Logging.Format)
	}
	return nil
}
