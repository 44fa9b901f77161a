package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DECLUTTER"

const (
	ProgressAuto   = "auto"
	ProgressAlways = "always"
	ProgressNever  = "never"
)

// Sort contains the settings of a sorting run.
type Sort struct {
	Workers  int      `toml:"workers"`
	Exclude  []string `toml:"exclude"`
	Progress string   `toml:"progress"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for declutter.
type Config struct {
	Sort    Sort    `toml:"sort"`
	Logging Logging `toml:"logging"`
}

// env holds the environment overrides. Unset values leave the file
// configuration alone.
type env struct {
	Workers   int      `envconfig:"WORKERS"`
	Exclude   []string `envconfig:"EXCLUDE"`
	Progress  string   `envconfig:"PROGRESS"`
	LogLevel  string   `envconfig:"LOG_LEVEL"`
	LogFormat string   `envconfig:"LOG_FORMAT"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Sort: Sort{
			Workers:  4,
			Exclude:  []string{},
			Progress: ProgressAuto,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/declutter/config.toml")
}

// Load locates, parses and validates a configuration file, then applies
// environment overrides. It returns the resolved path and whether a file
// was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, "declutter.toml"} {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err == nil {
			return expanded, true, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	return defaultPath, false, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	if e.Workers != 0 {
		c.Sort.Workers = e.Workers
	}
	if e.Exclude != nil {
		c.Sort.Exclude = e.Exclude
	}
	if e.Progress != "" {
		c.Sort.Progress = e.Progress
	}
	if e.LogLevel != "" {
		c.Logging.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		c.Logging.Format = e.LogFormat
	}
	return nil
}

func (c *Config) normalize() {
	c.Sort.Progress = strings.ToLower(strings.TrimSpace(c.Sort.Progress))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	exclude := c.Sort.Exclude[:0]
	for _, pattern := range c.Sort.Exclude {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			exclude = append(exclude, filepath.ToSlash(pattern))
		}
	}
	c.Sort.Exclude = exclude
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// Sample returns the commented sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
