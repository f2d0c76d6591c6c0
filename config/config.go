// Package config loads assembly configuration from YAML files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xraph/confy"
	"gopkg.in/yaml.v3"

	"github.com/xraph/graft/internal/errors"
	"github.com/xraph/graft/internal/logger"
	"github.com/xraph/graft/internal/metrics"
)

// Config configures an assembly.
type Config struct {
	// Requirements is "manual" (fail the build on unresolved dependencies)
	// or "contract" (expose them for comparison).
	Requirements string                `yaml:"requirements"`
	RootScope    string                `yaml:"root_scope"`
	Logging      logger.LoggingConfig  `yaml:"logging"`
	Metrics      metrics.MetricsConfig `yaml:"metrics"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Requirements: "manual",
		RootScope:    "root",
		Logging: logger.LoggingConfig{
			Level:       "info",
			Format:      "json",
			Environment: "production",
		},
		Metrics: metrics.MetricsConfig{
			Enabled:   false,
			Namespace: "graft",
		},
	}
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decodeInto(&cfg, data); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.ErrInvalidConfig(path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeInto(cfg *Config, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return errors.ErrInvalidConfig("yaml", err)
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	switch strings.ToLower(c.Requirements) {
	case "", "manual", "contract":
	default:
		return errors.ErrInvalidConfig("requirements", fmt.Errorf("unknown mode %q, want manual or contract", c.Requirements))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.ErrInvalidConfig("logging.level", fmt.Errorf("unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return errors.ErrInvalidConfig("logging.format", fmt.Errorf("unknown format %q", c.Logging.Format))
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.ErrInvalidConfig("metrics.namespace", fmt.Errorf("namespace is required when metrics are enabled"))
	}
	return nil
}

// DiscoveryConfig controls where Discover looks for configuration files.
type DiscoveryConfig struct {
	// Start is the first directory searched. Defaults to the working directory.
	Start string
	// Names are the base file names tried in each directory.
	Names []string
	// LocalNames are override files decoded over the base file.
	LocalNames []string
	// MaxDepth bounds how many parent directories are searched.
	MaxDepth int
}

// DefaultDiscoveryConfig searches for graft.yaml and graft.local.yaml up to
// five parent directories.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Names:      []string{"graft.yaml", "graft.yml"},
		LocalNames: []string{"graft.local.yaml", "graft.local.yml"},
		MaxDepth:   5,
	}
}

// Discover walks from dc.Start towards the filesystem root and stops at the
// first directory holding a base or a local file. The local file is decoded
// over the base file. It returns the path of the file that was found, the
// base file when both exist, or the defaults and an empty path when nothing
// is found.
func Discover(dc DiscoveryConfig) (Config, string, error) {
	start := dc.Start
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, "", errors.ErrInvalidConfig("discovery", err)
		}
		start = wd
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return Config{}, "", errors.ErrInvalidConfig("discovery", err)
	}

	_, found, err := confy.DiscoverAndLoadConfigs(confy.AutoDiscoveryConfig{
		SearchPaths:      []string{dir},
		ConfigNames:      dc.Names,
		LocalConfigNames: dc.LocalNames,
		// The start directory counts as one level.
		MaxDepth:         dc.MaxDepth + 1,
		EnableAppScoping: false,
	})
	if err != nil {
		return Config{}, "", errors.ErrInvalidConfig("discovery", err)
	}
	if found == nil || (found.BaseConfigPath == "" && found.LocalConfigPath == "") {
		return Default(), "", nil
	}

	cfg, err := loadLayers(found.BaseConfigPath, found.LocalConfigPath)
	if err != nil {
		return Config{}, "", err
	}
	if found.BaseConfigPath != "" {
		return cfg, found.BaseConfigPath, nil
	}
	return cfg, found.LocalConfigPath, nil
}

// loadLayers decodes each existing file over the defaults, in order.
func loadLayers(paths ...string) (Config, error) {
	cfg := Default()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.ErrInvalidConfig(path, err)
		}
		if err := decodeInto(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
