// Package config loads loom's ambient configuration: a YAML file of
// optional structural defaults (storage URL, backend provider/model,
// parallelism cap, log level) merged with the recognized environment
// variables of spec §6, any of which may be left unset.
//
// Grounded on pkg/config/loader.go's load→merge→defaults pipeline,
// generalized from tarsy's agent/chain/MCP registries down to loom's
// much smaller surface.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// MaxParallelism is spec §6's PARALLELISM cap.
const MaxParallelism = 16

// Config is loom's resolved runtime configuration.
type Config struct {
	Storage     string        `yaml:"storage"`
	Parallelism int           `yaml:"parallelism"`
	Backend     BackendConfig `yaml:"backend"`
	LogLevel    string        `yaml:"log_level"`

	// Credentials are sourced from the environment only, never from the
	// YAML file (spec §6: "forwarded opaquely"), so they carry no yaml tag.
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
}

// BackendConfig configures backend.CreateBackend's defaults.
type BackendConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Default returns loom's built-in defaults (spec §6 defaults column).
func Default() *Config {
	return &Config{
		Storage:     "file://./runs",
		Parallelism: 8,
		Backend:     BackendConfig{Provider: "mock"},
		LogLevel:    "info",
	}
}

// Load resolves configuration from, in increasing priority: built-in
// defaults, an optional YAML file at path (skipped entirely if path is
// empty or the file does not exist), then recognized environment
// variables. A YAML file that exists but fails to parse is an error;
// a missing one is not, since every setting here is documented as
// optional in spec §6.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, NewLoadError(path, err)
			}
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(ExpandEnv(raw), &fileCfg); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
			}
			// mergo.WithOverride: non-zero fields in fileCfg win over the
			// built-in defaults already in cfg, matching loader.go's
			// "merge user-provided config into defaults" queue-config idiom.
			if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("config: merge %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays the recognized environment variables of spec §6
// onto cfg, taking priority over both defaults and the YAML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("STORAGE"); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv("PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Parallelism = n
		}
	}
	if cfg.Parallelism > MaxParallelism {
		cfg.Parallelism = MaxParallelism
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Backend.Provider = v
	}
	if v := os.Getenv("MODEL"); v != "" {
		cfg.Backend.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
}

// SlogLevel maps spec §6's LOG_LEVEL vocabulary onto log/slog's levels.
// slog has no "trace" level; it is treated as an alias for debug.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
