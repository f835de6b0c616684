// Package config loads runtime configuration from environment variables
// layered over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SEMINAR_"

// Config holds everything the service needs at startup.
type Config struct {
	Port            string `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	APIBaseURL      string `koanf:"api_base_url"`
	APIKey          string `koanf:"api_key"`
	ProjectID       string `koanf:"project_id"`
	ExportBucket    string `koanf:"export_bucket"`
	ExportRoleArn   string `koanf:"export_role_arn"`
	ConfirmTemplate string `koanf:"confirm_template"`
	TemplateVersion string `koanf:"template_version"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":             "8080",
		"log_level":        "info",
		"confirm_template": "seminar_confirmation",
		"template_version": "3",
	}
}

// Load reads SEMINAR_* environment variables over the defaults. APIBaseURL,
// APIKey and ProjectID have no defaults and must be set.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.APIBaseURL == "" {
		missing = append(missing, envPrefix+"API_BASE_URL")
	}
	if c.APIKey == "" {
		missing = append(missing, envPrefix+"API_KEY")
	}
	if c.ProjectID == "" {
		missing = append(missing, envPrefix+"PROJECT_ID")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level, defaulting to
// info for unknown names.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
