// Package config loads and validates service configuration from YAML,
// with ${ENV_VAR} expansion so secrets stay in the environment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Provider  ProviderConfig  `yaml:"provider"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
}

// ServiceConfig covers the HTTP surface and process-level state.
type ServiceConfig struct {
	Listen         string `yaml:"listen"`
	PublicBaseURL  string `yaml:"public_base_url"`
	LogLevel       string `yaml:"log_level"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	StatePath      string `yaml:"state_path"`
	LockPath       string `yaml:"lock_path"`
}

// ProviderConfig identifies and paces the remote document provider.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	PollInterval time.Duration `yaml:"poll_interval"`
	AwaitTimeout time.Duration `yaml:"await_timeout"`
}

// ArtifactsConfig controls result storage and retention.
type ArtifactsConfig struct {
	Root          string        `yaml:"root"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads configuration from path. An empty path yields defaults
// plus whatever the environment provides, so the service can run with
// no config file at all.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvVars substitutes ${VAR} references with environment values.
// Unset variables expand to the empty string so validation can report
// them by name.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Service.Listen == "" {
		cfg.Service.Listen = ":3000"
	}
	if cfg.Service.PublicBaseURL == "" {
		cfg.Service.PublicBaseURL = "http://localhost:3000"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "INFO"
	}
	if cfg.Service.MaxUploadBytes <= 0 {
		cfg.Service.MaxUploadBytes = 20 * 1024 * 1024
	}
	if cfg.Service.StatePath == "" {
		cfg.Service.StatePath = "data/pdfrelay.db"
	}
	if cfg.Service.LockPath == "" {
		cfg.Service.LockPath = "data/pdfrelay.lock"
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = os.Getenv("PDF_SERVICES_BASE_URL")
	}
	if cfg.Provider.ClientID == "" {
		cfg.Provider.ClientID = os.Getenv("PDF_SERVICES_CLIENT_ID")
	}
	if cfg.Provider.ClientSecret == "" {
		cfg.Provider.ClientSecret = os.Getenv("PDF_SERVICES_CLIENT_SECRET")
	}
	if cfg.Provider.PollInterval <= 0 {
		cfg.Provider.PollInterval = 2 * time.Second
	}
	if cfg.Provider.AwaitTimeout <= 0 {
		cfg.Provider.AwaitTimeout = 2 * time.Minute
	}

	if cfg.Artifacts.Root == "" {
		cfg.Artifacts.Root = "temp"
	}
	if cfg.Artifacts.TTL <= 0 {
		cfg.Artifacts.TTL = 5 * time.Minute
	}
	if cfg.Artifacts.SweepInterval <= 0 {
		cfg.Artifacts.SweepInterval = 10 * time.Second
	}
}

func validate(cfg *Config) error {
	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required (or set PDF_SERVICES_BASE_URL)")
	}
	if cfg.Provider.ClientID == "" {
		return fmt.Errorf("provider.client_id is required (or set PDF_SERVICES_CLIENT_ID)")
	}
	if cfg.Provider.ClientSecret == "" {
		return fmt.Errorf("provider.client_secret is required (or set PDF_SERVICES_CLIENT_SECRET)")
	}
	if cfg.Artifacts.TTL < time.Second {
		return fmt.Errorf("artifacts.ttl must be at least 1s, got %s", cfg.Artifacts.TTL)
	}
	return nil
}
