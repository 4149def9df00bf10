package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/langhelper/internal/api"
)

// Config holds configuration for the langhelper client
type Config struct {
	API       APIConfig    `yaml:"api"`
	Saver     SaverConfig  `yaml:"saver"`
	Engine    EngineConfig `yaml:"engine"`
	LogLevel  string       `yaml:"log_level"`
	LogFile   string       `yaml:"log_file"`
	CachePath string       `yaml:"cache_path"`
}

// APIConfig holds backend settings
type APIConfig struct {
	BaseURL                  string        `yaml:"base_url"`
	PublicBaseURL            string        `yaml:"public_base_url"`
	RequestTimeoutSeconds    int           `yaml:"request_timeout_seconds"`
	GenerationTimeoutSeconds int           `yaml:"generation_timeout_seconds"`
	Endpoints                api.Endpoints `yaml:"endpoints"`
}

// RequestTimeout returns the per-request timeout
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// GenerationTimeout returns the bound on a generation request
func (c APIConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// SaverConfig holds the defaults for saving exercises
type SaverConfig struct {
	UseFallback bool `yaml:"use_fallback"`
	LogErrors   bool `yaml:"log_errors"`
}

// EngineConfig holds interaction settings
type EngineConfig struct {
	RevertDelayMS int `yaml:"revert_delay_ms"`
}

// RevertDelay returns how long an incorrect placement stays visible
func (c EngineConfig) RevertDelay() time.Duration {
	return time.Duration(c.RevertDelayMS) * time.Millisecond
}

// Dir returns the path to ~/.langhelper
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".langhelper"), nil
}

// EnsureDir creates ~/.langhelper and its subdirectories
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}

	subdirs := []string{"", "logs", "cache", "pending", "exercises"}
	for _, sub := range subdirs {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:                  "http://localhost:8080",
			RequestTimeoutSeconds:    30,
			GenerationTimeoutSeconds: 40,
			Endpoints:                api.DefaultEndpoints(),
		},
		Saver: SaverConfig{
			UseFallback: true,
			LogErrors:   true,
		},
		Engine: EngineConfig{
			RevertDelayMS: 1500,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads dir/config.yaml over the defaults, then applies dir/.env
// and the LANGHELPER_* environment. A missing file is not an error. Relative
// paths are resolved against dir.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(cfg)

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join("logs", "langhelper.log")
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join("cache", "history.db")
	}
	cfg.LogFile = resolve(dir, cfg.LogFile)
	cfg.CachePath = resolve(dir, cfg.CachePath)

	return cfg, nil
}

// SaveConfig writes cfg to dir/config.yaml
func SaveConfig(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
