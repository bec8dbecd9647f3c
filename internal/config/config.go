package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is used when no base URL is configured anywhere.
const DefaultAPIURL = "http://localhost:8000"

// Environment variables consulted by Load.
const (
	EnvAPIURL    = "EXPENSECTL_API_URL"
	EnvStateDir  = "EXPENSECTL_STATE_DIR"
	EnvStore     = "EXPENSECTL_STORE"
	EnvLogLevel  = "EXPENSECTL_LOG_LEVEL"
	EnvLogFormat = "EXPENSECTL_LOG_FORMAT"
)

// ClientConfig holds configuration for the expensectl client.
type ClientConfig struct {
	APIURL    string `yaml:"api_url"`   // Backend base address (default http://localhost:8000)
	StateDir  string `yaml:"state_dir"` // Directory for the persisted session (default ~/.expensectl)
	Store     string `yaml:"store"`     // Session backend: file, sqlite, memory
	LogLevel  string `yaml:"log_level"` // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"`
	Timeout   string `yaml:"timeout"` // Per-request timeout, Go duration syntax
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIURL:    DefaultAPIURL,
		StateDir:  defaultStateDir(),
		Store:     "file",
		LogLevel:  "info",
		LogFormat: "text",
		Timeout:   "30s",
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".expensectl"
	}
	return filepath.Join(home, ".expensectl")
}

// DefaultConfigPath is the YAML file Load reads when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(defaultStateDir(), "config.yaml")
}

// Load layers configuration: defaults, then the YAML file at path (missing
// file is fine), then a .env file in the working directory, then the
// process environment. Flags are applied by the caller on top.
func Load(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	if err := cfg.mergeFile(path); err != nil {
		return cfg, err
	}

	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	cfg.mergeEnv()

	return cfg, nil
}

func (c *ClientConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var file ClientConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.overlay(file)
	return nil
}

func (c *ClientConfig) mergeEnv() {
	c.overlay(ClientConfig{
		APIURL:    os.Getenv(EnvAPIURL),
		StateDir:  os.Getenv(EnvStateDir),
		Store:     os.Getenv(EnvStore),
		LogLevel:  os.Getenv(EnvLogLevel),
		LogFormat: os.Getenv(EnvLogFormat),
	})
}

// overlay copies every non-empty field of o onto c.
func (c *ClientConfig) overlay(o ClientConfig) {
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.StateDir != "" {
		c.StateDir = o.StateDir
	}
	if o.Store != "" {
		c.Store = o.Store
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.Timeout != "" {
		c.Timeout = o.Timeout
	}
}
