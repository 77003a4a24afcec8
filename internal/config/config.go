package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is used when neither the config file nor IRONNOTE_API_URL set one
	DefaultAPIURL = "http://localhost:8080"
	// DefaultRequestTimeout bounds each remote mutation or fetch
	DefaultRequestTimeout = 15 * time.Second
)

// Config holds user preferences
type Config struct {
	APIURL         string        `yaml:"api_url" json:"api_url"`                 // Base URL of the REST API
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"` // Per-request timeout
	ConfirmDelete  bool          `yaml:"confirm_delete" json:"confirm_delete"`   // Ask before confirming a delete
	CachePath      string        `yaml:"cache_path" json:"cache_path"`           // SQLite file for the local cache

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// Dir returns the ironnote home directory (~/.ironnote, or $IRONNOTE_HOME)
func Dir() (string, error) {
	if dir := os.Getenv("IRONNOTE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ironnote"), nil
}

// SessionPath is where the login session is stored
func SessionPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir, _ := Dir()
	logPath, cachePath := "", ""
	if dir != "" {
		logPath = filepath.Join(dir, "logs", "ironnote.log")
		cachePath = filepath.Join(dir, "cache.db")
	}

	return &Config{
		RequestTimeout: DefaultRequestTimeout,
		ConfirmDelete:  true,
		CachePath:      cachePath,
		APIURL:         getEnv("IRONNOTE_API_URL", DefaultAPIURL),
		LogLevel:       getEnv("IRONNOTE_LOG_LEVEL", "INFO"),
		LogFile:        getEnv("IRONNOTE_LOG_FILE", logPath),
		LogConsole:     getEnv("IRONNOTE_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load loads config from <Dir>/config.yaml
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.yaml"))
}

// LoadFrom loads config from path, falling back to defaults when it does not exist.
// IRONNOTE_API_URL always wins over the file.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if url := os.Getenv("IRONNOTE_API_URL"); url != "" {
		cfg.APIURL = url
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return cfg, nil
}

// Save saves config to <Dir>/config.yaml
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return c.SaveTo(filepath.Join(dir, "config.yaml"))
}

// SaveTo writes the config as YAML to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
