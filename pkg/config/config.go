// Package config handles loading and saving qb configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/qb/config.yaml
//   - State:   ~/.local/state/qb/ (local database, log file)
//
// A handful of settings can be overridden from the environment so secrets do
// not have to live in the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "qb"

// Environment overrides, applied after the config file is read.
const (
	EnvAPIURL          = "QB_API_URL"
	EnvAPIToken        = "QB_API_TOKEN"
	EnvEmailServiceID  = "QB_EMAILJS_SERVICE_ID"
	EnvEmailTemplateID = "QB_EMAILJS_TEMPLATE_ID"
	EnvEmailPublicKey  = "QB_EMAILJS_PUBLIC_KEY"
)

// DefaultEmailEndpoint is the EmailJS send endpoint.
const DefaultEmailEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// APIConfig describes the questionnaire backend.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url,omitempty"`
	Token         string        `yaml:"token,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	PublicBaseURL string        `yaml:"public_base_url,omitempty"` // Links sent to respondents
}

// EmailConfig holds the transactional email credentials.
type EmailConfig struct {
	ServiceID  string `yaml:"service_id,omitempty"`
	TemplateID string `yaml:"template_id,omitempty"`
	PublicKey  string `yaml:"public_key,omitempty"`
	Endpoint   string `yaml:"endpoint,omitempty"`
}

// UIConfig holds editor preferences.
type UIConfig struct {
	ExpandNew bool `yaml:"expand_new,omitempty"` // Expand a parent when a child is added
}

// StorageConfig locates the local database.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LogConfig controls the log sink.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Config is the top-level configuration for qb.
type Config struct {
	API     APIConfig     `yaml:"api,omitempty"`
	Email   EmailConfig   `yaml:"email,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
		},
		Email: EmailConfig{
			Endpoint: DefaultEmailEndpoint,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the XDG config directory for qb.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for qb.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig (plus environment overrides) if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path and applies environment
// overrides. A missing file is not an error.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Log.File = expandHome(cfg.Log.File)
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// 0600: the file may hold an API token
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from QB_* environment variables. Empty
// variables are ignored.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{EnvAPIURL, &c.API.BaseURL},
		{EnvAPIToken, &c.API.Token},
		{EnvEmailServiceID, &c.Email.ServiceID},
		{EnvEmailTemplateID, &c.Email.TemplateID},
		{EnvEmailPublicKey, &c.Email.PublicKey},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
}

// PublicURL returns the base used for links sent to respondents.
func (c Config) PublicURL() string {
	if c.API.PublicBaseURL != "" {
		return c.API.PublicBaseURL
	}
	return c.API.BaseURL
}

// StoragePath returns the local database path, defaulting to the state dir.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if dir := StateDir(); dir != "" {
		return filepath.Join(dir, "qb.db")
	}
	return ""
}

// LogFile returns the log file path, defaulting to the state dir.
func (c Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	if dir := StateDir(); dir != "" {
		return filepath.Join(dir, "qb.log")
	}
	return ""
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
