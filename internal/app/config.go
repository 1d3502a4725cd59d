package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mindmorass/clipdeck/internal/backend"
	"github.com/mindmorass/clipdeck/internal/keychain"
	"github.com/mindmorass/clipdeck/internal/llm"
)

const (
	// ConfigFileName is the config file name (without extension)
	ConfigFileName = "config"

	// ConfigDir is the directory for config and data files
	ConfigDir = ".clipdeck"

	// EnvAPIKey names the environment variable holding the provider credential
	EnvAPIKey = "API_KEY"

	// KeychainAccount is the account the credential is stored under
	KeychainAccount = "default"
)

// Config holds application configuration
type Config struct {
	// AI provider
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Local API and history
	ListenAddr      string        `mapstructure:"listen_addr"`
	WebURL          string        `mapstructure:"web_url"`
	DatabasePath    string        `mapstructure:"database_path"`
	CaptureEnabled  bool          `mapstructure:"capture_enabled"`
	CaptureInterval time.Duration `mapstructure:"capture_interval"`
	AutoEnrich      bool          `mapstructure:"auto_enrich"`
	HistoryLimit    int           `mapstructure:"history_limit"`

	// Backup destination
	BackendType    string `mapstructure:"backend_type"` // "local", "s3", or "dropbox"
	SharedLocation string `mapstructure:"shared_location"`

	// S3-specific settings
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`

	// Dropbox-specific settings (tokens live in the keychain)
	DropboxAppKey    string `mapstructure:"dropbox_app_key"`
	DropboxAppSecret string `mapstructure:"dropbox_app_secret"`
	DropboxPath      string `mapstructure:"dropbox_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// dir is where the config file was looked up
	dir string
}

// defaults is shared by DefaultConfig and the viper defaults
var defaults = map[string]any{
	"provider":           llm.ProviderGemini,
	"model":              "",
	"base_url":           "",
	"request_timeout":    60 * time.Second,
	"listen_addr":        "127.0.0.1:7777",
	"web_url":            "",
	"database_path":      "",
	"capture_enabled":    true,
	"capture_interval":   250 * time.Millisecond,
	"auto_enrich":        false,
	"history_limit":      1000,
	"backend_type":       string(backend.BackendLocal),
	"shared_location":    "",
	"s3_bucket":          "",
	"s3_prefix":          "",
	"s3_region":          "",
	"s3_endpoint":        "",
	"dropbox_app_key":    "",
	"dropbox_app_secret": "",
	"dropbox_path":       "",
	"log_level":          "info",
	"log_format":         "console",
	"log_file":           "",
}

// DefaultConfig returns the default configuration with environment
// overrides applied
func DefaultConfig() *Config {
	cfg, err := decode(newViper(DefaultDir()))
	if err != nil {
		cfg = &Config{}
	}
	cfg.normalize()
	return cfg
}

// DefaultDir returns ~/.clipdeck
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ConfigDir)
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// CLIPDECK_LOG_LEVEL and friends override the file
	v.SetEnvPrefix("CLIPDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", EnvAPIKey)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads config.yaml from dir (DefaultDir when empty). A missing
// file yields the defaults.
func LoadConfig(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure config directory: %w", err)
	}

	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.dir = dir
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.dir == "" {
		c.dir = DefaultDir()
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		c.DatabasePath = filepath.Join(c.dir, "history.db")
	}
	c.DatabasePath = expandHome(c.DatabasePath)
	c.SharedLocation = expandHome(c.SharedLocation)
	c.LogFile = expandHome(c.LogFile)
	if c.HistoryLimit < 0 {
		c.HistoryLimit = 0
	}
	if c.CaptureInterval <= 0 {
		c.CaptureInterval = defaults["capture_interval"].(time.Duration)
	}
	if c.RequestTimeout < 0 {
		c.RequestTimeout = 0
	}
}

// SaveConfig writes cfg to config.yaml in its directory. The credential is
// never written back.
func SaveConfig(cfg *Config) error {
	dir := cfg.Dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}

	v := viper.New()
	v.Set("provider", cfg.Provider)
	v.Set("model", cfg.Model)
	v.Set("base_url", cfg.BaseURL)
	v.Set("request_timeout", cfg.RequestTimeout.String())
	v.Set("listen_addr", cfg.ListenAddr)
	v.Set("web_url", cfg.WebURL)
	v.Set("database_path", cfg.DatabasePath)
	v.Set("capture_enabled", cfg.CaptureEnabled)
	v.Set("capture_interval", cfg.CaptureInterval.String())
	v.Set("auto_enrich", cfg.AutoEnrich)
	v.Set("history_limit", cfg.HistoryLimit)
	v.Set("backend_type", cfg.BackendType)
	v.Set("shared_location", cfg.SharedLocation)
	v.Set("s3_bucket", cfg.S3Bucket)
	v.Set("s3_prefix", cfg.S3Prefix)
	v.Set("s3_region", cfg.S3Region)
	v.Set("s3_endpoint", cfg.S3Endpoint)
	v.Set("dropbox_app_key", cfg.DropboxAppKey)
	v.Set("dropbox_app_secret", cfg.DropboxAppSecret)
	v.Set("dropbox_path", cfg.DropboxPath)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)
	v.Set("log_file", cfg.LogFile)

	configPath := filepath.Join(dir, ConfigFileName+".yaml")
	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Dir returns the directory holding config.yaml
func (c *Config) Dir() string {
	if c.dir == "" {
		return DefaultDir()
	}
	return c.dir
}

// BackendConfig converts the backup settings for backend.New
func (c *Config) BackendConfig() *backend.Config {
	return &backend.Config{
		Type:             backend.BackendType(strings.ToLower(strings.TrimSpace(c.BackendType))),
		Location:         c.SharedLocation,
		S3Bucket:         c.S3Bucket,
		S3Prefix:         c.S3Prefix,
		S3Region:         c.S3Region,
		S3Endpoint:       c.S3Endpoint,
		DropboxAppKey:    c.DropboxAppKey,
		DropboxAppSecret: c.DropboxAppSecret,
		DropboxPath:      c.DropboxPath,
	}
}

// WebUIURL returns where the browser UI is served
func (c *Config) WebUIURL() string {
	if u := strings.TrimSpace(c.WebURL); u != "" {
		return u
	}
	return "http://" + c.ListenAddr
}

// keychainLookup is replaced in tests
var keychainLookup = func() ([]byte, error) {
	return keychain.Item{Service: keychain.ServiceAPIKey, Account: KeychainAccount}.Load()
}

// ResolveAPIKey returns the credential and where it came from. The
// environment and config file are already merged into cfg.APIKey by viper;
// the keychain is consulted last. An empty key is not an error.
func ResolveAPIKey(cfg *Config) (key, source string) {
	if k := strings.TrimSpace(os.Getenv(EnvAPIKey)); k != "" {
		return k, "env"
	}
	if k := strings.TrimSpace(cfg.APIKey); k != "" {
		return k, "config"
	}
	if data, err := keychainLookup(); err == nil {
		if k := strings.TrimSpace(string(data)); k != "" {
			return k, "keychain"
		}
	}
	return "", ""
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
