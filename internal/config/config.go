// Package config loads application configuration from an optional YAML file
// and environment variables. Environment variables override file values.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	ExportDir  string `yaml:"export_dir"`
	AssetDir   string `yaml:"asset_dir"`

	// GitHubToken is the user-supplied fallback token. The embedded-platform
	// connector path, when detected, takes priority over it.
	GitHubToken string `yaml:"github_token"`

	// ConnectorURL and IdentityToken configure the embedded-platform
	// credential connector. Both must be present for the connector path.
	ConnectorURL  string `yaml:"connector_url"`
	IdentityToken string `yaml:"identity_token"`

	// PlatformHost is a hostname suffix identifying the embedded platform.
	// Used as a secondary environment-detection signal.
	PlatformHost string `yaml:"platform_host"`

	// EncryptionKeyB64 is the base64-encoded 32-byte AES-256 key for the
	// credential store. Empty disables credential persistence.
	EncryptionKeyB64 string `yaml:"encryption_key"`

	// CacheVersion tags the worker's cache store; bumping it evicts every
	// store carrying an older tag on the next activate.
	CacheVersion string `yaml:"cache_version"`

	// ReminderInterval is how often the reminder scheduler re-checks.
	ReminderInterval time.Duration `yaml:"reminder_interval"`
}

// EncryptionKey decodes the configured AES key. Returns (nil, nil) when no
// key is configured.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.EncryptionKeyB64 == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyB64)
	if err != nil {
		return nil, fmt.Errorf("PROMPTVAULT_ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PROMPTVAULT_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// ConnectorDetected reports whether the embedded-platform connector path
// should be used: an explicit connector endpoint plus identity token, or a
// hostname matching the platform suffix.
func (c *Config) ConnectorDetected(hostname string) bool {
	if c.ConnectorURL != "" && c.IdentityToken != "" {
		return true
	}
	if c.PlatformHost == "" || hostname == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(hostname), strings.ToLower(c.PlatformHost))
}

// Load reads configuration. An optional YAML file named by PROMPTVAULT_CONFIG
// is applied over defaults, then PROMPTVAULT_* environment variables override
// individual fields.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       "127.0.0.1:8080",
		DBPath:           "promptvault.db",
		ExportDir:        "exports",
		AssetDir:         "assets",
		CacheVersion:     "v2",
		ReminderInterval: 60 * time.Minute,
	}

	if path := os.Getenv("PROMPTVAULT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	overrideString(&cfg.ListenAddr, "PROMPTVAULT_LISTEN_ADDR")
	overrideString(&cfg.DBPath, "PROMPTVAULT_DB_PATH")
	overrideString(&cfg.ExportDir, "PROMPTVAULT_EXPORT_DIR")
	overrideString(&cfg.AssetDir, "PROMPTVAULT_ASSET_DIR")
	overrideString(&cfg.GitHubToken, "PROMPTVAULT_GITHUB_TOKEN")
	overrideString(&cfg.ConnectorURL, "PROMPTVAULT_CONNECTOR_URL")
	overrideString(&cfg.IdentityToken, "PROMPTVAULT_IDENTITY_TOKEN")
	overrideString(&cfg.PlatformHost, "PROMPTVAULT_PLATFORM_HOST")
	overrideString(&cfg.EncryptionKeyB64, "PROMPTVAULT_ENCRYPTION_KEY")
	overrideString(&cfg.CacheVersion, "PROMPTVAULT_CACHE_VERSION")

	if v, ok := os.LookupEnv("PROMPTVAULT_REMINDER_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PROMPTVAULT_REMINDER_INTERVAL has invalid duration %q: %w", v, err)
		}
		cfg.ReminderInterval = parsed
	}

	if cfg.ReminderInterval <= 0 {
		return nil, fmt.Errorf("reminder_interval must be positive, got %s", cfg.ReminderInterval)
	}

	return cfg, nil
}

func overrideString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok {
		*dst = v
	}
}
