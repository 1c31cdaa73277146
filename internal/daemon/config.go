// Package daemon manages the Drive Nest daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/storage"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/upload"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Upload    UploadConfig    `toml:"upload"`
	Storage   storage.Config  `toml:"storage"`
	Events    EventsConfig    `toml:"events"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// UploadConfig controls the upload manager.
type UploadConfig struct {
	MaxConcurrent   int      `toml:"max_concurrent"`
	MaxFileSize     string   `toml:"max_file_size"`    // "100MB"
	TransferTimeout string   `toml:"transfer_timeout"` // "10m"; empty = none
	StagingDir      string   `toml:"staging_dir"`
	AllowedTypes    []string `toml:"allowed_types"` // extensions; empty = all
}

// EventsConfig controls publishing of upload events to Redis.
// An empty address disables publishing.
type EventsConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisChannel  string `toml:"redis_channel"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	File   string `toml:"file"`   // empty = stderr
	Format string `toml:"format"` // text | json
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a local-disk configuration rooted at the home dir.
func DefaultConfig() Config {
	homeDir := driveNestHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8420,
			CORSOrigins: []string{"*"},
		},
		Upload: UploadConfig{
			MaxConcurrent: 3,
			MaxFileSize:   "100MB",
			StagingDir:    filepath.Join(homeDir, "staging"),
		},
		Storage: storage.Config{
			Backend: storage.KindLocal,
			Local:   storage.LocalConfig{Root: filepath.Join(homeDir, "files")},
			Breaker: storage.DefaultBreakerConfig(),
		},
		Events: EventsConfig{
			RedisChannel: "drivenest:events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// ManagerConfig converts the [upload] section into upload manager limits.
func (c Config) ManagerConfig() (upload.Config, error) {
	out := upload.DefaultConfig()
	if c.Upload.MaxConcurrent != 0 {
		out.MaxConcurrent = c.Upload.MaxConcurrent
	}
	if c.Upload.MaxFileSize != "" {
		n, err := domain.ParseSize(c.Upload.MaxFileSize)
		if err != nil {
			return out, fmt.Errorf("upload.max_file_size: %w", err)
		}
		out.MaxFileSize = n
	}
	if c.Upload.TransferTimeout != "" {
		d, err := time.ParseDuration(c.Upload.TransferTimeout)
		if err != nil {
			return out, fmt.Errorf("upload.transfer_timeout: %w", err)
		}
		out.TransferTimeout = d
	}
	return out, nil
}

// TypeFilter returns the validator filter for [upload] allowed_types.
func (c Config) TypeFilter() upload.TypeFilter {
	if len(c.Upload.AllowedTypes) == 0 {
		return upload.AcceptAll
	}
	return upload.AllowExtensions(c.Upload.AllowedTypes...)
}

// QuotaBytes parses [storage] quota. Zero means unlimited.
func (c Config) QuotaBytes() (int64, error) {
	if c.Storage.Quota == "" {
		return 0, nil
	}
	n, err := domain.ParseSize(c.Storage.Quota)
	if err != nil {
		return 0, fmt.Errorf("storage.quota: %w", err)
	}
	return n, nil
}

// Addr returns host:port for the API listener.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(driveNestHome(), "config.toml")
}

// LoadConfig reads config from $DRIVENEST_HOME/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.ManagerConfig(); err != nil {
		return cfg, err
	}
	if _, err := cfg.QuotaBytes(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to $DRIVENEST_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// driveNestHome returns the Drive Nest data directory.
func driveNestHome() string {
	if env := os.Getenv("DRIVENEST_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".drivenest")
}

// Home is exported for use by other packages.
func Home() string {
	return driveNestHome()
}
