package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Sync      SyncConfig      `yaml:"sync"`
	Export    ExportConfig    `yaml:"export"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Path, when set, also writes logs to a size-capped file.
	Path string `yaml:"path"`
}

// TransportConfig selects how tools are served: "http" or "stdio".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

// SyncConfig controls how often storage is re-read for changes made by
// other processes. Zero disables polling.
type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ExportConfig sets where server-side exports are written. Empty means
// exports are only returned to the caller.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "inkwell.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: TransportHTTP,
		},
		Auth: AuthConfig{
			BcryptCost: 10,
		},
		Sync: SyncConfig{
			PollInterval: 5 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("INKWELL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("INKWELL_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("INKWELL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INKWELL_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("INKWELL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("INKWELL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("INKWELL_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("INKWELL_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if costStr := os.Getenv("INKWELL_AUTH_BCRYPT_COST"); costStr != "" {
		cost, err := strconv.Atoi(costStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INKWELL_AUTH_BCRYPT_COST: %w", err)
		}
		cfg.Auth.BcryptCost = cost
	}
	if intervalStr := os.Getenv("INKWELL_SYNC_POLL_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INKWELL_SYNC_POLL_INTERVAL: %w", err)
		}
		cfg.Sync.PollInterval = interval
	}
	if dir := os.Getenv("INKWELL_EXPORT_DIR"); dir != "" {
		cfg.Export.Dir = dir
	}

	cfg.Transport.Mode = strings.ToLower(strings.TrimSpace(cfg.Transport.Mode))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	switch c.Transport.Mode {
	case TransportHTTP, TransportStdio:
	default:
		errs = append(errs, fmt.Errorf("transport.mode must be %q or %q, got %q", TransportHTTP, TransportStdio, c.Transport.Mode))
	}
	if c.Sync.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("sync.poll_interval must not be negative: %s", c.Sync.PollInterval))
	}
	return errors.Join(errs...)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
