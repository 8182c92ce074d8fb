package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Transport TransportConfig `yaml:"transport"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPPort   int    `yaml:"http_port"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// TransportConfig holds remote file-transfer settings
type TransportConfig struct {
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// IngestConfig holds scheduler intervals, one per stream kind
type IngestConfig struct {
	LogInterval      time.Duration `yaml:"log_interval"`
	KillFeedInterval time.Duration `yaml:"killfeed_interval"`
	MaxConcurrent    int           `yaml:"max_concurrent"`
}

// NotifyConfig holds notification sink settings. An empty URL disables
// NATS publishing; events are then only logged.
type NotifyConfig struct {
	NatsURL string `yaml:"nats_url"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued settings.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/zonewatch/zonewatch.db"
	}
	if cfg.Auth.TokenDuration == 0 {
		cfg.Auth.TokenDuration = 24 * time.Hour
	}
	if cfg.Transport.DialTimeout == 0 {
		cfg.Transport.DialTimeout = 15 * time.Second
	}
	if cfg.Ingest.LogInterval == 0 {
		cfg.Ingest.LogInterval = 60 * time.Second
	}
	if cfg.Ingest.KillFeedInterval == 0 {
		cfg.Ingest.KillFeedInterval = 120 * time.Second
	}
	if cfg.Ingest.MaxConcurrent == 0 {
		cfg.Ingest.MaxConcurrent = 4
	}
}
