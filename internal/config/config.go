// Package config loads notifyd configuration from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. NOTIFY_SERVER_ORIGIN.
const EnvPrefix = "NOTIFY_"

// Config is the top-level configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	API        APIConfig        `yaml:"api" envPrefix:"API_"`
	Connection ConnectionConfig `yaml:"connection" envPrefix:"CONNECTION_"`
	Archive    ArchiveConfig    `yaml:"archive" envPrefix:"ARCHIVE_"`
	Relay      RelayConfig      `yaml:"relay" envPrefix:"RELAY_"`
	Health     HealthConfig     `yaml:"health" envPrefix:"HEALTH_"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig identifies the server and the channel topic.
type ServerConfig struct {
	Origin string `yaml:"origin" env:"ORIGIN"` // e.g. https://shop.example.com
	Topic  string `yaml:"topic" env:"TOPIC"`   // e.g. stock, inventory
}

// APIConfig configures the Request Client.
type APIConfig struct {
	BasePath      string        `yaml:"base_path" env:"BASE_PATH"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	CSRFToken     string        `yaml:"csrf_token" env:"CSRF_TOKEN"`
	CSRFTokenFile string        `yaml:"csrf_token_file" env:"CSRF_TOKEN_FILE"`
	CSRFCookie    string        `yaml:"csrf_cookie" env:"CSRF_COOKIE"`
	SessionID     string        `yaml:"session_id" env:"SESSION_ID"` // sessionid cookie for authenticated channels
}

// ConnectionConfig configures the WebSocket channel.
type ConnectionConfig struct {
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
	ReconnectMaxDelay time.Duration `yaml:"reconnect_max_delay" env:"RECONNECT_MAX_DELAY"`
	BackoffFactor     float64       `yaml:"backoff_factor" env:"BACKOFF_FACTOR"`
	MaxAttempts       int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	PingInterval      time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	PongTimeout       time.Duration `yaml:"pong_timeout" env:"PONG_TIMEOUT"`
}

// ArchiveConfig configures persistence of received events.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	Database      DBConfig      `yaml:"database" envPrefix:"DB_"`
	EventTypes    []string      `yaml:"event_types" env:"EVENT_TYPES"`
	BatchSize     int           `yaml:"batch_size" env:"BATCH_SIZE"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxConns int    `yaml:"max_conns" env:"MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"MIN_CONNS"`
}

// RelayConfig configures republishing of received events to Redis.
type RelayConfig struct {
	Enabled        bool          `yaml:"enabled" env:"ENABLED"`
	URL            string        `yaml:"url" env:"URL"`
	ChannelPrefix  string        `yaml:"channel_prefix" env:"CHANNEL_PREFIX"`
	EventTypes     []string      `yaml:"event_types" env:"EVENT_TYPES"`
	QueueSize      int           `yaml:"queue_size" env:"QUEUE_SIZE"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

// HealthConfig configures the health endpoint. An empty Addr disables it.
type HealthConfig struct {
	Addr string `yaml:"addr" env:"ADDR"` // e.g. :8080
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"FORMAT"` // text, json
}

// Load reads a YAML file, expanding ${VAR} references before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads path (skipped when empty), applies NOTIFY_* environment
// overrides and then overrides, fills defaults and validates the result.
func LoadWithDefaults(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from NOTIFY_* environment variables. Unset
// variables leave the current value untouched.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
