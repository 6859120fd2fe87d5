package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
server:
  origin: https://shop.example.com
  topic: inventory
api:
  base_path: /api
  csrf_token: abc
connection:
  reconnect_delay: 2s
  max_attempts: 3
archive:
  enabled: true
  database:
    host: localhost
    port: 5432
    name: notify_db
    user: notify
    password: notifypass
  event_types: [sales_notification]
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Origin != "https://shop.example.com" {
		t.Errorf("Server.Origin = %q, want %q", cfg.Server.Origin, "https://shop.example.com")
	}
	if cfg.Server.Topic != "inventory" {
		t.Errorf("Server.Topic = %q, want %q", cfg.Server.Topic, "inventory")
	}
	if cfg.Connection.ReconnectDelay != 2*time.Second {
		t.Errorf("Connection.ReconnectDelay = %v, want %v", cfg.Connection.ReconnectDelay, 2*time.Second)
	}
	if cfg.Connection.MaxAttempts != 3 {
		t.Errorf("Connection.MaxAttempts = %d, want 3", cfg.Connection.MaxAttempts)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Database.Name != "notify_db" {
		t.Errorf("Archive = %+v, want enabled with notify_db", cfg.Archive)
	}
	if !reflect.DeepEqual(cfg.Archive.EventTypes, []string{"sales_notification"}) {
		t.Errorf("Archive.EventTypes = %v", cfg.Archive.EventTypes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempFile(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")
	t.Setenv("TEST_SHOP_HOST", "shop.internal:8443")

	yaml := `
server:
  origin: https://${TEST_SHOP_HOST}
archive:
  database:
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Archive.Database.Password != "secret123" {
		t.Errorf("Archive.Database.Password = %q, want %q", cfg.Archive.Database.Password, "secret123")
	}
	if cfg.Server.Origin != "https://shop.internal:8443" {
		t.Errorf("Server.Origin = %q", cfg.Server.Origin)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
server:
  origin: http://localhost:8000
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Server.Topic != DefaultTopic {
		t.Errorf("Server.Topic = %q, want default %q", cfg.Server.Topic, DefaultTopic)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Connection.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Connection.ReconnectDelay = %v, want default %v", cfg.Connection.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Connection.BackoffFactor != DefaultBackoffFactor {
		t.Errorf("Connection.BackoffFactor = %v, want default %v", cfg.Connection.BackoffFactor, DefaultBackoffFactor)
	}
	if cfg.Connection.MaxAttempts != 0 {
		t.Errorf("Connection.MaxAttempts = %d, want 0 (unbounded)", cfg.Connection.MaxAttempts)
	}
	if cfg.Archive.Database.Port != DefaultDBPort {
		t.Errorf("Archive.Database.Port = %d, want default %d", cfg.Archive.Database.Port, DefaultDBPort)
	}
	if !reflect.DeepEqual(cfg.Relay.EventTypes, DefaultEventTypes) {
		t.Errorf("Relay.EventTypes = %v, want %v", cfg.Relay.EventTypes, DefaultEventTypes)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, DefaultLogFormat)
	}
}

func TestLoadWithDefaultsEnvOverrides(t *testing.T) {
	t.Setenv("NOTIFY_SERVER_ORIGIN", "https://env.example.com")
	t.Setenv("NOTIFY_SERVER_TOPIC", "inventory")
	t.Setenv("NOTIFY_CONNECTION_RECONNECT_DELAY", "750ms")
	t.Setenv("NOTIFY_RELAY_EVENT_TYPES", "stock_update,low_stock_alert")
	t.Setenv("NOTIFY_ARCHIVE_DB_HOST", "db.internal")

	yaml := `
server:
  origin: http://file.example.com
  topic: stock
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Origin != "https://env.example.com" {
		t.Errorf("Server.Origin = %q, want env override", cfg.Server.Origin)
	}
	if cfg.Server.Topic != "inventory" {
		t.Errorf("Server.Topic = %q, want env override", cfg.Server.Topic)
	}
	if cfg.Connection.ReconnectDelay != 750*time.Millisecond {
		t.Errorf("Connection.ReconnectDelay = %v, want 750ms", cfg.Connection.ReconnectDelay)
	}
	if !reflect.DeepEqual(cfg.Relay.EventTypes, []string{"stock_update", "low_stock_alert"}) {
		t.Errorf("Relay.EventTypes = %v", cfg.Relay.EventTypes)
	}
	if cfg.Archive.Database.Host != "db.internal" {
		t.Errorf("Archive.Database.Host = %q, want db.internal", cfg.Archive.Database.Host)
	}
}

func TestLoadWithDefaultsNoFile(t *testing.T) {
	t.Setenv("NOTIFY_SERVER_ORIGIN", "http://localhost:8000")

	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Server.Origin != "http://localhost:8000" {
		t.Errorf("Server.Origin = %q", cfg.Server.Origin)
	}
}

func TestLoadWithDefaultsOverrides(t *testing.T) {
	t.Setenv("NOTIFY_SERVER_TOPIC", "stock")

	cfg, err := LoadWithDefaults("", func(c *Config) {
		c.Server.Origin = "https://flag.example.com"
		c.Server.Topic = "inventory"
	})
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Server.Topic != "inventory" {
		t.Errorf("Server.Topic = %q, want override to win over env", cfg.Server.Topic)
	}
}

func TestLoadWithDefaultsInvalid(t *testing.T) {
	path := writeTempFile(t, "log:\n  level: loud\n")

	_, err := LoadWithDefaults(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "invalid config: ") {
		t.Errorf("error = %q, want invalid config prefix", err.Error())
	}
}

func TestLoadWithDefaultsLongFixedDelay(t *testing.T) {
	path := writeTempFile(t, "server:\n  origin: http://localhost:8000\nconnection:\n  reconnect_delay: 90s\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Connection.ReconnectDelay != 90*time.Second {
		t.Errorf("Connection.ReconnectDelay = %v, want 90s", cfg.Connection.ReconnectDelay)
	}
	if cfg.Connection.ReconnectMaxDelay != 90*time.Second {
		t.Errorf("Connection.ReconnectMaxDelay = %v, want 90s", cfg.Connection.ReconnectMaxDelay)
	}
}

func validConfig() Config {
	cfg := Config{Server: ServerConfig{Origin: "https://shop.example.com"}}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing origin",
			mutate:  func(c *Config) { c.Server.Origin = "" },
			wantErr: "server.origin is required",
		},
		{
			name:    "relative origin",
			mutate:  func(c *Config) { c.Server.Origin = "/shop" },
			wantErr: `server.origin must be an absolute URL, got "/shop"`,
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.Server.Origin = "ftp://shop.example.com" },
			wantErr: `server.origin scheme must be http, https, ws or wss, got "ftp"`,
		},
		{
			name:    "missing topic",
			mutate:  func(c *Config) { c.Server.Topic = "" },
			wantErr: "server.topic is required",
		},
		{
			name:    "backoff below one",
			mutate:  func(c *Config) { c.Connection.BackoffFactor = 0.5 },
			wantErr: "connection.backoff_factor must be >= 1, got 0.5",
		},
		{
			name: "max delay below delay with backoff",
			mutate: func(c *Config) {
				c.Connection.ReconnectMaxDelay = time.Second
				c.Connection.BackoffFactor = 2
			},
			wantErr: "connection.reconnect_max_delay (1s) cannot be less than reconnect_delay (5s)",
		},
		{
			name: "long fixed delay",
			mutate: func(c *Config) {
				c.Connection.ReconnectDelay = 90 * time.Second
				c.Connection.ReconnectMaxDelay = time.Second
			},
			wantErr: "",
		},
		{
			name:    "negative max attempts",
			mutate:  func(c *Config) { c.Connection.MaxAttempts = -1 },
			wantErr: "connection.max_attempts must be >= 0",
		},
		{
			name:    "archive without database",
			mutate:  func(c *Config) { c.Archive.Enabled = true },
			wantErr: "archive.database.host is required",
		},
		{
			name: "archive min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "archive.database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "relay without url",
			mutate:  func(c *Config) { c.Relay.Enabled = true },
			wantErr: "relay.url is required",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name: "valid with archive and relay",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 4, MinConns: 1}
				c.Relay.Enabled = true
				c.Relay.URL = "redis://localhost:6379/0"
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
