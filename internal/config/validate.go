package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Origin == "" {
		return errors.New("server.origin is required")
	}
	u, err := url.Parse(c.Server.Origin)
	if err != nil || u.Host == "" {
		return fmt.Errorf("server.origin must be an absolute URL, got %q", c.Server.Origin)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("server.origin scheme must be http, https, ws or wss, got %q", u.Scheme)
	}
	if c.Server.Topic == "" {
		return errors.New("server.topic is required")
	}

	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be > 0")
	}

	if c.Connection.ReconnectDelay <= 0 {
		return errors.New("connection.reconnect_delay must be > 0")
	}
	if c.Connection.BackoffFactor < 1 {
		return fmt.Errorf("connection.backoff_factor must be >= 1, got %g", c.Connection.BackoffFactor)
	}
	// The cap only applies when the delay grows.
	if c.Connection.BackoffFactor > 1 && c.Connection.ReconnectMaxDelay < c.Connection.ReconnectDelay {
		return fmt.Errorf("connection.reconnect_max_delay (%s) cannot be less than reconnect_delay (%s)",
			c.Connection.ReconnectMaxDelay, c.Connection.ReconnectDelay)
	}
	if c.Connection.MaxAttempts < 0 {
		return errors.New("connection.max_attempts must be >= 0")
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.FlushInterval <= 0 {
			return errors.New("archive.flush_interval must be > 0")
		}
	}

	if c.Relay.Enabled {
		if c.Relay.URL == "" {
			return errors.New("relay.url is required")
		}
		if c.Relay.QueueSize < 1 {
			return errors.New("relay.queue_size must be >= 1")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
