package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTopic             = "stock"
	DefaultBasePath          = "/api"
	DefaultAPITimeout        = 30 * time.Second
	DefaultCSRFCookie        = "csrftoken"
	DefaultReconnectDelay    = 5 * time.Second
	DefaultReconnectMaxDelay = 60 * time.Second
	DefaultBackoffFactor     = 1.0
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPongTimeout       = 60 * time.Second
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 1 * time.Second
	DefaultChannelPrefix     = "notify:"
	DefaultQueueSize         = 1024
	DefaultConnectTimeout    = 10 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// DefaultEventTypes are the events the server pushes.
var DefaultEventTypes = []string{"sales_notification", "low_stock_alert", "stock_update"}

func (c *Config) applyDefaults() {
	if c.Server.Topic == "" {
		c.Server.Topic = DefaultTopic
	}

	// API defaults
	if c.API.BasePath == "" {
		c.API.BasePath = DefaultBasePath
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.CSRFCookie == "" {
		c.API.CSRFCookie = DefaultCSRFCookie
	}

	// Connection defaults
	if c.Connection.ReconnectDelay == 0 {
		c.Connection.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = max(DefaultReconnectMaxDelay, c.Connection.ReconnectDelay)
	}
	if c.Connection.BackoffFactor == 0 {
		c.Connection.BackoffFactor = DefaultBackoffFactor
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PongTimeout == 0 {
		c.Connection.PongTimeout = DefaultPongTimeout
	}

	// Archive defaults
	applyDBDefaults(&c.Archive.Database)
	if len(c.Archive.EventTypes) == 0 {
		c.Archive.EventTypes = append([]string(nil), DefaultEventTypes...)
	}
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}

	// Relay defaults
	if c.Relay.ChannelPrefix == "" {
		c.Relay.ChannelPrefix = DefaultChannelPrefix
	}
	if len(c.Relay.EventTypes) == 0 {
		c.Relay.EventTypes = append([]string(nil), DefaultEventTypes...)
	}
	if c.Relay.QueueSize == 0 {
		c.Relay.QueueSize = DefaultQueueSize
	}
	if c.Relay.ConnectTimeout == 0 {
		c.Relay.ConnectTimeout = DefaultConnectTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
