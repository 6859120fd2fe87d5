package connection

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrStopped         = errors.New("connection manager stopped")
	ErrNilDialer       = errors.New("nil dialer")
)

// Config configures the reconnect policy of a Manager.
type Config struct {
	ReconnectDelay    time.Duration // Delay before the first retry after a close
	ReconnectMaxDelay time.Duration // Upper bound when BackoffFactor > 1 (0 = ReconnectDelay)
	BackoffFactor     float64       // Multiplier per consecutive retry (<= 1 = fixed delay)
	MaxAttempts       int           // Consecutive retries without an open session (0 = unbounded)
}

// DefaultConfig returns the fixed 5 second, unbounded retry policy.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay: 5 * time.Second,
		BackoffFactor:  1,
	}
}

// Delay returns the wait before retry number attempt (1-based).
func (c Config) Delay(attempt int) time.Duration {
	wait := c.ReconnectDelay
	if wait <= 0 {
		wait = DefaultConfig().ReconnectDelay
	}
	if c.BackoffFactor <= 1 || attempt <= 1 {
		return wait
	}

	maxWait := c.ReconnectMaxDelay
	if maxWait < wait {
		maxWait = wait
	}
	for i := 1; i < attempt; i++ {
		next := time.Duration(float64(wait) * c.BackoffFactor)
		if next >= maxWait {
			return maxWait
		}
		wait = next
	}
	return wait
}

// DialerConfig configures the WebSocket dialer.
type DialerConfig struct {
	HandshakeTimeout time.Duration  // Opening handshake deadline
	PingInterval     time.Duration  // Keepalive ping period (0 = disabled)
	PongTimeout      time.Duration  // Max silence before the read fails (0 = no deadline)
	WriteTimeout     time.Duration  // Deadline for control frames
	Jar              http.CookieJar // Session cookies sent with the handshake
	Header           http.Header    // Extra handshake headers
}

// DefaultDialerConfig returns sensible defaults.
func DefaultDialerConfig() DialerConfig {
	return DialerConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// StateEvent describes one state transition.
type StateEvent struct {
	ConnID uuid.UUID // Session the transition belongs to (uuid.Nil when none)
	From   State
	To     State
	Err    error // Transport error that caused the transition, if any
}

// Stats provides counters about the manager.
type Stats struct {
	State           State
	Sessions        int64 // Physical connections dialed
	Reconnects      int64 // Retries fired by the timer
	FramesReceived  int64
	DecodeErrors    int64
	Dispatched      int64 // Handler invocations that returned normally
	HandlerFailures int64 // Handler invocations that panicked
}
