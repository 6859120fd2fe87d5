package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ibrahzuma/umoja-hardware-system/internal/version"
)

// Conn is one physical WebSocket session.
type Conn interface {
	// ReadMessage blocks until the next data frame arrives or the session ends.
	ReadMessage() ([]byte, error)

	// Close ends the session. Safe to call more than once.
	Close() error
}

// Dialer opens physical sessions.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsDialer implements Dialer with gorilla/websocket.
type wsDialer struct {
	cfg    DialerConfig
	logger *slog.Logger
}

// NewDialer creates a gorilla/websocket backed Dialer.
func NewDialer(cfg DialerConfig, logger *slog.Logger) Dialer {
	if logger == nil {
		logger = slog.Default()
	}

	return &wsDialer{
		cfg:    cfg,
		logger: logger,
	}
}

// Dial performs the opening handshake.
func (d *wsDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	header := d.cfg.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Origin") == "" {
		if origin := originOf(rawURL); origin != "" {
			header.Set("Origin", origin)
		}
	}
	header.Set("User-Agent", version.UserAgent())

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		Jar:              d.cfg.Jar,
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", rawURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}

	c := &wsConn{
		conn:   conn,
		cfg:    d.cfg,
		logger: d.logger,
		done:   make(chan struct{}),
	}
	c.extendDeadline()

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		c.extendDeadline()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	// Server responds to our ping
	conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	if d.cfg.PingInterval > 0 {
		go c.heartbeatLoop()
	}

	d.logger.Debug("websocket connected", "url", rawURL)

	return c, nil
}

// wsConn implements Conn.
type wsConn struct {
	conn   *websocket.Conn
	cfg    DialerConfig
	logger *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// ReadMessage returns the payload of the next text or binary frame.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	c.extendDeadline()
	return data, nil
}

// Close sends a close frame and closes the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) extendDeadline() {
	if c.cfg.PongTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	}
}

// heartbeatLoop sends keepalive pings until the session closes.
func (c *wsConn) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	writeTimeout := c.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

// originOf maps ws://host/... to http://host and wss://host/... to https://host.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "wss", "https":
		return "https://" + u.Host
	default:
		return "http://" + u.Host
	}
}

// isNormalClose reports whether err is a clean close initiated by either side.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
