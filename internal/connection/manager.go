package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahzuma/umoja-hardware-system/internal/events"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer sets the transport used to open sessions.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		m.dialer = d
	}
}

// WithClock sets the clock used for the reconnect timer.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRegistry shares an existing Event Registry.
func WithRegistry(r *events.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithObserver installs a hook that receives every state transition.
// The hook runs with the manager lock held and must not call back into
// the Manager or block.
func WithObserver(fn func(StateEvent)) Option {
	return func(m *Manager) {
		m.observer = fn
	}
}

// session is one physical connection attempt.
type session struct {
	id   uuid.UUID
	conn Conn // nil until the dial succeeds
}

// Manager maintains one logical reconnecting channel to an Endpoint.
type Manager struct {
	endpoint Endpoint
	cfg      Config
	dialer   Dialer
	clock    Clock
	registry *events.Registry
	observer func(StateEvent)
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu       sync.Mutex
	state    State
	current  *session
	retry    Timer
	retryGen uint64
	attempts int // Consecutive closes without an open session

	// Stats
	sessions        atomic.Int64
	reconnects      atomic.Int64
	frames          atomic.Int64
	decodeErrors    atomic.Int64
	dispatched      atomic.Int64
	handlerFailures atomic.Int64
}

// NewManager creates a Manager in StateIdle. Nothing is dialed until Connect.
func NewManager(endpoint Endpoint, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		endpoint: endpoint,
		cfg:      cfg,
		clock:    realClock{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.registry == nil {
		m.registry = events.NewRegistry(m.logger)
	}
	if m.dialer == nil {
		m.dialer = NewDialer(DefaultDialerConfig(), m.logger)
	}
	m.logger = m.logger.With("endpoint", endpoint.URL())
	m.ctx, m.cancel = context.WithCancel(context.Background())

	return m
}

// Connect opens a session unless one is already connecting or open.
// A pending retry is cancelled and replaced by an immediate dial.
// Connect never blocks; the dial runs in the background.
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateStopped:
		return ErrStopped
	case StateConnecting, StateOpen:
		return nil
	case StateClosed:
		m.cancelRetryLocked()
	}

	m.attempts = 0
	m.startSessionLocked()
	return nil
}

// On registers h for eventType. Safe before or after Connect; the
// registration survives reconnects.
func (m *Manager) On(eventType string, h events.Handler) events.Subscription {
	return m.registry.On(eventType, h)
}

// Off removes a registration made with On.
func (m *Manager) Off(sub events.Subscription) bool {
	return m.registry.Off(sub)
}

// Registry returns the Event Registry messages are dispatched to.
func (m *Manager) Registry() *events.Registry {
	return m.registry
}

// Endpoint returns the resolved endpoint.
func (m *Manager) Endpoint() Endpoint {
	return m.endpoint
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns current statistics.
func (m *Manager) Stats() Stats {
	return Stats{
		State:           m.State(),
		Sessions:        m.sessions.Load(),
		Reconnects:      m.reconnects.Load(),
		FramesReceived:  m.frames.Load(),
		DecodeErrors:    m.decodeErrors.Load(),
		Dispatched:      m.dispatched.Load(),
		HandlerFailures: m.handlerFailures.Load(),
	}
}

// Stop closes the current session, cancels any pending retry and waits
// for the session goroutine to exit. The Manager cannot be reused.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return nil
	}
	m.cancelRetryLocked()
	var conn Conn
	if m.current != nil {
		conn = m.current.conn
	}
	m.current = nil
	m.setStateLocked(StateStopped, uuid.Nil, nil)
	m.mu.Unlock()

	m.logger.Info("stopping connection manager")
	m.cancel()

	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("connection manager stopped")
	case <-ctx.Done():
		m.logger.Warn("connection manager stop timed out")
		return ctx.Err()
	}

	return closeErr
}

// startSessionLocked dials a new session. Caller holds m.mu.
func (m *Manager) startSessionLocked() {
	s := &session{id: uuid.New()}
	m.current = s
	m.sessions.Add(1)
	m.setStateLocked(StateConnecting, s.id, nil)

	m.wg.Add(1)
	go m.runSession(s)
}

// runSession dials, then reads frames until the session ends.
func (m *Manager) runSession(s *session) {
	defer m.wg.Done()

	conn, err := m.dialer.Dial(m.ctx, m.endpoint.URL())
	if err != nil {
		if m.ctx.Err() == nil {
			m.logger.Warn("websocket error", "conn_id", s.id, "error", err)
		}
		m.sessionClosed(s, err)
		return
	}

	if !m.sessionOpened(s, conn) {
		conn.Close()
		return
	}

	for {
		data, err := conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			if m.ctx.Err() == nil && !isNormalClose(err) {
				m.logger.Warn("websocket error", "conn_id", s.id, "error", err)
			}
			conn.Close()
			m.sessionClosed(s, err)
			return
		}

		m.handleFrame(s, data, receivedAt)
	}
}

// sessionOpened promotes s to StateOpen. Returns false if s was superseded.
func (m *Manager) sessionOpened(s *session, conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != s || m.state != StateConnecting {
		return false
	}

	s.conn = conn
	m.attempts = 0
	m.setStateLocked(StateOpen, s.id, nil)
	m.logger.Info("websocket connected", "conn_id", s.id)
	return true
}

// sessionClosed moves to StateClosed and arms exactly one retry.
func (m *Manager) sessionClosed(s *session, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != s || m.state == StateStopped {
		return
	}
	s.conn = nil

	m.attempts++
	if m.cfg.MaxAttempts > 0 && m.attempts > m.cfg.MaxAttempts {
		m.logger.Error("websocket disconnected, giving up",
			"conn_id", s.id,
			"attempts", m.cfg.MaxAttempts,
		)
		m.current = nil
		m.setStateLocked(StateIdle, s.id, cause)
		return
	}

	delay := m.cfg.Delay(m.attempts)
	m.retryGen++
	gen := m.retryGen
	m.retry = m.clock.AfterFunc(delay, func() {
		m.fireRetry(gen)
	})

	m.setStateLocked(StateClosed, s.id, cause)
	m.logger.Info("websocket disconnected, reconnecting",
		"conn_id", s.id,
		"delay", delay,
		"attempt", m.attempts,
	)
}

// fireRetry starts a new session if the retry is still the pending one.
func (m *Manager) fireRetry(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.retryGen || m.state != StateClosed {
		return
	}
	m.retry = nil
	m.reconnects.Add(1)
	m.startSessionLocked()
}

// cancelRetryLocked stops the pending retry, if any. Caller holds m.mu.
func (m *Manager) cancelRetryLocked() {
	m.retryGen++
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

// handleFrame decodes one frame and dispatches it to the registry.
// Undecodable frames are dropped without affecting the session.
// Frames from a session that is no longer current are not counted.
func (m *Manager) handleFrame(s *session, data []byte, receivedAt time.Time) {
	m.mu.Lock()
	live := m.current == s && m.state == StateOpen
	m.mu.Unlock()
	if !live {
		return
	}

	m.frames.Add(1)

	msg, err := events.Parse(data)
	if err != nil {
		m.decodeErrors.Add(1)
		m.logger.Debug("dropping undecodable frame",
			"conn_id", s.id,
			"size", len(data),
			"error", err,
		)
		return
	}

	msg.ConnID = s.id
	msg.ReceivedAt = receivedAt

	delivered, failed := m.registry.Trigger(msg.Type, msg)
	m.dispatched.Add(int64(delivered))
	m.handlerFailures.Add(int64(failed))
}

// setStateLocked records a transition and notifies the observer. Caller holds m.mu.
func (m *Manager) setStateLocked(to State, connID uuid.UUID, cause error) {
	from := m.state
	m.state = to
	if m.observer != nil {
		m.observer(StateEvent{ConnID: connID, From: from, To: to, Err: cause})
	}
}
