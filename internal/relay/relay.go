package relay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ibrahzuma/umoja-hardware-system/internal/events"
)

// Publisher publishes a message on a channel. Satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Config configures a Relay.
type Config struct {
	ChannelPrefix  string        // Channel is ChannelPrefix + event type
	QueueSize      int           // Messages buffered before new ones are dropped
	PublishTimeout time.Duration // Per-publish deadline
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChannelPrefix:  "notify:",
		QueueSize:      1024,
		PublishTimeout: 5 * time.Second,
	}
}

// Stats contains relay metrics.
type Stats struct {
	Queued      int64
	Published   int64
	Subscribers int64 // Sum of receivers reported by Redis
	Dropped     int64
	Errors      int64
}

// Relay forwards the raw frame of each handled message to Redis.
type Relay struct {
	cfg    Config
	pub    Publisher
	logger *slog.Logger
	queue  chan events.Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	queued      atomic.Int64
	published   atomic.Int64
	subscribers atomic.Int64
	dropped     atomic.Int64
	errors      atomic.Int64
}

// New creates a Relay. Zero config fields take their defaults.
func New(cfg Config, pub Publisher, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.QueueSize < 1 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}

	return &Relay{
		cfg:    cfg,
		pub:    pub,
		logger: logger,
		queue:  make(chan events.Message, cfg.QueueSize),
	}
}

// Channel returns the Redis channel for an event type.
func (r *Relay) Channel(eventType string) string {
	return r.cfg.ChannelPrefix + eventType
}

// Register subscribes Handle to each event type.
func (r *Relay) Register(sub events.Subscriber, eventTypes []string) []events.Subscription {
	subs := make([]events.Subscription, 0, len(eventTypes))
	for _, t := range eventTypes {
		subs = append(subs, sub.On(t, r.Handle))
	}
	return subs
}

// Handle queues msg for publishing. When the queue is full the message is dropped.
func (r *Relay) Handle(msg events.Message) {
	select {
	case r.queue <- msg:
		r.queued.Add(1)
	default:
		r.dropped.Add(1)
		r.logger.Warn("relay queue full, dropping message",
			"event_type", msg.Type,
			"message_id", msg.ID,
		)
	}
}

// Start begins publishing queued messages.
func (r *Relay) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.publishLoop()

	r.logger.Info("relay started",
		"channel_prefix", r.cfg.ChannelPrefix,
		"queue_size", r.cfg.QueueSize,
	)
	return nil
}

// Stop halts publishing. Messages still queued are published until ctx expires.
func (r *Relay) Stop(ctx context.Context) error {
	r.logger.Info("stopping relay")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("relay stop timed out")
		return ctx.Err()
	}

	// Drain
	for {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("relay drain timed out", "remaining", len(r.queue))
			return err
		}
		select {
		case msg := <-r.queue:
			r.publish(ctx, msg)
		default:
			r.logger.Info("relay stopped")
			return nil
		}
	}
}

// Stats returns current metrics.
func (r *Relay) Stats() Stats {
	return Stats{
		Queued:      r.queued.Load(),
		Published:   r.published.Load(),
		Subscribers: r.subscribers.Load(),
		Dropped:     r.dropped.Load(),
		Errors:      r.errors.Load(),
	}
}

func (r *Relay) publishLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg := <-r.queue:
			r.publish(r.ctx, msg)
		}
	}
}

func (r *Relay) publish(ctx context.Context, msg events.Message) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()

	channel := r.Channel(msg.Type)
	receivers, err := r.pub.Publish(ctx, channel, []byte(msg.Raw)).Result()
	if err != nil {
		r.errors.Add(1)
		r.logger.Error("relay publish failed",
			"channel", channel,
			"message_id", msg.ID,
			"error", err,
		)
		return
	}

	r.published.Add(1)
	r.subscribers.Add(receivers)
	r.logger.Debug("relayed message",
		"channel", channel,
		"receivers", receivers,
	)
}
