package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ibrahzuma/umoja-hardware-system/internal/events"
)

// BatchSender sends a batch of queries. Satisfied by *pgxpool.Pool.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures a Writer.
type Config struct {
	BatchSize     int           // Rows per flush
	FlushInterval time.Duration // Max time a row waits before flushing
	MaxPending    int           // Rows buffered before new ones are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		MaxPending:    10000,
	}
}

// Stats contains writer metrics.
type Stats struct {
	Received  int64
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

type row struct {
	ID         uuid.UUID
	ConnID     uuid.UUID
	EventType  string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Writer batches dispatched messages into the notifications table.
type Writer struct {
	cfg    Config
	db     BatchSender
	logger *slog.Logger

	// Batching
	batch   []row
	batchMu sync.Mutex
	flushCh chan struct{}
	flushMu sync.Mutex // serializes flushes

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats Stats
}

// NewWriter creates a Writer. Zero config fields take their defaults.
func NewWriter(cfg Config, db BatchSender, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.MaxPending < cfg.BatchSize {
		cfg.MaxPending = cfg.BatchSize * 100
	}

	return &Writer{
		cfg:     cfg,
		db:      db,
		logger:  logger,
		batch:   make([]row, 0, cfg.BatchSize),
		flushCh: make(chan struct{}, 1),
	}
}

// Register subscribes Handle to each event type.
func (w *Writer) Register(sub events.Subscriber, eventTypes []string) []events.Subscription {
	subs := make([]events.Subscription, 0, len(eventTypes))
	for _, t := range eventTypes {
		subs = append(subs, sub.On(t, w.Handle))
	}
	return subs
}

// Handle queues msg for the next flush. It never blocks on the database.
func (w *Writer) Handle(msg events.Message) {
	r := row{
		ID:         msg.ID,
		ConnID:     msg.ConnID,
		EventType:  msg.Type,
		Payload:    msg.Raw,
		ReceivedAt: msg.ReceivedAt,
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now()
	}

	w.batchMu.Lock()
	w.stats.Received++
	if len(w.batch) >= w.cfg.MaxPending {
		w.stats.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("archive backlog full, dropping message",
			"event_type", msg.Type,
			"message_id", r.ID,
		)
		return
	}
	w.batch = append(w.batch, r)
	full := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if full {
		select {
		case w.flushCh <- struct{}{}:
		default:
		}
	}
}

// Start begins the flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop halts the flush loop and writes whatever is still pending.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
		return ctx.Err()
	}

	// Final flush
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// Pending returns the number of rows waiting for a flush.
func (w *Writer) Pending() int {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return len(w.batch)
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		case <-w.flushCh:
			w.flush(w.ctx)
		}
	}
}

// flush writes up to one batch per round until the pending rows are drained.
func (w *Writer) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	for {
		w.batchMu.Lock()
		if len(w.batch) == 0 {
			w.batchMu.Unlock()
			return
		}
		n := min(len(w.batch), w.cfg.BatchSize)
		rows := make([]row, n)
		copy(rows, w.batch)
		w.batch = append(w.batch[:0], w.batch[n:]...)
		w.batchMu.Unlock()

		start := time.Now()
		conflicts, err := w.batchInsert(ctx, rows)
		if err != nil {
			w.logger.Error("batch insert failed", "error", err, "count", len(rows))
			w.batchMu.Lock()
			w.stats.Errors++
			w.batchMu.Unlock()
			return
		}

		w.batchMu.Lock()
		w.stats.Inserts += int64(len(rows) - conflicts)
		w.stats.Conflicts += int64(conflicts)
		w.stats.Flushes++
		w.batchMu.Unlock()

		w.logger.Debug("flushed notifications",
			"count", len(rows),
			"conflicts", conflicts,
			"duration", time.Since(start),
		)
	}
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []row) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL, r.ID, r.ConnID, r.EventType, r.Payload, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
