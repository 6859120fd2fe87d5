package notify

import (
	"log/slog"
	"time"

	"github.com/ibrahzuma/umoja-hardware-system/internal/events"
)

// LowStockTitle is the title of every low stock toast.
const LowStockTitle = "Low Stock Warning"

// Register wires the default toasts: sales notifications as success toasts and
// low stock alerts as warnings.
func Register(sub events.Subscriber, r Renderer, logger *slog.Logger) []events.Subscription {
	if logger == nil {
		logger = slog.Default()
	}

	sales := sub.On(EventSalesNotification, func(msg events.Message) {
		var n SalesNotification
		if !decode(msg, &n, logger) {
			return
		}
		r.Render(Toast{Title: n.Title, Message: n.Body, Level: LevelSuccess, At: receivedAt(msg)})
	})

	lowStock := sub.On(EventLowStockAlert, func(msg events.Message) {
		var a LowStockAlert
		if !decode(msg, &a, logger) {
			return
		}
		r.Render(Toast{Title: LowStockTitle, Message: a.Text(), Level: LevelWarning, At: receivedAt(msg)})
	})

	return []events.Subscription{sales, lowStock}
}

// OnStockUpdate registers fn for decoded stock_update payloads.
func OnStockUpdate(sub events.Subscriber, fn func(StockUpdate, events.Message), logger *slog.Logger) events.Subscription {
	if logger == nil {
		logger = slog.Default()
	}
	return sub.On(EventStockUpdate, func(msg events.Message) {
		var u StockUpdate
		if !decode(msg, &u, logger) {
			return
		}
		fn(u, msg)
	})
}

func decode(msg events.Message, v any, logger *slog.Logger) bool {
	if err := msg.Decode(v); err != nil {
		logger.Warn("ignoring notification with unusable data",
			"event_type", msg.Type,
			"conn_id", msg.ConnID,
			"error", err,
		)
		return false
	}
	return true
}

func receivedAt(msg events.Message) time.Time {
	if msg.ReceivedAt.IsZero() {
		return time.Now()
	}
	return msg.ReceivedAt
}
