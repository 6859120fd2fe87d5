package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ibrahzuma/umoja-hardware-system/internal/archive"
	"github.com/ibrahzuma/umoja-hardware-system/internal/connection"
	"github.com/ibrahzuma/umoja-hardware-system/internal/relay"
)

// healthSources are read on every request. Optional components are nil when disabled.
type healthSources struct {
	endpoint string
	conn     func() connection.Stats
	archive  func() archive.Stats
	relay    func() relay.Stats
}

type healthResponse struct {
	Status     string         `json:"status"`
	Endpoint   string         `json:"endpoint"`
	Components map[string]any `json:"components"`
}

// newHealthHandler serves GET /health. An open channel is healthy, a channel
// waiting to reconnect is degraded, anything else is unhealthy.
func newHealthHandler(src healthSources) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		stats := src.conn()

		resp := healthResponse{
			Endpoint:   src.endpoint,
			Components: map[string]any{"connection": connectionHealth(stats)},
		}

		switch stats.State {
		case connection.StateOpen:
			resp.Status = "healthy"
		case connection.StateConnecting, connection.StateClosed:
			resp.Status = "degraded"
		default:
			resp.Status = "unhealthy"
		}

		if src.archive != nil {
			resp.Components["archive"] = src.archive()
		}
		if src.relay != nil {
			resp.Components["relay"] = src.relay()
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	})

	return r
}

func connectionHealth(s connection.Stats) map[string]any {
	return map[string]any{
		"state":            s.State.String(),
		"sessions":         s.Sessions,
		"reconnects":       s.Reconnects,
		"frames_received":  s.FramesReceived,
		"decode_errors":    s.DecodeErrors,
		"dispatched":       s.Dispatched,
		"handler_failures": s.HandlerFailures,
	}
}
