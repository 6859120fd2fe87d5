package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Level is the toast severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Toast is a short-lived user-facing notification.
type Toast struct {
	Title   string
	Message string
	Level   Level
	At      time.Time
}

// Renderer displays toasts.
type Renderer interface {
	Render(Toast)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Toast)

// Render calls f.
func (f RendererFunc) Render(t Toast) {
	f(t)
}

type textRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

// TextRenderer writes one line per toast to w.
func TextRenderer(w io.Writer) Renderer {
	return &textRenderer{w: w}
}

func (r *textRenderer) Render(t Toast) {
	level := t.Level
	if level == "" {
		level = LevelInfo
	}
	line := fmt.Sprintf("%s [%s] %s: %s\n",
		t.At.Format(time.TimeOnly),
		strings.ToUpper(string(level)),
		t.Title,
		t.Message,
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.w, line)
}

// LogRenderer logs each toast at a level matching its severity.
func LogRenderer(logger *slog.Logger) Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return RendererFunc(func(t Toast) {
		logger.Log(context.Background(), slogLevel(t.Level), t.Title,
			"message", t.Message,
			"level", string(t.Level),
			"at", t.At,
		)
	})
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelWarning:
		return slog.LevelWarn
	case LevelDanger:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
