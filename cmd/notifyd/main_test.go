package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahzuma/umoja-hardware-system/internal/archive"
	"github.com/ibrahzuma/umoja-hardware-system/internal/config"
	"github.com/ibrahzuma/umoja-hardware-system/internal/connection"
)

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	var out, errOut syncBuffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(context.Background(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "notifyd version dev")
	assert.Contains(t, out, "go version:")
}

func TestRequestCmd(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":1,"name":"Cement"}]`)
	})
	r.Post("/api/sales/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-abc", r.Header.Get("X-CSRFToken"))
		cookie, err := r.Cookie("sessionid")
		if assert.NoError(t, err) {
			assert.Equal(t, "sess-1", cookie.Value)
		}
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":["Insufficient stock for Cement"]}`)
	})
	r.Delete("/api/sales/4/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(r)
	defer server.Close()

	t.Setenv("NOTIFY_API_CSRF_TOKEN", "tok-abc")
	t.Setenv("NOTIFY_API_SESSION_ID", "sess-1")

	t.Run("success", func(t *testing.T) {
		out, _, err := execute(context.Background(), "request", "get", "/products/", "--origin", server.URL)
		require.NoError(t, err)

		var products []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &products))
		assert.Equal(t, "Cement", products[0]["name"])
	})

	t.Run("api error", func(t *testing.T) {
		_, errOut, err := execute(context.Background(),
			"request", "POST", "/sales/", "--origin", server.URL, "--data", `{"items":[]}`)
		require.Error(t, err)
		assert.Equal(t, "Insufficient stock for Cement", err.Error())
		assert.Contains(t, errOut, "400 Bad Request")
	})

	t.Run("no content", func(t *testing.T) {
		out, errOut, err := execute(context.Background(), "request", "DELETE", "/api/sales/4/", "--origin", server.URL)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "(no content)")
	})

	t.Run("invalid data", func(t *testing.T) {
		_, _, err := execute(context.Background(), "request", "POST", "/sales/", "--origin", server.URL, "--data", "{")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid JSON")
	})

	t.Run("bad method", func(t *testing.T) {
		_, _, err := execute(context.Background(), "request", "TRACE", "/sales/", "--origin", server.URL)
		require.Error(t, err)
	})
}

func TestListenCmd(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"sales_notification","data":{"title":"New Sale","body":"Sale #INV-7 by juma"}}`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"low_stock_alert","data":{"product_name":"Nails","branch_name":"Moshi","quantity":2}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut syncBuffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--env-file", "", "listen", "--origin", server.URL, "--log-level", "debug"})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Nails at Moshi is low on stock (2 left)")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "[SUCCESS] New Sale: Sale #INV-7 by juma")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not stop")
	}
	assert.Contains(t, errOut.String(), "notifyd stopped")
}

func TestListenCmd_InvalidOrigin(t *testing.T) {
	_, _, err := execute(context.Background(), "listen", "--origin", "ftp://shop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.origin scheme")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "conn_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "abc", line["conn_id"])

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestNewSession(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Origin: "https://shop.example.com", Topic: "inventory"},
		API:    config.APIConfig{CSRFToken: "tok", CSRFCookie: "csrftoken", SessionID: "s1"},
	}

	sess, err := newSession(cfg)
	require.NoError(t, err)
	assert.Equal(t, "wss://shop.example.com/ws/inventory/", sess.endpoint.URL())

	token, err := sess.tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	cfg.Server.Topic = ""
	_, err = newSession(cfg)
	assert.ErrorIs(t, err, connection.ErrInvalidEndpoint)
}

func TestHealthHandler(t *testing.T) {
	var state atomic.Int32
	state.Store(int32(connection.StateOpen))
	src := healthSources{
		endpoint: "ws://shop.test/ws/stock/",
		conn: func() connection.Stats {
			return connection.Stats{State: connection.State(state.Load()), Sessions: 2, Reconnects: 1}
		},
		archive: func() archive.Stats { return archive.Stats{Inserts: 5} },
	}
	server := httptest.NewServer(newHealthHandler(src))
	defer server.Close()

	get := func() (int, healthResponse) {
		resp, err := http.Get(server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body healthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	code, body := get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Contains(t, body.Components, "archive")
	assert.NotContains(t, body.Components, "relay")

	state.Store(int32(connection.StateClosed))
	code, body = get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body.Status)

	state.Store(int32(connection.StateIdle))
	code, body = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
}
