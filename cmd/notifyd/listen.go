package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibrahzuma/umoja-hardware-system/internal/archive"
	"github.com/ibrahzuma/umoja-hardware-system/internal/config"
	"github.com/ibrahzuma/umoja-hardware-system/internal/connection"
	"github.com/ibrahzuma/umoja-hardware-system/internal/database"
	"github.com/ibrahzuma/umoja-hardware-system/internal/events"
	"github.com/ibrahzuma/umoja-hardware-system/internal/notify"
	"github.com/ibrahzuma/umoja-hardware-system/internal/relay"
	"github.com/ibrahzuma/umoja-hardware-system/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newListenCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Listen for notifications until interrupted",
		Long: `Open the notification channel and print sales and low stock
notifications as they arrive. The channel reconnects on its own after
any disconnect. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd)
			if err != nil {
				return err
			}
			return runListen(cmd, cfg, logger)
		},
	}
}

func runListen(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	ctx := cmd.Context()

	logger.Info("starting notifyd",
		"version", version.Version,
		"commit", version.Commit,
		"origin", cfg.Server.Origin,
		"topic", cfg.Server.Topic,
	)

	sess, err := newSession(cfg)
	if err != nil {
		return err
	}

	dialer := connection.NewDialer(connection.DialerConfig{
		HandshakeTimeout: cfg.Connection.HandshakeTimeout,
		PingInterval:     cfg.Connection.PingInterval,
		PongTimeout:      cfg.Connection.PongTimeout,
		WriteTimeout:     connection.DefaultDialerConfig().WriteTimeout,
		Jar:              sess.jar,
	}, logger)

	mgr := connection.NewManager(sess.endpoint, connection.Config{
		ReconnectDelay:    cfg.Connection.ReconnectDelay,
		ReconnectMaxDelay: cfg.Connection.ReconnectMaxDelay,
		BackoffFactor:     cfg.Connection.BackoffFactor,
		MaxAttempts:       cfg.Connection.MaxAttempts,
	},
		connection.WithDialer(dialer),
		connection.WithLogger(logger),
		connection.WithObserver(func(ev connection.StateEvent) {
			logger.Debug("connection state changed",
				"conn_id", ev.ConnID,
				"from", ev.From.String(),
				"to", ev.To.String(),
			)
		}),
	)

	notify.Register(mgr, notify.TextRenderer(cmd.OutOrStdout()), logger)
	notify.OnStockUpdate(mgr, func(u notify.StockUpdate, msg events.Message) {
		logger.Info("stock updated",
			"conn_id", msg.ConnID,
			"stock_id", u.StockID,
			"product_id", u.ProductID,
			"branch_id", u.BranchID,
			"quantity", u.Quantity,
		)
	}, logger)

	health := healthSources{endpoint: sess.endpoint.URL(), conn: mgr.Stats}

	// Stopped in reverse order of start.
	var stops []func(context.Context) error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(stops) - 1; i >= 0; i-- {
			if err := stops[i](shutdownCtx); err != nil {
				logger.Warn("shutdown step failed", "error", err)
			}
		}
		logger.Info("notifyd stopped")
	}()

	if cfg.Archive.Enabled {
		writer, closeDB, err := startArchive(ctx, cfg, mgr, logger)
		if err != nil {
			return err
		}
		stops = append(stops, func(context.Context) error { closeDB(); return nil }, writer.Stop)
		health.archive = writer.Stats
	}

	if cfg.Relay.Enabled {
		r, closeRedis, err := startRelay(ctx, cfg, mgr, logger)
		if err != nil {
			return err
		}
		stops = append(stops, func(context.Context) error { return closeRedis() }, r.Stop)
		health.relay = r.Stats
	}

	if cfg.Health.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Health.Addr,
			Handler:           newHealthHandler(health),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("starting health server", "addr", cfg.Health.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("health server error", "error", err)
			}
		}()
		stops = append(stops, srv.Shutdown)
	}

	if err := mgr.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	stops = append(stops, mgr.Stop)

	logger.Info("notifyd running", "endpoint", sess.endpoint.URL())

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down...")

	return nil
}

func startArchive(ctx context.Context, cfg *config.Config, sub events.Subscriber, logger *slog.Logger) (*archive.Writer, func(), error) {
	pool, err := database.Connect(ctx, cfg.Archive.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect archive database: %w", err)
	}

	if err := archive.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	w := archive.NewWriter(archive.Config{
		BatchSize:     cfg.Archive.BatchSize,
		FlushInterval: cfg.Archive.FlushInterval,
	}, pool, logger)
	w.Register(sub, cfg.Archive.EventTypes)

	if err := w.Start(context.Background()); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return w, pool.Close, nil
}

func startRelay(ctx context.Context, cfg *config.Config, sub events.Subscriber, logger *slog.Logger) (*relay.Relay, func() error, error) {
	client, err := relay.Connect(ctx, relay.ConnectConfig{
		URL:            cfg.Relay.URL,
		ConnectTimeout: cfg.Relay.ConnectTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect relay: %w", err)
	}
	logger.Info("relay connected", "addr", client.Options().Addr)

	r := relay.New(relay.Config{
		ChannelPrefix: cfg.Relay.ChannelPrefix,
		QueueSize:     cfg.Relay.QueueSize,
	}, client, logger)
	r.Register(sub, cfg.Relay.EventTypes)

	if err := r.Start(context.Background()); err != nil {
		client.Close()
		return nil, nil, err
	}

	return r, client.Close, nil
}
