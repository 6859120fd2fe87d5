package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyURL      = errors.New("empty redis connection URL")
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")
)

// ConnectConfig configures Connect.
type ConnectConfig struct {
	URL            string        // redis://:password@localhost:6379/0
	ConnectTimeout time.Duration // Bounds parsing plus the first ping
}

// Connect parses the URL, creates a client and verifies it with a ping.
func Connect(ctx context.Context, cfg ConnectConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrRedisNotReady, err)
	}

	return client, nil
}
