package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

/*
Runtime is the capability handed to consumers once the platform is bound to a store and
ready. Holding a *Runtime is the proof of readiness; nothing re-checks a ready flag per call.
*/
type Runtime struct {
	client  Client
	storeID string
	readyAt time.Time
}

type connectOptions struct {
	pollInterval time.Duration
	logger       *slog.Logger
}

type ConnectOption func(*connectOptions)

// WithPollInterval sets how often Ready is polled while waiting.
func WithPollInterval(d time.Duration) ConnectOption {
	return func(o *connectOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func WithConnectLogger(l *slog.Logger) ConnectOption {
	return func(o *connectOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Connect initializes client for storeID and waits until it reports ready or ctx ends.
func Connect(ctx context.Context, client Client, storeID string, opts ...ConnectOption) (*Runtime, error) {
	if client == nil {
		return nil, ErrUnavailable
	}
	o := connectOptions{
		pollInterval: 250 * time.Millisecond,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := client.Init(ctx, storeID); err != nil {
		return nil, fmt.Errorf("init store %q: %w", storeID, err)
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()
	for {
		ready, err := client.Ready(ctx)
		if err != nil {
			o.logger.Warn("platform readiness check failed", "store", storeID, "error", err)
		}
		if ready {
			o.logger.Info("platform ready", "store", storeID)
			return &Runtime{client: client, storeID: storeID, readyAt: time.Now()}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for store %q: %w", storeID, errors.Join(ErrUnavailable, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (r *Runtime) Client() Client     { return r.client }
func (r *Runtime) StoreID() string    { return r.storeID }
func (r *Runtime) ReadyAt() time.Time { return r.readyAt }
