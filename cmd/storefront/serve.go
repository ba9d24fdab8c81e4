package main

import (
	"context"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/krisalay/storefront-cache/cart"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/krisalay/storefront-cache/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the JSON backend.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront JSON API",
	Long: `Start the storefront HTTP server.

The server starts listening right away and keeps retrying the platform connection,
backing off up to 30s between attempts. Until the platform reports ready, routes that
need it answer 503 and cart changes are ignored. Once ready, the cache is warmed
(unless --warm=false).

Examples:
  # Serve the built-in demo store
  storefront serve

  # Front a remote platform, persisting nothing locally
  storefront serve --platform http --platform-url https://api.example.com --store-id acme`,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx, stop := signalContext()
		defer stop()

		carts := cart.NewSessions(nil,
			cart.WithStoreOptions(cart.WithLogger(a.logger)),
			cart.WithIdleTTL(a.settings.SessionIdleTTL),
			cart.WithMaxSessions(a.settings.MaxSessions),
		)
		srv := server.New(a.catalog, carts, server.WithLogger(a.logger))

		go attachWhenReady(ctx, a, srv)
		return srv.ListenAndServe(ctx, a.settings.Addr)
	},
}

// connectRetry spaces out platform connection attempts.
var connectRetry = struct {
	initial, max time.Duration
}{initial: time.Second, max: 30 * time.Second}

// attachWhenReady keeps connecting to the platform until it is ready or ctx ends,
// then hands it to the server. Catalog reads fail with 503 until then.
func attachWhenReady(ctx context.Context, a *app, srv *server.Server) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = connectRetry.initial
	b.MaxInterval = connectRetry.max
	b.MaxElapsedTime = 0

	var rt *platform.Runtime
	err := backoff.RetryNotify(func() error {
		var err error
		rt, err = a.connect(ctx)
		if err != nil && (ctx.Err() != nil || platform.IsValidation(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		a.logger.Warn("platform not ready; retrying", "error", err, "in", wait)
	})
	if err != nil {
		a.logger.Info("stopped waiting for the platform", "error", err)
		return
	}

	srv.Attach(rt)
	a.logger.Info("platform ready", "store", rt.StoreID())

	if a.settings.Warm {
		a.catalog.WarmCache(ctx)
	}
}
