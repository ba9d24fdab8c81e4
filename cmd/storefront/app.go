package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/platform"
	"github.com/krisalay/storefront-cache/platform/local"
)

// app is the wiring shared by every command: the platform client and the cached catalog.
type app struct {
	settings *settings
	logger   *slog.Logger
	client   platform.Client
	catalog  *cache.Catalog
	close    func() error
}

// newApp loads settings and builds an unattached catalog plus the configured platform client.
// Logs go to logOut.
func newApp(logOut io.Writer) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	logger := newLogger(logOut, s.LogLevel, s.LogFormat)

	client, closeFn, err := buildClient(s, logger)
	if err != nil {
		return nil, err
	}

	catalog, err := cache.NewCatalog(nil, s.Cache, cache.WithLogger(logger))
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	return &app{
		settings: s,
		logger:   logger,
		client:   client,
		catalog:  catalog,
		close:    closeFn,
	}, nil
}

// buildClient returns the platform client named by --platform and a func releasing it.
func buildClient(s *settings, logger *slog.Logger) (platform.Client, func() error, error) {
	if s.Platform == platformHTTP {
		c := platform.NewHTTPClient(s.PlatformURL,
			platform.WithHTTPClient(&http.Client{Timeout: s.PlatformTimeout}),
			platform.WithAPIToken(s.PlatformToken),
		)
		return c, func() error { return nil }, nil
	}

	// A nil fixture selects the built-in demo store.
	var fixture *local.Fixture
	if s.Fixture != "" {
		f, err := local.LoadFixture(s.Fixture)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load fixture: %w", err)
		}
		fixture = f
	}

	baskets, err := local.NewBasketStore(local.Backend(s.BasketBackend), s.BasketDBConnect)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize basket store: %w", err)
	}

	p, err := local.New(fixture, local.WithBasketStore(baskets), local.WithLogger(logger))
	if err != nil {
		_ = baskets.Close()
		return nil, nil, err
	}
	return p, p.Close, nil
}

// connect initializes the platform and waits for it, bounded by --platform-timeout.
// On success the catalog reads from the ready client.
func (a *app) connect(ctx context.Context) (*platform.Runtime, error) {
	ctx, cancel := context.WithTimeout(ctx, a.settings.PlatformTimeout)
	defer cancel()

	rt, err := platform.Connect(ctx, a.client, a.settings.StoreID, platform.WithConnectLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("platform not ready: %w", err)
	}
	a.catalog.Attach(rt.Client())
	return rt, nil
}

func (a *app) Close() error {
	return a.close()
}
