package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/platform/local"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const (
	platformLocal = "local"
	platformHTTP  = "http"
)

// settings holds the raw configuration from all sources (file, env, flags).
// Viper unmarshals into this struct.
type settings struct {
	Platform        string        `mapstructure:"platform"`
	PlatformURL     string        `mapstructure:"platform-url"`
	PlatformToken   string        `mapstructure:"platform-token"`
	PlatformTimeout time.Duration `mapstructure:"platform-timeout"`
	StoreID         string        `mapstructure:"store-id"`
	Fixture         string        `mapstructure:"fixture"`
	BasketBackend   string        `mapstructure:"basket-backend"`
	BasketDBConnect string        `mapstructure:"basket-db-connect"`
	Addr            string        `mapstructure:"addr"`
	Warm            bool          `mapstructure:"warm"`
	SessionIdleTTL  time.Duration `mapstructure:"session-idle-ttl"`
	MaxSessions     int           `mapstructure:"max-sessions"`
	URL             string        `mapstructure:"url"`
	LogLevel        string        `mapstructure:"log-level"`
	LogFormat       string        `mapstructure:"log-format"`
	Color           string        `mapstructure:"color"`

	Cache cache.Config `mapstructure:",squash"`
}

// loadSettings merges defaults, config file, env and flags, then validates the result.
func loadSettings() (*settings, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	s := &settings{}
	if err := viper.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *settings) validate() error {
	s.Platform = strings.ToLower(strings.TrimSpace(s.Platform))
	switch s.Platform {
	case platformLocal:
	case platformHTTP:
		if strings.TrimSpace(s.PlatformURL) == "" {
			return errors.New("--platform-url is required for the http platform")
		}
	default:
		return fmt.Errorf("invalid --platform value %q: must be local or http", s.Platform)
	}
	if strings.TrimSpace(s.StoreID) == "" {
		return errors.New("--store-id is required")
	}
	if s.PlatformTimeout <= 0 {
		return fmt.Errorf("--platform-timeout must be positive (received %s)", s.PlatformTimeout)
	}
	if err := validateBasketBackend(local.Backend(s.BasketBackend), s.BasketDBConnect); err != nil {
		return err
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		return err
	}
	if f := strings.ToLower(s.LogFormat); f != "text" && f != "json" {
		return fmt.Errorf("invalid --log-format value %q: must be text or json", s.LogFormat)
	}
	if _, err := s.useColors(); err != nil {
		return err
	}
	if err := s.Cache.Validate(); err != nil {
		return fmt.Errorf("invalid cache config: %w", err)
	}
	return nil
}

// validateBasketBackend checks that database backends come with a connection string.
// SQLite without one runs in memory.
func validateBasketBackend(backend local.Backend, connStr string) error {
	switch backend {
	case "", local.MemoryBackend, local.SQLiteBackend:
		return nil
	case local.MySQLBackend, local.PostgreSQLBackend:
		if strings.TrimSpace(connStr) == "" {
			return fmt.Errorf("--basket-db-connect is required for the %s basket backend", backend)
		}
		return nil
	default:
		return fmt.Errorf("invalid --basket-backend value %q: must be memory, sqlite, mysql, or postgresql", backend)
	}
}

// parseBoolString parses a boolean string value.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func parseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// useColors resolves --color; "auto" enables colors only when stdout is a terminal.
func (s *settings) useColors() (bool, error) {
	if strings.EqualFold(strings.TrimSpace(s.Color), "auto") || s.Color == "" {
		return term.IsTerminal(int(os.Stdout.Fd())), nil
	}
	on, err := parseBoolString(s.Color)
	if err != nil {
		return false, fmt.Errorf("invalid --color value: %w", err)
	}
	return on, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level value %q: must be debug, info, warn or error", s)
	}
	return level, nil
}

// newLogger builds the process logger. Settings were validated by loadSettings.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, err := parseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
