package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

// warmCmd checks that the cacheable reads succeed against the platform.
var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Prefetch the banner (and store with --warm-store) and report what was cached",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if _, err := a.connect(cmd.Context()); err != nil {
			return err
		}
		a.catalog.WarmCache(cmd.Context())

		stats := a.catalog.Stats()
		cmd.Printf("Warmed %d entries with %d platform requests\n", stats.Size, stats.RequestCount)
		for _, k := range stats.Keys {
			cmd.Printf("  %s (fresh for %s)\n", k, a.catalog.TTL(k).Round(time.Second))
		}
		return nil
	},
}
