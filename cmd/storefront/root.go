package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/cart"
	"github.com/krisalay/storefront-cache/platform/local"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Serve a storefront backed by a request-coalescing catalog cache.",
	Long: `Storefront fronts a commerce platform with a TTL cache for store, product, review and banner
reads, keeps one cart per shopper session and exposes both over JSON and MCP.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".storefront")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("STOREFRONT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	defaults := cache.DefaultConfig()
	viper.SetDefault("platform", platformLocal)
	viper.SetDefault("platform-timeout", 10*time.Second)
	viper.SetDefault("store-id", "demo-store")
	viper.SetDefault("basket-backend", string(local.MemoryBackend))
	viper.SetDefault("store-ttl", defaults.StoreDataTTL)
	viper.SetDefault("product-ttl", defaults.ProductDataTTL)
	viper.SetDefault("reviews-ttl", defaults.ReviewsTTL)
	viper.SetDefault("banner-ttl", defaults.BannerTTL)
	viper.SetDefault("shards", defaults.Shards)
	viper.SetDefault("max-entries", defaults.MaxEntries)
	viper.SetDefault("addr", ":8080")
	viper.SetDefault("session-idle-ttl", cart.DefaultIdleTTL)
	viper.SetDefault("max-sessions", cart.DefaultMaxSessions)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")
	viper.SetDefault("color", "auto")
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("platform", platformLocal, "Platform client: local or http")
	flags.String("platform-url", "", "Base URL of the platform API (http platform)")
	flags.String("platform-token", "", "Bearer token for the platform API (http platform)")
	flags.Duration("platform-timeout", 10*time.Second, "Per-request timeout of the platform client, and the readiness wait")
	flags.String("store-id", "demo-store", "Store to initialize the platform with")
	flags.String("fixture", "", "YAML fixture for the local platform (built-in demo store when empty)")
	flags.String("basket-backend", string(local.MemoryBackend), "Local basket backend: memory or sqlite or mysql or postgresql")
	flags.String("basket-db-connect", "", "Database connection string for the sqlite/mysql/postgresql basket backend")
	flags.Duration("store-ttl", cache.DefaultConfig().StoreDataTTL, "Freshness of cached store data")
	flags.Duration("product-ttl", cache.DefaultConfig().ProductDataTTL, "Freshness of cached products")
	flags.Duration("reviews-ttl", cache.DefaultConfig().ReviewsTTL, "Freshness of cached review pages")
	flags.Duration("banner-ttl", cache.DefaultConfig().BannerTTL, "Freshness of the cached banner URL")
	flags.Int("shards", cache.DefaultConfig().Shards, "Number of cache shards")
	flags.Int("max-entries", 0, "Maximum cached entries, split across shards (0 = unbounded)")
	flags.Bool("warm-store", false, "Also prefetch the store when warming the cache")
	flags.String("log-level", "info", "Log level: debug or info or warn or error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("color", "auto", "Enable colored output (auto/yes/no/true/false/1/0)")
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("warm", true, "Warm the cache once the platform is ready")
	serveCmd.Flags().Duration("session-idle-ttl", cart.DefaultIdleTTL, "Forget a cart session after it has been idle this long")
	serveCmd.Flags().Int("max-sessions", cart.DefaultMaxSessions, "Upper bound on cart sessions held in memory")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		panic(err)
	}

	statsCmd.Flags().String("url", "http://localhost:8080", "Base URL of a running storefront server")
	if err := viper.BindPFlags(statsCmd.Flags()); err != nil {
		panic(err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
