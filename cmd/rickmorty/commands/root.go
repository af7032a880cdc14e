package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/rickmorty-client/internal/config"
	"github.com/Sternrassler/rickmorty-client/pkg/characters"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/locations"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build variables, set with -ldflags "-X .../commands.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// app is the dependency graph shared by subcommands.
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	client     *client.Client
	redis      *redis.Client
	aggregator *locations.Aggregator
}

func (a *app) init(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)
	a.logger = logging.NewLogger("cli")

	if opts := cfg.RedisOptions(); opts != nil {
		a.redis = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			a.redis = nil
			return fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		a.logger.Debug().Str("addr", opts.Addr).Msg("Response cache enabled")
	}

	a.client, err = client.New(cfg.Client(a.redis))
	if err != nil {
		return err
	}
	a.aggregator = locations.NewAggregator(a.client, a.client.LocationsURL())

	if cfg.ConfigFile != "" {
		a.logger.Debug().Str("file", cfg.ConfigFile).Msg("Configuration loaded")
	}
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

func (a *app) pagerConfig() characters.Config {
	return characters.Config{
		BaseURL: a.client.BaseURL(),
		FanOut:  a.cfg.FanOut(),
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string
	a := &app{}

	root := &cobra.Command{
		Use:           "rickmorty",
		Short:         "Browse Rick and Morty locations and characters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(cmd, configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	clientDefaults := client.DefaultConfig()
	fanOutDefaults := pagination.DefaultConfig()

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (YAML)")
	pf.String("base-url", clientDefaults.BaseURL, "API root URL")
	pf.String("user-agent", clientDefaults.UserAgent, "User-Agent header")
	pf.Duration("timeout", clientDefaults.Timeout, "per-request timeout")
	pf.Int("max-concurrency", fanOutDefaults.MaxConcurrency, "parallel requests when resolving residents")
	pf.Bool("cache", false, "cache responses in Redis")
	pf.String("redis-addr", "localhost:6379", "Redis address for the response cache")
	pf.Int("redis-db", 0, "Redis database")
	pf.String("log-level", string(logging.LevelInfo), "log level (debug, info, warn, error)")
	pf.Bool("pretty", false, "human-readable logs")

	root.AddCommand(locationsCmd(a), charactersCmd(a), serveCmd(a), versionCmd())
	return root
}

// Execute runs the CLI and prints the error, if any, to stderr.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		root.PrintErrln("Error:", err)
	}
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "rickmorty %s (commit %s, built %s)\n", Version, Commit, BuildTime)
			return nil
		},
	}
}
