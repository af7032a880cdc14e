package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/rickmorty-client/internal/httpserver"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	var preload bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve locations, characters and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if preload {
				if _, err := a.aggregator.LoadAll(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("Location preload failed, loading on first request")
				}
			}

			gin.SetMode(gin.ReleaseMode)
			srv := httpserver.NewServer(a.cfg.ListenAddr, httpserver.Deps{
				Fetcher:    a.client,
				Aggregator: a.aggregator,
				Pager:      a.pagerConfig(),
				Redis:      a.redis,
			})

			a.logger.Info().
				Str("listen", a.cfg.ListenAddr).
				Str("base_url", a.client.BaseURL()).
				Bool("cache", a.redis != nil).
				Msg("Starting server")
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("listen", ":8080", "listen address")
	cmd.Flags().BoolVar(&preload, "preload", true, "load all locations before serving")
	return cmd
}
