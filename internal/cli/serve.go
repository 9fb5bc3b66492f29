package cli

import (
	"os/signal"
	"syscall"

	"github.com/dubai-invest/dubai-invest/internal/cache"
	"github.com/dubai-invest/dubai-invest/internal/server"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				a.cfg.Server.Address = address
			}
			srvConfig, err := server.NewConfig(a.cfg, a.version)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := cache.New(ctx, a.cfg.Cache, a.logger)
			if err != nil {
				return err
			}
			if closer, ok := c.(interface{ Close() error }); ok {
				defer func() {
					if err := closer.Close(); err != nil {
						a.logger.Warn("failed to close cache", zap.String("op", "cli.serve"), zap.Error(err))
					}
				}()
			}

			sims := cache.NewSimulations(c, simulator.New(a.logger), a.logger)
			return server.New(srvConfig, store, sims, a.logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address override, e.g. :8080")
	return cmd
}
