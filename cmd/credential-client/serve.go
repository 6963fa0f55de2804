package main

import (
	"context"
	"net"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	clienthttp "github.com/quantumauth-io/quantum-credential-client/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `
Run the local HTTP API used by the web front end. Session changes are pushed
on /api/session/events; metrics are served on /metrics.
	`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			log.Info("quantum-credential-client",
				"version", Version,
				"commit", Commit,
				"build_date", BuildDate,
			)
			h := clienthttp.NewHandler(a.rt, a.backend, a.network)
			router := clienthttp.NewRouter(h, cfg.Client.AllowedOrigins)
			addr := net.JoinHostPort(cfg.Client.Host, cfg.Client.Port)
			return clienthttp.Run(ctx, addr, router)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
