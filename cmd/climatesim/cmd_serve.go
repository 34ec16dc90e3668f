package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/climate-net/internal/api"
	"github.com/talgya/climate-net/internal/logging"
	"github.com/talgya/climate-net/internal/persistence"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored results over a read-only HTTP API",
		Long: `Serve a results database written by 'climatesim run --db'.

Endpoints:
  GET /api/v1/status
  GET /api/v1/runs
  GET /api/v1/runs/{id}
  GET /api/v1/runs/{id}/rounds?from=&to=
  GET /api/v1/runs/{id}/shocks?limit=

Examples:
  climatesim serve --db results.db
  climatesim serve --db results.db --addr :9090 --cors https://dash.example.org`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			addr, _ := cmd.Flags().GetString("addr")
			cors, _ := cmd.Flags().GetString("cors")
			rate, _ := cmd.Flags().GetInt("rate")
			level, _ := cmd.Flags().GetString("log-level")

			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("results database: %w", err)
			}
			slog.SetDefault(logging.NewLogger(level, "auto", cmd.ErrOrStderr()))

			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			defer stopSignals(sigCh)
			go func() {
				if _, ok := <-sigCh; ok {
					cancel()
				}
			}()

			srv := &api.Server{
				DB:                db,
				Addr:              addr,
				AllowedOrigins:    strings.Split(cors, ","),
				RequestsPerMinute: rate,
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().String("db", "results.db", "Results database to serve")
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("cors", "", "Comma-separated extra CORS origins")
	cmd.Flags().Int("rate", 120, "Requests per minute per client (0 disables)")
	return cmd
}
