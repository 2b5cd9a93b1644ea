package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/scanpress/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scanpress control server",
	Long: `Start the HTTP control server.

The server provides:
  /health               - server and ledger health
  /api/convert          - start a conversion run
  /api/convert/resume   - resume the checkpointed run
  /api/convert/cancel   - cancel the active run
  /api/convert/status   - progress and ETA of the active run
  /api/convert/last     - last page image + text for spot-checking
  /api/jobs             - job ledger

Examples:
  scanpress serve                        # Start on default localhost:8585
  scanpress serve --addr 0.0.0.0:9000    # Bind elsewhere`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		p, err := buildPipeline(logger, nil)
		if err != nil {
			return err
		}
		defer p.close()

		addr := serveAddr
		if addr == "" {
			addr = p.cfg.Server.Addr
		}

		srv, err := server.New(server.Config{
			Addr:         addr,
			Orchestrator: p.orch,
			Jobs:         p.jobs,
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to bind to (default from config)")

	rootCmd.AddCommand(serveCmd)
}
