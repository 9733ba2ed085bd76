package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/config"
	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/server"
	"github.com/splitsend/splitsend/internal/store"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the splitsend HTTP server.

The server provides:
  - Test creation and listing endpoints
  - Variant selection for the send pipeline
  - Event intake for delivery and engagement tracking
  - Evaluation, promotion, snapshot and comparison endpoints

Example:
  splitsend serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("db") || cfg.DB.Path == "" {
				cfg.DB.Path = dbPath
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLogLevel(cfg.Log.Level),
			}))

			s, err := store.Open(cfg.DB.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer s.Close()

			eng := engine.New(s, logger)
			srv := server.New(eng, s, cfg.Server.Host, cfg.Server.Port, logger)
			return srv.Start()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")

	return cmd
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
