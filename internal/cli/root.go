package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "splitsend",
	Short: "splitsend - an A/B/n experimentation engine for email campaigns",
	Long: `splitsend runs controlled multi-variant tests over email campaign
content: weighted traffic allocation across variants, engagement tracking,
two-proportion significance testing, winner determination and promotion.
Single Go binary, embedded SQLite.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("SPLITSEND_DB_PATH", "./splitsend.db"), "database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (YAML)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
