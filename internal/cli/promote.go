package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/engine"
)

func init() {
	rootCmd.AddCommand(promoteCmd)
}

var promoteCmd = &cobra.Command{
	Use:   "promote <test-id>",
	Short: "Route all traffic to the test's winner",
	Long: `Run winner determination and, if a winner exists, rewrite traffic
allocation so the winner receives 100% of future sends. Safe to re-run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		testID, err := parseTestID(args[0])
		if err != nil {
			return err
		}

		return withEngine(func(e *engine.Engine) error {
			promoted, err := e.AutoPromote(context.Background(), testID)
			if err != nil {
				return fmt.Errorf("failed to promote: %w", err)
			}

			if !promoted {
				fmt.Println("No winner yet; traffic allocation unchanged.")
				return nil
			}
			fmt.Println("Winner promoted: it now receives 100% of traffic.")
			return nil
		})
	},
}
