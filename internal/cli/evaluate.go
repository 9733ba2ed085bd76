package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/engine"
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <test-id>",
	Short: "Check a running test for a statistically significant winner",
	Long: `Run winner determination on a test. The two best-converting variants are
compared with a two-proportion z-test; if the leader wins with at least 95%
confidence it is marked winner and the test is completed. Otherwise the test
stays running and can be evaluated again as more data accrues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		testID, err := parseTestID(args[0])
		if err != nil {
			return err
		}

		return withEngine(func(e *engine.Engine) error {
			winner, err := e.DetermineWinner(context.Background(), testID)
			if err != nil {
				return fmt.Errorf("failed to evaluate test: %w", err)
			}

			if winner == nil {
				fmt.Println("No winner yet; the test remains running.")
				return nil
			}

			fmt.Printf("Winner: variant %d (%q) at %d%% conversion.\n", winner.ID, winner.Label, winner.ConversionRate)
			fmt.Println("Test has been marked as completed.")
			fmt.Println("\nRun 'promote' to route all future traffic to the winner.")
			return nil
		})
	},
}
