package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/engine"
)

func init() {
	rootCmd.AddCommand(cancelCmd)
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <test-id>",
	Short: "Cancel a running test",
	Long: `Cancel a running test. Cancelled tests are terminal: no further
evaluation or promotion can occur on them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		testID, err := parseTestID(args[0])
		if err != nil {
			return err
		}

		return withEngine(func(e *engine.Engine) error {
			if err := e.CancelTest(context.Background(), testID); err != nil {
				return fmt.Errorf("failed to cancel test: %w", err)
			}
			fmt.Printf("Test %d cancelled.\n", testID)
			return nil
		})
	},
}
