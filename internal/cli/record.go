package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/store"
)

func init() {
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record <kind> <variant-id>",
	Short: "Record a delivery or engagement event for a variant",
	Long: `Record one counter event against a variant. Kind is one of:
sent, open, click, reply, conversion.

Normally these arrive from the mail pipeline via the HTTP API; this command
exists for scripting and backfills.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := store.EventKind(args[0])
		variantID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid variant id %q", args[1])
		}

		return withEngine(func(e *engine.Engine) error {
			ctx := context.Background()

			if kind == store.EventSent {
				err = e.RecordSent(ctx, variantID)
			} else {
				err = e.RecordEngagement(ctx, variantID, kind)
			}
			if err != nil {
				return fmt.Errorf("failed to record event: %w", err)
			}

			fmt.Printf("Recorded %s for variant %d.\n", kind, variantID)
			return nil
		})
	},
}
