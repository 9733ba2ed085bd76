package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/engine"
)

func init() {
	rootCmd.AddCommand(newSnapshotCmd())
}

func newSnapshotCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "snapshot <test-id>",
		Short: "Capture or list performance snapshots",
		Long: `Capture a point-in-time snapshot of every variant's metrics plus its
best pairwise confidence level, for trend analysis. With --list, print the
accumulated snapshot history instead (oldest first).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testID, err := parseTestID(args[0])
			if err != nil {
				return err
			}

			return withEngine(func(e *engine.Engine) error {
				ctx := context.Background()

				if list {
					snapshots, err := e.ListSnapshots(ctx, testID)
					if err != nil {
						return fmt.Errorf("failed to list snapshots: %w", err)
					}
					if len(snapshots) == 0 {
						fmt.Println("No snapshots yet.")
						return nil
					}

					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "TIME\tVARIANT\tSENT\tCONV\tCONV RATE\tCONFIDENCE")
					for _, snap := range snapshots {
						fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d%%\t%d%%\n",
							snap.CreatedAt.Format("2006-01-02 15:04"),
							snap.VariantID,
							snap.SentCount,
							snap.ConversionCount,
							snap.ConversionRate,
							snap.ConfidenceLevel,
						)
					}
					return w.Flush()
				}

				snapshots, err := e.CreateSnapshot(ctx, testID)
				if err != nil {
					return fmt.Errorf("failed to create snapshot: %w", err)
				}
				fmt.Printf("Captured snapshot of %d variants for test %d.\n", len(snapshots), testID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "list snapshot history instead of capturing")

	return cmd
}
