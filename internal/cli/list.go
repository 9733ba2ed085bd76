package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/engine"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	var ownerID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's tests",
		Long:  `List all A/B tests for an owner with status and aggregate counters, newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				ctx := context.Background()

				tests, err := e.ListTestsForOwner(ctx, ownerID)
				if err != nil {
					return fmt.Errorf("failed to list tests: %w", err)
				}

				if len(tests) == 0 {
					fmt.Println("No tests yet.")
					fmt.Println()
					fmt.Println("Create one with:")
					fmt.Println("  splitsend create <name> --owner", ownerID)
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tVARIANTS\tSENT\tCONVERSIONS\tCREATED")

				for _, test := range tests {
					variants, err := e.ListVariants(ctx, test.ID)
					if err != nil {
						return fmt.Errorf("failed to list variants for test %d: %w", test.ID, err)
					}

					totalSent := 0
					totalConversions := 0
					for _, v := range variants {
						totalSent += v.SentCount
						totalConversions += v.ConversionCount
					}

					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						test.ID,
						test.Name,
						test.EmailType,
						strings.ToUpper(string(test.Status)),
						len(variants),
						totalSent,
						totalConversions,
						test.CreatedAt.Format("2006-01-02"),
					)
				}

				return w.Flush()
			})
		},
	}

	cmd.Flags().Int64VarP(&ownerID, "owner", "o", 0, "owning entity id (required)")
	cmd.MarkFlagRequired("owner")

	return cmd
}
