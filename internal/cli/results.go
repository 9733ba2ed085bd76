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
	rootCmd.AddCommand(resultsCmd)
}

var resultsCmd = &cobra.Command{
	Use:   "results <test-id>",
	Short: "Show detailed results for a test",
	Long:  `Show per-variant counters, conversion rates with confidence intervals, and the pairwise significance matrix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func runResults(cmd *cobra.Command, args []string) error {
	testID, err := parseTestID(args[0])
	if err != nil {
		return err
	}

	return withEngine(func(e *engine.Engine) error {
		view, err := e.Compare(context.Background(), testID)
		if err != nil {
			return fmt.Errorf("failed to compare variants: %w", err)
		}

		fmt.Printf("TEST: %s (id %d)\n", view.Test.Name, view.Test.ID)
		fmt.Printf("TYPE: %s\n", view.Test.EmailType)
		fmt.Printf("STATUS: %s\n", strings.ToUpper(string(view.Test.Status)))
		fmt.Printf("CREATED: %s\n", view.Test.CreatedAt.Format("2006-01-02"))
		fmt.Println()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VARIANT\tALLOC\tSENT\tOPENS\tCLICKS\tREPLIES\tCONV\tRATE\t95% CI\t")
		for i, vc := range view.Variants {
			v := vc.Variant

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", vc.CILower*100, vc.CIUpper*100)
			if v.SentCount == 0 {
				ciStr = "N/A"
			}

			indicator := ""
			if v.IsWinner {
				indicator = "← WINNER"
			} else if i == view.Leading && len(view.Variants) > 1 {
				indicator = "← LEADING"
			}

			fmt.Fprintf(w, "%s\t%d%%\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
				v.Label,
				v.TrafficAllocation,
				v.SentCount,
				v.OpenCount,
				v.ClickCount,
				v.ReplyCount,
				v.ConversionCount,
				formatPercent(vc.Rate),
				ciStr,
				indicator,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()

		if len(view.Variants) > 1 {
			printSignificance(view)
		}
		return nil
	})
}

func printSignificance(view *engine.Comparison) {
	leading := view.Variants[view.Leading]

	best := 0
	for i, row := range view.Matrix[view.Leading] {
		if i != view.Leading && row.ConfidenceLevel > best {
			best = row.ConfidenceLevel
		}
	}

	switch {
	case view.Winner != nil:
		fmt.Printf("Winner: %q\n", view.Winner.Label)
	case best >= 95:
		fmt.Printf("Statistical significance: %d%% confident %q is the winner\n", best, leading.Variant.Label)
	case best >= 90:
		fmt.Printf("Statistical significance: %d%% confident %q leads (not yet significant)\n", best, leading.Variant.Label)
	default:
		fmt.Println("Statistical significance: not enough data to determine a winner")
	}
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
