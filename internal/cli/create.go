package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		ownerID   int64
		emailType string
		variants  []string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new A/B test",
		Long: `Create a new A/B test with the specified name and variants.

Each --variant takes "label|subject|body|allocation" where allocation is an
integer percentage; allocations must sum to 100. With no --variant flags the
command prompts for variants interactively.

Examples:
  splitsend create onboarding --owner 7 \
    --variant "control|Welcome aboard|Hi {{name}}, ...|50" \
    --variant "friendly|Hey there!|Hi {{name}}, ...|50"
  splitsend create invite --owner 7 --type interview_invite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var specs []store.VariantSpec
			var err error
			if len(variants) > 0 {
				specs, err = parseVariantFlags(variants)
			} else {
				specs, err = promptVariants()
			}
			if err != nil {
				return err
			}

			return withEngine(func(e *engine.Engine) error {
				test, created, err := e.CreateTest(context.Background(), engine.CreateTestRequest{
					OwnerID:   ownerID,
					Name:      name,
					EmailType: store.EmailType(emailType),
					Variants:  specs,
				})
				if err != nil {
					return fmt.Errorf("failed to create test: %w", err)
				}

				fmt.Printf("Created test %d ('%s') with %d variants:\n", test.ID, test.Name, len(created))
				for _, v := range created {
					fmt.Printf("  %d: %s (%d%%) %q\n", v.ID, v.Label, v.TrafficAllocation, v.Subject)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&ownerID, "owner", "o", 0, "owning entity id (required)")
	cmd.Flags().StringVarP(&emailType, "type", "t", "custom", "email type: interview_invite, job_match, custom")
	cmd.Flags().StringArrayVarP(&variants, "variant", "v", nil, `variant as "label|subject|body|allocation"`)
	cmd.MarkFlagRequired("owner")

	return cmd
}

func parseVariantFlags(flags []string) ([]store.VariantSpec, error) {
	specs := make([]store.VariantSpec, 0, len(flags))
	for _, raw := range flags {
		parts := strings.SplitN(raw, "|", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid variant %q: want \"label|subject|body|allocation\"", raw)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil {
			return nil, fmt.Errorf("invalid allocation in variant %q: %w", raw, err)
		}
		specs = append(specs, store.VariantSpec{
			Label:             strings.TrimSpace(parts[0]),
			Subject:           parts[1],
			Body:              parts[2],
			TrafficAllocation: pct,
		})
	}
	return specs, nil
}

func promptVariants() ([]store.VariantSpec, error) {
	var specs []store.VariantSpec
	remaining := 100

	for {
		label, err := (&promptui.Prompt{
			Label: fmt.Sprintf("Variant %d label", len(specs)+1),
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("label is required")
				}
				return nil
			},
		}).Run()
		if err != nil {
			return nil, err
		}

		subject, err := (&promptui.Prompt{Label: "Subject line"}).Run()
		if err != nil {
			return nil, err
		}

		body, err := (&promptui.Prompt{Label: "Body"}).Run()
		if err != nil {
			return nil, err
		}

		pctStr, err := (&promptui.Prompt{
			Label:   fmt.Sprintf("Traffic allocation %% (remaining %d)", remaining),
			Default: strconv.Itoa(remaining),
			Validate: func(s string) error {
				n, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("enter a number")
				}
				if n < 0 || n > remaining {
					return fmt.Errorf("must be between 0 and %d", remaining)
				}
				return nil
			},
		}).Run()
		if err != nil {
			return nil, err
		}
		pct, _ := strconv.Atoi(pctStr)
		remaining -= pct

		specs = append(specs, store.VariantSpec{
			Label:             label,
			Subject:           subject,
			Body:              body,
			TrafficAllocation: pct,
		})

		if remaining == 0 && len(specs) >= 2 {
			return specs, nil
		}

		cont := &promptui.Select{
			Label: "Add another variant",
			Items: []string{"yes", "done"},
		}
		_, choice, err := cont.Run()
		if err != nil {
			return nil, err
		}
		if choice == "done" {
			return specs, nil
		}
	}
}
