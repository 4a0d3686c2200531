package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/subscan/internal/billing"
	"github.com/sells-group/subscan/internal/model"
	"github.com/sells-group/subscan/internal/scan"
	"github.com/sells-group/subscan/internal/source"
)

var (
	scanManual      bool
	scanNoEmail     bool
	scanNoPurchases bool
	scanConfirm     bool
	scanAdd         []string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan sources for subscriptions and review the result",
	Long: "Runs the purchase-history and email collaborators side by side, merges their candidates and prints the review set.\n" +
		"With --confirm every candidate is confirmed and saved; with --manual scanning is skipped and only --add entries are used.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("scan"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch := initOrchestrator(cfg, st)

		if scanManual {
			orch.StartManualEntry()
		} else {
			opts := scan.Options{IncludePurchases: !scanNoPurchases, IncludeEmail: !scanNoEmail}
			if _, err := orch.Scan(ctx, opts); err != nil {
				return eris.Wrap(err, "scan")
			}
			if err := orch.Err(); err != nil {
				fmt.Fprintln(os.Stderr, "Warning:", err)
			}
		}

		for _, spec := range scanAdd {
			c, err := parseManual(spec)
			if err != nil {
				return err
			}
			if err := orch.AddManual(c); err != nil {
				return eris.Wrapf(err, "add %q", spec)
			}
		}

		items := orch.Candidates()
		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "No subscriptions found.")
		} else {
			formatReview(os.Stdout, items)
		}

		if !scanConfirm {
			return nil
		}
		confirmed, err := orch.Confirm(ctx)
		if err != nil {
			return eris.Wrap(err, "confirm")
		}
		zap.L().Info("scan: confirmed subscriptions", zap.Int("count", len(confirmed)))
		fmt.Fprintf(os.Stderr, "Confirmed %d subscriptions.\n", len(confirmed))
		return nil
	},
}

// parseManual reads "name:price[:cycle]"; the cycle defaults to monthly.
func parseManual(spec string) (model.Candidate, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return model.Candidate{}, eris.Errorf("manual entry %q must be name:price[:cycle]", spec)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return model.Candidate{}, eris.Wrapf(err, "manual entry %q: price", spec)
	}
	cycle := model.CycleMonthly
	if len(parts) == 3 {
		cycle = model.ParseCycle(parts[2])
	}

	c := source.NewManual(parts[0], price, cycle)
	if err := source.Validate(c); err != nil {
		return model.Candidate{}, eris.Wrapf(err, "manual entry %q", spec)
	}
	return c, nil
}

// formatReview writes the review set with monthly equivalents and a total.
func formatReview(out io.Writer, items []model.ReviewItem) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tORIGIN\tCONFIDENCE\tPRICE\tCYCLE\tMONTHLY")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----------\t-----\t-----\t-------")

	included := make([]model.Candidate, 0, len(items))
	for _, it := range items {
		c := it.Candidate
		if it.Included {
			included = append(included, c)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(c.ID),
			truncateName(c.DisplayName),
			c.Origin,
			c.Confidence,
			c.Price.StringFixed(2),
			c.Cycle,
			it.MonthlyEquivalent.StringFixed(2),
		)
	}
	_, _ = fmt.Fprintf(w, "\t\t\t\t\tTOTAL\t%s\n", billing.MonthlyTotal(included).StringFixed(2))
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateName(name string) string {
	r := []rune(name)
	if len(r) > 30 {
		return string(r[:27]) + "..."
	}
	return name
}

func init() {
	scanCmd.Flags().BoolVar(&scanManual, "manual", false, "skip scanning and enter subscriptions by hand")
	scanCmd.Flags().BoolVar(&scanNoEmail, "no-email", false, "do not scan email receipts")
	scanCmd.Flags().BoolVar(&scanNoPurchases, "no-purchases", false, "do not scan purchase history")
	scanCmd.Flags().BoolVar(&scanConfirm, "confirm", false, "confirm and save every candidate")
	scanCmd.Flags().StringArrayVar(&scanAdd, "add", nil, "manual entry as name:price[:cycle] (repeatable)")
	rootCmd.AddCommand(scanCmd)
}
