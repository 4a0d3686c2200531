package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/subscan/internal/billing"
	"github.com/sells-group/subscan/internal/model"
)

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List confirmed subscriptions with monthly and annual totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		subs, err := st.ListConfirmed(ctx)
		if err != nil {
			return eris.Wrap(err, "subscriptions list")
		}

		if len(subs) == 0 {
			fmt.Fprintln(os.Stderr, "No confirmed subscriptions.")
			return nil
		}

		formatSubscriptions(os.Stdout, subs)
		return nil
	},
}

func candidatesOf(subs []model.Subscription) []model.Candidate {
	out := make([]model.Candidate, len(subs))
	for i, s := range subs {
		out[i] = s.Candidate
	}
	return out
}

// formatSubscriptions writes confirmed subscriptions and their totals to out.
func formatSubscriptions(out io.Writer, subs []model.Subscription) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tORIGIN\tPRICE\tCYCLE\tMONTHLY\tCONFIRMED")
	_, _ = fmt.Fprintln(w, "----\t------\t-----\t-----\t-------\t---------")

	for _, s := range subs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateName(s.DisplayName),
			s.Origin,
			s.Price.StringFixed(2),
			s.Cycle,
			billing.MonthlyEquivalent(s.Price, s.Cycle).StringFixed(2),
			s.ConfirmedAt.Format("2006-01-02"),
		)
	}
	_ = w.Flush()

	records := candidatesOf(subs)
	_, _ = fmt.Fprintf(out, "\nMonthly total: %s\nAnnual total:  %s\n",
		billing.MonthlyTotal(records).StringFixed(2),
		billing.AnnualTotal(records).StringFixed(2),
	)
}

func init() {
	rootCmd.AddCommand(subscriptionsCmd)
}
