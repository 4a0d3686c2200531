package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/subscan/internal/model"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List past scan sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sessions, err := st.ListSessions(ctx, sessionsLimit)
		if err != nil {
			return eris.Wrap(err, "sessions list")
		}

		if len(sessions) == 0 {
			fmt.Fprintln(os.Stderr, "No sessions found.")
			return nil
		}

		formatSessions(os.Stdout, sessions)
		return nil
	},
}

// formatSessions writes a tabular list of sessions to out.
func formatSessions(out io.Writer, sessions []model.SessionResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tITEMS\tCANDIDATES\tPURCHASES\tEMAIL\tERROR")
	_, _ = fmt.Fprintln(w, "--\t-------\t--------\t-----\t----------\t---------\t-----\t-----")

	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			truncateID(s.ID),
			s.StartedAt.Format("2006-01-02 15:04"),
			s.Duration.Round(time.Millisecond),
			s.ItemsScanned,
			len(s.Candidates),
			s.PurchaseStatus,
			s.EmailStatus,
			s.Error,
		)
	}
	_ = w.Flush()
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "max sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
