package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/subscan/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export confirmed subscriptions to an XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		subs, err := st.ListConfirmed(ctx)
		if err != nil {
			return eris.Wrap(err, "export: list confirmed")
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", exportOut)
		}
		if err := export.WriteXLSX(f, candidatesOf(subs)); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", exportOut)
		}

		zap.L().Info("export: wrote subscriptions", zap.String("path", exportOut), zap.Int("count", len(subs)))
		fmt.Fprintf(os.Stderr, "Exported %d subscriptions to %s\n", len(subs), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "subscriptions.xlsx", "output file")
	rootCmd.AddCommand(exportCmd)
}
