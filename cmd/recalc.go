package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/recalc"
)

var (
	recalcIn  string
	recalcOut string
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Refresh distance and ETA columns by geocoding every row",
	Long:  "Geocodes each row of the location table one at a time and rewrites the distance and ETA columns. Rows that cannot be geocoded keep their existing values.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("recalc"); err != nil {
			return err
		}

		in := recalcIn
		if in == "" {
			in = cfg.Table.Source
		}

		tbl, err := loadCorrections()
		if err != nil {
			return err
		}
		gc, cache, err := newGeocoder(ctx)
		if err != nil {
			return err
		}
		if cache != nil {
			defer cache.Close() //nolint:errcheck
		}

		return runRecalc(ctx, newRecalculator(tbl, gc), in, recalcOut, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// runRecalc reads the table at in, recalculates it, and writes the result
// to out (stdout when empty). The summary goes to stdout when the table is
// written to a file, otherwise to stderr.
func runRecalc(ctx context.Context, r *recalc.Recalculator, in, out string, stdout, stderr io.Writer) error {
	src, err := newSource(in)
	if err != nil {
		return err
	}
	text, err := src.Fetch(ctx)
	if err != nil {
		return eris.Wrapf(err, "read table %s", in)
	}

	updated, summary, err := r.RecalculateAll(ctx, text)
	if err != nil {
		return err
	}

	summaryOut := stderr
	if out == "" {
		if _, err := io.WriteString(stdout, updated+"\n"); err != nil {
			return eris.Wrap(err, "write table")
		}
	} else {
		if err := os.WriteFile(out, []byte(updated+"\n"), 0o644); err != nil {
			return eris.Wrapf(err, "write table %s", out)
		}
		summaryOut = stdout
	}

	zap.L().Info("recalc complete",
		zap.String("run_id", summary.RunID),
		zap.String("in", in),
		zap.String("out", out),
	)
	formatSummary(summaryOut, summary)
	return nil
}

func formatSummary(w io.Writer, s recalc.Summary) {
	_, _ = fmt.Fprintf(w, "run %s: %d rows, %d geocoded, %d overridden, %d unresolved, %d skipped\n",
		s.RunID, s.Rows, s.Updated, s.Overridden, s.Unresolved, s.Skipped)
}

func init() {
	recalcCmd.Flags().StringVar(&recalcIn, "in", "", "table to read, path or URL (default table.source)")
	recalcCmd.Flags().StringVar(&recalcOut, "out", "", "file to write the updated table to (default stdout)")
	rootCmd.AddCommand(recalcCmd)
}
