package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/notes"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Read and edit per-location notes",
}

var notesSetCmd = &cobra.Command{
	Use:   "set NAME TEXT",
	Short: "Set the note for a location (empty TEXT clears it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "notes")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Session.Load(ctx); err != nil {
			return err
		}

		loc, err := env.Session.UpdateNotes(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		zap.L().Info("note saved", zap.String("name", loc.Name), zap.String("store", env.Store.Name()))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", loc.Name, loc.NoteText())
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("notes"); err != nil {
			return err
		}
		store := notes.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.FallbackDir)
		defer store.Close() //nolint:errcheck

		list, err := store.List(ctx)
		if err != nil {
			return err
		}
		formatNotesList(cmd.OutOrStdout(), list)
		return nil
	},
}

// formatNotesList writes a tabular list of annotations to out.
func formatNotesList(out io.Writer, list []model.Annotation) {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(out, "No notes found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LOCATION\tUPDATED\tNOTES")
	_, _ = fmt.Fprintln(w, "--------\t-------\t-----")
	for _, a := range list {
		updated := "-"
		if !a.Timestamp.IsZero() {
			updated = a.Timestamp.Local().Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.LocationName, updated, truncate(a.Notes, 60))
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	notesCmd.AddCommand(notesSetCmd, notesListCmd)
	rootCmd.AddCommand(notesCmd)
}
