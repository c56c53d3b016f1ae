package main

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/table"
)

const (
	formatCSV     = "csv"
	formatXLSX    = "xlsx"
	formatGeoJSON = "geojson"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the annotated location table",
	Long:  "Loads the table, merges stored notes, and writes it as CSV, an XLSX workbook, or a GeoJSON feature collection.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format := strings.ToLower(exportFormat)
		if format == formatXLSX && exportOut == "" {
			return eris.New("export: --out is required for xlsx")
		}

		env, err := initApp(ctx, "export")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Session.Load(ctx); err != nil {
			return err
		}
		locs := env.Session.Snapshot()

		var buf bytes.Buffer
		if err := writeExport(&buf, format, locs); err != nil {
			return err
		}

		if exportOut == "" {
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return eris.Wrap(err, "export: write stdout")
		}
		if err := os.WriteFile(exportOut, buf.Bytes(), 0o644); err != nil {
			return eris.Wrapf(err, "export: write %s", exportOut)
		}
		zap.L().Info("export complete",
			zap.String("format", format),
			zap.String("out", exportOut),
			zap.Int("locations", len(locs)),
		)
		return nil
	},
}

// writeExport renders locs to w in format.
func writeExport(w io.Writer, format string, locs []model.Location) error {
	switch format {
	case formatCSV:
		_, err := io.WriteString(w, table.SerializeTable(locs)+"\n")
		return eris.Wrap(err, "export: write csv")
	case formatXLSX:
		return table.WriteXLSX(w, locs)
	case formatGeoJSON:
		b, err := geo.FeatureCollection(locs)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return eris.Wrap(err, "export: write geojson")
	default:
		return eris.Errorf("export: unknown format %q (want csv, xlsx, or geojson)", format)
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", formatCSV, "output format: csv, xlsx, or geojson")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
