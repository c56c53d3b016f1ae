package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/ctmap/internal/corrections"
	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/table"
	"github.com/sells-group/ctmap/pkg/geocode"
)

var (
	geocodeAll  bool
	geocodeName string
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode ADDRESS",
	Short: "Look up one address and show its distance and ETA",
	Long:  "Applies address corrections, queries Nominatim, and prints the chosen coordinate with the distance and drive time from the origin. With --all, prints every candidate instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		tbl, err := loadCorrections()
		if err != nil {
			return err
		}

		if geocodeAll {
			address := tbl.GetCorrectAddress(args[0], geocodeName)
			candidates, err := newNominatim().Candidates(ctx, address)
			if err != nil {
				return err
			}
			formatCandidates(cmd.OutOrStdout(), address, candidates)
			return nil
		}

		gc, cache, err := newGeocoder(ctx)
		if err != nil {
			return err
		}
		if cache != nil {
			defer cache.Close() //nolint:errcheck
		}
		return runGeocode(ctx, cmd.OutOrStdout(), tbl, gc, args[0], geocodeName)
	},
}

// runGeocode prints the coordinate and metrics for one address. An override
// for name wins over the geocoder.
func runGeocode(ctx context.Context, out io.Writer, tbl *corrections.Table, gc geocode.Client, address, name string) error {
	var coord *model.Coordinate
	source := "nominatim"

	if c, ok := tbl.GetCoordinateOverride(name); ok {
		coord, source = &c, "override"
	} else {
		address = tbl.GetCorrectAddress(address, name)
		var err error
		if coord, err = gc.Geocode(ctx, address); err != nil {
			return err
		}
	}

	if coord == nil {
		_, _ = fmt.Fprintf(out, "no match for %q\n", address)
		return nil
	}

	m := geo.MetricsFrom(origin(), *coord)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Address:\t%s\n", address)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", source)
	_, _ = fmt.Fprintf(w, "Coordinate:\t%.6f, %.6f\n", coord.Lat, coord.Lng)
	_, _ = fmt.Fprintf(w, "Distance:\t%s mi\n", table.FormatMiles(m.Distance))
	_, _ = fmt.Fprintf(w, "ETA:\t%d min\n", m.ETA)
	_ = w.Flush()
	return nil
}

// formatCandidates writes every Nominatim candidate, best ranked first as
// returned by the service.
func formatCandidates(out io.Writer, address string, candidates []geocode.Candidate) {
	if len(candidates) == 0 {
		_, _ = fmt.Fprintf(out, "no match for %q\n", address)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LAT\tLON\tCLASS/TYPE\tNAME")
	_, _ = fmt.Fprintln(w, "---\t---\t----------\t----")
	for _, c := range candidates {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Lat, c.Lon, c.Class+"/"+c.Type, strings.TrimSpace(c.DisplayName))
	}
	_ = w.Flush()
}

func init() {
	geocodeCmd.Flags().BoolVar(&geocodeAll, "all", false, "print every candidate instead of the chosen one")
	geocodeCmd.Flags().StringVar(&geocodeName, "name", "", "location name, for overrides and name-specific corrections")
	rootCmd.AddCommand(geocodeCmd)
}
