package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ctmap/internal/corrections"
	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/recalc"
	"github.com/sells-group/ctmap/internal/table"
	"github.com/sells-group/ctmap/pkg/geocode"
)

type stubGeocoder struct {
	coord *model.Coordinate
	err   error
	got   []string
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*model.Coordinate, error) {
	s.got = append(s.got, address)
	return s.coord, s.err
}

func writeTable(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "CT_locations.csv")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestWriteExport_Formats(t *testing.T) {
	locs := table.ParseTable(testTable)
	locs = geo.NewResolver(corrections.Default(), geo.WithJitter(geo.NoJitter)).ResolveAll(locs)

	var csv bytes.Buffer
	require.NoError(t, writeExport(&csv, formatCSV, locs))
	assert.True(t, strings.HasPrefix(csv.String(), "Name,Address,"))
	assert.Len(t, table.ParseTable(csv.String()), 4)

	var xlsx bytes.Buffer
	require.NoError(t, writeExport(&xlsx, formatXLSX, locs))
	back, err := table.ReadXLSX(xlsx.Bytes())
	require.NoError(t, err)
	assert.Len(t, back, 4)

	var gj bytes.Buffer
	require.NoError(t, writeExport(&gj, formatGeoJSON, locs))
	assert.Contains(t, gj.String(), `"FeatureCollection"`)

	err = writeExport(&bytes.Buffer{}, "pdf", locs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "pdf"`)
}

func TestFormatNotesList(t *testing.T) {
	var buf bytes.Buffer
	formatNotesList(&buf, nil)
	assert.Equal(t, "No notes found.\n", buf.String())

	buf.Reset()
	formatNotesList(&buf, []model.Annotation{
		{LocationName: "Mystic Aquarium", Notes: "Loved it!", Timestamp: time.Date(2026, 7, 4, 15, 0, 0, 0, time.UTC)},
		{LocationName: "Roadside Stand", Notes: strings.Repeat("corn ", 20)},
	})
	out := buf.String()
	assert.Contains(t, out, "LOCATION")
	assert.Contains(t, out, "Mystic Aquarium")
	assert.Contains(t, out, "Loved it!")
	assert.Contains(t, out, "...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

func TestRunGeocode(t *testing.T) {
	withConfig(t, testConfig(t))
	tbl := corrections.Default()
	ctx := context.Background()

	gc := &stubGeocoder{coord: &model.Coordinate{Lat: 41.3726, Lng: -71.9512}}
	var buf bytes.Buffer
	require.NoError(t, runGeocode(ctx, &buf, tbl, gc, "55 Coogan Blvd, Mystic, CT 06355", ""))
	m := geo.MetricsFrom(geo.Origin, *gc.coord)
	assert.Contains(t, buf.String(), "nominatim")
	assert.Contains(t, buf.String(), table.FormatMiles(m.Distance)+" mi")
	assert.Contains(t, buf.String(), strconv.Itoa(m.ETA)+" min")

	// Corrections apply before the lookup.
	gc.got = nil
	buf.Reset()
	require.NoError(t, runGeocode(ctx, &buf, tbl, gc, "Point Judith Rd, Narragansett, RI 02882", ""))
	assert.Equal(t, []string{"1065 Point Judith Rd, Narragansett, RI 02882"}, gc.got)

	// Overrides skip the geocoder.
	gc.got = nil
	buf.Reset()
	require.NoError(t, runGeocode(ctx, &buf, tbl, gc, "anything", "Adventureland Family Fun Park"))
	assert.Empty(t, gc.got)
	assert.Contains(t, buf.String(), "override")
	assert.Contains(t, buf.String(), "41.442500, -71.449800")

	// No candidates.
	buf.Reset()
	require.NoError(t, runGeocode(ctx, &buf, tbl, &stubGeocoder{}, "Nowhere", ""))
	assert.Contains(t, buf.String(), `no match for "Nowhere"`)

	// Errors surface.
	assert.Error(t, runGeocode(ctx, &buf, tbl, &stubGeocoder{err: assert.AnError}, "Nowhere", ""))
}

func TestFormatCandidates(t *testing.T) {
	var buf bytes.Buffer
	formatCandidates(&buf, "Nowhere", nil)
	assert.Contains(t, buf.String(), "no match")

	buf.Reset()
	formatCandidates(&buf, "Mystic", []geocode.Candidate{
		{Lat: "41.3726", Lon: "-71.9512", Class: "building", Type: "building", DisplayName: "55 Coogan Blvd"},
		{Lat: "41.3620", Lon: "-71.9660", Class: "leisure", Type: "harbour", DisplayName: "Mystic Harbor"},
	})
	out := buf.String()
	assert.Contains(t, out, "building/building")
	assert.Contains(t, out, "leisure/harbour")
	assert.Contains(t, out, "Mystic Harbor")
}

func TestRunRecalc(t *testing.T) {
	withConfig(t, testConfig(t))
	ctx := context.Background()

	in := writeTable(t, `Name,Address,Keywords,Level of Interest,Distance (miles),ETA (minutes),Notes
"Mystic Aquarium","55 Coogan Blvd, Mystic, CT 06355","aquarium",5,0,0,
"Adventureland Family Fun Park","Point Judith Rd, Narragansett, RI 02882","go-karts",3,0,0,`)
	out := filepath.Join(t.TempDir(), "out.csv")

	coord := model.Coordinate{Lat: 41.3726, Lng: -71.9512}
	gc := &stubGeocoder{coord: &coord}
	r := recalc.New(corrections.Default(), gc, recalc.WithOrigin(geo.Origin))

	var stdout, stderr bytes.Buffer
	require.NoError(t, runRecalc(ctx, r, in, out, &stdout, &stderr))
	assert.Len(t, gc.got, 1, "override row never geocodes")
	assert.Contains(t, stdout.String(), "2 rows, 1 geocoded, 1 overridden, 0 unresolved")
	assert.Empty(t, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	locs := table.ParseTable(string(data))
	require.Len(t, locs, 2)
	m := geo.MetricsFrom(geo.Origin, coord)
	assert.InDelta(t, m.Distance, locs[0].Distance, 1e-9)
	assert.Equal(t, m.ETA, locs[0].ETA)
	assert.Positive(t, locs[1].Distance)
}

func TestRunRecalc_Stdout(t *testing.T) {
	withConfig(t, testConfig(t))
	in := writeTable(t, testTable)
	r := recalc.New(corrections.Default(), &stubGeocoder{})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runRecalc(context.Background(), r, in, "", &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "Name,Address,"))
	assert.Contains(t, stderr.String(), "unresolved")
}

func TestRunRecalc_MissingInput(t *testing.T) {
	withConfig(t, testConfig(t))
	r := recalc.New(corrections.Default(), &stubGeocoder{})

	err := runRecalc(context.Background(), r, filepath.Join(t.TempDir(), "missing.csv"), "", &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read table")
}
