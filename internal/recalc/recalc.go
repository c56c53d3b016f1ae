// Package recalc re-derives distance and ETA for every row of a location
// table using corrected addresses and the remote geocoder.
package recalc

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/corrections"
	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/table"
	"github.com/sells-group/ctmap/pkg/geocode"
)

// MinDelay is the floor for the pause after each geocoder call.
const MinDelay = 100 * time.Millisecond

// Summary counts what a batch run did.
type Summary struct {
	RunID      string `json:"run_id"`
	Rows       int    `json:"rows"`
	Updated    int    `json:"updated"`
	Overridden int    `json:"overridden"`
	Unresolved int    `json:"unresolved"`
	Skipped    int    `json:"skipped"`
}

// Option configures a Recalculator.
type Option func(*Recalculator)

// WithOrigin measures from origin instead of geo.Origin.
func WithOrigin(origin model.Coordinate) Option {
	return func(r *Recalculator) {
		r.origin = origin
	}
}

// WithDelay sets the pause after each geocoder call. Values below MinDelay
// are raised to MinDelay.
func WithDelay(d time.Duration) Option {
	return func(r *Recalculator) {
		r.delay = max(d, MinDelay)
	}
}

// Recalculator refreshes distance and ETA columns. Rows are processed
// strictly one after another.
type Recalculator struct {
	corrections *corrections.Table
	geocoder    geocode.Client
	origin      model.Coordinate
	delay       time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// New creates a Recalculator. A nil table uses corrections.Default().
func New(tbl *corrections.Table, gc geocode.Client, opts ...Option) *Recalculator {
	if tbl == nil {
		tbl = corrections.Default()
	}
	r := &Recalculator{
		corrections: tbl,
		geocoder:    gc,
		origin:      geo.Origin,
		delay:       MinDelay,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type source int

const (
	sourceNone source = iota
	sourceOverride
	sourceGeocoder
)

// Metrics recomputes distance and ETA for one location. It reports false
// when the address could not be geocoded.
func (r *Recalculator) Metrics(ctx context.Context, address, name string) (*geo.Metrics, bool) {
	m, _ := r.metrics(ctx, address, name)
	return m, m != nil
}

func (r *Recalculator) metrics(ctx context.Context, address, name string) (*geo.Metrics, source) {
	if c, ok := r.corrections.GetCoordinateOverride(name); ok {
		m := geo.MetricsFrom(r.origin, c)
		return &m, sourceOverride
	}

	query := r.corrections.GetCorrectAddress(address, name)
	coord := geocode.Resolve(ctx, r.geocoder, query)
	if coord == nil {
		return nil, sourceGeocoder
	}
	m := geo.MetricsFrom(r.origin, *coord)
	return &m, sourceGeocoder
}

// RecalculateAll returns text with the distance and ETA columns of every data
// row refreshed. The header is kept verbatim. Rows that cannot be geocoded
// keep their old values; blank rows and rows with too few columns are
// dropped. Cancelling ctx stops the run between rows.
func (r *Recalculator) RecalculateAll(ctx context.Context, text string) (string, Summary, error) {
	sum := Summary{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("run_id", sum.RunID))

	lines := table.SplitLines(text)
	if len(lines) == 0 {
		return "", sum, nil
	}

	out := []string{lines[0]}
	data := lines[1:]
	log.Info("recalc: starting",
		zap.Int("rows", len(data)),
		zap.Float64("origin_lat", r.origin.Lat),
		zap.Float64("origin_lng", r.origin.Lng),
	)

	for i, line := range data {
		if err := ctx.Err(); err != nil {
			return "", sum, eris.Wrap(err, "recalc: cancelled")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := table.ParseRow(line)
		if len(fields) < table.MinColumns {
			sum.Skipped++
			log.Debug("recalc: short row skipped", zap.Int("row", i+1), zap.Int("fields", len(fields)))
			continue
		}
		sum.Rows++

		name, address := fields[table.ColName], fields[table.ColAddress]
		m, src := r.metrics(ctx, address, name)
		switch {
		case m == nil:
			sum.Unresolved++
			log.Warn("recalc: could not calculate metrics",
				zap.Int("row", i+1),
				zap.String("name", name),
				zap.String("address", address),
			)
		default:
			fields[table.ColDistance] = table.FormatMiles(m.Distance)
			fields[table.ColETA] = strconv.Itoa(m.ETA)
			if src == sourceOverride {
				sum.Overridden++
			} else {
				sum.Updated++
			}
			log.Debug("recalc: row updated",
				zap.Int("row", i+1),
				zap.String("name", name),
				zap.Float64("distance", m.Distance),
				zap.Int("eta", m.ETA),
			)
		}

		out = append(out, table.FormatRow(fields))

		if src == sourceGeocoder {
			if err := r.sleep(ctx, r.delay); err != nil {
				return "", sum, eris.Wrap(err, "recalc: cancelled")
			}
		}
	}

	log.Info("recalc: complete",
		zap.Int("updated", sum.Updated),
		zap.Int("overridden", sum.Overridden),
		zap.Int("unresolved", sum.Unresolved),
		zap.Int("skipped", sum.Skipped),
	)
	return strings.Join(out, "\n"), sum, nil
}
