package notes

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Driver names accepted by OpenPrimary.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenPrimary opens and migrates the durable store for driver.
func OpenPrimary(ctx context.Context, driver, dsn string) (Backend, error) {
	switch driver {
	case DriverSQLite, "":
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("notes: unknown store driver %q", driver)
	}
}

// Open returns the durable store backed by a flat file in fallbackDir. A
// durable store that fails to open is logged and replaced by Unavailable,
// so every operation goes to the flat file.
func Open(ctx context.Context, driver, dsn, fallbackDir string) *Fallback {
	primary, err := OpenPrimary(ctx, driver, dsn)
	if err != nil {
		zap.L().Warn("notes: durable store unavailable",
			zap.String("driver", driver),
			zap.Error(err),
		)
		primary = Unavailable(err)
	}
	return &Fallback{Primary: primary, Secondary: NewFlatStore(fallbackDir)}
}
