package geocode

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ctmap/internal/model"
)

// SQLiteCache is a Cache in a local SQLite file.
type SQLiteCache struct {
	db      *sql.DB
	ttl     time.Duration
	nowFunc func() time.Time
}

const sqliteCacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL,
	longitude    REAL,
	matched      INTEGER NOT NULL,
	cached_at    INTEGER NOT NULL
);
`

// NewSQLiteCache opens the cache at dsn. Entries older than ttl are ignored;
// a zero ttl keeps entries forever.
func NewSQLiteCache(ctx context.Context, dsn string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "geocode cache: open")
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteCacheMigration} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "geocode cache: init")
		}
	}
	return &SQLiteCache{db: db, ttl: ttl, nowFunc: time.Now}, nil
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*model.Coordinate, bool, error) {
	var lat, lng sql.NullFloat64
	var matched bool
	var cachedAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, matched, cached_at FROM geocode_cache WHERE address_hash = ?`, key,
	).Scan(&lat, &lng, &matched, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "geocode cache: get")
	}

	if c.ttl > 0 && c.nowFunc().Sub(time.Unix(cachedAt, 0)) > c.ttl {
		return nil, false, nil
	}
	if !matched {
		return nil, true, nil
	}
	return &model.Coordinate{Lat: lat.Float64, Lng: lng.Float64}, true, nil
}

// Set implements Cache.
func (c *SQLiteCache) Set(ctx context.Context, key string, coord *model.Coordinate) error {
	var lat, lng sql.NullFloat64
	if coord != nil {
		lat = sql.NullFloat64{Float64: coord.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: coord.Lng, Valid: true}
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, matched, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			matched = excluded.matched,
			cached_at = excluded.cached_at`,
		key, lat, lng, coord != nil, c.nowFunc().Unix(),
	)
	return eris.Wrap(err, "geocode cache: set")
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
