package notes

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ctmap/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Backend using pgxpool.
type PostgresStore struct {
	pool    Pool
	nowFunc func() time.Time
}

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, nowFunc: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS notes (
	location_name TEXT PRIMARY KEY,
	notes         TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notes_timestamp ON notes(timestamp);
`

// Migrate creates the notes table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveAll implements Backend.
func (s *PostgresStore) SaveAll(ctx context.Context, locs []model.Location) error {
	writes := changes(locs)
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ts := s.nowFunc().UTC()
	for _, w := range writes {
		_, err := tx.Exec(ctx,
			`INSERT INTO notes (location_name, notes, timestamp) VALUES ($1, $2, $3)
			ON CONFLICT (location_name) DO UPDATE SET notes = EXCLUDED.notes, timestamp = EXCLUDED.timestamp`,
			w.name, w.notes, ts,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert note %s", w.name)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

// Delete implements Backend.
func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE location_name = $1`, name)
	return eris.Wrapf(err, "postgres: delete note %s", name)
}

// LoadAll implements Backend.
func (s *PostgresStore) LoadAll(ctx context.Context) (map[string]string, error) {
	anns, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(anns))
	for _, a := range anns {
		out[a.LocationName] = a.Notes
	}
	return out, nil
}

// List implements Lister.
func (s *PostgresStore) List(ctx context.Context) ([]model.Annotation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT location_name, notes, timestamp FROM notes ORDER BY location_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list notes")
	}
	defer rows.Close()

	var out []model.Annotation
	for rows.Next() {
		var a model.Annotation
		if err := rows.Scan(&a.LocationName, &a.Notes, &a.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan note")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list notes iterate")
}
