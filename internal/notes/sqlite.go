package notes

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ctmap/internal/model"
)

// SQLiteStore implements Backend using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS notes (
	location_name TEXT PRIMARY KEY,
	notes         TEXT NOT NULL,
	timestamp     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_timestamp ON notes(timestamp);
`

// Migrate creates the notes table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveAll implements Backend. All writes happen in one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, locs []model.Location) error {
	writes := changes(locs)
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	ts := formatTimestamp(s.nowFunc())
	for _, w := range writes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO notes (location_name, notes, timestamp) VALUES (?, ?, ?)
			ON CONFLICT(location_name) DO UPDATE SET notes = excluded.notes, timestamp = excluded.timestamp`,
			w.name, w.notes, ts,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert note %s", w.name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Delete implements Backend.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE location_name = ?`, name)
	return eris.Wrapf(err, "sqlite: delete note %s", name)
}

// LoadAll implements Backend.
func (s *SQLiteStore) LoadAll(ctx context.Context) (map[string]string, error) {
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
func (s *SQLiteStore) List(ctx context.Context) ([]model.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT location_name, notes, timestamp FROM notes ORDER BY location_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list notes")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Annotation
	for rows.Next() {
		var a model.Annotation
		var ts string
		if err := rows.Scan(&a.LocationName, &a.Notes, &ts); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan note")
		}
		a.Timestamp = parseTimestamp(ts)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list notes iterate")
}
