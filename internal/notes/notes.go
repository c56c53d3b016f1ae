// Package notes persists per-location user notes. A durable keyed store
// (SQLite or Postgres) is tried first and a flat JSON file is the fallback.
package notes

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ctmap/internal/model"
)

// ErrPersistenceUnavailable means neither the durable store nor the
// fallback could complete an operation.
var ErrPersistenceUnavailable = eris.New("notes: persistence unavailable")

// Backend stores notes keyed by location name.
type Backend interface {
	// SaveAll writes every non-empty note in locs. Empty and nil notes
	// leave the stored entry alone.
	SaveAll(ctx context.Context, locs []model.Location) error
	// Delete removes the note stored under name, if any.
	Delete(ctx context.Context, name string) error
	// LoadAll returns every stored note keyed by location name.
	LoadAll(ctx context.Context) (map[string]string, error)
	Name() string
	Close() error
}

// Lister is implemented by backends that keep note timestamps.
type Lister interface {
	List(ctx context.Context) ([]model.Annotation, error)
}

// List returns the stored annotations sorted by location name. Backends
// without timestamps report a zero Timestamp.
func List(ctx context.Context, b Backend) ([]model.Annotation, error) {
	if l, ok := b.(Lister); ok {
		return l.List(ctx)
	}
	m, err := b.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Annotation, 0, len(m))
	for name, text := range m {
		out = append(out, model.Annotation{LocationName: name, Notes: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationName < out[j].LocationName })
	return out, nil
}

// Reconcile returns a copy of locs where every location carries a note:
// the stored text, or "" when nothing is stored under its name.
func Reconcile(locs []model.Location, stored map[string]string) []model.Location {
	out := make([]model.Location, len(locs))
	for i, loc := range locs {
		out[i] = loc.WithNotes(stored[loc.Name])
	}
	return out
}

// change is one upsert derived from a location.
type change struct {
	name  string
	notes string
}

// changes returns the upserts for locs. Only non-empty notes are written.
func changes(locs []model.Location) []change {
	var out []change
	for _, loc := range locs {
		if loc.Name == "" || loc.NoteText() == "" {
			continue
		}
		out = append(out, change{name: loc.Name, notes: *loc.Notes})
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
