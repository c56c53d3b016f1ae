// Package session holds the in-memory location set for one profile. Every
// change swaps in a new slice; published snapshots are never mutated.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/fetcher"
	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/notes"
	"github.com/sells-group/ctmap/internal/table"
)

var (
	// ErrLoadFailed means the table could not be fetched. The previous
	// snapshot, if any, is kept.
	ErrLoadFailed = eris.New("session: table load failed")

	// ErrUnknownLocation is returned for edits to a name not in the table.
	ErrUnknownLocation = eris.New("session: unknown location")
)

// Session is safe for concurrent use.
type Session struct {
	source   fetcher.Source
	resolver *geo.Resolver
	store    notes.Backend

	// saveMu orders snapshot replacement and note writes so a save always
	// carries the edit it was made for.
	saveMu sync.Mutex
	// notesStale is set while the stored notes could not be read. Guarded
	// by saveMu.
	notesStale bool

	mu       sync.RWMutex
	locs     []model.Location
	loaded   bool
	loadedAt time.Time
}

// New creates an empty Session. Call Load before reading.
func New(src fetcher.Source, resolver *geo.Resolver, store notes.Backend) *Session {
	return &Session{source: src, resolver: resolver, store: store}
}

// Load fetches, parses, and places the table, then merges stored notes.
// A notes failure is logged and the table loads with empty notes.
func (s *Session) Load(ctx context.Context) error {
	text, err := s.source.Fetch(ctx)
	if err != nil {
		zap.L().Error("session: fetch table", zap.String("source", s.source.String()), zap.Error(err))
		return eris.Wrapf(ErrLoadFailed, "%s: %v", s.source.String(), err)
	}
	return s.Apply(ctx, text)
}

// Apply replaces the snapshot with the locations parsed from text, placing
// them and merging stored notes.
func (s *Session) Apply(ctx context.Context, text string) error {
	locs := s.resolver.ResolveAll(table.ParseTable(text))

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	stored, err := s.store.LoadAll(ctx)
	if err != nil {
		zap.L().Warn("session: load notes", zap.String("store", s.store.Name()), zap.Error(err))
		stored = nil
	}
	s.notesStale = err != nil
	locs = notes.Reconcile(locs, stored)

	s.mu.Lock()
	s.locs = locs
	s.loaded = true
	s.loadedAt = time.Now()
	s.mu.Unlock()

	zap.L().Info("session: table loaded",
		zap.Int("locations", len(locs)),
		zap.Int("notes", len(stored)),
	)
	return nil
}

// Snapshot returns the current locations. The slice is shared and must be
// treated as read-only.
func (s *Session) Snapshot() []model.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locs
}

// Loaded reports whether a table has been loaded and when.
func (s *Session) Loaded() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded, s.loadedAt
}

// UpdateNotes sets the note for name and persists it. An empty text
// deletes the stored note for name only; other text is written with the
// rest of the snapshot. The edit stays applied in memory even when
// persisting fails; the returned error then wraps
// notes.ErrPersistenceUnavailable.
//
// While the stored notes are unreadable the store is retried first, and
// non-empty edits are kept in memory only.
func (s *Session) UpdateNotes(ctx context.Context, name, text string) (model.Location, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.notesStale {
		s.reloadNotes(ctx)
	}

	s.mu.Lock()
	idx := -1
	for i, loc := range s.locs {
		if loc.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.Location{}, eris.Wrapf(ErrUnknownLocation, "%q", name)
	}

	next := model.Clone(s.locs)
	next[idx] = next[idx].WithNotes(text)
	s.locs = next
	updated := next[idx]
	s.mu.Unlock()

	var err error
	switch {
	case text == "":
		err = s.store.Delete(ctx, name)
	case s.notesStale:
		err = eris.Wrap(notes.ErrPersistenceUnavailable, "session: stored notes not loaded, edit kept in memory")
	default:
		err = s.store.SaveAll(ctx, next)
	}
	if err != nil {
		zap.L().Warn("session: save notes", zap.String("name", name), zap.Error(err))
		if !errors.Is(err, notes.ErrPersistenceUnavailable) {
			err = eris.Wrapf(notes.ErrPersistenceUnavailable, "%v", err)
		}
		return updated, err
	}
	return updated, nil
}

// reloadNotes retries the store after a failed load and fills in stored
// notes for locations that have none in memory. Callers hold saveMu.
func (s *Session) reloadNotes(ctx context.Context) {
	stored, err := s.store.LoadAll(ctx)
	if err != nil {
		zap.L().Warn("session: reload notes", zap.String("store", s.store.Name()), zap.Error(err))
		return
	}

	s.mu.Lock()
	next := model.Clone(s.locs)
	for i, loc := range next {
		if text, ok := stored[loc.Name]; ok && loc.NoteText() == "" {
			next[i] = loc.WithNotes(text)
		}
	}
	s.locs = next
	s.mu.Unlock()

	s.notesStale = false
	zap.L().Info("session: notes recovered", zap.Int("notes", len(stored)))
}
