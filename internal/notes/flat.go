package notes

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ctmap/internal/model"
)

// FlatKey is the fixed key the fallback mapping is stored under.
const FlatKey = "ct-map-notes"

// FlatStore keeps one JSON object of name to notes in <dir>/ct-map-notes.json.
// SaveAll rewrites the whole mapping.
type FlatStore struct {
	path string
	mu   sync.Mutex
}

// NewFlatStore returns a FlatStore rooted at dir. The file is created on the
// first save.
func NewFlatStore(dir string) *FlatStore {
	return &FlatStore{path: filepath.Join(dir, FlatKey+".json")}
}

// Path returns the backing file path.
func (f *FlatStore) Path() string { return f.path }

func (f *FlatStore) Name() string { return "flat" }

func (f *FlatStore) Close() error { return nil }

// SaveAll implements Backend. Only non-empty notes are written.
func (f *FlatStore) SaveAll(ctx context.Context, locs []model.Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := make(map[string]string)
	for _, loc := range locs {
		if text := loc.NoteText(); text != "" {
			m[loc.Name] = text
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(m)
}

// Delete implements Backend. The rest of the mapping is kept.
func (f *FlatStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := m[name]; !ok {
		return nil
	}
	delete(m, name)
	return f.write(m)
}

// write replaces the file with m. Callers hold mu.
func (f *FlatStore) write(m map[string]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "flat: marshal")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return eris.Wrap(err, "flat: create dir")
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "flat: write")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return eris.Wrap(err, "flat: rename")
	}
	return nil
}

// LoadAll implements Backend. A missing file is an empty mapping.
func (f *FlatStore) LoadAll(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// read returns the stored mapping. Callers hold mu.
func (f *FlatStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "flat: read")
	}

	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "flat: parse")
	}
	return m, nil
}
