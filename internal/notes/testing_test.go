package notes

import (
	"context"
	"errors"

	"github.com/sells-group/ctmap/internal/model"
)

func strPtr(s string) *string { return &s }

func loc(name string, notes *string) model.Location {
	return model.Location{Name: name, Address: name + " St", LevelOfInterest: 3, Notes: notes}
}

var errBroken = errors.New("store broken")

// memBackend is an in-memory Backend that can be told to fail.
type memBackend struct {
	name    string
	data    map[string]string
	failing bool
	saves   int
	deletes int
	closed  bool
}

func newMemBackend(name string) *memBackend {
	return &memBackend{name: name, data: map[string]string{}}
}

func (m *memBackend) SaveAll(_ context.Context, locs []model.Location) error {
	m.saves++
	if m.failing {
		return errBroken
	}
	for _, c := range changes(locs) {
		m.data[c.name] = c.notes
	}
	return nil
}

func (m *memBackend) Delete(_ context.Context, name string) error {
	m.deletes++
	if m.failing {
		return errBroken
	}
	delete(m.data, name)
	return nil
}

func (m *memBackend) LoadAll(context.Context) (map[string]string, error) {
	if m.failing {
		return nil, errBroken
	}
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) Name() string { return m.name }

func (m *memBackend) Close() error {
	m.closed = true
	return nil
}
