package notes

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/model"
)

// Fallback tries Primary first and uses Secondary only when Primary fails.
// When both fail the error wraps ErrPersistenceUnavailable.
type Fallback struct {
	Primary   Backend
	Secondary Backend
}

func (f *Fallback) Name() string {
	return fmt.Sprintf("%s+%s", f.Primary.Name(), f.Secondary.Name())
}

// SaveAll implements Backend.
func (f *Fallback) SaveAll(ctx context.Context, locs []model.Location) error {
	err := f.Primary.SaveAll(ctx, locs)
	if err == nil {
		return nil
	}
	zap.L().Warn("notes: primary save failed, using fallback",
		zap.String("primary", f.Primary.Name()),
		zap.String("fallback", f.Secondary.Name()),
		zap.Error(err),
	)

	if err2 := f.Secondary.SaveAll(ctx, locs); err2 != nil {
		return eris.Wrapf(ErrPersistenceUnavailable, "save: %s: %v; %s: %v",
			f.Primary.Name(), err, f.Secondary.Name(), err2)
	}
	return nil
}

// Delete implements Backend. The entry is removed from both backends and
// only a double failure is an error.
func (f *Fallback) Delete(ctx context.Context, name string) error {
	err := f.Primary.Delete(ctx, name)
	err2 := f.Secondary.Delete(ctx, name)
	switch {
	case err != nil && err2 != nil:
		return eris.Wrapf(ErrPersistenceUnavailable, "delete: %s: %v; %s: %v",
			f.Primary.Name(), err, f.Secondary.Name(), err2)
	case err != nil:
		zap.L().Warn("notes: primary delete failed, removed from fallback",
			zap.String("primary", f.Primary.Name()),
			zap.String("name", name),
			zap.Error(err),
		)
	}
	return nil
}

// LoadAll implements Backend.
func (f *Fallback) LoadAll(ctx context.Context) (map[string]string, error) {
	m, err := f.Primary.LoadAll(ctx)
	if err == nil {
		return m, nil
	}
	zap.L().Warn("notes: primary load failed, using fallback",
		zap.String("primary", f.Primary.Name()),
		zap.String("fallback", f.Secondary.Name()),
		zap.Error(err),
	)

	m, err2 := f.Secondary.LoadAll(ctx)
	if err2 != nil {
		return nil, eris.Wrapf(ErrPersistenceUnavailable, "load: %s: %v; %s: %v",
			f.Primary.Name(), err, f.Secondary.Name(), err2)
	}
	return m, nil
}

// List implements Lister, preferring the primary's timestamps.
func (f *Fallback) List(ctx context.Context) ([]model.Annotation, error) {
	if anns, err := List(ctx, f.Primary); err == nil {
		return anns, nil
	}
	anns, err := List(ctx, f.Secondary)
	if err != nil {
		return nil, eris.Wrap(ErrPersistenceUnavailable, "list")
	}
	return anns, nil
}

// Close closes both backends.
func (f *Fallback) Close() error {
	err := f.Primary.Close()
	if err2 := f.Secondary.Close(); err == nil {
		err = err2
	}
	return err
}

type unavailable struct {
	err error
}

// Unavailable returns a Backend whose every operation fails with err. It
// stands in for a primary store that could not be opened.
func Unavailable(err error) Backend {
	return unavailable{err: err}
}

func (u unavailable) SaveAll(context.Context, []model.Location) error { return u.err }

func (u unavailable) Delete(context.Context, string) error { return u.err }

func (u unavailable) LoadAll(context.Context) (map[string]string, error) { return nil, u.err }

func (u unavailable) Name() string { return "unavailable" }

func (u unavailable) Close() error { return nil }
