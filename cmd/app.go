package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ctmap/internal/corrections"
	"github.com/sells-group/ctmap/internal/fetcher"
	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/model"
	"github.com/sells-group/ctmap/internal/notes"
	"github.com/sells-group/ctmap/internal/recalc"
	"github.com/sells-group/ctmap/internal/resilience"
	"github.com/sells-group/ctmap/internal/session"
	"github.com/sells-group/ctmap/pkg/geocode"
)

// appEnv holds what the export/notes/serve commands share.
type appEnv struct {
	Session     *session.Session
	Store       *notes.Fallback
	Source      fetcher.Source
	Corrections *corrections.Table

	// Set only for modes that geocode.
	Recalc *recalc.Recalculator
	cache  geocode.Cache
}

// Close releases the store and geocode cache.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
	if e.cache != nil {
		_ = e.cache.Close()
	}
}

// initApp validates cfg for mode and builds the session with its store.
// Callers should defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	tbl, err := loadCorrections()
	if err != nil {
		return nil, err
	}

	src, err := newSource(cfg.Table.Source)
	if err != nil {
		return nil, err
	}

	store := notes.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.FallbackDir)
	env := &appEnv{
		Session:     session.New(src, newResolver(tbl), store),
		Store:       store,
		Source:      src,
		Corrections: tbl,
	}

	if mode == "serve" {
		gc, cache, err := newGeocoder(ctx)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.cache = cache
		env.Recalc = newRecalculator(tbl, gc)
	}

	return env, nil
}

func loadCorrections() (*corrections.Table, error) {
	tbl, err := corrections.Load(cfg.Corrections.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load corrections")
	}
	return tbl, nil
}

func newSource(location string) (fetcher.Source, error) {
	s3 := cfg.Table.S3
	return fetcher.NewSource(location, fetcher.Options{
		UserAgent:  cfg.Table.UserAgent,
		Timeout:    time.Duration(cfg.Table.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Table.MaxRetries,
		S3: fetcher.S3Options{
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Region:    s3.Region,
			Insecure:  s3.Insecure,
		},
	})
}

func newResolver(tbl *corrections.Table) *geo.Resolver {
	return geo.NewResolver(tbl, geo.WithJitter(geo.JitterByName(cfg.Jitter.Mode)))
}

func origin() model.Coordinate {
	return model.Coordinate{Lat: cfg.Origin.Lat, Lng: cfg.Origin.Lng}
}

// newNominatim builds the uncached client from cfg.Geocode.
func newNominatim() *geocode.Nominatim {
	gcfg := cfg.Geocode

	var policy geocode.RankPolicy = geocode.DefaultPolicy()
	if gcfg.Policy == "first" {
		policy = geocode.FirstPolicy{}
	}

	breaker := resilience.NewCircuitBreaker(gcfg.BreakerThreshold, 0)
	breaker.OnStateChange(func(from, to resilience.BreakerState) {
		zap.L().Warn("geocode circuit breaker",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	})

	opts := []geocode.Option{
		geocode.WithUserAgent(gcfg.UserAgent),
		geocode.WithRateLimit(gcfg.RatePerSec),
		geocode.WithLimit(gcfg.Limit),
		geocode.WithPolicy(policy),
		geocode.WithCircuitBreaker(breaker),
	}
	if gcfg.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(gcfg.BaseURL))
	}
	if gcfg.TimeoutSecs > 0 {
		opts = append(opts, geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(gcfg.TimeoutSecs) * time.Second}))
	}
	return geocode.NewNominatim(opts...)
}

// newGeocoder wraps newNominatim with the configured cache. The returned
// cache is nil when caching is off; callers close it when done.
func newGeocoder(ctx context.Context) (geocode.Client, geocode.Cache, error) {
	n := newNominatim()
	ccfg := cfg.Geocode.Cache
	ttl := time.Duration(ccfg.TTLDays) * 24 * time.Hour

	var cache geocode.Cache
	switch ccfg.Driver {
	case "", "none":
		return n, nil, nil
	case "sqlite":
		c, err := geocode.NewSQLiteCache(ctx, ccfg.Path, ttl)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open geocode cache")
		}
		cache = c
	case "redis":
		cache = geocode.NewRedisCache(ccfg.RedisAddr, ccfg.RedisPassword, ccfg.RedisDB, ttl)
	default:
		return nil, nil, eris.Errorf("unknown geocode cache driver %q", ccfg.Driver)
	}

	zap.L().Debug("geocode cache enabled", zap.String("driver", ccfg.Driver))
	return geocode.NewCachedClient(n, cache), cache, nil
}

func newRecalculator(tbl *corrections.Table, gc geocode.Client) *recalc.Recalculator {
	return recalc.New(tbl, gc,
		recalc.WithOrigin(origin()),
		recalc.WithDelay(cfg.Recalc.MinDelay),
	)
}
