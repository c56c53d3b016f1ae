package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sells-group/ctmap/internal/config"
	"github.com/sells-group/ctmap/internal/corrections"
	"github.com/sells-group/ctmap/internal/geo"
	"github.com/sells-group/ctmap/internal/notes"
	"github.com/sells-group/ctmap/internal/session"
)

const testTable = `Name,Address,Keywords,Level of Interest,Distance (miles),ETA (minutes),Notes
"Mystic Aquarium","55 Coogan Blvd, Mystic, CT 06355","aquarium, beluga whales",5,3.2,10,
"Mystic Seaport Museum","75 Greenmanville Ave, Mystic, CT 06355","museum, tall ships",4,3.5,10,
"Adventureland Family Fun Park","Point Judith Rd, Narragansett, RI 02882","go-karts, mini golf",3,28.1,40,
"Roadside Stand","Nowhere","corn",1,0,0,`

// stubSource serves text, or err when set. Safe for concurrent use.
type stubSource struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (s *stubSource) Fetch(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.text, s.err
}

func (s *stubSource) String() string { return "stub" }

func (s *stubSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// newTestSession builds a session over src with notes in a temp-dir flat file.
func newTestSession(t *testing.T, src *stubSource, store notes.Backend) *session.Session {
	t.Helper()
	if store == nil {
		store = notes.NewFlatStore(t.TempDir())
	}
	resolver := geo.NewResolver(corrections.Default(), geo.WithJitter(geo.NoJitter))
	return session.New(src, resolver, store)
}

func newTestHandler(t *testing.T, src *stubSource, store notes.Backend) *apiHandler {
	t.Helper()
	return &apiHandler{session: newTestSession(t, src, store), source: src}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// withConfig installs c as the package config for the duration of the test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

// testConfig returns a config usable by every command without a network.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.Origin = config.OriginConfig{Lat: geo.Origin.Lat, Lng: geo.Origin.Lng}
	c.Table = config.TableConfig{Source: "CT_locations.csv", UserAgent: "ctmap-test", TimeoutSecs: 5, MaxRetries: 1}
	c.Geocode = config.GeocodeConfig{
		BaseURL:          "http://127.0.0.1:1",
		UserAgent:        "ctmap-test",
		Limit:            5,
		RatePerSec:       1000,
		TimeoutSecs:      5,
		BreakerThreshold: 5,
		Policy:           "prefer",
		Cache:            config.CacheConfig{Driver: "none"},
	}
	c.Store = config.StoreConfig{Driver: "sqlite", DatabaseURL: dir + "/ctmap.db", FallbackDir: dir}
	c.Jitter.Mode = "none"
	c.Server.Port = 8080
	c.Log = config.LogConfig{Level: "info", Format: "json"}
	return c
}
