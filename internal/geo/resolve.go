package geo

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"github.com/sells-group/ctmap/internal/model"
)

// Jitter radii in degrees, applied on each axis.
const (
	CityJitter    = 0.005
	DefaultJitter = 0.05
)

// DefaultCenter is the fallback for addresses with no known city.
var DefaultCenter = model.Coordinate{Lat: 41.5, Lng: -72.5}

// City is one entry of the static lookup table.
type City struct {
	Name  string
	Coord model.Coordinate
}

// KnownCities is the ordered city lookup table. The first name contained in an
// address's city segment wins.
var KnownCities = []City{
	{"Stonington", model.Coordinate{Lat: 41.3659, Lng: -71.9067}},
	{"Oakdale", model.Coordinate{Lat: 41.4779, Lng: -72.1670}},
	{"Mashantucket", model.Coordinate{Lat: 41.4779, Lng: -71.9670}},
	{"Mystic", model.Coordinate{Lat: 41.3542, Lng: -71.9661}},
	{"New London", model.Coordinate{Lat: 41.3557, Lng: -72.0995}},
	{"Narragansett", model.Coordinate{Lat: 41.4348, Lng: -71.4470}},
	{"Hartford", model.Coordinate{Lat: 41.7658, Lng: -72.6734}},
	{"Storrs", model.Coordinate{Lat: 41.8084, Lng: -72.2495}},
	{"Providence", model.Coordinate{Lat: 41.8240, Lng: -71.4128}},
	{"Niantic", model.Coordinate{Lat: 41.3251, Lng: -72.1995}},
	{"East Haddam", model.Coordinate{Lat: 41.4551, Lng: -72.4687}},
	{"Fall River", model.Coordinate{Lat: 41.7015, Lng: -71.1550}},
	{"Westerly", model.Coordinate{Lat: 41.3776, Lng: -71.8270}},
	{"Waterford", model.Coordinate{Lat: 41.3429, Lng: -72.1423}},
	{"North Kingstown", model.Coordinate{Lat: 41.5504, Lng: -71.4467}},
	{"South Kingstown", model.Coordinate{Lat: 41.4348, Lng: -71.5270}},
	{"Groton", model.Coordinate{Lat: 41.3501, Lng: -72.0781}},
}

// OverrideSource supplies authoritative coordinates by location name.
type OverrideSource interface {
	GetCoordinateOverride(name string) (model.Coordinate, bool)
}

// JitterFunc returns per-axis offsets in [-radius, radius] for the record
// identified by key.
type JitterFunc func(key string, radius float64) (dLat, dLng float64)

// NoJitter never offsets.
func NoJitter(string, float64) (float64, float64) { return 0, 0 }

// SeededJitter derives a stable offset from an FNV-1a hash of key, so the
// same record lands on the same spot every load.
func SeededJitter(key string, radius float64) (float64, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	v := h.Sum64()
	a := float64(v>>32) / (1 << 32)
	b := float64(v&0xffffffff) / (1 << 32)
	return (a*2 - 1) * radius, (b*2 - 1) * radius
}

// RandomJitter draws a fresh offset on every call.
func RandomJitter(_ string, radius float64) (float64, float64) {
	return (rand.Float64()*2 - 1) * radius, (rand.Float64()*2 - 1) * radius
}

// JitterByName maps a config value to a JitterFunc. Unknown names fall back
// to SeededJitter.
func JitterByName(name string) JitterFunc {
	switch strings.ToLower(name) {
	case "none", "off":
		return NoJitter
	case "random":
		return RandomJitter
	default:
		return SeededJitter
	}
}

// Placement sources.
const (
	SourceOverride = "override"
	SourceCity     = "city"
	SourceDefault  = "default"
)

// Placement is a deterministic resolution before jitter.
type Placement struct {
	Coord  model.Coordinate
	Source string
	City   string  // matched lookup-table city, SourceCity only
	Radius float64 // jitter radius to apply, 0 for overrides
}

// Resolver places records on the map without any network access.
type Resolver struct {
	overrides OverrideSource
	cities    []City
	center    model.Coordinate
	jitter    JitterFunc
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithJitter sets the jitter function. Default: SeededJitter.
func WithJitter(fn JitterFunc) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.jitter = fn
		}
	}
}

// WithCities replaces the city lookup table.
func WithCities(cities []City) ResolverOption {
	return func(r *Resolver) {
		r.cities = cities
	}
}

// WithCenter sets the fallback center.
func WithCenter(c model.Coordinate) ResolverOption {
	return func(r *Resolver) {
		r.center = c
	}
}

// NewResolver creates a Resolver. overrides may be nil.
func NewResolver(overrides OverrideSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		overrides: overrides,
		cities:    KnownCities,
		center:    DefaultCenter,
		jitter:    SeededJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Place resolves a record deterministically: override, then city lookup,
// then the default center.
func (r *Resolver) Place(loc model.Location) Placement {
	if r.overrides != nil {
		if c, ok := r.overrides.GetCoordinateOverride(loc.Name); ok {
			return Placement{Coord: c, Source: SourceOverride}
		}
	}

	city := CitySegment(loc.Address)
	for _, known := range r.cities {
		if strings.Contains(city, known.Name) {
			return Placement{Coord: known.Coord, Source: SourceCity, City: known.Name, Radius: CityJitter}
		}
	}

	return Placement{Coord: r.center, Source: SourceDefault, Radius: DefaultJitter}
}

// Resolve places a record and applies jitter.
func (r *Resolver) Resolve(loc model.Location) model.Coordinate {
	p := r.Place(loc)
	if p.Radius == 0 {
		return p.Coord
	}
	dLat, dLng := r.jitter(loc.Name, p.Radius)
	return model.Coordinate{Lat: p.Coord.Lat + dLat, Lng: p.Coord.Lng + dLng}
}

// ResolveAll returns a new slice with every record's coordinate set.
func (r *Resolver) ResolveAll(locs []model.Location) []model.Location {
	out := model.Clone(locs)
	for i := range out {
		c := r.Resolve(out[i])
		out[i].Coord = &c
	}
	return out
}

// CitySegment returns the trimmed second comma-separated part of an address,
// which is conventionally the city.
func CitySegment(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
