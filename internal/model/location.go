// Package model defines the point-of-interest records shared by the table,
// geo, notes, and session packages.
package model

import (
	"strings"
	"time"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Location is one point of interest from the table.
type Location struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	Keywords        string  `json:"keywords"`
	LevelOfInterest int     `json:"level_of_interest"`
	Distance        float64 `json:"distance"` // miles from the origin, one decimal
	ETA             int     `json:"eta"`      // minutes, multiple of 5

	// Coord is nil until resolved. Unresolved records stay in the set but are
	// never rendered on the map.
	Coord *Coordinate `json:"coord,omitempty"`

	// Notes is nil when the record has no annotation. A pointer to "" means
	// the user explicitly cleared it.
	Notes *string `json:"notes,omitempty"`
}

// Mappable reports whether the location has a resolved coordinate.
func (l Location) Mappable() bool {
	return l.Coord != nil
}

// NoteText returns the annotation text, or "" when there is none.
func (l Location) NoteText() string {
	if l.Notes == nil {
		return ""
	}
	return *l.Notes
}

// WithNotes returns a copy of l carrying the given annotation text.
func (l Location) WithNotes(text string) Location {
	l.Notes = &text
	return l
}

// KeywordList splits Keywords on commas. Tag text cannot contain a comma.
func (l Location) KeywordList() []string {
	var out []string
	for _, kw := range strings.Split(l.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Annotation is the durable-store shape of a user note.
type Annotation struct {
	LocationName string    `json:"locationName"`
	Notes        string    `json:"notes"`
	Timestamp    time.Time `json:"timestamp"`
}

// Clone returns a shallow copy of locs so callers can replace elements
// without touching the original snapshot.
func Clone(locs []Location) []Location {
	if locs == nil {
		return nil
	}
	out := make([]Location, len(locs))
	copy(out, locs)
	return out
}
