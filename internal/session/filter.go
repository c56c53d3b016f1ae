package session

import (
	"slices"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/ctmap/internal/model"
)

// AllLevels is every conventional level of interest.
var AllLevels = []int{1, 2, 3, 4, 5}

// Filter selects locations by level and free-text search.
type Filter struct {
	// Levels to keep. Empty keeps every level.
	Levels []int
	// Search is matched case-insensitively against name, keywords, address,
	// and notes.
	Search string
}

// Apply returns the locations matching f, in input order.
func (f Filter) Apply(locs []model.Location) []model.Location {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Search))

	out := make([]model.Location, 0, len(locs))
	for _, loc := range locs {
		if len(f.Levels) > 0 && !slices.Contains(f.Levels, loc.LevelOfInterest) {
			continue
		}
		if query != "" && !matches(fold, loc, query) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func matches(fold cases.Caser, loc model.Location, query string) bool {
	for _, field := range []string{loc.Name, loc.Keywords, loc.Address, loc.NoteText()} {
		if strings.Contains(fold.String(field), query) {
			return true
		}
	}
	return false
}

// SortOrder is a list ordering.
type SortOrder string

// Sort orders.
const (
	SortAlphabetical SortOrder = "alphabetical"
	SortInterest     SortOrder = "interest"
)

// ParseSortOrder accepts "", "alphabetical", "name", and "interest".
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alphabetical", "name":
		return SortAlphabetical, nil
	case "interest", "level":
		return SortInterest, nil
	default:
		return "", eris.Errorf("session: unknown sort order %q", s)
	}
}

// Sort returns a sorted copy of locs. Alphabetical order uses English
// collation on the name; interest order puts the highest level first and
// keeps input order among equals.
func Sort(locs []model.Location, order SortOrder) []model.Location {
	out := model.Clone(locs)
	switch order {
	case SortInterest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LevelOfInterest > out[j].LevelOfInterest
		})
	default:
		c := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Name, out[j].Name) < 0
		})
	}
	return out
}
