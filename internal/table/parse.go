package table

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/ctmap/internal/model"
)

// Column positions in the location table.
const (
	ColName = iota
	ColAddress
	ColKeywords
	ColLevel
	ColDistance
	ColETA
	ColNotes
)

// MinColumns is the fewest fields a data row may have.
const MinColumns = 6

// Header is the fixed header row written by every export.
var Header = []string{
	"Name", "Address", "Keywords", "Level of Interest",
	"Distance (miles)", "ETA (minutes)", "Notes",
}

// ParseTable parses table text into locations. The first line is a header and
// is discarded. Short rows and rows with an empty name are dropped silently.
func ParseTable(text string) []model.Location {
	lines := SplitLines(text)
	if len(lines) < 2 {
		return nil
	}

	var locs []model.Location
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if loc, ok := FromFields(ParseRow(line)); ok {
			locs = append(locs, loc)
		}
	}
	return locs
}

// FromFields builds a location from one row's fields. It reports false for
// rows that are too short or have no name.
func FromFields(fields []string) (model.Location, bool) {
	if len(fields) < MinColumns || fields[ColName] == "" {
		return model.Location{}, false
	}

	loc := model.Location{
		Name:            fields[ColName],
		Address:         fields[ColAddress],
		Keywords:        fields[ColKeywords],
		LevelOfInterest: parseIntPrefix(fields[ColLevel]),
		Distance:        parseFloatPrefix(fields[ColDistance]),
		ETA:             parseIntPrefix(fields[ColETA]),
	}
	if len(fields) > ColNotes {
		loc = loc.WithNotes(fields[ColNotes])
	}
	return loc, true
}

var (
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// parseIntPrefix reads the leading integer of s, returning 0 when there is none.
func parseIntPrefix(s string) int {
	n, err := strconv.Atoi(intPrefix.FindString(strings.TrimSpace(s)))
	if err != nil {
		return 0
	}
	return n
}

// parseFloatPrefix reads the leading decimal number of s, returning 0 when
// there is none.
func parseFloatPrefix(s string) float64 {
	f, err := strconv.ParseFloat(floatPrefix.FindString(strings.TrimSpace(s)), 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatMiles renders a distance the way the table stores it: shortest form,
// no trailing zeros.
func FormatMiles(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
