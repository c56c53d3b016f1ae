// Package corrections holds manual fixes for locations that geocode poorly:
// replacement addresses keyed by the original address, and authoritative
// coordinates keyed by location name.
package corrections

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ctmap/internal/model"
)

// Table is the address correction and coordinate override table.
type Table struct {
	Addresses   map[string]string           `yaml:"addresses"`
	Coordinates map[string]model.Coordinate `yaml:"coordinates"`
}

// Default returns the built-in corrections.
func Default() *Table {
	return &Table{
		Addresses: map[string]string{
			"112 Point Judith Rd, Narragansett, RI 02882": "Adventureland Family Fun Park, 1065 Point Judith Rd, Narragansett, RI 02882",
			"Point Judith Rd, Narragansett, RI 02882":     "1065 Point Judith Rd, Narragansett, RI 02882",
			"304 Great Island Rd, Narragansett, RI 02882": "Block Island Ferry Terminal, Point Judith, RI",
		},
		Coordinates: map[string]model.Coordinate{
			"Adventureland Family Fun Park":      {Lat: 41.4425, Lng: -71.4498},
			"Block Island (Ferry & Island Tour)": {Lat: 41.3636, Lng: -71.5076},
		},
	}
}

// GetCorrectAddress returns the address to geocode. When name has a
// coordinate override the original address is returned unchanged, since the
// override bypasses geocoding entirely.
func (t *Table) GetCorrectAddress(address, name string) string {
	if t == nil {
		return address
	}
	if _, ok := t.GetCoordinateOverride(name); ok {
		return address
	}
	if corrected, ok := t.Addresses[address]; ok && corrected != "" {
		return corrected
	}
	return address
}

// GetCoordinateOverride returns the authoritative coordinate for name.
func (t *Table) GetCoordinateOverride(name string) (model.Coordinate, bool) {
	if t == nil {
		return model.Coordinate{}, false
	}
	c, ok := t.Coordinates[name]
	return c, ok
}

// Merge copies other's entries over t. Entries in other win.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	if t.Addresses == nil {
		t.Addresses = make(map[string]string, len(other.Addresses))
	}
	if t.Coordinates == nil {
		t.Coordinates = make(map[string]model.Coordinate, len(other.Coordinates))
	}
	for k, v := range other.Addresses {
		t.Addresses[k] = v
	}
	for k, v := range other.Coordinates {
		t.Coordinates[k] = v
	}
}

// Load returns the default table merged with the YAML file at path. An empty
// path returns the defaults.
//
//	addresses:
//	  "Point Judith Rd, Narragansett, RI 02882": "1065 Point Judith Rd, Narragansett, RI 02882"
//	coordinates:
//	  "Adventureland Family Fun Park": {lat: 41.4425, lng: -71.4498}
func Load(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corrections: read %s", path)
	}

	var fromFile Table
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, eris.Wrap(err, "corrections: parse yaml")
	}

	t.Merge(&fromFile)
	return t, nil
}
