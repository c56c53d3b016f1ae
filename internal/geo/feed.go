package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/ctmap/internal/model"
)

// DefaultMarkerColor is used for levels outside 1-5.
const DefaultMarkerColor = "#888888"

var markerColors = map[int]string{
	1: "#94a3b8",
	2: "#60a5fa",
	3: "#3b82f6",
	4: "#1d4ed8",
	5: "#7c3aed",
}

// MarkerColor returns the marker colour for an interest level.
func MarkerColor(level int) string {
	if c, ok := markerColors[level]; ok {
		return c
	}
	return DefaultMarkerColor
}

// Features converts mappable locations to GeoJSON point features. Records
// without a coordinate are skipped.
func Features(locs []model.Location) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, len(locs))
	for _, loc := range locs {
		if !loc.Mappable() {
			continue
		}
		pt := geom.NewPointFlat(geom.XY, []float64{loc.Coord.Lng, loc.Coord.Lat})
		features = append(features, &geojson.Feature{
			ID:       loc.Name,
			Geometry: pt,
			Properties: map[string]any{
				"name":     loc.Name,
				"address":  loc.Address,
				"keywords": loc.KeywordList(),
				"level":    loc.LevelOfInterest,
				"distance": loc.Distance,
				"eta":      loc.ETA,
				"notes":    loc.NoteText(),
				"color":    MarkerColor(loc.LevelOfInterest),
			},
		})
	}
	return features
}

// FeatureCollection renders mappable locations as a GeoJSON FeatureCollection.
func FeatureCollection(locs []model.Location) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: Features(locs)}
	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "geo: marshal feature collection")
	}
	return data, nil
}
