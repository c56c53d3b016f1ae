package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ctmap/internal/model"
)

func names(locs []model.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Name
	}
	return out
}

func sampleLocations() []model.Location {
	note := "Kids loved the BELUGAS"
	return []model.Location{
		{Name: "mystic Aquarium", Address: "55 Coogan Blvd, Mystic, CT", Keywords: "aquarium, animals", LevelOfInterest: 5, Notes: &note},
		{Name: "Beach Pond", Address: "Route 165, Voluntown, CT", Keywords: "swimming", LevelOfInterest: 2},
		{Name: "Éclair Bakery", Address: "1 Main St, Westerly, RI", Keywords: "food", LevelOfInterest: 3},
		{Name: "Dinosaur Park", Address: "400 Mainland Rd, Rocky Hill, CT", Keywords: "fossils", LevelOfInterest: 5},
		{Name: "Odd Level", Address: "nowhere", LevelOfInterest: 9},
	}
}

func TestFilter_Levels(t *testing.T) {
	got := Filter{Levels: []int{5}}.Apply(sampleLocations())
	assert.Equal(t, []string{"mystic Aquarium", "Dinosaur Park"}, names(got))

	got = Filter{}.Apply(sampleLocations())
	assert.Len(t, got, 5)

	got = Filter{Levels: AllLevels}.Apply(sampleLocations())
	assert.Len(t, got, 4)
}

func TestFilter_Search(t *testing.T) {
	tests := []struct {
		search string
		want   []string
	}{
		{"AQUARIUM", []string{"mystic Aquarium"}},
		{"belugas", []string{"mystic Aquarium"}},
		{"voluntown", []string{"Beach Pond"}},
		{"fossil", []string{"Dinosaur Park"}},
		{"main", []string{"Éclair Bakery", "Dinosaur Park"}},
		{"  ", []string{"mystic Aquarium", "Beach Pond", "Éclair Bakery", "Dinosaur Park", "Odd Level"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got := Filter{Search: tt.search}.Apply(sampleLocations())
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestFilter_Combined(t *testing.T) {
	got := Filter{Levels: []int{5}, Search: "park"}.Apply(sampleLocations())
	assert.Equal(t, []string{"Dinosaur Park"}, names(got))
}

func TestSort(t *testing.T) {
	locs := sampleLocations()

	got := Sort(locs, SortAlphabetical)
	assert.Equal(t, []string{"Beach Pond", "Dinosaur Park", "Éclair Bakery", "mystic Aquarium", "Odd Level"}, names(got))

	got = Sort(locs, SortInterest)
	assert.Equal(t, []string{"Odd Level", "mystic Aquarium", "Dinosaur Park", "Éclair Bakery", "Beach Pond"}, names(got))

	// Input order is untouched.
	assert.Equal(t, "mystic Aquarium", locs[0].Name)
}

func TestParseSortOrder(t *testing.T) {
	for in, want := range map[string]SortOrder{
		"":             SortAlphabetical,
		"alphabetical": SortAlphabetical,
		"Name":         SortAlphabetical,
		"interest":     SortInterest,
		"level":        SortInterest,
	} {
		got, err := ParseSortOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSortOrder("random")
	assert.Error(t, err)
}
