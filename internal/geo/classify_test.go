package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeedTierMPH(t *testing.T) {
	tests := []struct {
		name     string
		miles    float64
		expected float64
	}{
		{name: "zero distance is local", miles: 0, expected: SpeedLocal},
		{name: "local: short hop", miles: 3.2, expected: SpeedLocal},
		{name: "local: at threshold", miles: 5.0, expected: SpeedLocal},
		{name: "medium: barely past local", miles: 5.01, expected: SpeedMedium},
		{name: "medium: 18 miles", miles: 18, expected: SpeedMedium},
		{name: "medium: at threshold", miles: 20.0, expected: SpeedMedium},
		{name: "long: barely past medium", miles: 20.1, expected: SpeedLong},
		{name: "long: Hartford-ish", miles: 50, expected: SpeedLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SpeedTierMPH(tt.miles))
		})
	}
}
