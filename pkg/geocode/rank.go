package geocode

import "strings"

// RankPolicy picks the best candidate from a non-empty result list.
type RankPolicy interface {
	// Choose returns an index into candidates.
	Choose(candidates []Candidate) int
}

// PreferPolicy picks the first candidate whose type or class is in the
// preferred sets, falling back to the first candidate. It steers away from
// results like harbours, points, and administrative areas that geocode to
// the wrong spot.
type PreferPolicy struct {
	Types   []string
	Classes []string
}

// DefaultPolicy prefers concrete buildings and places.
func DefaultPolicy() PreferPolicy {
	return PreferPolicy{
		Types:   []string{"house", "building", "commercial"},
		Classes: []string{"building", "place"},
	}
}

// Choose implements RankPolicy.
func (p PreferPolicy) Choose(candidates []Candidate) int {
	for i, c := range candidates {
		if containsFold(p.Types, c.Type) || containsFold(p.Classes, c.Class) {
			return i
		}
	}
	return 0
}

// FirstPolicy always takes the service's top candidate.
type FirstPolicy struct{}

// Choose implements RankPolicy.
func (FirstPolicy) Choose([]Candidate) int { return 0 }

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
