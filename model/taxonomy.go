package model

// Interests is the closed taxonomy every classified event must draw from.
// The classifier prompt embeds this list verbatim and the post-filter rejects
// anything outside it.
var Interests = []string{
	"Music",
	"Art & Culture",
	"Food & Drink",
	"Tech",
	"Sports & Fitness",
	"Yoga",
	"Wellness",
	"Nightlife",
	"Comedy",
	"Outdoors",
	"Networking",
	"Family",
	"Theater",
	"Literature",
	"Community",
}

// DefaultInterest is assigned when no taxonomy category matches.
const DefaultInterest = "Community"

// SensitiveInterests are only surfaced when the caller asked for them
// explicitly.
var SensitiveInterests = map[string]bool{
	"Comedy": true,
}

// ValidInterest reports whether category is part of the taxonomy.
func ValidInterest(category string) bool {
	for _, in := range Interests {
		if in == category {
			return true
		}
	}
	return false
}
