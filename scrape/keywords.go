package scrape

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/eventscout-hub/event-discovery/model"
)

// keywordTable maps indicator phrases to taxonomy categories. Consulted
// wherever structured data already exists, so unambiguous cases never spend
// a completion-API call.
var keywordTable = map[string]string{
	"concert": "Music", "live music": "Music", "dj ": "Music", "band": "Music",
	"orchestra": "Music", "symphony": "Music", "jazz": "Music", "vinyl": "Music",
	"open mic": "Music", "karaoke": "Music",

	"gallery": "Art & Culture", "exhibit": "Art & Culture", "museum": "Art & Culture",
	"art walk": "Art & Culture", "painting": "Art & Culture", "sculpture": "Art & Culture",
	"film screening": "Art & Culture", "photography": "Art & Culture",

	"tasting": "Food & Drink", "food truck": "Food & Drink", "brunch": "Food & Drink",
	"dinner": "Food & Drink", "brewery": "Food & Drink", "wine": "Food & Drink",
	"cocktail": "Food & Drink", "farmers market": "Food & Drink", "pop-up kitchen": "Food & Drink",

	"hackathon": "Tech", "startup": "Tech", "developer": "Tech", "coding": "Tech",
	"tech talk": "Tech", "ai ": "Tech", "blockchain": "Tech", "demo day": "Tech",

	"marathon": "Sports & Fitness", "5k": "Sports & Fitness", "tournament": "Sports & Fitness",
	"pickup game": "Sports & Fitness", "climbing": "Sports & Fitness", "cycling": "Sports & Fitness",
	"bootcamp": "Sports & Fitness", "crossfit": "Sports & Fitness",

	"yoga": "Yoga", "vinyasa": "Yoga", "hatha": "Yoga", "asana": "Yoga",

	"meditation": "Wellness", "sound bath": "Wellness", "breathwork": "Wellness",
	"mindfulness": "Wellness", "retreat": "Wellness", "spa ": "Wellness",

	"nightclub": "Nightlife", "late night": "Nightlife", "dance party": "Nightlife",
	"rooftop party": "Nightlife", "rave": "Nightlife",

	"comedy": "Comedy", "stand-up": "Comedy", "standup": "Comedy", "improv": "Comedy",

	"hike": "Outdoors", "hiking": "Outdoors", "kayak": "Outdoors", "camping": "Outdoors",
	"trail": "Outdoors", "birdwatching": "Outdoors", "stargazing": "Outdoors",

	"networking": "Networking", "mixer": "Networking", "happy hour": "Networking",
	"career fair": "Networking",

	"kids": "Family", "family friendly": "Family", "family-friendly": "Family",
	"storytime": "Family", "petting zoo": "Family",

	"theater": "Theater", "theatre": "Theater", "musical": "Theater", "broadway": "Theater",
	"play reading": "Theater", "opera": "Theater",

	"book club": "Literature", "poetry": "Literature", "author talk": "Literature",
	"book signing": "Literature", "reading series": "Literature",

	"volunteer": "Community", "fundraiser": "Community", "town hall": "Community",
	"block party": "Community", "street fair": "Community", "festival": "Community",
}

// KeywordClassifier deterministically maps event text onto the interest
// taxonomy with an Aho-Corasick scan over the keyword table.
type KeywordClassifier struct {
	matcher    *ahocorasick.Matcher
	categories []string
}

// NewKeywordClassifier compiles the keyword table once. Patterns are sorted
// so match order, and therefore multi-category output order, is stable
// across process restarts.
func NewKeywordClassifier() *KeywordClassifier {
	patterns := make([]string, 0, len(keywordTable))
	for pattern := range keywordTable {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	categories := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		categories = append(categories, keywordTable[pattern])
	}
	return &KeywordClassifier{
		matcher:    ahocorasick.NewStringMatcher(patterns),
		categories: categories,
	}
}

// Classify returns the matched taxonomy categories for the given text,
// falling back to the default interest when nothing matches.
func (kc *KeywordClassifier) Classify(text string) []string {
	hits := kc.matcher.Match([]byte(strings.ToLower(text)))
	if len(hits) == 0 {
		return []string{model.DefaultInterest}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, idx := range hits {
		category := kc.categories[idx]
		if _, dup := seen[category]; dup {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	return out
}
