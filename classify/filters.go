// Package classify validates, categorizes and orders candidate events
// through the completion API, with deterministic post-filters that apply
// regardless of what the model returns.
package classify

import (
	"strings"
	"time"
)

const maxTitleLength = 120

// onlineMarkers mark events with no physical venue; these pass the location
// filter for any target city.
var onlineMarkers = []string{
	"online", "virtual", "zoom", "webinar", "remote", "livestream", "live stream",
}

// majorCities is used to reject events that clearly belong to a different
// metro than the one requested.
var majorCities = []string{
	"new york", "los angeles", "chicago", "houston", "phoenix", "philadelphia",
	"san antonio", "san diego", "dallas", "austin", "seattle", "denver",
	"boston", "miami", "atlanta", "portland", "las vegas", "washington",
	"london", "paris", "berlin", "toronto", "vancouver", "tokyo", "sydney",
}

// boilerplatePhrases are title fragments that signal navigation, legal or
// authentication pages rather than events.
var boilerplatePhrases = []string{
	"sign in", "log in", "login", "sign up", "register now",
	"cookie", "privacy policy", "terms of", "accessibility",
	"browse all", "all events", "view all", "see all",
	"faq", "contact us", "about us", "my account", "shopping cart",
	"404", "page not found", "access denied",
	"subscribe", "newsletter",
}

// locationAcceptable reports whether a classified location belongs to the
// target city: it must mention the city or an online marker, and must not
// name a different major city.
func locationAcceptable(city, location string) bool {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return false
	}
	target := strings.ToLower(strings.TrimSpace(city))

	mentionsTarget := strings.Contains(loc, target)
	for _, marker := range onlineMarkers {
		if strings.Contains(loc, marker) {
			mentionsTarget = true
			break
		}
	}
	if !mentionsTarget {
		return false
	}

	for _, other := range majorCities {
		// "New York City" vs the "new york" entry: an entry contained in
		// the target is the target, not a different metro.
		if strings.Contains(target, other) {
			continue
		}
		if strings.Contains(loc, other) {
			return false
		}
	}
	return true
}

// titleAcceptable rejects boilerplate phrases and over-long titles, which
// signal mis-extracted paragraph text rather than a real event name.
func titleAcceptable(title string) bool {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" || len(trimmed) > maxTitleLength {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// validDate reports whether date is a well-formed calendar date.
func validDate(date string) bool {
	if len(date) > 10 {
		date = date[:10]
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
