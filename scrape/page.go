package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/model"
)

const minTitleLength = 4

// ExtractResult is the outcome of extracting one candidate page. At most one
// of Event and Candidate is set; both nil means the page yielded nothing
// usable.
type ExtractResult struct {
	Event     *model.ExtractedEvent
	Candidate *model.CandidatePage
}

// PageExtractor fetches individual candidate pages and attempts structured
// schema.org/Event extraction, reducing the page to a (title, description)
// candidate when no markup is found.
type PageExtractor struct {
	fetcher  *Fetcher
	keywords *KeywordClassifier
}

// NewPageExtractor builds a page extractor.
func NewPageExtractor(fetcher *Fetcher, keywords *KeywordClassifier) *PageExtractor {
	return &PageExtractor{fetcher: fetcher, keywords: keywords}
}

// Extract fetches url and returns a structured event, a classification
// candidate, or nothing.
func (pe *PageExtractor) Extract(ctx context.Context, pageURL string) (ExtractResult, error) {
	body, err := pe.fetcher.Get(ctx, pageURL, PageTimeout)
	if err != nil {
		return ExtractResult{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ExtractResult{}, err
	}

	if event := pe.extractStructured(doc, pageURL); event != nil {
		log.Debug().Str("url", pageURL).Str("title", event.Title).Msg("Structured event extracted")
		return ExtractResult{Event: event}, nil
	}

	if candidate := extractCandidate(doc, pageURL); candidate != nil {
		return ExtractResult{Candidate: candidate}, nil
	}
	return ExtractResult{}, nil
}

// extractStructured walks every JSON-LD block on the page looking for a
// schema.org Event node, including nodes nested in @graph arrays.
func (pe *PageExtractor) extractStructured(doc *goquery.Document, pageURL string) *model.ExtractedEvent {
	var event *model.ExtractedEvent
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var node interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &node); err != nil {
			return true
		}
		if found := findEventNode(node); found != nil {
			event = pe.eventFromNode(found, pageURL)
			return event == nil
		}
		return true
	})
	return event
}

// findEventNode searches a decoded JSON-LD document for the first node whose
// @type is (or includes) "Event" or a subtype like "MusicEvent".
func findEventNode(node interface{}) map[string]interface{} {
	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			if found := findEventNode(item); found != nil {
				return found
			}
		}
	case map[string]interface{}:
		if isEventType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return findEventNode(graph)
		}
	}
	return nil
}

func isEventType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Event")
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.HasSuffix(s, "Event") {
				return true
			}
		}
	}
	return false
}

func (pe *PageExtractor) eventFromNode(node map[string]interface{}, pageURL string) *model.ExtractedEvent {
	title := html.UnescapeString(stringField(node, "name"))
	date, timeOfDay := parseStartDate(stringField(node, "startDate"))
	if title == "" || date == "" {
		return nil
	}

	link := stringField(node, "url")
	if link == "" {
		link = offersURL(node)
	}
	if link == "" {
		link = pageURL
	}

	description := html.UnescapeString(stringField(node, "description"))
	location := locationField(node)

	return &model.ExtractedEvent{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  description,
		Date:         date,
		Time:         timeOfDay,
		Location:     location,
		ExternalLink: link,
		ImageURL:     imageField(node),
		Interests:    pe.keywords.Classify(title + " " + description),
		Vibes:        []string{},
		Source:       model.SourceStructured,
	}
}

// startDateLayouts covers the timestamp shapes seen in the wild, most to
// least specific.
var startDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseStartDate normalizes a schema.org startDate to a calendar date plus a
// 12-hour time string. A date with no time component gets the TBD sentinel.
func parseStartDate(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	for _, layout := range startDateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		date := parsed.Format("2006-01-02")
		if layout == "2006-01-02" {
			return date, model.TimeTBD
		}
		return date, parsed.Format("3:04 PM")
	}
	// Last resort: a leading calendar-date prefix is still usable.
	if len(raw) >= 10 {
		if parsed, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return parsed.Format("2006-01-02"), model.TimeTBD
		}
	}
	return "", ""
}

func stringField(node map[string]interface{}, key string) string {
	if s, ok := node[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func locationField(node map[string]interface{}) string {
	switch loc := node["location"].(type) {
	case string:
		return strings.TrimSpace(loc)
	case map[string]interface{}:
		name := stringField(loc, "name")
		locality := ""
		if addr, ok := loc["address"].(map[string]interface{}); ok {
			locality = stringField(addr, "addressLocality")
		} else if addr, ok := loc["address"].(string); ok {
			locality = strings.TrimSpace(addr)
		}
		switch {
		case name != "" && locality != "" && !strings.EqualFold(name, locality):
			return name + ", " + locality
		case name != "":
			return name
		default:
			return locality
		}
	case []interface{}:
		for _, item := range loc {
			if m, ok := item.(map[string]interface{}); ok {
				if s := locationField(map[string]interface{}{"location": m}); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func imageField(node map[string]interface{}) string {
	switch img := node["image"].(type) {
	case string:
		return img
	case []interface{}:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				return s
			}
			if m, ok := img[0].(map[string]interface{}); ok {
				return stringField(m, "url")
			}
		}
	case map[string]interface{}:
		return stringField(img, "url")
	}
	return ""
}

func offersURL(node map[string]interface{}) string {
	switch offers := node["offers"].(type) {
	case map[string]interface{}:
		return stringField(offers, "url")
	case []interface{}:
		for _, item := range offers {
			if m, ok := item.(map[string]interface{}); ok {
				if u := stringField(m, "url"); u != "" {
					return u
				}
			}
		}
	}
	return ""
}

// extractCandidate reduces an unstructured page to a (title, description)
// pair for later batch classification. Titles of three characters or fewer
// are noise.
func extractCandidate(doc *goquery.Document, pageURL string) *model.CandidatePage {
	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if title == "" {
		title = doc.Find("title").First().Text()
	}
	if title == "" {
		title = doc.Find("h1").First().Text()
	}
	title = html.UnescapeString(strings.TrimSpace(title))
	if len(title) < minTitleLength {
		return nil
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if description == "" {
		description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	return &model.CandidatePage{
		URL:         pageURL,
		Title:       title,
		Description: html.UnescapeString(strings.TrimSpace(description)),
	}
}
