package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eventscout-hub/event-discovery/llm"
	"github.com/eventscout-hub/event-discovery/rategate"
)

const (
	suggestToolName = "record_site_suggestions"
	suggestCacheTTL = time.Hour
	maxSuggestions  = 8
)

// SiteSuggester asks the completion API for local listing sites when search
// produced too few candidates. Results are cached per city in the store for
// days, so this call is rare.
type SiteSuggester struct {
	gate   *rategate.Gate
	client llm.Client
}

// NewSiteSuggester builds a suggester.
func NewSiteSuggester(gate *rategate.Gate, client llm.Client) *SiteSuggester {
	return &SiteSuggester{gate: gate, client: client}
}

// SuggestSites returns candidate listing-site URLs for the city.
func (s *SiteSuggester) SuggestSites(ctx context.Context, city string) ([]string, error) {
	payload := []byte("suggest-sites|" + city)
	raw, err := s.gate.Invoke(ctx, payload, suggestCacheTTL, true, func(ctx context.Context) ([]byte, error) {
		return s.client.Complete(ctx, llm.Request{
			Prompt: fmt.Sprintf(
				"List up to %d websites that publish local event listings for %s: "+
					"venue calendars, city guides, local newspapers, community calendars. "+
					"Only include real, directly reachable URLs.", maxSuggestions, city),
			Tool: llm.Tool{
				Name:        suggestToolName,
				Description: "Record candidate event listing sites for a city.",
				Properties: map[string]interface{}{
					"urls": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
				},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		URLs []string `json:"urls"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.URLs) > maxSuggestions {
		parsed.URLs = parsed.URLs[:maxSuggestions]
	}
	return parsed.URLs, nil
}
