package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/llm"
	"github.com/eventscout-hub/event-discovery/model"
	"github.com/eventscout-hub/event-discovery/rategate"
)

const (
	// skipThreshold: with this many events already extracted, the
	// comprehensive ranking call is not worth its cost.
	skipThreshold = 100
	maxResults    = 100
	// minRankBudget is the least remaining run time that justifies starting
	// the ranking call.
	minRankBudget    = 8 * time.Second
	rankingCacheTTL  = 10 * time.Minute
	rankingToolName  = "record_event_ranking"
	rankingMaxTokens = 8192
)

// Consolidator deduplicates and orders the combined event set, skipping the
// expensive classification pass when enough structured events already exist.
type Consolidator struct {
	gate   *rategate.Gate
	client llm.Client
}

// NewConsolidator builds a consolidator.
func NewConsolidator(gate *rategate.Gate, client llm.Client) *Consolidator {
	return &Consolidator{gate: gate, client: client}
}

type rankingOutput struct {
	Ranking []struct {
		Index    int    `json:"index"`
		Keep     bool   `json:"keep"`
		Category string `json:"category"`
	} `json:"ranking"`
}

// Consolidate returns the deduplicated, ordered, capped event set for the
// response. The completion call is skipped when the set is already large,
// when the caller opted out, or when too little of the run budget remains.
func (c *Consolidator) Consolidate(ctx context.Context, events []model.ExtractedEvent, req model.DiscoveryRequest) []model.ExtractedEvent {
	events = model.DedupByCanonicalKey(events)
	if len(events) == 0 {
		return events
	}

	useRanking := !req.SkipRanking && len(events) < skipThreshold
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < minRankBudget {
		useRanking = false
	}

	if useRanking {
		if ranked, err := c.rank(ctx, events, req); err == nil {
			return c.finish(ranked, req, false)
		} else {
			log.Warn().Err(err).Msg("Ranking call unavailable, falling back to date ordering")
		}
	}
	return c.finish(events, req, true)
}

// rank issues the comprehensive re-validation/ordering call and maps the
// model's decisions back onto the input set.
func (c *Consolidator) rank(ctx context.Context, events []model.ExtractedEvent, req model.DiscoveryRequest) ([]model.ExtractedEvent, error) {
	payload, err := json.Marshal(struct {
		City   string                 `json:"city"`
		Events []model.ExtractedEvent `json:"events"`
	}{City: req.City, Events: events})
	if err != nil {
		return nil, err
	}

	raw, err := c.gate.Invoke(ctx, payload, rankingCacheTTL, true, func(ctx context.Context) ([]byte, error) {
		return c.client.Complete(ctx, llm.Request{
			System:    rankingSystemPrompt,
			Prompt:    buildRankingPrompt(events, req),
			MaxTokens: rankingMaxTokens,
			Tool: llm.Tool{
				Name:        rankingToolName,
				Description: "Record which events to keep and their order of relevance.",
				Properties:  rankingSchema(len(events)),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	var parsed rankingOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	var ranked []model.ExtractedEvent
	for _, entry := range parsed.Ranking {
		if !entry.Keep || entry.Index < 0 || entry.Index >= len(events) {
			continue
		}
		ev := events[entry.Index]
		if model.ValidInterest(entry.Category) {
			ev.Interests = []string{entry.Category}
		}
		ranked = append(ranked, ev)
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("ranking kept no events")
	}
	return ranked, nil
}

// finish applies the filters that hold regardless of model output: location
// and boilerplate checks, the sensitive-category rule, dedup and the result
// cap. With sortByDate set the local date ordering is applied; ranked sets
// keep the model's order.
func (c *Consolidator) finish(events []model.ExtractedEvent, req model.DiscoveryRequest, sortByDate bool) []model.ExtractedEvent {
	requested := make(map[string]bool, len(req.Interests))
	for _, interest := range req.Interests {
		requested[strings.ToLower(interest)] = true
	}

	out := make([]model.ExtractedEvent, 0, len(events))
	for _, ev := range events {
		if !titleAcceptable(ev.Title) || !validDate(ev.Date) {
			continue
		}
		if !locationAcceptable(req.City, ev.Location) {
			continue
		}
		if sensitiveNotRequested(ev, requested) {
			continue
		}
		out = append(out, ev)
	}

	out = model.DedupByCanonicalKey(out)
	if sortByDate {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Date != out[j].Date {
				return out[i].Date < out[j].Date
			}
			return out[i].Title < out[j].Title
		})
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// sensitiveNotRequested drops events in a sensitive category unless the
// caller's interest set explicitly included it.
func sensitiveNotRequested(ev model.ExtractedEvent, requested map[string]bool) bool {
	for _, interest := range ev.Interests {
		if model.SensitiveInterests[interest] && !requested[strings.ToLower(interest)] {
			return true
		}
	}
	return false
}

const rankingSystemPrompt = "You curate a ranked list of local events. " +
	"Keep only genuine upcoming events relevant to the requested city and interests, " +
	"ordered by relevance and date proximity."

func buildRankingPrompt(events []model.ExtractedEvent, req model.DiscoveryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "City: %s\nInterests: %s\nVibes: %s\n\n",
		req.City, strings.Join(req.Interests, ", "), strings.Join(req.Vibes, ", "))
	b.WriteString("Decide for each event below whether to keep it, assign a category from the allowed list, and order the kept events by relevance and date proximity.\n")
	fmt.Fprintf(&b, "Allowed categories: %s\n\n", strings.Join(model.Interests, ", "))
	for i, ev := range events {
		fmt.Fprintf(&b, "%d. %s | %s | %s | %s\n", i, ev.Title, ev.Date, ev.Location, strings.Join(ev.Interests, "/"))
	}
	return b.String()
}

func rankingSchema(count int) map[string]interface{} {
	return map[string]interface{}{
		"ranking": map[string]interface{}{
			"type":        "array",
			"description": fmt.Sprintf("One entry per kept event, ordered best first. Index is 0-based into the %d input events.", count),
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index":    map[string]interface{}{"type": "integer"},
					"keep":     map[string]interface{}{"type": "boolean"},
					"category": map[string]interface{}{"type": "string", "enum": model.Interests},
				},
				"required": []string{"index", "keep", "category"},
			},
		},
	}
}
