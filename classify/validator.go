package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/llm"
	"github.com/eventscout-hub/event-discovery/model"
	"github.com/eventscout-hub/event-discovery/rategate"
)

const (
	maxValidationBatch = 30
	validationCacheTTL = 10 * time.Minute
	validationToolName = "record_event_validation"
)

// KeywordFallback provides the deterministic classification used when the
// completion API cannot be consulted.
type KeywordFallback interface {
	Classify(text string) []string
}

// Validator batches unstructured candidate pages into one completion call
// that decides event-ness, location validity and category.
type Validator struct {
	gate     *rategate.Gate
	client   llm.Client
	keywords KeywordFallback

	// fallbackRaw controls the availability-over-precision tradeoff: when
	// the completion API is unavailable, raw candidates are either emitted
	// as low-confidence events or dropped.
	fallbackRaw bool
	maxBatch    int
	now         func() time.Time
}

// NewValidator builds a validator.
func NewValidator(gate *rategate.Gate, client llm.Client, keywords KeywordFallback, fallbackRaw bool) *Validator {
	return &Validator{
		gate:        gate,
		client:      client,
		keywords:    keywords,
		fallbackRaw: fallbackRaw,
		maxBatch:    maxValidationBatch,
		now:         time.Now,
	}
}

type validationPayload struct {
	City  string                `json:"city"`
	Pages []model.CandidatePage `json:"pages"`
}

type validationOutput struct {
	Results []struct {
		URL     string `json:"url"`
		IsEvent bool   `json:"isEvent"`
		Events  []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Date        string `json:"date"`
			Time        string `json:"time"`
			Location    string `json:"location"`
			Category    string `json:"category"`
		} `json:"events"`
	} `json:"results"`
}

// Validate classifies up to maxBatch candidate pages in one completion call.
// On call failure or cooldown the fallback policy decides whether the raw
// candidates survive as low-confidence events. The returned slice honors the
// location, date and boilerplate filters regardless of model output.
func (v *Validator) Validate(ctx context.Context, pages []model.CandidatePage, city string) []model.ExtractedEvent {
	if len(pages) == 0 {
		return nil
	}
	if len(pages) > v.maxBatch {
		pages = pages[:v.maxBatch]
	}

	payload, err := json.Marshal(validationPayload{City: city, Pages: pages})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal validation payload")
		return v.fallback(pages, city)
	}

	raw, err := v.gate.Invoke(ctx, payload, validationCacheTTL, true, func(ctx context.Context) ([]byte, error) {
		return v.client.Complete(ctx, llm.Request{
			System: validationSystemPrompt,
			Prompt: buildValidationPrompt(city, pages),
			Tool: llm.Tool{
				Name:        validationToolName,
				Description: "Record which candidate pages describe real events and extract structured records for them.",
				Properties:  validationSchema(),
			},
		})
	})
	if err != nil {
		log.Warn().Err(err).Int("pages", len(pages)).Msg("Validation call unavailable, applying fallback policy")
		return v.fallback(pages, city)
	}

	var parsed validationOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Warn().Err(err).Msg("Validation output unparseable, applying fallback policy")
		return v.fallback(pages, city)
	}

	var events []model.ExtractedEvent
	for _, result := range parsed.Results {
		if !result.IsEvent {
			continue
		}
		for _, ev := range result.Events {
			if !titleAcceptable(ev.Title) {
				continue
			}
			if !validDate(ev.Date) {
				continue
			}
			if !locationAcceptable(city, ev.Location) {
				continue
			}
			category := ev.Category
			if !model.ValidInterest(category) {
				category = v.keywords.Classify(ev.Title + " " + ev.Description)[0]
			}
			timeOfDay := strings.TrimSpace(ev.Time)
			if timeOfDay == "" {
				timeOfDay = model.TimeTBD
			}
			events = append(events, model.ExtractedEvent{
				ID:           uuid.NewString(),
				Title:        strings.TrimSpace(ev.Title),
				Description:  strings.TrimSpace(ev.Description),
				Date:         ev.Date[:10],
				Time:         timeOfDay,
				Location:     strings.TrimSpace(ev.Location),
				ExternalLink: result.URL,
				Interests:    []string{category},
				Vibes:        []string{},
				Source:       model.SourceValidated,
			})
		}
	}

	log.Info().Int("pages", len(pages)).Int("events", len(events)).Msg("Validation batch classified")
	return events
}

// fallback emits raw candidates as low-confidence events, or nothing,
// depending on policy. The boilerplate filter still applies so obvious
// non-events never surface.
func (v *Validator) fallback(pages []model.CandidatePage, city string) []model.ExtractedEvent {
	if !v.fallbackRaw {
		return nil
	}

	runDate := v.now().Format("2006-01-02")
	var events []model.ExtractedEvent
	for _, page := range pages {
		if !titleAcceptable(page.Title) {
			continue
		}
		events = append(events, model.ExtractedEvent{
			ID:           uuid.NewString(),
			Title:        page.Title,
			Description:  page.Description,
			Date:         runDate,
			Time:         model.TimeTBD,
			Location:     city,
			ExternalLink: page.URL,
			Interests:    v.keywords.Classify(page.Title + " " + page.Description)[:1],
			Vibes:        []string{},
			Source:       model.SourceRawFallback,
		})
	}
	return events
}

const validationSystemPrompt = "You validate scraped web pages for a local event discovery service. " +
	"Only mark a page as an event if it describes a specific real-world happening with a date. " +
	"Never invent dates or locations that are not implied by the page text."

func buildValidationPrompt(city string, pages []model.CandidatePage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target city: %s\n", city)
	fmt.Fprintf(&b, "Allowed categories: %s\n\n", strings.Join(model.Interests, ", "))
	b.WriteString("For each page below, decide whether it describes one or more real-world events. ")
	b.WriteString("For every event, extract title, description, date (YYYY-MM-DD), time, location and one category from the allowed list.\n\n")
	for i, page := range pages {
		fmt.Fprintf(&b, "%d. URL: %s\n   Title: %s\n   Description: %s\n", i+1, page.URL, page.Title, page.Description)
	}
	return b.String()
}

func validationSchema() map[string]interface{} {
	return map[string]interface{}{
		"results": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url":     map[string]interface{}{"type": "string"},
					"isEvent": map[string]interface{}{"type": "boolean"},
					"events": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"title":       map[string]interface{}{"type": "string"},
								"description": map[string]interface{}{"type": "string"},
								"date":        map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
								"time":        map[string]interface{}{"type": "string"},
								"location":    map[string]interface{}{"type": "string"},
								"category":    map[string]interface{}{"type": "string", "enum": model.Interests},
							},
							"required": []string{"title", "date", "location", "category"},
						},
					},
				},
				"required": []string{"url", "isEvent"},
			},
		},
	}
}
