package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventscout-hub/event-discovery/common"
	"github.com/eventscout-hub/event-discovery/model"
	"github.com/eventscout-hub/event-discovery/orchestrator"
	"github.com/eventscout-hub/event-discovery/progress"
	"github.com/eventscout-hub/event-discovery/scrape"
	"github.com/eventscout-hub/event-discovery/state"
)

type stubSites struct {
	sites []model.WebsiteCandidate
	err   error
}

func (s stubSites) FindCandidateSites(context.Context, []string, string, int, int) ([]model.WebsiteCandidate, error) {
	return s.sites, s.err
}

type stubLinks struct{ links map[string][]string }

func (s stubLinks) ExtractEventLinks(_ context.Context, site model.WebsiteCandidate) ([]string, error) {
	return s.links[site.URL], nil
}

type stubPages struct{ events map[string]model.ExtractedEvent }

func (s stubPages) ExtractBatch(_ context.Context, urls []string, _ int, _ *scrape.VisitedLedger) ([]model.ExtractedEvent, []model.CandidatePage) {
	var events []model.ExtractedEvent
	for _, u := range urls {
		if ev, ok := s.events[u]; ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

type stubValidator struct{}

func (stubValidator) Validate(context.Context, []model.CandidatePage, string) []model.ExtractedEvent {
	return nil
}

type stubConsolidator struct{}

func (stubConsolidator) Consolidate(_ context.Context, events []model.ExtractedEvent, _ model.DiscoveryRequest) []model.ExtractedEvent {
	return model.DedupByCanonicalKey(events)
}

func newTestServer(t *testing.T, sites orchestrator.SiteFinder) (*Server, *state.MemoryStore, *progress.Tracker) {
	t.Helper()
	store := state.NewMemoryStore()
	tracker := progress.NewTracker()
	orch := orchestrator.NewOrchestrator(common.DefaultConfig(), orchestrator.Deps{
		Store: store,
		Sites: sites,
		Links: stubLinks{links: map[string][]string{
			"https://venue.example.com": {"https://venue.example.com/events/show"},
		}},
		Pages: stubPages{events: map[string]model.ExtractedEvent{
			"https://venue.example.com/events/show": {
				ID:           "ev-1",
				Title:        "Jazz Night",
				Date:         "2026-09-20",
				Time:         "20:00",
				Location:     "Portland",
				ExternalLink: "https://venue.example.com/events/show",
				Interests:    []string{"Music"},
				Source:       model.SourceStructured,
			},
		}},
		Validator:    stubValidator{},
		Consolidator: stubConsolidator{},
		Ledger:       scrape.NewVisitedLedger(time.Hour),
		Tracker:      tracker,
	})
	return NewServer(":0", orch, store, tracker), store, tracker
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestDiscoverEndpoint(t *testing.T) {
	srv, store, tracker := newTestServer(t, stubSites{sites: []model.WebsiteCandidate{
		{URL: "https://venue.example.com", Source: "brave", Interest: "Music"},
	}})

	rec := doJSON(t, srv, http.MethodPost, "/api/discover", model.DiscoveryRequest{
		City:      "Portland",
		Interests: []string{"Music"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.DiscoveryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Jazz Night", resp.Events[0].Title)

	stored, err := store.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, progress.StepDone, tracker.Snapshot().Step)
}

func TestDiscoverRequiresCity(t *testing.T) {
	srv, _, _ := newTestServer(t, stubSites{})

	rec := doJSON(t, srv, http.MethodPost, "/api/discover", model.DiscoveryRequest{
		Interests: []string{"Music"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscoverRejectsMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t, stubSites{})

	req := httptest.NewRequest(http.MethodPost, "/api/discover", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscoverMissingCredential(t *testing.T) {
	srv, _, _ := newTestServer(t, stubSites{err: common.ErrConfigMissing})

	rec := doJSON(t, srv, http.MethodPost, "/api/discover", model.DiscoveryRequest{
		City:      "Portland",
		Interests: []string{"Music"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProgressEndpoint(t *testing.T) {
	srv, _, tracker := newTestServer(t, stubSites{})
	tracker.Reset()
	tracker.SetStep(progress.StepSearch)
	tracker.Update(progress.Counts{BraveSites: 3})

	rec := doJSON(t, srv, http.MethodGet, "/api/discover/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap progress.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, progress.StepSearch, snap.Step)
	assert.Equal(t, 3, snap.Counts.BraveSites)
}

func TestEventsListAndClear(t *testing.T) {
	srv, store, _ := newTestServer(t, stubSites{})
	_, err := store.UpsertEvents(context.Background(), []model.ExtractedEvent{{
		ID: "ev-1", Title: "Jazz Night", Date: "2026-09-20", Location: "Portland",
	}})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Events []model.ExtractedEvent `json:"events"`
		Count  int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)

	rec = doJSON(t, srv, http.MethodDelete, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 0, listed.Count)
	assert.NotNil(t, listed.Events)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, stubSites{})

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
