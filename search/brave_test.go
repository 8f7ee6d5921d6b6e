package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventscout-hub/event-discovery/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*BraveClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewBraveClient("test-token")
	require.NoError(t, err)
	client.endpoint = server.URL
	// No pacing in tests.
	client.limiter.SetLimit(1e6)
	return client, server
}

func braveJSON(urls ...string) []byte {
	var resp braveResponse
	for _, u := range urls {
		resp.Web.Results = append(resp.Web.Results, struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		}{URL: u})
	}
	b, _ := json.Marshal(resp)
	return b
}

func TestMissingAPIKey(t *testing.T) {
	_, err := NewBraveClient("")
	assert.ErrorIs(t, err, common.ErrConfigMissing)
}

func TestFindCandidateSitesDedupsAndFilters(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Subscription-Token"))
		w.Write(braveJSON(
			"https://sfvenues.example.com/events",
			"https://sfvenues.example.com/events", // duplicate
			"https://www.meetup.com/sf-yoga",      // low-value aggregator
			"https://facebook.com/somepage",       // social network
		))
	})

	candidates, err := client.FindCandidateSites(context.Background(), []string{"Yoga"}, "San Francisco", 3, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "https://sfvenues.example.com/events", candidates[0].URL)
	assert.Equal(t, SourceBrave, candidates[0].Source)
	assert.Equal(t, "Yoga", candidates[0].Interest)
}

func TestFindCandidateSitesRespectsInterestsLimit(t *testing.T) {
	var queries int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&queries, 1)
		w.Write(braveJSON())
	})

	_, err := client.FindCandidateSites(context.Background(),
		[]string{"Yoga", "Music", "Tech", "Comedy"}, "Oakland", 2, 5)
	require.NoError(t, err)
	// 2 interests x 2 templates.
	assert.Equal(t, int32(4), atomic.LoadInt32(&queries))
}

func TestSearchFailureDoesNotAbortRun(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(braveJSON("https://oaklandarts.example.org/calendar"))
	})

	candidates, err := client.FindCandidateSites(context.Background(), []string{"Art & Culture"}, "Oakland", 1, 5)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestSearchRateLimitSurfaces(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.search(context.Background(), "yoga events", 5)
	assert.ErrorIs(t, err, common.ErrRateLimited)
}

func TestSearchHonorsContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(braveJSON())
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := client.FindCandidateSites(ctx, []string{"Music"}, "Berkeley", 1, 5)
	assert.Error(t, err)
}
