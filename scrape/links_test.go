package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventscout-hub/event-discovery/common"
	"github.com/eventscout-hub/event-discovery/model"
)

func TestExtractEventLinks(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a href="/events/jazz-night">Jazz Night</a>
			<a href="/events/jazz-night">Jazz Night again</a>
			<a href="%s/events/art-walk">Absolute same-origin</a>
			<a href="https://other.example.com/events/foo">Cross origin</a>
			<a href="/login">Sign in</a>
			<a href="/search?q=events">Search</a>
			<a href="/assets/logo.png">Logo</a>
			<a href="/">Home</a>
			<a href="mailto:hi@example.com">Mail</a>
			<a href="https://facebook.com/venue">Facebook</a>
		</body></html>`, server.URL)
	}))
	defer server.Close()

	le := NewLinkExtractor(NewFetcher(), 40)
	links, err := le.ExtractEventLinks(context.Background(), model.WebsiteCandidate{URL: server.URL})
	require.NoError(t, err)

	require.Len(t, links, 2)
	assert.Equal(t, server.URL+"/events/jazz-night", links[0])
	assert.Equal(t, server.URL+"/events/art-walk", links[1])
}

func TestExtractEventLinksCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>")
		for i := 0; i < 20; i++ {
			fmt.Fprintf(w, `<a href="/events/%d">Event %d</a>`, i, i)
		}
		fmt.Fprint(w, "</body></html>")
	}))
	defer server.Close()

	le := NewLinkExtractor(NewFetcher(), 5)
	links, err := le.ExtractEventLinks(context.Background(), model.WebsiteCandidate{URL: server.URL})
	require.NoError(t, err)
	assert.Len(t, links, 5)
}

func TestExtractEventLinksFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	le := NewLinkExtractor(NewFetcher(), 40)
	_, err := le.ExtractEventLinks(context.Background(), model.WebsiteCandidate{URL: server.URL})
	assert.ErrorIs(t, err, common.ErrFetchFailed)
}
