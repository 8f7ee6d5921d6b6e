// Package scrape fetches third-party pages and extracts event links,
// structured event data and classification candidates from untrusted HTML.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eventscout-hub/event-discovery/common"
)

const (
	// ListingTimeout bounds fetches of listing/candidate sites.
	ListingTimeout = 12 * time.Second
	// PageTimeout bounds fetches of individual event pages.
	PageTimeout = 8 * time.Second

	userAgent    = "Mozilla/5.0 (compatible; EventScout/1.0; +https://eventscout.example)"
	maxBodyBytes = 2 << 20 // 2 MiB is plenty for any event page
)

// Fetcher retrieves pages with bounded timeouts and maps transport failures
// onto the pipeline error taxonomy.
type Fetcher struct {
	client *http.Client
}

// NewFetcher builds a fetcher with a shared transport.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			// Per-request deadlines come from the caller's context.
			Timeout: 0,
		},
	}
}

// Get fetches url, bounded by timeout, and returns the body.
func (f *Fetcher) Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", common.ErrFetchTimeout, url)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d from %s", common.ErrFetchFailed, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	return body, nil
}
