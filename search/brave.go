// Package search finds candidate listing sites through the Brave web search
// API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/eventscout-hub/event-discovery/common"
	"github.com/eventscout-hub/event-discovery/model"
)

const (
	defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	requestTimeout  = 10 * time.Second
	// searchInterval paces queries the same way the completion gate paces
	// classification calls, only simpler: a short fixed delay.
	searchInterval = 1 * time.Second

	SourceBrave = "brave_search"
)

// queryTemplates produce 1-2 keyword queries per interest for variety.
var queryTemplates = []string{
	"%s events in %s this month",
	"upcoming %s %s tickets",
}

// lowValueDomains are generic aggregators and social networks whose results
// are never worth scraping.
var lowValueDomains = []string{
	"meetup.com",
	"facebook.com",
	"instagram.com",
	"linkedin.com",
	"pinterest.com",
	"reddit.com",
	"youtube.com",
	"tiktok.com",
	"yelp.com",
	"tripadvisor.com",
	"groupon.com",
	"wikipedia.org",
}

// BraveClient issues keyword queries against the Brave search API.
type BraveClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewBraveClient creates a search client. The subscription token is required.
func NewBraveClient(apiKey string) (*BraveClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: BRAVE_SEARCH_API_KEY", common.ErrConfigMissing)
	}
	return &BraveClient{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
		limiter:  rate.NewLimiter(rate.Every(searchInterval), 1),
	}, nil
}

type braveResponse struct {
	Web struct {
		Results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"results"`
	} `json:"web"`
}

// FindCandidateSites queries the first interestsLimit interests (already
// rotation-ordered by the caller) and returns a URL-deduplicated candidate
// list. Individual query failures are logged and skipped.
func (c *BraveClient) FindCandidateSites(ctx context.Context, interests []string, city string, interestsLimit, resultsPerQuery int) ([]model.WebsiteCandidate, error) {
	if interestsLimit > 0 && len(interests) > interestsLimit {
		interests = interests[:interestsLimit]
	}

	seen := make(map[string]struct{})
	var candidates []model.WebsiteCandidate

	for _, interest := range interests {
		for _, tmpl := range queryTemplates {
			if ctx.Err() != nil {
				return candidates, ctx.Err()
			}
			query := fmt.Sprintf(tmpl, interest, city)
			results, err := c.search(ctx, query, resultsPerQuery)
			if err != nil {
				log.Warn().Err(err).Str("query", query).Msg("Search query failed")
				continue
			}
			for _, raw := range results {
				if lowValue(raw) {
					continue
				}
				if _, dup := seen[raw]; dup {
					continue
				}
				seen[raw] = struct{}{}
				candidates = append(candidates, model.WebsiteCandidate{
					URL:      raw,
					Source:   SourceBrave,
					Interest: interest,
				})
			}
		}
	}

	log.Info().Int("count", len(candidates)).Str("city", city).Msg("Search produced candidate sites")
	return candidates, nil
}

func (c *BraveClient) search(ctx context.Context, query string, count int) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.endpoint + "?q=" + url.QueryEscape(query) + "&count=" + strconv.Itoa(count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, common.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", common.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrParseFailed, err)
	}

	urls := make([]string, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls, nil
}

func lowValue(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range lowValueDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
