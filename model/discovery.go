package model

// WebsiteCandidate is a listing site produced by the search client or the
// suggestion cache. URL is the natural key within a run.
type WebsiteCandidate struct {
	URL      string `json:"url"`
	Source   string `json:"source"`
	Interest string `json:"interest"`
}

// CandidatePage is a page that yielded no structured event markup and needs
// batch classification.
type CandidatePage struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ScrapingStatus reports the outcome of scraping one candidate site.
type ScrapingStatus struct {
	URL      string `json:"url"`
	Source   string `json:"source"`
	Interest string `json:"interest"`
	Status   string `json:"status"` // "success" or "failed"
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DiscoveryRequest is the inbound request for one discovery run. All numeric
// fields are clamped server-side before the run starts.
type DiscoveryRequest struct {
	City            string   `json:"city"`
	Interests       []string `json:"interests"`
	Vibes           []string `json:"vibes"`
	Limit           int      `json:"limit,omitempty"`           // max event links to fetch
	SitesLimit      int      `json:"sitesLimit,omitempty"`      // max sites scraped synchronously
	ResultsPerQuery int      `json:"resultsPerQuery,omitempty"` // search results per query
	InterestsLimit  int      `json:"interestsLimit,omitempty"`  // interests queried per run
	SkipRanking     bool     `json:"skipRanking,omitempty"`
	TimeoutMs       int      `json:"timeoutMs,omitempty"`
}

// DiscoveryResponse is the synchronous priority response.
type DiscoveryResponse struct {
	Events         []ExtractedEvent `json:"events"`
	ScrapingStatus []ScrapingStatus `json:"scrapingStatus"`
}
