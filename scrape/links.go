package scrape

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/model"
)

// pathDenylist holds path fragments strongly associated with non-event
// pages. Filtering is deliberately loose: false positives are cheap because
// the classifier catches them later, missed real event pages are not
// recoverable.
var pathDenylist = []string{
	"login", "signin", "sign-in", "signup", "sign-up", "register",
	"account", "profile", "cart", "checkout",
	"search", "category", "categories", "tag/", "tags/",
	"privacy", "terms", "cookie", "legal", "about", "contact",
	"faq", "help", "press", "careers", "jobs",
	"subscribe", "newsletter", "rss", "feed",
	"wp-admin", "wp-login",
}

var socialDomains = []string{
	"facebook.com", "twitter.com", "x.com", "instagram.com",
	"linkedin.com", "youtube.com", "tiktok.com", "pinterest.com",
	"wa.me", "t.me",
}

var assetSuffixes = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".pdf", ".zip", ".xml", ".json",
}

// LinkExtractor pulls outbound links from listing pages.
type LinkExtractor struct {
	fetcher  *Fetcher
	maxLinks int
}

// NewLinkExtractor builds a link extractor capped at maxLinks per site.
func NewLinkExtractor(fetcher *Fetcher, maxLinks int) *LinkExtractor {
	return &LinkExtractor{fetcher: fetcher, maxLinks: maxLinks}
}

// ExtractEventLinks fetches the site and returns same-origin anchor targets
// that survive the denylist, deduplicated by exact URL.
func (le *LinkExtractor) ExtractEventLinks(ctx context.Context, site model.WebsiteCandidate) ([]string, error) {
	body, err := le.fetcher.Get(ctx, site.URL, ListingTimeout)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(site.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		resolved, ok := resolveEventLink(base, href)
		if !ok {
			return true
		}
		if _, dup := seen[resolved]; dup {
			return true
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
		return len(links) < le.maxLinks
	})

	log.Debug().Str("site", site.URL).Int("links", len(links)).Msg("Extracted event links")
	return links, nil
}

// resolveEventLink resolves href against base and applies the loose filters:
// same origin, no denylisted path fragment, no asset or social target, no
// bare directory root.
func resolveEventLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(resolved.Hostname())
	for _, domain := range socialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return "", false
		}
	}
	if !strings.EqualFold(resolved.Hostname(), base.Hostname()) {
		return "", false
	}

	path := strings.ToLower(resolved.Path)
	if path == "" || path == "/" {
		return "", false
	}
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(path, suffix) {
			return "", false
		}
	}
	for _, fragment := range pathDenylist {
		if strings.Contains(path, fragment) {
			return "", false
		}
	}

	resolved.Fragment = ""
	return resolved.String(), true
}
