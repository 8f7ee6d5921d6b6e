// Package orchestrator drives the full discovery pipeline: search, link
// extraction, page extraction, validation, consolidation and persistence,
// all inside one bounded time budget, with a fire-and-forget background
// continuation for the candidate sites the synchronous pass did not reach.
package orchestrator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/common"
	"github.com/eventscout-hub/event-discovery/model"
	"github.com/eventscout-hub/event-discovery/progress"
	"github.com/eventscout-hub/event-discovery/scrape"
	"github.com/eventscout-hub/event-discovery/state"
)

const (
	minRunBudget     = 5 * time.Second
	maxRunBudget     = 2 * time.Minute
	backgroundBudget = 2 * time.Minute
	// earlyPersistMax is the size of the confidently-structured slice
	// persisted before the expensive ranking step.
	earlyPersistMax = 10
	// minSitesBeforeSuggesting: below this many search results the
	// suggestion path kicks in.
	minSitesBeforeSuggesting = 2

	sourceSuggested       = "suggested"
	sourceSuggestionCache = "cache"
)

// SiteFinder finds candidate listing sites for a set of interests.
type SiteFinder interface {
	FindCandidateSites(ctx context.Context, interests []string, city string, interestsLimit, resultsPerQuery int) ([]model.WebsiteCandidate, error)
}

// LinkExtractor pulls event links out of one listing site.
type LinkExtractor interface {
	ExtractEventLinks(ctx context.Context, site model.WebsiteCandidate) ([]string, error)
}

// PageExtractor fetches event pages with a bounded pool.
type PageExtractor interface {
	ExtractBatch(ctx context.Context, urls []string, workers int, ledger *scrape.VisitedLedger) ([]model.ExtractedEvent, []model.CandidatePage)
}

// Validator batch-classifies unstructured candidate pages.
type Validator interface {
	Validate(ctx context.Context, pages []model.CandidatePage, city string) []model.ExtractedEvent
}

// Consolidator deduplicates and orders the final event set.
type Consolidator interface {
	Consolidate(ctx context.Context, events []model.ExtractedEvent, req model.DiscoveryRequest) []model.ExtractedEvent
}

// Suggester proposes listing sites when search comes up short. Optional.
type Suggester interface {
	SuggestSites(ctx context.Context, city string) ([]string, error)
}

// Orchestrator coordinates one discovery run at a time plus any background
// continuations. The caches, ledger and rate gate it holds are process-wide;
// overlapping runs share them.
type Orchestrator struct {
	cfg          common.DiscoveryConfig
	store        state.Store
	sites        SiteFinder
	links        LinkExtractor
	pages        PageExtractor
	ledger       *scrape.VisitedLedger
	validator    Validator
	consolidator Consolidator
	suggester    Suggester
	tracker      *progress.Tracker
	cache        *resultCache

	bg sync.WaitGroup
}

// Deps bundles the collaborators for NewOrchestrator.
type Deps struct {
	Store        state.Store
	Sites        SiteFinder
	Links        LinkExtractor
	Pages        PageExtractor
	Ledger       *scrape.VisitedLedger
	Validator    Validator
	Consolidator Consolidator
	Suggester    Suggester
	Tracker      *progress.Tracker
}

// NewOrchestrator creates an orchestrator instance.
func NewOrchestrator(cfg common.DiscoveryConfig, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		store:        deps.Store,
		sites:        deps.Sites,
		links:        deps.Links,
		pages:        deps.Pages,
		ledger:       deps.Ledger,
		validator:    deps.Validator,
		consolidator: deps.Consolidator,
		suggester:    deps.Suggester,
		tracker:      deps.Tracker,
		cache:        newResultCache(cfg.ResultCacheTTL),
	}
}

// Run executes one discovery run and returns the priority result. The only
// error it can return is a missing-configuration condition; every other
// failure degrades into a smaller (possibly empty) result set.
func (o *Orchestrator) Run(ctx context.Context, req model.DiscoveryRequest) (*model.DiscoveryResponse, error) {
	req = o.clamp(req)
	signature := requestSignature(req)

	if events, ok := o.cache.get(signature); ok {
		log.Info().Str("city", req.City).Int("events", len(events)).Msg("Discovery result served from cache")
		return &model.DiscoveryResponse{Events: events, ScrapingStatus: []model.ScrapingStatus{}}, nil
	}

	budget := time.Duration(req.TimeoutMs) * time.Millisecond
	if budget < minRunBudget || budget > maxRunBudget {
		budget = o.cfg.RunBudget
	}
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	runID := common.GenerateRunID()
	o.tracker.Reset()
	log.Info().Str("run", runID).Str("city", req.City).Strs("interests", req.Interests).Dur("budget", budget).Msg("Starting discovery run")

	interests := o.rotateInterests(runCtx, req)

	o.tracker.SetStep(progress.StepSearch)
	sites, err := o.findSites(runCtx, interests, req)
	if err != nil {
		return nil, err
	}
	o.tracker.Update(progress.Counts{BraveSites: len(sites)})

	priority := sites
	var remainder []model.WebsiteCandidate
	if len(sites) > req.SitesLimit {
		priority = sites[:req.SitesLimit]
		remainder = sites[req.SitesLimit:]
	}

	o.tracker.SetStep(progress.StepListings)
	structured, candidates, statuses := o.processSites(runCtx, priority, req)

	o.tracker.SetStep(progress.StepEvents)
	validated := o.validator.Validate(runCtx, candidates, req.City)
	o.tracker.Update(progress.Counts{ExtractedEvents: len(structured) + len(validated)})

	// Early persistence of the confidently-structured slice lets a polling
	// caller show results before the run finishes.
	if early := firstN(structured, earlyPersistMax); len(early) > 0 {
		if _, err := o.store.UpsertEvents(runCtx, early); err != nil {
			log.Warn().Err(err).Msg("Early persistence failed")
		}
	}

	all := append(append([]model.ExtractedEvent{}, structured...), validated...)
	final := o.consolidator.Consolidate(runCtx, all, req)

	persistCtx, persistCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer persistCancel()
	if _, err := o.store.UpsertEvents(persistCtx, final); err != nil {
		log.Error().Err(err).Msg("Failed to persist final events")
	}

	o.cache.set(signature, final)
	o.tracker.SetStep(progress.StepDone)
	log.Info().Str("run", runID).Str("city", req.City).Int("events", len(final)).Int("remainder_sites", len(remainder)).Msg("Discovery run complete")

	if len(remainder) > 0 {
		o.bg.Add(1)
		go o.continueDiscovery(remainder, req)
	}

	return &model.DiscoveryResponse{Events: final, ScrapingStatus: statuses}, nil
}

// clamp applies server-side bounds to all tunable request fields.
func (o *Orchestrator) clamp(req model.DiscoveryRequest) model.DiscoveryRequest {
	req.City = strings.TrimSpace(req.City)
	req.Limit = common.ClampInt(req.Limit, 1, 100, o.cfg.MaxLinks)
	req.SitesLimit = common.ClampInt(req.SitesLimit, 1, 12, o.cfg.MaxSites)
	req.ResultsPerQuery = common.ClampInt(req.ResultsPerQuery, 1, 20, o.cfg.ResultsPerQuery)
	req.InterestsLimit = common.ClampInt(req.InterestsLimit, 1, 10, o.cfg.InterestsLimit)
	return req
}

// rotateInterests applies and advances the persisted round-robin offset so
// successive runs surface different leading interests.
func (o *Orchestrator) rotateInterests(ctx context.Context, req model.DiscoveryRequest) []string {
	if len(req.Interests) < 2 {
		return req.Interests
	}
	sig := common.InterestSignature(req.City, req.Interests)
	offset, err := o.store.RotationOffset(ctx, sig)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load rotation offset")
	}
	if err := o.store.SetRotationOffset(ctx, sig, (offset+1)%len(req.Interests)); err != nil {
		log.Warn().Err(err).Msg("Failed to advance rotation offset")
	}
	return common.RotateStrings(req.Interests, offset)
}

// findSites queries search and, when it comes up short, supplements with
// suggestion-cache entries or a fresh suggestion call. Only a missing
// credential aborts the run.
func (o *Orchestrator) findSites(ctx context.Context, interests []string, req model.DiscoveryRequest) ([]model.WebsiteCandidate, error) {
	sites, err := o.sites.FindCandidateSites(ctx, interests, req.City, req.InterestsLimit, req.ResultsPerQuery)
	if err != nil {
		if errors.Is(err, common.ErrConfigMissing) {
			return nil, err
		}
		log.Warn().Err(err).Msg("Search failed, continuing with suggestions only")
	}

	if len(sites) >= minSitesBeforeSuggesting {
		return sites, nil
	}

	seen := make(map[string]struct{}, len(sites))
	for _, site := range sites {
		seen[site.URL] = struct{}{}
	}
	appendURLs := func(urls []string, source string) {
		for _, u := range urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			sites = append(sites, model.WebsiteCandidate{URL: u, Source: source})
		}
	}

	if urls, ok, err := o.store.SiteSuggestions(ctx, req.City, o.cfg.SuggestionTTL); err == nil && ok {
		appendURLs(urls, sourceSuggestionCache)
		return sites, nil
	}

	if o.suggester != nil {
		urls, err := o.suggester.SuggestSites(ctx, req.City)
		if err != nil {
			log.Warn().Err(err).Str("city", req.City).Msg("Site suggestion call failed")
			return sites, nil
		}
		appendURLs(urls, sourceSuggested)
		if err := o.store.SaveSiteSuggestions(ctx, req.City, urls); err != nil {
			log.Warn().Err(err).Msg("Failed to cache site suggestions")
		}
	}
	return sites, nil
}

// processSites walks candidate sites sequentially, extracting links and then
// pages with the bounded pool, truncating as soon as the run budget or link
// cap is reached.
func (o *Orchestrator) processSites(ctx context.Context, sites []model.WebsiteCandidate, req model.DiscoveryRequest) ([]model.ExtractedEvent, []model.CandidatePage, []model.ScrapingStatus) {
	var (
		events     []model.ExtractedEvent
		candidates []model.CandidatePage
		statuses   []model.ScrapingStatus
	)
	seenLinks := make(map[string]struct{})
	linksLeft := req.Limit

	for _, site := range sites {
		if ctx.Err() != nil || linksLeft <= 0 {
			break
		}

		links, err := o.links.ExtractEventLinks(ctx, site)
		status := model.ScrapingStatus{URL: site.URL, Source: site.Source, Interest: site.Interest, Status: model.StatusSuccess}
		if err != nil {
			status.Status = model.StatusFailed
			log.Warn().Err(err).Str("site", site.URL).Msg("Listing scrape failed")
		}
		statuses = append(statuses, status)
		o.tracker.AddSite(status)
		if err != nil {
			continue
		}

		fresh := links[:0:0]
		for _, link := range links {
			if _, dup := seenLinks[link]; dup {
				continue
			}
			seenLinks[link] = struct{}{}
			fresh = append(fresh, link)
		}
		if len(fresh) > linksLeft {
			fresh = fresh[:linksLeft]
		}
		linksLeft -= len(fresh)
		o.tracker.Update(progress.Counts{EventLinks: len(fresh)})

		siteEvents, siteCandidates := o.pages.ExtractBatch(ctx, fresh, o.cfg.PageWorkers, o.ledger)
		events = append(events, siteEvents...)
		candidates = append(candidates, siteCandidates...)
		o.tracker.Update(progress.Counts{CandidatePages: len(siteCandidates)})
	}

	return events, candidates, statuses
}

// continueDiscovery is the fire-and-forget background continuation over the
// candidate sites the synchronous pass did not reach. It reports only
// through the progress tracker and the store.
func (o *Orchestrator) continueDiscovery(sites []model.WebsiteCandidate, req model.DiscoveryRequest) {
	defer o.bg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), backgroundBudget)
	defer cancel()

	log.Info().Int("sites", len(sites)).Str("city", req.City).Msg("Background continuation started")
	structured, candidates, _ := o.processSites(ctx, sites, req)
	validated := o.validator.Validate(ctx, candidates, req.City)

	all := model.DedupByCanonicalKey(append(structured, validated...))
	o.tracker.Update(progress.Counts{ExtractedEvents: len(all)})
	if len(all) == 0 {
		return
	}

	inserted, err := o.store.UpsertEvents(ctx, all)
	if err != nil {
		log.Error().Err(err).Msg("Background persistence failed")
		return
	}
	log.Info().Int("events", len(all)).Int("inserted", inserted).Msg("Background continuation complete")
}

// WaitBackground blocks until running background continuations finish.
func (o *Orchestrator) WaitBackground() {
	o.bg.Wait()
}

func requestSignature(req model.DiscoveryRequest) string {
	vibes := make([]string, len(req.Vibes))
	for i, v := range req.Vibes {
		vibes[i] = strings.ToLower(strings.TrimSpace(v))
	}
	sort.Strings(vibes)
	return common.InterestSignature(req.City, req.Interests) + "|" + strings.Join(vibes, ",")
}

func firstN(events []model.ExtractedEvent, n int) []model.ExtractedEvent {
	if len(events) <= n {
		return events
	}
	return events[:n]
}
