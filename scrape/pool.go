package scrape

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/eventscout-hub/event-discovery/model"
)

// ExtractBatch runs Extract over urls with a bounded worker pool, consulting
// the visited ledger before each fetch and recording every attempt after it.
// Per-page failures are logged and skipped; the batch itself never fails.
func (pe *PageExtractor) ExtractBatch(ctx context.Context, urls []string, workers int, ledger *VisitedLedger) ([]model.ExtractedEvent, []model.CandidatePage) {
	if workers <= 0 {
		workers = 1
	}

	var (
		mu         sync.Mutex
		events     []model.ExtractedEvent
		candidates []model.CandidatePage
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, pageURL := range urls {
		if ctx.Err() != nil {
			break
		}
		if ledger != nil && ledger.ShouldSkip(pageURL) {
			log.Debug().Str("url", pageURL).Msg("Skipping recently visited page")
			continue
		}

		g.Go(func() error {
			result, err := pe.Extract(ctx, pageURL)
			if err != nil {
				log.Warn().Err(err).Str("url", pageURL).Msg("Page extraction failed")
				if ledger != nil {
					ledger.Record(pageURL, false)
				}
				return nil
			}
			if ledger != nil {
				ledger.Record(pageURL, result.Event != nil)
			}

			mu.Lock()
			defer mu.Unlock()
			if result.Event != nil {
				events = append(events, *result.Event)
			}
			if result.Candidate != nil {
				candidates = append(candidates, *result.Candidate)
			}
			return nil
		})
	}

	// Workers only ever return nil; Wait is for draining the pool.
	_ = g.Wait()
	return events, candidates
}
