// Package rategate serializes and paces all calls to the external completion
// API. It enforces a minimum inter-call interval, a cooldown window after
// rate-limit errors, a content-addressed TTL response cache, and single-flight
// collapsing of identical concurrent requests.
package rategate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/eventscout-hub/event-discovery/common"
)

const (
	defaultMaxRetries  = 3
	defaultBackoffBase = 2 * time.Second
)

// CallFunc issues the underlying completion call. The gate decides when (and
// whether) it runs.
type CallFunc func(ctx context.Context) ([]byte, error)

// Gate is the process-wide wrapper around the completion API. All
// classification calls in all concurrent runs go through one Gate so that
// pacing, cooldowns and the in-flight table are shared.
type Gate struct {
	limiter     *rate.Limiter
	cooldown    time.Duration
	maxRetries  int
	backoffBase time.Duration

	mu            sync.Mutex
	cooldownUntil time.Time

	cache *responseCache
	group singleflight.Group

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a gate enforcing minInterval between calls and the given
// cooldown window after rate-limit errors.
func New(minInterval, cooldown time.Duration) *Gate {
	g := &Gate{
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		cooldown:    cooldown,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	g.cache = newResponseCache(g.timeNow)
	return g
}

func (g *Gate) timeNow() time.Time { return g.now() }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Invoke runs call for the given payload, subject to caching, single-flight,
// pacing and cooldown rules. With fastFail set, an active cooldown returns
// common.ErrCooldown immediately instead of blocking.
func (g *Gate) Invoke(ctx context.Context, payload []byte, ttl time.Duration, fastFail bool, call CallFunc) ([]byte, error) {
	key := cacheKey(payload)
	if v, ok := g.cache.get(key); ok {
		log.Debug().Str("key", key[:12]).Msg("Completion cache hit")
		return v, nil
	}

	v, err, shared := g.group.Do(key, func() (interface{}, error) {
		// A waiter may have populated the cache while we queued.
		if v, ok := g.cache.get(key); ok {
			return v, nil
		}
		res, callErr := g.paced(ctx, fastFail, call)
		if callErr != nil {
			return nil, callErr
		}
		if ttl > 0 {
			g.cache.set(key, res, ttl)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("key", key[:12]).Msg("Completion call shared via single-flight")
	}
	return v.([]byte), nil
}

// paced waits out any cooldown and the minimum inter-call interval, then
// issues the call with bounded exponential backoff on rate-limit and server
// errors.
func (g *Gate) paced(ctx context.Context, fastFail bool, call CallFunc) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if wait := g.cooldownRemaining(); wait > 0 {
			if fastFail {
				return nil, fmt.Errorf("%w: %s remaining", common.ErrCooldown, wait.Round(time.Second))
			}
			log.Warn().Dur("wait", wait).Msg("Waiting out completion API cooldown")
			if err := g.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		res, err := call(ctx)
		if err == nil {
			return res, nil
		}

		retryable := errors.Is(err, common.ErrServerError)
		if errors.Is(err, common.ErrRateLimited) {
			g.startCooldown()
			if fastFail {
				return nil, fmt.Errorf("%w: %v", common.ErrCooldown, err)
			}
			retryable = true
		}
		if !retryable || attempt >= g.maxRetries {
			return nil, err
		}

		backoff := g.backoffBase << attempt
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Completion call failed, retrying")
		if sleepErr := g.sleep(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

// SetRetryPolicy overrides the backoff schedule. Tests use this to avoid
// real multi-second waits.
func (g *Gate) SetRetryPolicy(base time.Duration, maxRetries int) {
	g.backoffBase = base
	g.maxRetries = maxRetries
}

// InCooldown reports whether the gate is currently inside a cooldown window.
func (g *Gate) InCooldown() bool {
	return g.cooldownRemaining() > 0
}

func (g *Gate) cooldownRemaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldownUntil.Sub(g.now())
}

func (g *Gate) startCooldown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldownUntil = g.now().Add(g.cooldown)
	log.Warn().Time("until", g.cooldownUntil).Msg("Rate limit hit, entering cooldown")
}

func cacheKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
