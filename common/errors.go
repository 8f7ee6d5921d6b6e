package common

import "errors"

// Error taxonomy for the discovery pipeline. Per-fetch and per-call failures
// are recorded locally and never abort a run; ErrConfigMissing is the one
// condition with no fallback.
var (
	ErrFetchTimeout  = errors.New("fetch timed out")
	ErrFetchFailed   = errors.New("fetch failed")
	ErrRateLimited   = errors.New("rate limited by upstream")
	ErrServerError   = errors.New("upstream server error")
	ErrParseFailed   = errors.New("failed to parse upstream response")
	ErrCooldown      = errors.New("completion API in cooldown")
	ErrConfigMissing = errors.New("required configuration missing")
)
