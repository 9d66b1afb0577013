package ratelimit

import (
	"context"
	"time"

	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	apperrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
)

// WindowStore is the Redis surface the limiter needs.
type WindowStore interface {
	SlidingWindow(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error)
	RateLimitKey(scope string) string
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter reports how long the caller should wait before retrying,
// rounded up to whole seconds. Zero when the request was admitted.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return wait
}

// Limiter admits requests under a sliding-window quota keyed by scope.
type Limiter struct {
	store  WindowStore
	window time.Duration
	limit  int
	now    func() time.Time
}

// New builds a limiter from configuration.
func New(store WindowStore, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		store:  store,
		window: cfg.Window,
		limit:  cfg.Limit,
		now:    time.Now,
	}
}

// Admit records the request and decides whether it fits in the window. Every
// request consumes a slot, including ones that end up rejected, so a client
// hammering past the limit keeps pushing its reset time out. A store failure
// yields a dependency error and the caller must reject the request.
func (l *Limiter) Admit(ctx context.Context, scope string) (Decision, error) {
	now := l.now()
	key := l.store.RateLimitKey(scope)

	count, oldest, err := l.store.SlidingWindow(ctx, key, l.window, now)
	if err != nil {
		return Decision{Limit: l.limit}, apperrors.Wrap(apperrors.CodeDependency, err, "rate limit backend unavailable")
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   oldest.Add(l.window),
	}, nil
}
