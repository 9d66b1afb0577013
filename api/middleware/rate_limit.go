package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bluebeachhouse/storefront-backend/api/responses"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
	"github.com/bluebeachhouse/storefront-backend/pkg/metrics"
	"github.com/bluebeachhouse/storefront-backend/pkg/ratelimit"
)

type admitter interface {
	Admit(ctx context.Context, scope string) (ratelimit.Decision, error)
}

// RateLimit gates requests on a per-client-IP sliding window. The quota
// headers go out on every gated response; rejections add Retry-After. When
// the window store is unreachable the request is refused, not waved through.
func RateLimit(limiter admitter, metr *metrics.HTTPMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			decision, err := limiter.Admit(ctx, "ip:"+ip)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			writeQuotaHeaders(w, decision)

			if !decision.Allowed {
				retryAfter := decision.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))

				metr.IncRateLimited(r.URL.Path)
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"ip":        ip,
						"limit":     decision.Limit,
						"reset_at":  decision.ResetAt.UnixMilli(),
						"retry_sec": int(retryAfter / time.Second),
					})
					logg.Warn(logCtx, "rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeQuotaHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.UnixMilli(), 10))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
