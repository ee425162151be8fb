package webui

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds the number of per key limiters kept in memory.
const maxTrackedKeys = 256

// RateLimitMiddleware provides per-API-key rate limiting
type RateLimitMiddleware struct {
	limiters  gcache.Cache
	rateLimit rate.Limit
	burstSize int
}

// NewRateLimitMiddleware allows requests requests per interval for every API key.
// Zero blocks everything, a negative value disables limiting.
func NewRateLimitMiddleware(requests int, interval time.Duration) func(http.Handler) http.Handler {
	var rateLimit rate.Limit
	switch {
	case requests < 0:
		rateLimit = rate.Inf
	case requests == 0:
		rateLimit = 0
	default:
		rateLimit = rate.Every(interval / time.Duration(requests))
	}

	middleware := &RateLimitMiddleware{
		rateLimit: rateLimit,
		burstSize: max(requests, 0),
	}
	middleware.limiters = gcache.New(maxTrackedKeys).LRU().
		LoaderFunc(func(any) (any, error) {
			return rate.NewLimiter(middleware.rateLimit, middleware.burstSize), nil
		}).
		Build()

	return middleware.rateLimitHandler
}

func (rl *RateLimitMiddleware) getLimiter(apiKey string) *rate.Limiter {
	value, err := rl.limiters.Get(apiKey)
	if err != nil {
		return rate.NewLimiter(rl.rateLimit, rl.burstSize)
	}
	return value.(*rate.Limiter)
}

func (rl *RateLimitMiddleware) rateLimitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.URL.Query().Get("key")
		if apiKey == "" {
			apiKey = "__no_key__"
		}

		if !rl.getLimiter(apiKey).Allow() {
			rl.sendRateLimitExceeded(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sendRateLimitExceeded sends a 429 Too Many Requests response
func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	retryAfter := time.Hour
	if rl.rateLimit == rate.Inf {
		retryAfter = time.Second
	} else if rl.rateLimit > 0 {
		retryAfter = time.Duration(float64(time.Second) / float64(rl.rateLimit))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(max(int(retryAfter.Seconds()), 1)))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"code":429,"text":"Rate limit exceeded. Please try again later."}` + "\n"))
}
