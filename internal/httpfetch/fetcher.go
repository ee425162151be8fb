// Package httpfetch downloads upstream JSON documents politely: requests are
// rate limited, transient failures are retried with exponential back-off and
// successful bodies are cached.
package httpfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/starsep/gtfs-tczew/internal/cache"
	"github.com/starsep/gtfs-tczew/internal/logging"
)

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("unexpected HTTP status")

// StatusError carries the status of a failed response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Options tune a Fetcher. Zero values select the defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        uint64
	InitialInterval   time.Duration
	UserAgent         string
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	cache   cache.Store
	limiter *rate.Limiter
	logger  *slog.Logger
	opts    Options
}

// New builds a Fetcher. store may be nil to disable caching.
func New(client *http.Client, store cache.Store, logger *slog.Logger, opts Options) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Fetcher{
		client:  client,
		cache:   store,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		opts:    opts,
	}
}

// Get returns the body of url, from the cache when available.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if f.cache != nil {
		body, ok, err := f.cache.Get(ctx, url)
		if err != nil {
			logging.LogError(f.logger, "cache read failed", err, slog.String("url", url))
		} else if ok {
			return body, nil
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), f.opts.MaxRetries), ctx)
	body, err := backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			return f.fetchOnce(ctx, url)
		},
		policy,
		func(err error, wait time.Duration) {
			if f.logger != nil {
				f.logger.Warn("retrying request",
					slog.String("url", url),
					slog.String("error", err.Error()),
					slog.Duration("wait", wait))
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", url, err)
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, url, body); err != nil {
			logging.LogError(f.logger, "cache write failed", err, slog.String("url", url))
		}
	}
	return body, nil
}

// GetJSON fetches url and decodes the body into v.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	body, err := f.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error decoding %s: %w", url, err)
	}
	return nil
}

func (f *Fetcher) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.opts.InitialInterval
	b.RandomizationFactor = 0.2
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return b
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer logging.SafeCloseWithLogging(resp.Body, f.logger, "close_response_body")

	if f.logger != nil {
		f.logger.Debug("fetched",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(start)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{URL: url, Code: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}
	return body, nil
}
