package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starsep/gtfs-tczew/internal/cache"
)

func fastOptions() Options {
	return Options{
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		UserAgent:       "gtfs-tczew-test",
	}
}

func TestFetcherGet(t *testing.T) {
	t.Run("caches successful responses", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			assert.Equal(t, "gtfs-tczew-test", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		fetcher := New(server.Client(), cache.NewMemoryStore(16, 0), nil, fastOptions())

		for i := 0; i < 3; i++ {
			var payload struct{ OK bool }
			require.NoError(t, fetcher.GetJSON(context.Background(), server.URL+"/Home/GetRouteList?ttId=1", &payload))
			assert.True(t, payload.OK)
		}
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("retries server errors", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		fetcher := New(server.Client(), nil, nil, fastOptions())
		body, err := fetcher.Get(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "[]", string(body))
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		fetcher := New(server.Client(), nil, nil, fastOptions())
		_, err := fetcher.Get(context.Background(), server.URL)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStatus)
		assert.Equal(t, int32(4), hits.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		fetcher := New(server.Client(), nil, nil, fastOptions())
		_, err := fetcher.Get(context.Background(), server.URL+"/api/0.6/node/1.json")

		require.Error(t, err)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.Code)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("does not cache failures", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		store := cache.NewMemoryStore(16, 0)
		fetcher := New(server.Client(), store, nil, fastOptions())
		_, err := fetcher.Get(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("reports decode errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		fetcher := New(server.Client(), nil, nil, fastOptions())
		var v []int
		err := fetcher.GetJSON(context.Background(), server.URL, &v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error decoding")
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		fetcher := New(server.Client(), nil, nil, fastOptions())
		_, err := fetcher.Get(ctx, server.URL)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFetcherRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	opts := fastOptions()
	opts.RequestsPerSecond = 20
	fetcher := New(server.Client(), nil, nil, opts)

	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := fetcher.Get(context.Background(), server.URL)
		require.NoError(t, err)
	}
	// burst of one: four waits of 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
