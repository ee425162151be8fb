package webui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func limitedOK(requests int, interval time.Duration) http.Handler {
	return NewRateLimitMiddleware(requests, interval)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func statusFor(handler http.Handler, target string) (int, http.Header) {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", target, nil))
	return w.Code, w.Header()
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks requests over limit", func(t *testing.T) {
		handler := limitedOK(2, time.Minute)

		for i := 0; i < 2; i++ {
			code, _ := statusFor(handler, "/regenerate?key=a")
			assert.Equal(t, http.StatusOK, code, "request %d should be allowed", i+1)
		}

		code, header := statusFor(handler, "/regenerate?key=a")
		assert.Equal(t, http.StatusTooManyRequests, code)
		assert.Equal(t, "30", header.Get("Retry-After"))
		assert.Equal(t, "2", header.Get("X-RateLimit-Limit"))
	})

	t.Run("keys are limited independently", func(t *testing.T) {
		handler := limitedOK(1, time.Minute)

		code, _ := statusFor(handler, "/regenerate?key=a")
		assert.Equal(t, http.StatusOK, code)
		code, _ = statusFor(handler, "/regenerate?key=b")
		assert.Equal(t, http.StatusOK, code)
		code, _ = statusFor(handler, "/regenerate")
		assert.Equal(t, http.StatusOK, code)
		code, _ = statusFor(handler, "/regenerate?key=a")
		assert.Equal(t, http.StatusTooManyRequests, code)
	})

	t.Run("zero blocks everything", func(t *testing.T) {
		code, header := statusFor(limitedOK(0, time.Minute), "/regenerate?key=a")
		assert.Equal(t, http.StatusTooManyRequests, code)
		assert.Equal(t, "3600", header.Get("Retry-After"))
	})

	t.Run("negative disables limiting", func(t *testing.T) {
		handler := limitedOK(-1, time.Minute)
		for i := 0; i < 10; i++ {
			code, _ := statusFor(handler, "/regenerate")
			assert.Equal(t, http.StatusOK, code)
		}
	})
}
