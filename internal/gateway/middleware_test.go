package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func TestRequestID(t *testing.T) {
	handler := requestID(okHandler)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "custom-id-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "custom-id-123", rr.Header().Get("X-Request-ID"))
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := requestLogger(logging.New(nil, "silent"))(okHandler)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestCORSHandler(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"deny when unconfigured", nil, "http://evil.example", ""},
		{"listed origin", []string{"http://kitchen.example"}, "http://kitchen.example", "http://kitchen.example"},
		{"unlisted origin", []string{"http://kitchen.example"}, "http://evil.example", ""},
		{"wildcard", []string{"*"}, "http://anything.example", "http://anything.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := corsHandler(tt.allowed)(okHandler)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "ok", rr.Body.String())
		})
	}
}

func TestCORSHandler_Preflight(t *testing.T) {
	handler := corsHandler([]string{"http://kitchen.example"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/pages/conn-1/transcript", nil)
	req.Header.Set("Origin", "http://kitchen.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://kitchen.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)
	assert.Equal(t, "86400", rr.Header().Get("Access-Control-Max-Age"))
}

func TestRequireAuth(t *testing.T) {
	s := &Server{
		auth:        ResolvedAuth{Mode: "token", Token: "tok"},
		authLimiter: newAuthRateLimiter(),
	}
	t.Cleanup(s.authLimiter.stop)
	handler := s.requireAuth(okHandler)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic tok", http.StatusUnauthorized},
		{"valid token", "Bearer tok", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/pages/conn-1/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRequireAuth_RateLimited(t *testing.T) {
	s := &Server{
		auth:        ResolvedAuth{Mode: "token", Token: "tok"},
		authLimiter: newAuthRateLimiter(),
	}
	t.Cleanup(s.authLimiter.stop)
	handler := s.requireAuth(okHandler)

	for range authRateMaxFails {
		req := httptest.NewRequest(http.MethodGet, "/pages/conn-1/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/pages/conn-1/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
