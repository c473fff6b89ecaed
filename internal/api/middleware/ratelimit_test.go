package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arsenmarkotskyi/tt-event-management/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func loginRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/accounts/login/", nil)
	req.RemoteAddr = remoteAddr
	return req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
}

func TestLoginRateLimitAllowsInitialBurst(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 5}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, loginRequest("192.168.1.100:12345"))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, res.Code)
		}
	}
}

func TestLoginRateLimitBlocksAfterBurst(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 5}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, loginRequest("192.168.1.101:54321"))
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, loginRequest("192.168.1.101:54321"))

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", res.Code)
	}
	if retryAfter := res.Header().Get("Retry-After"); retryAfter != "180" {
		t.Errorf("expected Retry-After 180, got %s", retryAfter)
	}
}

func TestLoginRateLimitPerIPIsolation(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 5}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, loginRequest("192.168.1.100:12345"))
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, loginRequest("192.168.1.200:54321"))

	if res.Code != http.StatusOK {
		t.Fatalf("different IP should not be rate limited, got status %d", res.Code)
	}
}

func TestRateLimitForwardedForFromTrustedProxy(t *testing.T) {
	cfg := config.RateLimitConfig{
		LoginPer15Minutes: 5,
		TrustedProxyCIDRs: []string{"10.0.0.0/8"},
	}
	handler := RateLimit(cfg)(okHandler())

	forwarded := func(clientIP string) *http.Request {
		req := loginRequest("10.0.0.1:12345")
		req.Header.Set("X-Forwarded-For", clientIP)
		return req
	}

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, forwarded("203.0.113.45"))
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, forwarded("203.0.113.45"))
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("same forwarded client should be limited, got %d", res.Code)
	}

	// A different forwarded client behind the same proxy is a new bucket.
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, forwarded("203.0.113.99"))
	if res.Code != http.StatusOK {
		t.Fatalf("different forwarded client should pass, got %d", res.Code)
	}
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 1}
	handler := RateLimit(cfg)(okHandler())

	// Spoofed X-Forwarded-For must not grant a fresh bucket.
	first := loginRequest("192.0.2.10:1000")
	first.Header.Set("X-Forwarded-For", "203.0.113.45")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, first)
	if res.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", res.Code)
	}

	second := loginRequest("192.0.2.10:1001")
	second.Header.Set("X-Forwarded-For", "198.51.100.7")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, second)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("spoofed header should not evade the limit, got %d", res.Code)
	}
}

func TestRateLimitDisabledTier(t *testing.T) {
	cfg := config.RateLimitConfig{PublicPerMinute: 0}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/events/", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("disabled tier should never limit, got %d", res.Code)
		}
	}
}

func TestRateLimitSkipsHealthEndpoints(t *testing.T) {
	cfg := config.RateLimitConfig{PublicPerMinute: 1}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("health endpoint should never be limited, got %d", res.Code)
		}
	}
}
