package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowsThenBlocksThenRefills(t *testing.T) {
	clock := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	l := newLimiter(1, 2, time.Minute)
	l.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		if ok, _ := l.allow("a"); !ok {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	ok, wait := l.allow("a")
	if ok || wait <= 0 || wait > time.Second {
		t.Fatalf("want blocked with wait in (0,1s], got ok=%v wait=%s", ok, wait)
	}
	if ok, _ := l.allow("b"); !ok {
		t.Fatalf("other client should have its own bucket")
	}

	clock = clock.Add(1100 * time.Millisecond)
	if ok, _ := l.allow("a"); !ok {
		t.Fatalf("want pass after refill")
	}

	clock = clock.Add(2 * time.Minute)
	l.allow("c")
	if _, kept := l.buckets["b"]; kept {
		t.Fatalf("idle bucket should be swept")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	h := RateLimit(60, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("want 200 got %d", rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 429 || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("want 429 with Retry-After, got %d %q", rr.Code, rr.Header().Get("Retry-After"))
	}

	// same IP, but an API key gets its own bucket
	keyed := httptest.NewRequest("GET", "/", nil)
	keyed.RemoteAddr = "1.2.3.4:1234"
	keyed.Header.Set("X-API-Key", "pub_key")
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, keyed)
	if rr2.Code != 200 {
		t.Fatalf("want 200 for keyed client got %d", rr2.Code)
	}
}
