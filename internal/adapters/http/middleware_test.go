package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDIsPropagatedOrGenerated(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if seen != "req-1" || res.Header().Get(requestIDHeader) != "req-1" {
		t.Fatalf("expected caller request id, got ctx=%q header=%q", seen, res.Header().Get(requestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", 200))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if len(seen) != 36 {
		t.Fatalf("expected generated uuid for oversized id, got %q", seen)
	}
}

func TestAccessLogMiddlewareRecoversPanics(t *testing.T) {
	handler := accessLogMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/imports/bpx", nil))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}
