package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conectasei/core/internal/logger"
)

func TestRequestID_GeneratesWhenAbsentAndEchoesWhenPresent(t *testing.T) {
	var seen string
	h := requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(requestIDKey).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen == "" {
		t.Error("expected a generated request id")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("expected the response header to echo the generated request id")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("X-Request-ID", "fixed-id")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if seen != "fixed-id" {
		t.Errorf("got %q, want the caller-supplied request id to be preserved", seen)
	}
}

func TestCORS_HandlesPreflight(t *testing.T) {
	h := cors("https://example.test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be invoked for an OPTIONS preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://example.test" {
		t.Error("expected the configured origin to be echoed")
	}
}

func TestRecoverPanic_ReturnsInternalServerError(t *testing.T) {
	h := recoverPanic(logger.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic escaped the recover middleware: %v", r)
		}
	}()

	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", rec.Code)
	}
}

func TestAuth_RejectsMissingAndMalformedHeaders(t *testing.T) {
	h := auth("secret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached without a valid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401 for missing header", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("Authorization", "NotBearer abc")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401 for malformed header", rec2.Code)
	}
}
