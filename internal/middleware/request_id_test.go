package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDMiddleware_GeneratesUUID(t *testing.T) {
	var capturedID string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/escalation-check", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	responseID := w.Header().Get(RequestIDHeader)
	if responseID == "" {
		t.Fatal("expected X-Request-ID header in response")
	}
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("expected UUID-formatted request ID, got %q", responseID)
	}
	if capturedID != responseID {
		t.Errorf("context ID %q does not match response ID %q", capturedID, responseID)
	}
}

func TestRequestIDMiddleware_ReusesClientID(t *testing.T) {
	clientID := "client-supplied-id-42"
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/escalation-check", nil)
	req.Header.Set(RequestIDHeader, clientID)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != clientID {
		t.Errorf("expected client ID reused, got %q", got)
	}
}

func TestGetRequestID_MissingFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty ID outside middleware, got %q", id)
	}
}
