package api

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON_Valid(t *testing.T) {
	req := httptest.NewRequest("POST", "/escalation-check",
		strings.NewReader(`{"eventId":"event-1","dryRun":true}`))

	var body EscalationCheckRequest
	if err := DecodeJSON(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.EventID != "event-1" || !body.DryRun {
		t.Errorf("unexpected decoded body: %+v", body)
	}
}

func TestDecodeJSON_UnknownField(t *testing.T) {
	req := httptest.NewRequest("POST", "/escalation-check",
		strings.NewReader(`{"eventId":"event-1","bogus":1}`))

	var body EscalationCheckRequest
	err := DecodeJSON(req, &body)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Errorf("expected friendly unknown-field message, got %q", err.Error())
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	req := httptest.NewRequest("POST", "/escalation-check", strings.NewReader(`{"eventId":`))

	var body EscalationCheckRequest
	if err := DecodeJSON(req, &body); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/escalation-check", bytes.NewReader(nil))

	var body EscalationCheckRequest
	err := DecodeJSON(req, &body)
	if err == nil || err.Error() != "request body is empty" {
		t.Errorf("expected empty-body error, got %v", err)
	}
}

func TestDecodeJSONOrEmpty(t *testing.T) {
	req := httptest.NewRequest("POST", "/escalation-check", bytes.NewReader(nil))

	var body EscalationCheckRequest
	if err := DecodeJSONOrEmpty(req, &body); err != nil {
		t.Errorf("empty body is accepted, got %v", err)
	}
	if body.EventID != "" || body.DryRun {
		t.Errorf("expected zero-value body, got %+v", body)
	}

	// Real errors still surface.
	req = httptest.NewRequest("POST", "/escalation-check", strings.NewReader(`{"dryRun":"yes"}`))
	if err := DecodeJSONOrEmpty(req, &body); err == nil {
		t.Error("expected type error to surface")
	}
}

func TestDecodeJSON_OversizedBody(t *testing.T) {
	big := `{"eventId":"` + strings.Repeat("a", MaxBodySize) + `"}`
	req := httptest.NewRequest("POST", "/escalation-check", strings.NewReader(big))

	var body EscalationCheckRequest
	if err := DecodeJSON(req, &body); err == nil {
		t.Fatal("expected error for oversized body")
	}
}
