package api

import (
	"testing"
)

func TestValidate_RequestTypes(t *testing.T) {
	if errs := Validate(EscalationCheckRequest{}); errs != nil {
		t.Errorf("empty check request is valid, got %v", errs)
	}
	if errs := Validate(EscalationCheckRequest{EventID: "event-1", DryRun: true}); errs != nil {
		t.Errorf("expected valid request, got %v", errs)
	}

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	if errs := Validate(EscalationCheckRequest{EventID: string(long)}); errs == nil {
		t.Error("expected max length violation for eventId")
	}
}

func TestValidate_PauseResume(t *testing.T) {
	if errs := Validate(PauseRequest{}); errs == nil {
		t.Error("expected required violation for pausedBy")
	} else if _, ok := errs["paused_by"]; !ok {
		t.Errorf("expected snake_case field key, got %v", errs)
	}

	if errs := Validate(ResumeRequest{ResumedBy: "dispatcher-7", ExtraMinutes: 30}); errs != nil {
		t.Errorf("expected valid resume request, got %v", errs)
	}
	if errs := Validate(ResumeRequest{ResumedBy: "dispatcher-7", ExtraMinutes: -1}); errs == nil {
		t.Error("expected gte violation for negative extraMinutes")
	}
	if errs := Validate(ResumeRequest{ResumedBy: "dispatcher-7", ExtraMinutes: 2000}); errs == nil {
		t.Error("expected lte violation for oversized extraMinutes")
	}
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"PausedBy":     "paused_by",
		"EventID":      "event_i_d",
		"ExtraMinutes": "extra_minutes",
		"simple":       "simple",
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
