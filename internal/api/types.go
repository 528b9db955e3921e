package api

// Request bodies for the escalation surface. JSON field names follow the
// external contract consumed by the scheduled job and the ops UI.

// EscalationCheckRequest is the optional body for POST /escalation-check.
type EscalationCheckRequest struct {
	EventID string `json:"eventId" validate:"omitempty,max=64"`
	DryRun  bool   `json:"dryRun"`
}

// PauseRequest is the request body for POST /api/incidents/{uuid}/pause.
type PauseRequest struct {
	PausedBy string `json:"pausedBy" validate:"required,max=128"`
}

// ResumeRequest is the request body for POST /api/incidents/{uuid}/resume.
type ResumeRequest struct {
	ResumedBy    string `json:"resumedBy" validate:"required,max=128"`
	ExtraMinutes int    `json:"extraMinutes" validate:"gte=0,lte=1440"`
}

// ResolutionRequest is the request body for POST /api/escalations/{id}/resolution.
type ResolutionRequest struct {
	ResolvedBy string `json:"resolvedBy" validate:"required,max=128"`
}
