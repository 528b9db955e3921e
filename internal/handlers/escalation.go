package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/watchtower-ops/watchtower/internal/api"
	"github.com/watchtower-ops/watchtower/internal/database"
	"github.com/watchtower-ops/watchtower/internal/escalation"
	"github.com/watchtower-ops/watchtower/internal/middleware"
)

// EscalationHandler exposes the escalation engine over HTTP. The engine has
// no internal scheduler; POST /escalation-check is the trigger an external
// cron (or the optional built-in poller) drives.
type EscalationHandler struct {
	db       *gorm.DB
	engine   *escalation.Engine
	reporter *escalation.Reporter

	// Clock is injected so tests can drive escalation deterministically
	Clock func() time.Time
}

// NewEscalationHandler creates a new escalation handler
func NewEscalationHandler(db *gorm.DB, engine *escalation.Engine, reporter *escalation.Reporter) *EscalationHandler {
	return &EscalationHandler{
		db:       db,
		engine:   engine,
		reporter: reporter,
		Clock:    time.Now,
	}
}

// SetupRoutes configures the escalation routes
func (h *EscalationHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/escalation-check", h.handleEscalationCheck)

	mux.HandleFunc("GET /api/escalations/history", h.handleHistory)
	mux.HandleFunc("POST /api/escalations/{id}/resolution", h.handleResolution)
	mux.HandleFunc("POST /api/incidents/{uuid}/pause", h.handlePause)
	mux.HandleFunc("POST /api/incidents/{uuid}/resume", h.handleResume)
}

// CheckResponse is the response body for /escalation-check
type CheckResponse struct {
	DueIncidents         int               `json:"dueIncidents"`
	EscalatedIncidents   int               `json:"escalatedIncidents"`
	EscalatedIncidentIDs []string          `json:"escalatedIncidentIds"`
	Errors               int               `json:"errors,omitempty"`
	Stats                *escalation.Stats `json:"stats,omitempty"`
}

// handleEscalationCheck handles POST (scan and escalate) and GET (stats only)
func (h *EscalationHandler) handleEscalationCheck(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.runCheck(w, r)
	case http.MethodGet:
		h.statsOnly(w, r)
	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *EscalationHandler) runCheck(w http.ResponseWriter, r *http.Request) {
	var req api.EscalationCheckRequest
	if err := api.DecodeJSONOrEmpty(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	report, err := h.engine.RunCheck(r.Context(), req.EventID, req.DryRun, h.Clock())
	if err != nil {
		log.Printf("EscalationHandler: check failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Escalation check failed")
		return
	}

	resp := CheckResponse{
		DueIncidents:         report.DueIncidents,
		EscalatedIncidents:   report.EscalatedIncidents,
		EscalatedIncidentIDs: report.EscalatedIncidentIDs,
		Errors:               report.Errors,
	}
	if req.EventID != "" {
		stats, err := h.reporter.StatsForEvent(req.EventID)
		if err != nil {
			log.Printf("EscalationHandler: stats aggregation failed for event %s: %v", req.EventID, err)
		} else {
			resp.Stats = stats
		}
	}

	api.RespondJSON(w, http.StatusOK, resp)
}

func (h *EscalationHandler) statsOnly(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		api.RespondError(w, http.StatusBadRequest, "eventId query parameter is required")
		return
	}

	stats, err := h.reporter.StatsForEvent(eventID)
	if err != nil {
		log.Printf("EscalationHandler: stats aggregation failed for event %s: %v", eventID, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to aggregate stats")
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// handleHistory handles GET /api/escalations/history?incidentId=...
func (h *EscalationHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.incidentByUUID(w, r.URL.Query().Get("incidentId"))
	if !ok {
		return
	}

	events, err := h.reporter.History(incident.ID)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to load escalation history")
		return
	}

	p := api.ParsePagination(r)
	total := int64(len(events))
	start := p.Offset()
	if start > len(events) {
		start = len(events)
	}
	end := start + p.PerPage
	if end > len(events) {
		end = len(events)
	}

	api.RespondJSON(w, http.StatusOK, api.NewPaginated(api.MapEscalationEvents(events[start:end]), p, total))
}

// handleResolution handles POST /api/escalations/{id}/resolution.
// Backfilling the resolution time is the only permitted mutation of the
// audit trail.
func (h *EscalationHandler) handleResolution(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "Invalid escalation event ID")
		return
	}
	eventID := uint(id)

	var req api.ResolutionRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	now := h.Clock()
	if err := h.reporter.RecordResolution(eventID, now); err != nil {
		switch err {
		case gorm.ErrRecordNotFound:
			api.RespondError(w, http.StatusNotFound, "Escalation event not found")
		case escalation.ErrAlreadyResolved:
			api.RespondErrorWithCode(w, http.StatusConflict, "already_resolved", "Escalation event already has a resolution time")
		default:
			api.RespondError(w, http.StatusInternalServerError, "Failed to record resolution")
		}
		return
	}

	log.Printf("EscalationHandler: resolution recorded on event %d by %s", eventID, req.ResolvedBy)
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":              eventID,
		"resolution_time": now,
	})
}

// handlePause handles POST /api/incidents/{uuid}/pause
func (h *EscalationHandler) handlePause(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.incidentByUUID(w, r.PathValue("uuid"))
	if !ok {
		return
	}

	var req api.PauseRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	if err := h.engine.Pause(incident.ID, req.PausedBy, h.Clock()); err != nil {
		log.Printf("EscalationHandler: pause failed for incident %s: %v", incident.UUID, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to pause escalation")
		return
	}

	log.Printf("EscalationHandler: incident %s paused by %s (authenticated as %s)", incident.UUID, req.PausedBy, currentUser(r))
	h.respondEscalationState(w, incident.ID)
}

// handleResume handles POST /api/incidents/{uuid}/resume
func (h *EscalationHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.incidentByUUID(w, r.PathValue("uuid"))
	if !ok {
		return
	}

	var req api.ResumeRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	if _, err := h.engine.Resume(incident.ID, req.ResumedBy, req.ExtraMinutes, h.Clock()); err != nil {
		log.Printf("EscalationHandler: resume failed for incident %s: %v", incident.UUID, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to resume escalation")
		return
	}

	log.Printf("EscalationHandler: incident %s resumed by %s (authenticated as %s)", incident.UUID, req.ResumedBy, currentUser(r))
	h.respondEscalationState(w, incident.ID)
}

func (h *EscalationHandler) respondEscalationState(w http.ResponseWriter, incidentID uint) {
	var incident database.Incident
	if err := h.db.First(&incident, incidentID).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to reload incident")
		return
	}
	api.RespondJSON(w, http.StatusOK, api.MapIncidentEscalationState(&incident))
}

// incidentByUUID loads an incident by public UUID, writing the error
// response itself when the lookup fails.
func (h *EscalationHandler) incidentByUUID(w http.ResponseWriter, uuid string) (*database.Incident, bool) {
	if uuid == "" {
		api.RespondError(w, http.StatusBadRequest, "Incident ID is required")
		return nil, false
	}

	var incident database.Incident
	if err := h.db.Where("uuid = ?", uuid).First(&incident).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			api.RespondError(w, http.StatusNotFound, "Incident not found")
		} else {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load incident")
		}
		return nil, false
	}
	return &incident, true
}

// currentUser is a convenience for handlers that log the acting user
func currentUser(r *http.Request) string {
	return middleware.GetUserFromContext(r.Context())
}
