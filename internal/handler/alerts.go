package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maydaypets/platform/internal/alert"
	"github.com/maydaypets/platform/internal/antifraud"
	"github.com/maydaypets/platform/internal/domain"
	"github.com/maydaypets/platform/internal/gate"
)

// AlertHandler exposes the event log, projection, and gate endpoints
// for alert subjects.
type AlertHandler struct {
	svc *alert.Service
}

// NewAlertHandler creates the alert handler.
func NewAlertHandler(svc *alert.Service) *AlertHandler {
	return &AlertHandler{svc: svc}
}

type appendEventRequest struct {
	EventType   domain.EventType `json:"event_type"`
	Payload     json.RawMessage  `json:"payload"`
	ExpectedSeq *int64           `json:"expected_seq,omitempty"`
}

// AppendEvent handles POST /subjects/{subjectID}/events.
func (h *AlertHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req appendEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.EventType == "" {
		RespondError(w, domain.ErrValidation("event_type is required"))
		return
	}

	rec, err := h.svc.AppendRaw(r.Context(), subjectID, req.EventType, req.Payload, req.ExpectedSeq)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, rec)
}

// ListEvents handles GET /subjects/{subjectID}/events.
func (h *AlertHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	records, err := h.svc.Events(r.Context(), subjectID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"subject_id": subjectID,
		"events":     records,
	})
}

// GetProjection handles GET /subjects/{subjectID}/projection.
func (h *AlertHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	proj, err := h.svc.Projection(r.Context(), subjectID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, proj)
}

// Evaluate handles POST /subjects/{subjectID}/evaluate.
func (h *AlertHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req gate.SendRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Channel == "" || req.Segment == "" {
		RespondError(w, domain.ErrValidation("channel and segment are required"))
		return
	}
	if req.Kind == "" {
		req.Kind = domain.SendStandard
	}

	decision, err := h.svc.Evaluate(r.Context(), subjectID, req)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, decision)
}

// AssessReport handles POST /subjects/{subjectID}/reports/assess. It
// scores the report's abuse signals and appends the derived gating
// facts to the subject's log.
func (h *AlertHandler) AssessReport(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var signals antifraud.Signals
	if err := DecodeJSON(r, &signals); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	assessment := antifraud.Assess(signals)
	for _, ev := range assessment.Events() {
		if _, err := h.svc.Append(r.Context(), subjectID, ev, nil); err != nil {
			RespondError(w, err)
			return
		}
	}
	RespondJSON(w, http.StatusOK, assessment)
}

func subjectParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "subjectID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrValidation("subjectID must be a UUID")
	}
	return id, nil
}
