package handler

import (
	"net/http"

	"github.com/maydaypets/platform/internal/alert"
	"github.com/maydaypets/platform/internal/domain"
)

// SyncHandler exposes the batched sync queue endpoint.
type SyncHandler struct {
	queue *alert.SyncQueue
}

// NewSyncHandler creates the sync handler.
func NewSyncHandler(queue *alert.SyncQueue) *SyncHandler {
	return &SyncHandler{queue: queue}
}

type syncRequest struct {
	Actions []alert.SyncAction `json:"actions"`
}

// ProcessBatch handles POST /sync. Actions are processed in arrival
// order; duplicates within the idempotency TTL mirror their stored
// outcome.
func (h *SyncHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if len(req.Actions) == 0 {
		RespondError(w, domain.ErrValidation("actions must not be empty"))
		return
	}

	outcomes := h.queue.Process(r.Context(), req.Actions)
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"outcomes": outcomes,
	})
}
