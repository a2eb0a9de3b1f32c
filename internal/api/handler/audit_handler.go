package handler

import (
	"net/http"
	"strconv"

	"github.com/podreach/publisher/internal/audit"
)

// AuditHandler serves the batch-history endpoint for operators.
type AuditHandler struct {
	sink audit.Sink
}

func NewAuditHandler(sink audit.Sink) *AuditHandler {
	return &AuditHandler{sink: sink}
}

// Recent handles GET /api/v1/audit
//
// @Summary  Recent publish runs, newest first
// @Tags     audit
// @Produce  json
// @Param    limit  query     int  false  "Entries to return (default 20, max 100)"
// @Success  200    {object}  map[string]any
// @Router   /api/v1/audit [get]
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	entries, err := h.sink.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": entries})
}
