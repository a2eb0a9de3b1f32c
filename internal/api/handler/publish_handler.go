package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/podreach/publisher/internal/api/middleware"
	"github.com/podreach/publisher/internal/dispatch"
)

// runRequest is the body of a manual publish trigger.
type runRequest struct {
	BatchSize int `json:"batch_size"`
}

// PublishHandler exposes the operator-facing batch trigger.
type PublishHandler struct {
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

func NewPublishHandler(dispatcher *dispatch.Dispatcher, logger *zap.Logger) *PublishHandler {
	return &PublishHandler{dispatcher: dispatcher, logger: logger}
}

// Run handles POST /api/v1/publish/run
//
// The request blocks for the whole batch — inter-item delays included — so
// the server's write timeout must exceed the batch deadline.
//
// @Summary  Trigger a publish run
// @Tags     publish
// @Accept   json
// @Produce  json
// @Param    body  body      runRequest  true  "Batch parameters"
// @Success  200   {object}  domain.BatchSummary
// @Failure  409   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Failure  503   {object}  map[string]string
// @Router   /api/v1/publish/run [post]
func (h *PublishHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	summary, err := h.dispatcher.Run(r.Context(), req.BatchSize)
	if err != nil {
		h.logger.Warn("publish run rejected",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
