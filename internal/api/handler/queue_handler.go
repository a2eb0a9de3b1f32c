package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/podreach/publisher/internal/api/middleware"
	"github.com/podreach/publisher/internal/domain"
	"github.com/podreach/publisher/internal/service"
)

// QueueHandler handles queue CRUD endpoints for the approval workflow and
// the dashboard.
type QueueHandler struct {
	svc    *service.QueueService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.QueueService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// Enqueue handles POST /api/v1/queue
//
// @Summary     Queue an approved reply for publication
// @Tags        queue
// @Accept      json
// @Produce     json
// @Param       body  body      domain.EnqueueRequest  true  "Approved reply"
// @Success     201   {object}  domain.QueueItem
// @Failure     409   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/queue [post]
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.Enqueue(r.Context(), req)
	if err != nil {
		h.logger.Warn("enqueue failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// GetByID handles GET /api/v1/queue/{id}
//
// @Summary  Get a queue item by ID
// @Tags     queue
// @Produce  json
// @Param    id   path      string  true  "Queue item UUID"
// @Success  200  {object}  domain.QueueItem
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/queue/{id} [get]
func (h *QueueHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// List handles GET /api/v1/queue
//
// @Summary  List queue items with filtering and pagination
// @Tags     queue
// @Produce  json
// @Param    status  query     string  false  "Filter by status"
// @Param    page    query     int     false  "Page number (default 1)"
// @Param    limit   query     int     false  "Items per page (default 20, max 100)"
// @Success  200     {object}  map[string]any
// @Router   /api/v1/queue [get]
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	items, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list queue items")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// Stats handles GET /api/v1/queue/stats
//
// @Summary  Queue depth by status
// @Tags     queue
// @Produce  json
// @Success  200  {object}  map[string]int
// @Router   /api/v1/queue/stats [get]
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count queue items")
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.Status(s)
		if st.IsValid() {
			filter.Status = &st
		}
	}
	return filter
}
