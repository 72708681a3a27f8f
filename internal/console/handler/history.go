package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/xela07ax/clickpulse/internal/audit"
	"github.com/xela07ax/clickpulse/internal/console/service"
)

type HistoryService interface {
	Fetch(ctx context.Context, f audit.HistoryFilter) ([]audit.LoadEvent, error)
	Summary(ctx context.Context, window time.Duration) ([]audit.LoadSummary, error)
}

type HistoryHandler struct {
	service HistoryService
}

func NewHistoryHandler(s HistoryService) *HistoryHandler {
	return &HistoryHandler{service: s}
}

// List возвращает историю загрузок с фильтрацией
// GET /api/v1/history?domain=...&entity_id=...&limit=...
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.HistoryFilter{
		Domain:   q.Get("domain"),
		EntityID: q.Get("entity_id"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = limit
	}

	events, err := h.service.Fetch(r.Context(), f)
	if err != nil {
		h.fail(w, err, "Failed to fetch load history")
		return
	}
	if events == nil {
		events = []audit.LoadEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Summary агрегаты по доменам за окно.
// GET /api/v1/history/summary?window=1h
func (h *HistoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration, e.g. 30m")
			return
		}
		window = d
	}

	summary, err := h.service.Summary(r.Context(), window)
	if err != nil {
		h.fail(w, err, "Failed to build load summary")
		return
	}
	if summary == nil {
		summary = []audit.LoadSummary{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *HistoryHandler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, service.ErrHistoryDisabled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}
