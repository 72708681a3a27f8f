package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/xela07ax/clickpulse/internal/console/service"
	"github.com/xela07ax/clickpulse/internal/domain"
	"github.com/xela07ax/clickpulse/internal/realtime"
)

// UnitsService описываем, что нам нужно от сервиса юнитов
type UnitsService interface {
	List() []domain.Snapshot
	Get(name string) (domain.Snapshot, error)
	Refresh(ctx context.Context, name string) (domain.Snapshot, error)
	Configure(name string, req service.ConfigRequest) (domain.Snapshot, error)
	SetRealtime(ctx context.Context, name string, enabled bool) (domain.Snapshot, error)
}

type UnitsHandler struct {
	service UnitsService
}

func NewUnitsHandler(s UnitsService) *UnitsHandler {
	return &UnitsHandler{service: s}
}

type realtimeRequest struct {
	Enabled bool `json:"enabled"`
}

// List снимки всех юнитов.
// GET /api/v1/units
func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

// GET /api/v1/units/{domain}
func (h *UnitsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(chi.URLParam(r, "domain"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Refresh видимая перезагрузка. Ответ уходит после коммита попытки.
// POST /api/v1/units/{domain}/refresh
func (h *UnitsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Refresh(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PUT /api/v1/units/{domain}/config
func (h *UnitsHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req service.ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := h.service.Configure(chi.URLParam(r, "domain"), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /api/v1/units/{domain}/realtime {"enabled": true}
func (h *UnitsHandler) SetRealtime(w http.ResponseWriter, r *http.Request) {
	var req realtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := h.service.SetRealtime(r.Context(), chi.URLParam(r, "domain"), req.Enabled)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *UnitsHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, realtime.ErrUnknownDomain):
		writeError(w, http.StatusNotFound, "Unknown analytics domain")
	case errors.Is(err, service.ErrInvalidConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
