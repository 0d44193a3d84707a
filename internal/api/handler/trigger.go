package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/service"
)

// TriggerHandler handles trigger expansion endpoints.
type TriggerHandler struct {
	svc *service.MacroService
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(svc *service.MacroService) *TriggerHandler {
	return &TriggerHandler{svc: svc}
}

// Expand handles POST /api/v1/triggers/expand
func (h *TriggerHandler) Expand(w http.ResponseWriter, r *http.Request) {
	var req service.ExpandRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	resp, err := h.svc.ExpandTriggers(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/triggers/{id}?mode=event&clock=<unix>&ns=<ns>
func (h *TriggerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()

	req := &service.ExpandRequest{
		TriggerIDs: []string{id},
		Mode:       query.Get("mode"),
	}

	if clock := query.Get("clock"); clock != "" {
		sec, err := strconv.ParseInt(clock, 10, 64)
		if err != nil {
			respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "clock must be a unix timestamp", "clock", nil)
			return
		}
		event := domain.EventTime{Clock: sec}
		if ns := query.Get("ns"); ns != "" {
			if event.NS, err = strconv.Atoi(ns); err != nil {
				respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "ns must be an integer", "ns", nil)
				return
			}
		}
		req.Events = map[string]domain.EventTime{id: event}
	}

	resp, err := h.svc.ExpandTriggers(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp.Triggers[0])
}
