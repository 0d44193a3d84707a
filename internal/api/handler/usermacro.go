package handler

import (
	"net/http"

	"github.com/bcnelson/trigger-macros/internal/service"
)

// UserMacroHandler handles user macro resolution.
type UserMacroHandler struct {
	svc *service.MacroService
}

// NewUserMacroHandler creates a new UserMacroHandler.
func NewUserMacroHandler(svc *service.MacroService) *UserMacroHandler {
	return &UserMacroHandler{svc: svc}
}

// Resolve handles POST /api/v1/usermacros/resolve
func (h *UserMacroHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req service.ResolveUserMacrosRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	resp, err := h.svc.ResolveUserMacros(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
