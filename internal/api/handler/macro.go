package handler

import (
	"net/http"

	"github.com/bcnelson/trigger-macros/internal/macro"
	"github.com/bcnelson/trigger-macros/internal/service"
)

// MacroHandler exposes the macro scanner.
type MacroHandler struct {
	svc *service.MacroService
}

// NewMacroHandler creates a new MacroHandler.
func NewMacroHandler(svc *service.MacroService) *MacroHandler {
	return &MacroHandler{svc: svc}
}

// Scan handles POST /api/v1/macros/scan
func (h *MacroHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req service.ScanRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	resp, err := h.svc.Scan(&req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Grammars handles GET /api/v1/macros/grammars
func (h *MacroHandler) Grammars(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{
		"grammars": macro.GrammarNames(),
	})
}
