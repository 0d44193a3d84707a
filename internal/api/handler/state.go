package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/fixture"
	"github.com/bcnelson/trigger-macros/internal/service"
)

// MaxStateSize limits the size of an imported snapshot.
const MaxStateSize = 32 << 20

// StateHandler handles bulk configuration import.
type StateHandler struct {
	svc *service.MacroService
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(svc *service.MacroService) *StateHandler {
	return &StateHandler{svc: svc}
}

// Import handles PUT /api/v1/state
// The body is JSON, or YAML when sent as application/yaml.
func (h *StateHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxStateSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondStandardError(w, http.StatusRequestEntityTooLarge, domain.ErrCodeInvalidInput, "state document too large", "", nil)
			return
		}
		handleError(w, domain.ErrInvalidInput)
		return
	}

	state, err := fixture.Decode(data, requestFormat(r))
	if err != nil {
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error(), "", nil)
		return
	}

	summary, err := h.svc.ImportState(r.Context(), state)
	if err != nil {
		handleError(w, err)
		return
	}

	SetETagHeader(w, "state", fixture.Digest(data))
	respondJSON(w, http.StatusOK, summary)
}

func requestFormat(r *http.Request) fixture.Format {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return fixture.FormatYAML
	default:
		return fixture.FormatJSON
	}
}
