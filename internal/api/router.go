package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bcnelson/trigger-macros/internal/api/handler"
	"github.com/bcnelson/trigger-macros/internal/api/middleware"
	"github.com/bcnelson/trigger-macros/internal/service"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(svc *service.MacroService, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Triggers
		triggerHandler := handler.NewTriggerHandler(svc)
		r.Post("/triggers/expand", triggerHandler.Expand)
		r.Get("/triggers/{id}", triggerHandler.Get)

		// User macros
		userMacroHandler := handler.NewUserMacroHandler(svc)
		r.Post("/usermacros/resolve", userMacroHandler.Resolve)

		// Macro scanning
		macroHandler := handler.NewMacroHandler(svc)
		r.Post("/macros/scan", macroHandler.Scan)
		r.Get("/macros/grammars", macroHandler.Grammars)

		// Bulk configuration import
		stateHandler := handler.NewStateHandler(svc)
		r.Put("/state", stateHandler.Import)
	})

	return r
}
