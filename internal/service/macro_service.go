package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/fixture"
	"github.com/bcnelson/trigger-macros/internal/macro"
	"github.com/bcnelson/trigger-macros/internal/resolver"
	"github.com/bcnelson/trigger-macros/internal/storage"
	"github.com/bcnelson/trigger-macros/internal/validation"
)

// MacroService exposes macro expansion over the configuration store.
type MacroService struct {
	store    storage.Storage
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// NewMacroService creates a new MacroService.
func NewMacroService(store storage.Storage, r *resolver.Resolver, logger *slog.Logger) *MacroService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MacroService{
		store:    store,
		resolver: r,
		logger:   logger,
	}
}

// ExpandRequest selects triggers to expand.
type ExpandRequest struct {
	TriggerIDs []string                    `json:"triggerids"`
	Mode       string                      `json:"mode,omitempty"`
	Events     map[string]domain.EventTime `json:"events,omitempty"`
}

// ExpandResponse carries expanded triggers in request order.
type ExpandResponse struct {
	Triggers []*resolver.ExpandedTrigger `json:"triggers"`
}

// ExpandTriggers loads the requested triggers and expands their macros.
// Unknown trigger ids are skipped; domain.ErrNotFound is returned when none exist.
func (s *MacroService) ExpandTriggers(ctx context.Context, req *ExpandRequest) (*ExpandResponse, error) {
	if errs := validation.ValidateIDs("triggerids", req.TriggerIDs); errs.HasErrors() {
		return nil, errs
	}

	r := s.resolver
	if req.Mode != "" {
		mode, err := resolver.ParseMode(req.Mode)
		if err != nil {
			return nil, validation.ValidationErrors{validation.NewValidationError("mode", req.Mode, err.Error())}
		}
		r = r.InMode(mode)
	}

	triggers, err := s.store.GetTriggers(ctx, req.TriggerIDs)
	if err != nil {
		return nil, fmt.Errorf("loading triggers: %w", err)
	}
	if len(triggers) == 0 {
		return nil, domain.ErrNotFound
	}

	expanded, err := r.ExpandTriggers(ctx, triggers, req.Events)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "expanded triggers",
		"requested", len(req.TriggerIDs),
		"found", len(triggers),
		"mode", r.Mode().String())

	return &ExpandResponse{Triggers: expanded}, nil
}

// ResolveUserMacrosRequest is a batch of user macro lookups.
type ResolveUserMacrosRequest struct {
	Elements []resolver.UserMacroRequest `json:"elements"`
}

// ResolveUserMacrosResponse holds one macro map per requested element.
type ResolveUserMacrosResponse struct {
	Elements []map[string]string `json:"elements"`
}

// ResolveUserMacros resolves user macros for each element in the scope of its hosts.
func (s *MacroService) ResolveUserMacros(ctx context.Context, req *ResolveUserMacrosRequest) (*ResolveUserMacrosResponse, error) {
	var errs validation.ValidationErrors
	if len(req.Elements) == 0 {
		errs.Add("elements", "", "at least one element is required")
	}
	for i, el := range req.Elements {
		for j, id := range el.HostIDs {
			if err := validation.ValidateID(id); err != nil {
				errs.Add(fmt.Sprintf("elements[%d].hostids[%d]", i, j), id, err.Error())
			}
		}
		if len(el.Macros) == 0 {
			errs.Add(fmt.Sprintf("elements[%d].macros", i), "", "at least one macro is required")
		}
	}
	if errs.HasErrors() {
		return nil, errs
	}

	results, err := s.resolver.ResolveUserMacros(ctx, req.Elements)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "resolved user macros", "elements", len(req.Elements))
	return &ResolveUserMacrosResponse{Elements: results}, nil
}

// ScanRequest asks which macros of a grammar appear in texts.
type ScanRequest struct {
	Grammar string   `json:"grammar"`
	Texts   []string `json:"texts"`
}

// ScanResponse lists the distinct macros found. For function grammars
// Positions holds the function positions each macro name was used with.
type ScanResponse struct {
	Grammar   string           `json:"grammar"`
	Macros    []string         `json:"macros"`
	Positions map[string][]int `json:"positions,omitempty"`
}

// Scan finds macros of one grammar in texts.
func (s *MacroService) Scan(req *ScanRequest) (*ScanResponse, error) {
	g, err := macro.ParseGrammar(req.Grammar)
	if err != nil {
		return nil, validation.ValidationErrors{validation.NewValidationError("grammar", req.Grammar, err.Error())}
	}

	resp := &ScanResponse{Grammar: g.String(), Macros: macro.FindMacros(g, req.Texts)}
	if resp.Macros == nil {
		resp.Macros = []string{}
	}

	merged := make(map[string]macro.Positions)
	for _, text := range req.Texts {
		for name, positions := range macro.FindFunctionMacros(g, text) {
			if merged[name] == nil {
				merged[name] = make(macro.Positions)
			}
			for pos := range positions {
				merged[name].Add(pos)
			}
		}
	}
	if len(merged) > 0 {
		resp.Positions = make(map[string][]int, len(merged))
		for name, positions := range merged {
			resp.Positions[name] = positions.Sorted()
		}
	}
	return resp, nil
}

// ImportState validates a configuration snapshot and writes it in one transaction.
func (s *MacroService) ImportState(ctx context.Context, state *domain.State) (*domain.ImportSummary, error) {
	if errs := validation.ValidateState(state); errs.HasErrors() {
		return nil, errs
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	summary, err := fixture.Apply(ctx, tx, state)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.ErrorContext(ctx, "rollback failed", "error", rbErr)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	summary.BatchID = uuid.New().String()
	s.logger.InfoContext(ctx, "imported state",
		"batch_id", summary.BatchID,
		"hosts", summary.Hosts,
		"triggers", summary.Triggers,
		"history", summary.History)
	return summary, nil
}
