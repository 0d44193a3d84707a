package resolver

import (
	"context"
	"fmt"

	"github.com/bcnelson/trigger-macros/internal/domain"
)

// ResolveInterfaceMacros answers interface macros from the main interface of
// each function's host. When a host has several main interfaces the one with
// the highest type priority wins; on a tie the first row is kept.
func (r *Resolver) ResolveInterfaceMacros(ctx context.Context, macros FunctionMacros, values *Values) error {
	if len(macros) == 0 {
		return nil
	}

	withPort := false
	for _, names := range macros {
		if _, ok := names["HOST.PORT"]; ok {
			withPort = true
			break
		}
	}

	rows, err := r.config.ListFunctionInterfaces(ctx, macros.FunctionIDs(), withPort)
	if err != nil {
		return fmt.Errorf("failed to list function interfaces: %w", err)
	}

	best := make(map[string]*domain.FunctionInterface)
	var order []string
	for _, row := range rows {
		current, ok := best[row.FunctionID]
		if !ok {
			order = append(order, row.FunctionID)
		} else if current.Type.Priority() >= row.Type.Priority() {
			continue
		}
		best[row.FunctionID] = row
	}

	for _, functionID := range order {
		row := best[functionID]
		for name, positions := range macros[functionID] {
			m, ok := parseInterfaceMacro(name)
			if !ok {
				continue
			}
			values.setPositions(row.TriggerID, name, positions, m.value(row))
		}
	}
	return nil
}
