package resolver

import (
	"context"
	"fmt"
)

// ResolveHostMacros answers host macros with one batch lookup.
func (r *Resolver) ResolveHostMacros(ctx context.Context, macros FunctionMacros, values *Values) error {
	if len(macros) == 0 {
		return nil
	}

	rows, err := r.config.ListFunctionHosts(ctx, macros.FunctionIDs())
	if err != nil {
		return fmt.Errorf("failed to list function hosts: %w", err)
	}

	for _, row := range rows {
		for name, positions := range macros[row.FunctionID] {
			m, ok := parseHostMacro(name)
			if !ok {
				continue
			}
			values.setPositions(row.TriggerID, name, positions, m.value(row))
		}
	}
	return nil
}
