package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/history"
)

// ResolveItemMacros answers value macros from item history. In
// ModeEventDescription ITEM.VALUE is read at the trigger's event time from
// events; a trigger without an event time falls back to the latest value.
func (r *Resolver) ResolveItemMacros(ctx context.Context, macros FunctionMacros, events map[string]domain.EventTime, values *Values) error {
	if len(macros) == 0 {
		return nil
	}

	rows, err := r.config.ListFunctionItems(ctx, macros.FunctionIDs())
	if err != nil {
		return fmt.Errorf("failed to list function items: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	var itemIDs, valueMapIDs []string
	seenItems := make(map[string]bool)
	seenMaps := make(map[string]bool)
	for _, row := range rows {
		if !seenItems[row.ItemID] {
			seenItems[row.ItemID] = true
			itemIDs = append(itemIDs, row.ItemID)
		}
		if row.ValueMapID != "" && !seenMaps[row.ValueMapID] {
			seenMaps[row.ValueMapID] = true
			valueMapIDs = append(valueMapIDs, row.ValueMapID)
		}
	}

	since := r.now().Add(-r.historyPeriod)
	last, err := r.history.LastHistory(ctx, itemIDs, 1, since)
	if err != nil {
		return fmt.Errorf("failed to read last history: %w", err)
	}

	mappings := make(map[string]map[string]string)
	if len(valueMapIDs) > 0 {
		list, err := r.config.ListValueMappings(ctx, valueMapIDs)
		if err != nil {
			return fmt.Errorf("failed to list value mappings: %w", err)
		}
		for _, m := range list {
			if mappings[m.ValueMapID] == nil {
				mappings[m.ValueMapID] = make(map[string]string)
			}
			mappings[m.ValueMapID][m.Value] = m.NewValue
		}
	}

	for _, row := range rows {
		meta := history.Meta{
			ValueType: row.ValueType,
			Units:     row.Units,
			Mapping:   mappings[row.ValueMapID],
		}

		var lastValue *string
		if vals := last[row.ItemID]; len(vals) > 0 {
			lastValue = &vals[0].Value
		}

		for name, positions := range macros[row.FunctionID] {
			m, ok := parseItemMacro(name)
			if !ok {
				continue
			}

			value := lastValue
			if m == ItemMacroValue && r.mode == ModeEventDescription {
				if event, ok := events[row.TriggerID]; ok {
					value, err = r.valueAt(ctx, row.ItemID, event)
					if err != nil {
						return err
					}
				}
			}
			values.setPositions(row.TriggerID, name, positions, r.formatter.Format(value, meta))
		}
	}
	return nil
}

func (r *Resolver) valueAt(ctx context.Context, itemID string, event domain.EventTime) (*string, error) {
	v, err := r.history.HistoryAt(ctx, itemID, event.Clock, event.NS)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history of item %s: %w", itemID, err)
	}
	return &v.Value, nil
}
