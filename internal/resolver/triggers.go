package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/history"
	"github.com/bcnelson/trigger-macros/internal/macro"
)

// ExpandedTrigger is a trigger with its macros substituted.
type ExpandedTrigger struct {
	TriggerID   string            `json:"triggerid"`
	Expression  string            `json:"expression"`
	Description string            `json:"description"`
	Macros      map[string]string `json:"macros"`
}

// pass is the state of one ExpandTriggers call.
type pass struct {
	triggers   []*domain.Trigger
	functions  map[string]macro.FunctionMap
	hosts      FunctionMacros
	interfaces FunctionMacros
	items      FunctionMacros
	values     *Values
}

func newPass(triggers []*domain.Trigger) *pass {
	return &pass{
		triggers:   triggers,
		functions:  make(map[string]macro.FunctionMap, len(triggers)),
		hosts:      make(FunctionMacros),
		interfaces: make(FunctionMacros),
		items:      make(FunctionMacros),
		values:     NewValues(),
	}
}

// ExpandTriggers substitutes references, host, interface, item, trigger and
// user macros in the descriptions of triggers, and user macros in their
// expressions. events supplies event times for ModeEventDescription and may be nil.
func (r *Resolver) ExpandTriggers(ctx context.Context, triggers []*domain.Trigger, events map[string]domain.EventTime) ([]*ExpandedTrigger, error) {
	p := newPass(triggers)

	for _, t := range triggers {
		functions := macro.MapFunctions(t.Expression)
		p.functions[t.ID] = functions

		for ref, value := range macro.ResolveReferences(t.Expression, t.Description) {
			p.values.Set(t.ID, ref, value)
		}

		p.hosts.Bind(functions, macro.FindFunctionMacros(macro.GrammarHostFunction, t.Description))
		p.interfaces.Bind(functions, macro.FindFunctionMacros(macro.GrammarInterfaceFunction, t.Description))
		p.items.Bind(functions, macro.FindFunctionMacros(macro.GrammarItemFunction, t.Description))

		if len(macro.FindMacros(macro.GrammarTrigger, []string{t.Description})) > 0 {
			p.values.Set(t.ID, "{TRIGGER.ID}", t.ID)
		}
	}

	if err := r.ResolveHostMacros(ctx, p.hosts, p.values); err != nil {
		return nil, err
	}
	if err := r.ResolveInterfaceMacros(ctx, p.interfaces, p.values); err != nil {
		return nil, err
	}
	if err := r.ResolveItemMacros(ctx, p.items, events, p.values); err != nil {
		return nil, err
	}
	if err := r.resolveTriggerUserMacros(ctx, p); err != nil {
		return nil, err
	}

	result := make([]*ExpandedTrigger, 0, len(triggers))
	for _, t := range triggers {
		result = append(result, r.substitute(t, p.values))
	}

	r.logger.DebugContext(ctx, "expanded triggers", "triggers", len(triggers), "values", p.values.Len())
	return result, nil
}

// resolveTriggerUserMacros resolves the user macros of every trigger in the
// scope of the hosts behind the trigger's functions.
func (r *Resolver) resolveTriggerUserMacros(ctx context.Context, p *pass) error {
	type entry struct {
		triggerID string
		macros    []string
	}
	var entries []entry
	var functionIDs []string
	for _, t := range p.triggers {
		found := macro.FindUserMacros([]string{t.Description, t.Expression})
		if len(found) == 0 {
			continue
		}
		entries = append(entries, entry{triggerID: t.ID, macros: found})
		functionIDs = append(functionIDs, p.functions[t.ID].IDs()...)
	}
	if len(entries) == 0 {
		return nil
	}

	hostsByTrigger := make(map[string][]string)
	if len(functionIDs) > 0 {
		rows, err := r.config.ListFunctionHosts(ctx, functionIDs)
		if err != nil {
			return fmt.Errorf("failed to list function hosts: %w", err)
		}
		for _, row := range rows {
			hostsByTrigger[row.TriggerID] = append(hostsByTrigger[row.TriggerID], row.HostID)
		}
	}

	requests := make([]UserMacroRequest, len(entries))
	for i, e := range entries {
		requests[i] = UserMacroRequest{HostIDs: hostsByTrigger[e.triggerID], Macros: e.macros}
	}

	results, err := r.ResolveUserMacros(ctx, requests)
	if err != nil {
		return err
	}
	for i, e := range entries {
		for raw, value := range results[i] {
			p.values.Set(e.triggerID, raw, value)
		}
	}
	return nil
}

// substitute applies the values of one trigger. The description receives every
// value; the expression only receives user macros.
func (r *Resolver) substitute(t *domain.Trigger, values *Values) *ExpandedTrigger {
	resolved := values.Trigger(t.ID)

	if r.policy == UnresolvedPlaceholder {
		for _, g := range []macro.Grammar{macro.GrammarHostFunction, macro.GrammarInterfaceFunction, macro.GrammarItemFunction} {
			for _, m := range macro.FindMacros(g, []string{t.Description}) {
				if _, ok := resolved[m]; !ok {
					resolved[m] = history.UnresolvedString
				}
			}
		}
	}

	keys := make([]string, 0, len(resolved))
	for key := range resolved {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var descPairs, exprPairs []string
	for _, key := range keys {
		value := resolved[key]
		descPairs = append(descPairs, key, value)
		if strings.HasPrefix(key, "{$") {
			exprPairs = append(exprPairs, key, value)
		}
	}

	return &ExpandedTrigger{
		TriggerID:   t.ID,
		Expression:  replaceAll(t.Expression, exprPairs),
		Description: replaceAll(t.Description, descPairs),
		Macros:      resolved,
	}
}

func replaceAll(text string, pairs []string) string {
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
