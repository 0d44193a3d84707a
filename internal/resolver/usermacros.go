package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/facette/natsort"

	"github.com/bcnelson/trigger-macros/internal/macro"
)

// UserMacroRequest asks for user macros in the scope of a set of hosts.
type UserMacroRequest struct {
	HostIDs []string `json:"hostids"`
	Macros  []string `json:"macros"`
}

// definition is a parsed macro definition with its value.
type definition struct {
	macro.UserMacro
	value string
}

type matchKind int

const (
	matchNone matchKind = iota
	// matchCandidate is a context-less definition for a macro asked with a context.
	matchCandidate
	matchExact
)

// match scans defs for m. An exact context match returns immediately; otherwise
// the first context-less definition of the same name is reported as a candidate.
func match(defs []definition, m macro.UserMacro) (string, matchKind) {
	value, kind := "", matchNone
	for _, d := range defs {
		if d.Name != m.Name {
			continue
		}
		if d.SameContext(m) {
			return d.value, matchExact
		}
		if !d.HasContext() && kind == matchNone {
			value, kind = d.value, matchCandidate
		}
	}
	return value, kind
}

// scopeTable is the prefetched host/template graph of one request.
type scopeTable struct {
	templates map[string][]string
	// hasEntries marks hosts with at least one macro row, parseable or not.
	hasEntries map[string]bool
	defs       map[string][]definition
}

// ResolveUserMacros resolves every requested macro in the scope of its hosts,
// their templates and finally the global macros. The result holds one map per
// request, macro text -> value; unresolved macros map to their own text.
func (r *Resolver) ResolveUserMacros(ctx context.Context, requests []UserMacroRequest) ([]map[string]string, error) {
	var allHosts []string
	for _, req := range requests {
		allHosts = append(allHosts, req.HostIDs...)
	}

	table, err := r.fetchScopes(ctx, allHosts)
	if err != nil {
		return nil, err
	}

	type pending struct {
		index int
		macro macro.UserMacro
	}
	var unresolved []pending

	results := make([]map[string]string, len(requests))
	for i, req := range requests {
		results[i] = make(map[string]string, len(req.Macros))
		hostIDs := naturalUnique(req.HostIDs)

		for _, raw := range req.Macros {
			m, err := macro.ParseUserMacro(raw)
			if err != nil {
				r.logger.DebugContext(ctx, "skipping malformed user macro", "macro", raw, "error", err)
				results[i][raw] = raw
				continue
			}
			if value, ok := table.lookup(hostIDs, m); ok {
				results[i][raw] = value
				continue
			}
			unresolved = append(unresolved, pending{index: i, macro: m})
		}
	}

	if len(unresolved) == 0 {
		return results, nil
	}

	prefixSet := make(map[string]bool)
	var prefixes []string
	for _, p := range unresolved {
		for _, prefix := range p.macro.SearchPrefixes() {
			if !prefixSet[prefix] {
				prefixSet[prefix] = true
				prefixes = append(prefixes, prefix)
			}
		}
	}
	sort.Strings(prefixes)

	globals, err := r.config.SearchGlobalMacros(ctx, prefixes)
	if err != nil {
		return nil, fmt.Errorf("failed to search global macros: %w", err)
	}
	defs := make([]definition, 0, len(globals))
	for _, g := range globals {
		parsed, err := macro.ParseUserMacro(g.Macro)
		if err != nil {
			continue
		}
		defs = append(defs, definition{UserMacro: parsed, value: g.Value})
	}

	for _, p := range unresolved {
		value, kind := match(defs, p.macro)
		if kind == matchNone {
			value = p.macro.Raw
		}
		results[p.index][p.macro.Raw] = value
	}
	return results, nil
}

// fetchScopes loads hosts and then each newly discovered layer of templates,
// one store round trip per layer. No id is fetched twice.
func (r *Resolver) fetchScopes(ctx context.Context, hostIDs []string) (*scopeTable, error) {
	table := &scopeTable{
		templates:  make(map[string][]string),
		hasEntries: make(map[string]bool),
		defs:       make(map[string][]definition),
	}

	fetched := make(map[string]bool)
	next := naturalUnique(hostIDs)
	for depth := 0; len(next) > 0; depth++ {
		for _, id := range next {
			fetched[id] = true
		}

		scopes, err := r.config.ListHostScopes(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("failed to list host macros: %w", err)
		}
		r.logger.DebugContext(ctx, "fetched macro scopes", "depth", depth, "requested", len(next), "found", len(scopes))

		var discovered []string
		for _, scope := range scopes {
			table.templates[scope.HostID] = scope.TemplateIDs
			for _, hm := range scope.Macros {
				table.hasEntries[scope.HostID] = true
				parsed, err := macro.ParseUserMacro(hm.Macro)
				if err != nil {
					continue
				}
				table.defs[scope.HostID] = append(table.defs[scope.HostID], definition{UserMacro: parsed, value: hm.Value})
			}
			for _, templateID := range scope.TemplateIDs {
				if !fetched[templateID] {
					fetched[templateID] = true
					discovered = append(discovered, templateID)
				}
			}
		}
		next = discovered
	}
	return table, nil
}

// lookup walks from the hosts up through their templates, one level at a time.
// At each level the first host, in natural order, that defines any macro
// decides: an exact match wins, a context-less candidate is remembered while
// templates are searched for an exact context match, and anything else stops
// the walk.
func (t *scopeTable) lookup(hostIDs []string, m macro.UserMacro) (string, bool) {
	visited := make(map[string]bool)
	fallback, haveFallback := "", false

	frontier := hostIDs
	for len(frontier) > 0 {
		for _, id := range frontier {
			visited[id] = true
		}

		if id, ok := t.firstWithEntries(frontier); ok {
			value, kind := match(t.defs[id], m)
			switch kind {
			case matchExact:
				return value, true
			case matchCandidate:
				if !haveFallback {
					fallback, haveFallback = value, true
				}
			case matchNone:
				return fallback, haveFallback
			}
		}

		var parents []string
		for _, id := range frontier {
			for _, templateID := range t.templates[id] {
				if !visited[templateID] {
					parents = append(parents, templateID)
				}
			}
		}
		frontier = naturalUnique(parents)
	}
	return fallback, haveFallback
}

func (t *scopeTable) firstWithEntries(ids []string) (string, bool) {
	for _, id := range ids {
		if t.hasEntries[id] {
			return id, true
		}
	}
	return "", false
}

// naturalUnique returns the distinct ids in natural order.
func naturalUnique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	natsort.Sort(out)
	return out
}
