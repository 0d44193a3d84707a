package resolver

import (
	"sort"

	"github.com/bcnelson/trigger-macros/internal/macro"
)

// FunctionMacros describes what has to be resolved per function:
// function id -> macro name -> function positions the name was used with.
type FunctionMacros map[string]map[string]macro.Positions

// Add records that name was used at pos and that pos is bound to functionID.
func (f FunctionMacros) Add(functionID, name string, pos int) {
	if f[functionID] == nil {
		f[functionID] = make(map[string]macro.Positions)
	}
	if f[functionID][name] == nil {
		f[functionID][name] = make(macro.Positions)
	}
	f[functionID][name].Add(pos)
}

// Bind records every occurrence in found against the functions of one expression.
// Occurrences whose position has no function are dropped.
func (f FunctionMacros) Bind(functions macro.FunctionMap, found map[string]macro.Positions) {
	for name, positions := range found {
		for pos := range positions {
			if functionID, ok := functions[pos]; ok {
				f.Add(functionID, name, pos)
			}
		}
	}
}

// FunctionIDs returns the function ids in ascending order.
func (f FunctionMacros) FunctionIDs() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Values accumulates resolved macro values per trigger.
// A key, once set, keeps its first value for the rest of the pass.
type Values struct {
	byTrigger map[string]map[string]string
}

// NewValues returns an empty accumulator.
func NewValues() *Values {
	return &Values{byTrigger: make(map[string]map[string]string)}
}

// Set stores value under (triggerID, key) unless a value is already present.
// It reports whether the value was stored.
func (v *Values) Set(triggerID, key, value string) bool {
	m := v.byTrigger[triggerID]
	if m == nil {
		m = make(map[string]string)
		v.byTrigger[triggerID] = m
	}
	if _, exists := m[key]; exists {
		return false
	}
	m[key] = value
	return true
}

// Get returns the value stored under (triggerID, key).
func (v *Values) Get(triggerID, key string) (string, bool) {
	value, ok := v.byTrigger[triggerID][key]
	return value, ok
}

// Trigger returns a copy of all values of one trigger.
func (v *Values) Trigger(triggerID string) map[string]string {
	out := make(map[string]string, len(v.byTrigger[triggerID]))
	for k, val := range v.byTrigger[triggerID] {
		out[k] = val
	}
	return out
}

// Len returns the number of stored values across all triggers.
func (v *Values) Len() int {
	n := 0
	for _, m := range v.byTrigger {
		n += len(m)
	}
	return n
}

// setPositions stores value for every rendered form of name.
func (v *Values) setPositions(triggerID, name string, positions macro.Positions, value string) {
	for _, pos := range positions.Sorted() {
		v.Set(triggerID, macro.Render(name, pos), value)
	}
}
