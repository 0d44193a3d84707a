// Package validation checks identifiers, macro names and imported configuration
// before they reach the store.
package validation

import (
	"fmt"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/macro"
)

// MaxIDLength caps identifier length.
const MaxIDLength = 64

// isAlpha returns true if the byte is an ASCII letter.
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// isAlphaNum returns true if the byte is an ASCII letter or digit.
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isNum(b)
}

// ValidateID validates a row identifier.
// Identifiers are non-empty and contain only letters, numbers, hyphens or underscores.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("id must be at most %d characters", MaxIDLength)
	}
	for _, b := range []byte(id) {
		if !isAlphaNum(b) && b != '-' && b != '_' {
			return fmt.Errorf("ids can only contain letters, numbers, hyphens or underscores")
		}
	}
	return nil
}

// ValidateIDs validates every id of a request list.
func ValidateIDs(field string, ids []string) ValidationErrors {
	var errs ValidationErrors
	if len(ids) == 0 {
		errs.Add(field, "", "at least one id is required")
		return errs
	}
	for i, id := range ids {
		if err := ValidateID(id); err != nil {
			errs.Add(fmt.Sprintf("%s[%d]", field, i), id, err.Error())
		}
	}
	return errs
}

// ValidateUserMacro validates a user macro such as {$PORT} or {$PORT:"ctx"}.
func ValidateUserMacro(name string) error {
	if _, err := macro.ParseUserMacro(name); err != nil {
		return fmt.Errorf("invalid user macro: %w", err)
	}
	return nil
}

// ValidateGrammar validates a macro grammar name.
func ValidateGrammar(name string) error {
	_, err := macro.ParseGrammar(name)
	return err
}

// ValidateInterfaceType validates an interface type.
func ValidateInterfaceType(t domain.InterfaceType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown interface type %d", int(t))
	}
	return nil
}

// ValidateValueType validates an item value type.
func ValidateValueType(v domain.ValueType) error {
	if !v.Valid() {
		return fmt.Errorf("unknown value type %d", int(v))
	}
	return nil
}

// ValidateFunctionID validates a function id. Expressions reference functions
// as {<digits>}, so function ids must be digit strings.
func ValidateFunctionID(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	for _, b := range []byte(id) {
		if !isNum(b) {
			return fmt.Errorf("function ids can only contain digits")
		}
	}
	return nil
}

// idTracker reports ids seen twice within one snapshot section.
type idTracker map[string]bool

func (t idTracker) add(errs *ValidationErrors, field, id string) {
	if id == "" {
		return
	}
	if t[id] {
		errs.Add(field, id, "duplicate id")
		return
	}
	t[id] = true
}

// ValidateState checks a configuration snapshot before import.
// References are checked against rows of the same snapshot only.
func ValidateState(state *domain.State) ValidationErrors {
	var errs ValidationErrors
	check := func(field, value string, err error) {
		if err != nil {
			errs.Add(field, value, err.Error())
		}
	}

	hosts := make(idTracker)
	for i, h := range state.Hosts {
		field := FieldPath("hosts", i, "hostid")
		check(field, h.ID, ValidateID(h.ID))
		hosts.add(&errs, field, h.ID)
		if h.Host == "" {
			errs.Add(FieldPath("hosts", i, "host"), "", "host must not be empty")
		}
	}
	for i, h := range state.Hosts {
		for j, templateID := range h.TemplateIDs {
			field := FieldPath("hosts", i, fmt.Sprintf("templateids[%d]", j))
			if templateID == h.ID {
				errs.Add(field, templateID, "host cannot link itself")
			} else if !hosts[templateID] {
				errs.Add(field, templateID, "unknown template")
			}
		}
	}

	interfaces := make(idTracker)
	for i, iface := range state.Interfaces {
		field := FieldPath("interfaces", i, "interfaceid")
		check(field, iface.ID, ValidateID(iface.ID))
		interfaces.add(&errs, field, iface.ID)
		check(FieldPath("interfaces", i, "type"), fmt.Sprint(int(iface.Type)), ValidateInterfaceType(iface.Type))
		if !hosts[iface.HostID] {
			errs.Add(FieldPath("interfaces", i, "hostid"), iface.HostID, "unknown host")
		}
	}

	items := make(idTracker)
	for i, item := range state.Items {
		field := FieldPath("items", i, "itemid")
		check(field, item.ID, ValidateID(item.ID))
		items.add(&errs, field, item.ID)
		check(FieldPath("items", i, "value_type"), fmt.Sprint(int(item.ValueType)), ValidateValueType(item.ValueType))
		if !hosts[item.HostID] {
			errs.Add(FieldPath("items", i, "hostid"), item.HostID, "unknown host")
		}
	}

	triggers := make(idTracker)
	for i, t := range state.Triggers {
		field := FieldPath("triggers", i, "triggerid")
		check(field, t.ID, ValidateID(t.ID))
		triggers.add(&errs, field, t.ID)
		if t.Expression == "" {
			errs.Add(FieldPath("triggers", i, "expression"), "", "expression must not be empty")
		}
	}

	functions := make(idTracker)
	functionTrigger := make(map[string]string)
	for i, f := range state.Functions {
		field := FieldPath("functions", i, "functionid")
		check(field, f.ID, ValidateFunctionID(f.ID))
		functions.add(&errs, field, f.ID)
		functionTrigger[f.ID] = f.TriggerID
		if !triggers[f.TriggerID] {
			errs.Add(FieldPath("functions", i, "triggerid"), f.TriggerID, "unknown trigger")
		}
		if !items[f.ItemID] {
			errs.Add(FieldPath("functions", i, "itemid"), f.ItemID, "unknown item")
		}
	}

	// Every trigger must reach its items through at least one of its own functions.
	for i, t := range state.Triggers {
		if t.Expression == "" {
			continue
		}
		bound := false
		for _, functionID := range macro.MapFunctions(t.Expression).IDs() {
			if functionTrigger[functionID] == t.ID {
				bound = true
				break
			}
		}
		if !bound {
			errs.Add(FieldPath("triggers", i, "expression"), t.Expression, "expression must reference a function of this trigger")
		}
	}

	hostMacros := make(idTracker)
	for i, m := range state.HostMacros {
		field := FieldPath("hostmacros", i, "hostmacroid")
		check(field, m.ID, ValidateID(m.ID))
		hostMacros.add(&errs, field, m.ID)
		check(FieldPath("hostmacros", i, "macro"), m.Macro, ValidateUserMacro(m.Macro))
		if !hosts[m.HostID] {
			errs.Add(FieldPath("hostmacros", i, "hostid"), m.HostID, "unknown host")
		}
	}

	globalMacros := make(idTracker)
	for i, m := range state.GlobalMacros {
		field := FieldPath("globalmacros", i, "globalmacroid")
		check(field, m.ID, ValidateID(m.ID))
		globalMacros.add(&errs, field, m.ID)
		check(FieldPath("globalmacros", i, "macro"), m.Macro, ValidateUserMacro(m.Macro))
	}

	for i, v := range state.History {
		if !items[v.ItemID] {
			errs.Add(FieldPath("history", i, "itemid"), v.ItemID, "unknown item")
		}
	}

	return errs
}
