package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/bcnelson/trigger-macros/internal/domain"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"numeric", "10084", false},
		{"alphanumeric", "H1", false},
		{"with hyphen", "web-01", false},
		{"with underscore", "web_01", false},
		{"empty", "", true},
		{"contains space", "web 01", true},
		{"contains brace", "{12}", true},
		{"too long", strings.Repeat("1", MaxIDLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIDs(t *testing.T) {
	if errs := ValidateIDs("triggerids", nil); !errs.HasErrors() {
		t.Error("Expected error for empty id list")
	}

	errs := ValidateIDs("triggerids", []string{"1", "bad id", "3"})
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if errs[0].Field != "triggerids[1]" {
		t.Errorf("Expected field triggerids[1], got %s", errs[0].Field)
	}
}

func TestValidateUserMacro(t *testing.T) {
	tests := []struct {
		name    string
		macro   string
		wantErr bool
	}{
		{"simple", "{$PORT}", false},
		{"with dot", "{$SNMP.COMMUNITY}", false},
		{"unquoted context", "{$PORT:eth0}", false},
		{"quoted context", `{$PORT:"eth0"}`, false},
		{"escaped quote", `{$PORT:"a\"b"}`, false},
		{"missing dollar", "{PORT}", true},
		{"lowercase", "{$port}", true},
		{"unterminated context", `{$PORT:"eth0}`, true},
		{"trailing text", "{$PORT} ", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserMacro(tt.macro)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserMacro(%q) error = %v, wantErr %v", tt.macro, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGrammar(t *testing.T) {
	if err := ValidateGrammar("item_function"); err != nil {
		t.Errorf("Expected item_function to be valid, got %v", err)
	}
	if err := ValidateGrammar("nope"); err == nil {
		t.Error("Expected error for unknown grammar")
	}
}

func TestValidateTypes(t *testing.T) {
	if err := ValidateInterfaceType(domain.InterfaceTypeJMX); err != nil {
		t.Errorf("Expected JMX to be valid, got %v", err)
	}
	if err := ValidateInterfaceType(domain.InterfaceType(9)); err == nil {
		t.Error("Expected error for interface type 9")
	}
	if err := ValidateValueType(domain.ValueTypeText); err != nil {
		t.Errorf("Expected text to be valid, got %v", err)
	}
	if err := ValidateValueType(domain.ValueType(-1)); err == nil {
		t.Error("Expected error for value type -1")
	}
}

func TestValidateState(t *testing.T) {
	valid := &domain.State{
		Hosts: []*domain.Host{
			{ID: "10", Host: "tmpl", IsTemplate: true},
			{ID: "1", Host: "web", TemplateIDs: []string{"10"}},
		},
		Interfaces: []*domain.Interface{{ID: "1", HostID: "1", Main: true, Type: domain.InterfaceTypeAgent}},
		Items:      []*domain.Item{{ID: "100", HostID: "1", Key: "cpu", ValueType: domain.ValueTypeFloat}},
		Triggers:   []*domain.Trigger{{ID: "500", Expression: "{12}>1"}},
		Functions:  []*domain.Function{{ID: "12", TriggerID: "500", ItemID: "100", Name: "last"}},
		HostMacros: []*domain.HostMacro{{ID: "1", HostID: "10", Macro: "{$PORT}", Value: "10050"}},
		GlobalMacros: []*domain.GlobalMacro{
			{ID: "1", Macro: `{$PORT:"db"}`, Value: "5432"},
		},
		History: []*domain.HistoryValue{{ItemID: "100", Clock: 1, Value: "1"}},
	}

	if errs := ValidateState(valid); errs.HasErrors() {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	broken := &domain.State{
		Hosts: []*domain.Host{
			{ID: "1", Host: "web", TemplateIDs: []string{"99", "1"}},
		},
		Interfaces: []*domain.Interface{{ID: "1", HostID: "1", Type: domain.InterfaceType(7)}},
		Functions:  []*domain.Function{{ID: "12", TriggerID: "500", ItemID: "100"}},
		HostMacros: []*domain.HostMacro{{ID: "1", HostID: "2", Macro: "{PORT}"}},
	}

	errs := ValidateState(broken)
	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}

	for _, want := range []string{
		"hosts[0].templateids[0]",
		"hosts[0].templateids[1]",
		"interfaces[0].type",
		"functions[0].triggerid",
		"functions[0].itemid",
		"hostmacros[0].macro",
		"hostmacros[0].hostid",
	} {
		if !fields[want] {
			t.Errorf("Expected error for %s, got %v", want, errs)
		}
	}
}

func TestValidateState_IDs(t *testing.T) {
	state := &domain.State{
		Hosts:     []*domain.Host{{ID: "1", Host: "web"}, {ID: "1", Host: "db"}},
		Items:     []*domain.Item{{ID: "100", HostID: "1", Key: "cpu"}},
		Triggers:  []*domain.Trigger{{ID: "500", Expression: "{f1}>0"}},
		Functions: []*domain.Function{{ID: "f1", TriggerID: "500", ItemID: "100", Name: "last"}},
		HostMacros: []*domain.HostMacro{
			{HostID: "1", Macro: "{$A}"},
			{ID: "7", HostID: "1", Macro: "{$B}"},
			{ID: "7", HostID: "1", Macro: "{$C}"},
		},
		GlobalMacros: []*domain.GlobalMacro{
			{Macro: "{$A}"},
			{ID: "3", Macro: "{$B}"},
			{ID: "3", Macro: "{$C}"},
		},
	}

	fields := make(map[string]bool)
	for _, f := range ValidateState(state).Fields() {
		fields[f] = true
	}

	for _, want := range []string{
		"hosts[1].hostid",
		"functions[0].functionid",
		"triggers[0].expression",
		"hostmacros[0].hostmacroid",
		"hostmacros[2].hostmacroid",
		"globalmacros[0].globalmacroid",
		"globalmacros[2].globalmacroid",
	} {
		if !fields[want] {
			t.Errorf("Expected error for %s, got %v", want, fields)
		}
	}
	if fields["hostmacros[1].hostmacroid"] || fields["globalmacros[1].globalmacroid"] {
		t.Errorf("Expected only the second use of an id to be reported, got %v", fields)
	}
}

func TestValidateState_ExpressionFunctions(t *testing.T) {
	state := &domain.State{
		Hosts: []*domain.Host{{ID: "1", Host: "web"}},
		Items: []*domain.Item{{ID: "100", HostID: "1", Key: "cpu"}},
		Triggers: []*domain.Trigger{
			{ID: "500", Expression: "{12}>0"},
			{ID: "501", Expression: "{12}>0 or {13}<1"},
			{ID: "502", Expression: "1>0"},
			{ID: "503", Expression: "{13}>0"},
		},
		Functions: []*domain.Function{
			{ID: "12", TriggerID: "500", ItemID: "100", Name: "last"},
			{ID: "13", TriggerID: "501", ItemID: "100", Name: "min"},
		},
	}

	errs := ValidateState(state)
	got := errs.Fields()
	want := []string{"triggers[2].expression", "triggers[3].expression"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, errs)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %s, got %s", want[i], got[i])
		}
	}
}

func TestValidateFunctionID(t *testing.T) {
	for _, id := range []string{"12", "0007"} {
		if err := ValidateFunctionID(id); err != nil {
			t.Errorf("Expected %q to be valid, got %v", id, err)
		}
	}
	for _, id := range []string{"", "f1", "12a", "1 2"} {
		if err := ValidateFunctionID(id); err == nil {
			t.Errorf("Expected error for %q", id)
		}
	}
}

func TestValidationErrors_Is(t *testing.T) {
	var errs ValidationErrors
	errs.Add(FieldPath("hosts", 0, "hostid"), "", "id must not be empty")

	if !errors.Is(errs, domain.ErrInvalidInput) {
		t.Error("Expected ValidationErrors to match ErrInvalidInput")
	}
	if errs[0].Field != "hosts[0].hostid" {
		t.Errorf("Expected hosts[0].hostid, got %s", errs[0].Field)
	}
}
