package resolver_test

import (
	"testing"
	"time"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/history"
	"github.com/bcnelson/trigger-macros/internal/resolver"
)

func TestHostMacros(t *testing.T) {
	r := newResolver(newStore(t, twoHostState()))

	trigger := &domain.Trigger{
		ID:          "500",
		Expression:  "{12}>5 or {13}<10K",
		Description: "{HOST.NAME} / {HOST.HOST2} ({HOSTNAME}) id {HOST.ID1} {HOST.ID2}",
	}
	got := expandOne(t, r, trigger, nil)

	want := "Web server / db01 (web01) id 1 2"
	if got.Description != want {
		t.Errorf("Expected %q, got %q", want, got.Description)
	}
	if got.Macros["{HOST.HOST2}"] != "db01" {
		t.Errorf("Expected {HOST.HOST2} in macro map, got %v", got.Macros)
	}
}

func TestHostMacros_PositionWithoutFunction(t *testing.T) {
	r := newResolver(newStore(t, twoHostState()))

	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5 or {13}<10K", Description: "{HOST.NAME3}"}
	got := expandOne(t, r, trigger, nil)

	if got.Description != "{HOST.NAME3}" {
		t.Errorf("Expected unresolved macro kept verbatim, got %q", got.Description)
	}
}

func interfaceState(ifaces ...*domain.Interface) *domain.State {
	state := twoHostState()
	state.Interfaces = ifaces
	return state
}

func TestInterfaceMacros_AgentWinsRegardlessOfOrder(t *testing.T) {
	snmp := &domain.Interface{ID: "1", HostID: "1", Main: true, Type: domain.InterfaceTypeSNMP, UseIP: true, IP: "10.0.0.2", Port: "161"}
	agent := &domain.Interface{ID: "2", HostID: "1", Main: true, Type: domain.InterfaceTypeAgent, UseIP: true, IP: "10.0.0.1", Port: "10050"}

	orders := map[string][]*domain.Interface{
		"snmp first":  {snmp, agent},
		"agent first": {agent, snmp},
	}

	for name, ifaces := range orders {
		t.Run(name, func(t *testing.T) {
			r := newResolver(newStore(t, interfaceState(ifaces...)))
			trigger := &domain.Trigger{ID: "500", Expression: "{12}>5", Description: "{HOST.IP}:{HOST.PORT} {IPADDRESS1}"}

			got := expandOne(t, r, trigger, nil)
			if got.Description != "10.0.0.1:10050 10.0.0.1" {
				t.Errorf("Expected agent interface, got %q", got.Description)
			}
		})
	}
}

func TestInterfaceMacros_Priority(t *testing.T) {
	tests := []struct {
		name   string
		ifaces []*domain.Interface
		want   string
	}{
		{
			name: "snmp beats jmx",
			ifaces: []*domain.Interface{
				{ID: "1", HostID: "1", Main: true, Type: domain.InterfaceTypeJMX, IP: "jmx"},
				{ID: "2", HostID: "1", Main: true, Type: domain.InterfaceTypeSNMP, IP: "snmp"},
			},
			want: "snmp",
		},
		{
			name: "jmx beats ipmi",
			ifaces: []*domain.Interface{
				{ID: "1", HostID: "1", Main: true, Type: domain.InterfaceTypeIPMI, IP: "ipmi"},
				{ID: "2", HostID: "1", Main: true, Type: domain.InterfaceTypeJMX, IP: "jmx"},
			},
			want: "jmx",
		},
		{
			name: "tie keeps first",
			ifaces: []*domain.Interface{
				{ID: "1", HostID: "1", Main: true, Type: domain.InterfaceTypeAgent, IP: "first"},
				{ID: "2", HostID: "1", Main: true, Type: domain.InterfaceTypeAgent, IP: "second"},
			},
			want: "first",
		},
		{
			name: "non-main ignored",
			ifaces: []*domain.Interface{
				{ID: "1", HostID: "1", Main: false, Type: domain.InterfaceTypeAgent, IP: "secondary"},
				{ID: "2", HostID: "1", Main: true, Type: domain.InterfaceTypeIPMI, IP: "main"},
			},
			want: "main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(newStore(t, interfaceState(tt.ifaces...)))
			trigger := &domain.Trigger{ID: "500", Expression: "{12}>5", Description: "{HOST.IP}"}

			got := expandOne(t, r, trigger, nil)
			if got.Description != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.Description)
			}
		})
	}
}

func TestInterfaceMacros_PortOnlyWhenRequested(t *testing.T) {
	tests := []struct {
		description string
		want        string
		withPort    bool
	}{
		{description: "{HOST.IP} {HOST.CONN}", want: "10.0.0.1 10.0.0.1", withPort: false},
		{description: "{HOST.IP}:{HOST.PORT}", want: "10.0.0.1:10050", withPort: true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			counting := &countingStore{Storage: newStore(t, interfaceState(
				&domain.Interface{ID: "1", HostID: "1", Main: true, Type: domain.InterfaceTypeAgent, UseIP: true, IP: "10.0.0.1", Port: "10050"},
			))}
			r := newResolver(counting)

			trigger := &domain.Trigger{ID: "500", Expression: "{12}>5", Description: tt.description}
			got := expandOne(t, r, trigger, nil)

			if got.Description != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.Description)
			}
			if len(counting.interfacePorts) != 1 {
				t.Fatalf("Expected 1 interface lookup, got %d", len(counting.interfacePorts))
			}
			if counting.interfacePorts[0] != tt.withPort {
				t.Errorf("Expected withPort %v, got %v", tt.withPort, counting.interfacePorts[0])
			}
		})
	}
}

func TestInterfaceMacros_Conn(t *testing.T) {
	r := newResolver(newStore(t, interfaceState(
		&domain.Interface{ID: "1", HostID: "1", Main: true, Type: domain.InterfaceTypeAgent, UseIP: false, IP: "10.0.0.1", DNS: "web01.example.com"},
		&domain.Interface{ID: "2", HostID: "2", Main: true, Type: domain.InterfaceTypeAgent, UseIP: true, IP: "10.0.0.2", DNS: "db01.example.com"},
	)))

	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5 or {13}<10K", Description: "{HOST.CONN1} {HOST.CONN2} {HOST.DNS2}"}
	got := expandOne(t, r, trigger, nil)

	want := "web01.example.com 10.0.0.2 db01.example.com"
	if got.Description != want {
		t.Errorf("Expected %q, got %q", want, got.Description)
	}
}

func TestInterfaceMacros_NoInterface(t *testing.T) {
	r := newResolver(newStore(t, twoHostState()), resolver.WithUnresolvedPolicy(resolver.UnresolvedPlaceholder))

	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5", Description: "{HOST.IP}"}
	got := expandOne(t, r, trigger, nil)

	if got.Description != history.UnresolvedString {
		t.Errorf("Expected placeholder, got %q", got.Description)
	}
}

func historyState() *domain.State {
	state := twoHostState()
	state.History = []*domain.HistoryValue{
		{ItemID: "100", Clock: testNow.Unix() - 120, Value: "1.25"},
		{ItemID: "100", Clock: testNow.Unix() - 60, Value: "2.5"},
		{ItemID: "200", Clock: testNow.Unix() - 3*86400, Value: "7"},
	}
	return state
}

func TestItemMacros_LastValue(t *testing.T) {
	r := newResolver(newStore(t, historyState()))

	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5 or {13}<10K", Description: "{ITEM.LASTVALUE} {ITEM.VALUE1}"}
	got := expandOne(t, r, trigger, nil)

	if got.Description != "2.5 2.5" {
		t.Errorf("Expected latest value, got %q", got.Description)
	}
}

func TestItemMacros_NoHistoryIsUnknown(t *testing.T) {
	// Item 200 only has a value older than the history period.
	r := newResolver(newStore(t, historyState()))

	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5 or {13}<10K", Description: "{ITEM.LASTVALUE2}"}
	got := expandOne(t, r, trigger, nil)

	if got.Description != history.UnresolvedString {
		t.Errorf("Expected %q, got %q", history.UnresolvedString, got.Description)
	}
	if v := got.Macros["{ITEM.LASTVALUE2}"]; v != history.UnresolvedString {
		t.Errorf("Expected placeholder in macro map, got %q", v)
	}
}

func TestItemMacros_HistoryPeriod(t *testing.T) {
	r := newResolver(newStore(t, historyState()), resolver.WithHistoryPeriod(7*24*time.Hour))

	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5 or {13}<10K", Description: "{ITEM.LASTVALUE2}"}
	got := expandOne(t, r, trigger, nil)

	if got.Description != "7" {
		t.Errorf("Expected 7 with a week long period, got %q", got.Description)
	}
}

func TestItemMacros_EventValue(t *testing.T) {
	store := newStore(t, historyState())
	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5", Description: "{ITEM.VALUE} now {ITEM.LASTVALUE}"}

	tests := []struct {
		name  string
		event domain.EventTime
		want  string
	}{
		{"exact timestamp", domain.EventTime{Clock: testNow.Unix() - 120}, "1.25 now 2.5"},
		{"between values", domain.EventTime{Clock: testNow.Unix() - 90}, "1.25 now 2.5"},
		{"before any value", domain.EventTime{Clock: testNow.Unix() - 1000}, history.UnresolvedString + " now 2.5"},
	}

	r := newResolver(store, resolver.WithMode(resolver.ModeEventDescription))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandOne(t, r, trigger, map[string]domain.EventTime{"500": tt.event})
			if got.Description != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.Description)
			}
		})
	}

	// Without an event time ITEM.VALUE falls back to the latest value.
	got := expandOne(t, r, trigger, nil)
	if got.Description != "2.5 now 2.5" {
		t.Errorf("Expected latest value without event, got %q", got.Description)
	}
}

func TestItemMacros_UnitsAndValueMap(t *testing.T) {
	state := twoHostState()
	state.Items[0].Units = "B"
	state.Items[1].ValueMapID = "9"
	state.ValueMappings = []*domain.ValueMapping{{ValueMapID: "9", Value: "1", NewValue: "Up"}}
	state.History = []*domain.HistoryValue{
		{ItemID: "100", Clock: testNow.Unix() - 10, Value: "2048"},
		{ItemID: "200", Clock: testNow.Unix() - 10, Value: "1"},
	}
	r := newResolver(newStore(t, state))

	trigger := &domain.Trigger{ID: "500", Expression: "{12}>5 or {13}<10K", Description: "{ITEM.LASTVALUE1} {ITEM.LASTVALUE2}"}
	got := expandOne(t, r, trigger, nil)

	if got.Description != "2.0 KiB Up (1)" {
		t.Errorf("Expected formatted values, got %q", got.Description)
	}
}
