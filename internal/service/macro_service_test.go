package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/resolver"
	"github.com/bcnelson/trigger-macros/internal/service"
	"github.com/bcnelson/trigger-macros/internal/storage"
	"github.com/bcnelson/trigger-macros/internal/storage/memory"
	sqlstore "github.com/bcnelson/trigger-macros/internal/storage/sql"
	"github.com/bcnelson/trigger-macros/internal/testutil"
	"github.com/bcnelson/trigger-macros/internal/validation"
)

var testNow = time.Unix(1700000000, 0)

func sampleState() *domain.State {
	return &domain.State{
		Hosts: []*domain.Host{
			{ID: "10", Host: "Template OS", Name: "Template OS", IsTemplate: true},
			{ID: "1", Host: "web01", Name: "Web server", TemplateIDs: []string{"10"}},
		},
		Interfaces: []*domain.Interface{
			{ID: "30", HostID: "1", Main: true, Type: domain.InterfaceTypeAgent, UseIP: true, IP: "10.0.0.1", Port: "10050"},
		},
		Items: []*domain.Item{
			{ID: "100", HostID: "1", Key: "system.cpu.load", ValueType: domain.ValueTypeFloat},
		},
		Triggers: []*domain.Trigger{
			{ID: "500", Expression: "{12}>{$LOAD}", Description: "High load on {HOST.NAME}: {ITEM.LASTVALUE} > {$LOAD}"},
			{ID: "501", Expression: "{13}>0", Description: "Load was {ITEM.VALUE}"},
		},
		Functions: []*domain.Function{
			{ID: "12", TriggerID: "500", ItemID: "100", Name: "last"},
			{ID: "13", TriggerID: "501", ItemID: "100", Name: "last"},
		},
		HostMacros: []*domain.HostMacro{
			{ID: "900", HostID: "10", Macro: "{$LOAD}", Value: "5"},
		},
		GlobalMacros: []*domain.GlobalMacro{
			{ID: "950", Macro: "{$ENV}", Value: "prod"},
		},
		History: []*domain.HistoryValue{
			{ItemID: "100", Clock: testNow.Unix() - 60, Value: "7.5"},
			{ItemID: "100", Clock: testNow.Unix() - 600, Value: "1.5"},
		},
	}
}

func newService(t *testing.T) *service.MacroService {
	t.Helper()
	store := memory.New()
	r := resolver.New(store, store, resolver.WithClock(func() time.Time { return testNow }))
	svc := service.NewMacroService(store, r, testutil.NewTestLogger(t))
	if _, err := svc.ImportState(context.Background(), sampleState()); err != nil {
		t.Fatalf("Failed to import state: %v", err)
	}
	return svc
}

func TestImportState(t *testing.T) {
	store := memory.New()
	svc := service.NewMacroService(store, resolver.New(store, store), nil)

	summary, err := svc.ImportState(context.Background(), sampleState())
	if err != nil {
		t.Fatalf("ImportState failed: %v", err)
	}
	if summary.BatchID == "" {
		t.Error("Expected batch id to be set")
	}
	if summary.Hosts != 2 || summary.Triggers != 2 || summary.TemplateLinks != 1 || summary.History != 2 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestImportState_Invalid(t *testing.T) {
	store := memory.New()
	svc := service.NewMacroService(store, resolver.New(store, store), nil)

	state := sampleState()
	state.Functions[0].ItemID = "404"

	_, err := svc.ImportState(context.Background(), state)
	var verrs validation.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected validation errors, got %v", err)
	}
	if verrs[0].Field != "functions[0].itemid" {
		t.Errorf("Expected functions[0].itemid, got %s", verrs[0].Field)
	}

	hosts, err := store.ListHostScopes(context.Background(), []string{"1"})
	if err != nil {
		t.Fatalf("ListHostScopes failed: %v", err)
	}
	if len(hosts) != 0 {
		t.Error("Expected nothing to be written on validation failure")
	}
}

func TestImportState_Duplicate(t *testing.T) {
	svc := newService(t)

	_, err := svc.ImportState(context.Background(), sampleState())
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func newSQLiteStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.New("sqlite3", "file:"+filepath.Join(t.TempDir(), "macros.db")+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestImportState_RollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	svc := service.NewMacroService(store, resolver.New(store, store), testutil.NewTestLogger(t))

	if _, err := svc.ImportState(ctx, sampleState()); err != nil {
		t.Fatalf("ImportState failed: %v", err)
	}

	// Valid on its own, but the host macro id is taken by the first import.
	second := &domain.State{
		Hosts: []*domain.Host{{ID: "2", Host: "db01"}},
		Items: []*domain.Item{{ID: "200", HostID: "2", Key: "agent.ping"}},
		HostMacros: []*domain.HostMacro{
			{ID: "900", HostID: "2", Macro: "{$PORT}", Value: "5432"},
		},
	}
	_, err := svc.ImportState(ctx, second)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists, got %v", err)
	}

	scopes, err := store.ListHostScopes(ctx, []string{"2"})
	if err != nil {
		t.Fatalf("ListHostScopes failed: %v", err)
	}
	if len(scopes) != 0 {
		t.Errorf("Expected host 2 to be rolled back, got %+v", scopes[0])
	}
	last, err := store.LastHistory(ctx, []string{"100"}, 10, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("LastHistory failed: %v", err)
	}
	if len(last["100"]) != 2 {
		t.Errorf("Expected the first import to be intact, got %d history values", len(last["100"]))
	}
}

func TestImportState_StoresAgree(t *testing.T) {
	anonymous := func() *domain.State {
		state := sampleState()
		state.HostMacros = []*domain.HostMacro{
			{HostID: "10", Macro: "{$LOAD}", Value: "5"},
			{HostID: "1", Macro: "{$LOAD}", Value: "9"},
		}
		return state
	}
	sharedID := func() *domain.State {
		state := sampleState()
		state.HostMacros = append(state.HostMacros, &domain.HostMacro{ID: "900", HostID: "1", Macro: "{$LOAD}", Value: "9"})
		state.GlobalMacros = append(state.GlobalMacros, &domain.GlobalMacro{ID: "950", Macro: "{$REGION}", Value: "eu"})
		return state
	}

	stores := map[string]func(t *testing.T) storage.Storage{
		"memory": func(t *testing.T) storage.Storage { return memory.New() },
		"sqlite": func(t *testing.T) storage.Storage { return newSQLiteStore(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			for _, state := range []*domain.State{anonymous(), sharedID()} {
				store := open(t)
				svc := service.NewMacroService(store, resolver.New(store, store), nil)

				_, err := svc.ImportState(context.Background(), state)
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				scopes, err := store.ListHostScopes(context.Background(), []string{"1", "10"})
				if err != nil {
					t.Fatalf("ListHostScopes failed: %v", err)
				}
				if len(scopes) != 0 {
					t.Errorf("Expected nothing to be written, got %d hosts", len(scopes))
				}
			}

			store := open(t)
			svc := service.NewMacroService(store, resolver.New(store, store), nil)
			summary, err := svc.ImportState(context.Background(), sampleState())
			if err != nil {
				t.Fatalf("ImportState failed: %v", err)
			}
			if summary.HostMacros != 1 || summary.GlobalMacros != 1 {
				t.Errorf("Unexpected summary: %+v", summary)
			}
		})
	}
}

func TestExpandTriggers(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ExpandTriggers(context.Background(), &service.ExpandRequest{TriggerIDs: []string{"500"}})
	if err != nil {
		t.Fatalf("ExpandTriggers failed: %v", err)
	}
	if len(resp.Triggers) != 1 {
		t.Fatalf("Expected 1 trigger, got %d", len(resp.Triggers))
	}

	got := resp.Triggers[0]
	if got.Description != "High load on Web server: 7.5 > 5" {
		t.Errorf("Unexpected description: %q", got.Description)
	}
	if got.Expression != "{12}>5" {
		t.Errorf("Unexpected expression: %q", got.Expression)
	}
}

func TestExpandTriggers_EventMode(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	events := map[string]domain.EventTime{"501": {Clock: testNow.Unix() - 300}}

	resp, err := svc.ExpandTriggers(ctx, &service.ExpandRequest{TriggerIDs: []string{"501"}, Mode: "event", Events: events})
	if err != nil {
		t.Fatalf("ExpandTriggers failed: %v", err)
	}
	if resp.Triggers[0].Description != "Load was 1.5" {
		t.Errorf("Expected value at event time, got %q", resp.Triggers[0].Description)
	}

	resp, err = svc.ExpandTriggers(ctx, &service.ExpandRequest{TriggerIDs: []string{"501"}, Events: events})
	if err != nil {
		t.Fatalf("ExpandTriggers failed: %v", err)
	}
	if resp.Triggers[0].Description != "Load was 7.5" {
		t.Errorf("Expected last value in trigger mode, got %q", resp.Triggers[0].Description)
	}
}

func TestExpandTriggers_Errors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *service.ExpandRequest
		want error
	}{
		{"no ids", &service.ExpandRequest{}, nil},
		{"bad id", &service.ExpandRequest{TriggerIDs: []string{"a b"}}, nil},
		{"bad mode", &service.ExpandRequest{TriggerIDs: []string{"500"}, Mode: "nope"}, nil},
		{"unknown", &service.ExpandRequest{TriggerIDs: []string{"404"}}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExpandTriggers(ctx, tt.req)
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Errorf("Expected %v, got %v", tt.want, err)
				}
				return
			}
			var verrs validation.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("Expected validation errors, got %v", err)
			}
		})
	}
}

func TestResolveUserMacros(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ResolveUserMacros(context.Background(), &service.ResolveUserMacrosRequest{
		Elements: []resolver.UserMacroRequest{
			{HostIDs: []string{"1"}, Macros: []string{"{$LOAD}", "{$ENV}", "{$MISSING}"}},
			{Macros: []string{"{$ENV}"}},
		},
	})
	if err != nil {
		t.Fatalf("ResolveUserMacros failed: %v", err)
	}

	want := []map[string]string{
		{"{$LOAD}": "5", "{$ENV}": "prod", "{$MISSING}": "{$MISSING}"},
		{"{$ENV}": "prod"},
	}
	if !reflect.DeepEqual(resp.Elements, want) {
		t.Errorf("Expected %v, got %v", want, resp.Elements)
	}
}

func TestResolveUserMacros_Validation(t *testing.T) {
	svc := newService(t)

	_, err := svc.ResolveUserMacros(context.Background(), &service.ResolveUserMacrosRequest{
		Elements: []resolver.UserMacroRequest{{HostIDs: []string{""}}},
	})
	var verrs validation.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected validation errors, got %v", err)
	}
	if len(verrs) != 2 {
		t.Errorf("Expected 2 errors, got %d: %v", len(verrs), verrs)
	}
}

func TestScan(t *testing.T) {
	svc := newService(t)

	resp, err := svc.Scan(&service.ScanRequest{
		Grammar: "interface_function",
		Texts:   []string{"{HOST.IP} {HOST.PORT2}", "{HOST.IP3} {HOST.IP}"},
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	wantMacros := []string{"{HOST.IP}", "{HOST.PORT2}", "{HOST.IP3}"}
	if !reflect.DeepEqual(resp.Macros, wantMacros) {
		t.Errorf("Expected %v, got %v", wantMacros, resp.Macros)
	}
	wantPositions := map[string][]int{"HOST.IP": {0, 3}, "HOST.PORT": {2}}
	if !reflect.DeepEqual(resp.Positions, wantPositions) {
		t.Errorf("Expected %v, got %v", wantPositions, resp.Positions)
	}
}

func TestScan_UserGrammar(t *testing.T) {
	svc := newService(t)

	resp, err := svc.Scan(&service.ScanRequest{Grammar: "user", Texts: []string{"{$A} {$B:\"x\"} {$A}"}})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !reflect.DeepEqual(resp.Macros, []string{"{$A}", "{$B:\"x\"}"}) {
		t.Errorf("Unexpected macros: %v", resp.Macros)
	}
	if resp.Positions != nil {
		t.Errorf("Expected no positions for user grammar, got %v", resp.Positions)
	}
}

func TestScan_UnknownGrammar(t *testing.T) {
	svc := newService(t)

	_, err := svc.Scan(&service.ScanRequest{Grammar: "bogus"})
	var verrs validation.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("Expected validation errors, got %v", err)
	}
}
