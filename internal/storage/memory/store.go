package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu sync.RWMutex

	hosts         map[string]*domain.Host
	templates     map[string][]string // key: hostID, ordered template ids
	interfaces    []*domain.Interface
	items         map[string]*domain.Item
	triggers      map[string]*domain.Trigger
	functions     map[string]*domain.Function
	functionOrder []string
	hostMacros    []*domain.HostMacro
	globalMacros  []*domain.GlobalMacro
	valueMappings []*domain.ValueMapping
	history       map[string][]*domain.HistoryValue // key: itemID
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		hosts:     make(map[string]*domain.Host),
		templates: make(map[string][]string),
		items:     make(map[string]*domain.Item),
		triggers:  make(map[string]*domain.Trigger),
		functions: make(map[string]*domain.Function),
		history:   make(map[string][]*domain.HistoryValue),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{Store: s}, nil
}

// Tx is a no-op transaction for in-memory store.
type Tx struct {
	*Store
}

func (t *Tx) Commit() error   { return nil }
func (t *Tx) Rollback() error { return nil }
func (t *Tx) Close() error    { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// ============================================
// Writers
// ============================================

func (s *Store) CreateHost(ctx context.Context, host *domain.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hosts[host.ID]; exists {
		return domain.ErrAlreadyExists
	}
	h := *host
	h.TemplateIDs = nil
	s.hosts[host.ID] = &h
	return nil
}

func (s *Store) LinkTemplate(ctx context.Context, hostID, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hosts[hostID]; !ok {
		return domain.ErrNotFound
	}
	for _, id := range s.templates[hostID] {
		if id == templateID {
			return domain.ErrAlreadyExists
		}
	}
	s.templates[hostID] = append(s.templates[hostID], templateID)
	return nil
}

func (s *Store) CreateInterface(ctx context.Context, iface *domain.Interface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.interfaces {
		if existing.ID == iface.ID {
			return domain.ErrAlreadyExists
		}
	}
	i := *iface
	s.interfaces = append(s.interfaces, &i)
	return nil
}

func (s *Store) CreateValueMapping(ctx context.Context, mapping *domain.ValueMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.valueMappings {
		if existing.ValueMapID == mapping.ValueMapID && existing.Value == mapping.Value {
			return domain.ErrAlreadyExists
		}
	}
	m := *mapping
	s.valueMappings = append(s.valueMappings, &m)
	return nil
}

func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return domain.ErrAlreadyExists
	}
	i := *item
	s.items[item.ID] = &i
	return nil
}

func (s *Store) CreateTrigger(ctx context.Context, trigger *domain.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.triggers[trigger.ID]; exists {
		return domain.ErrAlreadyExists
	}
	t := *trigger
	s.triggers[trigger.ID] = &t
	return nil
}

func (s *Store) CreateFunction(ctx context.Context, function *domain.Function) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.functions[function.ID]; exists {
		return domain.ErrAlreadyExists
	}
	f := *function
	s.functions[function.ID] = &f
	s.functionOrder = append(s.functionOrder, function.ID)
	return nil
}

func (s *Store) CreateHostMacro(ctx context.Context, macro *domain.HostMacro) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.hostMacros {
		if existing.ID == macro.ID || (existing.HostID == macro.HostID && existing.Macro == macro.Macro) {
			return domain.ErrAlreadyExists
		}
	}
	m := *macro
	s.hostMacros = append(s.hostMacros, &m)
	return nil
}

func (s *Store) CreateGlobalMacro(ctx context.Context, macro *domain.GlobalMacro) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.globalMacros {
		if existing.ID == macro.ID || existing.Macro == macro.Macro {
			return domain.ErrAlreadyExists
		}
	}
	m := *macro
	s.globalMacros = append(s.globalMacros, &m)
	return nil
}

func (s *Store) AddHistory(ctx context.Context, value *domain.HistoryValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *value
	s.history[value.ItemID] = append(s.history[value.ItemID], &v)
	return nil
}

// ============================================
// Readers
// ============================================

func (s *Store) GetTriggers(ctx context.Context, triggerIDs []string) ([]*domain.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trigger
	seen := make(map[string]bool)
	for _, id := range triggerIDs {
		if t, ok := s.triggers[id]; ok && !seen[id] {
			seen[id] = true
			c := *t
			result = append(result, &c)
		}
	}
	return result, nil
}

func (s *Store) ListTriggerFunctions(ctx context.Context, triggerIDs []string) ([]*domain.Function, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := idSet(triggerIDs)
	var result []*domain.Function
	for _, id := range s.functionOrder {
		f := s.functions[id]
		if want[f.TriggerID] {
			c := *f
			result = append(result, &c)
		}
	}
	return result, nil
}

// joinedFunctions returns the requested functions whose item exists, in creation order.
func (s *Store) joinedFunctions(functionIDs []string) []*domain.Function {
	want := idSet(functionIDs)
	var result []*domain.Function
	for _, id := range s.functionOrder {
		if !want[id] {
			continue
		}
		f := s.functions[id]
		if _, ok := s.items[f.ItemID]; ok {
			result = append(result, f)
		}
	}
	return result
}

func (s *Store) ListFunctionHosts(ctx context.Context, functionIDs []string) ([]*domain.FunctionHost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FunctionHost
	for _, f := range s.joinedFunctions(functionIDs) {
		h, ok := s.hosts[s.items[f.ItemID].HostID]
		if !ok {
			continue
		}
		result = append(result, &domain.FunctionHost{
			TriggerID:  f.TriggerID,
			FunctionID: f.ID,
			HostID:     h.ID,
			Host:       h.Host,
			Name:       h.Name,
		})
	}
	return result, nil
}

func (s *Store) ListFunctionInterfaces(ctx context.Context, functionIDs []string, withPort bool) ([]*domain.FunctionInterface, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FunctionInterface
	for _, f := range s.joinedFunctions(functionIDs) {
		hostID := s.items[f.ItemID].HostID
		for _, iface := range s.interfaces {
			if iface.HostID != hostID || !iface.Main {
				continue
			}
			row := &domain.FunctionInterface{
				TriggerID:  f.TriggerID,
				FunctionID: f.ID,
				IP:         iface.IP,
				DNS:        iface.DNS,
				Type:       iface.Type,
				UseIP:      iface.UseIP,
			}
			if withPort {
				row.Port = iface.Port
			}
			result = append(result, row)
		}
	}
	return result, nil
}

func (s *Store) ListFunctionItems(ctx context.Context, functionIDs []string) ([]*domain.FunctionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FunctionItem
	for _, f := range s.joinedFunctions(functionIDs) {
		item := s.items[f.ItemID]
		if _, ok := s.hosts[item.HostID]; !ok {
			continue
		}
		result = append(result, &domain.FunctionItem{
			TriggerID:  f.TriggerID,
			FunctionID: f.ID,
			ItemID:     item.ID,
			ValueType:  item.ValueType,
			Units:      item.Units,
			ValueMapID: item.ValueMapID,
		})
	}
	return result, nil
}

func (s *Store) ListHostScopes(ctx context.Context, hostIDs []string) ([]*domain.HostScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HostScope
	seen := make(map[string]bool)
	for _, id := range hostIDs {
		if _, ok := s.hosts[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true

		scope := &domain.HostScope{
			HostID:      id,
			TemplateIDs: append([]string(nil), s.templates[id]...),
		}
		for _, m := range s.hostMacros {
			if m.HostID == id {
				c := *m
				scope.Macros = append(scope.Macros, &c)
			}
		}
		result = append(result, scope)
	}
	return result, nil
}

func (s *Store) SearchGlobalMacros(ctx context.Context, prefixes []string) ([]*domain.GlobalMacro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.GlobalMacro
	for _, m := range s.globalMacros {
		for _, prefix := range prefixes {
			if strings.HasPrefix(m.Macro, prefix) {
				c := *m
				result = append(result, &c)
				break
			}
		}
	}
	return result, nil
}

func (s *Store) ListValueMappings(ctx context.Context, valueMapIDs []string) ([]*domain.ValueMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := idSet(valueMapIDs)
	var result []*domain.ValueMapping
	for _, m := range s.valueMappings {
		if want[m.ValueMapID] {
			c := *m
			result = append(result, &c)
		}
	}
	return result, nil
}

// newestFirst orders history values by clock, then ns, descending.
func newestFirst(values []*domain.HistoryValue) {
	sort.SliceStable(values, func(i, j int) bool {
		if values[i].Clock != values[j].Clock {
			return values[i].Clock > values[j].Clock
		}
		return values[i].NS > values[j].NS
	})
}

func (s *Store) LastHistory(ctx context.Context, itemIDs []string, limit int, since time.Time) (map[string][]*domain.HistoryValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]*domain.HistoryValue)
	for id := range idSet(itemIDs) {
		var values []*domain.HistoryValue
		for _, v := range s.history[id] {
			if v.Clock >= since.Unix() {
				c := *v
				values = append(values, &c)
			}
		}
		if len(values) == 0 {
			continue
		}
		newestFirst(values)
		if limit > 0 && len(values) > limit {
			values = values[:limit]
		}
		result[id] = values
	}
	return result, nil
}

func (s *Store) HistoryAt(ctx context.Context, itemID string, clock int64, ns int) (*domain.HistoryValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.HistoryValue
	for _, v := range s.history[itemID] {
		if v.Clock > clock || (v.Clock == clock && v.NS > ns) {
			continue
		}
		if best == nil || v.Clock > best.Clock || (v.Clock == best.Clock && v.NS > best.NS) {
			best = v
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	c := *best
	return &c, nil
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)
