package storage

import (
	"context"
	"time"

	"github.com/bcnelson/trigger-macros/internal/domain"
)

// ConfigReader is the read side of the configuration store used by macro resolution.
// Every method takes a set of ids and answers in a single round trip; ids
// without matching rows are simply absent from the result.
type ConfigReader interface {
	GetTriggers(ctx context.Context, triggerIDs []string) ([]*domain.Trigger, error)
	ListTriggerFunctions(ctx context.Context, triggerIDs []string) ([]*domain.Function, error)

	// Function joins, keyed by function id.
	ListFunctionHosts(ctx context.Context, functionIDs []string) ([]*domain.FunctionHost, error)
	// ListFunctionInterfaces returns main interfaces only; Port is filled when withPort is set.
	ListFunctionInterfaces(ctx context.Context, functionIDs []string, withPort bool) ([]*domain.FunctionInterface, error)
	ListFunctionItems(ctx context.Context, functionIDs []string) ([]*domain.FunctionItem, error)

	// User macros.
	ListHostScopes(ctx context.Context, hostIDs []string) ([]*domain.HostScope, error)
	// SearchGlobalMacros returns global macros whose name starts with any of the prefixes.
	SearchGlobalMacros(ctx context.Context, prefixes []string) ([]*domain.GlobalMacro, error)

	ListValueMappings(ctx context.Context, valueMapIDs []string) ([]*domain.ValueMapping, error)
}

// HistoryReader is the read side of the history store.
type HistoryReader interface {
	// LastHistory returns up to limit newest values per item, newest first,
	// considering only values collected at or after since.
	LastHistory(ctx context.Context, itemIDs []string, limit int, since time.Time) (map[string][]*domain.HistoryValue, error)
	// HistoryAt returns the value collected at clock/ns, or the newest value before it.
	// It returns domain.ErrNotFound when the item has no such value.
	HistoryAt(ctx context.Context, itemID string, clock int64, ns int) (*domain.HistoryValue, error)
}

// Writer creates configuration and history rows.
type Writer interface {
	CreateHost(ctx context.Context, host *domain.Host) error
	LinkTemplate(ctx context.Context, hostID, templateID string) error
	CreateInterface(ctx context.Context, iface *domain.Interface) error
	CreateValueMapping(ctx context.Context, mapping *domain.ValueMapping) error
	CreateItem(ctx context.Context, item *domain.Item) error
	CreateTrigger(ctx context.Context, trigger *domain.Trigger) error
	CreateFunction(ctx context.Context, function *domain.Function) error
	CreateHostMacro(ctx context.Context, macro *domain.HostMacro) error
	CreateGlobalMacro(ctx context.Context, macro *domain.GlobalMacro) error
	AddHistory(ctx context.Context, value *domain.HistoryValue) error
}

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	ConfigReader
	HistoryReader
	Writer

	// Close closes the storage connection.
	Close() error

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
