package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and applies pending migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := migrate(db.DB, driver); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, driver: driver}, nil
}

// NewWithDB wraps an existing connection without running migrations.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db, driver: db.DriverName()}
}

func migrate(db *sql.DB, driver string) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, driver: s.driver}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// selectIn expands slice arguments of query into IN lists and rebinds the
// placeholders for the connection's driver.
func selectIn(ctx context.Context, db dbInterface, dest any, query string, args ...any) error {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return db.SelectContext(ctx, dest, db.Rebind(q), a...)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// escapeLike escapes LIKE wildcards; queries use ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ============================================
// Hosts
// ============================================

func createHost(ctx context.Context, db dbInterface, host *domain.Host) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO hosts (hostid, host, name, is_template) VALUES ($1, $2, $3, $4)`,
		host.ID, host.Host, host.Name, boolInt(host.IsTemplate))
	return wrapUniqueError(err)
}

func (s *Store) CreateHost(ctx context.Context, host *domain.Host) error {
	return createHost(ctx, s.db, host)
}

func (t *Tx) CreateHost(ctx context.Context, host *domain.Host) error {
	return createHost(ctx, t.tx, host)
}

func linkTemplate(ctx context.Context, db dbInterface, hostID, templateID string) error {
	var count int
	if err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM hosts WHERE hostid IN ($1, $2)`, hostID, templateID); err != nil {
		return err
	}
	want := 2
	if hostID == templateID {
		want = 1
	}
	if count < want {
		return domain.ErrNotFound
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO hosts_templates (hostid, templateid) VALUES ($1, $2)`, hostID, templateID)
	return wrapUniqueError(err)
}

func (s *Store) LinkTemplate(ctx context.Context, hostID, templateID string) error {
	return linkTemplate(ctx, s.db, hostID, templateID)
}

func (t *Tx) LinkTemplate(ctx context.Context, hostID, templateID string) error {
	return linkTemplate(ctx, t.tx, hostID, templateID)
}

func createInterface(ctx context.Context, db dbInterface, iface *domain.Interface) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO interface (interfaceid, hostid, main, type, useip, ip, dns, port)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		iface.ID, iface.HostID, boolInt(iface.Main), int(iface.Type), boolInt(iface.UseIP), iface.IP, iface.DNS, iface.Port)
	return wrapUniqueError(err)
}

func (s *Store) CreateInterface(ctx context.Context, iface *domain.Interface) error {
	return createInterface(ctx, s.db, iface)
}

func (t *Tx) CreateInterface(ctx context.Context, iface *domain.Interface) error {
	return createInterface(ctx, t.tx, iface)
}

// ============================================
// Items and value maps
// ============================================

func createValueMapping(ctx context.Context, db dbInterface, m *domain.ValueMapping) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO mappings (valuemapid, value, newvalue) VALUES ($1, $2, $3)`,
		m.ValueMapID, m.Value, m.NewValue)
	return wrapUniqueError(err)
}

func (s *Store) CreateValueMapping(ctx context.Context, mapping *domain.ValueMapping) error {
	return createValueMapping(ctx, s.db, mapping)
}

func (t *Tx) CreateValueMapping(ctx context.Context, mapping *domain.ValueMapping) error {
	return createValueMapping(ctx, t.tx, mapping)
}

func createItem(ctx context.Context, db dbInterface, item *domain.Item) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (itemid, hostid, key_, name, value_type, units, valuemapid)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.HostID, item.Key, item.Name, int(item.ValueType), item.Units, nullString(item.ValueMapID))
	return wrapUniqueError(err)
}

func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	return createItem(ctx, s.db, item)
}

func (t *Tx) CreateItem(ctx context.Context, item *domain.Item) error {
	return createItem(ctx, t.tx, item)
}

func listValueMappings(ctx context.Context, db dbInterface, valueMapIDs []string) ([]*domain.ValueMapping, error) {
	if len(valueMapIDs) == 0 {
		return nil, nil
	}
	var mappings []*domain.ValueMapping
	err := selectIn(ctx, db, &mappings,
		`SELECT valuemapid, value, newvalue FROM mappings WHERE valuemapid IN (?) ORDER BY valuemapid, value`,
		valueMapIDs)
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

func (s *Store) ListValueMappings(ctx context.Context, valueMapIDs []string) ([]*domain.ValueMapping, error) {
	return listValueMappings(ctx, s.db, valueMapIDs)
}

func (t *Tx) ListValueMappings(ctx context.Context, valueMapIDs []string) ([]*domain.ValueMapping, error) {
	return listValueMappings(ctx, t.tx, valueMapIDs)
}

// ============================================
// Triggers and functions
// ============================================

func createTrigger(ctx context.Context, db dbInterface, trigger *domain.Trigger) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO triggers (triggerid, expression, description) VALUES ($1, $2, $3)`,
		trigger.ID, trigger.Expression, trigger.Description)
	return wrapUniqueError(err)
}

func (s *Store) CreateTrigger(ctx context.Context, trigger *domain.Trigger) error {
	return createTrigger(ctx, s.db, trigger)
}

func (t *Tx) CreateTrigger(ctx context.Context, trigger *domain.Trigger) error {
	return createTrigger(ctx, t.tx, trigger)
}

func createFunction(ctx context.Context, db dbInterface, f *domain.Function) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO functions (functionid, triggerid, itemid, name, parameter) VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.TriggerID, f.ItemID, f.Name, f.Parameter)
	return wrapUniqueError(err)
}

func (s *Store) CreateFunction(ctx context.Context, function *domain.Function) error {
	return createFunction(ctx, s.db, function)
}

func (t *Tx) CreateFunction(ctx context.Context, function *domain.Function) error {
	return createFunction(ctx, t.tx, function)
}

func getTriggers(ctx context.Context, db dbInterface, triggerIDs []string) ([]*domain.Trigger, error) {
	if len(triggerIDs) == 0 {
		return nil, nil
	}
	var rows []*domain.Trigger
	err := selectIn(ctx, db, &rows,
		`SELECT triggerid, expression, description FROM triggers WHERE triggerid IN (?)`, triggerIDs)
	if err != nil {
		return nil, err
	}

	// keep request order
	byID := make(map[string]*domain.Trigger, len(rows))
	for _, t := range rows {
		byID[t.ID] = t
	}
	result := make([]*domain.Trigger, 0, len(rows))
	for _, id := range triggerIDs {
		if t, ok := byID[id]; ok {
			result = append(result, t)
			delete(byID, id)
		}
	}
	return result, nil
}

func (s *Store) GetTriggers(ctx context.Context, triggerIDs []string) ([]*domain.Trigger, error) {
	return getTriggers(ctx, s.db, triggerIDs)
}

func (t *Tx) GetTriggers(ctx context.Context, triggerIDs []string) ([]*domain.Trigger, error) {
	return getTriggers(ctx, t.tx, triggerIDs)
}

func listTriggerFunctions(ctx context.Context, db dbInterface, triggerIDs []string) ([]*domain.Function, error) {
	if len(triggerIDs) == 0 {
		return nil, nil
	}
	var functions []*domain.Function
	err := selectIn(ctx, db, &functions,
		`SELECT functionid, triggerid, itemid, name, parameter FROM functions
		 WHERE triggerid IN (?) ORDER BY functionid`, triggerIDs)
	if err != nil {
		return nil, err
	}
	return functions, nil
}

func (s *Store) ListTriggerFunctions(ctx context.Context, triggerIDs []string) ([]*domain.Function, error) {
	return listTriggerFunctions(ctx, s.db, triggerIDs)
}

func (t *Tx) ListTriggerFunctions(ctx context.Context, triggerIDs []string) ([]*domain.Function, error) {
	return listTriggerFunctions(ctx, t.tx, triggerIDs)
}

func listFunctionHosts(ctx context.Context, db dbInterface, functionIDs []string) ([]*domain.FunctionHost, error) {
	if len(functionIDs) == 0 {
		return nil, nil
	}
	var rows []*domain.FunctionHost
	err := selectIn(ctx, db, &rows,
		`SELECT f.triggerid, f.functionid, h.hostid, h.host, h.name
		 FROM functions f
		 JOIN items i ON i.itemid = f.itemid
		 JOIN hosts h ON h.hostid = i.hostid
		 WHERE f.functionid IN (?)
		 ORDER BY f.functionid`, functionIDs)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListFunctionHosts(ctx context.Context, functionIDs []string) ([]*domain.FunctionHost, error) {
	return listFunctionHosts(ctx, s.db, functionIDs)
}

func (t *Tx) ListFunctionHosts(ctx context.Context, functionIDs []string) ([]*domain.FunctionHost, error) {
	return listFunctionHosts(ctx, t.tx, functionIDs)
}

func listFunctionInterfaces(ctx context.Context, db dbInterface, functionIDs []string, withPort bool) ([]*domain.FunctionInterface, error) {
	if len(functionIDs) == 0 {
		return nil, nil
	}
	port := `'' AS port`
	if withPort {
		port = `n.port`
	}
	var rows []*domain.FunctionInterface
	err := selectIn(ctx, db, &rows,
		`SELECT f.triggerid, f.functionid, n.ip, n.dns, n.type, n.useip, `+port+`
		 FROM functions f
		 JOIN items i ON i.itemid = f.itemid
		 JOIN interface n ON n.hostid = i.hostid
		 WHERE f.functionid IN (?) AND n.main = 1
		 ORDER BY f.functionid, n.interfaceid`, functionIDs)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListFunctionInterfaces(ctx context.Context, functionIDs []string, withPort bool) ([]*domain.FunctionInterface, error) {
	return listFunctionInterfaces(ctx, s.db, functionIDs, withPort)
}

func (t *Tx) ListFunctionInterfaces(ctx context.Context, functionIDs []string, withPort bool) ([]*domain.FunctionInterface, error) {
	return listFunctionInterfaces(ctx, t.tx, functionIDs, withPort)
}

func listFunctionItems(ctx context.Context, db dbInterface, functionIDs []string) ([]*domain.FunctionItem, error) {
	if len(functionIDs) == 0 {
		return nil, nil
	}
	var rows []*domain.FunctionItem
	err := selectIn(ctx, db, &rows,
		`SELECT f.triggerid, f.functionid, i.itemid, i.value_type, i.units, COALESCE(i.valuemapid, '') AS valuemapid
		 FROM functions f
		 JOIN items i ON i.itemid = f.itemid
		 JOIN hosts h ON h.hostid = i.hostid
		 WHERE f.functionid IN (?)
		 ORDER BY f.functionid`, functionIDs)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListFunctionItems(ctx context.Context, functionIDs []string) ([]*domain.FunctionItem, error) {
	return listFunctionItems(ctx, s.db, functionIDs)
}

func (t *Tx) ListFunctionItems(ctx context.Context, functionIDs []string) ([]*domain.FunctionItem, error) {
	return listFunctionItems(ctx, t.tx, functionIDs)
}

// ============================================
// User macros
// ============================================

func createHostMacro(ctx context.Context, db dbInterface, m *domain.HostMacro) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO hostmacro (hostmacroid, hostid, macro, value) VALUES ($1, $2, $3, $4)`,
		m.ID, m.HostID, m.Macro, m.Value)
	return wrapUniqueError(err)
}

func (s *Store) CreateHostMacro(ctx context.Context, macro *domain.HostMacro) error {
	return createHostMacro(ctx, s.db, macro)
}

func (t *Tx) CreateHostMacro(ctx context.Context, macro *domain.HostMacro) error {
	return createHostMacro(ctx, t.tx, macro)
}

func createGlobalMacro(ctx context.Context, db dbInterface, m *domain.GlobalMacro) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO globalmacro (globalmacroid, macro, value) VALUES ($1, $2, $3)`,
		m.ID, m.Macro, m.Value)
	return wrapUniqueError(err)
}

func (s *Store) CreateGlobalMacro(ctx context.Context, macro *domain.GlobalMacro) error {
	return createGlobalMacro(ctx, s.db, macro)
}

func (t *Tx) CreateGlobalMacro(ctx context.Context, macro *domain.GlobalMacro) error {
	return createGlobalMacro(ctx, t.tx, macro)
}

type templateLink struct {
	HostID     string `db:"hostid"`
	TemplateID string `db:"templateid"`
}

func listHostScopes(ctx context.Context, db dbInterface, hostIDs []string) ([]*domain.HostScope, error) {
	if len(hostIDs) == 0 {
		return nil, nil
	}

	var existing []string
	if err := selectIn(ctx, db, &existing, `SELECT hostid FROM hosts WHERE hostid IN (?)`, hostIDs); err != nil {
		return nil, fmt.Errorf("listing hosts: %w", err)
	}

	var links []templateLink
	if err := selectIn(ctx, db, &links,
		`SELECT hostid, templateid FROM hosts_templates WHERE hostid IN (?) ORDER BY hostid, templateid`,
		hostIDs); err != nil {
		return nil, fmt.Errorf("listing template links: %w", err)
	}

	var macros []*domain.HostMacro
	if err := selectIn(ctx, db, &macros,
		`SELECT hostmacroid, hostid, macro, value FROM hostmacro WHERE hostid IN (?) ORDER BY hostmacroid`,
		hostIDs); err != nil {
		return nil, fmt.Errorf("listing host macros: %w", err)
	}

	scopes := make(map[string]*domain.HostScope, len(existing))
	for _, id := range existing {
		scopes[id] = &domain.HostScope{HostID: id}
	}
	for _, l := range links {
		if scope, ok := scopes[l.HostID]; ok {
			scope.TemplateIDs = append(scope.TemplateIDs, l.TemplateID)
		}
	}
	for _, m := range macros {
		if scope, ok := scopes[m.HostID]; ok {
			scope.Macros = append(scope.Macros, m)
		}
	}

	result := make([]*domain.HostScope, 0, len(scopes))
	for _, id := range hostIDs {
		if scope, ok := scopes[id]; ok {
			result = append(result, scope)
			delete(scopes, id)
		}
	}
	return result, nil
}

func (s *Store) ListHostScopes(ctx context.Context, hostIDs []string) ([]*domain.HostScope, error) {
	return listHostScopes(ctx, s.db, hostIDs)
}

func (t *Tx) ListHostScopes(ctx context.Context, hostIDs []string) ([]*domain.HostScope, error) {
	return listHostScopes(ctx, t.tx, hostIDs)
}

func searchGlobalMacros(ctx context.Context, db dbInterface, prefixes []string) ([]*domain.GlobalMacro, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}
	conds := make([]string, len(prefixes))
	args := make([]any, len(prefixes))
	for i, p := range prefixes {
		conds[i] = `macro LIKE ? ESCAPE '\'`
		args[i] = escapeLike(p) + "%"
	}

	var macros []*domain.GlobalMacro
	err := db.SelectContext(ctx, &macros, db.Rebind(
		`SELECT globalmacroid, macro, value FROM globalmacro WHERE `+strings.Join(conds, " OR ")+` ORDER BY globalmacroid`),
		args...)
	if err != nil {
		return nil, err
	}
	return macros, nil
}

func (s *Store) SearchGlobalMacros(ctx context.Context, prefixes []string) ([]*domain.GlobalMacro, error) {
	return searchGlobalMacros(ctx, s.db, prefixes)
}

func (t *Tx) SearchGlobalMacros(ctx context.Context, prefixes []string) ([]*domain.GlobalMacro, error) {
	return searchGlobalMacros(ctx, t.tx, prefixes)
}

// ============================================
// History
// ============================================

func addHistory(ctx context.Context, db dbInterface, v *domain.HistoryValue) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO history (itemid, clock, ns, value) VALUES ($1, $2, $3, $4)`,
		v.ItemID, v.Clock, v.NS, v.Value)
	return err
}

func (s *Store) AddHistory(ctx context.Context, value *domain.HistoryValue) error {
	return addHistory(ctx, s.db, value)
}

func (t *Tx) AddHistory(ctx context.Context, value *domain.HistoryValue) error {
	return addHistory(ctx, t.tx, value)
}

func lastHistory(ctx context.Context, db dbInterface, itemIDs []string, limit int, since time.Time) (map[string][]*domain.HistoryValue, error) {
	result := make(map[string][]*domain.HistoryValue)
	if len(itemIDs) == 0 {
		return result, nil
	}
	if limit <= 0 {
		limit = 1
	}

	var rows []*domain.HistoryValue
	err := selectIn(ctx, db, &rows,
		`SELECT itemid, clock, ns, value FROM (
		   SELECT itemid, clock, ns, value,
		          ROW_NUMBER() OVER (PARTITION BY itemid ORDER BY clock DESC, ns DESC) AS rn
		   FROM history
		   WHERE itemid IN (?) AND clock >= ?
		 ) h
		 WHERE rn <= ?
		 ORDER BY itemid, clock DESC, ns DESC`,
		itemIDs, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	for _, v := range rows {
		result[v.ItemID] = append(result[v.ItemID], v)
	}
	return result, nil
}

func (s *Store) LastHistory(ctx context.Context, itemIDs []string, limit int, since time.Time) (map[string][]*domain.HistoryValue, error) {
	return lastHistory(ctx, s.db, itemIDs, limit, since)
}

func (t *Tx) LastHistory(ctx context.Context, itemIDs []string, limit int, since time.Time) (map[string][]*domain.HistoryValue, error) {
	return lastHistory(ctx, t.tx, itemIDs, limit, since)
}

func historyAt(ctx context.Context, db dbInterface, itemID string, clock int64, ns int) (*domain.HistoryValue, error) {
	var v domain.HistoryValue
	err := db.GetContext(ctx, &v,
		`SELECT itemid, clock, ns, value FROM history
		 WHERE itemid = $1 AND (clock < $2 OR (clock = $3 AND ns <= $4))
		 ORDER BY clock DESC, ns DESC
		 LIMIT 1`,
		itemID, clock, clock, ns)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) HistoryAt(ctx context.Context, itemID string, clock int64, ns int) (*domain.HistoryValue, error) {
	return historyAt(ctx, s.db, itemID, clock, ns)
}

func (t *Tx) HistoryAt(ctx context.Context, itemID string, clock int64, ns int) (*domain.HistoryValue, error) {
	return historyAt(ctx, t.tx, itemID, clock, ns)
}

var (
	_ storage.Storage     = (*Store)(nil)
	_ storage.Transaction = (*Tx)(nil)
)
