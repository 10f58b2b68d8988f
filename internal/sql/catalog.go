/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package sql contains the Catalog component for schema management.

Catalog Overview:
=================

The Catalog is WrenDB's schema registry. It maintains all tables and
views, hands out object ids, and owns the global modification counter
that data changes and schema changes tick forward. It also tracks the
open sessions, which is what lets a schema change invalidate view plan
caches in every session, not just the one issuing the change.

Storage Strategy:
=================

Schemas and view definitions are stored in the same engine as row
data, using reserved key prefixes:

	Key:   schema:<table_name>   Value: JSON-encoded table record
	Key:   view:<view_name>      Value: JSON-encoded view record
	Key:   row:<table_name>      Value: JSON-encoded row data

Views persist only their defining SQL text plus the requested column
names and comment. Everything else about a view (output columns,
dependencies, validity) is derived by compiling that text at load.

Loading is tolerant: a view whose query no longer compiles, e.g.
because a table it reads was dropped in a FORCE scenario, is loaded in
the invalid state and logged at WARN rather than failing startup.
Reading an invalid view reports why it is invalid; recompiling it can
repair it.

Thread Safety:
==============

All Catalog methods are safe for concurrent use. The catalog mutex
guards the object maps only; it is never held while compiling a view
query, since compilation needs to look objects up again.
*/
package sql

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"wrendb/internal/config"
	werrors "wrendb/internal/errors"
	"wrendb/internal/logging"
	"wrendb/internal/storage"
)

// Storage key prefixes for catalog data.
const (
	schemaKeyPrefix = "schema:"
	viewKeyPrefix   = "view:"
	rowKeyPrefix    = "row:"
)

// tableRecord is the persisted form of a table schema.
type tableRecord struct {
	Name     string      `json:"name"`
	ObjectID int64       `json:"object_id"`
	Columns  []ColumnDef `json:"columns"`
}

// viewRecord is the persisted form of a view definition.
// Only the defining SQL and the creation-time options are stored;
// the compiled state is rebuilt at load.
type viewRecord struct {
	Name        string   `json:"name"`
	ObjectID    int64    `json:"object_id"`
	QuerySQL    string   `json:"query_sql"`
	ColumnNames []string `json:"column_names,omitempty"`
	Comment     string   `json:"comment,omitempty"`
}

// rowsRecord is the persisted form of a table's data.
type rowsRecord struct {
	ModID int64      `json:"mod_id"`
	Rows  [][]string `json:"rows"`
}

// Catalog manages tables, views, and sessions for the database.
type Catalog struct {
	store storage.Engine
	log   *logging.Logger

	mu     sync.RWMutex
	tables map[string]*Table
	views  map[string]*View

	sessMu   sync.Mutex
	sessions map[string]*Session

	nextObjectID atomic.Int64
	modCounter   atomic.Int64

	collator          storage.Collator
	maxRecursionDepth int
	planCacheEntries  int
}

// NewCatalog creates a catalog backed by the given storage engine and
// loads all persisted tables and views.
func NewCatalog(store storage.Engine, cfg *config.Config) (*Catalog, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Catalog{
		store:             store,
		log:               logging.NewLogger("catalog"),
		tables:            make(map[string]*Table),
		views:             make(map[string]*View),
		sessions:          make(map[string]*Session),
		collator:          storage.GetCollator(storage.Collation(cfg.Collation), cfg.CollationLocale),
		maxRecursionDepth: cfg.MaxRecursionDepth,
		planCacheEntries:  cfg.PlanCacheEntries,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Collator returns the collator used for TEXT comparison.
func (c *Catalog) Collator() storage.Collator { return c.collator }

// MaxRecursionDepth returns the iteration cap for recursive views.
func (c *Catalog) MaxRecursionDepth() int { return c.maxRecursionDepth }

// PlanCacheEntries returns the per-partition plan cache capacity.
func (c *Catalog) PlanCacheEntries() int { return c.planCacheEntries }

// NextModificationID ticks the global modification counter and returns
// the new value. Called for every data or schema change.
func (c *Catalog) NextModificationID() int64 {
	return c.modCounter.Add(1)
}

// CurrentModificationID returns the counter without ticking it.
func (c *Catalog) CurrentModificationID() int64 {
	return c.modCounter.Load()
}

// allocateObjectID hands out the next object id.
func (c *Catalog) allocateObjectID() int64 {
	return c.nextObjectID.Add(1)
}

// =============================================================================
// Loading
// =============================================================================

// load restores all tables, rows, and views from storage.
func (c *Catalog) load() error {
	// Tables first: views compile against them.
	schemas, err := c.store.Scan(schemaKeyPrefix)
	if err != nil {
		return werrors.NewStorageError("failed to scan schemas").WithCause(err)
	}
	maxID, maxMod := int64(0), int64(0)
	for key, data := range schemas {
		var rec tableRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			c.log.Warn("Skipping corrupted table record", "key", key, "error", err.Error())
			continue
		}
		t := NewTable(c, rec.ObjectID, rec.Name, rec.Columns)
		c.tables[rec.Name] = t
		if rec.ObjectID > maxID {
			maxID = rec.ObjectID
		}

		if rowData, err := c.store.Get(rowKeyPrefix + rec.Name); err == nil {
			var rows rowsRecord
			if err := json.Unmarshal(rowData, &rows); err == nil {
				t.loadRows(rows.Rows, rows.ModID)
				if rows.ModID > maxMod {
					maxMod = rows.ModID
				}
			} else {
				c.log.Warn("Skipping corrupted row data", "table", rec.Name, "error", err.Error())
			}
		}
	}

	// Views in creation order, so a view defined over another view
	// compiles after its dependency.
	viewData, err := c.store.Scan(viewKeyPrefix)
	if err != nil {
		return werrors.NewStorageError("failed to scan views").WithCause(err)
	}
	var records []viewRecord
	for key, data := range viewData {
		var rec viewRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			c.log.Warn("Skipping corrupted view record", "key", key, "error", err.Error())
			continue
		}
		records = append(records, rec)
		if rec.ObjectID > maxID {
			maxID = rec.ObjectID
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ObjectID < records[j].ObjectID
	})

	loader := newSystemSession(c)
	defer loader.Close()
	for _, rec := range records {
		v := newView(c, rec.ObjectID, rec.Name, rec.QuerySQL, rec.ColumnNames, rec.Comment)
		v.initColumnsAndTables(loader)
		c.views[rec.Name] = v
		if !v.IsValid() {
			c.log.Warn("Loaded invalid view", "view", rec.Name, "error", v.InvalidReason().Error())
		}
	}

	c.nextObjectID.Store(maxID)
	c.modCounter.Store(maxMod)
	c.log.Info("Catalog loaded", "tables", len(c.tables), "views", len(c.views))
	return nil
}

// =============================================================================
// Lookup
// =============================================================================

// GetTable looks up a base table by name.
func (c *Catalog) GetTable(name string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

// GetView looks up a view by name.
func (c *Catalog) GetView(name string) (*View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[name]
	return v, ok
}

// FindDataSource looks up a table or view by name, tables first.
func (c *Catalog) FindDataSource(name string) (DataSource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.tables[name]; ok {
		return t, true
	}
	if v, ok := c.views[name]; ok {
		return v, true
	}
	return nil, false
}

// TableNames returns all table names, sorted.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ViewNames returns all view names, sorted.
func (c *Catalog) ViewNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.views))
	for name := range c.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// Tables
// =============================================================================

// CreateTable creates and persists a new base table.
// The name must not collide with an existing table or view.
func (c *Catalog) CreateTable(name string, cols []ColumnDef) (*Table, error) {
	c.mu.Lock()
	if _, ok := c.tables[name]; ok {
		c.mu.Unlock()
		return nil, werrors.TableAlreadyExists(name)
	}
	if _, ok := c.views[name]; ok {
		c.mu.Unlock()
		return nil, werrors.TableAlreadyExists(name)
	}
	t := NewTable(c, c.allocateObjectID(), name, cols)
	c.tables[name] = t
	c.mu.Unlock()

	c.NextModificationID()
	c.ClearViewPlans()
	if err := c.persistTable(t); err != nil {
		c.mu.Lock()
		delete(c.tables, name)
		c.mu.Unlock()
		return nil, err
	}
	c.log.Info("Created table", "table", name, "columns", len(cols))
	return t, nil
}

// DropTable removes a base table.
//
// If views depend on the table the drop is refused unless cascade is
// set, in which case the dependent views (and their dependents) are
// dropped too.
func (c *Catalog) DropTable(name string, cascade bool) error {
	t, ok := c.GetTable(name)
	if !ok {
		return werrors.TableNotFound(name)
	}

	dependents := t.DependentViews()
	if len(dependents) > 0 {
		if !cascade {
			return werrors.ObjectInUse(name, dependents[0].Name())
		}
		for _, v := range dependents {
			if err := c.DropView(v.Name(), true); err != nil && !werrors.IsNotFound(err) {
				return err
			}
		}
	}

	c.mu.Lock()
	delete(c.tables, name)
	c.mu.Unlock()

	c.NextModificationID()
	c.ClearViewPlans()

	if err := c.store.Delete(schemaKeyPrefix + name); err != nil {
		return werrors.NewStorageError("failed to delete table schema").WithCause(err)
	}
	if err := c.store.Delete(rowKeyPrefix + name); err != nil {
		return werrors.NewStorageError("failed to delete table rows").WithCause(err)
	}
	c.log.Info("Dropped table", "table", name, "cascade", cascade)
	return nil
}

// persistTable writes a table's schema record.
func (c *Catalog) persistTable(t *Table) error {
	rec := tableRecord{Name: t.Name(), ObjectID: t.ObjectID(), Columns: t.Columns()}
	data, err := json.Marshal(rec)
	if err != nil {
		return werrors.InternalError("failed to encode table record").WithCause(err)
	}
	if err := c.store.Put(schemaKeyPrefix+t.Name(), data); err != nil {
		return werrors.NewStorageError("failed to persist table schema").WithCause(err)
	}
	return nil
}

// persistTableRows writes a table's row data.
func (c *Catalog) persistTableRows(t *Table) error {
	rec := rowsRecord{ModID: t.MaxDataModificationID(), Rows: t.snapshotRows()}
	data, err := json.Marshal(rec)
	if err != nil {
		return werrors.InternalError("failed to encode row data").WithCause(err)
	}
	if err := c.store.Put(rowKeyPrefix+t.Name(), data); err != nil {
		return werrors.NewStorageError("failed to persist rows").WithCause(err)
	}
	return nil
}

// =============================================================================
// Views
// =============================================================================

// registerView adds a compiled view to the catalog maps.
// The caller has already checked for name collisions.
func (c *Catalog) registerView(v *View) {
	c.mu.Lock()
	c.views[v.Name()] = v
	c.mu.Unlock()
}

// unregisterView removes a view from the catalog maps.
func (c *Catalog) unregisterView(name string) {
	c.mu.Lock()
	delete(c.views, name)
	c.mu.Unlock()
}

// DropView removes a view.
//
// Without cascade the drop is refused while other views depend on this
// one; with cascade the dependents are dropped first.
func (c *Catalog) DropView(name string, cascade bool) error {
	v, ok := c.GetView(name)
	if !ok {
		return werrors.ViewNotFound(name)
	}

	dependents := v.DependentViews()
	if len(dependents) > 0 {
		if !cascade {
			return werrors.ObjectInUse(name, dependents[0].Name())
		}
		for _, dep := range dependents {
			if err := c.DropView(dep.Name(), true); err != nil && !werrors.IsNotFound(err) {
				return err
			}
		}
	}

	v.removeFromDependencies()
	c.unregisterView(name)

	c.NextModificationID()
	c.ClearViewPlans()

	if err := c.store.Delete(viewKeyPrefix + name); err != nil {
		return werrors.NewStorageError("failed to delete view record").WithCause(err)
	}
	c.log.Info("Dropped view", "view", name, "cascade", cascade)
	return nil
}

// persistView writes a view's definition record.
func (c *Catalog) persistView(v *View) error {
	rec := viewRecord{
		Name:        v.Name(),
		ObjectID:    v.ObjectID(),
		QuerySQL:    v.QuerySQL(),
		ColumnNames: v.ColumnTemplates(),
		Comment:     v.Comment(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return werrors.InternalError("failed to encode view record").WithCause(err)
	}
	if err := c.store.Put(viewKeyPrefix+v.Name(), data); err != nil {
		return werrors.NewStorageError("failed to persist view").WithCause(err)
	}
	return nil
}

// createShadowTable registers a transient table standing in for a name
// that does not exist yet. It is used while compiling a potentially
// recursive view definition, so a self-reference has something to
// resolve against. Shadow tables are never persisted.
func (c *Catalog) createShadowTable(name string, cols []ColumnDef) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; ok {
		return nil, werrors.TableAlreadyExists(name)
	}
	if _, ok := c.views[name]; ok {
		return nil, werrors.TableAlreadyExists(name)
	}
	t := NewTable(c, c.allocateObjectID(), name, cols)
	c.tables[name] = t
	return t, nil
}

// destroyShadowTable removes a shadow table. It must always run after
// the compile attempt, whether or not compilation succeeded.
func (c *Catalog) destroyShadowTable(t *Table) {
	c.mu.Lock()
	if cur, ok := c.tables[t.Name()]; ok && cur == t {
		delete(c.tables, t.Name())
	}
	c.mu.Unlock()
}

// =============================================================================
// Sessions
// =============================================================================

// registerSession adds a session to the catalog's registry.
func (c *Catalog) registerSession(s *Session) {
	c.sessMu.Lock()
	c.sessions[s.ID()] = s
	c.sessMu.Unlock()
}

// unregisterSession removes a session from the registry.
func (c *Catalog) unregisterSession(s *Session) {
	c.sessMu.Lock()
	delete(c.sessions, s.ID())
	c.sessMu.Unlock()
}

// SessionCount returns the number of open sessions.
func (c *Catalog) SessionCount() int {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	return len(c.sessions)
}

// ClearViewPlans drops all cached view plans in every open session.
// Schema changes call this so no session keeps executing a plan built
// against the old schema. Clearing is whole-cache rather than per-view:
// plans are cheap to rebuild, and stale entries are also caught by the
// per-plan generation check on cache hits.
func (c *Catalog) ClearViewPlans() {
	c.sessMu.Lock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.sessMu.Unlock()

	for _, s := range sessions {
		s.clearPlans()
	}
}
