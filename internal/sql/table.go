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
Package sql contains the Table component and the DataSource abstraction.

DataSource Overview:
====================

A DataSource is anything a query can read rows from: a base table or a
view. Queries resolve FROM clauses to DataSources without caring which
kind they got, which is what makes views substitutable for tables.

Every DataSource also tracks the set of views defined over it. The
dependency edges are bidirectional: a view lists the sources it reads
(View.Dependencies), and each source lists the views that read it
(DependentViews). The two directions are kept in sync by the view
lifecycle code, and they drive recompilation cascades and DROP
protection.
*/
package sql

import (
	"sort"
	"strings"
	"sync"

	werrors "wrendb/internal/errors"
)

// DataSource is a named, columned source of rows: a table or a view.
type DataSource interface {
	// Name returns the object's name, unique within the catalog.
	Name() string

	// ObjectID returns the catalog-assigned id, unique per object and
	// increasing in creation order.
	ObjectID() int64

	// Columns returns the ordered column definitions.
	Columns() []ColumnDef

	// ReadRows returns the rows visible to the session.
	// For a table this is the stored data; for a view it is the result
	// of evaluating the view's query.
	ReadRows(sess *Session) ([][]string, error)

	// MaxDataModificationID returns the modification counter value of
	// the most recent data change visible through this source.
	MaxDataModificationID() int64

	// Dependent view tracking.
	AddDependentView(v *View)
	RemoveDependentView(v *View)
	DependentViews() []*View

	// IsView reports whether this source is a view.
	IsView() bool
}

// Table is a base table: an ordered list of columns and stored rows.
// All values are stored as strings; the column type governs validation
// and comparison. The empty string represents NULL.
//
// Thread Safety: all methods are safe for concurrent use.
type Table struct {
	name     string
	objectID int64
	columns  []ColumnDef
	catalog  *Catalog

	mu    sync.RWMutex
	rows  [][]string
	modID int64 // modification id of the last data change

	depMu      sync.Mutex
	dependents map[*View]struct{}
}

// NewTable creates a table. It does not register the table with the
// catalog or persist anything; the catalog does that.
func NewTable(catalog *Catalog, objectID int64, name string, columns []ColumnDef) *Table {
	return &Table{
		name:       name,
		objectID:   objectID,
		columns:    columns,
		catalog:    catalog,
		dependents: make(map[*View]struct{}),
	}
}

// Name implements DataSource.
func (t *Table) Name() string { return t.name }

// ObjectID implements DataSource.
func (t *Table) ObjectID() int64 { return t.objectID }

// Columns implements DataSource.
func (t *Table) Columns() []ColumnDef { return t.columns }

// IsView implements DataSource.
func (t *Table) IsView() bool { return false }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// ReadRows implements DataSource. The returned slice is a copy; the
// caller may mutate it freely.
func (t *Table) ReadRows(sess *Session) ([][]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		r := make([]string, len(row))
		copy(r, row)
		rows[i] = r
	}
	return rows, nil
}

// CreateSQL regenerates a CREATE TABLE statement that reproduces this
// table's definition.
func (t *Table) CreateSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(QuoteIdent(t.name))
	b.WriteString("(")
	for i, col := range t.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(col.Name))
		b.WriteString(" ")
		b.WriteString(string(col.Type))
	}
	b.WriteString(")")
	return b.String()
}

// DropSQL regenerates a statement that removes this table together with
// any dependent views.
func (t *Table) DropSQL() string {
	return "DROP TABLE IF EXISTS " + QuoteIdent(t.name) + " CASCADE"
}

// InsertSQL regenerates an INSERT statement for the given row. Empty
// strings render as NULL.
func (t *Table) InsertSQL(row []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(QuoteIdent(t.name))
	b.WriteString(" VALUES (")
	for i, v := range row {
		if i > 0 {
			b.WriteString(", ")
		}
		if v == "" {
			b.WriteString("NULL")
			continue
		}
		switch t.columns[i].Type {
		case TypeTEXT:
			b.WriteString(QuoteString(v))
		default:
			b.WriteString(v)
		}
	}
	b.WriteString(")")
	return b.String()
}

// RowCount returns the current number of rows.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// MaxDataModificationID implements DataSource.
func (t *Table) MaxDataModificationID() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modID
}

// InsertRow validates and stores one row. Values must match the column
// count; each value must validate against its column type.
func (t *Table) InsertRow(values []string) error {
	if len(values) != len(t.columns) {
		return werrors.ColumnCountMismatch(len(t.columns), len(values))
	}
	for i, v := range values {
		if err := t.columns[i].Type.ValidateValue(v); err != nil {
			return werrors.TypeMismatch(string(t.columns[i].Type), v, t.columns[i].Name)
		}
	}

	t.mu.Lock()
	row := make([]string, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	t.modID = t.catalog.NextModificationID()
	t.mu.Unlock()

	return t.catalog.persistTableRows(t)
}

// loadRows replaces the table contents during catalog load.
func (t *Table) loadRows(rows [][]string, modID int64) {
	t.mu.Lock()
	t.rows = rows
	t.modID = modID
	t.mu.Unlock()
}

// snapshotRows returns the rows without copying, for persistence.
// The caller must not mutate the result.
func (t *Table) snapshotRows() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

// AddDependentView implements DataSource.
func (t *Table) AddDependentView(v *View) {
	t.depMu.Lock()
	t.dependents[v] = struct{}{}
	t.depMu.Unlock()
}

// RemoveDependentView implements DataSource.
func (t *Table) RemoveDependentView(v *View) {
	t.depMu.Lock()
	delete(t.dependents, v)
	t.depMu.Unlock()
}

// DependentViews implements DataSource. The result is a stable
// snapshot ordered by object id, so cascades visit dependents in
// creation order.
func (t *Table) DependentViews() []*View {
	t.depMu.Lock()
	views := make([]*View, 0, len(t.dependents))
	for v := range t.dependents {
		views = append(views, v)
	}
	t.depMu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		return views[i].ObjectID() < views[j].ObjectID()
	})
	return views
}
