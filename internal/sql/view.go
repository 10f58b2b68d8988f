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
View Subsystem:
===============

A View is a named, stored query. Compiling the definition derives the
output columns and resolves the underlying sources; the view then
registers itself as a dependent on each source, so schema changes can
cascade recompilation to everything built on top.

Views survive definition failures. A view whose query no longer
compiles (a dropped table, a renamed column) stays in the catalog,
marked invalid with the causing error; reading it reports that error,
and a later recompile can heal it. CREATE FORCE VIEW creates a view in
this state deliberately, which is what makes dump/restore order
insensitive: the canonical CREATE statement for every view always says
FORCE.

Recursive views back WITH RECURSIVE table expressions. The definition
references the view's own name, so ordinary compilation cannot derive
its columns; instead a shadow table with the declared column names
briefly stands in for the view while the definition compiles. During
evaluation the view's work table holds the previous iteration's rows,
and the recursive branch reads those until it produces nothing new.
*/

package sql

import (
	"math"
	"strings"
	"sync"

	werrors "wrendb/internal/errors"
)

// ViewRowCountApproximation is the planning row-count estimate for a
// view. The real count is unknowable without running the query.
const ViewRowCountApproximation = 100

// View is a stored query registered in the catalog, or a temporary
// view owned by a single session (a WITH-clause table expression).
type View struct {
	catalog  *Catalog
	objectID int64
	name     string

	mu              sync.RWMutex
	querySQL        string
	columnTemplates []string
	comment         string

	query           *CompiledQuery
	columns         []ColumnDef
	tables          []DataSource
	createException *werrors.Error
	recursive       bool
	temporary       bool
	owner           *Session
	generation      int64

	// Modification tracking, memoized against the catalog counter.
	maxDataModificationID int64
	lastModificationCheck int64

	// Work table for recursive evaluation; non-nil only while an
	// evaluation is in progress.
	recursiveResult *RowSet

	depMu      sync.Mutex
	dependents map[*View]struct{}
}

// newView constructs a view without compiling it. The caller follows
// up with initColumnsAndTables.
func newView(catalog *Catalog, objectID int64, name, querySQL string, columnTemplates []string, comment string) *View {
	return &View{
		catalog:         catalog,
		objectID:        objectID,
		name:            name,
		querySQL:        querySQL,
		columnTemplates: columnTemplates,
		comment:         comment,
		dependents:      make(map[*View]struct{}),
	}
}

// Name returns the view name.
func (v *View) Name() string { return v.name }

// ObjectID returns the catalog object identifier.
func (v *View) ObjectID() int64 { return v.objectID }

// IsView reports true.
func (v *View) IsView() bool { return true }

// QuerySQL returns the definition query text, verbatim as written.
func (v *View) QuerySQL() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.querySQL
}

// ColumnTemplates returns the column name list given at creation, or
// nil when the names are derived from the query.
func (v *View) ColumnTemplates() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.columnTemplates
}

// Comment returns the view comment, or "".
func (v *View) Comment() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.comment
}

// Columns returns the derived output columns. For an invalid view
// these are placeholders so the view can still be introspected.
func (v *View) Columns() []ColumnDef {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.columns
}

// IsValid reports whether the definition compiled.
func (v *View) IsValid() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.createException == nil
}

// InvalidReason returns the compile error for an invalid view, nil
// otherwise.
func (v *View) InvalidReason() *werrors.Error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.createException
}

// IsRecursive reports whether the definition references its own name.
func (v *View) IsRecursive() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.recursive
}

// IsTemporary reports whether the view is session-scoped.
func (v *View) IsTemporary() bool { return v.temporary }

// Generation returns the compile generation, bumped on every
// (re)compile. Cached plans carry the generation they were built
// against and expire when it moves.
func (v *View) Generation() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.generation
}

// RowCountApproximation returns the fixed planning estimate.
func (v *View) RowCountApproximation() int { return ViewRowCountApproximation }

// =============================================================================
// Compilation
// =============================================================================

// parseViewQuery parses a view definition, which must be a query.
func parseViewQuery(querySQL string) (*SelectStmt, error) {
	stmt, err := ParseStatement(querySQL)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		return nil, werrors.NewSyntaxError("view definition must be a query")
	}
	return sel, nil
}

// compileViewQuery parses and compiles the current definition in the
// given session's scope. A WITH clause in the definition materializes
// its table expressions for the duration of the compile.
func (v *View) compileViewQuery(sess *Session) (*CompiledQuery, error) {
	v.mu.RLock()
	querySQL := v.querySQL
	templates := v.columnTemplates
	v.mu.RUnlock()

	sel, err := parseViewQuery(querySQL)
	if err != nil {
		return nil, err
	}
	if sel.With != nil {
		cleanup, err := materializeWith(sess, sel.With)
		if err != nil {
			return nil, err
		}
		defer cleanup()
	}
	return compileQuery(sess, sel, templates, len(templates) == 0)
}

// initColumnsAndTables compiles the definition and installs the
// result: derived columns, resolved sources, dependency edges.
//
// On failure the view stays registered but invalid: the error is
// recorded, the columns fall back to placeholders, and no dependency
// edges are held. The error is also returned so a non-FORCE caller
// can refuse the definition.
func (v *View) initColumnsAndTables(sess *Session) error {
	v.removeFromDependencies()

	q, err := v.compileViewQuery(sess)

	v.mu.Lock()
	v.generation++
	v.recursive = false
	v.lastModificationCheck = 0
	if err != nil {
		v.createException = werrors.AsError(err)
		v.query = nil
		v.tables = nil
		v.columns = fallbackColumns(v.columnTemplates)
		v.mu.Unlock()
		return err
	}
	v.createException = nil
	v.query = q
	// Store the compiler's canonical rendering, so two definitions
	// that differ only in formatting regenerate identical SQL.
	v.querySQL = q.PlanSQL()
	v.columns = q.Columns()
	v.tables = q.Sources()
	v.mu.Unlock()

	for _, t := range q.Sources() {
		t.AddDependentView(v)
	}
	return nil
}

// fallbackColumns builds placeholder columns for an invalid view: the
// declared names when there are any, otherwise a single unknown
// column.
func fallbackColumns(templates []string) []ColumnDef {
	if len(templates) == 0 {
		return []ColumnDef{{Name: "X", Type: TypeTEXT}}
	}
	cols := make([]ColumnDef, len(templates))
	for i, name := range templates {
		cols[i] = ColumnDef{Name: name, Type: TypeTEXT}
	}
	return cols
}

// isRecursiveQueryDetected reports whether a compile error looks like
// a reference to this view's own name: a not-found error whose message
// names the view. Self-reference cannot be told apart from a genuinely
// missing object any other way at this point, because the view does
// not exist yet while its definition first compiles.
func (v *View) isRecursiveQueryDetected(err error) bool {
	if !werrors.IsNotFound(err) {
		return false
	}
	return strings.Contains(err.Error(), `"`+v.name+`"`)
}

// =============================================================================
// Lifecycle
// =============================================================================

// CreateView creates a view per the statement, registering and
// persisting it.
//
// OR REPLACE swaps the definition of an existing view in place,
// preserving its identity and its dependents. FORCE keeps the view
// even when the definition does not compile.
func CreateView(sess *Session, stmt *CreateViewStmt) (*View, error) {
	c := sess.catalog

	if _, ok := c.GetTable(stmt.ViewName); ok {
		return nil, werrors.TableAlreadyExists(stmt.ViewName)
	}
	if existing, ok := c.GetView(stmt.ViewName); ok {
		if !stmt.OrReplace {
			return nil, werrors.ViewAlreadyExists(stmt.ViewName)
		}
		if err := existing.Replace(sess, stmt.QuerySQL, stmt.ColumnNames, stmt.Comment, stmt.Force); err != nil {
			return nil, err
		}
		return existing, nil
	}

	v := newView(c, c.allocateObjectID(), stmt.ViewName, stmt.QuerySQL, stmt.ColumnNames, stmt.Comment)
	if err := v.initColumnsAndTables(sess); err != nil && !stmt.Force {
		v.removeFromDependencies()
		return nil, err
	}
	c.registerView(v)
	if err := c.persistView(v); err != nil {
		c.unregisterView(v.name)
		v.removeFromDependencies()
		return nil, err
	}
	c.NextModificationID()
	c.ClearViewPlans()
	c.log.Info("Created view", "view", v.name, "valid", v.IsValid())
	return v, nil
}

// Replace swaps in a new definition.
//
// The swap is all or nothing: if the new definition does not compile,
// or any dependent view stops compiling against it, and force is
// false, the old definition is restored (dependents recompiled back
// against it) and the first error returned. With force every failure
// is swallowed; failing views simply become invalid.
func (v *View) Replace(sess *Session, querySQL string, templates []string, comment string, force bool) error {
	v.mu.Lock()
	oldSQL := v.querySQL
	oldTemplates := v.columnTemplates
	oldComment := v.comment
	v.querySQL = querySQL
	v.columnTemplates = templates
	v.comment = comment
	v.mu.Unlock()

	c := v.catalog
	if e := v.recompile(sess, force, make(map[*View]bool)); e != nil {
		v.mu.Lock()
		v.querySQL = oldSQL
		v.columnTemplates = oldTemplates
		v.comment = oldComment
		v.mu.Unlock()
		v.recompile(sess, true, make(map[*View]bool))
		c.ClearViewPlans()
		return e
	}

	if !v.temporary {
		if err := c.persistView(v); err != nil {
			return err
		}
	}
	c.NextModificationID()
	c.ClearViewPlans()
	c.log.Info("Replaced view", "view", v.name, "valid", v.IsValid())
	return nil
}

// Recompile recompiles the view and, transitively, every view that
// depends on it.
//
// Without force the view's stored text trial-compiles first: if that
// fails the view is left exactly as it was and the error returned, and
// the first dependent failure likewise stops the cascade and reports.
// With force errors are swallowed and failing views become invalid.
func (v *View) Recompile(sess *Session, force bool) error {
	e := v.recompile(sess, force, make(map[*View]bool))
	v.catalog.ClearViewPlans()
	if e != nil {
		return e
	}
	return nil
}

// recompile recompiles this view and recurses into its dependents.
// The returned error is nil under force; otherwise it is the first
// failure anywhere in the cascade. The trial compile comes first so a
// refused recompilation observes no mutation at all. visited guards
// against dependency cycles introduced by OR REPLACE.
func (v *View) recompile(sess *Session, force bool, visited map[*View]bool) *werrors.Error {
	if visited[v] {
		return nil
	}
	visited[v] = true

	if _, err := v.compileViewQuery(sess); err != nil && !force {
		return werrors.AsError(err)
	}

	deps := v.DependentViews()
	if err := v.initColumnsAndTables(sess); err != nil && force {
		v.catalog.log.Warn("View invalidated by dependency change",
			"view", v.name, "error", err.Error())
	}
	for _, dep := range deps {
		if e := dep.recompile(sess, force, visited); e != nil && !force {
			return e
		}
	}
	if force {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.createException
}

// removeFromDependencies drops this view's edges to its sources. The
// reverse edges (views depending on this one) are untouched.
func (v *View) removeFromDependencies() {
	v.mu.Lock()
	tables := v.tables
	v.tables = nil
	v.mu.Unlock()
	for _, t := range tables {
		t.RemoveDependentView(v)
	}
}

// AddDependentView registers a view built on this one.
func (v *View) AddDependentView(dep *View) {
	v.depMu.Lock()
	v.dependents[dep] = struct{}{}
	v.depMu.Unlock()
}

// RemoveDependentView unregisters a dependent.
func (v *View) RemoveDependentView(dep *View) {
	v.depMu.Lock()
	delete(v.dependents, dep)
	v.depMu.Unlock()
}

// DependentViews returns the views directly built on this one, in
// creation order so cascades are deterministic.
func (v *View) DependentViews() []*View {
	v.depMu.Lock()
	deps := make([]*View, 0, len(v.dependents))
	for dep := range v.dependents {
		deps = append(deps, dep)
	}
	v.depMu.Unlock()
	for i := 1; i < len(deps); i++ {
		for j := i; j > 0 && deps[j-1].objectID > deps[j].objectID; j-- {
			deps[j-1], deps[j] = deps[j], deps[j-1]
		}
	}
	return deps
}

// =============================================================================
// SQL regeneration
// =============================================================================

// CreateSQL returns the canonical CREATE statement for the view.
// It always says FORCE: a dump replayed in arbitrary order must be
// able to recreate views before the objects they reference.
func (v *View) CreateSQL() string { return v.createSQL(false, true) }

func (v *View) createSQL(orReplace, force bool) string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var b strings.Builder
	b.WriteString("CREATE ")
	if orReplace {
		b.WriteString("OR REPLACE ")
	}
	if force {
		b.WriteString("FORCE ")
	}
	b.WriteString("VIEW ")
	b.WriteString(QuoteIdent(v.name))
	if v.comment != "" {
		b.WriteString(" COMMENT ")
		b.WriteString(QuoteString(v.comment))
	}
	if len(v.columnTemplates) > 0 {
		b.WriteString("(")
		for i, name := range v.columnTemplates {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(QuoteIdent(name))
		}
		b.WriteString(")")
	}
	b.WriteString(" AS\n")
	b.WriteString(v.querySQL)
	return b.String()
}

// DropSQL returns the statement that removes the view.
func (v *View) DropSQL() string {
	return "DROP VIEW IF EXISTS " + QuoteIdent(v.name) + " CASCADE"
}

// =============================================================================
// Reading
// =============================================================================

// MaxDataModificationID returns the highest modification counter among
// the underlying sources. The walk is memoized: it reruns only when
// the catalog counter has moved since the last check. An invalid or
// uncompiled view reports the maximal counter, so any result computed
// over it always looks stale.
func (v *View) MaxDataModificationID() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.createException != nil || v.query == nil {
		return math.MaxInt64
	}
	dbMod := v.catalog.CurrentModificationID()
	if dbMod > v.lastModificationCheck && v.maxDataModificationID <= dbMod {
		max := int64(0)
		for _, t := range v.tables {
			if m := t.MaxDataModificationID(); m > max {
				max = m
			}
		}
		v.maxDataModificationID = max
		v.lastModificationCheck = dbMod
	}
	return v.maxDataModificationID
}

// ReadRows evaluates the view with no predicate context. Reads from
// inside query evaluation go through readThroughPlan directly with
// real masks.
func (v *View) ReadRows(sess *Session) ([][]string, error) {
	return v.readThroughPlan(sess, make([]int, len(v.Columns())), true)
}

// readThroughPlan evaluates the view through the session's plan cache.
// nested selects the cache partition: direct reads and reads from
// inside another view's evaluation are cached separately.
func (v *View) readThroughPlan(sess *Session, masks []int, nested bool) ([][]string, error) {
	v.mu.RLock()
	invalid := v.createException
	recursive := v.recursive
	work := v.recursiveResult
	v.mu.RUnlock()

	if invalid != nil {
		return nil, werrors.ViewInvalid(v.CreateSQL(), invalid.Error())
	}
	if recursive {
		if work != nil {
			return cloneRows(work.Rows), nil
		}
		return v.evalRecursive(sess)
	}

	key := newPlanKey(v, masks)
	plan, ok := sess.getPlan(key, masks, nested)
	if !ok {
		v.mu.RLock()
		plan = &ViewPlan{
			view:       v,
			masks:      append([]int(nil), masks...),
			query:      v.query,
			generation: v.generation,
		}
		v.mu.RUnlock()
		sess.putPlan(key, plan, nested)
	}

	rs, err := plan.query.run(sess)
	if err != nil {
		return nil, err
	}
	return rs.Rows, nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		c := make([]string, len(row))
		copy(c, row)
		out[i] = c
	}
	return out
}

// =============================================================================
// Recursive views
// =============================================================================

// markRecursive converts a view compiled against its shadow table into
// a recursive one: the shadow-derived columns stay, the compiled query
// and its (shadow) dependency edges do not.
func (v *View) markRecursive() {
	v.removeFromDependencies()
	v.mu.Lock()
	v.recursive = true
	v.query = nil
	v.createException = nil
	v.generation++
	v.mu.Unlock()
}

// CreateViewMaybeRecursive creates a view whose definition may
// reference its own name.
//
// The definition first compiles normally. If that fails with a
// not-found error naming this view, a shadow table with the declared
// columns briefly stands in for the view, the definition compiles
// against it to derive columns, the shadow is destroyed, and the view
// is marked recursive. Any other failure is an ordinary invalid
// definition.
func CreateViewMaybeRecursive(sess *Session, objectID int64, name, querySQL string, columnNames []string, temporary bool) (*View, error) {
	c := sess.catalog

	v := newView(c, objectID, name, querySQL, columnNames, "")
	v.temporary = temporary
	if temporary {
		v.owner = sess
	}

	err := v.initColumnsAndTables(sess)
	if err == nil {
		return v, nil
	}
	if !v.isRecursiveQueryDetected(err) || len(columnNames) == 0 {
		return nil, err
	}

	shadowCols := make([]ColumnDef, len(columnNames))
	for i, colName := range columnNames {
		shadowCols[i] = ColumnDef{Name: colName, Type: TypeTEXT}
	}
	shadow, err := c.createShadowTable(name, shadowCols)
	if err != nil {
		return nil, err
	}
	defer c.destroyShadowTable(shadow)

	if err := v.initColumnsAndTables(sess); err != nil {
		return nil, err
	}

	// The shadow bears the view's own name, so a compiled query that
	// reads it is genuinely self-referential. If compilation succeeded
	// without touching the shadow the definition is an ordinary view
	// after all.
	v.mu.RLock()
	usedShadow := false
	for _, t := range v.tables {
		if t == DataSource(shadow) {
			usedShadow = true
			break
		}
	}
	v.mu.RUnlock()
	if !usedShadow {
		return v, nil
	}

	v.markRecursive()
	return v, nil
}

// createTempViewFromCTE materializes one WITH-clause table expression
// as a session temporary view.
func createTempViewFromCTE(sess *Session, cte CommonTableExpr, recursive bool) (*View, error) {
	if _, ok := sess.findTempView(cte.Name); ok {
		return nil, werrors.ViewAlreadyExists(cte.Name)
	}
	c := sess.catalog

	var v *View
	var err error
	if recursive {
		v, err = CreateViewMaybeRecursive(sess, c.allocateObjectID(), cte.Name, cte.QuerySQL, cte.Columns, true)
	} else {
		v = newView(c, c.allocateObjectID(), cte.Name, cte.QuerySQL, cte.Columns, "")
		v.temporary = true
		v.owner = sess
		err = v.initColumnsAndTables(sess)
	}
	if err != nil {
		return nil, err
	}
	sess.addTempView(v)
	return v, nil
}

// materializeWith creates temporary views for every table expression
// in a WITH clause, in order, so later expressions can reference
// earlier ones. The returned cleanup removes them again. A nil clause
// is a no-op.
func materializeWith(sess *Session, with *WithClause) (func(), error) {
	if with == nil {
		return func() {}, nil
	}
	var created []*View
	cleanup := func() {
		for i := len(created) - 1; i >= 0; i-- {
			created[i].removeFromDependencies()
			sess.removeTempView(created[i].Name())
		}
	}
	for _, cte := range with.CTEs {
		v, err := createTempViewFromCTE(sess, cte, with.Recursive)
		if err != nil {
			cleanup()
			return nil, err
		}
		created = append(created, v)
	}
	return cleanup, nil
}

// evalRecursive runs the fixpoint evaluation of a recursive view.
//
// The definition splits at its first UNION into a seed branch and a
// recursive branch. The seed runs once; then the recursive branch runs
// repeatedly with the view's work table holding the previous
// iteration's rows, until an iteration contributes nothing new or the
// iteration limit stops a runaway recursion. Under plain UNION a row
// already produced does not count as new; under UNION ALL every
// produced row does.
func (v *View) evalRecursive(sess *Session) ([][]string, error) {
	v.mu.RLock()
	querySQL := v.querySQL
	columns := v.columns
	v.mu.RUnlock()

	stmt, err := parseViewQuery(querySQL)
	if err != nil {
		return nil, err
	}
	if stmt.Union == nil {
		return nil, werrors.NewSyntaxError(
			"recursive query must be a UNION of a seed branch and a recursive branch")
	}

	// The recursive branch resolves this view's name through the
	// session scope; make sure it is there even when the view is
	// embedded in a stored definition rather than this statement's
	// WITH clause.
	if _, ok := sess.findTempView(v.name); !ok {
		sess.addTempView(v)
		defer sess.removeTempView(v.name)
	}

	seed := *stmt
	seed.Union = nil
	seed.OrderBy = nil
	seed.Limit = -1
	seed.Offset = -1
	unionAll := stmt.Union.All
	recursivePart := stmt.Union.Right

	v.mu.Lock()
	if v.recursiveResult != nil {
		rows := cloneRows(v.recursiveResult.Rows)
		v.mu.Unlock()
		return rows, nil
	}
	v.recursiveResult = &RowSet{Columns: columns}
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.recursiveResult = nil
		v.mu.Unlock()
	}()

	seedQuery, err := compileQuery(sess, &seed, nil, false)
	if err != nil {
		return nil, err
	}
	if len(seedQuery.Columns()) != len(columns) {
		return nil, werrors.ColumnCountMismatch(len(columns), len(seedQuery.Columns()))
	}
	recQuery, err := compileQuery(sess, recursivePart, nil, false)
	if err != nil {
		return nil, err
	}
	if len(recQuery.Columns()) != len(columns) {
		return nil, werrors.ColumnCountMismatch(len(columns), len(recQuery.Columns()))
	}

	seen := make(map[string]struct{})
	seedResult, err := seedQuery.run(sess)
	if err != nil {
		return nil, err
	}
	delta := seedResult.Rows
	if !unionAll {
		delta = dedupeRows(delta, seen)
	}
	result := cloneRows(delta)

	limit := v.catalog.MaxRecursionDepth()
	for iteration := 0; len(delta) > 0; iteration++ {
		if iteration >= limit {
			return nil, werrors.RecursionTooDeep(v.name, limit)
		}

		v.mu.Lock()
		v.recursiveResult.Rows = delta
		v.mu.Unlock()

		produced, err := recQuery.run(sess)
		if err != nil {
			return nil, err
		}
		delta = produced.Rows
		if !unionAll {
			delta = dedupeRows(delta, seen)
		}
		result = append(result, cloneRows(delta)...)
	}

	// Final ORDER BY / LIMIT / OFFSET apply to the whole result.
	if len(stmt.OrderBy) > 0 || stmt.Limit >= 0 || stmt.Offset > 0 {
		rs := &RowSet{Columns: columns, Rows: result}
		if len(stmt.OrderBy) > 0 {
			if err := sortRows(rs, stmt.OrderBy, sess.catalog.Collator()); err != nil {
				return nil, err
			}
		}
		if stmt.Offset > 0 {
			if stmt.Offset >= len(rs.Rows) {
				rs.Rows = nil
			} else {
				rs.Rows = rs.Rows[stmt.Offset:]
			}
		}
		if stmt.Limit >= 0 && stmt.Limit < len(rs.Rows) {
			rs.Rows = rs.Rows[:stmt.Limit]
		}
		result = rs.Rows
	}

	return result, nil
}
