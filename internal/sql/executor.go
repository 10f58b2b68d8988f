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

package sql

import (
	"fmt"
	"strings"

	"wrendb/internal/auth"
	werrors "wrendb/internal/errors"
	"wrendb/internal/logging"
)

// Executor runs parsed statements against the catalog on behalf of a
// session.
type Executor struct {
	catalog *Catalog
	auth    *auth.Manager
	log     *logging.Logger
}

// Result is the outcome of executing one statement. Queries fill
// Columns and Rows; other statements fill Message.
type Result struct {
	Columns []string
	Rows    [][]string
	Message string
}

// NewExecutor creates an executor. authMgr may be nil, which disables
// access checks (embedded use).
func NewExecutor(catalog *Catalog, authMgr *auth.Manager) *Executor {
	return &Executor{
		catalog: catalog,
		auth:    authMgr,
		log:     logging.NewLogger("executor"),
	}
}

// Execute parses and runs one statement.
func (e *Executor) Execute(sess *Session, input string) (*Result, error) {
	stmt, err := ParseStatement(input)
	if err != nil {
		return nil, werrors.AsError(err).AddSQL(input)
	}
	res, err := e.executeStatement(sess, stmt)
	if err != nil {
		return nil, werrors.AsError(err).AddSQL(input)
	}
	return res, nil
}

func (e *Executor) executeStatement(sess *Session, stmt Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *SelectStmt:
		return e.executeSelect(sess, s)
	case *CreateTableStmt:
		return e.executeCreateTable(sess, s)
	case *DropTableStmt:
		return e.executeDropTable(sess, s)
	case *CreateViewStmt:
		return e.executeCreateView(sess, s)
	case *DropViewStmt:
		return e.executeDropView(sess, s)
	case *AlterViewStmt:
		return e.executeAlterView(sess, s)
	case *InsertStmt:
		return e.executeInsert(sess, s)
	case *CreateUserStmt:
		return e.executeCreateUser(sess, s)
	case *AlterUserStmt:
		return e.executeAlterUser(sess, s)
	case *DropUserStmt:
		return e.executeDropUser(sess, s)
	case *GrantStmt:
		return e.executeGrant(sess, s)
	case *RevokeStmt:
		return e.executeRevoke(sess, s)
	}
	return nil, werrors.InternalError(fmt.Sprintf("unhandled statement type %T", stmt))
}

// checkAccess verifies the session's user may read the named object.
// Reading a view needs a grant on the view, not on its base tables;
// that is what makes views usable as restricted projections.
func (e *Executor) checkAccess(sess *Session, object string) error {
	if e.auth == nil {
		return nil
	}
	if !e.auth.CheckAccess(sess.User(), object) {
		return werrors.NewValidationError("access denied").
			WithDetail("user " + sess.User() + " has no SELECT privilege on " + object).
			WithHint("GRANT SELECT ON " + object + " TO " + sess.User())
	}
	return nil
}

// checkAdmin verifies the session's user may change the schema.
func (e *Executor) checkAdmin(sess *Session) error {
	if e.auth == nil {
		return nil
	}
	if !auth.IsAdmin(sess.User()) {
		return werrors.NewValidationError("administrator privileges required").
			WithDetail("user: " + sess.User())
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

func (e *Executor) executeSelect(sess *Session, stmt *SelectStmt) (*Result, error) {
	// WITH-clause table expressions live for this statement only.
	if stmt.With != nil {
		cleanup, err := materializeWith(sess, stmt.With)
		if err != nil {
			return nil, err
		}
		defer cleanup()
	}

	for body := stmt; body != nil; {
		if body.TableName != "" {
			if _, isTemp := sess.findTempView(body.TableName); !isTemp {
				if err := e.checkAccess(sess, body.TableName); err != nil {
					return nil, err
				}
			}
		}
		if body.Union != nil {
			body = body.Union.Right
		} else {
			body = nil
		}
	}

	q, err := compileQuery(sess, stmt, nil, false)
	if err != nil {
		return nil, err
	}

	// Views named directly in this statement's FROM clauses go
	// through the top-level plan cache partition; views read during
	// another view's evaluation use the nested partition.
	rs, err := q.runNested(sess, false)
	if err != nil {
		return nil, err
	}

	res := &Result{Rows: rs.Rows}
	for _, col := range rs.Columns {
		res.Columns = append(res.Columns, col.Name)
	}
	return res, nil
}

// =============================================================================
// Tables
// =============================================================================

func (e *Executor) executeCreateTable(sess *Session, stmt *CreateTableStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	if _, err := e.catalog.CreateTable(stmt.TableName, stmt.Columns); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Table %s created", stmt.TableName)}, nil
}

func (e *Executor) executeDropTable(sess *Session, stmt *DropTableStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	err := e.catalog.DropTable(stmt.TableName, stmt.Cascade)
	if err != nil {
		if stmt.IfExists && werrors.IsNotFound(err) {
			return &Result{Message: fmt.Sprintf("Table %s does not exist, skipped", stmt.TableName)}, nil
		}
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Table %s dropped", stmt.TableName)}, nil
}

func (e *Executor) executeInsert(sess *Session, stmt *InsertStmt) (*Result, error) {
	if err := e.checkAccess(sess, stmt.TableName); err != nil {
		return nil, err
	}
	t, ok := e.catalog.GetTable(stmt.TableName)
	if !ok {
		if _, isView := e.catalog.GetView(stmt.TableName); isView {
			return nil, werrors.UnsupportedOperation("VIEW")
		}
		return nil, werrors.TableNotFound(stmt.TableName)
	}

	cols := t.Columns()
	for _, row := range stmt.Rows {
		values, err := orderInsertValues(t, cols, stmt.Columns, row)
		if err != nil {
			return nil, err
		}
		if err := t.InsertRow(values); err != nil {
			return nil, err
		}
	}
	return &Result{Message: fmt.Sprintf("%d row(s) inserted", len(stmt.Rows))}, nil
}

// orderInsertValues maps a VALUES tuple onto the table's column order,
// honoring an explicit column list. Unlisted columns get NULL.
func orderInsertValues(t *Table, cols []ColumnDef, names []string, row []Literal) ([]string, error) {
	if len(names) == 0 {
		if len(row) != len(cols) {
			return nil, werrors.ColumnCountMismatch(len(cols), len(row))
		}
		values := make([]string, len(row))
		for i, lit := range row {
			if !lit.Null {
				values[i] = lit.Value
			}
		}
		return values, nil
	}

	if len(row) != len(names) {
		return nil, werrors.ColumnCountMismatch(len(names), len(row))
	}
	values := make([]string, len(cols))
	for i, name := range names {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, werrors.ColumnNotFound(name, t.Name())
		}
		if !row[i].Null {
			values[idx] = row[i].Value
		}
	}
	return values, nil
}

// =============================================================================
// Views
// =============================================================================

func (e *Executor) executeCreateView(sess *Session, stmt *CreateViewStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	v, err := CreateView(sess, stmt)
	if err != nil {
		return nil, err
	}
	if !v.IsValid() {
		return &Result{Message: fmt.Sprintf("View %s created (invalid: %s)",
			stmt.ViewName, v.InvalidReason().Error())}, nil
	}
	return &Result{Message: fmt.Sprintf("View %s created", stmt.ViewName)}, nil
}

func (e *Executor) executeDropView(sess *Session, stmt *DropViewStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	err := e.catalog.DropView(stmt.ViewName, stmt.Cascade)
	if err != nil {
		if stmt.IfExists && werrors.IsNotFound(err) {
			return &Result{Message: fmt.Sprintf("View %s does not exist, skipped", stmt.ViewName)}, nil
		}
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("View %s dropped", stmt.ViewName)}, nil
}

func (e *Executor) executeAlterView(sess *Session, stmt *AlterViewStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	v, ok := e.catalog.GetView(stmt.ViewName)
	if !ok {
		return nil, werrors.ViewNotFound(stmt.ViewName)
	}
	// Explicit recompile is fail-fast: a definition that no longer
	// compiles is reported, not silently left invalid.
	if err := v.Recompile(sess, false); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("View %s recompiled", stmt.ViewName)}, nil
}

// =============================================================================
// Users and privileges
// =============================================================================

func (e *Executor) executeCreateUser(sess *Session, stmt *CreateUserStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	if e.auth == nil {
		return nil, werrors.UnsupportedOperation("CREATE USER")
	}
	if err := e.auth.CreateUser(stmt.Username, stmt.Password); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("User %s created", stmt.Username)}, nil
}

func (e *Executor) executeAlterUser(sess *Session, stmt *AlterUserStmt) (*Result, error) {
	// Users may change their own password; everything else is admin.
	if !strings.EqualFold(sess.User(), stmt.Username) {
		if err := e.checkAdmin(sess); err != nil {
			return nil, err
		}
	}
	if e.auth == nil {
		return nil, werrors.UnsupportedOperation("ALTER USER")
	}
	if err := e.auth.AlterUser(stmt.Username, stmt.Password); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("User %s altered", stmt.Username)}, nil
}

func (e *Executor) executeDropUser(sess *Session, stmt *DropUserStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	if e.auth == nil {
		return nil, werrors.UnsupportedOperation("DROP USER")
	}
	if err := e.auth.DropUser(stmt.Username); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("User %s dropped", stmt.Username)}, nil
}

func (e *Executor) executeGrant(sess *Session, stmt *GrantStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	if e.auth == nil {
		return nil, werrors.UnsupportedOperation("GRANT")
	}
	if _, ok := e.catalog.FindDataSource(stmt.ObjectName); !ok {
		return nil, werrors.TableOrViewNotFound(stmt.ObjectName)
	}
	if err := e.auth.Grant(stmt.Username, stmt.ObjectName); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Granted SELECT on %s to %s", stmt.ObjectName, stmt.Username)}, nil
}

func (e *Executor) executeRevoke(sess *Session, stmt *RevokeStmt) (*Result, error) {
	if err := e.checkAdmin(sess); err != nil {
		return nil, err
	}
	if e.auth == nil {
		return nil, werrors.UnsupportedOperation("REVOKE")
	}
	if err := e.auth.Revoke(stmt.Username, stmt.ObjectName); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Revoked SELECT on %s from %s", stmt.ObjectName, stmt.Username)}, nil
}
