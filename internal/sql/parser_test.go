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
	"strings"
	"testing"

	werrors "wrendb/internal/errors"
)

func mustParse(t *testing.T, input string) Statement {
	t.Helper()
	stmt, err := ParseStatement(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return stmt
}

func TestParseCreateTable(t *testing.T) {
	stmt := mustParse(t, "CREATE TABLE users (id INT, name TEXT, active BOOLEAN)")
	ct, ok := stmt.(*CreateTableStmt)
	if !ok {
		t.Fatalf("expected *CreateTableStmt, got %T", stmt)
	}
	if ct.TableName != "users" {
		t.Errorf("table name = %q, want users", ct.TableName)
	}
	if len(ct.Columns) != 3 {
		t.Fatalf("columns = %d, want 3", len(ct.Columns))
	}
	if ct.Columns[1].Name != "name" || ct.Columns[1].Type != TypeTEXT {
		t.Errorf("column 1 = %+v, want name TEXT", ct.Columns[1])
	}
}

func TestParseCreateView(t *testing.T) {
	stmt := mustParse(t, "CREATE VIEW v AS SELECT id, name FROM users")
	cv, ok := stmt.(*CreateViewStmt)
	if !ok {
		t.Fatalf("expected *CreateViewStmt, got %T", stmt)
	}
	if cv.ViewName != "v" {
		t.Errorf("view name = %q, want v", cv.ViewName)
	}
	if cv.OrReplace || cv.Force {
		t.Errorf("unexpected OR REPLACE / FORCE flags: %+v", cv)
	}
	if cv.QuerySQL != "SELECT id, name FROM users" {
		t.Errorf("QuerySQL = %q, not captured verbatim", cv.QuerySQL)
	}
}

func TestParseCreateViewAllClauses(t *testing.T) {
	stmt := mustParse(t,
		"CREATE OR REPLACE FORCE VIEW v COMMENT 'top users' (uid, uname) AS SELECT id, name FROM users WHERE active = TRUE")
	cv := stmt.(*CreateViewStmt)
	if !cv.OrReplace {
		t.Error("OR REPLACE not parsed")
	}
	if !cv.Force {
		t.Error("FORCE not parsed")
	}
	if cv.Comment != "top users" {
		t.Errorf("comment = %q", cv.Comment)
	}
	if len(cv.ColumnNames) != 2 || cv.ColumnNames[0] != "uid" || cv.ColumnNames[1] != "uname" {
		t.Errorf("column names = %v", cv.ColumnNames)
	}
	if !strings.HasPrefix(cv.QuerySQL, "SELECT") || !strings.HasSuffix(cv.QuerySQL, "TRUE") {
		t.Errorf("QuerySQL = %q", cv.QuerySQL)
	}
}

func TestParseDropView(t *testing.T) {
	stmt := mustParse(t, "DROP VIEW IF EXISTS v CASCADE")
	dv, ok := stmt.(*DropViewStmt)
	if !ok {
		t.Fatalf("expected *DropViewStmt, got %T", stmt)
	}
	if !dv.IfExists || !dv.Cascade {
		t.Errorf("flags = %+v", dv)
	}

	stmt = mustParse(t, "DROP VIEW v RESTRICT")
	dv = stmt.(*DropViewStmt)
	if dv.IfExists || dv.Cascade {
		t.Errorf("flags = %+v, want neither", dv)
	}
}

func TestParseAlterViewRecompile(t *testing.T) {
	stmt := mustParse(t, "ALTER VIEW v RECOMPILE")
	av, ok := stmt.(*AlterViewStmt)
	if !ok {
		t.Fatalf("expected *AlterViewStmt, got %T", stmt)
	}
	if av.ViewName != "v" {
		t.Errorf("view name = %q", av.ViewName)
	}
}

func TestParseSelect(t *testing.T) {
	stmt := mustParse(t,
		"SELECT DISTINCT id, name AS who FROM users WHERE id > 10 AND active = TRUE ORDER BY name DESC LIMIT 5 OFFSET 2")
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		t.Fatalf("expected *SelectStmt, got %T", stmt)
	}
	if !sel.Distinct {
		t.Error("DISTINCT not parsed")
	}
	if len(sel.Items) != 2 || sel.Items[1].Alias != "who" {
		t.Errorf("items = %+v", sel.Items)
	}
	if sel.TableName != "users" {
		t.Errorf("table = %q", sel.TableName)
	}
	if sel.Where == nil {
		t.Fatal("WHERE not parsed")
	}
	if len(sel.OrderBy) != 1 || !sel.OrderBy[0].Desc {
		t.Errorf("order by = %+v", sel.OrderBy)
	}
	if sel.Limit != 5 || sel.Offset != 2 {
		t.Errorf("limit/offset = %d/%d", sel.Limit, sel.Offset)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3")
	sel := stmt.(*SelectStmt)
	top, ok := sel.Where.(BinaryExpr)
	if !ok || top.Op != "OR" {
		t.Fatalf("expected OR at the top, got %v", sel.Where)
	}
	right, ok := top.Right.(BinaryExpr)
	if !ok || right.Op != "AND" {
		t.Fatalf("expected AND under OR, got %v", top.Right)
	}
}

func TestParseUnionChain(t *testing.T) {
	stmt := mustParse(t, "SELECT a FROM t UNION ALL SELECT a FROM u UNION SELECT a FROM w ORDER BY 1")
	sel := stmt.(*SelectStmt)
	if sel.Union == nil || !sel.Union.All {
		t.Fatal("first UNION ALL not parsed")
	}
	second := sel.Union.Right
	if second.Union == nil || second.Union.All {
		t.Fatal("second UNION not parsed as plain UNION")
	}
	if len(sel.OrderBy) != 1 {
		t.Errorf("ORDER BY should attach to the whole chain, got %+v", sel.OrderBy)
	}
}

func TestParseWithClause(t *testing.T) {
	stmt := mustParse(t,
		"WITH RECURSIVE cnt(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM cnt WHERE n < 3) SELECT n FROM cnt")
	sel := stmt.(*SelectStmt)
	if sel.With == nil || !sel.With.Recursive {
		t.Fatal("WITH RECURSIVE not parsed")
	}
	if len(sel.With.CTEs) != 1 {
		t.Fatalf("CTEs = %d, want 1", len(sel.With.CTEs))
	}
	cte := sel.With.CTEs[0]
	if cte.Name != "cnt" || len(cte.Columns) != 1 || cte.Columns[0] != "n" {
		t.Errorf("CTE = %+v", cte)
	}
	if !strings.Contains(cte.QuerySQL, "UNION ALL") {
		t.Errorf("CTE QuerySQL = %q, inner UNION lost", cte.QuerySQL)
	}
	if sel.TableName != "cnt" {
		t.Errorf("main body FROM = %q", sel.TableName)
	}
}

func TestParseInsertMultiRow(t *testing.T) {
	stmt := mustParse(t, "INSERT INTO t (a, b) VALUES (1, 'x'), (2, NULL)")
	ins, ok := stmt.(*InsertStmt)
	if !ok {
		t.Fatalf("expected *InsertStmt, got %T", stmt)
	}
	if len(ins.Columns) != 2 || len(ins.Rows) != 2 {
		t.Fatalf("columns/rows = %d/%d", len(ins.Columns), len(ins.Rows))
	}
	if !ins.Rows[1][1].Null {
		t.Error("NULL literal not parsed")
	}
}

func TestParseQuotedIdentKeepsCase(t *testing.T) {
	stmt := mustParse(t, `SELECT "Select" FROM "My Table"`)
	sel := stmt.(*SelectStmt)
	if sel.TableName != "My Table" {
		t.Errorf("table = %q", sel.TableName)
	}
	ref, ok := sel.Items[0].Expr.(ColumnRef)
	if !ok || ref.Name != "Select" {
		t.Errorf("item = %+v", sel.Items[0].Expr)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"CREATE VIEW",
		"CREATE VIEW v SELECT 1",
		"SELECT FROM t",
		"SELECT * FROM t WHERE",
		"DROP",
		"SELECT * FROM t extra",
	}
	for _, input := range cases {
		if _, err := ParseStatement(input); err == nil {
			t.Errorf("parse %q: expected error", input)
		} else if !werrors.IsSyntaxError(err) {
			t.Errorf("parse %q: expected a syntax error, got %v", input, err)
		}
	}
}

func TestSelectStringRoundTrip(t *testing.T) {
	input := "SELECT a, b FROM t WHERE (a = 1) ORDER BY b LIMIT 10"
	stmt := mustParse(t, input)
	rendered := stmt.(*SelectStmt).String()
	reparsed := mustParse(t, rendered)
	if reparsed.(*SelectStmt).String() != rendered {
		t.Errorf("rendering is not a fixpoint:\n first: %s\nsecond: %s",
			rendered, reparsed.(*SelectStmt).String())
	}
}
