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
	"testing"

	werrors "wrendb/internal/errors"
)

func compileFor(t *testing.T, sess *Session, sql string) *CompiledQuery {
	t.Helper()
	stmt := mustParse(t, sql).(*SelectStmt)
	q, err := compileQuery(sess, stmt, nil, false)
	if err != nil {
		t.Fatalf("compile %q: %v", sql, err)
	}
	return q
}

func TestCompileResolvesColumns(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()

	q := compileFor(t, sess, "SELECT * FROM users")
	if len(q.Columns()) != 3 {
		t.Errorf("star expansion: %v", q.Columns())
	}

	stmt := mustParse(t, "SELECT nope FROM users").(*SelectStmt)
	_, err := compileQuery(sess, stmt, nil, false)
	if werrors.GetCode(err) != werrors.ErrCodeColumnNotFound {
		t.Errorf("unknown column: got %v", err)
	}

	stmt = mustParse(t, "SELECT id FROM nowhere").(*SelectStmt)
	_, err = compileQuery(sess, stmt, nil, false)
	if werrors.GetCode(err) != werrors.ErrCodeTableOrViewNotFound {
		t.Errorf("unknown source: got %v", err)
	}
}

func TestCompileQualifiedColumn(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()

	q := compileFor(t, sess, "SELECT users.id FROM users")
	if q.Columns()[0].Name != "id" {
		t.Errorf("columns = %v", q.Columns())
	}

	stmt := mustParse(t, "SELECT other.id FROM users").(*SelectStmt)
	if _, err := compileQuery(sess, stmt, nil, false); werrors.GetCode(err) != werrors.ErrCodeColumnNotFound {
		t.Errorf("wrong qualifier: got %v", err)
	}
}

func TestCompileTypeInference(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()

	q := compileFor(t, sess,
		"SELECT id + 1 AS a, id / 2 AS b, name || '!' AS c, active AND TRUE AS d, id IS NULL AS e FROM users")
	want := []ColumnType{TypeINT, TypeFLOAT, TypeTEXT, TypeBOOLEAN, TypeBOOLEAN}
	for i, col := range q.Columns() {
		if col.Type != want[i] {
			t.Errorf("column %s type = %v, want %v", col.Name, col.Type, want[i])
		}
	}
}

func TestCompileUnionArity(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()

	stmt := mustParse(t, "SELECT id FROM users UNION SELECT id, name FROM users").(*SelectStmt)
	if _, err := compileQuery(sess, stmt, nil, false); werrors.GetCode(err) != werrors.ErrCodeColumnCountMismatch {
		t.Errorf("union arity: got %v", err)
	}
}

func TestCompilePlanSQLCanonical(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()

	a := compileFor(t, sess, "select   id   from users where id = 1")
	b := compileFor(t, sess, "SELECT id FROM users WHERE id = 1")
	if a.PlanSQL() != b.PlanSQL() {
		t.Errorf("formatting leaked into the plan:\n%q\n%q", a.PlanSQL(), b.PlanSQL())
	}
}

func TestEvalNullSemantics(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE t (x INT, y TEXT)")
	mustExec(t, exec, sess, "INSERT INTO t VALUES (1, 'a'), (NULL, 'b')")

	// NULL never compares equal, not even to itself.
	res := mustExec(t, exec, sess, "SELECT y FROM t WHERE x = x")
	if len(res.Rows) != 1 || res.Rows[0][0] != "a" {
		t.Errorf("rows = %v", res.Rows)
	}
	res = mustExec(t, exec, sess, "SELECT y FROM t WHERE x IS NULL")
	if len(res.Rows) != 1 || res.Rows[0][0] != "b" {
		t.Errorf("rows = %v", res.Rows)
	}
	res = mustExec(t, exec, sess, "SELECT y FROM t WHERE x IS NOT NULL")
	if len(res.Rows) != 1 || res.Rows[0][0] != "a" {
		t.Errorf("rows = %v", res.Rows)
	}
}

func TestEvalNumericComparison(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE t (x INT)")
	mustExec(t, exec, sess, "INSERT INTO t VALUES (2), (10)")

	// INT columns compare numerically, not lexicographically.
	res := mustExec(t, exec, sess, "SELECT x FROM t WHERE x > 9")
	if len(res.Rows) != 1 || res.Rows[0][0] != "10" {
		t.Errorf("rows = %v", res.Rows)
	}
	res = mustExec(t, exec, sess, "SELECT x FROM t ORDER BY x")
	if res.Rows[0][0] != "2" || res.Rows[1][0] != "10" {
		t.Errorf("order = %v", res.Rows)
	}
}

func TestEvalDivisionByZeroIsNull(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE t (x INT)")
	mustExec(t, exec, sess, "INSERT INTO t VALUES (4)")

	res := mustExec(t, exec, sess, "SELECT x / 0 AS q FROM t")
	if res.Rows[0][0] != "" {
		t.Errorf("x/0 = %q, want NULL", res.Rows[0][0])
	}
}

func TestSessionPrepare(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), usersRows())
	sess := NewSession(c, "admin")
	defer sess.Close()

	q, err := sess.Prepare("SELECT id, name FROM users WHERE active = true")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := len(q.Columns()); got != 2 {
		t.Fatalf("columns = %d", got)
	}

	// Non-query statements cannot be prepared.
	if _, err := sess.Prepare("DROP TABLE users"); err == nil {
		t.Fatal("expected error preparing DROP TABLE")
	}

	// A prepared query over a WITH clause stays runnable after the
	// temporary views go out of scope.
	q, err = sess.Prepare("WITH small AS (SELECT id FROM users WHERE id < 3) SELECT id FROM small")
	if err != nil {
		t.Fatalf("Prepare with CTE: %v", err)
	}
	if _, ok := sess.findTempView("small"); ok {
		t.Fatal("temporary view leaked past Prepare")
	}
	rs, err := q.run(sess)
	if err != nil {
		t.Fatalf("run prepared: %v", err)
	}
	if len(rs.Rows) != 2 {
		t.Errorf("rows = %v", rs.Rows)
	}
}
