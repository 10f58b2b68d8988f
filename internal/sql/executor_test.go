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

	"wrendb/internal/auth"
	werrors "wrendb/internal/errors"
	"wrendb/internal/storage"
)

// testExec wires a catalog, executor, and admin session together.
func testExec(t *testing.T) (*Executor, *Session) {
	t.Helper()
	c := testCatalog(t)
	exec := NewExecutor(c, nil)
	sess := NewSession(c, "admin")
	t.Cleanup(sess.Close)
	return exec, sess
}

func mustExec(t *testing.T, exec *Executor, sess *Session, sql string) *Result {
	t.Helper()
	res, err := exec.Execute(sess, sql)
	if err != nil {
		t.Fatalf("execute %q: %v", sql, err)
	}
	return res
}

func TestExecutorTableRoundTrip(t *testing.T) {
	exec, sess := testExec(t)

	mustExec(t, exec, sess, "CREATE TABLE users (id INT, name TEXT, active BOOLEAN)")
	mustExec(t, exec, sess, "INSERT INTO users VALUES (1, 'alice', TRUE), (2, 'bob', FALSE)")
	mustExec(t, exec, sess, "INSERT INTO users (name, id) VALUES ('carol', 3)")

	res := mustExec(t, exec, sess, "SELECT id, name FROM users ORDER BY id")
	if len(res.Rows) != 3 {
		t.Fatalf("rows = %v", res.Rows)
	}
	if res.Columns[0] != "id" || res.Columns[1] != "name" {
		t.Errorf("columns = %v", res.Columns)
	}
	if res.Rows[2][0] != "3" || res.Rows[2][1] != "carol" {
		t.Errorf("row 2 = %v", res.Rows[2])
	}

	// Unlisted column defaults to NULL.
	res = mustExec(t, exec, sess, "SELECT name FROM users WHERE active IS NULL")
	if len(res.Rows) != 1 || res.Rows[0][0] != "carol" {
		t.Errorf("rows = %v", res.Rows)
	}
}

func TestExecutorSelectFeatures(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE nums (n INT)")
	mustExec(t, exec, sess, "INSERT INTO nums VALUES (3), (1), (2), (2)")

	res := mustExec(t, exec, sess, "SELECT DISTINCT n FROM nums ORDER BY n DESC LIMIT 2")
	if len(res.Rows) != 2 || res.Rows[0][0] != "3" || res.Rows[1][0] != "2" {
		t.Errorf("rows = %v", res.Rows)
	}

	res = mustExec(t, exec, sess, "SELECT n FROM nums ORDER BY 1 OFFSET 3")
	if len(res.Rows) != 1 || res.Rows[0][0] != "3" {
		t.Errorf("rows = %v", res.Rows)
	}

	res = mustExec(t, exec, sess, "SELECT n * 2 AS double FROM nums WHERE n = 1")
	if len(res.Rows) != 1 || res.Rows[0][0] != "2" {
		t.Errorf("rows = %v", res.Rows)
	}

	res = mustExec(t, exec, sess, "SELECT 'n=' || n AS label FROM nums WHERE n > 2")
	if len(res.Rows) != 1 || res.Rows[0][0] != "n=3" {
		t.Errorf("rows = %v", res.Rows)
	}
}

func TestExecutorUnion(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE a (x INT)")
	mustExec(t, exec, sess, "CREATE TABLE b (x INT)")
	mustExec(t, exec, sess, "INSERT INTO a VALUES (1), (2)")
	mustExec(t, exec, sess, "INSERT INTO b VALUES (2), (3)")

	res := mustExec(t, exec, sess, "SELECT x FROM a UNION SELECT x FROM b ORDER BY x")
	if len(res.Rows) != 3 {
		t.Errorf("UNION rows = %v, want deduped 1,2,3", res.Rows)
	}

	res = mustExec(t, exec, sess, "SELECT x FROM a UNION ALL SELECT x FROM b")
	if len(res.Rows) != 4 {
		t.Errorf("UNION ALL rows = %v, want all 4", res.Rows)
	}
}

func TestExecutorViewLifecycle(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE users (id INT, name TEXT, active BOOLEAN)")
	mustExec(t, exec, sess, "INSERT INTO users VALUES (1, 'alice', TRUE), (2, 'bob', FALSE)")

	mustExec(t, exec, sess, "CREATE VIEW actives AS SELECT id, name FROM users WHERE active = TRUE")
	res := mustExec(t, exec, sess, "SELECT name FROM actives")
	if len(res.Rows) != 1 || res.Rows[0][0] != "alice" {
		t.Errorf("rows = %v", res.Rows)
	}

	// Redefinition needs OR REPLACE.
	if _, err := exec.Execute(sess, "CREATE VIEW actives AS SELECT id FROM users"); werrors.GetCode(err) != werrors.ErrCodeViewAlreadyExists {
		t.Errorf("duplicate view: got %v", err)
	}
	mustExec(t, exec, sess, "CREATE OR REPLACE VIEW actives AS SELECT name FROM users")
	res = mustExec(t, exec, sess, "SELECT * FROM actives")
	if len(res.Rows) != 2 {
		t.Errorf("rows after replace = %v", res.Rows)
	}

	mustExec(t, exec, sess, "DROP VIEW actives")
	if _, err := exec.Execute(sess, "SELECT * FROM actives"); !werrors.IsNotFound(err) {
		t.Errorf("after drop: got %v", err)
	}
	res = mustExec(t, exec, sess, "DROP VIEW IF EXISTS actives")
	if !strings.Contains(res.Message, "skipped") {
		t.Errorf("IF EXISTS message = %q", res.Message)
	}
}

func TestExecutorForceViewAndRecompile(t *testing.T) {
	exec, sess := testExec(t)

	res := mustExec(t, exec, sess, "CREATE FORCE VIEW v AS SELECT id FROM later")
	if !strings.Contains(res.Message, "invalid") {
		t.Errorf("message = %q, should report invalidity", res.Message)
	}
	if _, err := exec.Execute(sess, "SELECT * FROM v"); werrors.GetCode(err) != werrors.ErrCodeViewInvalid {
		t.Errorf("reading invalid view: got %v", err)
	}
	if _, err := exec.Execute(sess, "ALTER VIEW v RECOMPILE"); err == nil {
		t.Error("recompile of a broken view must fail")
	}

	mustExec(t, exec, sess, "CREATE TABLE later (id INT)")
	mustExec(t, exec, sess, "ALTER VIEW v RECOMPILE")
	mustExec(t, exec, sess, "INSERT INTO later VALUES (7)")
	res = mustExec(t, exec, sess, "SELECT * FROM v")
	if len(res.Rows) != 1 || res.Rows[0][0] != "7" {
		t.Errorf("rows = %v", res.Rows)
	}
}

func TestExecutorInsertIntoView(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE t (x INT)")
	mustExec(t, exec, sess, "CREATE VIEW v AS SELECT x FROM t")

	if _, err := exec.Execute(sess, "INSERT INTO v VALUES (1)"); werrors.GetCode(err) != werrors.ErrCodeUnsupportedOperation {
		t.Errorf("insert into view: got %v", err)
	}
}

func TestExecutorWithClause(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE nums (n INT)")
	mustExec(t, exec, sess, "INSERT INTO nums VALUES (1), (5), (9)")

	res := mustExec(t, exec, sess,
		"WITH big(n) AS (SELECT n FROM nums WHERE n > 3) SELECT n FROM big ORDER BY n")
	if len(res.Rows) != 2 || res.Rows[0][0] != "5" {
		t.Errorf("rows = %v", res.Rows)
	}

	// The table expression is gone after the statement.
	if _, err := exec.Execute(sess, "SELECT * FROM big"); !werrors.IsNotFound(err) {
		t.Errorf("temp view leaked: %v", err)
	}

	// A table expression shadows a catalog object of the same name.
	res = mustExec(t, exec, sess,
		"WITH nums(n) AS (SELECT 42) SELECT n FROM nums")
	if len(res.Rows) != 1 || res.Rows[0][0] != "42" {
		t.Errorf("shadowing rows = %v", res.Rows)
	}
}

func TestExecutorTypeValidation(t *testing.T) {
	exec, sess := testExec(t)
	mustExec(t, exec, sess, "CREATE TABLE t (x INT)")

	if _, err := exec.Execute(sess, "INSERT INTO t VALUES ('abc')"); werrors.GetCode(err) != werrors.ErrCodeTypeMismatch {
		t.Errorf("bad value: got %v", err)
	}
	if _, err := exec.Execute(sess, "INSERT INTO t VALUES (1, 2)"); werrors.GetCode(err) != werrors.ErrCodeColumnCountMismatch {
		t.Errorf("bad arity: got %v", err)
	}
}

func TestExecutorAccessControl(t *testing.T) {
	store := storage.NewMemStore()
	c := testCatalogWithStore(t, store)
	authMgr := auth.NewManager(store)
	if err := authMgr.CreateUser("reader", "secret-password"); err != nil {
		t.Fatal(err)
	}
	exec := NewExecutor(c, authMgr)

	admin := NewSession(c, auth.AdminUsername)
	defer admin.Close()
	mustExec(t, exec, admin, "CREATE TABLE secrets (id INT, payload TEXT)")
	mustExec(t, exec, admin, "INSERT INTO secrets VALUES (1, 'classified')")
	mustExec(t, exec, admin, "CREATE VIEW ids AS SELECT id FROM secrets")

	reader := NewSession(c, "reader")
	defer reader.Close()

	// No grant, no access.
	if _, err := exec.Execute(reader, "SELECT * FROM secrets"); err == nil {
		t.Fatal("read without grant must fail")
	}

	// A grant on the view opens the view, not the base table.
	mustExec(t, exec, admin, "GRANT SELECT ON ids TO reader")
	res := mustExec(t, exec, reader, "SELECT * FROM ids")
	if len(res.Rows) != 1 {
		t.Errorf("rows = %v", res.Rows)
	}
	if _, err := exec.Execute(reader, "SELECT * FROM secrets"); err == nil {
		t.Error("view grant must not expose the base table")
	}

	// Schema changes stay admin-only.
	if _, err := exec.Execute(reader, "CREATE TABLE mine (x INT)"); err == nil {
		t.Error("non-admin created a table")
	}
	if _, err := exec.Execute(reader, "DROP VIEW ids"); err == nil {
		t.Error("non-admin dropped a view")
	}

	mustExec(t, exec, admin, "REVOKE SELECT ON ids FROM reader")
	if _, err := exec.Execute(reader, "SELECT * FROM ids"); err == nil {
		t.Error("read after revoke must fail")
	}
}
