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

	"wrendb/internal/config"
	werrors "wrendb/internal/errors"
	"wrendb/internal/storage"
)

func testCatalogWithStore(t *testing.T, store storage.Engine) *Catalog {
	t.Helper()
	cfg := config.DefaultConfig()
	c, err := NewCatalog(store, cfg)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	return testCatalogWithStore(t, storage.NewMemStore())
}

// mustCreateTable creates a table with rows for test setup.
func mustCreateTable(t *testing.T, c *Catalog, name string, cols []ColumnDef, rows [][]string) *Table {
	t.Helper()
	tbl, err := c.CreateTable(name, cols)
	if err != nil {
		t.Fatalf("CreateTable %s: %v", name, err)
	}
	for _, row := range rows {
		if err := tbl.InsertRow(row); err != nil {
			t.Fatalf("InsertRow %s %v: %v", name, row, err)
		}
	}
	return tbl
}

// mustCreateView creates a valid view for test setup.
func mustCreateView(t *testing.T, sess *Session, name, querySQL string) *View {
	t.Helper()
	v, err := CreateView(sess, &CreateViewStmt{ViewName: name, QuerySQL: querySQL})
	if err != nil {
		t.Fatalf("CreateView %s: %v", name, err)
	}
	return v
}

func usersColumns() []ColumnDef {
	return []ColumnDef{
		{Name: "id", Type: TypeINT},
		{Name: "name", Type: TypeTEXT},
		{Name: "active", Type: TypeBOOLEAN},
	}
}

func usersRows() [][]string {
	return [][]string{
		{"1", "alice", "true"},
		{"2", "bob", "false"},
		{"3", "carol", "true"},
	}
}

func TestCatalogCreateTable(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), usersRows())

	tbl, ok := c.GetTable("users")
	if !ok {
		t.Fatal("table not registered")
	}
	if tbl.RowCount() != 3 {
		t.Errorf("rows = %d, want 3", tbl.RowCount())
	}

	if _, err := c.CreateTable("users", usersColumns()); werrors.GetCode(err) != werrors.ErrCodeTableAlreadyExists {
		t.Errorf("duplicate create: got %v", err)
	}
}

func TestCatalogPersistence(t *testing.T) {
	store := storage.NewMemStore()
	c := testCatalogWithStore(t, store)
	mustCreateTable(t, c, "users", usersColumns(), usersRows())
	sess := NewSession(c, "admin")
	defer sess.Close()
	mustCreateView(t, sess, "actives", "SELECT id, name FROM users WHERE active = TRUE")

	// A second catalog over the same store sees everything.
	c2 := testCatalogWithStore(t, store)
	tbl, ok := c2.GetTable("users")
	if !ok {
		t.Fatal("table lost on reload")
	}
	if tbl.RowCount() != 3 {
		t.Errorf("rows = %d after reload, want 3", tbl.RowCount())
	}
	v, ok := c2.GetView("actives")
	if !ok {
		t.Fatal("view lost on reload")
	}
	if !v.IsValid() {
		t.Fatalf("reloaded view invalid: %v", v.InvalidReason())
	}
	if v.QuerySQL() != "SELECT id, name FROM users WHERE active = TRUE" {
		t.Errorf("QuerySQL changed on reload: %q", v.QuerySQL())
	}

	sess2 := NewSession(c2, "admin")
	defer sess2.Close()
	rows, err := v.ReadRows(sess2)
	if err != nil {
		t.Fatalf("ReadRows after reload: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
}

func TestCatalogReloadInvalidView(t *testing.T) {
	store := storage.NewMemStore()
	c := testCatalogWithStore(t, store)
	sess := NewSession(c, "admin")
	defer sess.Close()

	// FORCE creates a view over a table that does not exist.
	created, err := CreateView(sess, &CreateViewStmt{
		ViewName: "broken",
		Force:    true,
		QuerySQL: "SELECT * FROM missing",
	})
	if err != nil {
		t.Fatalf("FORCE must accept a broken definition: %v", err)
	}
	if created.IsValid() {
		t.Fatal("view over a missing table cannot be valid")
	}
	if created.InvalidReason() == nil {
		t.Fatal("invalid view must carry its compile error")
	}

	// Reload: the record survives, still invalid.
	c2 := testCatalogWithStore(t, store)
	v, ok := c2.GetView("broken")
	if !ok {
		t.Fatal("invalid view lost on reload")
	}
	if v.IsValid() {
		t.Error("view should still be invalid after reload")
	}

	// Creating the missing table and recompiling heals it.
	mustCreateTable(t, c2, "missing", usersColumns(), nil)
	sess2 := NewSession(c2, "admin")
	defer sess2.Close()
	if err := v.Recompile(sess2, false); err != nil {
		t.Fatalf("Recompile after creating the table: %v", err)
	}
	if !v.IsValid() {
		t.Error("view should be valid after recompile")
	}
}

func TestCatalogDropTableRestrict(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()
	mustCreateView(t, sess, "v1", "SELECT id FROM users")

	err := c.DropTable("users", false)
	if werrors.GetCode(err) != werrors.ErrCodeObjectInUse {
		t.Fatalf("expected object-in-use, got %v", err)
	}
	if _, ok := c.GetTable("users"); !ok {
		t.Error("refused drop must leave the table in place")
	}
}

func TestCatalogDropTableCascade(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()
	mustCreateView(t, sess, "v1", "SELECT id FROM users")
	mustCreateView(t, sess, "v2", "SELECT id FROM v1")

	if err := c.DropTable("users", true); err != nil {
		t.Fatalf("cascade drop: %v", err)
	}
	if _, ok := c.GetView("v1"); ok {
		t.Error("v1 should be dropped by cascade")
	}
	if _, ok := c.GetView("v2"); ok {
		t.Error("v2 should be dropped transitively")
	}
}

func TestCatalogDropViewRestrict(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), nil)
	sess := NewSession(c, "admin")
	defer sess.Close()
	mustCreateView(t, sess, "v1", "SELECT id FROM users")
	mustCreateView(t, sess, "v2", "SELECT id FROM v1")

	if err := c.DropView("v1", false); werrors.GetCode(err) != werrors.ErrCodeObjectInUse {
		t.Fatalf("expected object-in-use, got %v", err)
	}
	if err := c.DropView("v2", false); err != nil {
		t.Fatalf("dropping the leaf: %v", err)
	}
	if err := c.DropView("v1", false); err != nil {
		t.Fatalf("dropping v1 after its dependent is gone: %v", err)
	}
}

func TestCatalogModificationCounter(t *testing.T) {
	c := testCatalog(t)
	before := c.CurrentModificationID()
	tbl := mustCreateTable(t, c, "users", usersColumns(), nil)
	if err := tbl.InsertRow([]string{"1", "alice", "true"}); err != nil {
		t.Fatal(err)
	}
	if c.CurrentModificationID() <= before {
		t.Error("insert must advance the modification counter")
	}
	if tbl.MaxDataModificationID() == 0 {
		t.Error("table must report its last modification")
	}
}

func TestShadowTableLifecycle(t *testing.T) {
	c := testCatalog(t)
	shadow, err := c.createShadowTable("ghost", []ColumnDef{{Name: "x", Type: TypeTEXT}})
	if err != nil {
		t.Fatalf("createShadowTable: %v", err)
	}
	if _, ok := c.GetTable("ghost"); !ok {
		t.Fatal("shadow table must resolve while it exists")
	}
	c.destroyShadowTable(shadow)
	if _, ok := c.GetTable("ghost"); ok {
		t.Fatal("shadow table must vanish after destroy")
	}
	// Shadow tables are never persisted.
	c2 := testCatalogWithStore(t, storage.NewMemStore())
	if _, ok := c2.GetTable("ghost"); ok {
		t.Fatal("shadow table leaked to storage")
	}
}
