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

import "testing"

func whereOf(t *testing.T, sql string) Expr {
	t.Helper()
	stmt := mustParse(t, sql).(*SelectStmt)
	if stmt.Where == nil {
		t.Fatalf("no WHERE in %q", sql)
	}
	return stmt.Where
}

func TestComputeMasks(t *testing.T) {
	cols := []ColumnDef{
		{Name: "a", Type: TypeINT},
		{Name: "b", Type: TypeINT},
		{Name: "c", Type: TypeINT},
	}

	cases := []struct {
		sql  string
		want []int
	}{
		{"SELECT * FROM t WHERE a = 1", []int{MaskEquality, 0, 0}},
		{"SELECT * FROM t WHERE a > 1 AND a < 9", []int{MaskStart | MaskEnd, 0, 0}},
		{"SELECT * FROM t WHERE a = 1 AND b >= 2 AND c <= 3", []int{MaskEquality, MaskStart, MaskEnd}},
		// Flipped operands: 5 < b constrains b from below.
		{"SELECT * FROM t WHERE 5 < b", []int{0, MaskStart, 0}},
		// OR does not constrain columns on its own.
		{"SELECT * FROM t WHERE a = 1 OR b = 2", []int{0, 0, 0}},
		// Column-to-column comparison contributes nothing.
		{"SELECT * FROM t WHERE a = b", []int{0, 0, 0}},
		// Unknown column is ignored.
		{"SELECT * FROM t WHERE z = 1", []int{0, 0, 0}},
	}
	for _, tc := range cases {
		got := computeMasks(whereOf(t, tc.sql), cols)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: masks = %v", tc.sql, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: masks = %v, want %v", tc.sql, got, tc.want)
				break
			}
		}
	}

	if got := computeMasks(nil, cols); len(got) != 3 || got[0]|got[1]|got[2] != 0 {
		t.Errorf("nil WHERE: masks = %v", got)
	}
}

func TestMaskHashDistinguishes(t *testing.T) {
	a := maskHash([]int{MaskEquality, 0})
	b := maskHash([]int{0, MaskEquality})
	if a == b {
		t.Error("different mask vectors should hash differently")
	}
	if maskHash([]int{MaskEquality, 0}) != a {
		t.Error("hash must be deterministic")
	}
}

func TestPlanCacheHit(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), usersRows())
	sess := NewSession(c, "admin")
	defer sess.Close()
	v := mustCreateView(t, sess, "v", "SELECT id, name FROM users")

	masks := []int{MaskEquality, 0}
	if _, err := v.readThroughPlan(sess, masks, false); err != nil {
		t.Fatal(err)
	}
	if _, err := v.readThroughPlan(sess, masks, false); err != nil {
		t.Fatal(err)
	}

	top, _ := sess.PlanCacheStats()
	if top.Hits != 1 || top.Misses != 1 {
		t.Errorf("top cache hits/misses = %d/%d, want 1/1", top.Hits, top.Misses)
	}

	// Different masks are a different plan.
	if _, err := v.readThroughPlan(sess, []int{0, MaskEnd}, false); err != nil {
		t.Fatal(err)
	}
	top, _ = sess.PlanCacheStats()
	if top.Misses != 2 {
		t.Errorf("top cache misses = %d, want 2", top.Misses)
	}
}

func TestPlanCachePartitions(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), usersRows())
	sess := NewSession(c, "admin")
	defer sess.Close()
	v := mustCreateView(t, sess, "v", "SELECT id FROM users")

	masks := []int{0}
	if _, err := v.readThroughPlan(sess, masks, false); err != nil {
		t.Fatal(err)
	}
	if _, err := v.readThroughPlan(sess, masks, true); err != nil {
		t.Fatal(err)
	}

	top, nested := sess.PlanCacheStats()
	if top.Entries != 1 || nested.Entries != 1 {
		t.Errorf("entries top/nested = %d/%d, want 1/1: partitions must not share",
			top.Entries, nested.Entries)
	}
}

func TestPlanExpiresOnRecompile(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), usersRows())
	sess := NewSession(c, "admin")
	defer sess.Close()
	v := mustCreateView(t, sess, "v", "SELECT id FROM users")

	masks := []int{0}
	if _, err := v.readThroughPlan(sess, masks, true); err != nil {
		t.Fatal(err)
	}
	key := newPlanKey(v, masks)
	plan, ok := sess.getPlan(key, masks, true)
	if !ok {
		t.Fatal("plan should be cached")
	}
	if plan.expired() {
		t.Fatal("fresh plan reports expired")
	}

	if err := v.Recompile(sess, false); err != nil {
		t.Fatal(err)
	}
	if !plan.expired() {
		t.Error("plan must expire when the view recompiles")
	}
	// The stale entry is evicted on the next lookup.
	if _, ok := sess.getPlan(key, masks, true); ok {
		t.Error("expired plan returned from the cache")
	}
}

func TestPlanCacheClearedOnSchemaChange(t *testing.T) {
	c := testCatalog(t)
	mustCreateTable(t, c, "users", usersColumns(), usersRows())
	sess := NewSession(c, "admin")
	defer sess.Close()
	v := mustCreateView(t, sess, "v", "SELECT id FROM users")

	if _, err := v.readThroughPlan(sess, []int{0}, false); err != nil {
		t.Fatal(err)
	}
	top, _ := sess.PlanCacheStats()
	if top.Entries != 1 {
		t.Fatalf("entries = %d", top.Entries)
	}

	// Any schema change clears every session's caches, including
	// sessions that never touched the changed object.
	other := NewSession(c, "admin")
	defer other.Close()
	if _, err := v.readThroughPlan(other, []int{0}, false); err != nil {
		t.Fatal(err)
	}

	if _, err := c.CreateTable("unrelated", usersColumns()); err != nil {
		t.Fatal(err)
	}
	top, nested := sess.PlanCacheStats()
	if top.Entries != 0 || nested.Entries != 0 {
		t.Errorf("session caches not cleared: %d/%d", top.Entries, nested.Entries)
	}
	otherTop, _ := other.PlanCacheStats()
	if otherTop.Entries != 0 {
		t.Errorf("other session's cache not cleared: %d", otherTop.Entries)
	}
}

func TestPlanMatchGuardsHashCollision(t *testing.T) {
	plan := &ViewPlan{masks: []int{MaskEquality, MaskStart}}
	if !plan.matches([]int{MaskEquality, MaskStart}) {
		t.Error("identical masks must match")
	}
	if plan.matches([]int{MaskEquality}) {
		t.Error("shorter mask vector must not match")
	}
	if plan.matches([]int{MaskEquality, MaskEnd}) {
		t.Error("different masks must not match")
	}
}
