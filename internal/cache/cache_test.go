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

package cache

import "testing"

func TestLRUBasic(t *testing.T) {
	c := New(8)

	c.Put("a", 1)

	v, ok := c.Get("a")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if v.(int) != 1 {
		t.Errorf("Expected 1, got %v", v)
	}

	_, ok = c.Get("b")
	if ok {
		t.Error("Expected cache miss")
	}
}

func TestLRUOverwrite(t *testing.T) {
	c := New(8)

	c.Put("a", 1)
	c.Put("a", 2)

	v, ok := c.Get("a")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if v.(int) != 2 {
		t.Errorf("Expected 2 after overwrite, got %v", v)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(3)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Access "a" to make it recently used.
	c.Get("a")

	// Adding a fourth entry should evict "b" (least recently used).
	c.Put("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("Expected a to still be cached")
	}
	if _, ok := c.Get("d"); !ok {
		t.Error("Expected d to be cached")
	}
}

func TestLRUDelete(t *testing.T) {
	c := New(8)

	c.Put("a", 1)
	c.Delete("a")
	c.Delete("never-existed")

	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss after Delete")
	}
}

func TestLRUClear(t *testing.T) {
	c := New(8)

	c.Put("a", 1)
	c.Put("b", 2)

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected 0 entries after Clear, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Expected miss after Clear")
	}
}

func TestLRUStructKeys(t *testing.T) {
	type key struct {
		Hash uint64
		ID   int64
	}
	c := New(8)

	c.Put(key{Hash: 7, ID: 1}, "plan")

	v, ok := c.Get(key{Hash: 7, ID: 1})
	if !ok {
		t.Fatal("Expected hit for equal struct key")
	}
	if v.(string) != "plan" {
		t.Errorf("Expected 'plan', got %v", v)
	}
	if _, ok := c.Get(key{Hash: 7, ID: 2}); ok {
		t.Error("Expected miss for different struct key")
	}
}

func TestLRUStats(t *testing.T) {
	c := New(4)

	c.Put("a", 1)
	c.Get("a")
	c.Get("b")

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("Expected 1 entry, got %d", stats.Entries)
	}
	if stats.Capacity != 4 {
		t.Errorf("Expected capacity 4, got %d", stats.Capacity)
	}
}
