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
Package cache provides a small bounded LRU cache for WrenDB.

LRU Cache Overview:
===================

The cache is a capacity-bounded map with least-recently-used eviction.
It is the building block behind the per-session view plan caches: each
session keeps two partitions (top-level query contexts and nested
contexts), and each partition is one LRU instance.

The cache itself knows nothing about expiry - staleness of a cached
value is the value's own concern. Callers check freshness on the value
they get back and overwrite stale entries with Put.

Features:
=========

  - LRU eviction when the cache is full
  - O(1) Get, Put, and Delete
  - Thread-safe operations
  - Clear for wholesale invalidation

Usage Example:
==============

	c := cache.New(64)
	c.Put(key, plan)
	if v, ok := c.Get(key); ok {
		plan := v.(*ViewPlan)
		...
	}
	c.Clear() // e.g. after a structural schema change
*/
package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 64

// entry is one cached key-value pair.
type entry struct {
	key   interface{}
	value interface{}
}

// LRU is a bounded cache with least-recently-used eviction.
// Keys must be comparable (usable as map keys).
//
// Thread Safety: all methods are safe for concurrent use.
type LRU struct {
	mu       sync.Mutex
	capacity int
	items    map[interface{}]*list.Element
	order    *list.List

	hits   int64
	misses int64
}

// New creates an LRU cache holding at most capacity entries.
func New(capacity int) *LRU {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU{
		capacity: capacity,
		items:    make(map[interface{}]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value cached under key, marking it most recently used.
func (c *LRU) Get(key interface{}) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return elem.Value.(*entry).value, true
}

// Put stores value under key, overwriting any previous value and
// evicting the least recently used entry if the cache is full.
func (c *LRU) Put(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry).value = value
		c.order.MoveToFront(elem)
		return
	}

	for len(c.items) >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(&entry{key: key, value: value})
	c.items[key] = elem
}

// Delete removes the entry under key, if present.
func (c *LRU) Delete(key interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// Clear discards every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[interface{}]*list.Element)
	c.order = list.New()
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictOldest removes the least recently used entry (must hold lock).
func (c *LRU) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

// Stats holds cache statistics.
type Stats struct {
	Hits     int64
	Misses   int64
	Entries  int
	Capacity int
}

// Stats returns current cache statistics.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Entries:  len(c.items),
		Capacity: c.capacity,
	}
}
