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
Package sql contains the Session component.

Session Overview:
=================

A Session is one client's connection-scoped state: its identity, its
temporary views (created by WITH clauses and visible only to it), and
its view plan caches.

Plan Cache Partitions:
======================

Each session keeps two LRU partitions for compiled view plans:

  - top: plans for views read directly by a statement's FROM clause
  - nested: plans for views read indirectly, while evaluating another
    view or a CTE

The split keeps a burst of nested lookups from evicting the plans of
the queries the client actually runs. Cache keys combine the view with
a hash of the predicate masks, so the same view filtered differently
gets separate plans. Hits verify the stored mask slice and the view's
compile generation; a recompiled view silently misses and is replanned.
*/
package sql

import (
	"sync"

	"github.com/google/uuid"

	"wrendb/internal/cache"
	werrors "wrendb/internal/errors"
	"wrendb/internal/logging"
)

// Session holds connection-scoped state: temp views and plan caches.
type Session struct {
	id      string
	user    string
	catalog *Catalog
	log     *logging.Logger

	mu          sync.Mutex
	tempViews   map[string]*View
	topPlans    *cache.LRU
	nestedPlans *cache.LRU
	closed      bool
}

// NewSession opens a session for the given user and registers it with
// the catalog, so schema changes can reach its plan caches.
func NewSession(catalog *Catalog, user string) *Session {
	s := newSystemSession(catalog)
	s.user = user
	catalog.registerSession(s)
	return s
}

// newSystemSession builds a session without registering it. The
// catalog uses one internally while loading persisted views.
func newSystemSession(catalog *Catalog) *Session {
	capacity := catalog.PlanCacheEntries()
	return &Session{
		id:          uuid.NewString(),
		user:        "system",
		catalog:     catalog,
		log:         logging.NewLogger("session"),
		tempViews:   make(map[string]*View),
		topPlans:    cache.New(capacity),
		nestedPlans: cache.New(capacity),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// User returns the authenticated username for this session.
func (s *Session) User() string { return s.user }

// Catalog returns the catalog this session operates on.
func (s *Session) Catalog() *Catalog { return s.catalog }

// Close tears down the session: temp views are unlinked from their
// dependencies, plan caches dropped, and the session unregistered.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	temps := make([]*View, 0, len(s.tempViews))
	for _, v := range s.tempViews {
		temps = append(temps, v)
	}
	s.tempViews = nil
	s.mu.Unlock()

	for _, v := range temps {
		v.removeFromDependencies()
	}
	s.topPlans.Clear()
	s.nestedPlans.Clear()
	s.catalog.unregisterSession(s)
}

// =============================================================================
// Temporary views
// =============================================================================

// addTempView makes a temporary view visible to this session.
// Temp views shadow catalog objects of the same name during resolution.
func (s *Session) addTempView(v *View) {
	s.mu.Lock()
	s.tempViews[v.Name()] = v
	s.mu.Unlock()
}

// removeTempView drops a temporary view from this session.
func (s *Session) removeTempView(name string) {
	s.mu.Lock()
	v, ok := s.tempViews[name]
	if ok {
		delete(s.tempViews, name)
	}
	s.mu.Unlock()
	if ok {
		v.removeFromDependencies()
	}
}

// findTempView looks up a temporary view by name.
func (s *Session) findTempView(name string) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tempViews[name]
	return v, ok
}

// =============================================================================
// Plan cache
// =============================================================================

// getPlan looks up a cached view plan. A hit is only returned when the
// stored mask slice matches value-for-value and the plan is still
// current for the view's compile generation.
func (s *Session) getPlan(key planKey, masks []int, nested bool) (*ViewPlan, bool) {
	partition := s.topPlans
	if nested {
		partition = s.nestedPlans
	}
	val, ok := partition.Get(key)
	if !ok {
		return nil, false
	}
	plan := val.(*ViewPlan)
	if !plan.matches(masks) || plan.expired() {
		partition.Delete(key)
		return nil, false
	}
	return plan, true
}

// putPlan stores a view plan in the appropriate partition.
func (s *Session) putPlan(key planKey, plan *ViewPlan, nested bool) {
	if nested {
		s.nestedPlans.Put(key, plan)
		return
	}
	s.topPlans.Put(key, plan)
}

// clearPlans drops both plan cache partitions.
func (s *Session) clearPlans() {
	s.topPlans.Clear()
	s.nestedPlans.Clear()
}

// PlanCacheStats returns hit/miss statistics for both partitions,
// top first.
func (s *Session) PlanCacheStats() (cache.Stats, cache.Stats) {
	return s.topPlans.Stats(), s.nestedPlans.Stats()
}

// Prepare parses and compiles a query without running it. Only query
// statements can be prepared. The compiled query holds direct
// references to its sources, so it stays runnable after any WITH
// clause's temporary views go out of scope.
func (s *Session) Prepare(input string) (*CompiledQuery, error) {
	stmt, err := ParseStatement(input)
	if err != nil {
		return nil, werrors.AsError(err).AddSQL(input)
	}
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		return nil, werrors.UnsupportedOperation("PREPARE").AddSQL(input)
	}
	cleanup, err := materializeWith(s, sel.With)
	if err != nil {
		return nil, werrors.AsError(err).AddSQL(input)
	}
	defer cleanup()
	q, err := compileQuery(s, sel, nil, false)
	if err != nil {
		return nil, werrors.AsError(err).AddSQL(input)
	}
	return q, nil
}
