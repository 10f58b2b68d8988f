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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Predicate masks describe, per view column, what kind of conditions
// the enclosing query places on it. Two queries over the same view
// with the same masks can share a cached plan; different masks could
// plan differently, so they cache separately.
const (
	// MaskEquality marks a column compared for equality with a literal.
	MaskEquality = 1
	// MaskStart marks a lower-bound comparison (> or >=).
	MaskStart = 2
	// MaskEnd marks an upper-bound comparison (< or <=).
	MaskEnd = 4
)

// computeMasks derives the per-column mask vector for a WHERE clause
// over the given view columns. Only comparisons between a plain column
// reference and a literal contribute; conditions under OR or NOT are
// ignored because they do not constrain a column on their own.
func computeMasks(where Expr, columns []ColumnDef) []int {
	masks := make([]int, len(columns))
	if where == nil {
		return masks
	}
	collectMasks(where, columns, masks)
	return masks
}

func collectMasks(expr Expr, columns []ColumnDef, masks []int) {
	e, ok := expr.(BinaryExpr)
	if !ok {
		return
	}
	if e.Op == "AND" {
		collectMasks(e.Left, columns, masks)
		collectMasks(e.Right, columns, masks)
		return
	}

	ref, refLeft := e.Left.(ColumnRef)
	if !refLeft {
		r, ok := e.Right.(ColumnRef)
		if !ok {
			return
		}
		ref = r
	}
	lit := e.Right
	if !refLeft {
		lit = e.Left
	}
	if _, isLit := lit.(Literal); !isLit {
		return
	}

	idx := -1
	for i, col := range columns {
		if col.Name == ref.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	op := e.Op
	if !refLeft {
		// Flip the operator for "literal op column".
		switch op {
		case "<":
			op = ">"
		case "<=":
			op = ">="
		case ">":
			op = "<"
		case ">=":
			op = "<="
		}
	}
	switch op {
	case "=":
		masks[idx] |= MaskEquality
	case ">", ">=":
		masks[idx] |= MaskStart
	case "<", "<=":
		masks[idx] |= MaskEnd
	}
}

// maskHash hashes a mask vector to a fixed-size cache key component.
func maskHash(masks []int) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, m := range masks {
		binary.LittleEndian.PutUint64(buf[:], uint64(m))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// planKey identifies a cached view plan: the view plus the hash of the
// caller's predicate masks. Hash collisions are resolved by the plan's
// own mask comparison on lookup.
type planKey struct {
	view     *View
	maskHash uint64
}

func newPlanKey(view *View, masks []int) planKey {
	return planKey{view: view, maskHash: maskHash(masks)}
}

// ViewPlan is a compiled plan for reading a view under a particular
// predicate mask vector, cached per session.
type ViewPlan struct {
	view       *View
	masks      []int
	query      *CompiledQuery
	generation int64
}

// matches reports whether the plan was built for exactly these masks.
// Needed because the cache key stores only a hash of them.
func (p *ViewPlan) matches(masks []int) bool {
	if len(p.masks) != len(masks) {
		return false
	}
	for i, m := range p.masks {
		if m != masks[i] {
			return false
		}
	}
	return true
}

// expired reports whether the view has been recompiled since the plan
// was built. Sessions also clear their caches wholesale on schema
// changes; this is the backstop for plans cached before a change the
// wholesale clear did not reach.
func (p *ViewPlan) expired() bool {
	return p.generation != p.view.Generation()
}
