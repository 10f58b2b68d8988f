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
Package sql contains query compilation and evaluation.

Compilation Overview:
=====================

Compiling a query resolves every FROM clause to a DataSource, checks
every column reference, and derives the output column list. The result
is a CompiledQuery: the validated AST plus its resolved sources and
columns, ready to evaluate any number of times. Views hold a
CompiledQuery; so do cached view plans.

Name resolution order:
 1. The session's temporary views (WITH-clause views shadow the catalog)
 2. Catalog tables
 3. Catalog views

An unresolvable name reports "table or view not found", deliberately
not revealing which kind was expected.

Output column derivation, in order of precedence per projection:
 1. The column name list given at view creation (positional template)
 2. An explicit alias (AS name or a bare alias)
 3. A plain column reference's own name
 4. The rendered expression text

When compilation is asked to require aliases (view creation does this),
case 4 is an error instead: an expression projection must be named,
either by an alias or a column template.
*/
package sql

import (
	"strconv"
	"strings"

	werrors "wrendb/internal/errors"
	"wrendb/internal/storage"
)

// RowSet is an evaluated result: columns plus rows. All values are
// strings; the empty string is NULL.
type RowSet struct {
	Columns []ColumnDef
	Rows    [][]string
}

// clone returns a deep copy of the row set.
func (r *RowSet) clone() *RowSet {
	rows := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		c := make([]string, len(row))
		copy(c, row)
		rows[i] = c
	}
	return &RowSet{Columns: r.Columns, Rows: rows}
}

// compiledSelect is one compiled SELECT body (one UNION branch).
type compiledSelect struct {
	stmt    *SelectStmt
	source  DataSource // nil for a FROM-less SELECT
	columns []ColumnDef
}

// CompiledQuery is a fully resolved, validated query.
type CompiledQuery struct {
	stmt     *SelectStmt
	branches []*compiledSelect
	columns  []ColumnDef
	sources  []DataSource // deduped across branches
	planSQL  string
}

// Columns returns the output column definitions.
func (q *CompiledQuery) Columns() []ColumnDef { return q.columns }

// Sources returns the resolved sources, deduped, in first-use order.
func (q *CompiledQuery) Sources() []DataSource { return q.sources }

// PlanSQL returns the canonical rendering of the compiled query.
// Two queries that differ only in formatting produce the same PlanSQL.
func (q *CompiledQuery) PlanSQL() string { return q.planSQL }

// resolveSource resolves a FROM name for the session: temporary views
// first, then the catalog.
func resolveSource(sess *Session, name string) (DataSource, error) {
	if v, ok := sess.findTempView(name); ok {
		return v, nil
	}
	if src, ok := sess.catalog.FindDataSource(name); ok {
		return src, nil
	}
	return nil, werrors.TableOrViewNotFound(name)
}

// compileQuery compiles a parsed query against the session's
// resolution scope.
//
// templates, when non-empty, positionally renames the output columns;
// requireAliases makes unnamed expression projections an error.
func compileQuery(sess *Session, stmt *SelectStmt, templates []string, requireAliases bool) (*CompiledQuery, error) {
	q := &CompiledQuery{stmt: stmt}
	seen := make(map[string]bool)

	for body := stmt; body != nil; {
		branch, err := compileSelectBody(sess, body, requireAliases && body == stmt)
		if err != nil {
			return nil, err
		}
		q.branches = append(q.branches, branch)
		if branch.source != nil && !seen[branch.source.Name()] {
			seen[branch.source.Name()] = true
			q.sources = append(q.sources, branch.source)
		}
		if body.Union != nil {
			body = body.Union.Right
		} else {
			body = nil
		}
	}

	// All branches of a UNION must agree on column count.
	first := q.branches[0]
	for _, branch := range q.branches[1:] {
		if len(branch.columns) != len(first.columns) {
			return nil, werrors.ColumnCountMismatch(len(first.columns), len(branch.columns))
		}
	}

	q.columns = make([]ColumnDef, len(first.columns))
	copy(q.columns, first.columns)

	if len(templates) > 0 {
		if len(templates) != len(q.columns) {
			return nil, werrors.ColumnCountMismatch(len(templates), len(q.columns))
		}
		for i, name := range templates {
			q.columns[i].Name = name
		}
	}

	// ORDER BY keys must resolve against the first branch's source.
	for _, key := range stmt.OrderBy {
		if _, ok := key.Expr.(Literal); ok {
			continue // positional
		}
		if err := validateExpr(key.Expr, first.source, q.columns); err != nil {
			return nil, err
		}
	}

	q.planSQL = stmt.String()
	return q, nil
}

// compileSelectBody compiles one SELECT core.
func compileSelectBody(sess *Session, stmt *SelectStmt, requireAliases bool) (*compiledSelect, error) {
	branch := &compiledSelect{stmt: stmt}

	if stmt.TableName != "" {
		src, err := resolveSource(sess, stmt.TableName)
		if err != nil {
			return nil, err
		}
		branch.source = src
	}

	for _, item := range stmt.Items {
		if _, isStar := item.Expr.(Star); isStar {
			if branch.source == nil {
				return nil, werrors.NewSyntaxError("SELECT * requires a FROM clause")
			}
			branch.columns = append(branch.columns, branch.source.Columns()...)
			continue
		}

		if err := validateExpr(item.Expr, branch.source, nil); err != nil {
			return nil, err
		}

		col := ColumnDef{Type: exprType(item.Expr, branch.source)}
		switch {
		case item.Alias != "":
			col.Name = item.Alias
		default:
			if ref, ok := item.Expr.(ColumnRef); ok {
				col.Name = ref.Name
			} else if requireAliases {
				return nil, werrors.ColumnAliasRequired(item.Expr.String())
			} else {
				col.Name = item.Expr.String()
			}
		}
		branch.columns = append(branch.columns, col)
	}

	if stmt.Where != nil {
		if err := validateExpr(stmt.Where, branch.source, nil); err != nil {
			return nil, err
		}
	}

	return branch, nil
}

// validateExpr checks that every column reference in the expression
// resolves, against the source or (for ORDER BY) the output columns.
func validateExpr(expr Expr, source DataSource, extra []ColumnDef) error {
	switch e := expr.(type) {
	case ColumnRef:
		if source != nil {
			if e.Table != "" && e.Table != source.Name() {
				return werrors.ColumnNotFound(e.Name, e.Table)
			}
			for _, col := range source.Columns() {
				if col.Name == e.Name {
					return nil
				}
			}
		}
		for _, col := range extra {
			if col.Name == e.Name {
				return nil
			}
		}
		relation := ""
		if source != nil {
			relation = source.Name()
		}
		return werrors.ColumnNotFound(e.Name, relation)
	case BinaryExpr:
		if err := validateExpr(e.Left, source, extra); err != nil {
			return err
		}
		return validateExpr(e.Right, source, extra)
	case UnaryExpr:
		return validateExpr(e.Operand, source, extra)
	case IsNullExpr:
		return validateExpr(e.Operand, source, extra)
	}
	return nil
}

// exprType infers the output type of an expression.
func exprType(expr Expr, source DataSource) ColumnType {
	switch e := expr.(type) {
	case Literal:
		return e.Type
	case ColumnRef:
		if source != nil {
			for _, col := range source.Columns() {
				if col.Name == e.Name {
					return col.Type
				}
			}
		}
		return TypeTEXT
	case BinaryExpr:
		switch e.Op {
		case "AND", "OR", "=", "!=", "<", "<=", ">", ">=":
			return TypeBOOLEAN
		case "||":
			return TypeTEXT
		default: // arithmetic
			lt := exprType(e.Left, source)
			rt := exprType(e.Right, source)
			if lt == TypeFLOAT || rt == TypeFLOAT || e.Op == "/" {
				return TypeFLOAT
			}
			return TypeINT
		}
	case UnaryExpr:
		if e.Op == "NOT" {
			return TypeBOOLEAN
		}
		return exprType(e.Operand, source)
	case IsNullExpr:
		return TypeBOOLEAN
	}
	return TypeTEXT
}

// =============================================================================
// Evaluation
// =============================================================================

// run evaluates the compiled query. Views among the sources are read
// through the session's nested plan cache.
func (q *CompiledQuery) run(sess *Session) (*RowSet, error) {
	return q.runNested(sess, true)
}

// runNested evaluates the query; nested selects which plan cache
// partition view reads go through. The executor evaluates statements
// with nested false, everything below that point is nested.
func (q *CompiledQuery) runNested(sess *Session, nested bool) (*RowSet, error) {
	result := &RowSet{Columns: q.columns}
	coll := sess.catalog.Collator()

	// UNION without ALL anywhere in the chain, and DISTINCT, both
	// dedupe the combined result.
	distinct := q.stmt.Distinct
	for _, branch := range q.branches {
		if branch.stmt.Union != nil && !branch.stmt.Union.All {
			distinct = true
		}
	}

	dedupe := make(map[string]struct{})
	for _, branch := range q.branches {
		rows, err := branch.eval(sess, coll, nested)
		if err != nil {
			return nil, err
		}
		if distinct {
			rows = dedupeRows(rows, dedupe)
		}
		result.Rows = append(result.Rows, rows...)
	}

	if len(q.stmt.OrderBy) > 0 {
		if err := sortRows(result, q.stmt.OrderBy, coll); err != nil {
			return nil, err
		}
	}

	// OFFSET then LIMIT.
	if q.stmt.Offset > 0 {
		if q.stmt.Offset >= len(result.Rows) {
			result.Rows = nil
		} else {
			result.Rows = result.Rows[q.stmt.Offset:]
		}
	}
	if q.stmt.Limit >= 0 && q.stmt.Limit < len(result.Rows) {
		result.Rows = result.Rows[:q.stmt.Limit]
	}

	return result, nil
}

// eval evaluates one branch: scan, filter, project.
func (b *compiledSelect) eval(sess *Session, coll storage.Collator, nested bool) ([][]string, error) {
	var sourceRows [][]string
	var sourceCols []ColumnDef
	if b.source != nil {
		var err error
		if v, ok := b.source.(*View); ok {
			masks := computeMasks(b.stmt.Where, v.Columns())
			sourceRows, err = v.readThroughPlan(sess, masks, nested)
		} else {
			sourceRows, err = b.source.ReadRows(sess)
		}
		if err != nil {
			return nil, err
		}
		sourceCols = b.source.Columns()
	} else {
		// FROM-less SELECT evaluates once over an empty row.
		sourceRows = [][]string{nil}
	}

	colIdx := make(map[string]int, len(sourceCols))
	for i, col := range sourceCols {
		colIdx[col.Name] = i
	}

	var out [][]string
	for _, row := range sourceRows {
		if b.stmt.Where != nil {
			val, null, err := evalExpr(b.stmt.Where, sourceCols, colIdx, row, coll)
			if err != nil {
				return nil, err
			}
			if null || val != "true" {
				continue
			}
		}

		projected := make([]string, 0, len(b.columns))
		for _, item := range b.stmt.Items {
			if _, isStar := item.Expr.(Star); isStar {
				projected = append(projected, row...)
				continue
			}
			val, null, err := evalExpr(item.Expr, sourceCols, colIdx, row, coll)
			if err != nil {
				return nil, err
			}
			if null {
				val = ""
			}
			projected = append(projected, val)
		}
		out = append(out, projected)
	}
	return out, nil
}

// dedupeRows filters rows already present in seen, updating seen.
func dedupeRows(rows [][]string, seen map[string]struct{}) [][]string {
	var out [][]string
	for _, row := range rows {
		key := strings.Join(row, "\x00")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// sortRows orders the result in place per the ORDER BY keys.
// A positional key (ORDER BY 1) indexes the output columns.
func sortRows(rs *RowSet, keys []OrderKey, coll storage.Collator) error {
	type sortKey struct {
		col  int
		typ  ColumnType
		desc bool
	}
	resolved := make([]sortKey, 0, len(keys))
	for _, key := range keys {
		sk := sortKey{desc: key.Desc}
		switch e := key.Expr.(type) {
		case Literal:
			pos, err := strconv.Atoi(e.Value)
			if err != nil || pos < 1 || pos > len(rs.Columns) {
				return werrors.NewSyntaxError("ORDER BY position out of range: " + e.Value)
			}
			sk.col = pos - 1
		case ColumnRef:
			idx := -1
			for i, col := range rs.Columns {
				if col.Name == e.Name {
					idx = i
					break
				}
			}
			if idx < 0 {
				return werrors.ColumnNotFound(e.Name, "")
			}
			sk.col = idx
		default:
			return werrors.NewSyntaxError("unsupported ORDER BY expression: " + key.Expr.String())
		}
		sk.typ = rs.Columns[sk.col].Type
		resolved = append(resolved, sk)
	}

	stableSortRows(rs.Rows, func(a, b []string) int {
		for _, sk := range resolved {
			cmp := CompareValues(sk.typ, a[sk.col], b[sk.col], coll)
			if sk.desc {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp
			}
		}
		return 0
	})
	return nil
}

// stableSortRows is an insertion sort; row counts here are small and
// stability matters for deterministic output.
func stableSortRows(rows [][]string, cmp func(a, b []string) int) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && cmp(rows[j-1], rows[j]) > 0; j-- {
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

// evalExpr evaluates an expression for one row.
// Returns the value, whether it is NULL, and any evaluation error.
func evalExpr(expr Expr, cols []ColumnDef, colIdx map[string]int, row []string, coll storage.Collator) (string, bool, error) {
	switch e := expr.(type) {
	case Literal:
		if e.Null {
			return "", true, nil
		}
		return e.Value, false, nil

	case ColumnRef:
		idx, ok := colIdx[e.Name]
		if !ok || idx >= len(row) {
			return "", false, werrors.ColumnNotFound(e.Name, "")
		}
		v := row[idx]
		return v, v == "", nil

	case IsNullExpr:
		_, null, err := evalExpr(e.Operand, cols, colIdx, row, coll)
		if err != nil {
			return "", false, err
		}
		if null != e.Negate {
			return "true", false, nil
		}
		return "false", false, nil

	case UnaryExpr:
		val, null, err := evalExpr(e.Operand, cols, colIdx, row, coll)
		if err != nil || null {
			return "", true, err
		}
		if e.Op == "NOT" {
			if val == "true" {
				return "false", false, nil
			}
			return "true", false, nil
		}
		// Unary minus.
		f, err2 := strconv.ParseFloat(val, 64)
		if err2 != nil {
			return "", false, werrors.TypeMismatch("number", val, "")
		}
		return formatNumber(-f, !strings.Contains(val, ".")), false, nil

	case BinaryExpr:
		return evalBinary(e, cols, colIdx, row, coll)
	}
	return "", false, werrors.InternalError("unknown expression type")
}

// evalBinary evaluates a binary expression with NULL propagation:
// NULL operands make comparisons and arithmetic NULL; logical AND/OR
// treat NULL as false.
func evalBinary(e BinaryExpr, cols []ColumnDef, colIdx map[string]int, row []string, coll storage.Collator) (string, bool, error) {
	lv, ln, err := evalExpr(e.Left, cols, colIdx, row, coll)
	if err != nil {
		return "", false, err
	}

	// Short-circuit logical operators.
	switch e.Op {
	case "AND":
		if ln || lv != "true" {
			return "false", false, nil
		}
		rv, rn, err := evalExpr(e.Right, cols, colIdx, row, coll)
		if err != nil {
			return "", false, err
		}
		if rn || rv != "true" {
			return "false", false, nil
		}
		return "true", false, nil
	case "OR":
		if !ln && lv == "true" {
			return "true", false, nil
		}
		rv, rn, err := evalExpr(e.Right, cols, colIdx, row, coll)
		if err != nil {
			return "", false, err
		}
		if !rn && rv == "true" {
			return "true", false, nil
		}
		return "false", false, nil
	}

	rv, rn, err := evalExpr(e.Right, cols, colIdx, row, coll)
	if err != nil {
		return "", false, err
	}
	if ln || rn {
		return "", true, nil
	}

	switch e.Op {
	case "=", "!=", "<", "<=", ">", ">=":
		t := compareType(e.Left, e.Right, cols, colIdx)
		cmp := CompareValues(t, lv, rv, coll)
		var truth bool
		switch e.Op {
		case "=":
			truth = cmp == 0
		case "!=":
			truth = cmp != 0
		case "<":
			truth = cmp < 0
		case "<=":
			truth = cmp <= 0
		case ">":
			truth = cmp > 0
		case ">=":
			truth = cmp >= 0
		}
		if truth {
			return "true", false, nil
		}
		return "false", false, nil

	case "||":
		return lv + rv, false, nil

	case "+", "-", "*", "/":
		lf, lerr := strconv.ParseFloat(lv, 64)
		rf, rerr := strconv.ParseFloat(rv, 64)
		if lerr != nil || rerr != nil {
			return "", false, werrors.TypeMismatch("number", lv+" "+e.Op+" "+rv, "")
		}
		var out float64
		switch e.Op {
		case "+":
			out = lf + rf
		case "-":
			out = lf - rf
		case "*":
			out = lf * rf
		case "/":
			if rf == 0 {
				return "", true, nil // division by zero yields NULL
			}
			out = lf / rf
		}
		wantInt := e.Op != "/" &&
			!strings.Contains(lv, ".") && !strings.Contains(rv, ".")
		return formatNumber(out, wantInt), false, nil
	}
	return "", false, werrors.InternalError("unknown operator: " + e.Op)
}

// compareType picks the column type governing a comparison: a column
// reference's declared type wins over literal inference.
func compareType(left, right Expr, cols []ColumnDef, colIdx map[string]int) ColumnType {
	for _, side := range []Expr{left, right} {
		if ref, ok := side.(ColumnRef); ok {
			if idx, ok := colIdx[ref.Name]; ok && idx < len(cols) {
				return cols[idx].Type
			}
		}
	}
	if lit, ok := left.(Literal); ok {
		return lit.Type
	}
	if lit, ok := right.(Literal); ok {
		return lit.Type
	}
	return TypeTEXT
}

// formatNumber renders a numeric result, keeping integers integral.
func formatNumber(f float64, wantInt bool) string {
	if wantInt && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
