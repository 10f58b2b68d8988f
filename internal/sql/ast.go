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
Package sql contains the Abstract Syntax Tree (AST) definitions.

AST Overview:
=============

The AST is the output of the Parser and the input to the Executor.
Each SQL statement type has a corresponding AST node struct. All
statement nodes implement the Statement interface via the private
statementNode() marker method.

Expressions implement the Expr interface. Every expression can render
itself back to SQL via String(); the renderer produces one canonical
spelling regardless of how the input was written, which is what the
view machinery uses to regenerate column lists and plan text.
*/
package sql

import (
	"fmt"
	"strings"
)

// Statement is the interface implemented by all SQL statement AST nodes.
// The statementNode() marker method ensures only AST types from this
// package can be used as statements.
type Statement interface {
	statementNode()
}

// Expr is the interface implemented by all expression AST nodes.
type Expr interface {
	exprNode()
	// String renders the expression back to canonical SQL.
	String() string
}

// =============================================================================
// Identifier and literal rendering
// =============================================================================

// QuoteIdent renders an identifier for SQL output, double-quoting it
// when it would not survive re-parsing as a bare identifier.
func QuoteIdent(name string) string {
	if name == "" {
		return `""`
	}
	needsQuote := keywords[strings.ToUpper(name)]
	for i := 0; i < len(name) && !needsQuote; i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				needsQuote = true
			}
		default:
			needsQuote = true
		}
	}
	if needsQuote {
		return `"` + name + `"`
	}
	return name
}

// QuoteString renders a string literal with single quotes, doubling
// any embedded quote characters.
func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// =============================================================================
// Expressions
// =============================================================================

// Star represents the * projection in SELECT *.
type Star struct{}

func (Star) exprNode()      {}
func (Star) String() string { return "*" }

// ColumnRef references a column, optionally qualified by a table name.
type ColumnRef struct {
	Table string // Optional qualifier ("" if unqualified)
	Name  string
}

func (ColumnRef) exprNode() {}

func (c ColumnRef) String() string {
	if c.Table != "" {
		return QuoteIdent(c.Table) + "." + QuoteIdent(c.Name)
	}
	return QuoteIdent(c.Name)
}

// Literal is a constant value: number, string, boolean, or NULL.
// The Value field holds the storage representation; NULL is the empty
// value with Null set.
type Literal struct {
	Value string
	Type  ColumnType
	Null  bool
}

func (Literal) exprNode() {}

func (l Literal) String() string {
	if l.Null {
		return "NULL"
	}
	if l.Type == TypeTEXT {
		return QuoteString(l.Value)
	}
	return l.Value
}

// BinaryExpr is a two-operand expression: arithmetic (+ - * / ||),
// comparison (= != < <= > >=), or logical (AND, OR).
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (BinaryExpr) exprNode() {}

func (b BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")"
}

// UnaryExpr is a one-operand expression: NOT or unary minus.
type UnaryExpr struct {
	Op      string // "NOT" or "-"
	Operand Expr
}

func (UnaryExpr) exprNode() {}

func (u UnaryExpr) String() string {
	if u.Op == "NOT" {
		return "(NOT " + u.Operand.String() + ")"
	}
	return "(" + u.Op + u.Operand.String() + ")"
}

// IsNullExpr tests a value for NULL: expr IS [NOT] NULL.
type IsNullExpr struct {
	Operand Expr
	Negate  bool // true for IS NOT NULL
}

func (IsNullExpr) exprNode() {}

func (e IsNullExpr) String() string {
	if e.Negate {
		return "(" + e.Operand.String() + " IS NOT NULL)"
	}
	return "(" + e.Operand.String() + " IS NULL)"
}

// =============================================================================
// SELECT
// =============================================================================

// SelectItem is one projection in a SELECT list, optionally aliased.
type SelectItem struct {
	Expr  Expr
	Alias string // "" when no AS alias was given
}

// String renders the item including its alias.
func (s SelectItem) String() string {
	if s.Alias != "" {
		return s.Expr.String() + " AS " + QuoteIdent(s.Alias)
	}
	return s.Expr.String()
}

// OrderKey is one sort key in an ORDER BY clause.
type OrderKey struct {
	Expr Expr
	Desc bool
}

// UnionClause chains a further SELECT onto a query with UNION [ALL].
type UnionClause struct {
	All   bool
	Right *SelectStmt
}

// CommonTableExpr is one named query in a WITH clause.
type CommonTableExpr struct {
	Name     string
	Columns  []string // Explicit column names, may be empty
	Query    *SelectStmt
	QuerySQL string // The query text exactly as written
}

// WithClause introduces common table expressions ahead of a SELECT.
type WithClause struct {
	Recursive bool
	CTEs      []CommonTableExpr
}

// SelectStmt represents a SELECT statement, possibly with a WITH
// prefix and a UNION chain. ORDER BY, LIMIT, and OFFSET apply to the
// whole chain.
//
// A Limit or Offset of -1 means the clause was absent.
type SelectStmt struct {
	With      *WithClause
	Distinct  bool
	Items     []SelectItem
	TableName string // FROM source: a table, view, or CTE name ("" for FROM-less SELECT)
	Where     Expr   // nil when absent
	OrderBy   []OrderKey
	Limit     int
	Offset    int
	Union     *UnionClause
}

func (s SelectStmt) statementNode() {}

// String renders the statement back to one canonical SQL spelling.
// The result is stable across formatting differences in the input,
// which makes it usable as a cache key component.
func (s *SelectStmt) String() string {
	var sb strings.Builder

	if s.With != nil {
		sb.WriteString("WITH ")
		if s.With.Recursive {
			sb.WriteString("RECURSIVE ")
		}
		for i, cte := range s.With.CTEs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(QuoteIdent(cte.Name))
			if len(cte.Columns) > 0 {
				sb.WriteString("(")
				for j, col := range cte.Columns {
					if j > 0 {
						sb.WriteString(", ")
					}
					sb.WriteString(QuoteIdent(col))
				}
				sb.WriteString(")")
			}
			sb.WriteString(" AS (")
			sb.WriteString(cte.Query.String())
			sb.WriteString(")")
		}
		sb.WriteString(" ")
	}

	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, item := range s.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.String())
	}
	if s.TableName != "" {
		sb.WriteString(" FROM ")
		sb.WriteString(QuoteIdent(s.TableName))
	}
	if s.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(s.Where.String())
	}
	if s.Union != nil {
		sb.WriteString(" UNION ")
		if s.Union.All {
			sb.WriteString("ALL ")
		}
		sb.WriteString(s.Union.Right.String())
	}
	for i, key := range s.OrderBy {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(key.Expr.String())
		if key.Desc {
			sb.WriteString(" DESC")
		}
	}
	if s.Limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", s.Limit)
	}
	if s.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", s.Offset)
	}

	return sb.String()
}

// =============================================================================
// DDL
// =============================================================================

// ColumnDef defines a single column: its name and type.
type ColumnDef struct {
	Name string
	Type ColumnType
}

// CreateTableStmt represents a CREATE TABLE statement.
type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (s CreateTableStmt) statementNode() {}

// DropTableStmt represents a DROP TABLE statement.
// Without CASCADE, dropping a table that views depend on is refused.
type DropTableStmt struct {
	TableName string
	IfExists  bool
	Cascade   bool
}

func (s DropTableStmt) statementNode() {}

// CreateViewStmt represents a CREATE VIEW statement.
//
// Syntax:
//
//	CREATE [OR REPLACE] [FORCE] VIEW <name>
//	    [COMMENT '<text>'] [(<col> [, ...])] AS <query>
//
// FORCE makes creation succeed even when the query does not compile;
// the view is stored invalid and repaired later. QuerySQL holds the
// query text exactly as written, which is what gets persisted.
type CreateViewStmt struct {
	ViewName    string
	OrReplace   bool
	Force       bool
	Comment     string
	ColumnNames []string
	Query       *SelectStmt
	QuerySQL    string
}

func (s CreateViewStmt) statementNode() {}

// DropViewStmt represents a DROP VIEW statement.
// RESTRICT (the default) refuses to drop a view that other views
// depend on; CASCADE drops the dependents too.
type DropViewStmt struct {
	ViewName string
	IfExists bool
	Cascade  bool
}

func (s DropViewStmt) statementNode() {}

// AlterViewStmt represents ALTER VIEW <name> RECOMPILE, which forces
// recompilation of a view, typically to repair an invalid one.
type AlterViewStmt struct {
	ViewName string
}

func (s AlterViewStmt) statementNode() {}

// =============================================================================
// DML
// =============================================================================

// InsertStmt represents an INSERT statement.
// Columns may be empty, meaning values are given in table column order.
type InsertStmt struct {
	TableName string
	Columns   []string
	Rows      [][]Literal
}

func (s InsertStmt) statementNode() {}

// =============================================================================
// Users and privileges
// =============================================================================

// CreateUserStmt represents CREATE USER <name> IDENTIFIED BY '<password>'.
type CreateUserStmt struct {
	Username string
	Password string
}

func (s CreateUserStmt) statementNode() {}

// AlterUserStmt represents ALTER USER <name> IDENTIFIED BY '<password>'.
type AlterUserStmt struct {
	Username string
	Password string
}

func (s AlterUserStmt) statementNode() {}

// DropUserStmt represents DROP USER <name>.
type DropUserStmt struct {
	Username string
}

func (s DropUserStmt) statementNode() {}

// GrantStmt represents GRANT SELECT ON <object> TO <user>.
// The object may be a table or a view.
type GrantStmt struct {
	ObjectName string
	Username   string
}

func (s GrantStmt) statementNode() {}

// RevokeStmt represents REVOKE SELECT ON <object> FROM <user>.
type RevokeStmt struct {
	ObjectName string
	Username   string
}

func (s RevokeStmt) statementNode() {}
