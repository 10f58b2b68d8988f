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
Package sql contains the Parser component for SQL statement parsing.

Parser Overview:
================

The Parser transforms the token stream produced by the Lexer into an
Abstract Syntax Tree (AST). It uses recursive descent with one token
of lookahead.

The parser maintains two tokens:
  - cur: The current token being examined
  - peek: The next token (lookahead for decision making)

Statement-level parse functions enter with cur on the statement's
first keyword. Expression parse functions enter with cur on the first
token of the expression and return with cur on its last token.

Expression grammar (highest precedence last):

	or          := and (OR and)*
	and         := not (AND not)*
	not         := NOT not | comparison
	comparison  := additive ((= | != | <> | < | <= | > | >=) additive)?
	             | additive IS [NOT] NULL
	additive    := multiplicative ((+ | - | ||) multiplicative)*
	multiplicative := unary ((* | /) unary)*
	unary       := - unary | primary
	primary     := number | string | TRUE | FALSE | NULL
	             | identifier | ( or )

CREATE VIEW statements additionally capture the raw text of the query
after AS, using the byte offsets the lexer records on each token. The
stored view definition is therefore the user's SQL verbatim, not a
re-rendering of the AST.
*/
package sql

import (
	"strconv"
	"strings"

	werrors "wrendb/internal/errors"
)

// Parser transforms a stream of tokens into an AST.
type Parser struct {
	lexer *Lexer // The lexer providing tokens
	cur   Token  // Current token
	peek  Token  // Next token (lookahead)
}

// NewParser creates a new Parser for the given Lexer.
// It reads the first two tokens to populate cur and peek.
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	p.nextToken()
	p.nextToken()
	return p
}

// ParseStatement is a convenience wrapper that parses a single SQL string.
func ParseStatement(input string) (Statement, error) {
	return NewParser(NewLexer(input)).Parse()
}

// nextToken advances the parser to the next token.
func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

// expectPeek advances if the peek token has the expected type.
// Returns true if the token was consumed.
func (p *Parser) expectPeek(t TokenType) bool {
	if p.peek.Type == t {
		p.nextToken()
		return true
	}
	return false
}

// expectKeyword advances if the peek token is the given keyword.
func (p *Parser) expectKeyword(kw string) bool {
	if p.peek.Type == TokenKeyword && p.peek.Value == kw {
		p.nextToken()
		return true
	}
	return false
}

// peekIsKeyword reports whether the peek token is the given keyword.
func (p *Parser) peekIsKeyword(kw string) bool {
	return p.peek.Type == TokenKeyword && p.peek.Value == kw
}

// Parse parses the input and returns the corresponding Statement AST.
//
// Supported statements:
//   - CREATE TABLE / CREATE [OR REPLACE] [FORCE] VIEW / CREATE USER
//   - DROP TABLE / DROP VIEW / DROP USER
//   - ALTER VIEW ... RECOMPILE / ALTER USER
//   - INSERT
//   - SELECT (with WHERE, ORDER BY, LIMIT, OFFSET, UNION, WITH)
//   - GRANT / REVOKE
func (p *Parser) Parse() (Statement, error) {
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	// Allow a trailing semicolon, nothing else.
	if p.peek.Type == TokenSemicolon {
		p.nextToken()
	}
	if p.peek.Type != TokenEOF {
		return nil, werrors.UnexpectedToken("end of statement", p.peek.Value)
	}
	return stmt, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	if p.cur.Type != TokenKeyword {
		return nil, werrors.UnexpectedToken("statement keyword", p.cur.Value)
	}

	switch p.cur.Value {
	case "CREATE":
		switch {
		case p.peekIsKeyword("TABLE"):
			return p.parseCreateTable()
		case p.peekIsKeyword("USER"):
			return p.parseCreateUser()
		default:
			// CREATE [OR REPLACE] [FORCE] VIEW
			return p.parseCreateView()
		}
	case "DROP":
		return p.parseDrop()
	case "ALTER":
		return p.parseAlter()
	case "INSERT":
		return p.parseInsert()
	case "SELECT", "WITH":
		return p.parseQuery()
	case "GRANT":
		return p.parseGrant()
	case "REVOKE":
		return p.parseRevoke()
	}
	return nil, werrors.UnexpectedToken("statement keyword", p.cur.Value)
}

// =============================================================================
// DDL statements
// =============================================================================

// parseCreateTable parses a CREATE TABLE statement.
// Syntax: CREATE TABLE <name> (<col> <type> [, ...])
func (p *Parser) parseCreateTable() (*CreateTableStmt, error) {
	p.nextToken() // Skip CREATE, cur = TABLE

	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("table name", p.peek.Value)
	}
	stmt := &CreateTableStmt{TableName: p.cur.Value}

	if !p.expectPeek(TokenLParen) {
		return nil, werrors.UnexpectedToken("(", p.peek.Value)
	}

	for {
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("column name", p.peek.Value)
		}
		name := p.cur.Value

		if p.peek.Type != TokenKeyword && p.peek.Type != TokenIdent {
			return nil, werrors.UnexpectedToken("column type", p.peek.Value)
		}
		p.nextToken()
		colType, ok := NormalizeType(p.cur.Value)
		if !ok {
			return nil, werrors.NewSyntaxError("unknown column type: " + p.cur.Value)
		}
		stmt.Columns = append(stmt.Columns, ColumnDef{Name: name, Type: colType})

		if p.peek.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectPeek(TokenRParen) {
		return nil, werrors.UnexpectedToken(")", p.peek.Value)
	}
	if len(stmt.Columns) == 0 {
		return nil, werrors.NewSyntaxError("table must have at least one column")
	}
	return stmt, nil
}

// parseCreateView parses a CREATE VIEW statement.
//
// Syntax:
//
//	CREATE [OR REPLACE] [FORCE] VIEW <name>
//	    [COMMENT '<text>'] [(<col> [, ...])] AS <query>
//
// The query text after AS is captured verbatim into QuerySQL using the
// lexer's byte offsets, in addition to being parsed into Query.
func (p *Parser) parseCreateView() (*CreateViewStmt, error) {
	stmt := &CreateViewStmt{}

	// cur = CREATE
	if p.peekIsKeyword("OR") {
		p.nextToken()
		if !p.expectKeyword("REPLACE") {
			return nil, werrors.MissingKeyword("REPLACE")
		}
		stmt.OrReplace = true
	}
	if p.peekIsKeyword("FORCE") {
		p.nextToken()
		stmt.Force = true
	}
	if !p.expectKeyword("VIEW") {
		return nil, werrors.MissingKeyword("VIEW")
	}

	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("view name", p.peek.Value)
	}
	stmt.ViewName = p.cur.Value

	if p.peekIsKeyword("COMMENT") {
		p.nextToken()
		if !p.expectPeek(TokenString) {
			return nil, werrors.UnexpectedToken("comment string", p.peek.Value)
		}
		stmt.Comment = p.cur.Value
	}

	if p.peek.Type == TokenLParen {
		cols, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		stmt.ColumnNames = cols
	}

	if !p.expectKeyword("AS") {
		return nil, werrors.MissingKeyword("AS")
	}

	// Capture the query text verbatim, from the first token after AS
	// to the end of the statement.
	queryStart := p.peek.Pos
	p.nextToken() // cur = SELECT or WITH
	query, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	stmt.Query = query
	stmt.QuerySQL = strings.TrimSpace(p.lexer.Input()[queryStart:p.peek.Pos])

	return stmt, nil
}

// parseDrop parses DROP TABLE, DROP VIEW, and DROP USER statements.
func (p *Parser) parseDrop() (Statement, error) {
	// cur = DROP
	switch {
	case p.peekIsKeyword("TABLE"):
		p.nextToken()
		stmt := &DropTableStmt{}
		if p.peekIsKeyword("IF") {
			p.nextToken()
			if !p.expectKeyword("EXISTS") {
				return nil, werrors.MissingKeyword("EXISTS")
			}
			stmt.IfExists = true
		}
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("table name", p.peek.Value)
		}
		stmt.TableName = p.cur.Value
		if p.peekIsKeyword("CASCADE") {
			p.nextToken()
			stmt.Cascade = true
		}
		return stmt, nil

	case p.peekIsKeyword("VIEW"):
		p.nextToken()
		stmt := &DropViewStmt{}
		if p.peekIsKeyword("IF") {
			p.nextToken()
			if !p.expectKeyword("EXISTS") {
				return nil, werrors.MissingKeyword("EXISTS")
			}
			stmt.IfExists = true
		}
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("view name", p.peek.Value)
		}
		stmt.ViewName = p.cur.Value
		switch {
		case p.peekIsKeyword("CASCADE"):
			p.nextToken()
			stmt.Cascade = true
		case p.peekIsKeyword("RESTRICT"):
			p.nextToken()
		}
		return stmt, nil

	case p.peekIsKeyword("USER"):
		p.nextToken()
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("username", p.peek.Value)
		}
		return &DropUserStmt{Username: p.cur.Value}, nil
	}
	return nil, werrors.UnexpectedToken("TABLE, VIEW, or USER", p.peek.Value)
}

// parseAlter parses ALTER VIEW ... RECOMPILE and ALTER USER statements.
func (p *Parser) parseAlter() (Statement, error) {
	// cur = ALTER
	switch {
	case p.peekIsKeyword("VIEW"):
		p.nextToken()
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("view name", p.peek.Value)
		}
		name := p.cur.Value
		if !p.expectKeyword("RECOMPILE") {
			return nil, werrors.MissingKeyword("RECOMPILE")
		}
		return &AlterViewStmt{ViewName: name}, nil

	case p.peekIsKeyword("USER"):
		p.nextToken()
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("username", p.peek.Value)
		}
		username := p.cur.Value
		if !p.expectKeyword("IDENTIFIED") {
			return nil, werrors.MissingKeyword("IDENTIFIED")
		}
		if !p.expectKeyword("BY") {
			return nil, werrors.MissingKeyword("BY")
		}
		if !p.expectPeek(TokenString) {
			return nil, werrors.UnexpectedToken("password string", p.peek.Value)
		}
		return &AlterUserStmt{Username: username, Password: p.cur.Value}, nil
	}
	return nil, werrors.UnexpectedToken("VIEW or USER", p.peek.Value)
}

// parseNameList parses a parenthesized list of identifiers.
// Entry: peek = (. Exit: cur = ).
func (p *Parser) parseNameList() ([]string, error) {
	if !p.expectPeek(TokenLParen) {
		return nil, werrors.UnexpectedToken("(", p.peek.Value)
	}
	var names []string
	for {
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("identifier", p.peek.Value)
		}
		names = append(names, p.cur.Value)
		if p.peek.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	if !p.expectPeek(TokenRParen) {
		return nil, werrors.UnexpectedToken(")", p.peek.Value)
	}
	return names, nil
}

// =============================================================================
// DML statements
// =============================================================================

// parseInsert parses an INSERT statement.
// Syntax: INSERT INTO <table> [(<col> [, ...])] VALUES (<val> [, ...]) [, ...]
func (p *Parser) parseInsert() (*InsertStmt, error) {
	// cur = INSERT
	if !p.expectKeyword("INTO") {
		return nil, werrors.MissingKeyword("INTO")
	}
	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("table name", p.peek.Value)
	}
	stmt := &InsertStmt{TableName: p.cur.Value}

	if p.peek.Type == TokenLParen {
		cols, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}

	if !p.expectKeyword("VALUES") {
		return nil, werrors.MissingKeyword("VALUES")
	}

	for {
		if !p.expectPeek(TokenLParen) {
			return nil, werrors.UnexpectedToken("(", p.peek.Value)
		}
		var row []Literal
		for {
			p.nextToken()
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			row = append(row, lit)
			if p.peek.Type == TokenComma {
				p.nextToken()
				continue
			}
			break
		}
		if !p.expectPeek(TokenRParen) {
			return nil, werrors.UnexpectedToken(")", p.peek.Value)
		}
		stmt.Rows = append(stmt.Rows, row)

		if p.peek.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}

	return stmt, nil
}

// parseLiteral parses a single literal value with cur on its first token.
func (p *Parser) parseLiteral() (Literal, error) {
	switch p.cur.Type {
	case TokenNumber:
		if strings.Contains(p.cur.Value, ".") {
			return Literal{Value: p.cur.Value, Type: TypeFLOAT}, nil
		}
		return Literal{Value: p.cur.Value, Type: TypeINT}, nil
	case TokenString:
		return Literal{Value: p.cur.Value, Type: TypeTEXT}, nil
	case TokenMinus:
		p.nextToken()
		if p.cur.Type != TokenNumber {
			return Literal{}, werrors.UnexpectedToken("number", p.cur.Value)
		}
		if strings.Contains(p.cur.Value, ".") {
			return Literal{Value: "-" + p.cur.Value, Type: TypeFLOAT}, nil
		}
		return Literal{Value: "-" + p.cur.Value, Type: TypeINT}, nil
	case TokenKeyword:
		switch p.cur.Value {
		case "TRUE":
			return Literal{Value: "true", Type: TypeBOOLEAN}, nil
		case "FALSE":
			return Literal{Value: "false", Type: TypeBOOLEAN}, nil
		case "NULL":
			return Literal{Null: true, Type: TypeTEXT}, nil
		}
	}
	return Literal{}, werrors.UnexpectedToken("literal value", p.cur.Value)
}

// =============================================================================
// Queries
// =============================================================================

// parseQuery parses a complete query: an optional WITH clause, a SELECT
// with an optional UNION chain, then ORDER BY / LIMIT / OFFSET, which
// apply to the whole chain. Entry: cur = SELECT or WITH.
func (p *Parser) parseQuery() (*SelectStmt, error) {
	var with *WithClause
	if p.cur.Type == TokenKeyword && p.cur.Value == "WITH" {
		wc, err := p.parseWithClause()
		if err != nil {
			return nil, err
		}
		with = wc
		// cur = SELECT of the main query body.
	}

	if p.cur.Type != TokenKeyword || p.cur.Value != "SELECT" {
		return nil, werrors.UnexpectedToken("SELECT", p.cur.Value)
	}

	stmt, err := p.parseSelectBody()
	if err != nil {
		return nil, err
	}
	stmt.With = with

	// UNION chain. Each UNION attaches to the rightmost select.
	tail := stmt
	for p.peekIsKeyword("UNION") {
		p.nextToken() // cur = UNION
		all := false
		if p.peekIsKeyword("ALL") {
			p.nextToken()
			all = true
		}
		if !p.expectKeyword("SELECT") {
			return nil, werrors.MissingKeyword("SELECT")
		}
		right, err := p.parseSelectBody()
		if err != nil {
			return nil, err
		}
		tail.Union = &UnionClause{All: all, Right: right}
		tail = right
	}

	// ORDER BY applies to the whole chain and lives on the top statement.
	if p.peekIsKeyword("ORDER") {
		p.nextToken()
		if !p.expectKeyword("BY") {
			return nil, werrors.MissingKeyword("BY")
		}
		for {
			p.nextToken()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			key := OrderKey{Expr: expr}
			if p.peekIsKeyword("DESC") {
				p.nextToken()
				key.Desc = true
			} else if p.peekIsKeyword("ASC") {
				p.nextToken()
			}
			stmt.OrderBy = append(stmt.OrderBy, key)
			if p.peek.Type == TokenComma {
				p.nextToken()
				continue
			}
			break
		}
	}

	if p.peekIsKeyword("LIMIT") {
		p.nextToken()
		if !p.expectPeek(TokenNumber) {
			return nil, werrors.UnexpectedToken("number after LIMIT", p.peek.Value)
		}
		n, err := strconv.Atoi(p.cur.Value)
		if err != nil {
			return nil, werrors.NewSyntaxError("invalid LIMIT value: " + p.cur.Value)
		}
		stmt.Limit = n
	}
	if p.peekIsKeyword("OFFSET") {
		p.nextToken()
		if !p.expectPeek(TokenNumber) {
			return nil, werrors.UnexpectedToken("number after OFFSET", p.peek.Value)
		}
		n, err := strconv.Atoi(p.cur.Value)
		if err != nil {
			return nil, werrors.NewSyntaxError("invalid OFFSET value: " + p.cur.Value)
		}
		stmt.Offset = n
	}

	return stmt, nil
}

// parseWithClause parses WITH [RECURSIVE] name [(cols)] AS (query), ...
// Entry: cur = WITH. Exit: cur = SELECT of the main query body.
func (p *Parser) parseWithClause() (*WithClause, error) {
	wc := &WithClause{}
	if p.peekIsKeyword("RECURSIVE") {
		p.nextToken()
		wc.Recursive = true
	}

	for {
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("CTE name", p.peek.Value)
		}
		cte := CommonTableExpr{Name: p.cur.Value}

		if p.peek.Type == TokenLParen {
			cols, err := p.parseNameList()
			if err != nil {
				return nil, err
			}
			cte.Columns = cols
		}

		if !p.expectKeyword("AS") {
			return nil, werrors.MissingKeyword("AS")
		}
		if !p.expectPeek(TokenLParen) {
			return nil, werrors.UnexpectedToken("(", p.peek.Value)
		}

		// Capture the inner query text verbatim.
		innerStart := p.peek.Pos
		p.nextToken() // cur = SELECT
		if p.cur.Type != TokenKeyword || p.cur.Value != "SELECT" {
			return nil, werrors.UnexpectedToken("SELECT", p.cur.Value)
		}
		query, err := p.parseSelectBody()
		if err != nil {
			return nil, err
		}

		// UNION chain inside the CTE body.
		tail := query
		for p.peekIsKeyword("UNION") {
			p.nextToken()
			all := false
			if p.peekIsKeyword("ALL") {
				p.nextToken()
				all = true
			}
			if !p.expectKeyword("SELECT") {
				return nil, werrors.MissingKeyword("SELECT")
			}
			right, err := p.parseSelectBody()
			if err != nil {
				return nil, err
			}
			tail.Union = &UnionClause{All: all, Right: right}
			tail = right
		}

		cte.QuerySQL = strings.TrimSpace(p.lexer.Input()[innerStart:p.peek.Pos])
		if !p.expectPeek(TokenRParen) {
			return nil, werrors.UnexpectedToken(")", p.peek.Value)
		}
		cte.Query = query
		wc.CTEs = append(wc.CTEs, cte)

		if p.peek.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expectKeyword("SELECT") {
		return nil, werrors.MissingKeyword("SELECT")
	}
	return wc, nil
}

// parseSelectBody parses one SELECT core: projection, FROM, WHERE.
// Entry: cur = SELECT. It does not consume UNION, ORDER BY, LIMIT, or
// OFFSET; those belong to the enclosing query.
func (p *Parser) parseSelectBody() (*SelectStmt, error) {
	stmt := &SelectStmt{Limit: -1, Offset: -1}

	if p.peekIsKeyword("DISTINCT") {
		p.nextToken()
		stmt.Distinct = true
	}

	// Projection list.
	for {
		p.nextToken() // cur = first token of the item
		var item SelectItem
		if p.cur.Type == TokenStar {
			item.Expr = Star{}
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			item.Expr = expr
		}

		if p.peekIsKeyword("AS") {
			p.nextToken()
			if !p.expectPeek(TokenIdent) {
				return nil, werrors.UnexpectedToken("alias", p.peek.Value)
			}
			item.Alias = p.cur.Value
		} else if p.peek.Type == TokenIdent {
			// Bare alias: SELECT a b FROM t
			p.nextToken()
			item.Alias = p.cur.Value
		}
		stmt.Items = append(stmt.Items, item)

		if p.peek.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}

	if p.peekIsKeyword("FROM") {
		p.nextToken()
		if !p.expectPeek(TokenIdent) {
			return nil, werrors.UnexpectedToken("table name", p.peek.Value)
		}
		stmt.TableName = p.cur.Value
	}

	if p.peekIsKeyword("WHERE") {
		p.nextToken()
		p.nextToken() // cur = first token of the predicate
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	return stmt, nil
}

// =============================================================================
// Expressions
// =============================================================================

// parseExpression parses an expression with cur on its first token,
// returning with cur on its last token.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekIsKeyword("OR") {
		p.nextToken() // cur = OR
		p.nextToken() // cur = first token of right operand
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peekIsKeyword("AND") {
		p.nextToken()
		p.nextToken()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.cur.Type == TokenKeyword && p.cur.Value == "NOT" {
		p.nextToken()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	var op string
	switch p.peek.Type {
	case TokenEqual:
		op = "="
	case TokenNotEqual:
		op = "!="
	case TokenLessThan:
		op = "<"
	case TokenLessEqual:
		op = "<="
	case TokenGreaterThan:
		op = ">"
	case TokenGreaterEqual:
		op = ">="
	default:
		if p.peekIsKeyword("IS") {
			p.nextToken() // cur = IS
			negate := false
			if p.peekIsKeyword("NOT") {
				p.nextToken()
				negate = true
			}
			if !p.expectKeyword("NULL") {
				return nil, werrors.MissingKeyword("NULL")
			}
			return IsNullExpr{Operand: left, Negate: negate}, nil
		}
		return left, nil
	}

	p.nextToken() // cur = operator
	p.nextToken() // cur = first token of right operand
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.peek.Type {
		case TokenPlus:
			op = "+"
		case TokenMinus:
			op = "-"
		case TokenConcat:
			op = "||"
		default:
			return left, nil
		}
		p.nextToken()
		p.nextToken()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.peek.Type {
		case TokenStar:
			op = "*"
		case TokenSlash:
			op = "/"
		default:
			return left, nil
		}
		p.nextToken()
		p.nextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur.Type == TokenMinus {
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.cur.Type {
	case TokenNumber:
		if strings.Contains(p.cur.Value, ".") {
			return Literal{Value: p.cur.Value, Type: TypeFLOAT}, nil
		}
		return Literal{Value: p.cur.Value, Type: TypeINT}, nil
	case TokenString:
		return Literal{Value: p.cur.Value, Type: TypeTEXT}, nil
	case TokenIdent:
		// Qualified names lex as a single token containing a dot.
		if idx := strings.Index(p.cur.Value, "."); idx > 0 {
			return ColumnRef{Table: p.cur.Value[:idx], Name: p.cur.Value[idx+1:]}, nil
		}
		return ColumnRef{Name: p.cur.Value}, nil
	case TokenLParen:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.expectPeek(TokenRParen) {
			return nil, werrors.UnexpectedToken(")", p.peek.Value)
		}
		return expr, nil
	case TokenKeyword:
		switch p.cur.Value {
		case "TRUE":
			return Literal{Value: "true", Type: TypeBOOLEAN}, nil
		case "FALSE":
			return Literal{Value: "false", Type: TypeBOOLEAN}, nil
		case "NULL":
			return Literal{Null: true, Type: TypeTEXT}, nil
		}
	}
	return nil, werrors.UnexpectedToken("expression", p.cur.Value)
}

// =============================================================================
// Users and privileges
// =============================================================================

// parseCreateUser parses CREATE USER <name> IDENTIFIED BY '<password>'.
func (p *Parser) parseCreateUser() (*CreateUserStmt, error) {
	p.nextToken() // Skip CREATE, cur = USER

	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("username", p.peek.Value)
	}
	username := p.cur.Value

	if !p.expectKeyword("IDENTIFIED") {
		return nil, werrors.MissingKeyword("IDENTIFIED")
	}
	if !p.expectKeyword("BY") {
		return nil, werrors.MissingKeyword("BY")
	}
	if !p.expectPeek(TokenString) {
		return nil, werrors.UnexpectedToken("password string", p.peek.Value)
	}
	return &CreateUserStmt{Username: username, Password: p.cur.Value}, nil
}

// parseGrant parses GRANT SELECT ON <object> TO <user>.
func (p *Parser) parseGrant() (*GrantStmt, error) {
	// cur = GRANT
	if !p.expectKeyword("SELECT") {
		return nil, werrors.MissingKeyword("SELECT")
	}
	if !p.expectKeyword("ON") {
		return nil, werrors.MissingKeyword("ON")
	}
	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("object name", p.peek.Value)
	}
	object := p.cur.Value
	if !p.expectKeyword("TO") {
		return nil, werrors.MissingKeyword("TO")
	}
	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("username", p.peek.Value)
	}
	return &GrantStmt{ObjectName: object, Username: p.cur.Value}, nil
}

// parseRevoke parses REVOKE SELECT ON <object> FROM <user>.
func (p *Parser) parseRevoke() (*RevokeStmt, error) {
	// cur = REVOKE
	if !p.expectKeyword("SELECT") {
		return nil, werrors.MissingKeyword("SELECT")
	}
	if !p.expectKeyword("ON") {
		return nil, werrors.MissingKeyword("ON")
	}
	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("object name", p.peek.Value)
	}
	object := p.cur.Value
	if !p.expectKeyword("FROM") {
		return nil, werrors.MissingKeyword("FROM")
	}
	if !p.expectPeek(TokenIdent) {
		return nil, werrors.UnexpectedToken("username", p.peek.Value)
	}
	return &RevokeStmt{ObjectName: object, Username: p.cur.Value}, nil
}
