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
Package sql contains the Lexer component for SQL tokenization.

Lexer Overview:
===============

The Lexer is the first stage of the SQL processing pipeline. It
transforms a raw SQL string into a stream of tokens that the Parser
can understand.

	Input: "SELECT name FROM users WHERE id = 1"

	Output Tokens:
	  1. {TokenKeyword, "SELECT"}
	  2. {TokenIdent, "name"}
	  3. {TokenKeyword, "FROM"}
	  4. {TokenIdent, "users"}
	  5. {TokenKeyword, "WHERE"}
	  6. {TokenIdent, "id"}
	  7. {TokenEqual, "="}
	  8. {TokenNumber, "1"}
	  9. {TokenEOF, ""}

Each token carries the byte offset where it starts. The parser uses
the offset to slice the original query text out of a CREATE VIEW
statement, so a view stores the user's SQL exactly as written.

Identifier Rules:
=================

Identifiers can contain letters, digits (not first), underscores, and
dots for qualified names. Double-quoted identifiers preserve case and
may contain any character except a double quote; they are never
treated as keywords.

String Literals:
================

String literals are enclosed in single quotes. A doubled quote ('')
inside a literal encodes a single quote character.
*/
package sql

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a lexical token.
type TokenType int

// Token type constants.
const (
	TokenEOF          TokenType = iota // End of input
	TokenIdent                         // Identifier (table name, column name)
	TokenString                        // String literal ('hello')
	TokenNumber                        // Numeric literal (123, 3.14)
	TokenKeyword                       // SQL keyword (SELECT, FROM, etc.)
	TokenComma                         // Comma (,)
	TokenLParen                        // Left parenthesis (()
	TokenRParen                        // Right parenthesis ())
	TokenEqual                         // Equals sign (=)
	TokenNotEqual                      // Not equal (!= or <>)
	TokenLessThan                      // Less than (<)
	TokenGreaterThan                   // Greater than (>)
	TokenLessEqual                     // Less than or equal (<=)
	TokenGreaterEqual                  // Greater than or equal (>=)
	TokenPlus                          // Plus (+)
	TokenMinus                         // Minus (-)
	TokenStar                          // Asterisk (*)
	TokenSlash                         // Slash (/)
	TokenConcat                        // String concatenation (||)
	TokenSemicolon                     // Statement terminator (;)
)

// keywords is the set of reserved words, compared case-insensitively.
var keywords = map[string]bool{
	// DDL
	"CREATE": true, "DROP": true, "ALTER": true, "TABLE": true,
	"VIEW": true, "REPLACE": true, "FORCE": true, "COMMENT": true,
	"TEMPORARY": true, "TEMP": true, "IF": true, "EXISTS": true,
	"CASCADE": true, "RESTRICT": true, "RECOMPILE": true,
	// Column types
	"INT": true, "INTEGER": true, "TEXT": true, "VARCHAR": true,
	"BOOLEAN": true, "BOOL": true, "FLOAT": true, "DOUBLE": true,
	"REAL": true,
	// DML
	"SELECT": true, "INSERT": true, "INTO": true, "VALUES": true,
	"DELETE": true, "FROM": true, "WHERE": true, "AS": true,
	"ORDER": true, "BY": true, "ASC": true, "DESC": true,
	"LIMIT": true, "OFFSET": true, "DISTINCT": true,
	// Set operations and CTEs
	"UNION": true, "ALL": true, "WITH": true, "RECURSIVE": true,
	// Predicates
	"AND": true, "OR": true, "NOT": true, "NULL": true, "IS": true,
	"TRUE": true, "FALSE": true,
	// Auth
	"USER": true, "IDENTIFIED": true, "GRANT": true, "REVOKE": true,
	"TO": true, "ON": true,
}

// Token represents a single lexical unit from the input.
type Token struct {
	Type  TokenType // The category of this token
	Value string    // The literal value from the input
	Pos   int       // Byte offset of the token start in the input
}

// Lexer transforms an input string into a stream of tokens.
// It maintains the current position in the input and provides
// the NextToken() method to retrieve tokens one at a time.
type Lexer struct {
	input string // The SQL input string
	pos   int    // Current position in the input
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Input returns the raw SQL string being tokenized.
func (l *Lexer) Input() string {
	return l.input
}

// NextToken advances the lexer and returns the next token.
//
// Token recognition order:
//  1. End of input (TokenEOF)
//  2. Identifier or keyword (starts with letter or underscore)
//  3. Double-quoted identifier
//  4. Number (starts with digit)
//  5. String literal (starts with ')
//  6. Operators and punctuation
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]

	// Identifier or keyword.
	if unicode.IsLetter(rune(ch)) || ch == '_' {
		for l.pos < len(l.input) && (unicode.IsLetter(rune(l.input[l.pos])) ||
			unicode.IsDigit(rune(l.input[l.pos])) ||
			l.input[l.pos] == '_' ||
			l.input[l.pos] == '.') {
			l.pos++
		}

		lit := l.input[start:l.pos]
		upper := strings.ToUpper(lit)
		if keywords[upper] {
			return Token{Type: TokenKeyword, Value: upper, Pos: start}
		}
		return Token{Type: TokenIdent, Value: lit, Pos: start}
	}

	// Double-quoted identifier. Never a keyword, case preserved.
	if ch == '"' {
		l.pos++ // Skip opening quote
		litStart := l.pos
		for l.pos < len(l.input) && l.input[l.pos] != '"' {
			l.pos++
		}
		lit := l.input[litStart:l.pos]
		if l.pos < len(l.input) {
			l.pos++ // Skip closing quote
		}
		return Token{Type: TokenIdent, Value: lit, Pos: start}
	}

	// Number: integer or decimal.
	if unicode.IsDigit(rune(ch)) {
		for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
			l.pos++
		}
		if l.pos+1 < len(l.input) && l.input[l.pos] == '.' &&
			unicode.IsDigit(rune(l.input[l.pos+1])) {
			l.pos++
			for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
				l.pos++
			}
		}
		return Token{Type: TokenNumber, Value: l.input[start:l.pos], Pos: start}
	}

	// String literal with '' escaping.
	if ch == '\'' {
		l.pos++ // Skip opening quote
		var sb strings.Builder
		for l.pos < len(l.input) {
			c := l.input[l.pos]
			if c == '\'' {
				// Doubled quote is an escaped quote.
				if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\'' {
					sb.WriteByte('\'')
					l.pos += 2
					continue
				}
				l.pos++ // Skip closing quote
				break
			}
			sb.WriteByte(c)
			l.pos++
		}
		return Token{Type: TokenString, Value: sb.String(), Pos: start}
	}

	// Multi-character operators (check before single-character).
	if ch == '<' {
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return Token{Type: TokenLessEqual, Value: "<=", Pos: start}
		}
		if l.pos < len(l.input) && l.input[l.pos] == '>' {
			l.pos++
			return Token{Type: TokenNotEqual, Value: "<>", Pos: start}
		}
		return Token{Type: TokenLessThan, Value: "<", Pos: start}
	}
	if ch == '>' {
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return Token{Type: TokenGreaterEqual, Value: ">=", Pos: start}
		}
		return Token{Type: TokenGreaterThan, Value: ">", Pos: start}
	}
	if ch == '!' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
		l.pos += 2
		return Token{Type: TokenNotEqual, Value: "!=", Pos: start}
	}
	if ch == '|' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '|' {
		l.pos += 2
		return Token{Type: TokenConcat, Value: "||", Pos: start}
	}

	// Single-character tokens.
	l.pos++
	switch ch {
	case ',':
		return Token{Type: TokenComma, Value: ",", Pos: start}
	case '(':
		return Token{Type: TokenLParen, Value: "(", Pos: start}
	case ')':
		return Token{Type: TokenRParen, Value: ")", Pos: start}
	case '=':
		return Token{Type: TokenEqual, Value: "=", Pos: start}
	case '+':
		return Token{Type: TokenPlus, Value: "+", Pos: start}
	case '-':
		return Token{Type: TokenMinus, Value: "-", Pos: start}
	case '*':
		return Token{Type: TokenStar, Value: "*", Pos: start}
	case '/':
		return Token{Type: TokenSlash, Value: "/", Pos: start}
	case ';':
		return Token{Type: TokenSemicolon, Value: ";", Pos: start}
	}

	// Unknown character. Returning EOF stops the parse; the parser
	// reports the position of the last good token.
	return Token{Type: TokenEOF, Pos: start}
}

// skipWhitespace advances the position past any whitespace characters.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}
