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
Package errors provides comprehensive error handling for WrenDB.

The errors package implements a structured error system with:
  - Error categories (Syntax, Schema, Execution, Storage, Validation)
  - Error codes for programmatic handling
  - User-friendly error messages
  - Contextual information for debugging
  - Error wrapping for root cause analysis

Error Categories:
  - SyntaxError: SQL parsing and syntax errors
  - SchemaError: Catalog and schema object errors (tables, views)
  - ExecutionError: Runtime failures during query execution
  - StorageError: Persistence and storage issues
  - ValidationError: Input validation failures

The view subsystem leans on the error codes: recompilation classifies a
compile failure as an expected recursive self-reference by inspecting
the code (the table-or-view-not-found family) together with the rendered
message, so constructors here must keep both stable.
*/
package errors

import (
	"fmt"
)

// ErrorCode represents a unique error identifier.
type ErrorCode int

const (
	// Syntax errors (1000-1999)
	ErrCodeSyntax              ErrorCode = 1000
	ErrCodeUnexpectedToken     ErrorCode = 1001
	ErrCodeMissingKeyword      ErrorCode = 1002
	ErrCodeMalformedQuery      ErrorCode = 1003
	ErrCodeColumnAliasRequired ErrorCode = 1004

	// Schema errors (2000-2999)
	ErrCodeSchema              ErrorCode = 2000
	ErrCodeTableNotFound       ErrorCode = 2001
	ErrCodeTableOrViewNotFound ErrorCode = 2002
	ErrCodeTableAlreadyExists  ErrorCode = 2003
	ErrCodeViewNotFound        ErrorCode = 2004
	ErrCodeViewAlreadyExists   ErrorCode = 2005
	ErrCodeViewInvalid         ErrorCode = 2006
	ErrCodeColumnNotFound      ErrorCode = 2007
	ErrCodeColumnCountMismatch ErrorCode = 2008
	ErrCodeObjectInUse         ErrorCode = 2009

	// Execution errors (3000-3999)
	ErrCodeExecution            ErrorCode = 3000
	ErrCodeTypeMismatch         ErrorCode = 3001
	ErrCodeUnsupportedOperation ErrorCode = 3002
	ErrCodeRecursionTooDeep     ErrorCode = 3003

	// Storage errors (4000-4999)
	ErrCodeStorage    ErrorCode = 4000
	ErrCodeIOError    ErrorCode = 4001
	ErrCodeCorruption ErrorCode = 4002

	// Validation errors (5000-5999)
	ErrCodeValidation   ErrorCode = 5000
	ErrCodeInvalidValue ErrorCode = 5001

	// Internal errors (9000-9999)
	ErrCodeInternal ErrorCode = 9000
)

// Category represents the error category.
type Category string

const (
	CategorySyntax     Category = "SYNTAX"
	CategorySchema     Category = "SCHEMA"
	CategoryExecution  Category = "EXECUTION"
	CategoryStorage    Category = "STORAGE"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Error represents a structured error in WrenDB.
type Error struct {
	Code     ErrorCode
	Category Category
	Message  string
	Detail   string
	Hint     string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ERROR %d (%s): %s - %s", e.Code, e.Category, e.Message, e.Detail)
	}
	return fmt.Sprintf("ERROR %d (%s): %s", e.Code, e.Category, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// SQLSTATE returns the SQLSTATE code for this error.
func (e *Error) SQLSTATE() SQLSTATE {
	return ToSQLSTATE(e.Code)
}

// UserMessage returns a user-friendly error message.
func (e *Error) UserMessage() string {
	msg := fmt.Sprintf("ERROR: %s", e.Message)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Hint != "" {
		msg += fmt.Sprintf("\nHINT: %s", e.Hint)
	}
	return msg
}

// WithDetail adds detail to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithHint adds a hint to the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// AddSQL appends a SQL statement to the error detail. The view record
// attaches its own definition statement to a stored compile failure so
// diagnostics identify which view definition broke.
func (e *Error) AddSQL(sql string) *Error {
	if e.Detail == "" {
		e.Detail = sql
	} else {
		e.Detail += "; " + sql
	}
	return e
}

// ============================================================================
// Syntax Error Constructors
// ============================================================================

// NewSyntaxError creates a new syntax error.
func NewSyntaxError(message string) *Error {
	return &Error{
		Code:     ErrCodeSyntax,
		Category: CategorySyntax,
		Message:  message,
	}
}

// UnexpectedToken creates an error for unexpected tokens.
func UnexpectedToken(expected, got string) *Error {
	return &Error{
		Code:     ErrCodeUnexpectedToken,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("unexpected token: expected %s, got %s", expected, got),
		Hint:     "Check your SQL syntax",
	}
}

// MissingKeyword creates an error for missing keywords.
func MissingKeyword(keyword string) *Error {
	return &Error{
		Code:     ErrCodeMissingKeyword,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("missing keyword: %s", keyword),
		Hint:     fmt.Sprintf("Add the '%s' keyword to your statement", keyword),
	}
}

// ColumnAliasRequired creates an error for an unnamed view column
// expression. This is a statement-authoring mistake, so it is always
// raised to the caller and never stored as view state.
func ColumnAliasRequired(expr string) *Error {
	return &Error{
		Code:     ErrCodeColumnAliasRequired,
		Category: CategorySyntax,
		Message:  fmt.Sprintf("column alias is not specified for expression: %s", expr),
		Hint:     "Name the expression with AS <alias> or declare a view column list",
	}
}

// ============================================================================
// Schema Error Constructors
// ============================================================================

// NewSchemaError creates a new schema error.
func NewSchemaError(message string) *Error {
	return &Error{
		Code:     ErrCodeSchema,
		Category: CategorySchema,
		Message:  message,
	}
}

// TableNotFound creates an error for missing tables.
func TableNotFound(table string) *Error {
	return &Error{
		Code:     ErrCodeTableNotFound,
		Category: CategorySchema,
		Message:  fmt.Sprintf("table not found: %q", table),
	}
}

// TableOrViewNotFound creates an error for an unresolvable relation
// reference. The rendered message keeps the name double quoted: the
// recursion bootstrap detector matches the quoted name textually.
func TableOrViewNotFound(name string) *Error {
	return &Error{
		Code:     ErrCodeTableOrViewNotFound,
		Category: CategorySchema,
		Message:  fmt.Sprintf("table or view not found: %q", name),
	}
}

// TableAlreadyExists creates an error for duplicate table names.
func TableAlreadyExists(table string) *Error {
	return &Error{
		Code:     ErrCodeTableAlreadyExists,
		Category: CategorySchema,
		Message:  fmt.Sprintf("table already exists: %q", table),
	}
}

// ViewNotFound creates an error for missing views.
func ViewNotFound(view string) *Error {
	return &Error{
		Code:     ErrCodeViewNotFound,
		Category: CategorySchema,
		Message:  fmt.Sprintf("view not found: %q", view),
	}
}

// ViewAlreadyExists creates an error for duplicate view names.
func ViewAlreadyExists(view string) *Error {
	return &Error{
		Code:     ErrCodeViewAlreadyExists,
		Category: CategorySchema,
		Message:  fmt.Sprintf("view already exists: %q", view),
		Hint:     "Use CREATE OR REPLACE VIEW to redefine it",
	}
}

// ViewInvalid creates an error for reading from an invalid view. The
// definition SQL and the underlying cause's message ride along so the
// user sees which definition is broken and why.
func ViewInvalid(createSQL, causeMessage string) *Error {
	return &Error{
		Code:     ErrCodeViewInvalid,
		Category: CategorySchema,
		Message:  fmt.Sprintf("view is invalid: %s", causeMessage),
		Detail:   createSQL,
		Hint:     "Recreate the view or repair the objects it reads",
	}
}

// ColumnNotFound creates an error for missing columns.
func ColumnNotFound(column, relation string) *Error {
	return &Error{
		Code:     ErrCodeColumnNotFound,
		Category: CategorySchema,
		Message:  fmt.Sprintf("column %q not found in %q", column, relation),
	}
}

// ColumnCountMismatch creates an error for a view column list that does
// not line up with the query output.
func ColumnCountMismatch(expected, got int) *Error {
	return &Error{
		Code:     ErrCodeColumnCountMismatch,
		Category: CategorySchema,
		Message:  fmt.Sprintf("column count mismatch: expected %d, got %d", expected, got),
	}
}

// ObjectInUse creates an error for dropping an object that other
// objects still depend on.
func ObjectInUse(name, dependent string) *Error {
	return &Error{
		Code:     ErrCodeObjectInUse,
		Category: CategorySchema,
		Message:  fmt.Sprintf("cannot drop %q: view %q depends on it", name, dependent),
		Hint:     "Use DROP ... CASCADE to drop dependent views as well",
	}
}

// ============================================================================
// Execution Error Constructors
// ============================================================================

// NewExecutionError creates a new execution error.
func NewExecutionError(message string) *Error {
	return &Error{
		Code:     ErrCodeExecution,
		Category: CategoryExecution,
		Message:  message,
	}
}

// TypeMismatch creates an error for type mismatches.
func TypeMismatch(expected, got, column string) *Error {
	return &Error{
		Code:     ErrCodeTypeMismatch,
		Category: CategoryExecution,
		Message:  fmt.Sprintf("type mismatch for column '%s': expected %s, got %s", column, expected, got),
	}
}

// UnsupportedOperation creates an error for operations an object does
// not support, such as direct row mutation on a view.
func UnsupportedOperation(object string) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedOperation,
		Category: CategoryExecution,
		Message:  fmt.Sprintf("operation not supported for %s", object),
	}
}

// RecursionTooDeep creates an error for a recursive query that does not
// reach a fixpoint within the iteration limit.
func RecursionTooDeep(view string, limit int) *Error {
	return &Error{
		Code:     ErrCodeRecursionTooDeep,
		Category: CategoryExecution,
		Message:  fmt.Sprintf("recursive query on %q exceeded %d iterations", view, limit),
		Hint:     "Check the recursive branch for a missing termination condition",
	}
}

// ============================================================================
// Storage Error Constructors
// ============================================================================

// NewStorageError creates a new storage error.
func NewStorageError(message string) *Error {
	return &Error{
		Code:     ErrCodeStorage,
		Category: CategoryStorage,
		Message:  message,
	}
}

// ============================================================================
// Validation Error Constructors
// ============================================================================

// NewValidationError creates a new validation error.
func NewValidationError(message string) *Error {
	return &Error{
		Code:     ErrCodeValidation,
		Category: CategoryValidation,
		Message:  message,
	}
}

// InvalidValue creates an error for invalid values.
func InvalidValue(field, reason string) *Error {
	return &Error{
		Code:     ErrCodeInvalidValue,
		Category: CategoryValidation,
		Message:  fmt.Sprintf("invalid value for '%s'", field),
		Detail:   reason,
	}
}

// InternalError creates an error for unexpected internal states.
func InternalError(message string) *Error {
	return &Error{
		Code:     ErrCodeInternal,
		Category: CategoryInternal,
		Message:  message,
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// IsSyntaxError checks if an error is a syntax error.
func IsSyntaxError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Category == CategorySyntax
	}
	return false
}

// IsSchemaError checks if an error is a schema error.
func IsSchemaError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Category == CategorySchema
	}
	return false
}

// IsExecutionError checks if an error is an execution error.
func IsExecutionError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Category == CategoryExecution
	}
	return false
}

// IsNotFound reports whether the error belongs to the table-or-view-not-
// found family. The recursive-CTE bootstrap treats exactly this family as
// a candidate self-reference.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeTableNotFound, ErrCodeTableOrViewNotFound, ErrCodeViewNotFound:
		return true
	}
	return false
}

// GetCode returns the error code if it's a structured Error, or 0 otherwise.
func GetCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return 0
}

// AsError converts err into a structured *Error, wrapping foreign errors
// as internal ones so callers can always inspect a code.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return InternalError(err.Error()).WithCause(err)
}

// FormatError formats an error for user display.
func FormatError(err error) string {
	if e, ok := err.(*Error); ok {
		return e.UserMessage()
	}
	return fmt.Sprintf("ERROR: %v", err)
}
