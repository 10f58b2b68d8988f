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

package errors

// SQLSTATE is a five-character SQL standard condition code.
type SQLSTATE string

// Standard SQLSTATE values used by WrenDB.
const (
	SQLStateSuccess             SQLSTATE = "00000"
	SQLStateSyntaxError         SQLSTATE = "42601"
	SQLStateUndefinedTable      SQLSTATE = "42P01"
	SQLStateUndefinedColumn     SQLSTATE = "42703"
	SQLStateDuplicateTable      SQLSTATE = "42P07"
	SQLStateInvalidViewDef      SQLSTATE = "42P17"
	SQLStateDependentObjects    SQLSTATE = "2BP01"
	SQLStateFeatureNotSupported SQLSTATE = "0A000"
	SQLStateDataException       SQLSTATE = "22000"
	SQLStateStorageError        SQLSTATE = "58030"
	SQLStateInternalError       SQLSTATE = "XX000"
)

// ToSQLSTATE maps a WrenDB error code to its SQLSTATE condition code.
// Codes without a specific mapping fall back to the generic class value
// for their category range.
func ToSQLSTATE(code ErrorCode) SQLSTATE {
	switch code {
	case ErrCodeSyntax, ErrCodeUnexpectedToken, ErrCodeMissingKeyword,
		ErrCodeMalformedQuery, ErrCodeColumnAliasRequired:
		return SQLStateSyntaxError
	case ErrCodeTableNotFound, ErrCodeTableOrViewNotFound, ErrCodeViewNotFound:
		return SQLStateUndefinedTable
	case ErrCodeTableAlreadyExists, ErrCodeViewAlreadyExists:
		return SQLStateDuplicateTable
	case ErrCodeViewInvalid:
		return SQLStateInvalidViewDef
	case ErrCodeColumnNotFound, ErrCodeColumnCountMismatch:
		return SQLStateUndefinedColumn
	case ErrCodeObjectInUse:
		return SQLStateDependentObjects
	case ErrCodeUnsupportedOperation:
		return SQLStateFeatureNotSupported
	case ErrCodeTypeMismatch, ErrCodeInvalidValue:
		return SQLStateDataException
	case ErrCodeStorage, ErrCodeIOError, ErrCodeCorruption:
		return SQLStateStorageError
	case ErrCodeInternal:
		return SQLStateInternalError
	}
	switch {
	case code >= 1000 && code < 2000:
		return SQLStateSyntaxError
	case code >= 3000 && code < 4000:
		return SQLStateDataException
	case code >= 4000 && code < 5000:
		return SQLStateStorageError
	}
	return SQLStateInternalError
}
