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
Package sql contains type definitions and validation for WrenDB column types.

Supported Column Types:
=======================

  - INT: Integer values (64-bit signed)
  - TEXT: Variable-length string values
  - BOOLEAN: True/false values
  - FLOAT: 64-bit floating-point numbers

Type Validation:
================

Each type has a validation function that checks if a string value
can be converted to that type. This is used during INSERT operations
to ensure data integrity. All values are stored as strings; the
column type governs validation and comparison semantics.
*/
package sql

import (
	"strconv"
	"strings"

	werrors "wrendb/internal/errors"
	"wrendb/internal/storage"
)

// ColumnType represents the supported column types in WrenDB.
type ColumnType string

// Column type constants.
const (
	TypeINT     ColumnType = "INT"
	TypeTEXT    ColumnType = "TEXT"
	TypeBOOLEAN ColumnType = "BOOLEAN"
	TypeFLOAT   ColumnType = "FLOAT"
)

// ValidColumnTypes is the set of all valid column type names.
var ValidColumnTypes = map[string]ColumnType{
	"INT":     TypeINT,
	"INTEGER": TypeINT, // Alias for INT
	"TEXT":    TypeTEXT,
	"VARCHAR": TypeTEXT, // Alias for TEXT
	"BOOLEAN": TypeBOOLEAN,
	"BOOL":    TypeBOOLEAN, // Alias for BOOLEAN
	"FLOAT":   TypeFLOAT,
	"DOUBLE":  TypeFLOAT, // Alias for FLOAT
	"REAL":    TypeFLOAT, // Alias for FLOAT
}

// NormalizeType maps a type name (possibly an alias) to its canonical
// ColumnType. Returns TypeTEXT and false if the name is not a valid type.
func NormalizeType(typeName string) (ColumnType, bool) {
	t, ok := ValidColumnTypes[strings.ToUpper(typeName)]
	if !ok {
		return TypeTEXT, false
	}
	return t, true
}

// ValidateValue checks whether a string value is acceptable for the
// given column type. NULL (empty value) is always accepted.
func (t ColumnType) ValidateValue(value string) error {
	if value == "" {
		return nil
	}
	switch t {
	case TypeINT:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return werrors.InvalidValue(value, "not a valid INT")
		}
	case TypeFLOAT:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return werrors.InvalidValue(value, "not a valid FLOAT")
		}
	case TypeBOOLEAN:
		switch strings.ToLower(value) {
		case "true", "false", "1", "0":
		default:
			return werrors.InvalidValue(value, "not a valid BOOLEAN")
		}
	case TypeTEXT:
		// Any string is valid TEXT.
	}
	return nil
}

// InferLiteralType guesses the column type of a literal value.
// Used to derive the column types of a view whose query projects
// literals rather than table columns.
func InferLiteralType(value string) ColumnType {
	if value == "" {
		return TypeTEXT
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return TypeINT
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return TypeFLOAT
	}
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return TypeBOOLEAN
	}
	return TypeTEXT
}

// CompareValues compares two stored values according to the column type.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
//
// TEXT comparison is delegated to the collator so ORDER BY respects the
// configured collation. Numeric types compare by value, not lexically.
// NULL (empty value) sorts before everything else.
func CompareValues(t ColumnType, a, b string, coll storage.Collator) int {
	if a == "" || b == "" {
		if a == b {
			return 0
		}
		if a == "" {
			return -1
		}
		return 1
	}

	switch t {
	case TypeINT:
		ai, aerr := strconv.ParseInt(a, 10, 64)
		bi, berr := strconv.ParseInt(b, 10, 64)
		if aerr == nil && berr == nil {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			default:
				return 0
			}
		}
	case TypeFLOAT:
		af, aerr := strconv.ParseFloat(a, 64)
		bf, berr := strconv.ParseFloat(b, 64)
		if aerr == nil && berr == nil {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	case TypeBOOLEAN:
		ab := strings.ToLower(a) == "true" || a == "1"
		bb := strings.ToLower(b) == "true" || b == "1"
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}

	// TEXT, or a numeric column holding an unparseable value.
	if coll != nil {
		return coll.Compare(a, b)
	}
	return strings.Compare(a, b)
}
