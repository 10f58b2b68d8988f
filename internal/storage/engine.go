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
Package storage provides the persistence layer for WrenDB.

Storage Engine Overview:
========================

The storage package defines the Engine interface used by the catalog to
persist schema objects, plus an in-memory implementation and an
encrypting wrapper.

Key Conventions:
================

WrenDB uses a key prefix convention to organize data:

	schema:<table>       - Table schema definition (JSON)
	view:<view>          - View definition (JSON)
	row:<table>          - Table row data (JSON array)
	user:<username>      - User credentials (JSON)
	priv:<user>:<object> - SELECT privilege marker (JSON)

This prefix-based organization enables efficient Scan operations for
retrieving all rows in a table, all schemas, or all view definitions.

Thread Safety:
==============

All Engine implementations must be safe for concurrent use. The
in-memory store uses a sync.RWMutex so multiple readers can access data
concurrently while writes are exclusive.
*/
package storage

import "errors"

// ErrNotFound is returned when a requested key does not exist in the store.
// This is a sentinel error that callers can check using errors.Is().
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned for operations on a closed engine.
var ErrClosed = errors.New("storage engine is closed")

// Engine defines the interface for the storage engine.
// It provides basic Key-Value operations and support for prefix scans.
//
// All implementations must be thread-safe for concurrent access.
// The Engine interface is designed to be simple and composable,
// allowing different storage backends to be swapped in.
type Engine interface {
	// Put stores a value associated with a key.
	// If the key already exists, the value is overwritten.
	Put(key string, value []byte) error

	// Get retrieves the value associated with a key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes a key and its associated value from the store.
	// The operation is idempotent - deleting a non-existent key is not an error.
	Delete(key string) error

	// Scan iterates over all keys matching the given prefix.
	// Returns a map of key-value pairs where each key starts with the prefix.
	//
	// This is used for operations like:
	//   - Retrieving all schemas: Scan("schema:")
	//   - Retrieving all view definitions: Scan("view:")
	Scan(prefix string) (map[string][]byte, error)

	// Close shuts down the storage engine and releases resources.
	// After Close is called, no other methods should be called.
	Close() error
}
