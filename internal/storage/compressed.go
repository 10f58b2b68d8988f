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
Compressed Engine:
==================

CompressedEngine wraps another Engine and gzips values on the way in.
Catalog records are JSON, which compresses well; row records especially
so. Keys stay uncompressed so prefix Scan still works on the inner
engine.

Values below a size floor are stored as written: gzip overhead exceeds
the saving on tiny payloads. A one-byte header tells the two formats
apart on read, so the floor can change without migrating stored data.
*/

package storage

import (
	"bytes"
	"compress/gzip"
	"io"
)

const (
	formatRaw  byte = 0
	formatGzip byte = 1

	// compressFloor is the smallest value worth compressing.
	compressFloor = 128
)

// CompressedEngine is an Engine wrapper that compresses values.
type CompressedEngine struct {
	inner Engine
}

// NewCompressedEngine wraps inner with value compression.
func NewCompressedEngine(inner Engine) *CompressedEngine {
	return &CompressedEngine{inner: inner}
}

func compressValue(value []byte) ([]byte, error) {
	if len(value) < compressFloor {
		return append([]byte{formatRaw}, value...), nil
	}
	var buf bytes.Buffer
	buf.WriteByte(formatGzip)
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(value); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressValue(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return stored, nil
	}
	payload := stored[1:]
	if stored[0] == formatRaw {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Put compresses the value and stores it.
func (c *CompressedEngine) Put(key string, value []byte) error {
	stored, err := compressValue(value)
	if err != nil {
		return err
	}
	return c.inner.Put(key, stored)
}

// Get retrieves and decompresses the value for a key.
func (c *CompressedEngine) Get(key string) ([]byte, error) {
	stored, err := c.inner.Get(key)
	if err != nil {
		return nil, err
	}
	return decompressValue(stored)
}

// Delete removes a key.
func (c *CompressedEngine) Delete(key string) error {
	return c.inner.Delete(key)
}

// Scan returns decompressed values for all keys with the prefix.
func (c *CompressedEngine) Scan(prefix string) (map[string][]byte, error) {
	stored, err := c.inner.Scan(prefix)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]byte, len(stored))
	for key, value := range stored {
		plain, err := decompressValue(value)
		if err != nil {
			return nil, err
		}
		result[key] = plain
	}
	return result, nil
}

// Close closes the underlying engine.
func (c *CompressedEngine) Close() error {
	return c.inner.Close()
}
