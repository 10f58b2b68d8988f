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

package storage

import (
	"wrendb/internal/config"
)

// MemoryDataDir is the DataDir value selecting the in-memory store.
const MemoryDataDir = ":memory:"

// NewEngine builds the storage stack from configuration.
//
// The base store is in-memory when DataDir is ":memory:" (or empty),
// otherwise disk-backed in DataDir. Compression and encryption wrap
// the base in that order, so values compress before they encrypt;
// the other way around there would be nothing left to compress.
func NewEngine(cfg *config.Config) (Engine, error) {
	var eng Engine
	if cfg.DataDir == "" || cfg.DataDir == MemoryDataDir {
		eng = NewMemStore()
	} else {
		disk, err := NewDiskStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		eng = disk
	}

	eng, err := NewEncryptedEngine(eng, EncryptionConfig{
		Enabled:    cfg.EncryptionEnabled,
		Passphrase: cfg.EncryptionPassphrase,
	})
	if err != nil {
		return nil, err
	}

	if cfg.CompressionEnabled {
		eng = NewCompressedEngine(eng)
	}
	return eng, nil
}
