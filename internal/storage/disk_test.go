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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wrendb/internal/config"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	if err := s.Put("schema:users", []byte(`{"name":"users"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("view:v", []byte(`{"name":"v"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("view:v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: puts survive, the delete too.
	s2, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get("schema:users")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"name":"users"}`)) {
		t.Errorf("value = %s", got)
	}
	if _, err := s2.Get("view:v"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted key resurrected: %v", err)
	}
}

func TestDiskStoreJournalReplay(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	// Simulate a crash: no Close, so no final compaction. The value
	// must come back from the journal alone.
	s.journal.Close()

	s2, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("reopen after crash: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get("k")
	if err != nil || string(got) != "v" {
		t.Errorf("journal replay: %s, %v", got, err)
	}
}

func TestDiskStoreCompaction(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	err = s.compact()
	pending := s.pending
	s.mu.Unlock()
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending = %d after compaction", pending)
	}

	info, err := os.Stat(filepath.Join(dir, journalFileName))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("journal size = %d after compaction, want 0", info.Size())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCompressedEngineRoundTrip(t *testing.T) {
	inner := NewMemStore()
	eng := NewCompressedEngine(inner)

	big := bytes.Repeat([]byte(`{"n":"value"},`), 200)
	if err := eng.Put("row:t", big); err != nil {
		t.Fatal(err)
	}

	stored, err := inner.Get("row:t")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) >= len(big) {
		t.Errorf("stored %d bytes for %d plain: not compressed", len(stored), len(big))
	}
	if stored[0] != formatGzip {
		t.Errorf("format byte = %d", stored[0])
	}

	got, err := eng.Get("row:t")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, big) {
		t.Error("round trip mismatch")
	}

	// Tiny values are stored raw.
	if err := eng.Put("k", []byte("tiny")); err != nil {
		t.Fatal(err)
	}
	raw, _ := inner.Get("k")
	if raw[0] != formatRaw || string(raw[1:]) != "tiny" {
		t.Errorf("tiny value not raw: %q", raw)
	}

	scanned, err := eng.Scan("row:")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(scanned["row:t"], big) {
		t.Error("Scan did not decompress")
	}
}

func TestFactoryStacking(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = MemoryDataDir
	cfg.CompressionEnabled = true
	cfg.EncryptionEnabled = true
	cfg.EncryptionPassphrase = "correct horse battery staple"

	eng, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer eng.Close()

	value := bytes.Repeat([]byte("wren"), 100)
	if err := eng.Put("k", value); err != nil {
		t.Fatal(err)
	}
	got, err := eng.Get("k")
	if err != nil || !bytes.Equal(got, value) {
		t.Errorf("stacked round trip: %v", err)
	}
}

func TestFactoryDiskBacked(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	eng, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Put("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}

	eng2, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer eng2.Close()
	got, err := eng2.Get("k")
	if err != nil || string(got) != "v" {
		t.Errorf("persistence through factory: %s, %v", got, err)
	}
}
