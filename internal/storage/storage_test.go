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
	"errors"
	"testing"
)

func TestMemStorePutGet(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	if err := s.Put("schema:users", []byte(`{"name":"users"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	val, err := s.Get("schema:users")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != `{"name":"users"}` {
		t.Errorf("Unexpected value: %s", val)
	}
}

func TestMemStoreNotFound(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	_, err := s.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreDelete(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	s.Put("view:v1", []byte("x"))
	if err := s.Delete("view:v1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// Idempotent.
	if err := s.Delete("view:v1"); err != nil {
		t.Fatalf("Second Delete failed: %v", err)
	}
	if _, err := s.Get("view:v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemStoreScan(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	s.Put("view:a", []byte("1"))
	s.Put("view:b", []byte("2"))
	s.Put("schema:t", []byte("3"))

	result, err := s.Scan("view:")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 view keys, got %d", len(result))
	}
	if string(result["view:a"]) != "1" {
		t.Errorf("Unexpected value for view:a: %s", result["view:a"])
	}
}

func TestMemStoreClosed(t *testing.T) {
	s := NewMemStore()
	s.Close()

	if err := s.Put("k", []byte("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestEncryptedEngineRoundTrip(t *testing.T) {
	inner := NewMemStore()
	eng, err := NewEncryptedEngine(inner, EncryptionConfig{
		Enabled:    true,
		Passphrase: "test-passphrase",
	})
	if err != nil {
		t.Fatalf("NewEncryptedEngine failed: %v", err)
	}
	defer eng.Close()

	plaintext := []byte(`{"name":"v1","query_sql":"SELECT * FROM t"}`)
	if err := eng.Put("view:v1", plaintext); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// The wrapped store must not hold the plaintext.
	raw, err := inner.Get("view:v1")
	if err != nil {
		t.Fatalf("inner Get failed: %v", err)
	}
	if string(raw) == string(plaintext) {
		t.Error("Value stored unencrypted")
	}

	got, err := eng.Get("view:v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("Round trip mismatch: %s", got)
	}

	scanned, err := eng.Scan("view:")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if string(scanned["view:v1"]) != string(plaintext) {
		t.Errorf("Scan did not decrypt: %s", scanned["view:v1"])
	}
}

func TestEncryptedEngineDisabled(t *testing.T) {
	inner := NewMemStore()
	eng, err := NewEncryptedEngine(inner, EncryptionConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewEncryptedEngine failed: %v", err)
	}
	if eng != Engine(inner) {
		t.Error("Expected the inner engine to be returned unwrapped")
	}
}

func TestEncryptedEngineBadKey(t *testing.T) {
	_, err := NewEncryptedEngine(NewMemStore(), EncryptionConfig{
		Enabled: true,
		Key:     []byte("too short"),
	})
	if err == nil {
		t.Fatal("Expected error for short key")
	}
}

func TestCollators(t *testing.T) {
	bin := GetCollator(CollationBinary, "")
	if bin.Compare("a", "B") <= 0 {
		t.Error("Binary: expected 'a' > 'B'")
	}

	nocase := GetCollator(CollationCaseInsensitive, "")
	if !nocase.Equal("Hello", "hello") {
		t.Error("Nocase: expected Hello == hello")
	}
	if nocase.Compare("apple", "Banana") >= 0 {
		t.Error("Nocase: expected apple < Banana")
	}

	uni := GetCollator(CollationUnicode, "en_US")
	if uni.Compare("a", "b") >= 0 {
		t.Error("Unicode: expected a < b")
	}
}
