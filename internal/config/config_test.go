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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PlanCacheEntries != 64 {
		t.Errorf("Expected plan_cache_entries 64, got %d", cfg.PlanCacheEntries)
	}
	if cfg.MaxRecursionDepth != 1000 {
		t.Errorf("Expected max_recursion_depth 1000, got %d", cfg.MaxRecursionDepth)
	}
	if cfg.Collation != "BINARY" {
		t.Errorf("Expected BINARY collation, got %s", cfg.Collation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlanCacheEntries = 0
	cfg.Collation = "FRENCH"
	cfg.LogLevel = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation failure")
	}
	msg := err.Error()
	for _, want := range []string{"plan_cache_entries", "collation", "log_level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected error to mention %s: %v", want, err)
		}
	}
}

func TestValidateEncryptionNeedsPassphrase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EncryptionEnabled = true

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation failure without passphrase")
	}

	cfg.EncryptionPassphrase = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config with passphrase: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wrendb.conf")
	content := `
# test config
data_dir = "/tmp/wren-test"
plan_cache_entries = 16
max_recursion_depth = 50
collation = "NOCASE"
log_level = "debug"
log_json = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	m := NewManager()
	if err := m.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	cfg := m.Get()
	if cfg.DataDir != "/tmp/wren-test" {
		t.Errorf("Unexpected data_dir: %s", cfg.DataDir)
	}
	if cfg.PlanCacheEntries != 16 {
		t.Errorf("Unexpected plan_cache_entries: %d", cfg.PlanCacheEntries)
	}
	if cfg.MaxRecursionDepth != 50 {
		t.Errorf("Unexpected max_recursion_depth: %d", cfg.MaxRecursionDepth)
	}
	if cfg.Collation != "NOCASE" {
		t.Errorf("Unexpected collation: %s", cfg.Collation)
	}
	if !cfg.LogJSON {
		t.Error("Expected log_json true")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvPlanCacheEntries, "128")
	t.Setenv(EnvLogLevel, "warn")

	m := NewManager()
	m.LoadFromEnv()

	cfg := m.Get()
	if cfg.PlanCacheEntries != 128 {
		t.Errorf("Expected env override 128, got %d", cfg.PlanCacheEntries)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected env override warn, got %s", cfg.LogLevel)
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlanCacheEntries = 32
	cfg.Collation = "UNICODE"

	parsed := DefaultConfig()
	if err := parseTOML(cfg.ToTOML(), parsed); err != nil {
		t.Fatalf("parseTOML failed: %v", err)
	}
	if parsed.PlanCacheEntries != 32 {
		t.Errorf("Round trip lost plan_cache_entries: %d", parsed.PlanCacheEntries)
	}
	if parsed.Collation != "UNICODE" {
		t.Errorf("Round trip lost collation: %s", parsed.Collation)
	}
}
