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
Disk Store:
===========

DiskStore is an Engine backed by two files in a data directory:

	snapshot.json - the full key/value map at the last compaction
	journal.log   - one JSON record per mutation since the snapshot

Opening the store loads the snapshot and replays the journal, so a
crash between compactions loses nothing that reached the journal.
When the journal grows past a threshold it is folded into a fresh
snapshot (written to a temp file and renamed, so a crash mid-compaction
leaves the old pair intact) and truncated.

The whole data set lives in memory; the files exist for durability, not
for working sets larger than RAM. That matches how the catalog uses the
engine: a bounded number of schema, view, row, and user records.
*/

package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const (
	snapshotFileName = "snapshot.json"
	journalFileName  = "journal.log"

	// compactThreshold is the journal record count that triggers
	// folding the journal into the snapshot.
	compactThreshold = 4096
)

// journalRecord is one logged mutation. Op is "put" or "del".
type journalRecord struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// DiskStore is a durable Engine over a data directory.
type DiskStore struct {
	mu      sync.RWMutex
	dir     string
	data    map[string][]byte
	journal *os.File
	pending int // journal records since the last compaction
	closed  bool
}

// NewDiskStore opens (or creates) a store in dir.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	s := &DiskStore{
		dir:  dir,
		data: make(map[string][]byte),
	}
	if err := s.loadSnapshot(); err != nil {
		return nil, err
	}
	if err := s.replayJournal(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.journalPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	s.journal = f
	return s, nil
}

func (s *DiskStore) snapshotPath() string { return filepath.Join(s.dir, snapshotFileName) }
func (s *DiskStore) journalPath() string  { return filepath.Join(s.dir, journalFileName) }

func (s *DiskStore) loadSnapshot() error {
	raw, err := os.ReadFile(s.snapshotPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &s.data)
}

func (s *DiskStore) replayJournal() error {
	f, err := os.Open(s.journalPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec journalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// A torn final record from a crash mid-write; everything
			// before it replayed cleanly, so stop here.
			break
		}
		switch rec.Op {
		case "put":
			s.data[rec.Key] = rec.Value
		case "del":
			delete(s.data, rec.Key)
		}
		s.pending++
	}
	return scanner.Err()
}

// appendRecord logs one mutation. Caller holds the write lock.
func (s *DiskStore) appendRecord(rec journalRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := s.journal.Write(line); err != nil {
		return err
	}
	s.pending++
	if s.pending >= compactThreshold {
		return s.compact()
	}
	return nil
}

// compact folds the journal into a fresh snapshot. Caller holds the
// write lock.
func (s *DiskStore) compact() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	tmp := s.snapshotPath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath()); err != nil {
		return err
	}
	if err := s.journal.Truncate(0); err != nil {
		return err
	}
	if _, err := s.journal.Seek(0, 0); err != nil {
		return err
	}
	s.pending = 0
	return nil
}

// Put stores a value, overwriting any existing value for the key.
func (s *DiskStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return s.appendRecord(journalRecord{Op: "put", Key: key, Value: stored})
}

// Get retrieves the value for a key.
func (s *DiskStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *DiskStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.appendRecord(journalRecord{Op: "del", Key: key})
}

// Scan returns all key/value pairs whose key starts with prefix.
func (s *DiskStore) Scan(prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	result := make(map[string][]byte)
	for key, value := range s.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out := make([]byte, len(value))
			copy(out, value)
			result[key] = out
		}
	}
	return result, nil
}

// Close compacts and closes the store. Further operations fail with
// ErrClosed.
func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.compact(); err != nil {
		s.journal.Close()
		return err
	}
	return s.journal.Close()
}
