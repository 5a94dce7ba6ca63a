// Package file implements the ledger stores as JSON files on disk, matching
// the layout single-host deployments keep next to their output directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DedupStore = (*DedupStore)(nil)

const (
	usedFile       = "used_units.json"
	unsuitableFile = "unsuitable_threads.json"
)

// DedupStore implements driven.DedupStore with two JSON files: a
// thread-to-units map and a flat list of unsuitable thread IDs.
//
// A corrupt file resets to empty with a warning instead of failing the run.
type DedupStore struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

// NewDedupStore creates a dedup store rooted at dir, creating it if needed.
func NewDedupStore(dir string, logger *slog.Logger) (*DedupStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &DedupStore{dir: dir, logger: logger}, nil
}

// UsedUnits returns the IDs of units already narrated from a thread.
func (s *DedupStore) UsedUnits(ctx context.Context, sourceID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsed()[sourceID], nil
}

// AllUsedUnits returns the full thread-to-units mapping.
func (s *DedupStore) AllUsedUnits(ctx context.Context) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsed(), nil
}

// RecordUsed merges unit IDs into a thread's used set and persists.
func (s *DedupStore) RecordUsed(ctx context.Context, sourceID string, unitIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.loadUsed()
	seen := make(map[string]bool, len(used[sourceID]))
	for _, id := range used[sourceID] {
		seen[id] = true
	}
	for _, id := range unitIDs {
		if !seen[id] {
			used[sourceID] = append(used[sourceID], id)
			seen[id] = true
		}
	}
	sort.Strings(used[sourceID])

	return s.writeJSON(usedFile, used)
}

// UnsuitableSources returns thread IDs recorded as never usable.
func (s *DedupStore) UnsuitableSources(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUnsuitable(), nil
}

// RecordUnsuitable marks a thread as never usable and persists.
func (s *DedupStore) RecordUnsuitable(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.loadUnsuitable()
	for _, id := range ids {
		if id == sourceID {
			return nil
		}
	}
	ids = append(ids, sourceID)
	sort.Strings(ids)

	return s.writeJSON(unsuitableFile, ids)
}

func (s *DedupStore) loadUsed() map[string][]string {
	used := make(map[string][]string)
	s.loadJSON(usedFile, &used)
	if used == nil {
		used = make(map[string][]string)
	}
	return used
}

func (s *DedupStore) loadUnsuitable() []string {
	var ids []string
	s.loadJSON(unsuitableFile, &ids)
	return ids
}

// loadJSON reads a ledger file into v. Missing files are empty ledgers;
// unreadable ones reset to empty with a warning.
func (s *DedupStore) loadJSON(name string, v any) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("ledger unreadable, treating as empty", "file", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("ledger corrupt, resetting to empty", "file", path, "error", err)
	}
}

func (s *DedupStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
