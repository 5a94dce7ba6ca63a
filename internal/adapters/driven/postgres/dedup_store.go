package postgres

import (
	"context"
	"fmt"

	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DedupStore = (*DedupStore)(nil)

// DedupStore implements driven.DedupStore using PostgreSQL.
type DedupStore struct {
	db *DB
}

// NewDedupStore creates a new DedupStore.
func NewDedupStore(db *DB) *DedupStore {
	return &DedupStore{db: db}
}

// UsedUnits returns the IDs of units already narrated from a thread.
func (s *DedupStore) UsedUnits(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unit_id FROM used_units
		WHERE source_id = $1
		ORDER BY unit_id
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query used units: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan used unit: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllUsedUnits returns the full thread-to-units mapping.
func (s *DedupStore) AllUsedUnits(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, unit_id FROM used_units
		ORDER BY source_id, unit_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query used units: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var sourceID, unitID string
		if err := rows.Scan(&sourceID, &unitID); err != nil {
			return nil, fmt.Errorf("scan used unit: %w", err)
		}
		out[sourceID] = append(out[sourceID], unitID)
	}
	return out, rows.Err()
}

// RecordUsed merges unit IDs into a thread's used set.
func (s *DedupStore) RecordUsed(ctx context.Context, sourceID string, unitIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range unitIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO used_units (source_id, unit_id) VALUES ($1, $2)
			ON CONFLICT (source_id, unit_id) DO NOTHING
		`, sourceID, id)
		if err != nil {
			return fmt.Errorf("insert used unit: %w", err)
		}
	}
	return tx.Commit()
}

// UnsuitableSources returns thread IDs recorded as never usable.
func (s *DedupStore) UnsuitableSources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id FROM unsuitable_threads ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query unsuitable threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unsuitable thread: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordUnsuitable marks a thread as never usable.
func (s *DedupStore) RecordUnsuitable(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unsuitable_threads (source_id) VALUES ($1)
		ON CONFLICT (source_id) DO NOTHING
	`, sourceID)
	if err != nil {
		return fmt.Errorf("insert unsuitable thread: %w", err)
	}
	return nil
}
