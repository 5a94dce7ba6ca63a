package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ProducedStore = (*ProducedStore)(nil)

// ProducedStore implements driven.ProducedStore using SQLite.
type ProducedStore struct {
	db *DB
}

// NewProducedStore creates a new ProducedStore.
func NewProducedStore(db *DB) *ProducedStore {
	return &ProducedStore{db: db}
}

// IsProduced reports whether a video already exists for the thread.
func (s *ProducedStore) IsProduced(ctx context.Context, sourceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM produced_videos WHERE source_id = ?
	`, sourceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query produced: %w", err)
	}
	return n > 0, nil
}

// Record appends a finished video to the ledger. Recording the same thread
// twice keeps the first entry.
func (s *ProducedStore) Record(ctx context.Context, video *domain.ProducedVideo) error {
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO produced_videos (source_id, subreddit, title, filename, background_credit, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO NOTHING
	`, video.SourceID, video.Subreddit, video.Title, video.Filename, video.Credit, video.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert produced video: %w", err)
	}
	return nil
}

// List returns the ledger, newest first.
func (s *ProducedStore) List(ctx context.Context) ([]*domain.ProducedVideo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, subreddit, title, filename, background_credit, created_at
		FROM produced_videos
		ORDER BY created_at DESC, source_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query produced videos: %w", err)
	}
	defer rows.Close()

	var out []*domain.ProducedVideo
	for rows.Next() {
		var v domain.ProducedVideo
		if err := rows.Scan(&v.SourceID, &v.Subreddit, &v.Title, &v.Filename, &v.Credit, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan produced video: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
