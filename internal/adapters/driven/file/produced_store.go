package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ProducedStore = (*ProducedStore)(nil)

const producedFile = "produced_videos.json"

// ProducedStore implements driven.ProducedStore as a JSON list on disk.
type ProducedStore struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

// NewProducedStore creates a produced store rooted at dir, creating it if
// needed.
func NewProducedStore(dir string, logger *slog.Logger) (*ProducedStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &ProducedStore{dir: dir, logger: logger}, nil
}

// IsProduced reports whether a video already exists for the thread.
func (s *ProducedStore) IsProduced(ctx context.Context, sourceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.load() {
		if v.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

// Record appends a finished video to the ledger.
func (s *ProducedStore) Record(ctx context.Context, video *domain.ProducedVideo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now()
	}
	videos := append(s.load(), video)

	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	path := filepath.Join(s.dir, producedFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// List returns the ledger, newest first.
func (s *ProducedStore) List(ctx context.Context) ([]*domain.ProducedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	videos := s.load()
	out := make([]*domain.ProducedVideo, 0, len(videos))
	for i := len(videos) - 1; i >= 0; i-- {
		out = append(out, videos[i])
	}
	return out, nil
}

func (s *ProducedStore) load() []*domain.ProducedVideo {
	path := filepath.Join(s.dir, producedFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("ledger unreadable, treating as empty", "file", path, "error", err)
		}
		return nil
	}

	var videos []*domain.ProducedVideo
	if err := json.Unmarshal(data, &videos); err != nil {
		s.logger.Warn("ledger corrupt, resetting to empty", "file", path, "error", err)
		return nil
	}
	return videos
}
