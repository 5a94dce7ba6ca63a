package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// MockDedupStore is a mock implementation of DedupStore for testing.
type MockDedupStore struct {
	mu         sync.Mutex
	used       map[string][]string
	unsuitable map[string]bool

	// RecordUsedErr makes RecordUsed fail when set.
	RecordUsedErr error
}

// NewMockDedupStore creates a new mock dedup store.
func NewMockDedupStore() *MockDedupStore {
	return &MockDedupStore{
		used:       make(map[string][]string),
		unsuitable: make(map[string]bool),
	}
}

func (m *MockDedupStore) UsedUnits(ctx context.Context, sourceID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.used[sourceID]))
	copy(out, m.used[sourceID])
	return out, nil
}

func (m *MockDedupStore) AllUsedUnits(ctx context.Context) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.used))
	for k, v := range m.used {
		ids := make([]string, len(v))
		copy(ids, v)
		out[k] = ids
	}
	return out, nil
}

func (m *MockDedupStore) RecordUsed(ctx context.Context, sourceID string, unitIDs []string) error {
	if m.RecordUsedErr != nil {
		return m.RecordUsedErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool, len(m.used[sourceID]))
	for _, id := range m.used[sourceID] {
		seen[id] = true
	}
	for _, id := range unitIDs {
		if !seen[id] {
			m.used[sourceID] = append(m.used[sourceID], id)
			seen[id] = true
		}
	}
	sort.Strings(m.used[sourceID])
	return nil
}

func (m *MockDedupStore) UnsuitableSources(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.unsuitable))
	for id := range m.unsuitable {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockDedupStore) RecordUnsuitable(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsuitable[sourceID] = true
	return nil
}

// MockProducedStore is a mock implementation of ProducedStore for testing.
type MockProducedStore struct {
	mu     sync.Mutex
	videos []*domain.ProducedVideo
}

// NewMockProducedStore creates a new mock produced store.
func NewMockProducedStore() *MockProducedStore {
	return &MockProducedStore{}
}

func (m *MockProducedStore) IsProduced(ctx context.Context, sourceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.videos {
		if v.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockProducedStore) Record(ctx context.Context, video *domain.ProducedVideo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now()
	}
	m.videos = append(m.videos, video)
	return nil
}

func (m *MockProducedStore) List(ctx context.Context) ([]*domain.ProducedVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ProducedVideo, len(m.videos))
	copy(out, m.videos)
	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
