package mocks

import (
	"context"
	"sync"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// MockContentSource is a mock implementation of ContentSource for testing.
// Listings are keyed by sort and time filter so tests can script the
// widening sequence.
type MockContentSource struct {
	mu       sync.Mutex
	listings map[string][]*domain.Thread
	threads  map[string]*domain.Thread
	trees    map[string][]domain.TreeItem
	expanded map[string][]domain.TreeItem

	// ListingCalls records every query, in order.
	ListingCalls []driven.ListingQuery

	// Custom behavior hooks (optional)
	FetchListingFn func(q driven.ListingQuery) ([]*domain.Thread, error)
	FetchThreadFn  func(threadID string) (*domain.Thread, []domain.TreeItem, error)
	ExpandMoreFn   func(threadID string, marker domain.MoreMarker) ([]domain.TreeItem, error)
	SearchFn       func(q driven.SearchQuery) ([]*domain.Thread, error)
}

// NewMockContentSource creates a new mock content source.
func NewMockContentSource() *MockContentSource {
	return &MockContentSource{
		listings: make(map[string][]*domain.Thread),
		threads:  make(map[string]*domain.Thread),
		trees:    make(map[string][]domain.TreeItem),
		expanded: make(map[string][]domain.TreeItem),
	}
}

func listingKey(sort driven.Sort, time driven.TimeFilter) string {
	return string(sort) + "/" + string(time)
}

// SetListing scripts the threads returned for a sort and time filter.
func (m *MockContentSource) SetListing(sort driven.Sort, time driven.TimeFilter, threads []*domain.Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[listingKey(sort, time)] = threads
}

// SetThread scripts a thread and its comment tree.
func (m *MockContentSource) SetThread(thread *domain.Thread, tree []domain.TreeItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[thread.ID] = thread
	m.trees[thread.ID] = tree
}

// SetExpansion scripts the subtree returned for a more marker.
func (m *MockContentSource) SetExpansion(markerID string, items []domain.TreeItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expanded[markerID] = items
}

func (m *MockContentSource) FetchListing(ctx context.Context, q driven.ListingQuery) ([]*domain.Thread, error) {
	m.mu.Lock()
	m.ListingCalls = append(m.ListingCalls, q)
	m.mu.Unlock()

	if m.FetchListingFn != nil {
		return m.FetchListingFn(q)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listings[listingKey(q.Sort, q.Time)], nil
}

func (m *MockContentSource) FetchThread(ctx context.Context, threadID string) (*domain.Thread, []domain.TreeItem, error) {
	if m.FetchThreadFn != nil {
		return m.FetchThreadFn(threadID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[threadID]
	if !ok {
		return nil, nil, domain.ErrSourceNotFound
	}
	return thread, m.trees[threadID], nil
}

func (m *MockContentSource) ExpandMore(ctx context.Context, threadID string, marker domain.MoreMarker) ([]domain.TreeItem, error) {
	if m.ExpandMoreFn != nil {
		return m.ExpandMoreFn(threadID, marker)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expanded[marker.ID], nil
}

func (m *MockContentSource) Search(ctx context.Context, q driven.SearchQuery) ([]*domain.Thread, error) {
	if m.SearchFn != nil {
		return m.SearchFn(q)
	}
	return nil, nil
}
