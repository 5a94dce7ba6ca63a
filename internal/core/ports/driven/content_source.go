package driven

import (
	"context"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// Sort orders a listing fetch.
type Sort string

const (
	SortHot Sort = "hot"
	SortTop Sort = "top"
)

// TimeFilter narrows a top listing to a window. Only meaningful with SortTop.
type TimeFilter string

const (
	TimeHour  TimeFilter = "hour"
	TimeDay   TimeFilter = "day"
	TimeWeek  TimeFilter = "week"
	TimeMonth TimeFilter = "month"
	TimeYear  TimeFilter = "year"
	TimeAll   TimeFilter = "all"
)

// ListingQuery describes one listing fetch.
type ListingQuery struct {
	// Subreddit is the community to list, without the "r/" prefix.
	Subreddit string

	// Sort selects the listing ordering.
	Sort Sort

	// Time narrows SortTop listings. Ignored for SortHot.
	Time TimeFilter

	// Limit caps the number of threads returned. Zero means the
	// provider default.
	Limit int
}

// SearchQuery describes a keyword search within a subreddit.
type SearchQuery struct {
	Subreddit string
	Query     string
	Sort      Sort
	Time      TimeFilter
	Limit     int
}

// ContentSource fetches threads and comment trees from the upstream provider.
//
// Implementations return domain.ErrSourceAuth for credential failures,
// domain.ErrSourceNotFound when the subreddit or thread does not exist, and
// domain.ErrSourceUnavailable for transport or rate-limit failures.
type ContentSource interface {
	// FetchListing retrieves thread summaries for a listing query.
	FetchListing(ctx context.Context, q ListingQuery) ([]*domain.Thread, error)

	// FetchThread retrieves a thread together with its comment tree.
	// Unexpanded branches appear as more markers in the tree.
	FetchThread(ctx context.Context, threadID string) (*domain.Thread, []domain.TreeItem, error)

	// ExpandMore resolves a more marker into the subtree it stands for.
	// The result may itself contain further markers.
	ExpandMore(ctx context.Context, threadID string, marker domain.MoreMarker) ([]domain.TreeItem, error)

	// Search retrieves thread summaries matching a keyword query.
	Search(ctx context.Context, q SearchQuery) ([]*domain.Thread, error)
}
