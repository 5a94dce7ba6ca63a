package driven

import (
	"context"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// DedupStore persists which content units and threads have been consumed, so
// later runs never narrate the same material twice.
//
// Implementations treat an unreadable or corrupt backing record as empty
// rather than failing the run.
type DedupStore interface {
	// UsedUnits returns the IDs of units already narrated from a thread.
	UsedUnits(ctx context.Context, sourceID string) ([]string, error)

	// AllUsedUnits returns the full thread-to-units mapping.
	AllUsedUnits(ctx context.Context) (map[string][]string, error)

	// RecordUsed merges unit IDs into a thread's used set and persists.
	RecordUsed(ctx context.Context, sourceID string, unitIDs []string) error

	// UnsuitableSources returns thread IDs recorded as never usable.
	UnsuitableSources(ctx context.Context) ([]string, error)

	// RecordUnsuitable marks a thread as never usable and persists.
	// Recording an already present ID is a no-op.
	RecordUnsuitable(ctx context.Context, sourceID string) error
}

// ProducedStore persists the ledger of finished videos.
type ProducedStore interface {
	// IsProduced reports whether a video already exists for the thread.
	IsProduced(ctx context.Context, sourceID string) (bool, error)

	// Record appends a finished video to the ledger.
	Record(ctx context.Context, video *domain.ProducedVideo) error

	// List returns the ledger, newest first.
	List(ctx context.Context) ([]*domain.ProducedVideo, error)
}
