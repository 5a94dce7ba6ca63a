package driving

import (
	"context"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// LedgerService exposes the dedup and produced ledgers for inspection and
// manual edits.
type LedgerService interface {
	// UsedUnits returns the thread-to-units mapping of narrated content.
	UsedUnits(ctx context.Context) (map[string][]string, error)

	// UnsuitableSources returns thread IDs recorded as never usable.
	UnsuitableSources(ctx context.Context) ([]string, error)

	// Produced returns the finished-video ledger, newest first.
	Produced(ctx context.Context) ([]*domain.ProducedVideo, error)

	// MarkUsed manually marks units of a thread as consumed.
	MarkUsed(ctx context.Context, sourceID string, unitIDs []string) error

	// MarkUnsuitable manually records a thread as never usable.
	MarkUnsuitable(ctx context.Context, sourceID string) error
}
