package driving

import (
	"context"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// ProduceOrchestrator coordinates turning a thread into a finished video.
type ProduceOrchestrator interface {
	// ProduceNext selects the next suitable thread and produces a video
	// from it.
	ProduceNext(ctx context.Context) (*domain.ProduceResult, error)

	// ProduceSource produces a video from a specific thread. force bypasses
	// the already-produced skip.
	ProduceSource(ctx context.Context, sourceID string, force bool) (*domain.ProduceResult, error)

	// ProduceBatch produces up to count videos, selecting a fresh thread
	// for each. Threads that fail are skipped, not retried.
	ProduceBatch(ctx context.Context, count int) ([]*domain.ProduceResult, error)
}

// Scheduler manages periodic batch production.
type Scheduler interface {
	// Start begins the scheduler.
	Start(ctx context.Context) error

	// Stop stops the scheduler and waits for the loop to exit.
	Stop()
}
