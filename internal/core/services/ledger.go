package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driving"
)

var _ driving.LedgerService = (*LedgerService)(nil)

// LedgerService exposes the dedup and produced ledgers for inspection and
// manual edits.
type LedgerService struct {
	dedup    driven.DedupStore
	produced driven.ProducedStore
	logger   *slog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(dedup driven.DedupStore, produced driven.ProducedStore, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{dedup: dedup, produced: produced, logger: logger}
}

// UsedUnits returns the thread-to-units mapping of narrated content.
func (s *LedgerService) UsedUnits(ctx context.Context) (map[string][]string, error) {
	m, err := s.dedup.AllUsedUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load used ledger: %w", err)
	}
	return m, nil
}

// UnsuitableSources returns thread IDs recorded as never usable.
func (s *LedgerService) UnsuitableSources(ctx context.Context) ([]string, error) {
	ids, err := s.dedup.UnsuitableSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unsuitable ledger: %w", err)
	}
	return ids, nil
}

// Produced returns the finished-video ledger, newest first.
func (s *LedgerService) Produced(ctx context.Context) ([]*domain.ProducedVideo, error) {
	videos, err := s.produced.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load produced ledger: %w", err)
	}
	return videos, nil
}

// MarkUsed manually marks units of a thread as consumed. Recording the same
// IDs twice is a no-op, so the call is idempotent.
func (s *LedgerService) MarkUsed(ctx context.Context, sourceID string, unitIDs []string) error {
	if sourceID == "" || len(unitIDs) == 0 {
		return fmt.Errorf("%w: source ID and unit IDs required", domain.ErrInvalidInput)
	}
	if err := s.dedup.RecordUsed(ctx, sourceID, unitIDs); err != nil {
		return fmt.Errorf("record used units: %w", err)
	}
	s.logger.Info("units marked used", "source_id", sourceID, "count", len(unitIDs))
	return nil
}

// MarkUnsuitable manually records a thread as never usable.
func (s *LedgerService) MarkUnsuitable(ctx context.Context, sourceID string) error {
	if sourceID == "" {
		return fmt.Errorf("%w: source ID required", domain.ErrInvalidInput)
	}
	if err := s.dedup.RecordUnsuitable(ctx, sourceID); err != nil {
		return fmt.Errorf("record unsuitable thread: %w", err)
	}
	s.logger.Info("thread marked unsuitable", "source_id", sourceID)
	return nil
}
