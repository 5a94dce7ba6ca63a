package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// DefaultMaxWidenings caps how many times thread selection widens its
// listing query after the hot listing comes up empty.
const DefaultMaxWidenings = 5

// wideningPlan is the fixed widening sequence: the hot listing first, then
// top listings over progressively larger windows.
var wideningPlan = []driven.ListingQuery{
	{Sort: driven.SortHot},
	{Sort: driven.SortTop, Time: driven.TimeDay},
	{Sort: driven.SortTop, Time: driven.TimeWeek},
	{Sort: driven.SortTop, Time: driven.TimeMonth},
	{Sort: driven.SortTop, Time: driven.TimeYear},
	{Sort: driven.SortTop, Time: driven.TimeAll},
}

// ThreadSelector picks the next thread to narrate from a subreddit listing.
type ThreadSelector struct {
	source       driven.ContentSource
	dedup        driven.DedupStore
	produced     driven.ProducedStore
	rules        domain.ThreadRules
	suitability  *domain.SuitabilityRules
	subreddit    string
	listingLimit int
	maxWidenings int
	logger       *slog.Logger
}

// ThreadSelectorConfig holds dependencies for ThreadSelector.
type ThreadSelectorConfig struct {
	Source    driven.ContentSource
	Dedup     driven.DedupStore
	Produced  driven.ProducedStore
	Rules     domain.ThreadRules
	Subreddit string

	// Suitability supplies the blocked-term list applied to titles and, in
	// storymode, self texts. Nil disables the check.
	Suitability *domain.SuitabilityRules

	// ListingLimit caps threads fetched per listing. Zero means the
	// provider default.
	ListingLimit int

	// MaxWidenings caps widening retries. Zero means DefaultMaxWidenings.
	MaxWidenings int

	Logger *slog.Logger
}

// NewThreadSelector creates a new thread selector.
func NewThreadSelector(cfg ThreadSelectorConfig) *ThreadSelector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxWidenings := cfg.MaxWidenings
	if maxWidenings <= 0 {
		maxWidenings = DefaultMaxWidenings
	}

	return &ThreadSelector{
		source:       cfg.Source,
		dedup:        cfg.Dedup,
		produced:     cfg.Produced,
		rules:        cfg.Rules,
		suitability:  cfg.Suitability,
		subreddit:    cfg.Subreddit,
		listingLimit: cfg.ListingLimit,
		maxWidenings: maxWidenings,
		logger:       logger,
	}
}

// SelectThread scans listings for the first qualifying thread, widening the
// query when a listing yields nothing. When keywords are configured the
// subreddit search runs first; the listings are the fallback. Running out of
// widenings is an exhausted selection, not an error.
func (s *ThreadSelector) SelectThread(ctx context.Context) (*domain.ThreadSelection, error) {
	unsuitable, err := s.unsuitableSet(ctx)
	if err != nil {
		return nil, err
	}

	sel := &domain.ThreadSelection{State: domain.SelectionExhausted}

	if found, err := s.selectBySearch(ctx, sel, unsuitable); err != nil {
		return nil, err
	} else if found {
		return sel, nil
	}

	plan := wideningPlan
	if max := 1 + s.maxWidenings; len(plan) > max {
		plan = plan[:max]
	}

	for _, q := range plan {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		q.Subreddit = s.subreddit
		q.Limit = s.listingLimit
		sel.Attempts++

		threads, err := s.source.FetchListing(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetch %s listing: %w", q.Sort, err)
		}

		for _, thread := range threads {
			ok, err := s.qualifies(ctx, thread, unsuitable)
			if err != nil {
				return nil, err
			}
			if ok {
				s.logger.Info("thread selected",
					"thread_id", thread.ID,
					"sort", string(q.Sort),
					"time", string(q.Time),
					"attempts", sel.Attempts)
				sel.State = domain.SelectionFound
				sel.Thread = thread
				return sel, nil
			}
		}

		s.logger.Debug("listing exhausted, widening",
			"sort", string(q.Sort), "time", string(q.Time))
	}

	s.logger.Warn("thread selection exhausted",
		"subreddit", s.subreddit, "attempts", sel.Attempts)
	return sel, nil
}

// selectBySearch runs one subreddit search per configured keyword. It
// reports whether sel was filled with a qualifying thread.
func (s *ThreadSelector) selectBySearch(ctx context.Context, sel *domain.ThreadSelection, unsuitable map[string]bool) (bool, error) {
	for _, kw := range s.rules.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		sel.Attempts++

		threads, err := s.source.Search(ctx, driven.SearchQuery{
			Subreddit: s.subreddit,
			Query:     kw,
			Sort:      driven.SortHot,
			Limit:     s.listingLimit,
		})
		if err != nil {
			return false, fmt.Errorf("search %q: %w", kw, err)
		}

		for _, thread := range threads {
			ok, err := s.qualifies(ctx, thread, unsuitable)
			if err != nil {
				return false, err
			}
			if ok {
				s.logger.Info("thread selected",
					"thread_id", thread.ID,
					"keyword", kw,
					"attempts", sel.Attempts)
				sel.State = domain.SelectionFound
				sel.Thread = thread
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *ThreadSelector) qualifies(ctx context.Context, thread *domain.Thread, unsuitable map[string]bool) (bool, error) {
	if unsuitable[thread.ID] {
		return false, nil
	}

	if term := ThreadBlockedTerm(s.suitability, thread, s.rules.Storymode); term != "" {
		s.logger.Info("thread blocked by term, marking unsuitable",
			"thread_id", thread.ID, "term", term)
		if err := s.dedup.RecordUnsuitable(ctx, thread.ID); err != nil {
			s.logger.Warn("unsuitable ledger write failed",
				"thread_id", thread.ID, "error", err)
		}
		unsuitable[thread.ID] = true
		return false, nil
	}

	if !CheckThread(thread, s.rules) {
		return false, nil
	}

	done, err := s.produced.IsProduced(ctx, thread.ID)
	if err != nil {
		return false, fmt.Errorf("check produced ledger: %w", err)
	}
	return !done, nil
}

func (s *ThreadSelector) unsuitableSet(ctx context.Context) (map[string]bool, error) {
	ids, err := s.dedup.UnsuitableSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unsuitable ledger: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// UnitSelector walks a thread's comment tree breadth first and collects
// units that pass the suitability checker.
type UnitSelector struct {
	source  driven.ContentSource
	dedup   driven.DedupStore
	checker *SuitabilityChecker
	limits  domain.ScanLimits
	logger  *slog.Logger
}

// UnitSelectorConfig holds dependencies for UnitSelector.
type UnitSelectorConfig struct {
	Source  driven.ContentSource
	Dedup   driven.DedupStore
	Checker *SuitabilityChecker
	Limits  domain.ScanLimits
	Logger  *slog.Logger
}

// NewUnitSelector creates a new unit selector.
func NewUnitSelector(cfg UnitSelectorConfig) *UnitSelector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limits := cfg.Limits
	if limits.MaxUnits <= 0 || limits.MaxNodes <= 0 {
		limits = domain.DefaultScanLimits(limits.MaxUnits)
	}

	return &UnitSelector{
		source:  cfg.Source,
		dedup:   cfg.Dedup,
		checker: cfg.Checker,
		limits:  limits,
		logger:  logger,
	}
}

// SelectUnits walks the tree under the scan limits and returns up to
// maxPicks accepted units in encounter order. maxPicks <= 0 keeps going
// until a limit is hit. Pagination markers are expanded in place and count
// only against the node limit.
func (s *UnitSelector) SelectUnits(ctx context.Context, threadID string, maxPicks int) (*domain.UnitSelection, error) {
	_, tree, err := s.source.FetchThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("fetch thread %s: %w", threadID, err)
	}

	usedIDs, err := s.dedup.UsedUnits(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load used ledger: %w", err)
	}
	used := make(map[string]bool, len(usedIDs))
	for _, id := range usedIDs {
		used[id] = true
	}

	sel := &domain.UnitSelection{State: domain.SelectionExhausted}
	seen := make(map[string]bool)

	queue := make([]domain.TreeItem, len(tree))
	copy(queue, tree)

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if sel.NodesProcessed >= s.limits.MaxNodes {
			s.logger.Debug("node limit reached",
				"thread_id", threadID, "nodes", sel.NodesProcessed)
			sel.Truncated = true
			break
		}

		item := queue[0]
		queue = queue[1:]
		sel.NodesProcessed++

		if item.More != nil {
			if seen[item.More.ID] {
				continue
			}
			seen[item.More.ID] = true

			expanded, err := s.source.ExpandMore(ctx, threadID, *item.More)
			if err != nil {
				s.logger.Warn("marker expansion failed",
					"thread_id", threadID, "marker_id", item.More.ID, "error", err)
				continue
			}
			queue = append(queue, expanded...)
			continue
		}

		node := item.Node
		if node == nil || seen[node.Unit.ID] {
			continue
		}
		seen[node.Unit.ID] = true
		queue = append(queue, node.Children...)

		if sel.UnitsEvaluated >= s.limits.MaxUnits {
			s.logger.Debug("unit limit reached",
				"thread_id", threadID, "units", sel.UnitsEvaluated)
			sel.Truncated = true
			break
		}
		sel.UnitsEvaluated++

		clean, verdict := s.checker.CheckUnit(node.Unit, used)
		if !verdict.Accepted {
			s.logger.Debug("unit rejected",
				"unit_id", node.Unit.ID, "reason", string(verdict.Reason))
			continue
		}

		sel.Units = append(sel.Units, domain.SelectedUnit{
			Unit:      node.Unit,
			CleanText: clean,
		})
		if maxPicks > 0 && len(sel.Units) >= maxPicks {
			break
		}
	}

	if len(sel.Units) > 0 {
		sel.State = domain.SelectionFound
	}
	return sel, nil
}
