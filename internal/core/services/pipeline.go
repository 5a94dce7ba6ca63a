package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driving"
	"github.com/storyforge-labs/storyforge-core/internal/sanitize"
	"github.com/storyforge-labs/storyforge-core/internal/segmenter"
	"github.com/storyforge-labs/storyforge-core/internal/timeline"
)

const (
	// DefaultMaxAudioSeconds caps the narration length of one video.
	DefaultMaxAudioSeconds = 50.0

	// produceLockTTL bounds how long one instance may hold a thread.
	produceLockTTL = 10 * time.Minute
)

var _ driving.ProduceOrchestrator = (*ProduceOrchestrator)(nil)

// ProduceOrchestrator coordinates the produce pipeline:
//  1. Check the produced ledger
//  2. Select (or fetch) the thread and its narratable units
//  3. Segment unit text for narration and captions
//  4. Narrate the title, then units until the length budget is spent
//  5. Render caption overlays
//  6. Lay the timeline and compose the final video
//  7. Record the dedup and produced ledgers
type ProduceOrchestrator struct {
	source      driven.ContentSource
	engine      driven.NarrationEngine
	captions    driven.CaptionRenderer
	compositor  driven.Compositor
	dedup       driven.DedupStore
	produced    driven.ProducedStore
	lock        driven.DistributedLock
	threadSel   *ThreadSelector
	unitSel     *UnitSelector
	cleaner     *sanitize.Pipeline
	seg         *segmenter.Segmenter
	rules       domain.ThreadRules
	suitability *domain.SuitabilityRules
	workDir     string
	outputDir   string
	background  string
	bgAudio     string
	bgCredit    string
	maxAudioSec float64
	keepWork    bool
	logger      *slog.Logger
}

// ProduceOrchestratorConfig holds dependencies for ProduceOrchestrator.
type ProduceOrchestratorConfig struct {
	Source     driven.ContentSource
	Engine     driven.NarrationEngine
	Captions   driven.CaptionRenderer
	Compositor driven.Compositor
	Dedup      driven.DedupStore
	Produced   driven.ProducedStore

	// Lock is optional; without it concurrent instances may duplicate work.
	Lock driven.DistributedLock

	ThreadSelector *ThreadSelector
	UnitSelector   *UnitSelector

	// Cleaner defaults to the speech pipeline.
	Cleaner *sanitize.Pipeline

	// CaptionWordLimit caps words per caption chunk. Zero shows each
	// narration piece as one caption.
	CaptionWordLimit int

	Rules domain.ThreadRules

	// Suitability supplies the blocked-term list applied to thread titles
	// and storymode self texts. Nil disables the check.
	Suitability *domain.SuitabilityRules

	// WorkDir holds per-run intermediate assets. Defaults to the system
	// temp directory.
	WorkDir string

	// OutputDir receives finished videos.
	OutputDir string

	// Background is the looping backdrop video. BackgroundAudio is an
	// optional music track, BackgroundCredit its attribution.
	Background       string
	BackgroundAudio  string
	BackgroundCredit string

	// MaxAudioSeconds caps narration length. Zero means the default.
	MaxAudioSeconds float64

	// KeepWorkDir leaves intermediate assets on disk for debugging.
	KeepWorkDir bool

	Logger *slog.Logger
}

// NewProduceOrchestrator creates a new produce orchestrator.
func NewProduceOrchestrator(cfg ProduceOrchestratorConfig) *ProduceOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cleaner := cfg.Cleaner
	if cleaner == nil {
		cleaner = sanitize.SpeechPipeline()
	}
	maxAudio := cfg.MaxAudioSeconds
	if maxAudio <= 0 {
		maxAudio = DefaultMaxAudioSeconds
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}

	seg := segmenter.New(segmenter.Config{
		NarrationCharLimit: cfg.Engine.MaxChars(),
		CaptionWordLimit:   cfg.CaptionWordLimit,
	})

	return &ProduceOrchestrator{
		source:      cfg.Source,
		engine:      cfg.Engine,
		captions:    cfg.Captions,
		compositor:  cfg.Compositor,
		dedup:       cfg.Dedup,
		produced:    cfg.Produced,
		lock:        cfg.Lock,
		threadSel:   cfg.ThreadSelector,
		unitSel:     cfg.UnitSelector,
		cleaner:     cleaner,
		seg:         seg,
		rules:       cfg.Rules,
		suitability: cfg.Suitability,
		workDir:     workDir,
		outputDir:   cfg.OutputDir,
		background:  cfg.Background,
		bgAudio:     cfg.BackgroundAudio,
		bgCredit:    cfg.BackgroundCredit,
		maxAudioSec: maxAudio,
		keepWork:    cfg.KeepWorkDir,
		logger:      logger,
	}
}

// ProduceNext selects the next suitable thread and produces a video from it.
// An exhausted selection is reported in the result, not as an error.
func (o *ProduceOrchestrator) ProduceNext(ctx context.Context) (*domain.ProduceResult, error) {
	sel, err := o.threadSel.SelectThread(ctx)
	if err != nil {
		return nil, err
	}
	if !sel.Found() {
		return &domain.ProduceResult{
			Skipped: true,
			Error:   domain.ErrNoCandidate.Error(),
		}, nil
	}
	return o.produce(ctx, sel.Thread, false)
}

// ProduceSource produces a video from a specific thread. force bypasses the
// already-produced skip, re-rendering a thread that is in the ledger.
func (o *ProduceOrchestrator) ProduceSource(ctx context.Context, sourceID string, force bool) (*domain.ProduceResult, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source ID required", domain.ErrInvalidInput)
	}

	thread, _, err := o.source.FetchThread(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("fetch thread %s: %w", sourceID, err)
	}
	return o.produce(ctx, thread, force)
}

func (o *ProduceOrchestrator) produce(ctx context.Context, thread *domain.Thread, force bool) (*domain.ProduceResult, error) {
	startTime := time.Now()
	result := &domain.ProduceResult{SourceID: thread.ID}

	done, err := o.produced.IsProduced(ctx, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("check produced ledger: %w", err)
	}
	if done && !force {
		o.logger.Info("thread already produced, skipping", "thread_id", thread.ID)
		result.Skipped = true
		result.Error = domain.ErrAlreadyProduced.Error()
		return result, nil
	}

	// The title opens the narration, so a blocked term there poisons the
	// whole video regardless of how the thread was chosen.
	if term := ThreadBlockedTerm(o.suitability, thread, o.rules.Storymode); term != "" {
		o.logger.Info("thread blocked by term, marking unsuitable",
			"thread_id", thread.ID, "term", term)
		if err := o.dedup.RecordUnsuitable(ctx, thread.ID); err != nil {
			o.logger.Warn("unsuitable ledger write failed", "thread_id", thread.ID, "error", err)
		}
		result.Skipped = true
		result.Error = fmt.Sprintf("%s: blocked term %q", domain.ErrUnitUnusable.Error(), term)
		return result, nil
	}

	if o.lock != nil {
		acquired, err := o.lock.Acquire(ctx, "produce:"+thread.ID, produceLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire produce lock: %w", err)
		}
		if !acquired {
			o.logger.Info("thread locked by another instance", "thread_id", thread.ID)
			result.Skipped = true
			return result, nil
		}
		defer func() {
			if err := o.lock.Release(context.WithoutCancel(ctx), "produce:"+thread.ID); err != nil {
				o.logger.Warn("release produce lock failed", "thread_id", thread.ID, "error", err)
			}
		}()
	}

	o.logger.Info("producing video", "thread_id", thread.ID, "title", thread.Title)

	selected, err := o.selectContent(ctx, thread)
	if err != nil {
		if errors.Is(err, domain.ErrUnitUnusable) || errors.Is(err, domain.ErrNoCandidate) {
			result.Error = err.Error()
			result.Duration = time.Since(startTime).Seconds()
			return result, nil
		}
		return nil, err
	}

	runDir, err := os.MkdirTemp(o.workDir, "produce-"+thread.ID+"-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if !o.keepWork {
		defer os.RemoveAll(runDir)
	}

	out, stats, usedIDs, err := o.render(ctx, thread, selected, runDir)
	if err != nil {
		result.Error = err.Error()
		result.Stats = stats
		result.Duration = time.Since(startTime).Seconds()
		return result, nil
	}

	// Ledger writes are best effort: the video exists either way, and the
	// produced check on the next run is what dedups at thread level.
	video := &domain.ProducedVideo{
		SourceID:  thread.ID,
		Subreddit: thread.Subreddit,
		Title:     thread.Title,
		Filename:  filepath.Base(out),
		Credit:    o.bgCredit,
		CreatedAt: time.Now(),
	}
	if err := o.produced.Record(ctx, video); err != nil {
		o.logger.Warn("produced ledger write failed", "thread_id", thread.ID, "error", err)
	}
	if len(usedIDs) > 0 {
		if err := o.dedup.RecordUsed(ctx, thread.ID, usedIDs); err != nil {
			o.logger.Warn("dedup ledger write failed", "thread_id", thread.ID, "error", err)
		}
	}

	result.Success = true
	result.Output = out
	result.Stats = stats
	result.Duration = time.Since(startTime).Seconds()

	o.logger.Info("video produced",
		"thread_id", thread.ID,
		"output", out,
		"units", stats.UnitsNarrated,
		"audio_seconds", stats.AudioSeconds,
		"duration", result.Duration)
	return result, nil
}

// selectContent returns the narratable units: the self text in storymode,
// otherwise comments picked by the unit selector.
func (o *ProduceOrchestrator) selectContent(ctx context.Context, thread *domain.Thread) ([]domain.SelectedUnit, error) {
	if o.rules.Storymode {
		clean := o.cleaner.Clean(thread.SelfText)
		if clean == "" {
			// A story with no narratable body never becomes usable.
			if err := o.dedup.RecordUnsuitable(ctx, thread.ID); err != nil {
				o.logger.Warn("unsuitable ledger write failed", "thread_id", thread.ID, "error", err)
			}
			return nil, fmt.Errorf("%w: empty self text after sanitize", domain.ErrUnitUnusable)
		}
		return []domain.SelectedUnit{{
			Unit: domain.ContentUnit{
				ID:     thread.ID,
				Author: thread.Author,
				Body:   thread.SelfText,
			},
			CleanText: clean,
		}}, nil
	}

	sel, err := o.unitSel.SelectUnits(ctx, thread.ID, 0)
	if err != nil {
		return nil, err
	}
	if !sel.Found() {
		o.logger.Info("no narratable units",
			"thread_id", thread.ID,
			"units_evaluated", sel.UnitsEvaluated,
			"nodes_processed", sel.NodesProcessed,
			"truncated", sel.Truncated)
		// A full scan with zero accepted units means the thread can never
		// qualify; a truncated one leaves the unvisited remainder open.
		if !sel.Truncated {
			if err := o.dedup.RecordUnsuitable(ctx, thread.ID); err != nil {
				o.logger.Warn("unsuitable ledger write failed", "thread_id", thread.ID, "error", err)
			}
		}
		return nil, fmt.Errorf("%w: thread %s", domain.ErrNoCandidate, thread.ID)
	}
	return sel.Units, nil
}

// render narrates, captions, and composes. Returns the output path, run
// stats, and the IDs of units whose narration made it into the video.
func (o *ProduceOrchestrator) render(ctx context.Context, thread *domain.Thread, units []domain.SelectedUnit, runDir string) (string, domain.ProduceStats, []string, error) {
	var stats domain.ProduceStats

	title := o.cleaner.Clean(thread.CleanTitle())
	if title == "" {
		title = thread.Title
	}

	titleClip, err := o.narrateText(ctx, title, filepath.Join(runDir, "title.mp3"))
	if err != nil {
		return "", stats, nil, fmt.Errorf("narrate title: %w", err)
	}
	stats.AudioSeconds = titleClip.Duration

	titleCard := filepath.Join(runDir, "title.png")
	if err := o.captions.RenderCaption(ctx, thread.CleanTitle(), titleCard); err != nil {
		o.logger.Warn("title card render failed", "thread_id", thread.ID, "error", err)
		titleCard = ""
	}

	audioClips := []string{titleClip.Path}
	var measured []domain.MeasuredUnit
	var usedIDs []string

	budget := o.maxAudioSec
	unitIdx := 0

narrating:
	for _, su := range units {
		seg := o.seg.Segment(su.CleanText)
		if seg.Empty() {
			continue
		}

		var unitClips []string
		var unitMeasured []domain.MeasuredUnit
		unitSeconds := 0.0

		for _, nu := range seg.Units {
			if stats.AudioSeconds+unitSeconds >= budget {
				// Drop the partially narrated unit; a cut mid-unit
				// reads as a glitch.
				o.logger.Debug("length budget reached mid-unit", "unit_id", su.Unit.ID)
				break narrating
			}

			clipPath := filepath.Join(runDir, fmt.Sprintf("unit-%03d.mp3", unitIdx))
			asset, err := o.narrateText(ctx, nu.Text, clipPath)
			if err != nil {
				return "", stats, nil, fmt.Errorf("narrate unit %s: %w", su.Unit.ID, err)
			}

			nu.Index = unitIdx
			unitIdx++
			unitClips = append(unitClips, asset.Path)
			unitMeasured = append(unitMeasured, domain.MeasuredUnit{Unit: nu, Duration: asset.Duration})
			unitSeconds += asset.Duration
		}

		audioClips = append(audioClips, unitClips...)
		measured = append(measured, unitMeasured...)
		usedIDs = append(usedIDs, su.Unit.ID)
		stats.UnitsNarrated++
		stats.AudioSeconds += unitSeconds

		if stats.AudioSeconds >= budget {
			break
		}
	}

	if len(measured) == 0 {
		return "", stats, nil, fmt.Errorf("%w: nothing narrated within the length budget", domain.ErrNoCandidate)
	}

	tl := timeline.Build(titleClip.Duration, measured)

	captionImages := make(map[int]string, len(tl.Entries))
	for i, entry := range tl.Entries {
		imgPath := filepath.Join(runDir, fmt.Sprintf("caption-%03d.png", i))
		if err := o.captions.RenderCaption(ctx, entry.Text, imgPath); err != nil {
			o.logger.Warn("caption render failed, advancing without overlay",
				"thread_id", thread.ID, "entry", i, "error", err)
			stats.CaptionsMissing++
			continue
		}
		captionImages[i] = imgPath
		stats.CaptionsRendered++
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return "", stats, nil, fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(o.outputDir, domain.NormalizeFilename(thread.Title)+".mp4")

	req := driven.CompositionRequest{
		Background:      o.background,
		BackgroundAudio: o.bgAudio,
		TitleCard:       titleCard,
		AudioClips:      audioClips,
		Timeline:        tl,
		CaptionImages:   captionImages,
		Output:          out,
		MaxDuration:     o.maxAudioSec + titleClip.Duration,
	}
	if err := o.compositor.Compose(ctx, req); err != nil {
		return "", stats, nil, fmt.Errorf("compose video: %w", err)
	}
	return out, stats, usedIDs, nil
}

// narrateText renders one clip, splitting is the segmenter's job; text here
// is already within the engine limit.
func (o *ProduceOrchestrator) narrateText(ctx context.Context, text, outPath string) (*driven.AudioAsset, error) {
	asset, err := o.engine.Render(ctx, text, outPath)
	if err != nil {
		return nil, err
	}
	if asset.Duration <= 0 {
		d, err := o.compositor.Probe(ctx, asset.Path)
		if err != nil {
			return nil, fmt.Errorf("probe clip duration: %w", err)
		}
		asset.Duration = d
	}
	return asset, nil
}

// ProduceBatch produces up to count videos, selecting a fresh thread for
// each. Failed attempts draw on a small retry budget so one bad thread does
// not end the batch.
func (o *ProduceOrchestrator) ProduceBatch(ctx context.Context, count int) ([]*domain.ProduceResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: batch count must be positive", domain.ErrInvalidInput)
	}

	retries := count + DefaultMaxWidenings
	var results []*domain.ProduceResult

	for produced := 0; produced < count && retries > 0; {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		res, err := o.ProduceNext(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		if res.Success {
			produced++
			continue
		}
		retries--
		if res.Skipped && res.Error == domain.ErrNoCandidate.Error() {
			// Selection is exhausted; retrying cannot help.
			o.logger.Warn("batch stopped early, selection exhausted",
				"produced", produced, "requested", count)
			break
		}
	}
	return results, nil
}
