package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"

	"github.com/storyforge-labs/storyforge-core/internal/adapters/driven/ffmpeg"
	"github.com/storyforge-labs/storyforge-core/internal/adapters/driven/file"
	"github.com/storyforge-labs/storyforge-core/internal/adapters/driven/narration"
	"github.com/storyforge-labs/storyforge-core/internal/adapters/driven/postgres"
	"github.com/storyforge-labs/storyforge-core/internal/adapters/driven/reddit"
	redisadapter "github.com/storyforge-labs/storyforge-core/internal/adapters/driven/redis"
	"github.com/storyforge-labs/storyforge-core/internal/adapters/driven/sqlite"
	"github.com/storyforge-labs/storyforge-core/internal/config"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driving"
	"github.com/storyforge-labs/storyforge-core/internal/core/services"
)

// app holds the wired adapters and services for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	dedup    driven.DedupStore
	produced driven.ProducedStore

	// queue and lock are nil when neither Redis nor Postgres is
	// configured. schedStore is nil without Postgres.
	queue      driven.TaskQueue
	lock       driven.DistributedLock
	schedStore driven.SchedulerStore

	orchestrator driving.ProduceOrchestrator
	ledger       driving.LedgerService

	closers []func() error
}

// buildApp wires adapters and services from the configuration. Redis, when
// configured, takes over the queue and lock; the storage backend supplies
// the fallback.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := a.initStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initServices(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) initStores(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case "file":
		dedup, err := file.NewDedupStore(a.cfg.Storage.DataDir, a.logger)
		if err != nil {
			return fmt.Errorf("open dedup ledger: %w", err)
		}
		produced, err := file.NewProducedStore(a.cfg.Storage.DataDir, a.logger)
		if err != nil {
			return fmt.Errorf("open produced ledger: %w", err)
		}
		a.dedup = dedup
		a.produced = produced

	case "sqlite":
		db, err := sqlite.Open(ctx, filepath.Join(a.cfg.Storage.DataDir, "storyforge.db"))
		if err != nil {
			return fmt.Errorf("open sqlite database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.dedup = sqlite.NewDedupStore(db)
		a.produced = sqlite.NewProducedStore(db)

	case "postgres":
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(a.cfg.Storage.PostgresURL))
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		a.dedup = postgres.NewDedupStore(db)
		a.produced = postgres.NewProducedStore(db)
		a.schedStore = postgres.NewSchedulerStore(db)
		a.queue = postgres.NewQueue(db.DB)
		a.lock = postgres.NewAdvisoryLock(db)

	default:
		return fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
	return nil
}

func (a *app) initRedis(ctx context.Context) error {
	if a.cfg.Storage.RedisURL == "" {
		return nil
	}

	opts, err := goredis.ParseURL(a.cfg.Storage.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	queue, err := redisadapter.NewQueue(client, fmt.Sprintf("worker-%d", os.Getpid()))
	if err != nil {
		return fmt.Errorf("create redis queue: %w", err)
	}
	a.queue = queue
	a.lock = redisadapter.NewLock(client)
	a.logger.Info("using redis queue and lock")
	return nil
}

func (a *app) initServices() error {
	cfg := a.cfg

	client, err := reddit.NewClient(reddit.ClientConfig{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("create reddit client: %w", err)
	}
	source := reddit.NewSource(client)

	engine, err := narration.NewEngine(cfg.Narration.Engine,
		narration.OpenAIConfig{
			APIKey: cfg.Narration.OpenAIAPIKey,
			Model:  cfg.Narration.OpenAIModel,
			Voice:  cfg.Narration.Voice,
		},
		narration.StreamlabsConfig{Voice: cfg.Narration.Voice},
	)
	if err != nil {
		return fmt.Errorf("create narration engine: %w", err)
	}

	compositor := ffmpeg.NewCompositor(ffmpeg.CompositorConfig{
		FFmpegPath:       cfg.Video.FFmpegPath,
		FFprobePath:      cfg.Video.FFprobePath,
		Width:            cfg.Video.Width,
		Height:           cfg.Video.Height,
		BackgroundVolume: cfg.Video.BackgroundVolume,
		Logger:           a.logger,
	})
	captions := ffmpeg.NewCaptionRenderer(ffmpeg.CaptionConfig{
		FFmpegPath: cfg.Video.FFmpegPath,
		FontFile:   cfg.Video.FontFile,
	})

	suitRules, err := cfg.SuitabilityRules()
	if err != nil {
		return fmt.Errorf("build suitability rules: %w", err)
	}
	checker := services.NewSuitabilityChecker(suitRules, nil)
	threadRules := cfg.ThreadRules()

	threadSel := services.NewThreadSelector(services.ThreadSelectorConfig{
		Source:       source,
		Dedup:        a.dedup,
		Produced:     a.produced,
		Rules:        threadRules,
		Suitability:  suitRules,
		Subreddit:    cfg.Reddit.Subreddit,
		ListingLimit: cfg.Selection.ListingLimit,
		MaxWidenings: cfg.Selection.MaxWidenings,
		Logger:       a.logger,
	})
	unitSel := services.NewUnitSelector(services.UnitSelectorConfig{
		Source:  source,
		Dedup:   a.dedup,
		Checker: checker,
		Limits:  cfg.ScanLimits(),
		Logger:  a.logger,
	})

	a.orchestrator = services.NewProduceOrchestrator(services.ProduceOrchestratorConfig{
		Source:           source,
		Engine:           engine,
		Captions:         captions,
		Compositor:       compositor,
		Dedup:            a.dedup,
		Produced:         a.produced,
		Lock:             a.lock,
		ThreadSelector:   threadSel,
		UnitSelector:     unitSel,
		CaptionWordLimit: cfg.Narration.CaptionWordLimit,
		Rules:            threadRules,
		Suitability:      suitRules,
		WorkDir:          cfg.Video.WorkDir,
		OutputDir:        cfg.Video.OutputDir,
		Background:       cfg.Video.Background,
		BackgroundAudio:  cfg.Video.BackgroundAudio,
		BackgroundCredit: cfg.Video.BackgroundCredit,
		MaxAudioSeconds:  cfg.Narration.MaxAudioSeconds,
		KeepWorkDir:      cfg.Video.KeepWorkDir,
		Logger:           a.logger,
	})
	a.ledger = services.NewLedgerService(a.dedup, a.produced, a.logger)
	return nil
}

// Close releases held resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
