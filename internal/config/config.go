// Package config loads and validates application configuration from a
// config file and environment variables.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// Config is the root configuration tree.
type Config struct {
	Reddit    RedditConfig    `mapstructure:"reddit"`
	Selection SelectionConfig `mapstructure:"selection"`
	Narration NarrationConfig `mapstructure:"narration"`
	Video     VideoConfig     `mapstructure:"video"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	API       APIConfig       `mapstructure:"api"`
}

// APIConfig governs the operational HTTP API served by the serve command.
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RedditConfig holds the content source credentials and target community.
type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	UserAgent    string `mapstructure:"user_agent"`
	Subreddit    string `mapstructure:"subreddit"`
}

// SelectionConfig governs thread and comment selection.
type SelectionConfig struct {
	ListingLimit int  `mapstructure:"listing_limit"`
	MaxWidenings int  `mapstructure:"max_widenings"`
	AllowNSFW    bool `mapstructure:"allow_nsfw"`
	Storymode    bool `mapstructure:"storymode"`

	// MinCommentLength and MaxCommentLength bound the raw comment body.
	// In storymode they bound the self-text instead.
	MinCommentLength int `mapstructure:"min_comment_length"`
	MaxCommentLength int `mapstructure:"max_comment_length"`

	MinComments int `mapstructure:"min_comments"`
	MaxComments int `mapstructure:"max_comments"`

	// Keywords gates candidate threads when non-empty.
	Keywords []string `mapstructure:"keywords"`

	// BlockedTermsFile is a JSON file holding a list of blocked words.
	// Missing or empty disables the filter.
	BlockedTermsFile string `mapstructure:"blocked_terms_file"`

	// MaxScanUnits caps how many comments are evaluated per thread.
	MaxScanUnits int `mapstructure:"max_scan_units"`
}

// NarrationConfig selects and configures the text-to-speech engine.
type NarrationConfig struct {
	// Engine is "streamlabs" or "openai".
	Engine string `mapstructure:"engine"`

	Voice        string `mapstructure:"voice"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	OpenAIModel  string `mapstructure:"openai_model"`

	// MaxAudioSeconds bounds the narration length of one video.
	MaxAudioSeconds float64 `mapstructure:"max_audio_seconds"`

	// CaptionWordLimit is the number of words shown per caption overlay.
	// Zero shows one caption per sentence.
	CaptionWordLimit int `mapstructure:"caption_word_limit"`
}

// VideoConfig governs composition of the final video.
type VideoConfig struct {
	OutputDir        string  `mapstructure:"output_dir"`
	WorkDir          string  `mapstructure:"work_dir"`
	Background       string  `mapstructure:"background"`
	BackgroundAudio  string  `mapstructure:"background_audio"`
	BackgroundCredit string  `mapstructure:"background_credit"`
	BackgroundVolume float64 `mapstructure:"background_volume"`
	Width            int     `mapstructure:"width"`
	Height           int     `mapstructure:"height"`
	FontFile         string  `mapstructure:"font_file"`
	KeepWorkDir      bool    `mapstructure:"keep_work_dir"`

	// FFmpegPath and FFprobePath default to lookup via PATH.
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
}

// StorageConfig selects the ledger backend and optional Redis.
type StorageConfig struct {
	// Backend is "file", "sqlite", or "postgres".
	Backend string `mapstructure:"backend"`

	// DataDir holds the ledger files for the file and sqlite backends.
	DataDir string `mapstructure:"data_dir"`

	// PostgresURL is required for the postgres backend.
	PostgresURL string `mapstructure:"postgres_url"`

	// RedisURL enables the Redis queue and lock when set.
	RedisURL string `mapstructure:"redis_url"`
}

// WorkerConfig governs the background worker and scheduler.
type WorkerConfig struct {
	Concurrency    int `mapstructure:"concurrency"`
	DequeueTimeout int `mapstructure:"dequeue_timeout"`

	// ScheduleInterval is the period between scheduled batch runs, e.g.
	// "6h". Empty disables the schedule.
	ScheduleInterval string `mapstructure:"schedule_interval"`

	// ScheduleBatchCount is how many videos each scheduled run produces.
	ScheduleBatchCount int `mapstructure:"schedule_batch_count"`
}

// Default returns the configuration defaults applied before loading.
func Default() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent: "storyforge-core/1.0",
			Subreddit: "AskReddit",
		},
		Selection: SelectionConfig{
			ListingLimit:     25,
			MaxWidenings:     5,
			MinCommentLength: 10,
			MaxCommentLength: 500,
			MaxScanUnits:     500,
		},
		Narration: NarrationConfig{
			Engine:           "streamlabs",
			MaxAudioSeconds:  50,
			CaptionWordLimit: 0,
		},
		Video: VideoConfig{
			OutputDir:        "results",
			BackgroundVolume: 0.15,
			Width:            1080,
			Height:           1920,
		},
		Storage: StorageConfig{
			Backend: "file",
			DataDir: "data",
		},
		Worker: WorkerConfig{
			Concurrency:        1,
			DequeueTimeout:     5,
			ScheduleBatchCount: 1,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// Load reads the config file at path, overlays STORYFORGE_* environment
// variables, and validates the result. A missing file is not an error;
// defaults plus environment then apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("STORYFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	bindDefaults(v, cfg)

	if path != "" {
		dir, file := filepath.Split(path)
		if dir == "" {
			dir = "."
		}
		ext := filepath.Ext(file)
		v.AddConfigPath(dir)
		v.SetConfigName(strings.TrimSuffix(file, ext))
		v.SetConfigType(strings.TrimPrefix(ext, "."))

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(errors.Cause(err)) {
				return nil, errors.Wrap(err, "read config file")
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindDefaults registers every key with its default so AutomaticEnv sees
// it even when the config file omits the key.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("reddit.user_agent", cfg.Reddit.UserAgent)
	v.SetDefault("reddit.subreddit", cfg.Reddit.Subreddit)
	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("selection.listing_limit", cfg.Selection.ListingLimit)
	v.SetDefault("selection.max_widenings", cfg.Selection.MaxWidenings)
	v.SetDefault("selection.min_comment_length", cfg.Selection.MinCommentLength)
	v.SetDefault("selection.max_comment_length", cfg.Selection.MaxCommentLength)
	v.SetDefault("selection.max_scan_units", cfg.Selection.MaxScanUnits)
	v.SetDefault("narration.engine", cfg.Narration.Engine)
	v.SetDefault("narration.max_audio_seconds", cfg.Narration.MaxAudioSeconds)
	v.SetDefault("narration.openai_api_key", "")
	v.SetDefault("narration.voice", "")
	v.SetDefault("video.background", "")
	v.SetDefault("video.output_dir", cfg.Video.OutputDir)
	v.SetDefault("video.background_volume", cfg.Video.BackgroundVolume)
	v.SetDefault("video.width", cfg.Video.Width)
	v.SetDefault("video.height", cfg.Video.Height)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("worker.concurrency", cfg.Worker.Concurrency)
	v.SetDefault("worker.dequeue_timeout", cfg.Worker.DequeueTimeout)
	v.SetDefault("worker.schedule_batch_count", cfg.Worker.ScheduleBatchCount)
	v.SetDefault("api.host", cfg.API.Host)
	v.SetDefault("api.port", cfg.API.Port)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Reddit.Subreddit == "" {
		errs = append(errs, errors.New("reddit.subreddit is required"))
	}
	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("reddit.user_agent is required"))
	}

	switch c.Narration.Engine {
	case "streamlabs":
	case "openai":
		if c.Narration.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("narration.openai_api_key is required for the openai engine"))
		}
	default:
		errs = append(errs, errors.Errorf("unknown narration engine %q", c.Narration.Engine))
	}

	if c.Narration.MaxAudioSeconds <= 0 {
		errs = append(errs, errors.New("narration.max_audio_seconds must be positive"))
	}

	if c.Selection.MinCommentLength < 0 {
		errs = append(errs, errors.New("selection.min_comment_length must not be negative"))
	}
	if c.Selection.MaxCommentLength != 0 && c.Selection.MaxCommentLength < c.Selection.MinCommentLength {
		errs = append(errs, errors.New("selection.max_comment_length must not be below the minimum"))
	}

	switch c.Storage.Backend {
	case "file", "sqlite":
		if c.Storage.DataDir == "" {
			errs = append(errs, errors.New("storage.data_dir is required"))
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, errors.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Video.Background == "" {
		errs = append(errs, errors.New("video.background is required"))
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.Errorf("invalid api.port %d", c.API.Port))
	}

	if c.Worker.ScheduleInterval != "" {
		if _, err := cast.ToDurationE(c.Worker.ScheduleInterval); err != nil {
			errs = append(errs, errors.Errorf("invalid worker.schedule_interval %q", c.Worker.ScheduleInterval))
		}
	}

	return errors.WithStack(joinErrors(errs))
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return errors.New("invalid configuration: " + strings.Join(parts, "; "))
}

// SuitabilityRules builds the comment rule set from the selection config,
// loading blocked terms when a file is configured.
func (c *Config) SuitabilityRules() (*domain.SuitabilityRules, error) {
	terms, err := LoadBlockedTerms(c.Selection.BlockedTermsFile)
	if err != nil {
		return nil, err
	}
	return domain.NewSuitabilityRules(c.Selection.MinCommentLength, c.Selection.MaxCommentLength, terms)
}

// ThreadRules builds the thread rule set from the selection config.
func (c *Config) ThreadRules() domain.ThreadRules {
	return domain.ThreadRules{
		AllowNSFW:      c.Selection.AllowNSFW,
		MinComments:    c.Selection.MinComments,
		MaxComments:    c.Selection.MaxComments,
		Storymode:      c.Selection.Storymode,
		StoryMinLength: c.Selection.MinCommentLength,
		StoryMaxLength: c.Selection.MaxCommentLength,
		Keywords:       c.Selection.Keywords,
	}
}

// ScanLimits builds the tree scan limits from the selection config.
func (c *Config) ScanLimits() domain.ScanLimits {
	return domain.DefaultScanLimits(c.Selection.MaxScanUnits)
}

// LoadBlockedTerms reads a JSON list of blocked words. A missing or
// malformed file disables the filter rather than blocking startup;
// non-string entries are coerced to strings.
func LoadBlockedTerms(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read blocked terms file")
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("blocked terms file malformed, filter disabled", "path", path, "error", err)
		return nil, nil
	}

	terms, err := cast.ToStringSliceE(raw)
	if err != nil {
		slog.Warn("blocked terms file malformed, filter disabled", "path", path, "error", err)
		return nil, nil
	}
	return terms, nil
}
