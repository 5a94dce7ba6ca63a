package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "storyforge.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
[reddit]
client_id = "id"
client_secret = "secret"
subreddit = "nosleep"

[selection]
storymode = true
min_comment_length = 300
max_comment_length = 4000

[narration]
engine = "streamlabs"

[video]
background = "assets/background.mp4"

[storage]
backend = "file"
data_dir = "/tmp/storyforge"
`

func TestLoadValidFile(t *testing.T) {
	path := writeConfigFile(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Reddit.Subreddit != "nosleep" {
		t.Errorf("Subreddit = %q, want %q", cfg.Reddit.Subreddit, "nosleep")
	}
	if !cfg.Selection.Storymode {
		t.Error("Storymode = false, want true")
	}
	if cfg.Selection.MinCommentLength != 300 {
		t.Errorf("MinCommentLength = %d, want 300", cfg.Selection.MinCommentLength)
	}
	// Defaults survive a partial file.
	if cfg.Selection.ListingLimit != 25 {
		t.Errorf("ListingLimit = %d, want 25", cfg.Selection.ListingLimit)
	}
	if cfg.Video.BackgroundVolume != 0.15 {
		t.Errorf("BackgroundVolume = %v, want 0.15", cfg.Video.BackgroundVolume)
	}
	if cfg.Worker.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Worker.Concurrency)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STORYFORGE_VIDEO_BACKGROUND", "bg.mp4")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Reddit.Subreddit != "AskReddit" {
		t.Errorf("Subreddit = %q, want default", cfg.Reddit.Subreddit)
	}
	if cfg.Narration.Engine != "streamlabs" {
		t.Errorf("Engine = %q, want streamlabs", cfg.Narration.Engine)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, validConfig)
	t.Setenv("STORYFORGE_REDDIT_SUBREDDIT", "TrueOffMyChest")
	t.Setenv("STORYFORGE_SELECTION_LISTING_LIMIT", "50")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Reddit.Subreddit != "TrueOffMyChest" {
		t.Errorf("Subreddit = %q, want env override", cfg.Reddit.Subreddit)
	}
	if cfg.Selection.ListingLimit != 50 {
		t.Errorf("ListingLimit = %d, want 50", cfg.Selection.ListingLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing subreddit",
			mutate:  func(c *Config) { c.Reddit.Subreddit = "" },
			wantErr: "reddit.subreddit",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Narration.Engine = "espeak" },
			wantErr: "narration engine",
		},
		{
			name:    "openai without key",
			mutate:  func(c *Config) { c.Narration.Engine = "openai" },
			wantErr: "openai_api_key",
		},
		{
			name: "inverted length range",
			mutate: func(c *Config) {
				c.Selection.MinCommentLength = 100
				c.Selection.MaxCommentLength = 50
			},
			wantErr: "max_comment_length",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "etcd" },
			wantErr: "storage backend",
		},
		{
			name: "postgres without url",
			mutate: func(c *Config) {
				c.Storage.Backend = "postgres"
				c.Storage.PostgresURL = ""
			},
			wantErr: "postgres_url",
		},
		{
			name:    "missing background",
			mutate:  func(c *Config) { c.Video.Background = "" },
			wantErr: "video.background",
		},
		{
			name:    "bad schedule interval",
			mutate:  func(c *Config) { c.Worker.ScheduleInterval = "soon" },
			wantErr: "schedule_interval",
		},
		{
			name:    "non positive max audio",
			mutate:  func(c *Config) { c.Narration.MaxAudioSeconds = 0 },
			wantErr: "max_audio_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Video.Background = "bg.mp4"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadBlockedTerms(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "terms.json")
	if err := os.WriteFile(path, []byte(`["badword", "worse", 18]`), 0o600); err != nil {
		t.Fatalf("write terms: %v", err)
	}

	terms, err := LoadBlockedTerms(path)
	if err != nil {
		t.Fatalf("LoadBlockedTerms() error = %v", err)
	}
	want := []string{"badword", "worse", "18"}
	if len(terms) != len(want) {
		t.Fatalf("got %d terms, want %d", len(terms), len(want))
	}
	for i, term := range want {
		if terms[i] != term {
			t.Errorf("terms[%d] = %q, want %q", i, terms[i], term)
		}
	}
}

func TestLoadBlockedTermsMissingFile(t *testing.T) {
	terms, err := LoadBlockedTerms(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadBlockedTerms() error = %v", err)
	}
	if terms != nil {
		t.Errorf("terms = %v, want nil", terms)
	}
}

func TestLoadBlockedTermsBadJSONDisablesFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.json")
	if err := os.WriteFile(path, []byte(`{"not": "a list"}`), 0o600); err != nil {
		t.Fatalf("write terms: %v", err)
	}

	terms, err := LoadBlockedTerms(path)
	if err != nil {
		t.Fatalf("LoadBlockedTerms() error = %v, want startup to proceed", err)
	}
	if terms != nil {
		t.Errorf("terms = %v, want the filter disabled", terms)
	}
}

func TestSuitabilityRulesFromConfig(t *testing.T) {
	cfg := Default()
	cfg.Selection.MinCommentLength = 20
	cfg.Selection.MaxCommentLength = 200

	rules, err := cfg.SuitabilityRules()
	if err != nil {
		t.Fatalf("SuitabilityRules() error = %v", err)
	}
	if rules.MinLength != 20 || rules.MaxLength != 200 {
		t.Errorf("rules = %+v, want lengths 20/200", rules)
	}
}

func TestThreadRulesFromConfig(t *testing.T) {
	cfg := Default()
	cfg.Selection.Storymode = true
	cfg.Selection.Keywords = []string{"ghost"}
	cfg.Selection.MinComments = 3

	rules := cfg.ThreadRules()
	if !rules.Storymode {
		t.Error("Storymode = false, want true")
	}
	if rules.MinComments != 3 {
		t.Errorf("MinComments = %d, want 3", rules.MinComments)
	}
	if len(rules.Keywords) != 1 || rules.Keywords[0] != "ghost" {
		t.Errorf("Keywords = %v, want [ghost]", rules.Keywords)
	}
}
