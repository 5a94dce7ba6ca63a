package domain

import (
	"regexp"
	"strings"
	"time"
)

// ProducedVideo is one entry of the append-only "already produced" ledger.
type ProducedVideo struct {
	SourceID  string    `json:"source_id"`
	Subreddit string    `json:"subreddit"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	Credit    string    `json:"background_credit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProduceStats holds counters for one produce run.
type ProduceStats struct {
	UnitsNarrated    int     `json:"units_narrated"`
	CaptionsRendered int     `json:"captions_rendered"`
	CaptionsMissing  int     `json:"captions_missing"`
	AudioSeconds     float64 `json:"audio_seconds"`
}

// ProduceResult is the outcome of one produce run for one source.
type ProduceResult struct {
	SourceID string       `json:"source_id"`
	Success  bool         `json:"success"`
	Skipped  bool         `json:"skipped"` // no suitable candidate / already produced
	Output   string       `json:"output,omitempty"`
	Stats    ProduceStats `json:"stats"`
	Error    string       `json:"error,omitempty"`
	Duration float64      `json:"duration_seconds"`
}

var unsafeNameChars = regexp.MustCompile(`[?\\"%*:|<>]`)

// NormalizeFilename rewrites a title into a filesystem-safe video filename
// fragment, expanding the slash shorthands people write in titles.
func NormalizeFilename(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = regexp.MustCompile(`(?i) w\s?/\s?[o0]`).ReplaceAllString(name, " without")
	name = regexp.MustCompile(`(?i) w\s?/`).ReplaceAllString(name, " with")
	name = regexp.MustCompile(`(\d+)\s?/\s?(\d+)`).ReplaceAllString(name, "$1 of $2")
	name = regexp.MustCompile(`(\w+)\s?/\s?(\w+)`).ReplaceAllString(name, "$1 or $2")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.TrimSpace(name)
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}
