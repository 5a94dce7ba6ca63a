// Package segmenter chops cleaned text into narration pieces sized for the
// speech engine and caption chunks sized for on-screen display.
package segmenter

import (
	"strings"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

const (
	// DefaultNarrationCharLimit is the longest text most speech engines
	// accept in a single request.
	DefaultNarrationCharLimit = 250
)

// Segmenter splits text at two granularities: narration pieces bounded by a
// character limit, and caption chunks bounded by a word count.
type Segmenter struct {
	narrationCharLimit int
	captionWordLimit   int
}

// Config holds segmenter settings.
type Config struct {
	// NarrationCharLimit caps the length of a narration piece. Zero means
	// DefaultNarrationCharLimit.
	NarrationCharLimit int

	// CaptionWordLimit caps the words shown per caption chunk. Zero means
	// each narration piece is rendered as a single caption.
	CaptionWordLimit int
}

// New creates a segmenter.
func New(cfg Config) *Segmenter {
	limit := cfg.NarrationCharLimit
	if limit <= 0 {
		limit = DefaultNarrationCharLimit
	}
	return &Segmenter{
		narrationCharLimit: limit,
		captionWordLimit:   cfg.CaptionWordLimit,
	}
}

// Segment splits text into narration units. Each sentence becomes its own
// piece; sentences longer than the narration limit are split on word
// boundaries into multiple pieces. A single word longer than the limit passes
// through unsplit rather than being broken mid-word.
func (s *Segmenter) Segment(text string) domain.SegmentationResult {
	text = normalizeWhitespace(text)

	var units []domain.NarrationUnit
	for _, sentence := range SplitSentences(text) {
		for _, piece := range s.packWords(sentence) {
			units = append(units, domain.NarrationUnit{
				Index:    len(units),
				Text:     piece,
				Captions: s.captionChunks(piece),
			})
		}
	}
	return domain.SegmentationResult{Units: units}
}

// packWords greedily packs the sentence's words into pieces no longer than
// the narration limit.
func (s *Segmenter) packWords(sentence string) []string {
	if len(sentence) <= s.narrationCharLimit {
		return []string{sentence}
	}

	var pieces []string
	var cur strings.Builder
	for _, word := range strings.Fields(sentence) {
		if cur.Len() == 0 {
			cur.WriteString(word)
			continue
		}
		if cur.Len()+1+len(word) > s.narrationCharLimit {
			pieces = append(pieces, cur.String())
			cur.Reset()
			cur.WriteString(word)
			continue
		}
		cur.WriteByte(' ')
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}

// captionChunks splits a narration piece into groups of at most the caption
// word limit. A zero limit keeps the whole piece as one caption.
func (s *Segmenter) captionChunks(piece string) []string {
	if s.captionWordLimit <= 0 {
		return []string{piece}
	}

	words := strings.Fields(piece)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+s.captionWordLimit-1)/s.captionWordLimit)
	for start := 0; start < len(words); start += s.captionWordLimit {
		end := start + s.captionWordLimit
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
