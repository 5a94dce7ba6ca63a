// Package sanitize cleans raw source text into a form the narration engine
// can speak: URLs stripped, whitespace collapsed, TTS-hostile characters
// removed, paragraph ends closed with periods.
package sanitize

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Cleaner is one text rewrite step. Cleaners are applied in Order() sequence.
type Cleaner interface {
	// Clean rewrites text and returns the result.
	Clean(text string) string

	// Name returns the cleaner name.
	Name() string

	// Order determines position in the pipeline (lower runs first).
	Order() int
}

// Pipeline chains cleaners in order.
type Pipeline struct {
	mu       sync.RWMutex
	cleaners []Cleaner
	sorted   bool
}

// NewPipeline creates an empty sanitizer pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{cleaners: make([]Cleaner, 0)}
}

// Add adds a cleaner to the pipeline.
func (p *Pipeline) Add(c Cleaner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleaners = append(p.cleaners, c)
	p.sorted = false
}

// Clean applies all cleaners in order and trims the result.
func (p *Pipeline) Clean(text string) string {
	p.mu.Lock()
	if !p.sorted {
		sort.Slice(p.cleaners, func(i, j int) bool {
			return p.cleaners[i].Order() < p.cleaners[j].Order()
		})
		p.sorted = true
	}
	cleaners := make([]Cleaner, len(p.cleaners))
	copy(cleaners, p.cleaners)
	p.mu.Unlock()

	for _, c := range cleaners {
		text = c.Clean(text)
	}
	return strings.TrimSpace(text)
}

// List returns cleaner names in registration order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.cleaners))
	for i, c := range p.cleaners {
		names[i] = c.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default cleaners.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.Add(&URLStripper{})
	p.Add(&CharFilter{})
	p.Add(&WhitespaceCollapser{})
	p.Add(&AcronymSpeller{})
	return p
}

// SpeechPipeline is DefaultPipeline plus the sentence closer that prepares
// whole comment bodies for narration.
func SpeechPipeline() *Pipeline {
	p := DefaultPipeline()
	p.Add(&SentenceCloser{})
	return p
}

// URLStripper removes URLs, which narration engines read out letter by letter.
type URLStripper struct{}

var urlPattern = regexp.MustCompile(`((http|https)://)?[a-zA-Z0-9./?:@\-_=#]+\.([a-zA-Z]){2,6}([a-zA-Z0-9.&/?:@\-_=#])*`)

func (s *URLStripper) Clean(text string) string {
	return urlPattern.ReplaceAllString(text, " ")
}

func (s *URLStripper) Name() string { return "url-stripper" }
func (s *URLStripper) Order() int   { return 0 }

// CharFilter drops characters outside letters, numbers, punctuation, and
// spaces (emoji, control characters, zero-width joiners).
type CharFilter struct{}

func (f *CharFilter) Clean(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsPunct(r):
			return r
		case r == '\n':
			return r
		case unicode.IsSpace(r):
			return ' '
		case r == '+', r == '=', r == '$', r == '%', r == '&':
			return r
		default:
			return -1
		}
	}, text)
}

func (f *CharFilter) Name() string { return "char-filter" }
func (f *CharFilter) Order() int   { return 5 }

// WhitespaceCollapser squeezes runs of whitespace into single spaces.
type WhitespaceCollapser struct{}

func (w *WhitespaceCollapser) Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (w *WhitespaceCollapser) Name() string { return "whitespace-collapser" }
func (w *WhitespaceCollapser) Order() int   { return 10 }

// AcronymSpeller rewrites acronyms the narration engine mispronounces.
type AcronymSpeller struct{}

var acronymRewrites = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bAI\b`), "A.I"},
	{regexp.MustCompile(`\bAGI\b`), "A.G.I"},
}

func (a *AcronymSpeller) Clean(text string) string {
	for _, rw := range acronymRewrites {
		text = rw.pattern.ReplaceAllString(text, rw.replacement)
	}
	return text
}

func (a *AcronymSpeller) Name() string { return "acronym-speller" }
func (a *AcronymSpeller) Order() int   { return 20 }

// SentenceCloser converts paragraph breaks into sentence ends and makes sure
// the text finishes with a period, so the engine does not blend sentences.
type SentenceCloser struct{}

func (s *SentenceCloser) Clean(text string) string {
	text = strings.ReplaceAll(text, "\n", ". ")
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	// Collapse the period runs the newline rewrite can introduce.
	for _, artifact := range []string{". . .", ".. . ", ". . "} {
		text = strings.ReplaceAll(text, artifact, ".")
	}
	text = regexp.MustCompile(`\."\.`).ReplaceAllString(text, `".`)

	last := text[len(text)-1]
	if last != '.' && last != '!' && last != '?' {
		text += "."
	}
	return text
}

func (s *SentenceCloser) Name() string { return "sentence-closer" }
func (s *SentenceCloser) Order() int   { return 8 }
