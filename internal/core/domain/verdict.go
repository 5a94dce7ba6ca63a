package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// RejectReason explains why a content unit was rejected by the
// suitability predicate.
type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectStickied          RejectReason = "stickied"
	RejectDeletedOrRemoved  RejectReason = "deleted_or_removed"
	RejectEmptyAfterSanitize RejectReason = "empty_after_sanitize"
	RejectBlockedTerm       RejectReason = "blocked_term"
	RejectLengthOutOfRange  RejectReason = "length_out_of_range"
	RejectNoAuthor          RejectReason = "no_author"
	RejectAlreadyUsed       RejectReason = "already_used"
)

// SuitabilityVerdict is the outcome of evaluating one content unit.
// Ephemeral; produced per evaluation.
type SuitabilityVerdict struct {
	Accepted bool
	Reason   RejectReason

	// MatchedTerm is set when Reason is RejectBlockedTerm.
	MatchedTerm string
}

// Accept returns an accepting verdict.
func Accept() SuitabilityVerdict {
	return SuitabilityVerdict{Accepted: true}
}

// Reject returns a rejecting verdict with the given reason.
func Reject(reason RejectReason) SuitabilityVerdict {
	return SuitabilityVerdict{Reason: reason}
}

// SuitabilityRules is the rule set the predicate evaluates against.
// Construct once at startup with NewSuitabilityRules and pass by reference;
// the blocked-term patterns are compiled at construction.
type SuitabilityRules struct {
	// MinLength and MaxLength bound the raw body length, inclusive.
	MinLength int
	MaxLength int

	blockedTerms    []string
	blockedPatterns []*regexp.Regexp
}

// NewSuitabilityRules builds a rule set, compiling one case-insensitive
// word-boundary pattern per blocked term.
func NewSuitabilityRules(minLength, maxLength int, blockedTerms []string) (*SuitabilityRules, error) {
	if minLength < 0 || (maxLength != 0 && maxLength < minLength) {
		return nil, fmt.Errorf("%w: length range [%d, %d]", ErrInvalidInput, minLength, maxLength)
	}

	r := &SuitabilityRules{
		MinLength: minLength,
		MaxLength: maxLength,
	}
	for _, term := range blockedTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile blocked term %q: %w", term, err)
		}
		r.blockedTerms = append(r.blockedTerms, term)
		r.blockedPatterns = append(r.blockedPatterns, pattern)
	}
	return r, nil
}

// BlockedTerm returns the first blocked term found in text, or "".
func (r *SuitabilityRules) BlockedTerm(text string) string {
	if text == "" {
		return ""
	}
	for i, pattern := range r.blockedPatterns {
		if pattern.MatchString(text) {
			return r.blockedTerms[i]
		}
	}
	return ""
}

// LengthOK reports whether n is within the inclusive [MinLength, MaxLength]
// range. A zero MaxLength disables the upper bound.
func (r *SuitabilityRules) LengthOK(n int) bool {
	if n < r.MinLength {
		return false
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		return false
	}
	return true
}
