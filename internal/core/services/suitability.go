package services

import (
	"strings"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/sanitize"
)

// SuitabilityChecker decides whether a content unit can be narrated.
// Checks run in a fixed order so the cheapest rejections fire first and a
// unit always rejects for the same reason on every run.
type SuitabilityChecker struct {
	rules   *domain.SuitabilityRules
	cleaner *sanitize.Pipeline
}

// NewSuitabilityChecker creates a checker. A nil cleaner means the speech
// pipeline defaults.
func NewSuitabilityChecker(rules *domain.SuitabilityRules, cleaner *sanitize.Pipeline) *SuitabilityChecker {
	if cleaner == nil {
		cleaner = sanitize.SpeechPipeline()
	}
	return &SuitabilityChecker{rules: rules, cleaner: cleaner}
}

// CheckUnit evaluates one unit against the rules. used holds unit IDs already
// narrated from the same thread. On acceptance the cleaned narration text is
// returned alongside the verdict.
func (c *SuitabilityChecker) CheckUnit(unit domain.ContentUnit, used map[string]bool) (string, domain.SuitabilityVerdict) {
	if unit.Stickied {
		return "", domain.Reject(domain.RejectStickied)
	}
	if unit.Removed() {
		return "", domain.Reject(domain.RejectDeletedOrRemoved)
	}

	clean := c.cleaner.Clean(unit.Body)
	if clean == "" {
		return "", domain.Reject(domain.RejectEmptyAfterSanitize)
	}

	if term := c.rules.BlockedTerm(clean); term != "" {
		v := domain.Reject(domain.RejectBlockedTerm)
		v.MatchedTerm = term
		return "", v
	}

	if !c.rules.LengthOK(len(unit.Body)) {
		return "", domain.Reject(domain.RejectLengthOutOfRange)
	}

	if !unit.HasAuthor() {
		return "", domain.Reject(domain.RejectNoAuthor)
	}
	if used[unit.ID] {
		return "", domain.Reject(domain.RejectAlreadyUsed)
	}

	return clean, domain.Accept()
}

// CheckThread evaluates whether a thread qualifies as a candidate under the
// thread rules. The keyword gate runs exactly once per candidate.
func CheckThread(thread *domain.Thread, rules domain.ThreadRules) bool {
	if thread.Stickied {
		return false
	}
	if thread.NSFW && !rules.AllowNSFW {
		return false
	}

	if rules.Storymode {
		n := len(thread.SelfText)
		if n < rules.StoryMinLength {
			return false
		}
		if rules.StoryMaxLength > 0 && n > rules.StoryMaxLength {
			return false
		}
	} else {
		if thread.NumComments < rules.MinComments {
			return false
		}
		if rules.MaxComments > 0 && thread.NumComments > rules.MaxComments {
			return false
		}
	}

	return matchesKeywords(thread, rules)
}

// ThreadBlockedTerm returns the first blocked term found in the thread's
// title or, in storymode, its self text. A match means the thread can never
// become narratable, unlike the count and length gates. Nil rules disable
// the check.
func ThreadBlockedTerm(rules *domain.SuitabilityRules, thread *domain.Thread, storymode bool) string {
	if rules == nil {
		return ""
	}
	if term := rules.BlockedTerm(thread.Title); term != "" {
		return term
	}
	if storymode {
		return rules.BlockedTerm(thread.SelfText)
	}
	return ""
}

func matchesKeywords(thread *domain.Thread, rules domain.ThreadRules) bool {
	if len(rules.Keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(thread.Title)
	if rules.Storymode {
		haystack += " " + strings.ToLower(thread.SelfText)
	}
	for _, kw := range rules.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
