// Package timeline lays measured narration audio out on a clock and assigns
// each caption chunk an even share of its unit's duration.
package timeline

import "github.com/storyforge-labs/storyforge-core/internal/core/domain"

// Build places each measured unit after the lead-in and splits its duration
// evenly across its caption chunks. Units with no captions still advance the
// clock so audio and visuals stay aligned.
func Build(leadIn float64, units []domain.MeasuredUnit) domain.TimelineResult {
	res := domain.TimelineResult{LeadIn: leadIn}

	clock := leadIn
	for _, mu := range units {
		n := len(mu.Unit.Captions)
		if n == 0 {
			clock += mu.Duration
			continue
		}

		share := mu.Duration / float64(n)
		for ci, text := range mu.Unit.Captions {
			start := clock + float64(ci)*share
			end := start + share
			if ci == n-1 {
				// Absorb float drift so entries stay contiguous.
				end = clock + mu.Duration
			}
			res.Entries = append(res.Entries, domain.TimelineEntry{
				UnitIndex:    mu.Unit.Index,
				CaptionIndex: ci,
				Text:         text,
				Start:        start,
				End:          end,
			})
		}
		clock += mu.Duration
	}
	return res
}
