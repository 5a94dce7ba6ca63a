package domain

// MeasuredUnit pairs a narration unit with the measured duration of its
// rendered audio, in seconds. Durations only exist after rendering.
type MeasuredUnit struct {
	Unit     NarrationUnit `json:"unit"`
	Duration float64       `json:"duration_seconds"`
}

// TimelineEntry binds one caption chunk to an absolute display window.
//
// Invariants: Start >= 0, End > Start; entries for one narration unit are
// contiguous and exactly cover that unit's measured duration; across units
// the windows are contiguous.
type TimelineEntry struct {
	UnitIndex    int     `json:"unit_index"`
	CaptionIndex int     `json:"caption_index"` // position within the unit's captions
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
}

// Duration returns the length of the display window in seconds.
func (e *TimelineEntry) Duration() float64 {
	return e.End - e.Start
}

// TimelineResult is the synchronizer's output: the full overlay track.
type TimelineResult struct {
	LeadIn  float64         `json:"lead_in_seconds"`
	Entries []TimelineEntry `json:"entries"`
}

// TotalDuration returns the end of the last window, or the lead-in when
// the timeline is empty.
func (r *TimelineResult) TotalDuration() float64 {
	if len(r.Entries) == 0 {
		return r.LeadIn
	}
	return r.Entries[len(r.Entries)-1].End
}
