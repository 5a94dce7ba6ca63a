package domain

import "strings"

// NarrationUnit is a text piece sized to fit one narration-engine call,
// together with its caption chunks for on-screen display.
//
// Invariant: the words of Captions, concatenated in order, equal the words
// of Text with none dropped or duplicated.
type NarrationUnit struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Captions []string `json:"captions"`
}

// CaptionCount returns the number of caption chunks. Always >= 1 for units
// produced by the segmenter.
func (u *NarrationUnit) CaptionCount() int {
	return len(u.Captions)
}

// Words returns the whitespace-delimited words of the unit's text.
func (u *NarrationUnit) Words() []string {
	return strings.Fields(u.Text)
}

// SegmentationResult is the segmenter's output for one text block.
type SegmentationResult struct {
	Units []NarrationUnit `json:"units"`
}

// Empty reports whether segmentation produced nothing to narrate.
func (r *SegmentationResult) Empty() bool {
	return len(r.Units) == 0
}

// CaptionTotal returns the number of caption chunks across all units.
func (r *SegmentationResult) CaptionTotal() int {
	total := 0
	for i := range r.Units {
		total += len(r.Units[i].Captions)
	}
	return total
}
