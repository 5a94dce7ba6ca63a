package segmenter

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "basic",
			in:   "First one. Second one! Third one?",
			want: []string{"First one.", "Second one!", "Third one?"},
		},
		{
			name: "ender run stays attached",
			in:   "Really?! Yes... fine.",
			want: []string{"Really?!", "Yes...", "fine."},
		},
		{
			name: "decimal does not split",
			in:   "It cost 3.50 dollars. Outrageous.",
			want: []string{"It cost 3.50 dollars.", "Outrageous."},
		},
		{
			name: "no terminal punctuation",
			in:   "trailing fragment",
			want: []string{"trailing fragment"},
		},
		{
			name: "empty",
			in:   "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSegmentSentencePerUnit(t *testing.T) {
	s := New(Config{NarrationCharLimit: 1000, CaptionWordLimit: 3})

	res := s.Segment("Hi. This is a test sentence that should not be split.")
	if len(res.Units) != 2 {
		t.Fatalf("got %d units, want 2", len(res.Units))
	}

	if res.Units[0].Text != "Hi." {
		t.Errorf("unit 0 = %q", res.Units[0].Text)
	}
	wantCaptions := []string{"This is a", "test sentence that", "should not be", "split."}
	if !reflect.DeepEqual(res.Units[1].Captions, wantCaptions) {
		t.Errorf("unit 1 captions = %v, want %v", res.Units[1].Captions, wantCaptions)
	}
}

func TestSegmentLongSentenceSplitsOnWords(t *testing.T) {
	s := New(Config{NarrationCharLimit: 20})

	res := s.Segment("alpha beta gamma delta epsilon zeta eta theta")
	if len(res.Units) < 2 {
		t.Fatalf("expected the sentence to split, got %d units", len(res.Units))
	}
	for _, u := range res.Units {
		if len(u.Text) > 20 {
			t.Errorf("unit %d is %d chars: %q", u.Index, len(u.Text), u.Text)
		}
	}

	// No words lost or reordered.
	var rejoined []string
	for _, u := range res.Units {
		rejoined = append(rejoined, u.Text)
	}
	if got := strings.Join(rejoined, " "); got != "alpha beta gamma delta epsilon zeta eta theta" {
		t.Errorf("rejoined = %q", got)
	}
}

func TestSegmentOversizedWordPassesThrough(t *testing.T) {
	s := New(Config{NarrationCharLimit: 10})

	long := strings.Repeat("a", 25)
	res := s.Segment("tiny " + long + " word")

	found := false
	for _, u := range res.Units {
		if u.Text == long {
			found = true
		}
	}
	if !found {
		t.Errorf("oversized word was broken up: %+v", res.Units)
	}
}

func TestSegmentZeroCaptionLimit(t *testing.T) {
	s := New(Config{CaptionWordLimit: 0})

	res := s.Segment("One single sentence here.")
	if len(res.Units) != 1 {
		t.Fatalf("got %d units, want 1", len(res.Units))
	}
	if len(res.Units[0].Captions) != 1 || res.Units[0].Captions[0] != "One single sentence here." {
		t.Errorf("captions = %v", res.Units[0].Captions)
	}
}

func TestSegmentCollapsesNewlines(t *testing.T) {
	s := New(Config{})

	res := s.Segment("line one.\nline two.")
	if len(res.Units) != 2 {
		t.Fatalf("got %d units, want 2", len(res.Units))
	}
	if res.Units[1].Text != "line two." {
		t.Errorf("unit 1 = %q", res.Units[1].Text)
	}
}

func TestSegmentEmpty(t *testing.T) {
	s := New(Config{})

	if res := s.Segment("   \n  "); !res.Empty() {
		t.Errorf("expected empty result, got %+v", res.Units)
	}
}

func TestSegmentIndexesAreSequential(t *testing.T) {
	s := New(Config{NarrationCharLimit: 15, CaptionWordLimit: 2})

	res := s.Segment("one two three four five six. seven eight nine ten.")
	for i, u := range res.Units {
		if u.Index != i {
			t.Errorf("unit at position %d has index %d", i, u.Index)
		}
	}
}
