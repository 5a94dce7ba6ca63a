package domain

// SelectionState tags the outcome of a selection attempt.
type SelectionState string

const (
	// SelectionFound means a suitable unit was selected.
	SelectionFound SelectionState = "found"
	// SelectionExhausted means every candidate and widening attempt was
	// tried without success. Expected, non-exceptional.
	SelectionExhausted SelectionState = "exhausted"
)

// ThreadSelection is the tagged result of flat-listing thread selection.
type ThreadSelection struct {
	State  SelectionState
	Thread *Thread

	// Attempts is how many listings were scanned, including widenings.
	Attempts int
}

// Found reports whether a thread was selected.
func (s *ThreadSelection) Found() bool {
	return s.State == SelectionFound && s.Thread != nil
}

// SelectedUnit pairs a chosen unit with its cleaned narration text.
type SelectedUnit struct {
	Unit      ContentUnit
	CleanText string
}

// UnitSelection is the tagged result of BFS unit selection within a tree.
// Units are in breadth-first encounter order.
type UnitSelection struct {
	State SelectionState
	Units []SelectedUnit

	// UnitsEvaluated counts units the predicate actually ran against.
	UnitsEvaluated int
	// NodesProcessed counts tree items popped, pagination markers included.
	NodesProcessed int

	// Truncated is set when a scan limit stopped the walk before the tree
	// was exhausted. An empty truncated selection says nothing about the
	// unvisited remainder; an empty complete one means the thread has no
	// narratable units at all.
	Truncated bool
}

// Found reports whether at least one unit was selected.
func (s *UnitSelection) Found() bool {
	return s.State == SelectionFound && len(s.Units) > 0
}

// ThreadRules govern flat-listing thread selection.
// Construct once from configuration; read-only afterwards.
type ThreadRules struct {
	AllowNSFW      bool
	MinComments    int
	MaxComments    int // 0 disables the cap
	Storymode      bool
	StoryMinLength int
	StoryMaxLength int

	// Keywords gates candidates when non-empty: a thread qualifies only if
	// at least one keyword appears in its title or, in storymode, its body.
	// Applied exactly once per candidate.
	Keywords []string
}

// ScanLimits bound the BFS unit selection work.
type ScanLimits struct {
	// MaxUnits caps how many units the predicate is evaluated against.
	MaxUnits int
	// MaxNodes caps how many tree items are processed, markers included.
	MaxNodes int
}

// DefaultScanLimits mirrors the conventional 500-unit scan with a 3x node
// allowance for pagination markers and rejected branches.
func DefaultScanLimits(maxUnits int) ScanLimits {
	if maxUnits <= 0 {
		maxUnits = 500
	}
	return ScanLimits{MaxUnits: maxUnits, MaxNodes: maxUnits * 3}
}
