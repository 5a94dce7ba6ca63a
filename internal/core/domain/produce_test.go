package domain

import (
	"strings"
	"testing"
)

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips unsafe chars", `what? "really" | yes: <ok>`, "what really  yes ok"},
		{"with slash o", "life w/o coffee", "life without coffee"},
		{"with slash", "tea w/ milk", "tea with milk"},
		{"number fraction", "part 1/2 of the story", "part 1 of 2 of the story"},
		{"word pair", "cats/dogs debate", "cats or dogs debate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeFilename(tt.in); got != tt.want {
				t.Errorf("NormalizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeFilename_Clamps(t *testing.T) {
	long := strings.Repeat("a", 400)
	if got := NormalizeFilename(long); len(got) != 200 {
		t.Errorf("expected clamp to 200, got %d", len(got))
	}
}

func TestTask_RetryBackoff(t *testing.T) {
	task := NewProduceSourceTask("abc123")
	if task.SourceID() != "abc123" {
		t.Fatalf("SourceID() = %q", task.SourceID())
	}

	task.MarkProcessing()
	task.Retry("transient failure")

	if task.Status != TaskStatusPending {
		t.Errorf("expected pending after retry, got %s", task.Status)
	}
	if !task.ScheduledFor.After(task.CreatedAt) {
		t.Error("expected backoff to delay the task")
	}
	if !task.CanRetry() {
		t.Error("expected retries to remain")
	}
}

func TestTask_BatchCount(t *testing.T) {
	if got := NewProduceBatchTask(0).BatchCount(); got != 1 {
		t.Errorf("BatchCount() = %d, want 1", got)
	}
	if got := NewProduceBatchTask(4).BatchCount(); got != 4 {
		t.Errorf("BatchCount() = %d, want 4", got)
	}
}
