package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

type stubLedgerService struct {
	produced   []*domain.ProducedVideo
	used       map[string][]string
	unsuitable []string

	markedUnsuitable []string
}

func (s *stubLedgerService) UsedUnits(ctx context.Context) (map[string][]string, error) {
	return s.used, nil
}

func (s *stubLedgerService) UnsuitableSources(ctx context.Context) ([]string, error) {
	return s.unsuitable, nil
}

func (s *stubLedgerService) Produced(ctx context.Context) ([]*domain.ProducedVideo, error) {
	return s.produced, nil
}

func (s *stubLedgerService) MarkUsed(ctx context.Context, sourceID string, unitIDs []string) error {
	return nil
}

func (s *stubLedgerService) MarkUnsuitable(ctx context.Context, sourceID string) error {
	s.markedUnsuitable = append(s.markedUnsuitable, sourceID)
	return nil
}

func newTestModel() (ledgerModel, *stubLedgerService) {
	svc := &stubLedgerService{
		produced: []*domain.ProducedVideo{
			{SourceID: "abc123", Subreddit: "AskReddit", Filename: "abc123.mp4", CreatedAt: time.Now()},
		},
		used:       map[string][]string{"abc123": {"u1", "u2"}, "def456": {"u3"}},
		unsuitable: []string{"zzz999"},
	}
	m := ledgerModel{svc: svc}
	loaded := loadLedgersCmd(svc)().(ledgerLoadedMsg)
	model, _ := m.Update(loaded)
	return model.(ledgerModel), svc
}

func TestLoadedMessagePopulatesTabs(t *testing.T) {
	m, _ := newTestModel()

	if len(m.produced) != 1 {
		t.Errorf("produced rows = %d, want 1", len(m.produced))
	}
	if len(m.used) != 2 {
		t.Errorf("used rows = %d, want 2", len(m.used))
	}
	// Used rows come back sorted by source ID.
	if m.used[0].SourceID != "abc123" || m.used[1].SourceID != "def456" {
		t.Errorf("used order = %v", m.used)
	}
	if len(m.unsuitable) != 1 {
		t.Errorf("unsuitable rows = %d, want 1", len(m.unsuitable))
	}
}

func TestTabSwitching(t *testing.T) {
	m, _ := newTestModel()

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m2 := model.(ledgerModel)
	if m2.tab != tabUsed {
		t.Errorf("tab = %d, want used", m2.tab)
	}

	model, _ = m2.Update(tea.KeyMsg{Type: tea.KeyTab})
	m3 := model.(ledgerModel)
	if m3.tab != tabUnsuitable {
		t.Errorf("tab = %d, want unsuitable", m3.tab)
	}

	// Wraps around.
	model, _ = m3.Update(tea.KeyMsg{Type: tea.KeyTab})
	m4 := model.(ledgerModel)
	if m4.tab != tabProduced {
		t.Errorf("tab = %d, want produced", m4.tab)
	}
}

func TestCursorStaysInRange(t *testing.T) {
	m, _ := newTestModel()
	m.tab = tabUsed

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m2 := model.(ledgerModel)
	if m2.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m2.cursor)
	}

	model, _ = m2.Update(tea.KeyMsg{Type: tea.KeyDown})
	m3 := model.(ledgerModel)
	if m3.cursor != 1 {
		t.Errorf("cursor = %d, want clamped at 1", m3.cursor)
	}

	model, _ = m3.Update(tea.KeyMsg{Type: tea.KeyUp})
	m4 := model.(ledgerModel)
	if m4.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m4.cursor)
	}
}

func TestMarkUnsuitableFlow(t *testing.T) {
	m, svc := newTestModel()
	m.tab = tabUsed

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	m2 := model.(ledgerModel)
	if m2.mode != modeConfirmUnsuitable {
		t.Fatalf("mode = %d, want confirm", m2.mode)
	}
	if m2.confirmSourceID != "abc123" {
		t.Fatalf("confirmSourceID = %q, want abc123", m2.confirmSourceID)
	}

	model, cmd := m2.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m3 := model.(ledgerModel)
	if cmd == nil {
		t.Fatal("expected a mark command")
	}
	msg := cmd().(ledgerMarkedMsg)
	if msg.err != nil {
		t.Fatalf("mark error = %v", msg.err)
	}
	if len(svc.markedUnsuitable) != 1 || svc.markedUnsuitable[0] != "abc123" {
		t.Errorf("markedUnsuitable = %v, want [abc123]", svc.markedUnsuitable)
	}

	model, _ = m3.Update(msg)
	m4 := model.(ledgerModel)
	if m4.mode != modeBrowse {
		t.Errorf("mode = %d, want browse after mark", m4.mode)
	}
	if !strings.Contains(m4.statusMessage, "abc123") {
		t.Errorf("statusMessage = %q, want mention of source", m4.statusMessage)
	}
}

func TestMarkUnsuitableCancel(t *testing.T) {
	m, svc := newTestModel()
	m.mode = modeConfirmUnsuitable
	m.confirmSourceID = "abc123"

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m2 := model.(ledgerModel)
	if m2.mode != modeBrowse {
		t.Errorf("mode = %d, want browse", m2.mode)
	}
	if len(svc.markedUnsuitable) != 0 {
		t.Errorf("markedUnsuitable = %v, want empty", svc.markedUnsuitable)
	}
}

func TestUnsuitableTabHasNoMarkTarget(t *testing.T) {
	m, _ := newTestModel()
	m.tab = tabUnsuitable

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	m2 := model.(ledgerModel)
	if m2.mode != modeBrowse {
		t.Errorf("mode = %d, want browse", m2.mode)
	}
	if m2.statusMessage == "" {
		t.Error("expected a status hint")
	}
}

func TestViewRendersRows(t *testing.T) {
	m, _ := newTestModel()
	m.width = 100
	m.height = 30

	out := m.View()
	if !strings.Contains(out, "abc123.mp4") {
		t.Errorf("view missing produced row:\n%s", out)
	}
	if !strings.Contains(out, "Produced (1)") {
		t.Errorf("view missing tab label:\n%s", out)
	}
}

func TestListWindow(t *testing.T) {
	tests := []struct {
		total, cursor, max int
		wantStart, wantEnd int
	}{
		{total: 3, cursor: 0, max: 10, wantStart: 0, wantEnd: 3},
		{total: 20, cursor: 0, max: 5, wantStart: 0, wantEnd: 5},
		{total: 20, cursor: 19, max: 5, wantStart: 15, wantEnd: 20},
		{total: 20, cursor: 10, max: 5, wantStart: 8, wantEnd: 13},
	}
	for _, tt := range tests {
		start, end := listWindow(tt.total, tt.cursor, tt.max)
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("listWindow(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.total, tt.cursor, tt.max, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}
