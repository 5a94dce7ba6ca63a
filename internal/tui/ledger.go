// Package tui provides an interactive terminal view over the dedup and
// produced ledgers.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driving"
)

type ledgerTab int

const (
	tabProduced ledgerTab = iota
	tabUsed
	tabUnsuitable
	tabCount
)

type ledgerMode int

const (
	modeBrowse ledgerMode = iota
	modeConfirmUnsuitable
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	activeTab   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
)

type usedRow struct {
	SourceID string
	UnitIDs  []string
}

type ledgerLoadedMsg struct {
	produced   []*domain.ProducedVideo
	used       []usedRow
	unsuitable []string
	err        error
}

type ledgerMarkedMsg struct {
	message string
	err     error
}

type ledgerModel struct {
	svc driving.LedgerService

	tab    ledgerTab
	mode   ledgerMode
	cursor int
	width  int
	height int

	produced   []*domain.ProducedVideo
	used       []usedRow
	unsuitable []string

	confirmSourceID string
	statusMessage   string
	fatalErr        error
}

// Run opens the ledger browser and blocks until the user quits.
func Run(svc driving.LedgerService) error {
	m := ledgerModel{svc: svc}
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := finalModel.(ledgerModel); ok {
		return fm.fatalErr
	}
	return nil
}

func (m ledgerModel) Init() tea.Cmd {
	return loadLedgersCmd(m.svc)
}

func (m ledgerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case ledgerLoadedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		m.produced = msg.produced
		m.used = msg.used
		m.unsuitable = msg.unsuitable
		m.clampCursor()
		return m, nil
	case ledgerMarkedMsg:
		m.mode = modeBrowse
		m.confirmSourceID = ""
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		return m, loadLedgersCmd(m.svc)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case modeConfirmUnsuitable:
		return m.updateConfirm(keyMsg)
	default:
		return m.updateBrowse(keyMsg)
	}
}

func (m ledgerModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab", "right", "l":
		m.tab = (m.tab + 1) % tabCount
		m.cursor = 0
		m.statusMessage = ""
		return m, nil
	case "shift+tab", "left", "h":
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.cursor = 0
		m.statusMessage = ""
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
		return m, nil
	case "r":
		m.statusMessage = ""
		return m, loadLedgersCmd(m.svc)
	case "u":
		id := m.selectedSourceID()
		if id == "" {
			m.statusMessage = "select an entry to mark unsuitable"
			return m, nil
		}
		m.mode = modeConfirmUnsuitable
		m.confirmSourceID = id
		return m, nil
	}
	return m, nil
}

func (m ledgerModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n":
		m.mode = modeBrowse
		m.confirmSourceID = ""
		m.statusMessage = "cancelled"
		return m, nil
	case "y", "enter":
		id := m.confirmSourceID
		if id == "" {
			m.mode = modeBrowse
			return m, nil
		}
		return m, markUnsuitableCmd(m.svc, id)
	}
	return m, nil
}

func (m ledgerModel) View() string {
	if m.fatalErr != nil {
		return errorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	if m.mode == modeConfirmUnsuitable {
		return m.viewConfirm()
	}

	header := titleStyle.Render("storyforge ledger") + "\n" +
		m.renderTabs() + "\n" +
		mutedStyle.Render("tab/left/right: switch | up/down: move | u: mark unsuitable | r: refresh | q: quit")

	panel := panelStyle.Width(maxInt(m.width-2, 40)).Render(m.renderRows())
	status := m.renderStatusLine()
	return lipgloss.JoinVertical(lipgloss.Left, header, panel, status)
}

func (m ledgerModel) renderTabs() string {
	labels := []string{
		fmt.Sprintf("Produced (%d)", len(m.produced)),
		fmt.Sprintf("Used (%d)", len(m.used)),
		fmt.Sprintf("Unsuitable (%d)", len(m.unsuitable)),
	}
	parts := make([]string, len(labels))
	for i, label := range labels {
		if ledgerTab(i) == m.tab {
			parts[i] = activeTab.Render(label)
		} else {
			parts[i] = inactiveTab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m ledgerModel) renderRows() string {
	rows := m.rowCount()
	if rows == 0 {
		return mutedStyle.Render("nothing here yet")
	}

	maxRows := clampInt(m.height-8, 4, 30)
	start, end := listWindow(rows, m.cursor, maxRows)

	lines := make([]string, 0, maxRows+2)
	if start > 0 {
		lines = append(lines, mutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		line := truncateRunes(m.rowText(i), maxInt(m.width-8, 20))
		if i == m.cursor {
			line = selStyle.Width(maxInt(m.width-6, 20)).Render(line)
		}
		lines = append(lines, line)
	}
	if end < rows {
		lines = append(lines, mutedStyle.Render("..."))
	}
	return strings.Join(lines, "\n")
}

func (m ledgerModel) rowText(i int) string {
	switch m.tab {
	case tabProduced:
		v := m.produced[i]
		return fmt.Sprintf("%s  %s  %s  %s",
			v.CreatedAt.Format("2006-01-02 15:04"), v.SourceID, v.Subreddit, v.Filename)
	case tabUsed:
		row := m.used[i]
		return fmt.Sprintf("%s  %d units", row.SourceID, len(row.UnitIDs))
	default:
		return m.unsuitable[i]
	}
}

func (m ledgerModel) renderStatusLine() string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		return mutedStyle.Render("")
	}
	style := okStyle
	if strings.HasPrefix(msg, "error:") {
		style = errorStyle
	}
	return style.Render(truncateRunes(msg, maxInt(m.width-2, 20)))
}

func (m ledgerModel) viewConfirm() string {
	text := fmt.Sprintf(
		"Mark thread '%s' as unsuitable?\n\nIt will never be selected again.\n\nPress y or Enter to confirm, n or Esc to cancel.",
		m.confirmSourceID,
	)
	boxW := clampInt(m.width-8, 36, 80)
	panel := panelStyle.Width(boxW).Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func (m ledgerModel) rowCount() int {
	switch m.tab {
	case tabProduced:
		return len(m.produced)
	case tabUsed:
		return len(m.used)
	default:
		return len(m.unsuitable)
	}
}

func (m *ledgerModel) clampCursor() {
	rows := m.rowCount()
	if rows == 0 {
		m.cursor = 0
		return
	}
	if m.cursor > rows-1 {
		m.cursor = rows - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m ledgerModel) selectedSourceID() string {
	if m.rowCount() == 0 || m.cursor >= m.rowCount() {
		return ""
	}
	switch m.tab {
	case tabProduced:
		return m.produced[m.cursor].SourceID
	case tabUsed:
		return m.used[m.cursor].SourceID
	default:
		return ""
	}
}

func loadLedgersCmd(svc driving.LedgerService) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		produced, err := svc.Produced(ctx)
		if err != nil {
			return ledgerLoadedMsg{err: err}
		}
		usedMap, err := svc.UsedUnits(ctx)
		if err != nil {
			return ledgerLoadedMsg{err: err}
		}
		unsuitable, err := svc.UnsuitableSources(ctx)
		if err != nil {
			return ledgerLoadedMsg{err: err}
		}

		used := make([]usedRow, 0, len(usedMap))
		for id, units := range usedMap {
			used = append(used, usedRow{SourceID: id, UnitIDs: units})
		}
		sort.Slice(used, func(i, j int) bool { return used[i].SourceID < used[j].SourceID })
		sort.Strings(unsuitable)

		return ledgerLoadedMsg{produced: produced, used: used, unsuitable: unsuitable}
	}
}

func markUnsuitableCmd(svc driving.LedgerService, sourceID string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.MarkUnsuitable(context.Background(), sourceID); err != nil {
			return ledgerMarkedMsg{err: err}
		}
		return ledgerMarkedMsg{message: "marked unsuitable: " + sourceID}
	}
}

func listWindow(total, cursor, maxRows int) (int, int) {
	if total <= maxRows {
		return 0, total
	}
	start := cursor - maxRows/2
	if start < 0 {
		start = 0
	}
	end := start + maxRows
	if end > total {
		end = total
		start = end - maxRows
	}
	return start, end
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
