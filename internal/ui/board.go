// Package ui is okanban's terminal kanban board: a thin bubbletea
// program, one bubbles/list column per category, wired to the
// Orchestrator's snapshot and intent API. It deliberately carries none
// of the teacher's theming, help overlay, or mouse routing — the board
// is out of scope for this design beyond being a complete, working
// surface (SPEC_FULL.md DOMAIN STACK).
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/okanban/okanban/internal/dbwatch"
	"github.com/okanban/okanban/internal/logging"
	"github.com/okanban/okanban/internal/model"
	"github.com/okanban/okanban/internal/orchestrator"
	"github.com/okanban/okanban/internal/store"
)

var log = logging.ForComponent(logging.CompCLI)

const tickInterval = 3 * time.Second

// taskItem adapts a *model.Task to bubbles/list's DefaultDelegate item
// interface.
type taskItem struct {
	task *model.Task
}

func (i taskItem) Title() string { return statusGlyph(i.task.TmuxStatus) + " " + i.task.Title }

func (i taskItem) Description() string { return i.task.Branch }

func (i taskItem) FilterValue() string { return i.task.Title }

func statusGlyph(s model.Status) string {
	switch s {
	case model.StatusRunning:
		return "●"
	case model.StatusWaiting:
		return "◐"
	case model.StatusIdle:
		return "○"
	case model.StatusDead, model.StatusBroken, model.StatusUnavailable:
		return "✕"
	default:
		return "?"
	}
}

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	focusedColumnStyle = columnStyle.BorderForeground(lipgloss.Color("62"))
	columnTitleStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// column is one category's list.
type column struct {
	category *model.Category
	list     list.Model
}

// Model is the board's bubbletea model.
type Model struct {
	orch    *orchestrator.Orchestrator
	watcher *dbwatch.Watcher

	columns []column
	focused int

	width, height int
	statusMsg     string
	quitting      bool
}

// New builds a board Model for orch. watcher may be nil if the project's
// data directory couldn't be watched (the board still works, it just
// won't notice an external CLI write until its own next tick).
func New(orch *orchestrator.Orchestrator, watcher *dbwatch.Watcher) Model {
	return Model{orch: orch, watcher: watcher}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSnapshot, tick()}
	if m.watcher != nil {
		cmds = append(cmds, listenForChange(m.watcher))
	}
	return tea.Batch(cmds...)
}

type snapshotMsg struct {
	snap *store.Snapshot
	err  error
}

type tickMsg time.Time

type dbChangedMsg struct{}

func (m Model) loadSnapshot() tea.Msg {
	snap, err := m.orch.Snapshot()
	return snapshotMsg{snap: snap, err: err}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func listenForChange(w *dbwatch.Watcher) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-w.Changes()
		if !ok {
			return nil
		}
		return dbChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layoutColumns()
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("load failed: %v", msg.err)
			return m, nil
		}
		m.rebuildColumns(msg.snap)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadSnapshot, tick())

	case dbChangedMsg:
		cmds := []tea.Cmd{m.loadSnapshot}
		if m.watcher != nil {
			cmds = append(cmds, listenForChange(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) layoutColumns() {
	if len(m.columns) == 0 {
		return
	}
	colWidth := (m.width / len(m.columns)) - 4
	if colWidth < 10 {
		colWidth = 10
	}
	listHeight := m.height - 6
	if listHeight < 3 {
		listHeight = 3
	}
	for i := range m.columns {
		m.columns[i].list.SetSize(colWidth, listHeight)
	}
}

func (m *Model) rebuildColumns(snap *store.Snapshot) {
	byCategory := snap.TasksByCategory()

	cols := make([]column, 0, len(snap.Categories))
	for _, cat := range snap.Categories {
		tasks := byCategory[cat.ID]
		items := make([]list.Item, 0, len(tasks))
		for _, t := range tasks {
			if !t.Archived {
				items = append(items, taskItem{task: t})
			}
		}

		delegate := list.NewDefaultDelegate()
		l := list.New(items, delegate, 0, 0)
		l.Title = cat.Name
		l.SetShowHelp(false)
		l.SetShowStatusBar(false)
		l.SetShowTitle(false)

		cols = append(cols, column{category: cat, list: l})
	}

	m.columns = cols
	if m.focused >= len(m.columns) {
		m.focused = 0
	}
	m.layoutColumns()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "left", "h":
		if m.focused > 0 {
			m.focused--
		}
		return m, nil

	case "right", "l":
		if m.focused < len(m.columns)-1 {
			m.focused++
		}
		return m, nil

	case "enter":
		return m.attachSelected()

	case "x":
		return m.archiveSelected()
	}

	if len(m.columns) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.columns[m.focused].list, cmd = m.columns[m.focused].list.Update(msg)
	return m, cmd
}

func (m Model) attachSelected() (tea.Model, tea.Cmd) {
	task := m.selectedTask()
	if task == nil {
		return m, nil
	}
	result, err := m.orch.AttachTask(task.ID)
	if err != nil {
		m.statusMsg = fmt.Sprintf("attach failed: %v", err)
		log.Warn("board: attach failed", "task_id", task.ID, "error", err)
		return m, nil
	}
	m.statusMsg = fmt.Sprintf("attached %s", result.Task.Title)
	m.quitting = true
	return m, tea.Quit
}

func (m Model) archiveSelected() (tea.Model, tea.Cmd) {
	task := m.selectedTask()
	if task == nil {
		return m, nil
	}
	if _, err := m.orch.SetArchived(task.ID, true); err != nil {
		m.statusMsg = fmt.Sprintf("archive failed: %v", err)
		return m, nil
	}
	return m, m.loadSnapshot
}

func (m Model) selectedTask() *model.Task {
	if m.focused >= len(m.columns) {
		return nil
	}
	item, ok := m.columns[m.focused].list.SelectedItem().(taskItem)
	if !ok {
		return nil
	}
	return item.task
}

func (m Model) View() string {
	if m.quitting {
		if m.statusMsg != "" {
			return m.statusMsg + "\n"
		}
		return ""
	}

	rendered := make([]string, 0, len(m.columns))
	for i, col := range m.columns {
		style := columnStyle
		if i == m.focused {
			style = focusedColumnStyle
		}
		header := columnTitleStyle.Render(col.category.Name)
		rendered = append(rendered, style.Render(header+"\n"+col.list.View()))
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	footer := statusBarStyle.Render("←/→ switch column · ↑/↓ select · enter attach · x archive · q quit")
	if m.statusMsg != "" {
		footer = statusBarStyle.Render(m.statusMsg)
	}
	return lipgloss.JoinVertical(lipgloss.Left, board, footer)
}
