package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/okanban/okanban/internal/model"
	"github.com/okanban/okanban/internal/store"
)

func TestRebuildColumnsSkipsArchivedTasks(t *testing.T) {
	m := Model{width: 120, height: 40}

	cat := &model.Category{ID: "c1", Name: "Todo", Slug: "todo"}
	visible := &model.Task{ID: "t1", Title: "visible", CategoryID: "c1"}
	archived := &model.Task{ID: "t2", Title: "archived", CategoryID: "c1", Archived: true}

	snap := &store.Snapshot{
		Categories: []*model.Category{cat},
		Tasks:      []*model.Task{visible, archived},
	}

	m.rebuildColumns(snap)

	assert.Len(t, m.columns, 1)
	assert.Equal(t, 1, len(m.columns[0].list.Items()))
}

func TestStatusGlyphCoversEveryStatus(t *testing.T) {
	statuses := []model.Status{
		model.StatusRunning, model.StatusWaiting, model.StatusIdle,
		model.StatusDead, model.StatusBroken, model.StatusUnavailable, model.StatusUnknown,
	}
	for _, s := range statuses {
		assert.NotEmpty(t, statusGlyph(s))
	}
}

func TestHandleKeyRightAdvancesFocusedColumn(t *testing.T) {
	m := Model{width: 120, height: 40}
	cat1 := &model.Category{ID: "c1", Name: "Todo", Slug: "todo"}
	cat2 := &model.Category{ID: "c2", Name: "Done", Slug: "done"}
	snap := &store.Snapshot{Categories: []*model.Category{cat1, cat2}}
	m.rebuildColumns(snap)

	assert.Equal(t, 0, m.focused)
	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyRight})
	um := updated.(Model)
	assert.Equal(t, 1, um.focused)
}
