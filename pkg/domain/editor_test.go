package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshinodea/content-retriever/pkg/domain"
)

func TestCellEditor_SingleConcurrentEditor(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{
		{"title": "A"},
		{"title": "B"},
	})
	editor := domain.NewCellEditor(table)

	require.NoError(t, editor.Begin(domain.CellRef{Row: 0, Column: "title"}))

	// The model, not the UI, enforces one editor at a time.
	err := editor.Begin(domain.CellRef{Row: 1, Column: "title"})
	assert.ErrorIs(t, err, domain.ErrEditInProgress)
}

func TestCellEditor_CommitUpdatesAndNotifies(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{{"title": "A"}})
	editor := domain.NewCellEditor(table)

	require.NoError(t, editor.Begin(domain.CellRef{Row: 0, Column: "title"}))
	change, err := editor.Commit("edited")
	require.NoError(t, err)

	// Optimistic: the in-memory value is updated immediately.
	v, _ := table.Cell(0, "title")
	assert.Equal(t, "edited", v)

	require.NotNil(t, change)
	assert.Equal(t, domain.ContentChange{Row: 0, Column: "title", Value: "edited"}, *change)

	// The editor is free again.
	assert.Nil(t, editor.Editing())
	assert.NoError(t, editor.Begin(domain.CellRef{Row: 0, Column: "title"}))
}

func TestCellEditor_CancelRestoresWithoutNotification(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{{"title": "A"}})
	editor := domain.NewCellEditor(table)

	require.NoError(t, editor.Begin(domain.CellRef{Row: 0, Column: "title"}))
	// Simulate a provisional value written during editing.
	require.NoError(t, table.SetCell(0, "title", "half-typed"))

	editor.Cancel()

	v, _ := table.Cell(0, "title")
	assert.Equal(t, "A", v)
	assert.Nil(t, editor.Editing())
}

func TestCellEditor_CommitWithoutBegin(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{{"title": "A"}})
	editor := domain.NewCellEditor(table)

	_, err := editor.Commit("x")
	assert.ErrorIs(t, err, domain.ErrNoEditInProgress)
}

func TestCellEditor_BeginOnMissingCell(t *testing.T) {
	table := domain.NewTable([]string{"title"}, nil)
	editor := domain.NewCellEditor(table)

	assert.Error(t, editor.Begin(domain.CellRef{Row: 0, Column: "title"}))
}
