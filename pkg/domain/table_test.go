package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshinodea/content-retriever/pkg/domain"
)

func TestTable_NormalizesRowsToColumns(t *testing.T) {
	table := domain.NewTable(
		[]string{"title", "summary"},
		[]map[string]string{
			{"title": "A"},                           // missing summary
			{"title": "B", "summary": "s", "x": "y"}, // undeclared column
		},
	)

	rows := table.Rows()
	require.Len(t, rows, 2)
	// Every row carries a value (possibly empty) for every declared column.
	assert.Equal(t, map[string]string{"title": "A", "summary": ""}, rows[0])
	assert.Equal(t, map[string]string{"title": "B", "summary": "s"}, rows[1])
}

func TestTable_ReplaceIsFullReplace(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{{"title": "A"}})
	table.Replace([]string{"title"}, []map[string]string{{"title": "B"}})

	// No implicit merging: the table equals the most recent payload exactly.
	require.Equal(t, 1, table.RowCount())
	v, err := table.Cell(0, "title")
	require.NoError(t, err)
	assert.Equal(t, "B", v)
}

func TestTable_SetCell(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{{"title": "A"}})

	require.NoError(t, table.SetCell(0, "title", "edited"))
	v, _ := table.Cell(0, "title")
	assert.Equal(t, "edited", v)

	assert.Error(t, table.SetCell(5, "title", "x"))
	assert.Error(t, table.SetCell(0, "nope", "x"))
}

func TestTable_EscapedCell(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{
		{"title": `<script>alert("x")</script>`},
	})

	escaped, err := table.EscapedCell(0, "title")
	require.NoError(t, err)
	assert.Equal(t, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;", escaped)
	assert.NotContains(t, escaped, "<")
}

func TestTable_RowsReturnsCopy(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{{"title": "A"}})

	rows := table.Rows()
	rows[0]["title"] = "mutated"

	v, _ := table.Cell(0, "title")
	assert.Equal(t, "A", v)
}

func TestTable_Snapshot(t *testing.T) {
	table := domain.NewTable([]string{"title"}, []map[string]string{{"title": "A"}})

	snap := table.Snapshot("task-1")
	assert.Equal(t, "task-1", snap.TaskID)
	assert.Equal(t, []string{"title"}, snap.Columns)
	assert.Equal(t, []map[string]string{{"title": "A"}}, snap.Rows)
	assert.False(t, snap.SavedAt.IsZero())
}

func TestTable_ColumnIndex(t *testing.T) {
	table := domain.NewTable([]string{"a", "b", "c"}, nil)
	assert.Equal(t, 0, table.ColumnIndex("a"))
	assert.Equal(t, 2, table.ColumnIndex("c"))
	assert.Equal(t, -1, table.ColumnIndex("z"))
}
