package domain

import (
	"fmt"
	"html"
	"time"
)

// Table is the mutable tabular result set shared between the worker and the
// human editor. Columns are order-significant; every row carries a value
// (possibly empty) for every declared column.
type Table struct {
	columns []string
	rows    []map[string]string
}

// NewTable builds a table from the given columns and rows. Rows are
// normalized so every declared column is present; values for undeclared
// columns are dropped.
func NewTable(columns []string, rows []map[string]string) *Table {
	t := &Table{}
	t.Replace(columns, rows)
	return t
}

// Replace atomically swaps the table contents for the given snapshot.
// This is the full-replace policy for content updates: the table after a
// replace exactly equals the payload, with no implicit merging.
func (t *Table) Replace(columns []string, rows []map[string]string) {
	t.columns = make([]string, len(columns))
	copy(t.columns, columns)

	t.rows = make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		normalized := make(map[string]string, len(t.columns))
		for _, col := range t.columns {
			normalized[col] = row[col]
		}
		t.rows = append(t.rows, normalized)
	}
}

// Columns returns a copy of the ordered column identifiers.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Rows returns a deep copy of the row data.
func (t *Table) Rows() []map[string]string {
	out := make([]map[string]string, 0, len(t.rows))
	for _, row := range t.rows {
		cp := make(map[string]string, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// ColumnIndex returns the display position of a column, or -1 if undeclared.
func (t *Table) ColumnIndex(column string) int {
	for i, c := range t.columns {
		if c == column {
			return i
		}
	}
	return -1
}

// HasCell reports whether (row, column) addresses an existing cell.
func (t *Table) HasCell(row int, column string) bool {
	return row >= 0 && row < len(t.rows) && t.ColumnIndex(column) >= 0
}

// Cell returns the value at (row, column).
func (t *Table) Cell(row int, column string) (string, error) {
	if !t.HasCell(row, column) {
		return "", fmt.Errorf("no cell at row %d, column %q", row, column)
	}
	return t.rows[row][column], nil
}

// SetCell updates a single cell value in place.
func (t *Table) SetCell(row int, column, value string) error {
	if !t.HasCell(row, column) {
		return fmt.Errorf("no cell at row %d, column %q", row, column)
	}
	t.rows[row][column] = value
	return nil
}

// EscapedCell returns the cell value with markup-significant characters
// neutralized. Cell values are untrusted text and must pass through this
// before being interpolated into structured output.
func (t *Table) EscapedCell(row int, column string) (string, error) {
	v, err := t.Cell(row, column)
	if err != nil {
		return "", err
	}
	return html.EscapeString(v), nil
}

// Snapshot captures the table contents for persistence.
func (t *Table) Snapshot(taskID string) *TableSnapshot {
	return &TableSnapshot{
		TaskID:  taskID,
		Columns: t.Columns(),
		Rows:    t.Rows(),
		SavedAt: time.Now().UTC(),
	}
}

// TableSnapshot is the shape handed to the persistence collaborator.
type TableSnapshot struct {
	TaskID  string              `json:"task_id"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	SavedAt time.Time           `json:"saved_at"`
}
