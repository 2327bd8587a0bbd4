package domain

// ContentChange reports a committed manual edit. It mirrors the
// content_change notification sent to the worker side.
type ContentChange struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// CellEditor enforces a single concurrent editor per table. Entering edit
// mode on a cell is disallowed while another cell is already being edited;
// the model enforces this, not just the rendering surface.
type CellEditor struct {
	table   *Table
	editing *CellRef
	prior   string
}

// NewCellEditor creates an editor bound to a table.
func NewCellEditor(table *Table) *CellEditor {
	return &CellEditor{table: table}
}

// Editing returns the cell currently in edit mode, or nil.
func (e *CellEditor) Editing() *CellRef {
	if e.editing == nil {
		return nil
	}
	ref := *e.editing
	return &ref
}

// Begin enters edit mode on a cell, remembering the prior value so a cancel
// can restore it.
func (e *CellEditor) Begin(ref CellRef) error {
	if e.editing != nil {
		return ErrEditInProgress
	}
	prior, err := e.table.Cell(ref.Row, ref.Column)
	if err != nil {
		return err
	}
	e.editing = &ref
	e.prior = prior
	return nil
}

// Commit applies the new value optimistically and returns the
// content_change notification to emit. The in-memory cell is updated
// immediately; the peer learns about it through the returned change.
func (e *CellEditor) Commit(value string) (*ContentChange, error) {
	if e.editing == nil {
		return nil, ErrNoEditInProgress
	}
	ref := *e.editing
	if err := e.table.SetCell(ref.Row, ref.Column, value); err != nil {
		return nil, err
	}
	e.editing = nil
	e.prior = ""
	return &ContentChange{Row: ref.Row, Column: ref.Column, Value: value}, nil
}

// Cancel leaves edit mode and restores the prior value. No notification is
// emitted.
func (e *CellEditor) Cancel() {
	if e.editing == nil {
		return
	}
	// The cell existed when Begin succeeded; a failed restore means the
	// table was replaced underneath us, in which case there is nothing to
	// put back.
	_ = e.table.SetCell(e.editing.Row, e.editing.Column, e.prior)
	e.editing = nil
	e.prior = ""
}
