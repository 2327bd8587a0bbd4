package domain

import "sort"

// CellRef addresses a single table cell by numeric row index and column
// identifier.
type CellRef struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
}

// Selection is a set of cells with an anchor (the most recently selected
// cell) used as the starting corner for range selection.
type Selection struct {
	cells  map[CellRef]struct{}
	anchor *CellRef
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{cells: make(map[CellRef]struct{})}
}

// Click replaces the current selection with the single clicked cell.
func (s *Selection) Click(ref CellRef) {
	s.cells = map[CellRef]struct{}{ref: {}}
	s.setAnchor(ref)
}

// Toggle flips membership of the clicked cell without clearing others.
// The toggled-on cell becomes the anchor; toggling a cell off leaves the
// anchor pointing at it so a subsequent range still has a starting corner.
func (s *Selection) Toggle(ref CellRef) {
	if _, ok := s.cells[ref]; ok {
		delete(s.cells, ref)
	} else {
		s.cells[ref] = struct{}{}
	}
	s.setAnchor(ref)
}

// RangeClick replaces the selection with the rectangular closure between the
// anchor and the target, using column order (not label) and numeric row index
// to determine corners. With no current anchor it degrades to a plain
// single-cell selection.
func (s *Selection) RangeClick(t *Table, ref CellRef) {
	if s.anchor == nil {
		s.Click(ref)
		return
	}

	anchorCol := t.ColumnIndex(s.anchor.Column)
	targetCol := t.ColumnIndex(ref.Column)
	if anchorCol < 0 || targetCol < 0 {
		s.Click(ref)
		return
	}

	rowLo, rowHi := s.anchor.Row, ref.Row
	if rowLo > rowHi {
		rowLo, rowHi = rowHi, rowLo
	}
	// The anchor may point past the end of a table that has since shrunk.
	if max := t.RowCount() - 1; rowHi > max {
		rowHi = max
	}
	if rowLo < 0 {
		rowLo = 0
	}
	colLo, colHi := anchorCol, targetCol
	if colLo > colHi {
		colLo, colHi = colHi, colLo
	}

	columns := t.Columns()
	s.cells = make(map[CellRef]struct{})
	for r := rowLo; r <= rowHi; r++ {
		for c := colLo; c <= colHi; c++ {
			s.cells[CellRef{Row: r, Column: columns[c]}] = struct{}{}
		}
	}
	// The anchor stays where it was; only a plain or toggle click moves it.
}

// Replace swaps the selection for an explicit set of cells, as carried by an
// edit_cells request. The last cell becomes the anchor.
func (s *Selection) Replace(refs []CellRef) {
	s.cells = make(map[CellRef]struct{}, len(refs))
	for _, ref := range refs {
		s.cells[ref] = struct{}{}
	}
	if len(refs) > 0 {
		s.setAnchor(refs[len(refs)-1])
	} else {
		s.anchor = nil
	}
}

// Clear empties the selection and drops the anchor.
func (s *Selection) Clear() {
	s.cells = make(map[CellRef]struct{})
	s.anchor = nil
}

// Contains reports membership of a cell.
func (s *Selection) Contains(ref CellRef) bool {
	_, ok := s.cells[ref]
	return ok
}

// Len returns the number of selected cells.
func (s *Selection) Len() int {
	return len(s.cells)
}

// Cells returns the selected cells ordered by row, then column identifier.
func (s *Selection) Cells() []CellRef {
	out := make([]CellRef, 0, len(s.cells))
	for ref := range s.cells {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func (s *Selection) setAnchor(ref CellRef) {
	anchor := ref
	s.anchor = &anchor
}
