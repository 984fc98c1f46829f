// Package table provides the in-memory tabular model shared by the
// sheet scorer, the cleaning pipeline, and the lookup processor: an
// ordered set of named columns holding typed cells.
package table

import "strings"

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// IsText reports whether the column holds at least one text cell.
// Columns made entirely of numbers (or entirely of missing values)
// are not text columns.
func (c *Column) IsText() bool {
	for _, cell := range c.Cells {
		if cell.Type == CellText {
			return true
		}
	}
	return false
}

// Table is an ordered set of equally sized columns. The header row is
// kept as column names; Cells hold only data rows.
type Table struct {
	columns []Column
}

// New creates an empty table with the given column headers.
func New(headers ...string) *Table {
	t := &Table{columns: make([]Column, len(headers))}
	for i, h := range headers {
		t.columns[i].Name = h
	}
	return t
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Cells)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// Headers returns the column names in order.
func (t *Table) Headers() []string {
	headers := make([]string, len(t.columns))
	for i := range t.columns {
		headers[i] = t.columns[i].Name
	}
	return headers
}

// Column returns the i-th column.
func (t *Table) Column(i int) *Column {
	return &t.columns[i]
}

// ColumnIndex returns the index of the first column with the given
// name, or -1 if no column matches.
func (t *Table) ColumnIndex(name string) int {
	for i := range t.columns {
		if t.columns[i].Name == name {
			return i
		}
	}
	return -1
}

// SetHeader renames the i-th column.
func (t *Table) SetHeader(i int, name string) {
	t.columns[i].Name = name
}

// Cell returns the cell at the given row and column.
func (t *Table) Cell(row, col int) Cell {
	return t.columns[col].Cells[row]
}

// SetCell replaces the cell at the given row and column.
func (t *Table) SetCell(row, col int, c Cell) {
	t.columns[col].Cells[row] = c
}

// Row returns a copy of the i-th data row.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.columns))
	for c := range t.columns {
		row[c] = t.columns[c].Cells[i]
	}
	return row
}

// AppendRow adds a data row. Short rows are padded with missing cells;
// extra cells beyond the column count are dropped.
func (t *Table) AppendRow(cells ...Cell) {
	for c := range t.columns {
		if c < len(cells) {
			t.columns[c].Cells = append(t.columns[c].Cells, cells[c])
		} else {
			t.columns[c].Cells = append(t.columns[c].Cells, Missing)
		}
	}
}

// AddColumn appends a new column. Its cell count is padded or truncated
// to the table's row count.
func (t *Table) AddColumn(name string, cells []Cell) {
	rows := t.RowCount()
	col := Column{Name: name, Cells: make([]Cell, rows)}
	for i := 0; i < rows && i < len(cells); i++ {
		col.Cells[i] = cells[i]
	}
	t.columns = append(t.columns, col)
}

// IsRowEmpty reports whether every cell in the i-th row is missing.
func (t *Table) IsRowEmpty(i int) bool {
	for c := range t.columns {
		if !t.columns[c].Cells[i].IsMissing() {
			return false
		}
	}
	return true
}

// FilterRows keeps only the rows for which keep returns true,
// preserving order. It returns the number of rows removed.
func (t *Table) FilterRows(keep func(row int) bool) int {
	rows := t.RowCount()
	kept := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		if keep(i) {
			kept = append(kept, i)
		}
	}
	if len(kept) == rows {
		return 0
	}
	for c := range t.columns {
		cells := make([]Cell, len(kept))
		for n, i := range kept {
			cells[n] = t.columns[c].Cells[i]
		}
		t.columns[c].Cells = cells
	}
	return rows - len(kept)
}

// RemoveColumns drops every column for which drop returns true,
// preserving order. It returns the number of columns removed.
func (t *Table) RemoveColumns(drop func(i int, col *Column) bool) int {
	kept := t.columns[:0]
	removed := 0
	for i := range t.columns {
		if drop(i, &t.columns[i]) {
			removed++
			continue
		}
		kept = append(kept, t.columns[i])
	}
	t.columns = kept
	return removed
}

// MatchColumns returns, in column order, the names of all columns whose
// lowercased and trimmed header contains any of the given patterns.
// This is the single column-selection primitive shared by the sheet
// scorer and the cleaning pipeline.
func (t *Table) MatchColumns(patterns []string) []string {
	var matched []string
	for i := range t.columns {
		if MatchesAny(t.columns[i].Name, patterns) {
			matched = append(matched, t.columns[i].Name)
		}
	}
	return matched
}

// MatchesAny reports whether the lowercased, trimmed header contains
// any of the given substring patterns.
func MatchesAny(header string, patterns []string) bool {
	h := strings.TrimSpace(strings.ToLower(header))
	for _, p := range patterns {
		if strings.Contains(h, p) {
			return true
		}
	}
	return false
}

// MissingCount returns the number of missing cells in the whole table.
func (t *Table) MissingCount() int {
	total := 0
	for c := range t.columns {
		for _, cell := range t.columns[c].Cells {
			if cell.IsMissing() {
				total++
			}
		}
	}
	return total
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	clone := &Table{columns: make([]Column, len(t.columns))}
	for i := range t.columns {
		clone.columns[i].Name = t.columns[i].Name
		clone.columns[i].Cells = append([]Cell(nil), t.columns[i].Cells...)
	}
	return clone
}
