package table

import (
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// Sentinel errors for the two caller-facing failure modes. Everything
// else at the cell/sheet level is absorbed into report structures.
var (
	ErrFileNotFound  = errors.New("file not found")
	ErrSheetNotFound = errors.New("sheet not found")
)

// OpenWorkbook opens an xlsx workbook for reading. A nonexistent path
// yields ErrFileNotFound.
func OpenWorkbook(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	return f, nil
}

// HasSheet reports whether the workbook contains a sheet with the
// given name.
func HasSheet(f *excelize.File, sheet string) bool {
	idx, err := f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// ReadSheet materializes one worksheet as a Table. The first row is
// the header row; data rows follow. Ragged rows are padded with
// missing cells and cell types are inferred from the raw values.
func ReadSheet(f *excelize.File, sheet string) (*Table, error) {
	if !HasSheet(f, sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return New(), nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	headers := make([]string, width)
	for i := 0; i < width && i < len(rows[0]); i++ {
		headers[i] = rows[0][i]
	}
	t := New(headers...)

	for _, row := range rows[1:] {
		cells := make([]Cell, len(row))
		for i, raw := range row {
			cells[i] = inferCell(raw)
		}
		t.AppendRow(cells...)
	}
	return t, nil
}

// LoadSheet opens a workbook and reads a single sheet.
func LoadSheet(path, sheet string) (*Table, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSheet(f, sheet)
}

// WriteSheet writes the table into the named sheet of an excelize
// file, creating the sheet if needed. Missing cells are left blank.
func (t *Table) WriteSheet(f *excelize.File, sheet string) error {
	if !HasSheet(f, sheet) {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	for c, name := range t.Headers() {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("write header %q: %w", name, err)
		}
	}
	for r := 0; r < t.RowCount(); r++ {
		for c := 0; c < t.ColumnCount(); c++ {
			v := t.Cell(r, c)
			if v.IsMissing() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v.Value()); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// WriteFile writes the table to a new single-sheet workbook at path.
func (t *Table) WriteFile(path, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("name sheet %q: %w", sheet, err)
		}
	}
	if err := t.WriteSheet(f, sheet); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %q: %w", path, err)
	}
	return nil
}
