package table

import "strconv"

// CellType represents the type of value held by a cell.
type CellType int

const (
	CellMissing CellType = iota
	CellText
	CellNumber
	CellBoolean
)

// String returns a human-readable name for the CellType.
func (ct CellType) String() string {
	switch ct {
	case CellMissing:
		return "Missing"
	case CellText:
		return "Text"
	case CellNumber:
		return "Number"
	case CellBoolean:
		return "Boolean"
	default:
		return "Unknown"
	}
}

// Cell is a tagged scalar value. The zero value is a missing cell,
// which is distinct from an empty text cell.
type Cell struct {
	Type    CellType
	text    string
	number  float64
	boolean bool
}

// Missing is the absent-value cell.
var Missing = Cell{}

// NewText creates a text cell. An empty string is still a text cell,
// not a missing one.
func NewText(s string) Cell {
	return Cell{Type: CellText, text: s}
}

// NewNumber creates a numeric cell.
func NewNumber(f float64) Cell {
	return Cell{Type: CellNumber, number: f}
}

// NewBool creates a boolean cell.
func NewBool(b bool) Cell {
	return Cell{Type: CellBoolean, boolean: b}
}

// IsMissing reports whether the cell holds no value.
func (c Cell) IsMissing() bool {
	return c.Type == CellMissing
}

// Text returns the text value and whether the cell is text-typed.
func (c Cell) Text() (string, bool) {
	return c.text, c.Type == CellText
}

// Number returns the numeric value and whether the cell is number-typed.
func (c Cell) Number() (float64, bool) {
	return c.number, c.Type == CellNumber
}

// Bool returns the boolean value and whether the cell is boolean-typed.
func (c Cell) Bool() (bool, bool) {
	return c.boolean, c.Type == CellBoolean
}

// String renders the cell as text. Missing cells render as the empty
// string; numbers render without trailing zeros.
func (c Cell) String() string {
	switch c.Type {
	case CellText:
		return c.text
	case CellNumber:
		return strconv.FormatFloat(c.number, 'f', -1, 64)
	case CellBoolean:
		return strconv.FormatBool(c.boolean)
	default:
		return ""
	}
}

// Value returns the cell value as an any: string, float64, bool, or nil
// for a missing cell.
func (c Cell) Value() any {
	switch c.Type {
	case CellText:
		return c.text
	case CellNumber:
		return c.number
	case CellBoolean:
		return c.boolean
	default:
		return nil
	}
}

// inferCell converts a raw worksheet string into a typed cell.
// Empty strings are missing; values that parse as numbers or
// TRUE/FALSE become typed cells; everything else is text.
func inferCell(raw string) Cell {
	if raw == "" {
		return Missing
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return NewNumber(f)
	}
	switch raw {
	case "TRUE", "true":
		return NewBool(true)
	case "FALSE", "false":
		return NewBool(false)
	}
	return NewText(raw)
}
