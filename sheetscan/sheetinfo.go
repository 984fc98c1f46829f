package sheetscan

import (
	"encoding/json"
	"time"
)

// SheetInfo holds the derived statistics for one worksheet. Exactly one
// of two states applies: either the fields are populated normally, or
// Error is set and every other field keeps its zero value.
type SheetInfo struct {
	Name        string              `json:"name"`
	Rows        int                 `json:"rows"`
	Columns     int                 `json:"columns"`
	ColumnNames []string            `json:"column_names"`
	PNColumns   []string            `json:"pn_columns"`
	DataDensity float64             `json:"data_density"`
	IsDataSheet bool                `json:"is_data_sheet"`
	SampleData  []map[string]string `json:"sample_data"`
	Recommended bool                `json:"recommended"`
	Error       string              `json:"error,omitempty"`
}

// HasPNColumns reports whether any part-number column was detected.
func (s *SheetInfo) HasPNColumns() bool {
	return len(s.PNColumns) > 0
}

// QualityScore rates the sheet from 0 to 100: 30 points for being a
// data sheet, 40 for having part-number columns, and up to 30 from the
// data density.
func (s *SheetInfo) QualityScore() float64 {
	score := 0.0
	if s.IsDataSheet {
		score += 30
	}
	if s.HasPNColumns() {
		score += 40
	}
	score += s.DataDensity * 0.3
	if score > 100 {
		score = 100
	}
	return score
}

// MarshalJSON includes the derived quality_score in the payload.
func (s SheetInfo) MarshalJSON() ([]byte, error) {
	type alias SheetInfo
	return json.Marshal(struct {
		alias
		QualityScore float64 `json:"quality_score"`
	}{alias(s), s.QualityScore()})
}

// AnalysisResult is the outcome of scoring every sheet in a workbook.
type AnalysisResult struct {
	FilePath         string      `json:"file_path"`
	TotalSheets      int         `json:"total_sheets"`
	Sheets           []SheetInfo `json:"sheets"`
	RecommendedSheet string      `json:"recommended_sheet"`
}

// DataSheets returns the sheets classified as data sheets.
func (r *AnalysisResult) DataSheets() []SheetInfo {
	var out []SheetInfo
	for _, s := range r.Sheets {
		if s.IsDataSheet {
			out = append(out, s)
		}
	}
	return out
}

// SheetsWithPN returns the sheets that have part-number columns.
func (r *AnalysisResult) SheetsWithPN() []SheetInfo {
	var out []SheetInfo
	for _, s := range r.Sheets {
		if s.HasPNColumns() {
			out = append(out, s)
		}
	}
	return out
}

// RecommendedCount returns how many sheets carry the recommended flag.
func (r *AnalysisResult) RecommendedCount() int {
	n := 0
	for _, s := range r.Sheets {
		if s.Recommended {
			n++
		}
	}
	return n
}

// Summary aggregates the per-sheet flags for the API payload.
type Summary struct {
	DataSheets        int `json:"data_sheets"`
	SheetsWithPN      int `json:"sheets_with_pn"`
	RecommendedSheets int `json:"recommended_sheets"`
}

// MarshalJSON includes the derived analysis_summary in the payload.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	type alias AnalysisResult
	return json.Marshal(struct {
		alias
		AnalysisSummary Summary `json:"analysis_summary"`
	}{alias(r), Summary{
		DataSheets:        len(r.DataSheets()),
		SheetsWithPN:      len(r.SheetsWithPN()),
		RecommendedSheets: r.RecommendedCount(),
	}})
}

// SheetStats are the dimensions reported when a working sheet is
// selected. Unlike SheetInfo, the column list is not capped.
type SheetStats struct {
	Rows        int      `json:"rows"`
	Columns     int      `json:"columns"`
	ColumnNames []string `json:"column_names"`
}

// Selection is the side-car record persisted when a working sheet is
// chosen for an uploaded file.
type Selection struct {
	FileID        string     `json:"file_id"`
	SelectedSheet string     `json:"selected_sheet"`
	SheetStats    SheetStats `json:"sheet_stats"`
	Timestamp     time.Time  `json:"timestamp"`
}
