package cleaning

import (
	"encoding/json"
	"fmt"
	"math"
)

// Stats accumulates what the cleaning pipeline did to a table.
type Stats struct {
	OriginalRows        int
	OriginalColumns     int
	FinalRows           int
	FinalColumns        int
	OperationsPerformed []string
	IssuesFound         []string
	IssuesFixed         []string
}

// RowsRemoved returns how many rows the pipeline dropped.
func (s *Stats) RowsRemoved() int {
	return s.OriginalRows - s.FinalRows
}

// ColumnsRemoved returns how many columns the pipeline dropped.
func (s *Stats) ColumnsRemoved() int {
	return s.OriginalColumns - s.FinalColumns
}

// DataReductionPercent is the share of rows removed, 0 for an
// originally empty table.
func (s *Stats) DataReductionPercent() float64 {
	if s.OriginalRows == 0 {
		return 0
	}
	return float64(s.RowsRemoved()) / float64(s.OriginalRows) * 100
}

// MarshalJSON emits the stored counters plus the derived counts.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"original_rows":          s.OriginalRows,
		"original_columns":       s.OriginalColumns,
		"final_rows":             s.FinalRows,
		"final_columns":          s.FinalColumns,
		"rows_removed":           s.RowsRemoved(),
		"columns_removed":        s.ColumnsRemoved(),
		"operations_performed":   s.OperationsPerformed,
		"issues_found":           s.IssuesFound,
		"issues_fixed":           s.IssuesFixed,
		"data_reduction_percent": math.Round(s.DataReductionPercent()*10) / 10,
	})
}

// Summary condenses a cleaning run for the API payload.
type Summary struct {
	TotalOperations        int    `json:"total_operations"`
	IssuesFound            int    `json:"issues_found"`
	IssuesFixed            int    `json:"issues_fixed"`
	DataQualityImprovement string `json:"data_quality_improvement"`
}

// Report is the full cleaning report: counters, the missing-value
// detail log, and the summary.
type Report struct {
	Stats   Stats    `json:"stats"`
	Log     []string `json:"log"`
	Summary Summary  `json:"summary"`
}

// qualityImprovement renders the improvement metric: "0%" for an empty
// input, "No issues found" when nothing was fixed, otherwise the fixed
// count relative to the original row count, capped at 100.
func qualityImprovement(s *Stats) string {
	if s.OriginalRows == 0 {
		return "0%"
	}
	fixed := len(s.IssuesFixed)
	if fixed == 0 {
		return "No issues found"
	}
	improvement := math.Min(100, float64(fixed)/float64(s.OriginalRows)*100)
	return fmt.Sprintf("%.1f%%", improvement)
}
